package runtime

import (
	"bytes"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/wippyai/wasm-bridge/errors"
)

var (
	wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// ReadModule reads a module binary from path. See DecodeModule.
func ReadModule(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load("read "+path, err)
	}
	return DecodeModule(data)
}

// DecodeModule returns data as a module binary, inflating gzip or zstd
// compressed input first.
func DecodeModule(data []byte) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		out, err = gunzip(data)
	case bytes.HasPrefix(data, zstdMagic):
		out, err = unzstd(data)
	default:
		out = data
	}
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(out, wasmMagic) {
		return nil, errors.Load("not a wasm binary", nil)
	}
	return out, nil
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Load("open gzip stream", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, errors.Load("inflate gzip stream", err)
	}
	return out, nil
}

func unzstd(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Load("open zstd decoder", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, errors.Load("inflate zstd stream", err)
	}
	return out, nil
}
