package transcoder

import (
	"context"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/memory"
)

// Decode reads len bytes at ptr as strict UTF-8.
func Decode(view *memory.View, ptr, n uint32) (string, error) {
	b, err := view.Slice(ptr, n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.InvalidUTF8(errors.PhaseDecode, ptr, b)
	}
	return string(b), nil
}

// Encoder writes host strings into module memory. It is not safe for
// concurrent use; the bridge owns one per module instance.
type Encoder struct {
	vecLen uint32
}

// NewEncoder creates an encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// VectorLen returns the byte length written by the last Encode.
func (e *Encoder) VectorLen() uint32 {
	return e.vecLen
}

// Encode allocates module memory for s and returns its pointer. The length is
// available from VectorLen until the next call. realloc may be nil.
func (e *Encoder) Encode(ctx context.Context, view *memory.View, s string, alloc wasmbridge.Allocator, realloc wasmbridge.Reallocator) (uint32, error) {
	if alloc == nil {
		return 0, errors.NotInitialized(errors.PhaseEncode, "allocator")
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}

	if realloc == nil {
		return e.encodeExact(ctx, view, s, alloc)
	}

	units := unitLen(s)
	ptr, err := alloc.Malloc(ctx, units, 1)
	if err != nil {
		return 0, err
	}

	offset := 0
	for offset < len(s) && s[offset] < utf8.RuneSelf {
		offset++
	}
	if err := view.Write(ptr, []byte(s[:offset])); err != nil {
		return 0, err
	}

	if offset == len(s) {
		e.vecLen = uint32(offset)
		return ptr, nil
	}

	rest := s[offset:]
	size := uint32(offset) + unitLen(rest)*3
	ptr, err = realloc.Realloc(ctx, ptr, units, size, 1)
	if err != nil {
		return 0, err
	}
	if err := view.Write(ptr+uint32(offset), []byte(rest)); err != nil {
		return 0, err
	}
	written := uint32(offset + len(rest))

	ptr, err = realloc.Realloc(ctx, ptr, size, written, 1)
	if err != nil {
		return 0, err
	}
	e.vecLen = written
	return ptr, nil
}

func (e *Encoder) encodeExact(ctx context.Context, view *memory.View, s string, alloc wasmbridge.Allocator) (uint32, error) {
	size := uint32(len(s))
	ptr, err := alloc.Malloc(ctx, size, 1)
	if err != nil {
		return 0, err
	}
	if err := view.Write(ptr, []byte(s)); err != nil {
		return 0, err
	}
	e.vecLen = size
	return ptr, nil
}

// unitLen returns the UTF-16 length of a valid UTF-8 string.
func unitLen(s string) uint32 {
	var n uint32
	for _, r := range s {
		n += uint32(utf16.RuneLen(r))
	}
	return n
}
