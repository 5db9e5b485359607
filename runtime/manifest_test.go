package runtime

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/wippyai/wasm-bridge/bindgen"
	"github.com/wippyai/wasm-bridge/errors"
)

func TestParseManifest(t *testing.T) {
	src := []byte(`
import_module: wbg
exports:
  run: main_async
  malloc: my_malloc
closures:
  __wbindgen_closure_wrapper58:
    invoke: closure17_externref_shim
    dtor: 12
promise_executor: closure31_externref_shim
`)
	m, err := ParseManifest(src)
	if err != nil {
		t.Fatal(err)
	}

	want := &Manifest{
		ImportModule:    "wbg",
		PromiseExecutor: "closure31_externref_shim",
		Closures: map[string]bindgen.ClosureSpec{
			"__wbindgen_closure_wrapper58": {Invoke: "closure17_externref_shim", Dtor: 12},
		},
		Exports: Exports{
			ExportNames: bindgen.ExportNames{
				Memory:    "memory",
				Malloc:    "my_malloc",
				Realloc:   "__wbindgen_realloc",
				Free:      "__wbindgen_free",
				ExnStore:  "__wbindgen_exn_store",
				TableCall: "__wbindgen_table_call",
			},
			Run:   "main_async",
			Start: "__wbindgen_start",
		},
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("manifest (-want +got):\n%s", diff)
	}
}

func TestParseManifestErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind errors.Kind
	}{
		{"malformed", "closures: [", errors.KindInvalidData},
		{"not a wrapper", "closures:\n  foo:\n    invoke: bar\n", errors.KindInvalidData},
		{"missing invoke", "closures:\n  __wbindgen_closure_wrapper1:\n    dtor: 3\n", errors.KindInvalidData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.src))
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Kind != tt.kind || e.Phase != errors.PhaseConfig {
				t.Errorf("ParseManifest = %v", err)
			}
		})
	}
}

func TestDefaultManifest(t *testing.T) {
	m := DefaultManifest()
	if m.ImportModule != bindgen.DefaultImportModule || m.Exports.Run != "run" {
		t.Errorf("defaults %+v", m)
	}
	if m.Exports.ExportNames != bindgen.DefaultExportNames() {
		t.Errorf("export names %+v", m.Exports.ExportNames)
	}
}

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	if err := os.WriteFile(path, []byte("exports:\n  run: go\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.Exports.Run != "go" {
		t.Errorf("run export %q", m.Exports.Run)
	}

	if _, err := LoadManifest(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing manifest loaded")
	}
}

func TestDecodeModule(t *testing.T) {
	wasm := resolvingModule()

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	if _, err := zw.Write(wasm); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	zst := enc.EncodeAll(wasm, nil)
	_ = enc.Close()

	for name, data := range map[string][]byte{"plain": wasm, "gzip": gz.Bytes(), "zstd": zst} {
		t.Run(name, func(t *testing.T) {
			got, err := DecodeModule(data)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, wasm) {
				t.Error("decoded module differs")
			}
		})
	}

	t.Run("not wasm", func(t *testing.T) {
		if _, err := DecodeModule([]byte("#!/bin/sh")); err == nil {
			t.Error("accepted a non-wasm input")
		}
	})

	t.Run("read file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.wasm.zst")
		if err := os.WriteFile(path, zst, 0o600); err != nil {
			t.Fatal(err)
		}
		got, err := ReadModule(path)
		if err != nil || !bytes.Equal(got, wasm) {
			t.Errorf("ReadModule = %d bytes, %v", len(got), err)
		}
	})
}
