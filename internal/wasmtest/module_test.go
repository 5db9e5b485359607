package wasmtest

import (
	"context"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

func TestEncodeInstantiates(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	i32 := api.ValueTypeI32
	m := New()
	m.Memory("memory", 1).Data(16, []byte("hi"))
	m.BumpMalloc("malloc", 1024)
	answer := m.Func(nil, []api.ValueType{i32}, nil, I32Const(16), I32Load(0))
	m.Export("answer", answer)

	mod, err := r.Instantiate(ctx, m.Encode())
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}

	res, err := mod.ExportedFunction("answer").Call(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := uint32(res[0]) & 0xffff; got != uint32('h')|uint32('i')<<8 {
		t.Errorf("answer = %#x", got)
	}

	malloc := mod.ExportedFunction("malloc")
	for _, want := range []uint64{1024, 1034} {
		res, err := malloc.Call(ctx, 10, 1)
		if err != nil {
			t.Fatal(err)
		}
		if res[0] != want {
			t.Errorf("malloc = %d, want %d", res[0], want)
		}
	}
}

func TestImportsPrecedeFunctions(t *testing.T) {
	m := New()
	m.Func(nil, nil, nil)
	defer func() {
		if recover() == nil {
			t.Error("Import after Func did not panic")
		}
	}()
	m.Import("env", "f", nil, nil)
}

func TestSignedLEB(t *testing.T) {
	tests := []struct {
		v    int32
		want []byte
	}{
		{0, []byte{0x00}},
		{-1, []byte{0x7f}},
		{63, []byte{0x3f}},
		{64, []byte{0xc0, 0x00}},
		{-64, []byte{0x40}},
		{1024, []byte{0x80, 0x08}},
	}
	for _, tt := range tests {
		w := &writer{}
		w.s32(tt.v)
		if string(w.bytes()) != string(tt.want) {
			t.Errorf("s32(%d) = %x, want %x", tt.v, w.bytes(), tt.want)
		}
	}
}
