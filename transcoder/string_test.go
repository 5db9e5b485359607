package transcoder

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/memory"
)

type testMemory struct {
	buf []byte
}

func (m *testMemory) Size() uint32 { return uint32(len(m.buf)) }

func (m *testMemory) Read(offset, n uint32) ([]byte, bool) {
	end := uint64(offset) + uint64(n)
	if end > uint64(len(m.buf)) {
		return nil, false
	}
	return m.buf[offset:end:end], true
}

// bumpAllocator grows memory by a full reallocation on every request, the
// way a module's allocator may grow linear memory as a side effect.
type bumpAllocator struct {
	mem   *testMemory
	next  uint32
	calls []string
}

func (a *bumpAllocator) Malloc(_ context.Context, size, align uint32) (uint32, error) {
	a.calls = append(a.calls, fmt.Sprintf("malloc(%d)", size))
	return a.take(size), nil
}

func (a *bumpAllocator) Realloc(_ context.Context, ptr, oldSize, newSize, align uint32) (uint32, error) {
	a.calls = append(a.calls, fmt.Sprintf("realloc(%d,%d)", oldSize, newSize))
	if newSize <= oldSize {
		return ptr, nil
	}
	np := a.take(newSize)
	copy(a.mem.buf[np:], a.mem.buf[ptr:ptr+oldSize])
	return np, nil
}

func (a *bumpAllocator) take(size uint32) uint32 {
	if a.next == 0 {
		a.next = 8
	}
	ptr := a.next
	a.next += size
	if int(a.next) > len(a.mem.buf) {
		grown := make([]byte, int(a.next)+64)
		copy(grown, a.mem.buf)
		a.mem.buf = grown
	}
	return ptr
}

func TestEncode_WithReallocator(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  string
		calls []string
	}{
		{
			name:  "ascii allocates once",
			in:    "hello",
			want:  "hello",
			calls: []string{"malloc(5)"},
		},
		{
			name:  "empty",
			in:    "",
			want:  "",
			calls: []string{"malloc(0)"},
		},
		{
			name:  "non-ascii tail grows then shrinks",
			in:    "café",
			want:  "café",
			calls: []string{"malloc(4)", "realloc(4,6)", "realloc(6,5)"},
		},
		{
			name:  "leading non-ascii",
			in:    "éa",
			want:  "éa",
			calls: []string{"malloc(2)", "realloc(2,6)", "realloc(6,3)"},
		},
		{
			name:  "supplementary character counts two units",
			in:    "a😀",
			want:  "a😀",
			calls: []string{"malloc(3)", "realloc(3,7)", "realloc(7,5)"},
		},
		{
			name:  "invalid utf8 is replaced",
			in:    "a\xffb",
			want:  "a\uFFFDb",
			calls: []string{"malloc(3)", "realloc(3,7)", "realloc(7,5)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := &testMemory{buf: make([]byte, 16)}
			alloc := &bumpAllocator{mem: mem}
			view := memory.NewView(mem)
			enc := NewEncoder()

			ptr, err := enc.Encode(context.Background(), view, tt.in, alloc, alloc)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if enc.VectorLen() != uint32(len(tt.want)) {
				t.Errorf("VectorLen = %d, want %d", enc.VectorLen(), len(tt.want))
			}
			got, err := Decode(view, ptr, enc.VectorLen())
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got != tt.want {
				t.Errorf("round trip = %q, want %q", got, tt.want)
			}
			if diff := cmp.Diff(tt.calls, alloc.calls); diff != "" {
				t.Errorf("allocator calls (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncode_WithoutReallocator(t *testing.T) {
	mem := &testMemory{buf: make([]byte, 16)}
	alloc := &bumpAllocator{mem: mem}
	view := memory.NewView(mem)
	enc := NewEncoder()

	ptr, err := enc.Encode(context.Background(), view, "café", alloc, nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"malloc(5)"}, alloc.calls); diff != "" {
		t.Errorf("allocator calls (-want +got):\n%s", diff)
	}
	if got, _ := Decode(view, ptr, enc.VectorLen()); got != "café" {
		t.Errorf("got %q", got)
	}
}

func TestEncode_NoAllocator(t *testing.T) {
	mem := &testMemory{buf: make([]byte, 16)}
	_, err := NewEncoder().Encode(context.Background(), memory.NewView(mem), "x", nil, nil)
	if e, ok := err.(*errors.Error); !ok || e.Kind != errors.KindNotInitialized {
		t.Errorf("expected not_initialized, got %v", err)
	}
}

func TestDecode(t *testing.T) {
	mem := &testMemory{buf: make([]byte, 32)}
	copy(mem.buf[0:], "hi")
	copy(mem.buf[4:], "\xef\xbb\xbfbom")
	copy(mem.buf[12:], "\xc3\x28")
	view := memory.NewView(mem)

	t.Run("valid", func(t *testing.T) {
		got, err := Decode(view, 0, 2)
		if err != nil || got != "hi" {
			t.Errorf("Decode = %q, %v", got, err)
		}
	})

	t.Run("zero length", func(t *testing.T) {
		got, err := Decode(view, 0, 0)
		if err != nil || got != "" {
			t.Errorf("Decode = %q, %v", got, err)
		}
	})

	t.Run("bom is preserved", func(t *testing.T) {
		got, err := Decode(view, 4, 6)
		if err != nil {
			t.Fatal(err)
		}
		if got != "\ufeffbom" {
			t.Errorf("Decode = %q, want leading U+FEFF", got)
		}
	})

	t.Run("invalid utf8 fails", func(t *testing.T) {
		_, err := Decode(view, 12, 2)
		e, ok := err.(*errors.Error)
		if !ok || e.Kind != errors.KindInvalidUTF8 {
			t.Fatalf("expected invalid_utf8, got %v", err)
		}
		if e.Value != uint32(12) {
			t.Errorf("Value = %v, want pointer 12", e.Value)
		}
	})

	t.Run("malformed sequences", func(t *testing.T) {
		tests := []struct {
			name string
			data string
		}{
			{"overlong slash", "\xc0\xaf"},
			{"overlong nul", "a\xe0\x80\x80"},
			{"encoded surrogate", "\xed\xa0\x80"},
			{"truncated", "\xe2\x82"},
			{"truncated at end", "ok\xf0\x9f\x98"},
			{"lone continuation", "\x80"},
			{"byte F5", "\xf5\x80\x80\x80"},
			{"byte FF", "x\xff"},
			{"beyond U+10FFFF", "\xf4\x90\x80\x80"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				m := &testMemory{buf: make([]byte, 16)}
				copy(m.buf, tt.data)
				got, err := Decode(memory.NewView(m), 0, uint32(len(tt.data)))
				e, ok := err.(*errors.Error)
				if !ok || e.Kind != errors.KindInvalidUTF8 {
					t.Errorf("Decode(% x) = %q, %v; want invalid_utf8", tt.data, got, err)
				}
				if got != "" {
					t.Errorf("Decode(% x) returned %q alongside the error", tt.data, got)
				}
			})
		}
	})

	t.Run("out of bounds", func(t *testing.T) {
		_, err := Decode(view, 30, 8)
		if e, ok := err.(*errors.Error); !ok || e.Kind != errors.KindOutOfBounds {
			t.Errorf("expected out_of_bounds, got %v", err)
		}
	})
}
