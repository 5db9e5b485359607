package memory

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/errors"
)

var (
	_ wasmbridge.Allocator   = (*Allocator)(nil)
	_ wasmbridge.Reallocator = (*Allocator)(nil)
	_ wasmbridge.Deallocator = (*Allocator)(nil)
)

// Allocator adapts the wasm-bindgen allocator exports
// (__wbindgen_malloc, __wbindgen_realloc, __wbindgen_free).
type Allocator struct {
	MallocFn  api.Function
	ReallocFn api.Function
	FreeFn    api.Function
}

// WrapFunctions wraps allocator exports. malloc is required; realloc and free may be nil.
func WrapFunctions(malloc, realloc, free api.Function) *Allocator {
	if malloc == nil {
		return nil
	}
	return &Allocator{MallocFn: malloc, ReallocFn: realloc, FreeFn: free}
}

// CanRealloc reports whether the module exports a reallocator.
func (a *Allocator) CanRealloc() bool {
	return a.ReallocFn != nil
}

// Malloc allocates size bytes with the given alignment.
func (a *Allocator) Malloc(ctx context.Context, size, align uint32) (uint32, error) {
	results, err := a.MallocFn.Call(ctx, uint64(size), uint64(align))
	if err != nil {
		return 0, errors.AllocationFailed(errors.PhaseEncode, size, align, err)
	}
	if len(results) == 0 {
		return 0, errors.AllocationFailed(errors.PhaseEncode, size, align, fmt.Errorf("malloc returned no result"))
	}
	return uint32(results[0]), nil
}

// Realloc resizes an allocation.
func (a *Allocator) Realloc(ctx context.Context, ptr, oldSize, newSize, align uint32) (uint32, error) {
	if a.ReallocFn == nil {
		return 0, errors.Unsupported(errors.PhaseEncode, "module does not export a reallocator")
	}
	results, err := a.ReallocFn.Call(ctx, uint64(ptr), uint64(oldSize), uint64(newSize), uint64(align))
	if err != nil {
		return 0, errors.AllocationFailed(errors.PhaseEncode, newSize, align, err)
	}
	if len(results) == 0 {
		return 0, errors.AllocationFailed(errors.PhaseEncode, newSize, align, fmt.Errorf("realloc returned no result"))
	}
	return uint32(results[0]), nil
}

// Free releases an allocation. Without a free export it is a no-op.
func (a *Allocator) Free(ctx context.Context, ptr, size, align uint32) error {
	if a.FreeFn == nil {
		return nil
	}
	_, err := a.FreeFn.Call(ctx, uint64(ptr), uint64(size), uint64(align))
	return err
}
