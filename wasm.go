package wasmbridge

import "context"

// Memory is the view of a module's linear memory the bridge needs.
// wazero's api.Memory satisfies it.
type Memory interface {
	// Size returns the current size in bytes.
	Size() uint32
	// Read returns a slice aliasing linear memory. The slice is only valid
	// until the next growth of the memory.
	Read(offset, byteCount uint32) ([]byte, bool)
}

// Allocator allocates memory in WASM linear memory
type Allocator interface {
	Malloc(ctx context.Context, size, align uint32) (uint32, error)
}

// Reallocator resizes an allocation previously returned by an Allocator.
type Reallocator interface {
	Realloc(ctx context.Context, ptr, oldSize, newSize, align uint32) (uint32, error)
}

// Deallocator releases an allocation.
type Deallocator interface {
	Free(ctx context.Context, ptr, size, align uint32) error
}

// Exports calls module exports by name.
type Exports interface {
	Call(ctx context.Context, name string, params ...uint64) ([]uint64, error)
	Has(name string) bool
}
