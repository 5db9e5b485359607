// Package memory provides cached views over a module's linear memory.
//
// wazero hands out slices that alias the memory buffer. Growing the memory
// reallocates the buffer, so any slice taken before the growth is stale. A View
// re-derives its slice whenever the size or the identity of the buffer has
// changed, and it checks on every access: growth can happen as a side effect
// of any call into the module.
//
//	view := memory.NewView(mod.ExportedMemory("memory"))
//	b := view.Bytes()                  // current bytes
//	n, err := view.DataView().Uint32(p) // little-endian field access
//
// The package also adapts wasm-bindgen allocator exports to the wasmbridge
// Allocator interfaces.
package memory
