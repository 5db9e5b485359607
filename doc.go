// Package wasmbridge is a Go host for WebAssembly modules built with
// wasm-bindgen style glue.
//
// The host side of such a module is normally generated JavaScript. This
// library provides the same boundary in Go on top of wazero: host values are
// Go values, promises run on a Go event loop, and the module talks to them
// through integer handles.
//
// # Architecture Overview
//
//	wasmbridge/        Root package with core Memory, Allocator and Exports interfaces
//	├── memory/        Cached views over linear memory, invalidated on growth
//	├── transcoder/    UTF-8 string encode/decode across linear memory
//	├── externref/     Reference table handing host values to the module by handle
//	├── value/         Host value model, classification and debug rendering
//	├── closure/       Closure lifetime bridge (refcount, destructor, auto cleanup)
//	├── eventloop/     Single-threaded microtask/macrotask loop
//	├── promise/       Promises settled on the event loop
//	├── bindgen/       Host function registry and exception channel
//	├── runtime/       Loading, instantiation and the async run entry point
//	└── errors/        Structured error types for debugging
//
// # Quick Start
//
//	rt, err := runtime.New(ctx, runtime.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	mod, err := rt.LoadModule(ctx, wasmBytes, manifest)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	inst, err := mod.Instantiate(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	if err := inst.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// An Instance is driven by exactly one goroutine, the one calling Run. Host
// and module code never execute in parallel. Timers and garbage-collector
// cleanups only post work back onto the instance's event loop.
//
// # Memory Model
//
// Linear memory can grow as a side effect of any allocation. Every slice
// obtained from memory is treated as stale after a call into the module and
// is re-derived before the next access.
package wasmbridge
