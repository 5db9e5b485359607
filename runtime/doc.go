// Package runtime loads and runs modules built with wasm-bindgen style glue.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx, runtime.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	wasm, err := runtime.ReadModule("app_bg.wasm.zst")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	manifest, err := runtime.LoadManifest("app.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	mod, err := rt.LoadModule(ctx, wasm, manifest)
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
//	// Calls the run export and waits for the promise it returns.
//	if err := inst.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Manifest
//
// The generated glue is not available to a Go host, so the details it would
// carry are given in a YAML manifest: the import module name, export names
// that differ from the wasm-bindgen defaults, the closure wrapper imports
// with their invoke export and destructor index, and the export adapting a
// promise executor closure. Every field is optional.
//
// # Module Sources
//
// ReadModule and DecodeModule accept plain binaries as well as gzip or zstd
// compressed ones.
//
// # Instances
//
// Each instance owns a bridge, an event loop and a wazero runtime holding
// its host module. Compiled code is shared across instances through a
// compilation cache. An instance is driven by the goroutine calling Run.
package runtime
