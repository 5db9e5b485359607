// Package bindgen serves the imports of a wasm-bindgen style module.
//
// A Bridge is the context object for one module instance. It owns the
// reference table, the exception register, the string encoder and the event
// loop, and every import closes over it. There is no package-level state
// besides the logger.
//
// # Lifecycle
//
//	b := bindgen.New(bindgen.Config{Globals: value.DefaultGlobals()})
//	host, err := b.Instantiate(ctx, r, compiled) // resolve and link imports
//	guest := ...                                 // instantiate the module
//	b.Attach(guest)
//	...
//	b.Detach()
//
// # Imports
//
// Imports are matched by canonical name, with the hash suffix removed, and by
// signature, so overloads such as the one- and two-argument then resolve to
// different implementations. Closure wrapper imports are described by the
// Closures map, which names the invoke export and the destructor index.
//
// # Failures
//
// Errors and panics raised while calling into host values become host
// exceptions: the thrown value is stored in the reference table, recorded in
// the ExceptionRegister, forwarded to the module's exn_store export when it
// has one, and the import returns 0. Malformed strings, invalid handles and
// __wbindgen_throw abort the import, which wazero reports as a trap.
package bindgen
