package runtime

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/bindgen"
	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/memory"
)

// guest adapts an instantiated wazero module to bindgen.Guest.
type guest struct {
	mod   api.Module
	mem   api.Memory
	alloc *memory.Allocator
	funcs map[string]api.Function
}

func newGuest(mod api.Module, names bindgen.ExportNames) (*guest, error) {
	mem := mod.ExportedMemory(names.Memory)
	if mem == nil {
		mem = mod.Memory()
	}
	if mem == nil {
		return nil, errors.NotFound(errors.PhaseRuntime, "memory export", names.Memory)
	}
	return &guest{
		mod: mod,
		mem: mem,
		alloc: memory.WrapFunctions(
			mod.ExportedFunction(names.Malloc),
			mod.ExportedFunction(names.Realloc),
			mod.ExportedFunction(names.Free),
		),
		funcs: make(map[string]api.Function),
	}, nil
}

func (g *guest) function(name string) api.Function {
	if fn, ok := g.funcs[name]; ok {
		return fn
	}
	fn := g.mod.ExportedFunction(name)
	if fn != nil {
		g.funcs[name] = fn
	}
	return fn
}

func (g *guest) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn := g.function(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseRuntime, "export", name)
	}
	return fn.Call(ctx, params...)
}

func (g *guest) Has(name string) bool {
	return g.function(name) != nil
}

func (g *guest) Memory() wasmbridge.Memory {
	return g.mem
}

func (g *guest) Allocator() wasmbridge.Allocator {
	if g.alloc == nil {
		return nil
	}
	return g.alloc
}

func (g *guest) Reallocator() wasmbridge.Reallocator {
	if g.alloc == nil || !g.alloc.CanRealloc() {
		return nil
	}
	return g.alloc
}
