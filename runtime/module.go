package runtime

import (
	"context"
	"maps"
	"slices"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/bindgen"
	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/value"
)

type Module struct {
	runtime  *Runtime
	compiled wazero.CompiledModule
	manifest *Manifest
	wasm     []byte
}

// Manifest returns the glue description the module was loaded with.
func (m *Module) Manifest() *Manifest {
	return m.manifest
}

type Export struct {
	Name string
}

func (m *Module) Exports() []Export {
	names := slices.Sorted(maps.Keys(m.compiled.ExportedFunctions()))
	exports := make([]Export, len(names))
	for i, name := range names {
		exports[i] = Export{Name: name}
	}
	return exports
}

// Instantiate creates an instance with its own bridge, event loop and host
// module, then runs the start export if the module has one.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	r := m.runtime
	id := uuid.New()
	l := r.logger.With(zap.String("instance", id.String()))

	wr := wazero.NewRuntimeWithConfig(ctx, r.runtimeConfig())
	compiled, err := wr.CompileModule(ctx, m.wasm)
	if err != nil {
		_ = wr.Close(ctx)
		return nil, errors.Load("compile module", err)
	}

	globals := r.cfg.Globals
	if globals.Probe() == nil {
		globals = value.DefaultGlobals()
	}
	cfg := m.manifest.bridgeConfig(l, r.metrics, globals)
	cfg.Services = r.cfg.Services
	inst := &Instance{
		id:       id,
		runtime:  wr,
		manifest: m.manifest,
		logger:   l,
	}
	inst.bridge = bindgen.New(cfg)

	if _, err := inst.bridge.Instantiate(ctx, wr, compiled); err != nil {
		_ = wr.Close(ctx)
		return nil, err
	}

	mod, err := wr.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		_ = wr.Close(ctx)
		return nil, errors.Instantiation(err)
	}
	g, err := newGuest(mod, m.manifest.Exports.ExportNames)
	if err != nil {
		_ = wr.Close(ctx)
		return nil, err
	}
	inst.module = mod
	inst.bridge.Attach(g)

	if start := m.manifest.Exports.Start; g.Has(start) {
		if _, err := inst.bridge.Call(ctx, start); err != nil {
			_ = inst.Close(ctx)
			return nil, trapError(start, err)
		}
	}

	l.Debug("instance created")
	return inst, nil
}
