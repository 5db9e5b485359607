package runtime

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/bindgen"
	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/internal/metrics"
	"github.com/wippyai/wasm-bridge/value"
)

// Config holds configuration for runtime creation
type Config struct {
	// Logger defaults to the package logger.
	Logger *zap.Logger

	// Registerer receives the bridge collectors. nil disables metrics.
	// A registerer can back only one Runtime.
	Registerer prometheus.Registerer

	// Services are the log and sleep collaborators handed to every instance.
	Services bindgen.Services

	// Globals are the global object flavors the module can probe. They are
	// shared by all instances. When none is set every instance gets its own
	// value.DefaultGlobals().
	Globals value.Globals

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means the wazero default.
	MemoryLimitPages uint32
}

// Runtime compiles bridged modules. Each instance gets its own wazero
// runtime, since the bridge's host module is bound to one instance; compiled
// code is shared through a compilation cache.
type Runtime struct {
	cache   wazero.CompilationCache
	base    wazero.Runtime
	logger  *zap.Logger
	metrics *metrics.Metrics
	cfg     Config
}

func New(ctx context.Context, cfg Config) (*Runtime, error) {
	l := cfg.Logger
	if l == nil {
		l = Logger()
	}
	var m *metrics.Metrics
	if cfg.Registerer != nil {
		m = metrics.New(cfg.Registerer)
	}

	r := &Runtime{
		cache:   wazero.NewCompilationCache(),
		logger:  l,
		metrics: m,
		cfg:     cfg,
	}
	r.base = wazero.NewRuntimeWithConfig(ctx, r.runtimeConfig())
	return r, nil
}

func (r *Runtime) runtimeConfig() wazero.RuntimeConfig {
	rc := wazero.NewRuntimeConfig().
		WithCompilationCache(r.cache).
		WithCloseOnContextDone(true)
	if r.cfg.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(r.cfg.MemoryLimitPages)
	}
	return rc
}

// Close releases all runtime resources.
// All instances must be closed before calling this.
func (r *Runtime) Close(ctx context.Context) error {
	if err := r.base.Close(ctx); err != nil {
		return err
	}
	return r.cache.Close(ctx)
}

// LoadModule compiles a core module built by wasm-bindgen. A nil manifest
// means DefaultManifest. Unresolvable imports fail here rather than at
// instantiation.
func (r *Runtime) LoadModule(ctx context.Context, wasm []byte, manifest *Manifest) (*Module, error) {
	if manifest == nil {
		manifest = DefaultManifest()
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	compiled, err := r.base.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("compile module", err)
	}

	probe := bindgen.New(manifest.bridgeConfig(r.logger, nil, value.Globals{}))
	if _, err := probe.Resolve(compiled.ImportedFunctions()); err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}

	r.logger.Debug("module loaded",
		zap.String("import_module", manifest.ImportModule),
		zap.Int("imports", len(compiled.ImportedFunctions())),
		zap.Int("exports", len(compiled.ExportedFunctions())))

	return &Module{
		runtime:  r,
		wasm:     wasm,
		compiled: compiled,
		manifest: manifest,
	}, nil
}
