package bindgen

import (
	"context"

	"go.uber.org/zap"

	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/closure"
	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/eventloop"
	"github.com/wippyai/wasm-bridge/externref"
	"github.com/wippyai/wasm-bridge/internal/metrics"
	"github.com/wippyai/wasm-bridge/memory"
	"github.com/wippyai/wasm-bridge/promise"
	"github.com/wippyai/wasm-bridge/transcoder"
	"github.com/wippyai/wasm-bridge/value"
)

// DefaultImportModule is the module name wasm-bindgen places imports under.
const DefaultImportModule = "__wbindgen_placeholder__"

// Guest is the module side of the bridge.
type Guest interface {
	wasmbridge.Exports
	Memory() wasmbridge.Memory
	Allocator() wasmbridge.Allocator
	// Reallocator may return nil.
	Reallocator() wasmbridge.Reallocator
}

// ExportNames names the module exports the bridge calls.
type ExportNames struct {
	Memory    string `yaml:"memory"`
	Malloc    string `yaml:"malloc"`
	Realloc   string `yaml:"realloc"`
	Free      string `yaml:"free"`
	ExnStore  string `yaml:"exn_store"`
	TableCall string `yaml:"table_call"`
}

// DefaultExportNames returns the names wasm-bindgen emits.
func DefaultExportNames() ExportNames {
	return ExportNames{
		Memory:    "memory",
		Malloc:    "__wbindgen_malloc",
		Realloc:   "__wbindgen_realloc",
		Free:      "__wbindgen_free",
		ExnStore:  "__wbindgen_exn_store",
		TableCall: "__wbindgen_table_call",
	}
}

// ClosureSpec describes one closure wrapper import.
type ClosureSpec struct {
	Invoke string `yaml:"invoke"`
	Dtor   uint32 `yaml:"dtor"`
}

// Services are the host collaborators the module calls out to.
type Services struct {
	// Log receives decoded module log lines.
	Log func(msg string)
	// Sleep returns a value, normally a promise, that settles after ms milliseconds.
	Sleep func(ms uint64) any
}

// Config configures a Bridge.
type Config struct {
	Logger          *zap.Logger
	Metrics         *metrics.Metrics
	Loop            *eventloop.Loop
	Closures        map[string]ClosureSpec
	Services        Services
	Globals         value.Globals
	ImportModule    string
	PromiseExecutor string
	Names           ExportNames
}

// Bridge is the per-instance context shared by every import. It is created
// before instantiation, attached to the module once it exists, and detached
// when the instance is discarded.
type Bridge struct {
	logger   *zap.Logger
	metrics  *metrics.Metrics
	loop     *eventloop.Loop
	table    *externref.Table
	exn      *ExceptionRegister
	enc      *transcoder.Encoder
	scripts  *value.ScriptEngine
	guest    Guest
	view     *memory.View
	callCtx  context.Context
	closures map[string]ClosureSpec
	services Services
	globals  value.Globals
	names    ExportNames
	module   string
	executor string
}

// New creates a detached bridge.
func New(cfg Config) *Bridge {
	l := cfg.Logger
	if l == nil {
		l = Logger()
	}
	loop := cfg.Loop
	if loop == nil {
		loop = eventloop.New(eventloop.WithLogger(l), eventloop.WithMetrics(cfg.Metrics))
	}
	names := cfg.Names
	if names == (ExportNames{}) {
		names = DefaultExportNames()
	}
	module := cfg.ImportModule
	if module == "" {
		module = DefaultImportModule
	}

	b := &Bridge{
		logger:   l,
		metrics:  cfg.Metrics,
		loop:     loop,
		exn:      NewExceptionRegister(l),
		enc:      transcoder.NewEncoder(),
		closures: cfg.Closures,
		globals:  cfg.Globals,
		names:    names,
		module:   module,
		executor: cfg.PromiseExecutor,
		services: cfg.Services,
	}
	b.table = externref.New(externref.WithObserver(externref.ObserverFunc(func(e externref.Event) {
		b.metrics.SetLiveRefs(e.Live)
	})))

	if b.services.Log == nil {
		b.services.Log = func(msg string) {
			b.logger.Info(msg, zap.String("source", "module.log"))
		}
	}
	if b.services.Sleep == nil {
		b.services.Sleep = func(ms uint64) any {
			return promise.Sleep(b.loop, ms)
		}
	}

	b.installQueueMicrotask()
	b.scripts = value.NewScriptEngine(b.globals.Probe())
	return b
}

// installQueueMicrotask gives plain global objects a queueMicrotask property.
func (b *Bridge) installQueueMicrotask() {
	qm := &value.NamedFunc{FuncName: "queueMicrotask", Fn: func(_ context.Context, _ any, args ...any) (any, error) {
		fn, ok := value.Arg(args, 0).(value.Function)
		if !ok {
			return nil, &value.Error{Name: "TypeError", Message: "queueMicrotask argument is not a function"}
		}
		b.queueMicrotask(fn)
		return value.Undefined, nil
	}}
	for _, g := range []any{b.globals.GlobalThis, b.globals.Window, b.globals.Self, b.globals.Global} {
		if obj, ok := g.(*value.Object); ok && value.IsUndefined(obj.Get("queueMicrotask")) {
			obj.Set("queueMicrotask", qm)
		}
	}
}

func (b *Bridge) queueMicrotask(fn value.Function) {
	b.loop.QueueMicrotask(func() {
		if _, err := fn.Call(b.loop.Context(), value.Undefined); err != nil {
			b.logger.Error("uncaught exception in microtask", zap.Error(err))
		}
	})
}

// Attach binds the bridge to an instantiated module.
func (b *Bridge) Attach(g Guest) {
	b.guest = g
	b.view = memory.NewView(g.Memory())
}

// Detach unbinds the module. Later imports and closure calls fail.
func (b *Bridge) Detach() {
	b.guest = nil
	b.view = nil
	b.table.Reset()
}

// Attached reports whether a module is bound.
func (b *Bridge) Attached() bool { return b.guest != nil }

// Table returns the reference table.
func (b *Bridge) Table() *externref.Table { return b.table }

// Exceptions returns the exception register.
func (b *Bridge) Exceptions() *ExceptionRegister { return b.exn }

// Loop returns the event loop driving this bridge.
func (b *Bridge) Loop() *eventloop.Loop { return b.loop }

// Encoder returns the string encoder, whose VectorLen the module reads.
func (b *Bridge) Encoder() *transcoder.Encoder { return b.enc }

// ImportModule returns the import module name served by the bridge.
func (b *Bridge) ImportModule() string { return b.module }

// View returns the memory view of the attached module.
func (b *Bridge) View() *memory.View { return b.view }

// Handle stores v for the module. Undefined, null and booleans map to their
// sentinel slots.
func (b *Bridge) Handle(v any) externref.Handle {
	switch v {
	case value.Undefined:
		return externref.UndefinedHandle
	case nil:
		return externref.NullHandle
	case true:
		return externref.TrueHandle
	case false:
		return externref.FalseHandle
	}
	return b.table.Alloc(v)
}

// Value returns the host value behind h.
func (b *Bridge) Value(h externref.Handle) (any, error) {
	return b.table.Get(h)
}

// GlobalHandle probes the global flavors and returns a handle to the first
// defined one, or the null sentinel.
func (b *Bridge) GlobalHandle() externref.Handle {
	return b.Handle(b.globals.Probe())
}

// Invoke calls a closure export with the environment words and argument handles.
func (b *Bridge) Invoke(ctx context.Context, export string, a, bw uint32, args []any) (any, error) {
	if b.guest == nil {
		return nil, errors.Detached("closure " + export)
	}
	params := make([]uint64, 0, 2+len(args))
	params = append(params, uint64(a), uint64(bw))
	for _, arg := range args {
		params = append(params, uint64(b.Handle(arg)))
	}
	results, err := b.call(ctx, export, params...)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return value.Undefined, nil
	}
	return b.table.Take(uint32(results[0]))
}

// Destroy runs a closure destructor through the module's table trampoline.
func (b *Bridge) Destroy(ctx context.Context, dtor, a, bw uint32) error {
	if b.guest == nil {
		return errors.Detached("closure destructor")
	}
	if !b.guest.Has(b.names.TableCall) {
		return errors.NotFound(errors.PhaseBridge, "export", b.names.TableCall)
	}
	_, err := b.call(ctx, b.names.TableCall, uint64(dtor), uint64(a), uint64(bw))
	return err
}

// Call invokes a module export, making ctx visible to nested imports.
func (b *Bridge) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	if b.guest == nil {
		return nil, errors.Detached("export " + name)
	}
	return b.call(ctx, name, params...)
}

func (b *Bridge) call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	prev := b.callCtx
	b.callCtx = ctx
	defer func() { b.callCtx = prev }()
	return b.guest.Call(ctx, name, params...)
}

func (b *Bridge) ctx() context.Context {
	if b.callCtx != nil {
		return b.callCtx
	}
	return b.loop.Context()
}

// closureInvoker binds a closure to its invoke export.
type closureInvoker struct {
	bridge *Bridge
	export string
}

func (c closureInvoker) Invoke(ctx context.Context, a, bw uint32, args []any) (any, error) {
	return c.bridge.Invoke(ctx, c.export, a, bw, args)
}

// NewClosure wraps the module closure (a, bw) described by spec.
func (b *Bridge) NewClosure(name string, spec ClosureSpec, a, bw uint32) *closure.Closure {
	b.metrics.ClosureCreated()
	m := b.metrics
	return closure.New(a, bw, spec.Dtor,
		closureInvoker{bridge: b, export: spec.Invoke}, b, b.loop,
		closure.WithName(name),
		closure.WithLogger(b.logger),
		closure.WithOnDestroy(m.DestructorRan),
	)
}
