package bindgen

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-bridge/closure"
	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/externref"
	"github.com/wippyai/wasm-bridge/promise"
	"github.com/wippyai/wasm-bridge/transcoder"
	"github.com/wippyai/wasm-bridge/value"
)

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
	f64 = api.ValueTypeF64
)

// get returns the value behind a handle or aborts the import.
func (b *Bridge) get(h uint64) any {
	v, err := b.table.Get(uint32(h))
	if err != nil {
		panic(err)
	}
	return v
}

// put returns a handle for v as an i32 result.
func (b *Bridge) put(v any) uint64 {
	return api.EncodeU32(b.Handle(v))
}

// str decodes a module string or aborts the import.
func (b *Bridge) str(ptr, n uint64) string {
	if b.view == nil {
		panic(errors.Detached("string decode"))
	}
	s, err := transcoder.Decode(b.view, uint32(ptr), uint32(n))
	if err != nil {
		panic(err)
	}
	return s
}

// writeString encodes s into module memory and stores (ptr, len) at retptr.
func (b *Bridge) writeString(ctx context.Context, retptr uint32, s string) {
	if b.guest == nil {
		panic(errors.Detached("string encode"))
	}
	b.checkOut(retptr, 8)
	ptr, err := b.enc.Encode(ctx, b.view, s, b.guest.Allocator(), b.guest.Reallocator())
	if err != nil {
		panic(err)
	}
	b.writePair(retptr, ptr, b.enc.VectorLen())
}

func (b *Bridge) writePair(retptr, ptr, n uint32) {
	b.checkOut(retptr, 8)
	dv := b.view.DataView()
	if err := dv.SetInt32(retptr+4, int32(n)); err != nil {
		panic(err)
	}
	if err := dv.SetInt32(retptr, int32(ptr)); err != nil {
		panic(err)
	}
}

// checkOut aborts the import unless the size bytes at retptr are writable.
// Field offsets past retptr would otherwise wrap around to low memory.
func (b *Bridge) checkOut(retptr, size uint32) {
	if b.view == nil {
		panic(errors.Detached("return slot"))
	}
	if err := b.view.Check(retptr, size); err != nil {
		panic(err)
	}
}

func boolResult(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

func callFunction(ctx context.Context, callee, this any, args ...any) (any, error) {
	fn, ok := callee.(value.Function)
	if !ok {
		return nil, &value.Error{Name: "TypeError", Message: value.DebugString(callee) + " is not a function"}
	}
	return fn.Call(ctx, this, args...)
}

func (b *Bridge) importCall0(ctx context.Context, _ api.Module, stack []uint64) {
	b.guard("__wbg_call", stack, func() (uint64, error) {
		res, err := callFunction(ctx, b.get(stack[0]), b.get(stack[1]))
		if err != nil {
			return 0, err
		}
		return b.put(res), nil
	})
}

func (b *Bridge) importCall1(ctx context.Context, _ api.Module, stack []uint64) {
	b.guard("__wbg_call", stack, func() (uint64, error) {
		res, err := callFunction(ctx, b.get(stack[0]), b.get(stack[1]), b.get(stack[2]))
		if err != nil {
			return 0, err
		}
		return b.put(res), nil
	})
}

func (b *Bridge) importNewNoArgs(_ context.Context, _ api.Module, stack []uint64) {
	src := b.str(stack[0], stack[1])
	b.guard("__wbg_newnoargs", stack, func() (uint64, error) {
		fn, err := b.scripts.CompileFunction(src)
		if err != nil {
			return 0, err
		}
		return b.put(fn), nil
	})
}

// importNewPromise builds a promise whose executor is a module closure lent
// for the duration of the constructor.
func (b *Bridge) importNewPromise(ctx context.Context, _ api.Module, stack []uint64) {
	env := closure.NewOnce(api.DecodeU32(stack[0]), api.DecodeU32(stack[1]))
	defer env.Clear()

	p := promise.New(b.loop, func(resolve, reject value.Function) error {
		return env.Call(func(a, bw uint32) error {
			if b.executor == "" {
				return errors.NotFound(errors.PhaseBridge, "promise executor", "")
			}
			_, err := b.Invoke(ctx, b.executor, a, bw, []any{resolve, reject})
			return err
		})
	})
	stack[0] = b.put(p)
}

func (b *Bridge) importResolve(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = b.put(promise.Resolve(b.loop, b.get(stack[0])))
}

func (b *Bridge) then(stack []uint64, onFulfilled, onRejected any) {
	b.guard("__wbg_then", stack, func() (uint64, error) {
		p, ok := b.get(stack[0]).(*promise.Promise)
		if !ok {
			return 0, &value.Error{Name: "TypeError", Message: "then called on a non-promise"}
		}
		f, _ := onFulfilled.(value.Function)
		r, _ := onRejected.(value.Function)
		return b.put(p.Then(f, r)), nil
	})
}

func (b *Bridge) importThen1(_ context.Context, _ api.Module, stack []uint64) {
	b.then(stack, b.get(stack[1]), nil)
}

func (b *Bridge) importThen2(_ context.Context, _ api.Module, stack []uint64) {
	b.then(stack, b.get(stack[1]), b.get(stack[2]))
}

// importQueueMicrotaskGet reads the queueMicrotask property of an object.
func (b *Bridge) importQueueMicrotaskGet(_ context.Context, _ api.Module, stack []uint64) {
	var prop any = value.Undefined
	if obj, ok := b.get(stack[0]).(*value.Object); ok {
		prop = obj.Get("queueMicrotask")
	}
	stack[0] = b.put(prop)
}

func (b *Bridge) importQueueMicrotask(_ context.Context, _ api.Module, stack []uint64) {
	b.guard("__wbg_queueMicrotask", stack, func() (uint64, error) {
		fn, ok := b.get(stack[0]).(value.Function)
		if !ok {
			return 0, &value.Error{Name: "TypeError", Message: "queueMicrotask argument is not a function"}
		}
		b.queueMicrotask(fn)
		return 0, nil
	})
}

// globalAccessor returns a handle to one global flavor, or 0 when absent.
func (b *Bridge) globalAccessor(pick func(value.Globals) any) api.GoModuleFunc {
	return func(_ context.Context, _ api.Module, stack []uint64) {
		v := pick(b.globals)
		if value.IsNullish(v) {
			stack[0] = 0
			return
		}
		stack[0] = b.put(v)
	}
}

func (b *Bridge) importLog(_ context.Context, _ api.Module, stack []uint64) {
	msg := b.str(stack[0], stack[1])
	b.guard("__wbg_log", stack, func() (uint64, error) {
		b.services.Log(msg)
		return 0, nil
	})
}

// importSleep forwards the delay as an unsigned 64-bit millisecond count.
func (b *Bridge) importSleep(_ context.Context, _ api.Module, stack []uint64) {
	ms := stack[0]
	b.guard("__wbg_sleep", stack, func() (uint64, error) {
		return b.put(b.services.Sleep(ms)), nil
	})
}

func (b *Bridge) importDebugString(ctx context.Context, _ api.Module, stack []uint64) {
	retptr := api.DecodeU32(stack[0])
	b.writeString(ctx, retptr, value.DebugString(b.get(stack[1])))
}

func (b *Bridge) importInitTable(context.Context, api.Module, []uint64) {
	b.table.Init()
}

func (b *Bridge) importIsFunction(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = boolResult(value.IsFunction(b.get(stack[0])))
}

func (b *Bridge) importIsUndefined(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = boolResult(value.IsUndefined(b.get(stack[0])))
}

func (b *Bridge) importThrow(_ context.Context, _ api.Module, stack []uint64) {
	panic(errors.Fatal(b.str(stack[0], stack[1])))
}

// importCbDrop gives up the host reference to a closure on behalf of the module.
func (b *Bridge) importCbDrop(_ context.Context, _ api.Module, stack []uint64) {
	v := b.get(stack[0])
	c, ok := v.(*closure.Closure)
	if !ok {
		panic(errors.TypeMismatch(errors.PhaseHost, "closure", v))
	}
	last := c.Drop()
	if last {
		b.metrics.DestructorRan()
	}
	stack[0] = boolResult(last)
}

func (b *Bridge) closureWrapper(name string, spec ClosureSpec) api.GoModuleFunc {
	return func(_ context.Context, _ api.Module, stack []uint64) {
		c := b.NewClosure(name, spec, api.DecodeU32(stack[0]), api.DecodeU32(stack[1]))
		stack[0] = b.put(c)
	}
}

// importDropRef releases a handle. Sentinel handles are ignored.
func (b *Bridge) importDropRef(_ context.Context, _ api.Module, stack []uint64) {
	h := api.DecodeU32(stack[0])
	if h < externref.GrowthOffset {
		return
	}
	if err := b.table.Free(h); err != nil {
		panic(err)
	}
}

func (b *Bridge) importCloneRef(_ context.Context, _ api.Module, stack []uint64) {
	h := api.DecodeU32(stack[0])
	if h < externref.GrowthOffset {
		stack[0] = api.EncodeU32(h)
		return
	}
	c, err := b.table.Clone(h)
	if err != nil {
		panic(err)
	}
	stack[0] = api.EncodeU32(c)
}

func (b *Bridge) importStringNew(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = b.put(b.str(stack[0], stack[1]))
}

// importStringGet writes (ptr, len) of a string value, or (0, 0) otherwise.
func (b *Bridge) importStringGet(ctx context.Context, _ api.Module, stack []uint64) {
	retptr := api.DecodeU32(stack[0])
	s, ok := b.get(stack[1]).(string)
	if !ok {
		b.writePair(retptr, 0, 0)
		return
	}
	b.writeString(ctx, retptr, s)
}

func (b *Bridge) importNumberNew(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = b.put(api.DecodeF64(stack[0]))
}

// importNumberGet writes a presence flag at retptr and the number at retptr+8.
func (b *Bridge) importNumberGet(_ context.Context, _ api.Module, stack []uint64) {
	retptr := api.DecodeU32(stack[0])
	n, ok := value.ToNumber(b.get(stack[1]))
	b.checkOut(retptr, 16)
	dv := b.view.DataView()
	if !ok {
		n = 0
	}
	if err := dv.SetFloat64(retptr+8, n); err != nil {
		panic(err)
	}
	if err := dv.SetInt32(retptr, int32(boolResult(ok))); err != nil {
		panic(err)
	}
}

func (b *Bridge) importErrorNew(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = b.put(&value.Error{Name: "Error", Message: b.str(stack[0], stack[1])})
}

// importExnTake moves the pending exception to the module, or returns 0.
func (b *Bridge) importExnTake(_ context.Context, _ api.Module, stack []uint64) {
	h, ok := b.exn.Take()
	if !ok {
		stack[0] = 0
		return
	}
	stack[0] = api.EncodeU32(h)
}
