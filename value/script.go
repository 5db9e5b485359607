package value

import (
	"context"
	stderrors "errors"
	"strconv"

	"github.com/dop251/goja"
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
)

// ScriptEngine compiles function bodies from source. Compiled functions
// called with a null or undefined receiver see the host global as this.
// An engine and its functions must be used from a single goroutine.
type ScriptEngine struct {
	vm     *goja.Runtime
	global any
	ctx    context.Context
}

// NewScriptEngine creates an engine whose sloppy-mode receiver is global.
func NewScriptEngine(global any) *ScriptEngine {
	vm := goja.New()
	vm.SetMaxCallStackSize(1024)
	for _, name := range []string{"require", "process", "module", "exports"} {
		_ = vm.Set(name, goja.Undefined())
	}
	return &ScriptEngine{vm: vm, global: global, ctx: context.Background()}
}

// SetGlobal replaces the receiver substituted for null/undefined this.
func (e *ScriptEngine) SetGlobal(global any) {
	e.global = global
}

// CompileFunction builds a function whose body is src, as new Function(src)
// would. A body that does not form a complete statement list is a SyntaxError.
func (e *ScriptEngine) CompileFunction(src string) (*ScriptFunction, error) {
	wrapped := "(function anonymous(\n) {\n" + src + "\n})"
	prg, err := goja.Parse("anonymous", wrapped, parser.WithDisableSourceMaps)
	if err != nil {
		return nil, syntaxError(err.Error())
	}
	if !wholeFunction(prg, wrapped) {
		return nil, syntaxError("unexpected token in function body")
	}
	compiled, err := goja.CompileAST(prg, false)
	if err != nil {
		return nil, syntaxError(err.Error())
	}
	v, err := e.vm.RunProgram(compiled)
	if err != nil {
		return nil, e.convertError(err)
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, NewError("source did not produce a function")
	}
	return &ScriptFunction{engine: e, fn: fn, self: v, name: "anonymous"}, nil
}

// wholeFunction reports whether prg is exactly the function literal wrapped
// around the body, with the body unable to close it early.
func wholeFunction(prg *ast.Program, wrapped string) bool {
	if len(prg.Body) != 1 {
		return false
	}
	stmt, ok := prg.Body[0].(*ast.ExpressionStatement)
	if !ok {
		return false
	}
	lit, ok := stmt.Expression.(*ast.FunctionLiteral)
	return ok && lit.Source == wrapped[1:len(wrapped)-1]
}

func syntaxError(msg string) error {
	return Throw(&Error{Name: "SyntaxError", Message: msg})
}

// ScriptFunction is a compiled script function.
type ScriptFunction struct {
	engine *ScriptEngine
	fn     goja.Callable
	self   goja.Value
	name   string
}

// Name returns the function name.
func (f *ScriptFunction) Name() string { return f.name }

// Call runs the function.
func (f *ScriptFunction) Call(ctx context.Context, this any, args ...any) (any, error) {
	e := f.engine
	prev := e.ctx
	e.ctx = ctx
	defer func() { e.ctx = prev }()

	if IsNullish(this) {
		this = e.global
	}
	gargs := make([]goja.Value, len(args))
	for i, a := range args {
		gargs[i] = e.toScript(a)
	}
	res, err := f.fn(e.toScript(this), gargs...)
	if err != nil {
		return nil, e.convertError(err)
	}
	return e.fromScript(res), nil
}

func (e *ScriptEngine) convertError(err error) error {
	var ex *goja.Exception
	if stderrors.As(err, &ex) {
		thrown := e.fromScript(ex.Value())
		if he, ok := thrown.(*Error); ok && he.Stack == "" {
			he.Stack = ex.String()
		}
		return Throw(thrown)
	}
	return err
}

// objectAdapter exposes an *Object to scripts without copying it, so the
// same *Object comes back out.
type objectAdapter struct {
	engine *ScriptEngine
	obj    *Object
}

func (a *objectAdapter) Get(key string) goja.Value {
	v, ok := a.obj.props[key]
	if !ok {
		return nil
	}
	return a.engine.toScript(v)
}

func (a *objectAdapter) Set(key string, val goja.Value) bool {
	a.obj.Set(key, a.engine.fromScript(val))
	return true
}

func (a *objectAdapter) Has(key string) bool {
	_, ok := a.obj.props[key]
	return ok
}

func (a *objectAdapter) Delete(key string) bool {
	if _, ok := a.obj.props[key]; !ok {
		return true
	}
	delete(a.obj.props, key)
	for i, k := range a.obj.keys {
		if k == key {
			a.obj.keys = append(a.obj.keys[:i], a.obj.keys[i+1:]...)
			break
		}
	}
	return true
}

func (a *objectAdapter) Keys() []string {
	return a.obj.keys
}

func (e *ScriptEngine) toScript(v any) goja.Value {
	switch t := v.(type) {
	case nil:
		return goja.Null()
	case undefinedValue:
		return goja.Undefined()
	case *ScriptFunction:
		if t.engine == e {
			return t.self
		}
	case *Object:
		return e.vm.NewDynamicObject(&objectAdapter{engine: e, obj: t})
	case *Error:
		obj := e.vm.NewObject()
		_ = obj.Set("name", t.Name)
		_ = obj.Set("message", t.Message)
		_ = obj.Set("stack", t.Stack)
		return obj
	case []any:
		items := make([]any, len(t))
		for i, el := range t {
			items[i] = e.toScript(el)
		}
		return e.vm.NewArray(items...)
	}
	if n, ok := ToNumber(v); ok {
		return e.vm.ToValue(n)
	}
	if fn, ok := v.(Function); ok {
		return e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			args := make([]any, len(call.Arguments))
			for i, a := range call.Arguments {
				args[i] = e.fromScript(a)
			}
			res, err := fn.Call(e.ctx, e.fromScript(call.This), args...)
			if err != nil {
				panic(e.toScript(Thrown(err)))
			}
			return e.toScript(res)
		})
	}
	return e.vm.ToValue(v)
}

func (e *ScriptEngine) fromScript(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) {
		return Undefined
	}
	if goja.IsNull(v) {
		return nil
	}
	if fn, ok := goja.AssertFunction(v); ok {
		sf := &ScriptFunction{engine: e, fn: fn, self: v}
		if name := v.ToObject(e.vm).Get("name"); name != nil {
			sf.name = name.String()
		}
		return sf
	}

	exported := v.Export()
	switch t := exported.(type) {
	case *objectAdapter:
		return t.obj
	case int64:
		return float64(t)
	case float64, bool, string:
		return t
	}

	obj, ok := v.(*goja.Object)
	if !ok {
		return exported
	}
	switch obj.ClassName() {
	case "Array":
		n := int(obj.Get("length").ToInteger())
		out := make([]any, n)
		for i := range n {
			out[i] = e.fromScript(obj.Get(strconv.Itoa(i)))
		}
		return out
	case "Error":
		he := &Error{Name: obj.Get("name").String(), Message: obj.Get("message").String()}
		if s := obj.Get("stack"); s != nil && !goja.IsUndefined(s) {
			he.Stack = s.String()
		}
		return he
	case "Object":
		if _, plain := exported.(map[string]any); plain {
			out := NewObject("")
			for _, k := range obj.Keys() {
				out.Set(k, e.fromScript(obj.Get(k)))
			}
			return out
		}
	}
	return exported
}
