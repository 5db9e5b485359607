package value

import (
	"context"
	stderrors "errors"
	"math"
	"testing"
)

type hostThing struct{}

type taggedThing struct{}

func (taggedThing) TypeTag() string { return "Promise" }

func TestClassify(t *testing.T) {
	fn := Func(func(context.Context, any, ...any) (any, error) { return nil, nil })
	tests := []struct {
		in   any
		want Kind
	}{
		{Undefined, KindUndefined},
		{nil, KindNull},
		{true, KindBool},
		{1.5, KindNumber},
		{int32(3), KindNumber},
		{"s", KindString},
		{NewSymbol("x"), KindSymbol},
		{fn, KindFunction},
		{[]any{1.0}, KindArray},
		{NewObject(""), KindObject},
		{NewError("boom"), KindError},
		{&hostThing{}, KindOpaque},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			if got := Classify(tt.in); got != tt.want {
				t.Errorf("Classify(%#v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDebugString(t *testing.T) {
	cyclic := NewObject("")
	cyclic.Set("self", cyclic)

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"undefined", Undefined, "undefined"},
		{"null", nil, "null"},
		{"bool", false, "false"},
		{"integer", 42.0, "42"},
		{"fraction", 1.5, "1.5"},
		{"nan", math.NaN(), "NaN"},
		{"negative zero", math.Copysign(0, -1), "0"},
		{"large", 1e21, "1e+21"},
		{"small", 1e-7, "1e-7"},
		{"string", "hi", `"hi"`},
		{"symbol", NewSymbol("tag"), "Symbol(tag)"},
		{"anonymous symbol", &Symbol{}, "Symbol"},
		{"function", Func(nil), "Function"},
		{"named function", &NamedFunc{FuncName: "resolve"}, "Function(resolve)"},
		{"array", []any{1.0, "a", []any{true}}, `[1, "a", [true]]`},
		{"object", NewObject("").Set("a", 1.0).Set("b", "x").Set("skip", Undefined), `Object({"a":1,"b":"x"})`},
		{"object with array", NewObject("").Set("xs", []any{Undefined, 2.0}), `Object({"xs":[null,2]})`},
		{"cyclic object", cyclic, "Object"},
		{"builtin class", NewObject("Map"), "Map"},
		{"error", &Error{Name: "TypeError", Message: "bad", Stack: "at x"}, "TypeError: bad\nat x"},
		{"tagged", taggedThing{}, "Promise"},
		{"opaque", &hostThing{}, "*value.hostThing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DebugString(tt.in); got != tt.want {
				t.Errorf("DebugString = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestObject_Order(t *testing.T) {
	o := NewObject("")
	o.Set("z", 1.0).Set("a", 2.0).Set("z", 3.0)
	keys := o.Keys()
	if len(keys) != 2 || keys[0] != "z" || keys[1] != "a" {
		t.Errorf("Keys = %v", keys)
	}
	if o.Get("z") != 3.0 {
		t.Errorf("z = %v", o.Get("z"))
	}
	if !IsUndefined(o.Get("missing")) {
		t.Error("missing property should be undefined")
	}
}

func TestGlobals_Probe(t *testing.T) {
	self := NewObject("")
	tests := []struct {
		name string
		g    Globals
		want any
	}{
		{"none", Globals{}, nil},
		{"self only", Globals{Self: self}, self},
		{"order", Globals{Window: "w", Self: self, Global: "g"}, "w"},
		{"undefined skipped", Globals{GlobalThis: Undefined, Global: "g"}, "g"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.g.Probe(); got != tt.want {
				t.Errorf("Probe = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestThrown(t *testing.T) {
	if got := Thrown(Throw(7.0)); got != 7.0 {
		t.Errorf("Thrown(Throw(7)) = %v", got)
	}
	he := NewError("x")
	if got := Thrown(Throw(he)); got != he {
		t.Errorf("host error not preserved: %v", got)
	}
	got, ok := Thrown(stderrors.New("plain")).(*Error)
	if !ok || got.Message != "plain" || got.Name != "Error" {
		t.Errorf("plain error converted to %#v", got)
	}
}

func TestScriptEngine(t *testing.T) {
	ctx := context.Background()
	global := NewObject("")
	e := NewScriptEngine(global)

	t.Run("return this yields host global", func(t *testing.T) {
		fn, err := e.CompileFunction("return this")
		if err != nil {
			t.Fatal(err)
		}
		got, err := fn.Call(ctx, Undefined)
		if err != nil {
			t.Fatal(err)
		}
		if got != global {
			t.Errorf("this = %v, want host global", got)
		}
	})

	t.Run("arguments and numbers", func(t *testing.T) {
		fn, err := e.CompileFunction("return arguments[0] + arguments[1]")
		if err != nil {
			t.Fatal(err)
		}
		got, err := fn.Call(ctx, nil, 2.0, 3.0)
		if err != nil || got != 5.0 {
			t.Errorf("sum = %v, %v", got, err)
		}
	})

	t.Run("object properties are shared", func(t *testing.T) {
		fn, err := e.CompileFunction("this.seen = true; return [1, 'a']")
		if err != nil {
			t.Fatal(err)
		}
		got, err := fn.Call(ctx, nil)
		if err != nil {
			t.Fatal(err)
		}
		if global.Get("seen") != true {
			t.Error("property write did not reach host object")
		}
		if DebugString(got) != `[1, "a"]` {
			t.Errorf("result = %s", DebugString(got))
		}
	})

	t.Run("throw becomes host error", func(t *testing.T) {
		fn, err := e.CompileFunction("throw new TypeError('nope')")
		if err != nil {
			t.Fatal(err)
		}
		_, err = fn.Call(ctx, nil)
		he := AsError(err)
		if he == nil || he.Name != "TypeError" || he.Message != "nope" {
			t.Errorf("err = %#v", err)
		}
	})

	t.Run("calls host functions", func(t *testing.T) {
		fn, err := e.CompileFunction("return arguments[0]('x')")
		if err != nil {
			t.Fatal(err)
		}
		echo := Func(func(_ context.Context, _ any, args ...any) (any, error) {
			return Arg(args, 0).(string) + "!", nil
		})
		got, err := fn.Call(ctx, nil, echo)
		if err != nil || got != "x!" {
			t.Errorf("got %v, %v", got, err)
		}
	})

	t.Run("syntax error", func(t *testing.T) {
		if _, err := e.CompileFunction("return )"); err == nil {
			t.Error("expected compile error")
		}
	})

	t.Run("body closing the function early", func(t *testing.T) {
		for _, src := range []string{
			"return 1})(), (function(){return 2",
			"}); (function(){",
			"} || function(){",
		} {
			fn, err := e.CompileFunction(src)
			if err == nil {
				t.Errorf("CompileFunction(%q) accepted, produced %s", src, DebugString(fn))
				continue
			}
			thrown, ok := Thrown(err).(*Error)
			if !ok || thrown.Name != "SyntaxError" {
				t.Errorf("CompileFunction(%q) = %v, want SyntaxError", src, err)
			}
		}
	})

	t.Run("name", func(t *testing.T) {
		fn, _ := e.CompileFunction("")
		if DebugString(fn) != "Function(anonymous)" {
			t.Errorf("DebugString = %s", DebugString(fn))
		}
	})
}
