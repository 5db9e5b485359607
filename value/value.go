package value

import (
	"context"
	stderrors "errors"
	"fmt"
)

type undefinedValue struct{}

func (undefinedValue) String() string { return "undefined" }

// Undefined is the undefined value. Go nil is null.
var Undefined = undefinedValue{}

// IsUndefined reports whether v is Undefined.
func IsUndefined(v any) bool {
	return v == Undefined
}

// IsNullish reports whether v is null or undefined.
func IsNullish(v any) bool {
	return v == nil || v == Undefined
}

// Symbol is a unique host symbol.
type Symbol struct {
	Description string
	HasDesc     bool
}

// NewSymbol creates a symbol with a description.
func NewSymbol(desc string) *Symbol {
	return &Symbol{Description: desc, HasDesc: true}
}

// Function is a callable host value. A returned error is a host exception.
type Function interface {
	Call(ctx context.Context, this any, args ...any) (any, error)
}

// Named is implemented by functions that carry a name.
type Named interface {
	Name() string
}

// Tagged is implemented by opaque host objects that render as a type tag.
type Tagged interface {
	TypeTag() string
}

// Func adapts a Go function to Function.
type Func func(ctx context.Context, this any, args ...any) (any, error)

// Call invokes f.
func (f Func) Call(ctx context.Context, this any, args ...any) (any, error) {
	return f(ctx, this, args...)
}

// NamedFunc is a Func with a name for diagnostics.
type NamedFunc struct {
	Fn       Func
	FuncName string
}

// Call invokes the wrapped function.
func (f *NamedFunc) Call(ctx context.Context, this any, args ...any) (any, error) {
	return f.Fn(ctx, this, args...)
}

// Name returns the function name.
func (f *NamedFunc) Name() string { return f.FuncName }

// Arg returns args[i] or Undefined when absent.
func Arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return Undefined
}

// Object is a plain data object with ordered properties.
type Object struct {
	props map[string]any
	class string
	keys  []string
}

// NewObject creates an empty plain object. class names a built-in
// (for example "Map"); empty means a plain Object.
func NewObject(class string) *Object {
	return &Object{class: class, props: make(map[string]any)}
}

// Class returns the built-in class name, "Object" for plain objects.
func (o *Object) Class() string {
	if o.class == "" {
		return "Object"
	}
	return o.class
}

// Get returns a property or Undefined.
func (o *Object) Get(key string) any {
	if v, ok := o.props[key]; ok {
		return v
	}
	return Undefined
}

// Set assigns a property, keeping first-insertion order.
func (o *Object) Set(key string, v any) *Object {
	if _, ok := o.props[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.props[key] = v
	return o
}

// Keys returns property names in insertion order.
func (o *Object) Keys() []string {
	return o.keys
}

// Error is a host error value.
type Error struct {
	Name    string
	Message string
	Stack   string
}

// NewError creates an Error named "Error".
func NewError(format string, args ...any) *Error {
	return &Error{Name: "Error", Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Name
	}
	return e.Name + ": " + e.Message
}

// ThrownError carries an arbitrary thrown host value as a Go error.
type ThrownError struct {
	Value any
}

// Throw returns v as an error. Errors and *Error pass through.
func Throw(v any) error {
	switch t := v.(type) {
	case *Error:
		return t
	case error:
		return t
	}
	return &ThrownError{Value: v}
}

func (e *ThrownError) Error() string {
	return "uncaught " + DebugString(e.Value)
}

// Thrown recovers the host value carried by err: the thrown value for
// ThrownError, the *Error itself, or a new *Error for any other Go error.
func Thrown(err error) any {
	var te *ThrownError
	if stderrors.As(err, &te) {
		return te.Value
	}
	return AsError(err)
}

// AsError converts err into a host error, reusing a wrapped *Error.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var he *Error
	if stderrors.As(err, &he) {
		return he
	}
	return &Error{Name: "Error", Message: err.Error()}
}
