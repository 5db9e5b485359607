package value

// Kind is the closed set of renderable value shapes.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindSymbol
	KindFunction
	KindArray
	KindObject
	KindError
	KindOpaque
)

var kindNames = [...]string{
	KindUndefined: "undefined",
	KindNull:      "null",
	KindBool:      "boolean",
	KindNumber:    "number",
	KindString:    "string",
	KindSymbol:    "symbol",
	KindFunction:  "function",
	KindArray:     "array",
	KindObject:    "object",
	KindError:     "error",
	KindOpaque:    "opaque",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Classify returns the shape of v. Probes run primitive, array, callable,
// error, then plain object, falling back to opaque.
func Classify(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case undefinedValue:
		return KindUndefined
	case bool:
		return KindBool
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindNumber
	case string:
		return KindString
	case *Symbol:
		return KindSymbol
	case []any:
		return KindArray
	case Function:
		return KindFunction
	case *Error:
		return KindError
	case *Object:
		return KindObject
	}
	return KindOpaque
}

// IsFunction reports whether v is callable.
func IsFunction(v any) bool {
	return Classify(v) == KindFunction
}

// ToNumber converts any Go numeric to float64.
func ToNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
