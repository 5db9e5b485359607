package value

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// DebugString renders v for diagnostics.
func DebugString(v any) string {
	switch Classify(v) {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.(bool))
	case KindNumber:
		n, _ := ToNumber(v)
		return FormatNumber(n)
	case KindString:
		return `"` + v.(string) + `"`
	case KindSymbol:
		s := v.(*Symbol)
		if !s.HasDesc {
			return "Symbol"
		}
		return "Symbol(" + s.Description + ")"
	case KindFunction:
		if n, ok := v.(Named); ok && n.Name() != "" {
			return "Function(" + n.Name() + ")"
		}
		return "Function"
	case KindArray:
		arr := v.([]any)
		parts := make([]string, len(arr))
		for i, el := range arr {
			parts[i] = DebugString(el)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindError:
		e := v.(*Error)
		return e.Name + ": " + e.Message + "\n" + e.Stack
	case KindObject:
		o := v.(*Object)
		if o.Class() != "Object" {
			return o.Class()
		}
		data, err := MarshalJSON(o)
		if err != nil {
			return "Object"
		}
		return "Object(" + string(data) + ")"
	}
	if t, ok := v.(Tagged); ok {
		return t.TypeTag()
	}
	return fmt.Sprintf("%T", v)
}

// FormatNumber renders a float the way a host number prints.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		// Go pads the exponent to two digits.
		s = strings.Replace(s, "e-0", "e-", 1)
		return strings.Replace(s, "e+0", "e+", 1)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// errCycle reports a self-referencing structure.
var errCycle = fmt.Errorf("value: cyclic structure")

// MarshalJSON serializes a plain value. Objects keep property order,
// undefined and function properties are skipped, and unrepresentable array
// elements become null. Cycles are an error.
func MarshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v, nil); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v any, path []any) error {
	switch Classify(v) {
	case KindNull:
		buf.WriteString("null")
		return nil
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.(bool)))
		return nil
	case KindNumber:
		n, _ := ToNumber(v)
		if math.IsNaN(n) || math.IsInf(n, 0) {
			buf.WriteString("null")
			return nil
		}
		buf.WriteString(FormatNumber(n))
		return nil
	case KindString:
		data, err := sonic.Marshal(v.(string))
		if err != nil {
			return err
		}
		buf.Write(data)
		return nil
	case KindError:
		buf.WriteString("{}")
		return nil
	case KindArray:
		arr := v.([]any)
		if onPath(path, v) {
			return errCycle
		}
		path = append(path, v)
		buf.WriteByte('[')
		for i, el := range arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if !jsonable(el) {
				buf.WriteString("null")
				continue
			}
			if err := writeJSON(buf, el, path); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case KindObject:
		o := v.(*Object)
		if onPath(path, o) {
			return errCycle
		}
		path = append(path, o)
		buf.WriteByte('{')
		first := true
		for _, k := range o.keys {
			pv := o.props[k]
			if !jsonable(pv) {
				continue
			}
			if !first {
				buf.WriteByte(',')
			}
			first = false
			key, err := sonic.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeJSON(buf, pv, path); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	}
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}

func jsonable(v any) bool {
	switch Classify(v) {
	case KindUndefined, KindFunction, KindSymbol:
		return false
	}
	return true
}

func onPath(path []any, v any) bool {
	for _, p := range path {
		if sameRef(p, v) {
			return true
		}
	}
	return false
}

func sameRef(a, b any) bool {
	switch x := a.(type) {
	case *Object:
		y, ok := b.(*Object)
		return ok && x == y
	case []any:
		y, ok := b.([]any)
		return ok && len(x) > 0 && len(y) > 0 && &x[0] == &y[0]
	}
	return false
}
