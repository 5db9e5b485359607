package value

// Globals are the four global-object flavors a module may probe.
// A nil field means the flavor does not exist in this host.
type Globals struct {
	GlobalThis any
	Window     any
	Self       any
	Global     any
}

// Probe returns the first defined flavor in the order GlobalThis, Window,
// Self, Global, or nil (null) when none exist.
func (g Globals) Probe() any {
	for _, v := range []any{g.GlobalThis, g.Window, g.Self, g.Global} {
		if !IsNullish(v) {
			return v
		}
	}
	return nil
}

// DefaultGlobals returns a host exposing a single plain object as globalThis.
func DefaultGlobals() Globals {
	return Globals{GlobalThis: NewObject("")}
}
