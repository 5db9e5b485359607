package externref

// Handle is an index into the reference table as seen by the module.
type Handle = uint32

// Sentinel handles. These slots are populated by Init and never change.
const (
	UndefinedHandle Handle = 0
	NullHandle      Handle = 1
	TrueHandle      Handle = 2
	FalseHandle     Handle = 3
)

// GrowthOffset is the first allocatable slot.
const GrowthOffset Handle = 4

// DefaultGrowth is the number of slots added when the free list is empty.
const DefaultGrowth = 4

// EventType identifies a table lifecycle event.
type EventType uint8

const (
	EventAllocated EventType = iota
	EventFreed
	EventGrown
)

// Event describes a table lifecycle change.
type Event struct {
	Value  any
	Handle Handle
	Type   EventType
	Live   int
}

// Observer receives table lifecycle events.
type Observer interface {
	OnTableEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnTableEvent calls f.
func (f ObserverFunc) OnTableEvent(e Event) { f(e) }
