package externref

import (
	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/value"
)

type slot struct {
	value any
	used  bool
}

// Table maps handles to host values. It is owned by the goroutine driving
// the module and is not safe for concurrent use.
type Table struct {
	slots     []slot
	free      []Handle
	observers []Observer
	growth    int
	live      int
}

// Option configures a Table.
type Option func(*Table)

// WithGrowth sets how many slots are added when the table is full.
func WithGrowth(n int) Option {
	return func(t *Table) {
		if n > 0 {
			t.growth = n
		}
	}
}

// WithObserver subscribes o to lifecycle events.
func WithObserver(o Observer) Option {
	return func(t *Table) {
		t.observers = append(t.observers, o)
	}
}

// New creates an empty table. Call Init before handing handles to a module.
func New(opts ...Option) *Table {
	t := &Table{growth: DefaultGrowth}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Init installs the sentinel slots. Repeated calls leave the table unchanged.
func (t *Table) Init() {
	if len(t.slots) >= int(GrowthOffset) {
		return
	}
	t.slots = append(t.slots[:0],
		slot{value: value.Undefined, used: true},
		slot{value: nil, used: true},
		slot{value: true, used: true},
		slot{value: false, used: true},
	)
}

// Alloc stores v in a free slot and returns its handle.
func (t *Table) Alloc(v any) Handle {
	t.Init()
	if len(t.free) == 0 {
		t.grow()
	}
	h := t.free[len(t.free)-1]
	t.free = t.free[:len(t.free)-1]
	t.slots[h] = slot{value: v, used: true}
	t.live++
	t.notify(Event{Type: EventAllocated, Handle: h, Value: v, Live: t.live})
	return h
}

// grow appends slots and pushes them so the lowest index is popped first.
func (t *Table) grow() {
	start := len(t.slots)
	for range t.growth {
		t.slots = append(t.slots, slot{})
	}
	for i := len(t.slots) - 1; i >= start; i-- {
		t.free = append(t.free, Handle(i))
	}
	t.notify(Event{Type: EventGrown, Handle: Handle(len(t.slots)), Live: t.live})
}

// Get returns the value in slot h.
func (t *Table) Get(h Handle) (any, error) {
	t.Init()
	if int(h) >= len(t.slots) {
		return nil, errors.InvalidHandle(h, "out of range")
	}
	s := t.slots[h]
	if !s.used {
		return nil, errors.InvalidHandle(h, "slot is free")
	}
	return s.value, nil
}

// Set overwrites an allocated slot.
func (t *Table) Set(h Handle, v any) error {
	t.Init()
	if h < GrowthOffset {
		return errors.InvalidHandle(h, "sentinel slot is read-only")
	}
	if int(h) >= len(t.slots) || !t.slots[h].used {
		return errors.InvalidHandle(h, "slot is not allocated")
	}
	t.slots[h].value = v
	return nil
}

// Free returns slot h to the free list.
func (t *Table) Free(h Handle) error {
	t.Init()
	if h < GrowthOffset {
		return errors.InvalidHandle(h, "cannot free a sentinel slot")
	}
	if int(h) >= len(t.slots) {
		return errors.InvalidHandle(h, "out of range")
	}
	s := t.slots[h]
	if !s.used {
		return errors.InvalidHandle(h, "double free")
	}
	t.slots[h] = slot{}
	t.free = append(t.free, h)
	t.live--
	t.notify(Event{Type: EventFreed, Handle: h, Value: s.value, Live: t.live})
	return nil
}

// Clone allocates a second handle to the value in slot h.
func (t *Table) Clone(h Handle) (Handle, error) {
	v, err := t.Get(h)
	if err != nil {
		return 0, err
	}
	return t.Alloc(v), nil
}

// Take returns the value in slot h and frees it.
func (t *Table) Take(h Handle) (any, error) {
	v, err := t.Get(h)
	if err != nil {
		return nil, err
	}
	if h >= GrowthOffset {
		if err := t.Free(h); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Len returns the number of allocated non-sentinel slots.
func (t *Table) Len() int {
	return t.live
}

// Cap returns the table size including sentinels and free slots.
func (t *Table) Cap() int {
	return len(t.slots)
}

// Reset drops every value and reinstalls the sentinels.
func (t *Table) Reset() {
	t.slots = t.slots[:0]
	t.free = t.free[:0]
	t.live = 0
	t.Init()
}

func (t *Table) notify(e Event) {
	for _, o := range t.observers {
		o.OnTableEvent(e)
	}
}
