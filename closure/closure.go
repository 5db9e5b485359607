// Package closure ties the lifetime of module-side closures to the host
// function values that wrap them.
//
// A closure environment is two opaque module words (A, B) plus the index of
// a module destructor. The host holds one implicit reference; every call in
// flight holds another. The destructor runs exactly once, when the last
// reference goes away, whether that is a module drop, a host release, or the
// garbage collector reclaiming the wrapper.
package closure

import (
	"context"
	"runtime"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/errors"
)

// Invoker calls the module entry point for a closure.
type Invoker interface {
	Invoke(ctx context.Context, a, b uint32, args []any) (any, error)
}

// Destructor runs a module-side closure destructor.
type Destructor interface {
	Destroy(ctx context.Context, dtor, a, b uint32) error
}

// Scheduler posts work onto the goroutine that owns the module.
type Scheduler interface {
	Post(fn func())
}

// State is the closure record shared by the wrapper and its cleanup.
type State struct {
	A        uint32
	B        uint32
	Dtor     uint32
	count    int
	released bool
}

// Count returns the number of live references.
func (s *State) Count() int { return s.count }

// Released reports whether the destructor has run or the module took ownership back.
func (s *State) Released() bool { return s.released }

// Closure is a host function backed by a module closure.
type Closure struct {
	state     *State
	invoke    Invoker
	dtors     Destructor
	cleanup   runtime.Cleanup
	onDestroy func()
	logger    *zap.Logger
	name      string
	auto      bool
}

// Option configures a Closure.
type Option func(*Closure)

// WithName sets the name shown in debug strings.
func WithName(name string) Option {
	return func(c *Closure) { c.name = name }
}

// WithOnDestroy registers a hook called after the destructor runs.
func WithOnDestroy(fn func()) Option {
	return func(c *Closure) { c.onDestroy = fn }
}

// WithLogger sets the logger used for destructor failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Closure) {
		if l != nil {
			c.logger = l
		}
	}
}

// New wraps the module closure (a, b) whose destructor is dtor. When sched is
// non-nil an unreachable wrapper is destroyed on the scheduler's goroutine.
func New(a, b, dtor uint32, invoke Invoker, dtors Destructor, sched Scheduler, opts ...Option) *Closure {
	c := &Closure{
		state:  &State{A: a, B: b, Dtor: dtor, count: 1},
		invoke: invoke,
		dtors:  dtors,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if sched != nil {
		c.auto = true
		c.cleanup = runtime.AddCleanup(c, finalize, cleanupArg{
			state:     c.state,
			dtors:     dtors,
			sched:     sched,
			onDestroy: c.onDestroy,
			logger:    c.logger,
		})
	}
	return c
}

// State returns the shared closure record.
func (c *Closure) State() *State { return c.state }

// Name returns the debug name.
func (c *Closure) Name() string { return c.name }

// Call invokes the module closure. A closure that was dropped, or that is
// already executing, fails with KindClosureReleased.
func (c *Closure) Call(ctx context.Context, _ any, args ...any) (result any, err error) {
	st := c.state
	if st.A == 0 {
		return nil, errors.ClosureReleased("closure invoked recursively or after being dropped")
	}
	st.count++
	a := st.A
	st.A = 0
	defer func() {
		st.count--
		if st.count == 0 {
			if derr := c.destroy(ctx, a); derr != nil && err == nil {
				err = derr
			}
			return
		}
		st.A = a
	}()
	return c.invoke.Invoke(ctx, a, st.B, args)
}

// Drop gives up the host reference on behalf of the module. It reports
// whether that was the last reference, in which case the module destroys the
// environment itself.
func (c *Closure) Drop() bool {
	st := c.state
	if st.released || st.count <= 0 {
		return false
	}
	last := st.count == 1
	st.count--
	if last {
		st.A = 0
		st.released = true
		c.stopCleanup()
	}
	return last
}

// Release gives up the host reference and runs the destructor when it was
// the last one.
func (c *Closure) Release(ctx context.Context) error {
	a := c.state.A
	if !c.Drop() {
		return nil
	}
	return c.runDestructor(ctx, a)
}

func (c *Closure) destroy(ctx context.Context, a uint32) error {
	c.state.released = true
	c.stopCleanup()
	return c.runDestructor(ctx, a)
}

func (c *Closure) runDestructor(ctx context.Context, a uint32) error {
	err := c.dtors.Destroy(ctx, c.state.Dtor, a, c.state.B)
	if err != nil {
		c.logger.Warn("closure destructor failed", zap.Uint32("dtor", c.state.Dtor), zap.Error(err))
	}
	if c.onDestroy != nil {
		c.onDestroy()
	}
	return err
}

func (c *Closure) stopCleanup() {
	if c.auto {
		c.cleanup.Stop()
		c.auto = false
	}
}

type cleanupArg struct {
	state     *State
	dtors     Destructor
	sched     Scheduler
	onDestroy func()
	logger    *zap.Logger
}

// finalize runs on a runtime goroutine and must not touch the state there.
func finalize(arg cleanupArg) {
	arg.sched.Post(func() {
		st := arg.state
		if st.released {
			return
		}
		st.released = true
		a := st.A
		st.A = 0
		if err := arg.dtors.Destroy(context.Background(), st.Dtor, a, st.B); err != nil {
			arg.logger.Warn("closure cleanup failed", zap.Uint32("dtor", st.Dtor), zap.Error(err))
		}
		if arg.onDestroy != nil {
			arg.onDestroy()
		}
	})
}

// Once is a two-word environment lent to a single synchronous call, such as a
// promise executor. Nested calls see it as released, and Clear makes it inert.
type Once struct {
	A uint32
	B uint32
}

// NewOnce creates a scoped environment.
func NewOnce(a, b uint32) *Once {
	return &Once{A: a, B: b}
}

// Call lends the environment to fn.
func (o *Once) Call(fn func(a, b uint32) error) error {
	a := o.A
	if a == 0 {
		return errors.ClosureReleased("closure invoked recursively or after being dropped")
	}
	o.A = 0
	defer func() { o.A = a }()
	return fn(a, o.B)
}

// Clear drops both words.
func (o *Once) Clear() {
	o.A, o.B = 0, 0
}
