// Package promise implements host promises settled on an event loop.
//
// Reactions always run as microtasks, in registration order, even when the
// promise is already settled. Resolving with another *Promise adopts its
// eventual state. Once settled, further resolve or reject calls are ignored.
package promise

import (
	"context"
	"math"
	"time"

	"github.com/wippyai/wasm-bridge/eventloop"
	"github.com/wippyai/wasm-bridge/value"
)

// State is the settlement state of a promise.
type State uint8

const (
	Pending State = iota
	Fulfilled
	Rejected
)

func (s State) String() string {
	switch s {
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	}
	return "pending"
}

// Promise is a host promise.
type Promise struct {
	loop      *eventloop.Loop
	result    any
	reactions []func()
	state     State
	resolving bool
	handled   bool
}

// New creates a promise and runs executor synchronously with its resolving
// functions. An executor error rejects the promise with the thrown value.
func New(loop *eventloop.Loop, executor func(resolve, reject value.Function) error) *Promise {
	p := &Promise{loop: loop}
	resolve, reject := p.resolvers()
	if err := executor(resolve, reject); err != nil {
		p.reject(value.Thrown(err))
	}
	return p
}

// Resolve returns v if it is a promise, else a promise fulfilled with v.
func Resolve(loop *eventloop.Loop, v any) *Promise {
	if p, ok := v.(*Promise); ok {
		return p
	}
	p := &Promise{loop: loop}
	p.resolve(v)
	return p
}

// Reject returns a promise rejected with reason.
func Reject(loop *eventloop.Loop, reason any) *Promise {
	p := &Promise{loop: loop}
	p.reject(reason)
	return p
}

// TypeTag names the value in debug strings.
func (p *Promise) TypeTag() string { return "Promise" }

// State returns the current state.
func (p *Promise) State() State { return p.state }

// Result returns the fulfillment value or rejection reason.
func (p *Promise) Result() any { return p.result }

// Then registers continuations and returns the derived promise. A nil
// handler passes the result through.
func (p *Promise) Then(onFulfilled, onRejected value.Function) *Promise {
	child := &Promise{loop: p.loop}
	p.handled = true
	p.subscribe(func() {
		handler := onFulfilled
		if p.state == Rejected {
			handler = onRejected
		}
		if handler == nil {
			child.settleLike(p)
			return
		}
		res, err := handler.Call(p.loop.Context(), value.Undefined, p.result)
		if err != nil {
			child.reject(value.Thrown(err))
			return
		}
		child.resolve(res)
	})
	return child
}

// OnSettle calls fn once the promise settles, as a microtask.
func (p *Promise) OnSettle(fn func(State, any)) {
	p.handled = true
	p.subscribe(func() { fn(p.state, p.result) })
}

func (p *Promise) subscribe(reaction func()) {
	if p.state == Pending {
		p.reactions = append(p.reactions, reaction)
		return
	}
	p.loop.QueueMicrotask(reaction)
}

func (p *Promise) resolvers() (value.Function, value.Function) {
	resolve := value.Func(func(_ context.Context, _ any, args ...any) (any, error) {
		p.resolve(value.Arg(args, 0))
		return value.Undefined, nil
	})
	reject := value.Func(func(_ context.Context, _ any, args ...any) (any, error) {
		p.reject(value.Arg(args, 0))
		return value.Undefined, nil
	})
	return resolve, reject
}

func (p *Promise) resolve(v any) {
	if p.state != Pending || p.resolving {
		return
	}
	other, ok := v.(*Promise)
	if !ok {
		p.settle(Fulfilled, v)
		return
	}
	if other == p {
		p.settle(Rejected, &value.Error{Name: "TypeError", Message: "chaining cycle detected for promise"})
		return
	}
	p.resolving = true
	p.loop.QueueMicrotask(func() {
		other.OnSettle(func(s State, r any) {
			p.resolving = false
			p.settle(s, r)
		})
	})
}

func (p *Promise) reject(reason any) {
	if p.state != Pending || p.resolving {
		return
	}
	p.settle(Rejected, reason)
}

func (p *Promise) settleLike(other *Promise) {
	if other.state == Fulfilled {
		p.resolve(other.result)
		return
	}
	p.reject(other.result)
}

func (p *Promise) settle(s State, result any) {
	if p.state != Pending {
		return
	}
	p.state = s
	p.result = result
	reactions := p.reactions
	p.reactions = nil
	for _, r := range reactions {
		p.loop.QueueMicrotask(r)
	}
}

// Handled reports whether any continuation was attached.
func (p *Promise) Handled() bool { return p.handled }

// Sleep returns a promise fulfilled with undefined after ms milliseconds.
// Durations past the time.Duration range saturate.
func Sleep(loop *eventloop.Loop, ms uint64) *Promise {
	d := SaturatingMillis(ms)
	return New(loop, func(resolve, _ value.Function) error {
		loop.SetTimeout(d, func() {
			_, _ = resolve.Call(loop.Context(), value.Undefined, value.Undefined)
		})
		return nil
	})
}

// SaturatingMillis converts milliseconds to a Duration, clamping at the maximum.
func SaturatingMillis(ms uint64) time.Duration {
	if ms > uint64(math.MaxInt64/int64(time.Millisecond)) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ms) * time.Millisecond
}
