// Package eventloop runs microtasks, macrotasks and timers on the single
// goroutine that drives a module instance.
//
// Microtasks drain completely before the next macrotask. Work arriving from
// other goroutines (timer expiry, garbage-collection cleanups) is posted into
// the loop and never runs concurrently with module code.
package eventloop

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/internal/metrics"
)

// ErrIdle is returned by Run when no work is left and done never reported true.
var ErrIdle = stderrors.New("eventloop: no pending work")

// Loop is a single-threaded task queue.
type Loop struct {
	ctx     context.Context
	logger  *zap.Logger
	metrics *metrics.Metrics
	wake    chan struct{}
	micro   []func()
	macro   []func()
	posted  []func()
	mu      sync.Mutex
	pending int
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the loop logger.
func WithLogger(l *zap.Logger) Option {
	return func(loop *Loop) {
		if l != nil {
			loop.logger = l
		}
	}
}

// WithMetrics records timer and microtask counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(loop *Loop) {
		loop.metrics = m
	}
}

// New creates an idle loop.
func New(opts ...Option) *Loop {
	l := &Loop{
		ctx:    context.Background(),
		logger: zap.NewNop(),
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// QueueMicrotask schedules fn after the current task. Loop goroutine only.
func (l *Loop) QueueMicrotask(fn func()) {
	l.micro = append(l.micro, fn)
}

// Enqueue schedules fn as a macrotask. Loop goroutine only.
func (l *Loop) Enqueue(fn func()) {
	l.macro = append(l.macro, fn)
}

// Post schedules fn as a macrotask from any goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.posted = append(l.posted, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// SetTimeout runs fn on the loop after d. Timeouts cannot be cancelled.
func (l *Loop) SetTimeout(d time.Duration, fn func()) {
	l.mu.Lock()
	l.pending++
	l.mu.Unlock()
	l.metrics.TimerScheduled(1)

	time.AfterFunc(d, func() {
		l.Post(func() {
			l.mu.Lock()
			l.pending--
			l.mu.Unlock()
			l.metrics.TimerScheduled(-1)
			fn()
		})
	})
}

// Pending returns the number of timers that have not fired.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending
}

// Run processes tasks until done reports true, the loop runs out of work,
// or ctx ends. A nil done runs until idle and returns nil.
func (l *Loop) Run(ctx context.Context, done func() bool) error {
	prev := l.ctx
	l.ctx = ctx
	defer func() { l.ctx = prev }()

	for {
		l.drainMicrotasks()
		if done != nil && done() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if fn := l.next(); fn != nil {
			fn()
			continue
		}

		l.mu.Lock()
		waiting := l.pending > 0 || len(l.posted) > 0
		l.mu.Unlock()
		if !waiting {
			if done == nil {
				return nil
			}
			l.logger.Debug("event loop idle before completion")
			return ErrIdle
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Context returns the context of the current Run, or context.Background.
func (l *Loop) Context() context.Context {
	return l.ctx
}

// Drain runs everything that is ready without waiting for timers.
func (l *Loop) Drain() {
	for {
		l.drainMicrotasks()
		fn := l.next()
		if fn == nil {
			return
		}
		fn()
	}
}

func (l *Loop) drainMicrotasks() {
	for len(l.micro) > 0 {
		fn := l.micro[0]
		l.micro[0] = nil
		l.micro = l.micro[1:]
		l.metrics.MicrotaskRan()
		fn()
	}
}

func (l *Loop) next() func() {
	if len(l.macro) == 0 {
		l.mu.Lock()
		if len(l.posted) > 0 {
			l.macro = append(l.macro, l.posted...)
			l.posted = l.posted[:0]
		}
		l.mu.Unlock()
	}
	if len(l.macro) == 0 {
		return nil
	}
	fn := l.macro[0]
	l.macro[0] = nil
	l.macro = l.macro[1:]
	return fn
}
