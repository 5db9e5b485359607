package promise

import (
	"context"
	stderrors "errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/wasm-bridge/eventloop"
	"github.com/wippyai/wasm-bridge/value"
)

func run(t *testing.T, loop *eventloop.Loop) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := loop.Run(ctx, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func record(log *[]string, tag string) value.Function {
	return value.Func(func(_ context.Context, _ any, args ...any) (any, error) {
		*log = append(*log, tag+":"+value.DebugString(value.Arg(args, 0)))
		return value.Arg(args, 0), nil
	})
}

func TestPromise_ReactionsAreAsync(t *testing.T) {
	loop := eventloop.New()
	var log []string

	p := Resolve(loop, 1.0)
	p.Then(record(&log, "a"), nil)
	log = append(log, "sync")
	p.Then(record(&log, "b"), nil)
	run(t, loop)

	if diff := cmp.Diff([]string{"sync", "a:1", "b:1"}, log); diff != "" {
		t.Errorf("log (-want +got):\n%s", diff)
	}
}

func TestPromise_ExecutorResolvesOnce(t *testing.T) {
	loop := eventloop.New()
	p := New(loop, func(resolve, reject value.Function) error {
		_, _ = resolve.Call(context.Background(), nil, "first")
		_, _ = reject.Call(context.Background(), nil, "second")
		_, _ = resolve.Call(context.Background(), nil, "third")
		return nil
	})
	if p.State() != Fulfilled || p.Result() != "first" {
		t.Errorf("state=%v result=%v", p.State(), p.Result())
	}
}

func TestPromise_ExecutorError(t *testing.T) {
	loop := eventloop.New()
	p := New(loop, func(_, _ value.Function) error {
		return stderrors.New("boom")
	})
	if p.State() != Rejected {
		t.Fatalf("state = %v", p.State())
	}
	if e, ok := p.Result().(*value.Error); !ok || e.Message != "boom" {
		t.Errorf("result = %#v", p.Result())
	}
}

func TestPromise_Chain(t *testing.T) {
	loop := eventloop.New()
	double := value.Func(func(_ context.Context, _ any, args ...any) (any, error) {
		return args[0].(float64) * 2, nil
	})
	fail := value.Func(func(context.Context, any, ...any) (any, error) {
		return nil, value.Throw("bad")
	})
	var log []string

	Resolve(loop, 2.0).
		Then(double, nil).
		Then(fail, nil).
		Then(record(&log, "skipped"), nil).
		Then(nil, record(&log, "caught"))
	run(t, loop)

	if diff := cmp.Diff([]string{`caught:"bad"`}, log); diff != "" {
		t.Errorf("log (-want +got):\n%s", diff)
	}
}

func TestPromise_Adoption(t *testing.T) {
	loop := eventloop.New()
	inner := New(loop, func(resolve, _ value.Function) error {
		loop.SetTimeout(time.Millisecond, func() {
			_, _ = resolve.Call(context.Background(), nil, "late")
		})
		return nil
	})
	outer := Resolve(loop, nil)
	derived := outer.Then(value.Func(func(context.Context, any, ...any) (any, error) {
		return inner, nil
	}), nil)
	run(t, loop)

	if derived.State() != Fulfilled || derived.Result() != "late" {
		t.Errorf("derived state=%v result=%v", derived.State(), derived.Result())
	}
	if Resolve(loop, inner) != inner {
		t.Error("Resolve should return an existing promise unchanged")
	}
}

func TestPromise_SelfResolution(t *testing.T) {
	loop := eventloop.New()
	var resolveFn value.Function
	p := New(loop, func(resolve, _ value.Function) error {
		resolveFn = resolve
		return nil
	})
	_, _ = resolveFn.Call(context.Background(), nil, p)
	if p.State() != Rejected {
		t.Fatalf("state = %v", p.State())
	}
	if e, ok := p.Result().(*value.Error); !ok || e.Name != "TypeError" {
		t.Errorf("result = %#v", p.Result())
	}
}

func TestPromise_OnSettle(t *testing.T) {
	loop := eventloop.New()
	p := Reject(loop, "why")
	var got State
	p.OnSettle(func(s State, r any) { got = s })
	if got != Pending {
		t.Error("OnSettle ran synchronously")
	}
	run(t, loop)
	if got != Rejected || !p.Handled() {
		t.Errorf("got %v handled=%v", got, p.Handled())
	}
}

func TestSleep(t *testing.T) {
	loop := eventloop.New()
	start := time.Now()
	p := Sleep(loop, 10)
	run(t, loop)

	if p.State() != Fulfilled || !value.IsUndefined(p.Result()) {
		t.Errorf("state=%v result=%v", p.State(), p.Result())
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("resolved after %v", elapsed)
	}
}

func TestSaturatingMillis(t *testing.T) {
	tests := []struct {
		in   uint64
		want time.Duration
	}{
		{0, 0},
		{1500, 1500 * time.Millisecond},
		{math.MaxUint64, time.Duration(math.MaxInt64)},
		{uint64(math.MaxInt64), time.Duration(math.MaxInt64)},
	}
	for _, tt := range tests {
		if got := SaturatingMillis(tt.in); got != tt.want {
			t.Errorf("SaturatingMillis(%d) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPromise_DebugString(t *testing.T) {
	if got := value.DebugString(Resolve(eventloop.New(), 1.0)); got != "Promise" {
		t.Errorf("DebugString = %q", got)
	}
}
