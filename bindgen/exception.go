package bindgen

import (
	stderrors "errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/externref"
	"github.com/wippyai/wasm-bridge/value"
)

// ExceptionRegister holds the last host exception raised while servicing an
// import. It has a single slot: a second exception stored before the first
// is taken replaces it.
type ExceptionRegister struct {
	logger  *zap.Logger
	handle  externref.Handle
	pending bool
}

// NewExceptionRegister creates an empty register.
func NewExceptionRegister(l *zap.Logger) *ExceptionRegister {
	if l == nil {
		l = zap.NewNop()
	}
	return &ExceptionRegister{logger: l}
}

// Store records h as the pending exception.
func (r *ExceptionRegister) Store(h externref.Handle) {
	if r.pending {
		r.logger.Warn("pending host exception overwritten",
			zap.Uint32("discarded", r.handle),
			zap.Uint32("stored", h))
	}
	r.handle = h
	r.pending = true
}

// Take returns and clears the pending exception.
func (r *ExceptionRegister) Take() (externref.Handle, bool) {
	if !r.pending {
		return 0, false
	}
	h := r.handle
	r.handle = 0
	r.pending = false
	return h, true
}

// Pending reports whether an exception is waiting.
func (r *ExceptionRegister) Pending() bool {
	return r.pending
}

// isTrap reports errors that abort the import instead of surfacing as a
// host exception.
func isTrap(err error) bool {
	var e *errors.Error
	if !stderrors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case errors.KindInvalidUTF8, errors.KindInvalidHandle, errors.KindFatal,
		errors.KindOutOfBounds, errors.KindAllocation, errors.KindDetached:
		return true
	}
	return false
}

// raise turns a failure while servicing name into a thrown handle. The
// handle is passed to the module's exception store export when it has one,
// and kept in the register otherwise. Trap errors propagate as panics, which
// wazero reports as a module trap.
func (b *Bridge) raise(name string, err error) {
	if isTrap(err) {
		panic(err)
	}
	thrown := value.Thrown(err)
	h := b.table.Alloc(thrown)
	b.metrics.HostException(name)
	b.logger.Debug("host exception",
		zap.String("import", name),
		zap.String("thrown", value.DebugString(thrown)))

	if b.guest != nil && b.names.ExnStore != "" && b.guest.Has(b.names.ExnStore) {
		if _, cerr := b.guest.Call(b.ctx(), b.names.ExnStore, uint64(h)); cerr != nil {
			panic(errors.HostException(name, thrown, cerr))
		}
		return
	}
	b.exn.Store(h)
}

// guard runs fn and captures a returned error or panic as a host exception.
// The import then returns zero.
func (b *Bridge) guard(name string, stack []uint64, fn func() (uint64, error)) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err, ok := r.(error)
		if !ok {
			err = fmt.Errorf("%v", r)
		}
		b.raise(name, err)
		clearResults(stack)
	}()

	res, err := fn()
	if err != nil {
		b.raise(name, err)
		clearResults(stack)
		return
	}
	if len(stack) > 0 {
		stack[0] = res
	}
}

func clearResults(stack []uint64) {
	if len(stack) > 0 {
		stack[0] = 0
	}
}
