package runtime

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/bindgen"
	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/eventloop"
	"github.com/wippyai/wasm-bridge/promise"
	"github.com/wippyai/wasm-bridge/value"
)

type Instance struct {
	id       uuid.UUID
	runtime  wazero.Runtime
	module   api.Module
	bridge   *bindgen.Bridge
	manifest *Manifest
	logger   *zap.Logger
}

// ID identifies the instance in logs.
func (i *Instance) ID() string {
	return i.id.String()
}

// Bridge returns the per-instance bridge context.
func (i *Instance) Bridge() *bindgen.Bridge {
	return i.bridge
}

// Call invokes an export with raw parameters. Nested imports see ctx.
func (i *Instance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	res, err := i.bridge.Call(ctx, name, params...)
	if err != nil {
		return nil, trapError(name, err)
	}
	return res, nil
}

// Run calls the run export and drives the event loop until the promise it
// returns settles. A rejection is reported as a host exception carrying the
// rejection reason.
func (i *Instance) Run(ctx context.Context) error {
	name := i.manifest.Exports.Run
	res, err := i.Call(ctx, name)
	if err != nil {
		return err
	}

	loop := i.bridge.Loop()
	if len(res) == 0 {
		return loop.Run(ctx, nil)
	}

	v, err := i.bridge.Table().Take(api.DecodeU32(res[0]))
	if err != nil {
		return err
	}
	p := promise.Resolve(loop, v)

	err = loop.Run(ctx, func() bool { return p.State() != promise.Pending })
	switch {
	case stderrors.Is(err, eventloop.ErrIdle):
		return errors.New(errors.PhaseRuntime, errors.KindFatal).
			Import(name).
			Detail("event loop ran out of work before the run promise settled").
			Build()
	case err != nil:
		return err
	}

	if p.State() == promise.Rejected {
		reason := p.Result()
		return errors.New(errors.PhaseHost, errors.KindHostException).
			Import(name).
			Value(reason).
			Detail("run rejected: %s", value.DebugString(reason)).
			Build()
	}
	i.logger.Debug("run completed", zap.String("result", value.DebugString(p.Result())))
	return nil
}

// Close detaches the bridge and releases the instance's runtime.
func (i *Instance) Close(ctx context.Context) error {
	i.bridge.Detach()
	return i.runtime.Close(ctx)
}

// trapError returns the bridge error behind a module trap, or wraps err.
func trapError(export string, err error) error {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e
	}
	return errors.New(errors.PhaseRuntime, errors.KindFatal).
		Import(export).
		Detail("module trapped").
		Cause(err).
		Build()
}
