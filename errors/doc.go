// Package errors provides structured error types for the bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the import being serviced, the offending value and a cause chain.
//
// The bridge's failure taxonomy maps onto kinds:
//
//	DecodeError     KindInvalidUTF8     invalid UTF-8 in a linear memory range
//	InvalidHandle   KindInvalidHandle   reference table misuse
//	HostException   KindHostException   a host function raised while servicing an import
//	FatalSignal     KindFatal           the module reported an unrecoverable condition
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseHost, errors.KindTypeMismatch).
//		Import("__wbg_call").
//		GoType("string").
//		Detail("value is not callable").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidHandle(2, "sentinel slot is read-only")
//	err := errors.OutOfBounds(errors.PhaseDecode, ptr, n, len(mem))
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
