// Package value defines the host values the bridge hands to a module.
//
// Go nil is null and Undefined is undefined. Booleans, numbers and strings are
// plain Go values; any Go numeric is accepted as a number. Arrays are []any.
// Callables implement Function, plain data uses *Object, host errors are
// *Error, and anything else is an opaque host object.
//
// Classify maps a value onto this closed set once, at the boundary, and
// DebugString renders each kind.
package value
