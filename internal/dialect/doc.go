// Package dialect holds the per-engine rendering tables.
//
// A Descriptor maps each spatial.Op to a Strategy:
//
//	Name     emit name(arg0, arg1, ...)
//	Chain    nest single-argument calls, innermost last in the slice
//	Handler  a callback that builds the expression itself
//	Unsupported
//
// Lookups consult the engine's override table first and then the shared
// default table. Member ops render as first.name(rest...); property ops as
// first.name. Ops whose result is a boolean-like value (the string 'TRUE'
// or the integer 1) declare a sentinel; the compiler compares against it
// only in WHERE position.
//
// Besides rendering, a Descriptor carries the engine hooks used outside the
// compiler: DDL provisioning statements for geometry columns, decoding of
// raw result values, and the server version query.
//
// Descriptors are immutable after construction and safe for concurrent use.
// The constructors here build a fresh instance on every call; use the
// registry package to share one instance per engine.
package dialect
