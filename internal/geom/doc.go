// Package geom is the geometry value model of geosql.
//
// A spatial value reaches the compiler in one of four forms:
//
//	Text      well-known text plus SRID, built in application code
//	Binary    well-known binary plus SRID, built in application code
//	Database  an opaque value produced by an earlier database computation
//	Persisted a value read back from a result row, wrapping a Text or Binary
//
// Value is a sealed interface over these four variants. Column is the
// handle for a geometry column; the compiler places it into SQL as-is.
//
// Coerce turns an arbitrary client value into one of: *Column, an
// Expression node, a Value, or nil. It is pure and idempotent.
//
// ShapeOf inspects a Text or Binary value locally (type name and
// coordinates) without a database round trip.
package geom
