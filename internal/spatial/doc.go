// Package spatial is the function registry: the catalog of named spatial
// operations and the immutable Invocation that applies one to arguments.
//
// Every operation is a distinct Op value. Dialects key their rendering
// tables on Op, so an operation a dialect does not support fails at compile
// time with a specific UNSUPPORTED_OPERATION error instead of emitting SQL
// the database would reject.
//
// Operations belong to catalogs. CatalogCore holds the OGC SFS / SQL-MM
// operations every dialect is expected to consider; the remaining catalogs
// (PostGIS, MBR, SpatiaLite, Oracle, SQL Server) are engine extensions
// layered on top and resolved the same way.
//
// Building an invocation:
//
//	inv := spatial.Invoke(spatial.WithinDistance, roads, "POINT(0 0)", 10)
//	inv = inv.WithFlag("tolerance", 0.005)
//
// Invocations never change after construction; With and WithFlag return
// updated copies, so a partially bound invocation can be shared and
// completed differently at each call site.
package spatial
