// Package ddl runs the database side of geometry columns.
//
// The dialect package only describes statements; this package executes
// them. It provisions and removes geometry columns around table creation,
// probes the spatial server version that gates some renderings, and
// performs the round trips the compiler cannot avoid:
//
//   - Create / Drop: run a dialect's column provisioning hooks
//   - ProbeVersion: read and canonicalize the spatial server version
//   - FetchWKT / ShapeOf: render a geometry value as text on the server
//   - Geometry: an sql.Scanner that decodes result columns per dialect
//
// Every helper takes a Conn, so a *sql.DB, *sql.Conn or *sql.Tx works.
package ddl
