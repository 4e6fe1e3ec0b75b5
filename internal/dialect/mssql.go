package dialect

import (
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/geosql/internal/geom"
	"github.com/roach88/geosql/internal/spatial"
	"github.com/roach88/geosql/internal/sqlexpr"
)

// MSSQL returns the descriptor for SQL Server's geometry type. Most
// operations are methods on the geometry instance.
func MSSQL() *Descriptor {
	return &Descriptor{
		name:        MSSQLName,
		catalogs:    []spatial.Catalog{spatial.CatalogCore, spatial.CatalogMSSQL},
		placeholder: sq.AtP,
		overrides: map[spatial.Op]Strategy{
			spatial.WKT:            Name("STAsText"),
			spatial.GeomFromText:   Name("geometry::STGeomFromText"),
			spatial.WKB:            Name("STAsBinary"),
			spatial.GeomFromWKB:    Name("geometry::STGeomFromWKB"),
			spatial.GeomFromDB:     Handler(mssqlFromDB),
			spatial.Dimension:      Name("STDimension"),
			spatial.SRID:           Name("STSrid"),
			spatial.GeometryType:   Name("STGeometryType"),
			spatial.IsValid:        Name("STIsValid"),
			spatial.IsEmpty:        Name("STIsEmpty"),
			spatial.IsSimple:       Name("STIsSimple"),
			spatial.IsClosed:       Name("STIsClosed"),
			spatial.IsRing:         Name("STIsRing"),
			spatial.NumPoints:      Name("STNumPoints"),
			spatial.PointN:         Name("STPointN"),
			spatial.Length:         Name("STLength"),
			spatial.Area:           Name("STArea"),
			spatial.X:              Name("STX"),
			spatial.Y:              Name("STY"),
			spatial.Centroid:       Name("STCentroid"),
			spatial.Boundary:       Name("STBoundary"),
			spatial.Buffer:         Name("STBuffer"),
			spatial.ConvexHull:     Name("STConvexHull"),
			spatial.Envelope:       Name("STEnvelope"),
			spatial.StartPoint:     Name("STStartPoint"),
			spatial.EndPoint:       Name("STEndPoint"),
			spatial.Transform:      Unsupported,
			spatial.Equals:         Name("STEquals"),
			spatial.Distance:       Name("STDistance"),
			spatial.WithinDistance: Unsupported,
			spatial.Disjoint:       Name("STDisjoint"),
			spatial.Intersects:     Name("STIntersects"),
			spatial.Touches:        Name("STTouches"),
			spatial.Crosses:        Name("STCrosses"),
			spatial.Within:         Name("STWithin"),
			spatial.Overlaps:       Name("STOverlaps"),
			spatial.Contains:       Name("STContains"),
			spatial.Covers:         Unsupported,
			spatial.CoveredBy:      Unsupported,
			spatial.Intersection:   Unsupported,
			spatial.Union:          Name("STUnion"),
			spatial.Collect:        Unsupported,
			spatial.Extent:         Unsupported,

			spatial.GML:                 Name("AsGml"),
			spatial.TextZM:              Name("AsTextZM"),
			spatial.BufferWithTolerance: Name("BufferWithTolerance"),
			spatial.Filter:              Name("Filter"),
			spatial.InstanceOf:          Name("InstanceOf"),
			spatial.M:                   Name("M"),
			spatial.MakeValid:           Name("MakeValid"),
			spatial.Reduce:              Name("Reduce"),
			spatial.ToString:            Name("ToString"),
			spatial.Z:                   Name("Z"),
		},
		members: opSet(
			spatial.WKT, spatial.WKB, spatial.Dimension, spatial.GeometryType,
			spatial.IsEmpty, spatial.IsSimple, spatial.IsClosed, spatial.IsRing,
			spatial.NumPoints, spatial.PointN, spatial.Length, spatial.Area,
			spatial.Centroid, spatial.Boundary, spatial.Buffer, spatial.ConvexHull,
			spatial.Envelope, spatial.StartPoint, spatial.EndPoint,
			spatial.Equals, spatial.Distance, spatial.Disjoint, spatial.Intersects,
			spatial.Touches, spatial.Crosses, spatial.Within, spatial.Overlaps,
			spatial.Contains, spatial.IsValid,
			spatial.GML, spatial.TextZM, spatial.BufferWithTolerance, spatial.Filter,
			spatial.InstanceOf, spatial.MakeValid, spatial.Reduce, spatial.ToString,
		),
		properties: opSet(spatial.SRID, spatial.X, spatial.Y, spatial.M, spatial.Z),
		sentinels: map[spatial.Op]any{
			spatial.Equals:     1,
			spatial.Disjoint:   1,
			spatial.Intersects: 1,
			spatial.Touches:    1,
			spatial.Crosses:    1,
			spatial.Within:     1,
			spatial.Overlaps:   1,
			spatial.Contains:   1,
			spatial.IsValid:    1,
			spatial.Filter:     1,
			spatial.InstanceOf: 1,
		},
		vocabulary:   []string{"VARBINARY", "geometry"},
		versionQuery: "SELECT SERVERPROPERTY('ProductVersion')",
		columnAdded:  mssqlColumnAdded,
	}
}

// mssqlFromDB restores the geometry type of a value read back from the
// server, which arrives as plain varbinary.
func mssqlFromDB(ctx Context, args []Arg) (sqlexpr.Expr, error) {
	if len(args) != 1 {
		return nil, arity(ctx, 1, len(args))
	}
	return sqlexpr.Cast{
		X:    sqlexpr.Cast{X: args[0].SQL, Type: "VARBINARY(max)"},
		Type: "geometry",
	}, nil
}

func mssqlColumnAdded(col *geom.Column, _ string) ([]sq.Sqlizer, error) {
	schema := col.Schema
	if schema == "" {
		schema = "dbo"
	}
	null := "NULL"
	if !col.Nullable {
		null = "NOT NULL"
	}
	stmts := []sq.Sqlizer{
		sq.Expr(fmt.Sprintf("ALTER TABLE [%s].[%s] ADD [%s] GEOMETRY %s", schema, col.Table, col.Name, null)),
	}
	if !col.SpatialIndex {
		return stmts, nil
	}
	if col.BoundingBox == "" {
		slog.Warn("no bounding box for column, skipping spatial index",
			"dialect", MSSQLName, "schema", schema, "table", col.Table, "column", col.Name)
		return stmts, nil
	}
	return append(stmts, sq.Expr(fmt.Sprintf("CREATE SPATIAL INDEX [%s_%s] ON [%s].[%s]([%s]) WITH (BOUNDING_BOX = %s)",
		col.Table, col.Name, schema, col.Table, col.Name, col.BoundingBox))), nil
}
