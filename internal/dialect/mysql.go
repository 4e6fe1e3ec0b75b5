package dialect

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/geosql/internal/geom"
	"github.com/roach88/geosql/internal/spatial"
	"github.com/roach88/geosql/internal/sqlexpr"
)

var mbrNames = map[spatial.Op]Strategy{
	spatial.MBREqual:      Name("MBREqual"),
	spatial.MBRDisjoint:   Name("MBRDisjoint"),
	spatial.MBRIntersects: Name("MBRIntersects"),
	spatial.MBRTouches:    Name("MBRTouches"),
	spatial.MBRWithin:     Name("MBRWithin"),
	spatial.MBROverlaps:   Name("MBROverlaps"),
	spatial.MBRContains:   Name("MBRContains"),
}

// MySQL returns the descriptor for MySQL spatial extensions.
func MySQL() *Descriptor {
	overrides := map[spatial.Op]Strategy{
		spatial.Length:         Name("GLength"),
		spatial.IsValid:        Unsupported,
		spatial.IsSimple:       Unsupported,
		spatial.Boundary:       Unsupported,
		spatial.IsRing:         Unsupported,
		spatial.Centroid:       Unsupported,
		spatial.Distance:       Unsupported,
		spatial.Touches:        Unsupported,
		spatial.Crosses:        Unsupported,
		spatial.Transform:      Unsupported,
		spatial.Buffer:         Unsupported,
		spatial.ConvexHull:     Unsupported,
		spatial.Intersection:   Unsupported,
		spatial.WithinDistance: Handler(mysqlWithinDistance),
		spatial.Union:          Unsupported,
		spatial.Collect:        Unsupported,
		spatial.Extent:         Unsupported,
	}
	for op, s := range mbrNames {
		overrides[op] = s
	}

	return &Descriptor{
		name:          MySQLName,
		catalogs:      []spatial.Catalog{spatial.CatalogCore, spatial.CatalogMBR},
		placeholder:   sq.Question,
		overrides:     overrides,
		vocabulary:    []string{"ExteriorRing", "Concat", "Distance"},
		versionQuery:  "SELECT VERSION()",
		columnAdded:   mysqlColumnAdded,
		columnRemoved: nil,
	}
}

// mysqlWithinDistance emulates a distance filter: each geometry must
// intersect the other's bounding rectangle grown by d, and the exact
// distance must be within d.
func mysqlWithinDistance(ctx Context, args []Arg) (sqlexpr.Expr, error) {
	if len(args) != 3 {
		return nil, arity(ctx, 3, len(args))
	}
	g1, g2, d := args[0].SQL, args[1].SQL, args[2].SQL

	c := &calls{ctx: ctx}
	e := sqlexpr.And{
		c.call(spatial.MBRIntersects, g1, expandedMBR(c, g2, d)),
		c.call(spatial.MBRIntersects, g2, expandedMBR(c, g1, d)),
		// Distance is not an op on MySQL but the function exists.
		sqlexpr.Binary{Left: sqlexpr.Call("Distance", g1, g2), Op: "<=", Right: d},
	}
	if c.err != nil {
		return nil, c.err
	}
	return e, nil
}

// expandedMBR builds the bounding rectangle of g grown by d on every side,
// as a polygon assembled from the envelope's corner coordinates.
func expandedMBR(c *calls, g, d sqlexpr.Expr) sqlexpr.Expr {
	ring := sqlexpr.Call("ExteriorRing", c.call(spatial.Envelope, g))
	lowerLeft := c.call(spatial.StartPoint, ring)
	upperRight := c.call(spatial.PointN, ring, sqlexpr.Lit{Value: 3})

	minus := func(e sqlexpr.Expr) sqlexpr.Expr { return sqlexpr.Binary{Left: e, Op: "-", Right: d} }
	plus := func(e sqlexpr.Expr) sqlexpr.Expr { return sqlexpr.Binary{Left: e, Op: "+", Right: d} }

	xmin := minus(c.call(spatial.X, lowerLeft))
	ymin := minus(c.call(spatial.Y, lowerLeft))
	xmax := plus(c.call(spatial.X, upperRight))
	ymax := plus(c.call(spatial.Y, upperRight))

	space, comma := sqlexpr.Lit{Value: " "}, sqlexpr.Lit{Value: ","}
	polygon := sqlexpr.Call("Concat",
		sqlexpr.Lit{Value: "Polygon(("},
		xmin, space, ymin, comma,
		xmax, space, ymin, comma,
		xmax, space, ymax, comma,
		xmin, space, ymax, comma,
		xmin, space, ymin,
		sqlexpr.Lit{Value: "))"},
	)
	return c.call(spatial.GeomFromText, polygon, c.call(spatial.SRID, g))
}

func mysqlColumnAdded(col *geom.Column, _ string) ([]sq.Sqlizer, error) {
	def := fmt.Sprintf("ALTER TABLE %s ADD %s %s", col.Table, col.Name, col.GeometryType())
	// spatially indexed columns must be NOT NULL
	if col.SpatialIndex || !col.Nullable {
		def += " NOT NULL"
	}
	stmts := []sq.Sqlizer{sq.Expr(def)}
	if col.SpatialIndex {
		stmts = append(stmts, sq.Expr(fmt.Sprintf("CREATE SPATIAL INDEX idx_%s_%s ON %s(%s)",
			col.Table, col.Name, col.Table, col.Name)))
	}
	return stmts, nil
}
