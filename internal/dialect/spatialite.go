package dialect

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/geosql/internal/geom"
	"github.com/roach88/geosql/internal/spatial"
	"github.com/roach88/geosql/internal/sqlexpr"
)

// rtreeSince is the first SQLite release with R*Tree spatial indexes.
const rtreeSince = "v3.6"

// SpatiaLite returns the descriptor for SQLite with SpatiaLite.
func SpatiaLite() *Descriptor {
	overrides := map[spatial.Op]Strategy{
		spatial.WithinDistance: Handler(spatialiteWithinDistance),
		spatial.Length:         Name("GLength"),
		spatial.SVG:            Name("AsSVG"),
		spatial.FGF:            Name("AsFGF"),
	}
	for op, s := range mbrNames {
		overrides[op] = s
	}

	return &Descriptor{
		name:          SpatiaLiteName,
		catalogs:      []spatial.Catalog{spatial.CatalogCore, spatial.CatalogMBR, spatial.CatalogSpatiaLite},
		placeholder:   sq.Question,
		overrides:     overrides,
		vocabulary:    []string{"MbrMinX", "MbrMaxX", "MbrMinY", "MbrMaxY", "Distance"},
		versionQuery:  "SELECT sqlite_version()",
		columnAdded:   spatialiteColumnAdded,
		columnRemoved: spatialiteColumnRemoved,
	}
}

// spatialiteWithinDistance filters through the column's R*Tree index when
// there is one, and otherwise compares the plain distance.
func spatialiteWithinDistance(ctx Context, args []Arg) (sqlexpr.Expr, error) {
	if len(args) != 3 {
		return nil, arity(ctx, 3, len(args))
	}
	g1, g2, d := args[0].SQL, args[1].SQL, args[2].SQL
	c := &calls{ctx: ctx}
	distance := sqlexpr.Binary{Left: c.call(spatial.Distance, g1, g2), Op: "<=", Right: d}
	if c.err != nil {
		return nil, c.err
	}

	col := args[0].Column
	if col == nil || !col.SpatialIndex || !versionAtLeast(ctx.Version, rtreeSince) {
		return distance, nil
	}

	bound := func(name, op, fn, arith string) sqlexpr.Expr {
		return sqlexpr.Binary{
			Left:  sqlexpr.Ident(name),
			Op:    op,
			Right: sqlexpr.Binary{Left: sqlexpr.Call(fn, g2), Op: arith, Right: d},
		}
	}
	index := sq.Select("pkid").
		From(fmt.Sprintf("idx_%s_%s", col.Table, col.Name)).
		Where(bound("xmin", ">=", "MbrMinX", "-")).
		Where(bound("xmax", "<=", "MbrMaxX", "+")).
		Where(bound("ymin", ">=", "MbrMinY", "-")).
		Where(bound("ymax", "<=", "MbrMaxY", "+"))

	return sqlexpr.And{
		distance,
		sqlexpr.In{X: sqlexpr.Ident(col.Table + ".rowid"), Query: index},
	}, nil
}

func spatialiteColumnAdded(col *geom.Column, version string) ([]sq.Sqlizer, error) {
	notNull := 1
	if col.Nullable {
		notNull = 0
	}
	stmts := []sq.Sqlizer{
		sq.Select().Column(sq.Expr("AddGeometryColumn(?, ?, ?, ?, ?, ?)",
			col.Table, col.Name, col.SRID, string(col.GeometryType()), col.Dimension, notNull)),
	}
	if col.SpatialIndex && versionAtLeast(version, rtreeSince) {
		stmts = append(stmts,
			sq.Expr(fmt.Sprintf("SELECT CreateSpatialIndex('%s', '%s')", col.Table, col.Name)),
			sq.Expr("VACUUM"),
		)
	}
	return stmts, nil
}

func spatialiteColumnRemoved(col *geom.Column, version string) ([]sq.Sqlizer, error) {
	var stmts []sq.Sqlizer
	if col.SpatialIndex && versionAtLeast(version, rtreeSince) {
		stmts = append(stmts,
			sq.Select().Column(sq.Expr("DisableSpatialIndex(?, ?)", col.Table, col.Name)),
			sq.Expr(fmt.Sprintf("DROP TABLE idx_%s_%s", col.Table, col.Name)),
		)
	}
	stmts = append(stmts, sq.Select().Column(sq.Expr("DiscardGeometryColumn(?, ?)", col.Table, col.Name)))
	return stmts, nil
}
