package dialect_test

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gogeom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/wkb"

	"github.com/roach88/geosql/internal/dialect"
	"github.com/roach88/geosql/internal/geoerr"
	"github.com/roach88/geosql/internal/geom"
	"github.com/roach88/geosql/internal/spatial"
	"github.com/roach88/geosql/internal/sqlexpr"
)

func roads() *geom.Column { return geom.NewColumn("roads", "geom") }
func lakes() *geom.Column { return geom.NewColumn("lakes", "shore") }

func render(t *testing.T, d *dialect.Descriptor, ctx dialect.Context, args ...dialect.Arg) (string, []any) {
	t.Helper()
	e, err := d.Render(ctx, args)
	require.NoError(t, err)
	sql, params, err := sqlexpr.Render(e, d.Placeholder())
	require.NoError(t, err)
	return sql, params
}

func renderErr(d *dialect.Descriptor, ctx dialect.Context, args ...dialect.Arg) error {
	_, err := d.Render(ctx, args)
	return err
}

// textArg builds the argument the compiler produces for a WKT literal.
func textArg(t *testing.T, d *dialect.Descriptor, wkt string) dialect.Arg {
	t.Helper()
	v, err := geom.NewText(wkt)
	require.NoError(t, err)
	e, err := d.Render(dialect.Context{Op: spatial.GeomFromText},
		[]dialect.Arg{dialect.ScalarArg(wkt), dialect.ScalarArg(geom.DefaultSRID)})
	require.NoError(t, err)
	return dialect.Arg{Kind: dialect.ArgValue, SQL: e, Value: v}
}

func op(o spatial.Op) dialect.Context { return dialect.Context{Op: o} }

func where(o spatial.Op) dialect.Context { return dialect.Context{Op: o, Boolean: true} }

func TestDescriptorIdentity(t *testing.T) {
	tests := []struct {
		desc        *dialect.Descriptor
		name        string
		placeholder string
	}{
		{dialect.PostGIS(), "postgis", "$1"},
		{dialect.MySQL(), "mysql", "?"},
		{dialect.Oracle(), "oracle", ":1"},
		{dialect.MSSQL(), "mssql", "@p1"},
		{dialect.SpatiaLite(), "spatialite", "?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.desc.Name())
			got, err := tt.desc.Placeholder().ReplacePlaceholders("?")
			require.NoError(t, err)
			assert.Equal(t, tt.placeholder, got)
			assert.Contains(t, tt.desc.Catalogs(), spatial.CatalogCore)
			assert.NotEmpty(t, tt.desc.VersionQuery())
		})
	}
}

func TestPrefixCalls(t *testing.T) {
	tests := []struct {
		name string
		desc *dialect.Descriptor
		op   spatial.Op
		want string
	}{
		{"postgis wkt", dialect.PostGIS(), spatial.WKT, "ST_AsText(roads.geom)"},
		{"postgis area", dialect.PostGIS(), spatial.Area, "ST_Area(roads.geom)"},
		{"mysql length", dialect.MySQL(), spatial.Length, "GLength(roads.geom)"},
		{"mysql default area", dialect.MySQL(), spatial.Area, "Area(roads.geom)"},
		{"mysql mbr", dialect.MySQL(), spatial.MBRContains, "MBRContains(roads.geom)"},
		{"spatialite svg", dialect.SpatiaLite(), spatial.SVG, "AsSVG(roads.geom)"},
		{"spatialite fgf", dialect.SpatiaLite(), spatial.FGF, "AsFGF(roads.geom)"},
		{"oracle transform", dialect.Oracle(), spatial.Transform, "SDO_CS.TRANSFORM(roads.geom)"},
		{"mssql union", dialect.MSSQL(), spatial.Union, "STUnion(roads.geom)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params := render(t, tt.desc, op(tt.op), dialect.ColumnArg(roads()))
			assert.Equal(t, tt.want, sql)
			assert.Empty(t, params)
		})
	}
}

func TestLiteralConstructors(t *testing.T) {
	tests := []struct {
		desc *dialect.Descriptor
		want string
	}{
		{dialect.PostGIS(), "ST_GeomFromText($1, $2)"},
		{dialect.MySQL(), "GeomFromText(?, ?)"},
		{dialect.Oracle(), "MDSYS.SDO_GEOMETRY(:1, :2)"},
		{dialect.MSSQL(), "geometry::STGeomFromText(@p1, @p2)"},
		{dialect.SpatiaLite(), "GeomFromText(?, ?)"},
	}
	for _, tt := range tests {
		t.Run(tt.desc.Name(), func(t *testing.T) {
			sql, params := render(t, tt.desc, op(spatial.GeomFromText),
				dialect.ScalarArg("POINT(1 2)"), dialect.ScalarArg(4326))
			assert.Equal(t, tt.want, sql)
			assert.Equal(t, []any{"POINT(1 2)", 4326}, params)
		})
	}
}

func TestMemberAndPropertySyntax(t *testing.T) {
	ms := dialect.MSSQL()

	sql, _ := render(t, ms, op(spatial.WKT), dialect.ColumnArg(roads()))
	assert.Equal(t, "roads.geom.STAsText()", sql)

	sql, _ = render(t, ms, op(spatial.SRID), dialect.ColumnArg(roads()))
	assert.Equal(t, "roads.geom.STSrid", sql)

	sql, params := render(t, ms, op(spatial.PointN), dialect.ColumnArg(roads()), dialect.ScalarArg(2))
	assert.Equal(t, "roads.geom.STPointN(@p1)", sql)
	assert.Equal(t, []any{2}, params)

	sql, params = render(t, ms, where(spatial.Equals), dialect.ColumnArg(roads()), textArg(t, ms, "POINT(0 0)"))
	assert.Equal(t, "roads.geom.STEquals(geometry::STGeomFromText(@p1, @p2))", sql)
	assert.Equal(t, []any{"POINT(0 0)", 4326}, params)

	sentinel, ok := ms.Sentinel(spatial.Equals)
	require.True(t, ok)
	assert.Equal(t, 1, sentinel)

	err := renderErr(ms, op(spatial.X), dialect.ColumnArg(roads()), dialect.ScalarArg(1))
	assert.True(t, geoerr.IsInvalidInput(err))

	err = renderErr(ms, op(spatial.WKT))
	assert.True(t, geoerr.IsInvalidInput(err))

	or := dialect.Oracle()
	sql, _ = render(t, or, op(spatial.GType), dialect.ColumnArg(roads()))
	assert.Equal(t, "roads.geom.Get_GType()", sql)
}

func TestMSSQLDatabaseValueCast(t *testing.T) {
	sql, params := render(t, dialect.MSSQL(), op(spatial.GeomFromDB), dialect.ScalarArg([]byte{1, 2}))
	assert.Equal(t, "CAST(CAST(@p1 AS VARBINARY(max)) AS geometry)", sql)
	assert.Equal(t, []any{[]byte{1, 2}}, params)

	sql, _ = render(t, dialect.PostGIS(), op(spatial.GeomFromDB), dialect.ScalarArg([]byte{1}))
	assert.Equal(t, "($1)", sql)
}

func TestChains(t *testing.T) {
	or := dialect.Oracle()

	sql, _ := render(t, or, op(spatial.WKT), dialect.ColumnArg(roads()))
	assert.Equal(t, "TO_CHAR(SDO_UTIL.TO_WKTGEOMETRY(roads.geom))", sql)

	sql, _ = render(t, or, op(spatial.Dimension), dialect.ColumnArg(roads()))
	assert.Equal(t, "MDSYS.ST_GEOMETRY.ST_DIMENSION(MDSYS.ST_GEOMETRY(roads.geom))", sql)

	sql, _ = render(t, or, op(spatial.GML311), dialect.ColumnArg(roads()))
	assert.Equal(t, "TO_CHAR(SDO_UTIL.TO_GML311GEOMETRY(roads.geom))", sql)
}

func TestOracleSubtypeCasts(t *testing.T) {
	or := dialect.Oracle()
	cities := geom.NewColumn("cities", "loc")
	cities.Type = geom.Point

	tests := []struct {
		name string
		ctx  dialect.Context
		args []dialect.Arg
		want string
	}{
		{
			name: "column subtype",
			ctx:  op(spatial.X),
			args: []dialect.Arg{dialect.ColumnArg(cities)},
			want: "MDSYS.OGC_X(ST_POINT(cities.loc))",
		},
		{
			name: "untyped expression",
			ctx:  op(spatial.X),
			args: []dialect.Arg{dialect.ExprArg(sqlexpr.Ident("g"))},
			want: "MDSYS.OGC_X(g)",
		},
		{
			name: "default cast",
			ctx:  where(spatial.IsEmpty),
			args: []dialect.Arg{dialect.ExprArg(sqlexpr.Ident("g"))},
			want: "MDSYS.OGC_IsEmpty(ST_GEOMETRY(g))",
		},
		{
			name: "geometry result cast back",
			ctx:  op(spatial.Envelope),
			args: []dialect.Arg{dialect.ColumnArg(roads())},
			want: "ST_GEOMETRY.GET_SDO_GEOM(MDSYS.ST_GEOMETRY.ST_Envelope(ST_GEOMETRY(roads.geom)))",
		},
		{
			name: "relation casts both",
			ctx:  where(spatial.Intersects),
			args: []dialect.Arg{dialect.ColumnArg(roads()), dialect.ColumnArg(lakes())},
			want: "MDSYS.OGC_Intersects(ST_GEOMETRY(roads.geom), ST_GEOMETRY(lakes.shore))",
		},
		{
			name: "extra arguments follow",
			ctx:  op(spatial.PointN),
			args: []dialect.Arg{dialect.ColumnArg(roads()), dialect.ScalarArg(2)},
			want: "ST_GEOMETRY.GET_SDO_GEOM(MDSYS.OGC_PointN(ST_GEOMETRY(roads.geom), :1))",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, _ := render(t, or, tt.ctx, tt.args...)
			assert.Equal(t, tt.want, sql)
		})
	}

	sentinel, ok := or.Sentinel(spatial.Intersects)
	require.True(t, ok)
	assert.Equal(t, 1, sentinel)
}

func TestOracleDimInfo(t *testing.T) {
	or := dialect.Oracle()

	t.Run("column subselect", func(t *testing.T) {
		sql, params := render(t, or, op(spatial.Area), dialect.ColumnArg(roads()))
		assert.Equal(t, "SDO_GEOM.SDO_AREA(roads.geom, (SELECT diminfo FROM ALL_SDO_GEOM_METADATA WHERE table_name = :1 AND column_name = :2))", sql)
		assert.Equal(t, []any{"ROADS", "GEOM"}, params)
	})

	t.Run("persisted value carries diminfo", func(t *testing.T) {
		bin, err := geom.NewBinary([]byte{1}, geom.WithDimInfo("MDSYS.SDO_DIM_ARRAY()"))
		require.NoError(t, err)
		arg := dialect.Arg{Kind: dialect.ArgValue, SQL: sqlexpr.Ident("g"), Value: bin}
		sql, _ := render(t, or, op(spatial.Length), arg)
		assert.Equal(t, "SDO_GEOM.SDO_LENGTH(g, MDSYS.SDO_DIM_ARRAY())", sql)
	})

	t.Run("missing diminfo without tolerance", func(t *testing.T) {
		err := renderErr(or, op(spatial.Area), textArg(t, or, "POLYGON((0 0,1 0,1 1,0 0))"))
		require.Error(t, err)
		assert.True(t, geoerr.IsMissingParameter(err))
		var gerr *geoerr.Error
		require.True(t, errors.As(err, &gerr))
		assert.Equal(t, "tolerance", gerr.Param)
		assert.Equal(t, "area", gerr.Op)
		assert.NotEmpty(t, gerr.Hint)
	})

	t.Run("tolerance flag replaces diminfo", func(t *testing.T) {
		ctx := dialect.Context{Op: spatial.Distance, Flags: map[string]any{spatial.FlagTolerance: 0.005}}
		sql, params := render(t, or, ctx, dialect.ColumnArg(roads()), textArg(t, or, "POINT(0 0)"))
		assert.Equal(t, "SDO_GEOM.SDO_DISTANCE(roads.geom, MDSYS.SDO_GEOMETRY(:1, :2), :3)", sql)
		assert.Equal(t, []any{"POINT(0 0)", 4326, 0.005}, params)
	})

	t.Run("auto diminfo off", func(t *testing.T) {
		ctx := dialect.Context{Op: spatial.Area, Flags: map[string]any{spatial.FlagAutoDimInfo: false}}
		sql, params := render(t, or, ctx, dialect.ColumnArg(roads()), dialect.ScalarArg(0.5))
		assert.Equal(t, "SDO_GEOM.SDO_AREA(roads.geom, :1)", sql)
		assert.Equal(t, []any{0.5}, params)
	})

	t.Run("auto diminfo must be a boolean", func(t *testing.T) {
		for _, v := range []any{"true", 1, nil} {
			ctx := dialect.Context{Op: spatial.Area, Flags: map[string]any{spatial.FlagAutoDimInfo: v}}
			err := renderErr(or, ctx, dialect.ColumnArg(roads()))
			require.Error(t, err, "value %#v", v)
			assert.True(t, geoerr.IsInvalidInput(err))
			assert.Contains(t, err.Error(), "auto_diminfo")
		}
	})
}

func TestOracleWithinDistance(t *testing.T) {
	or := dialect.Oracle()

	t.Run("indexed operator", func(t *testing.T) {
		ctx := dialect.Context{Op: spatial.WithinDistance, Boolean: true,
			Flags: map[string]any{spatial.FlagParams: "unit=km"}}
		sql, params := render(t, or, ctx, dialect.ColumnArg(roads()), textArg(t, or, "POINT(0 0)"), dialect.ScalarArg(10))
		assert.Equal(t, "SDO_WITHIN_DISTANCE(roads.geom, MDSYS.SDO_GEOMETRY(:1, :2), :3)", sql)
		assert.Equal(t, []any{"POINT(0 0)", 4326, "distance=10 unit=km"}, params)
	})

	t.Run("function with tolerance", func(t *testing.T) {
		ctx := dialect.Context{Op: spatial.WithinDistance, Flags: map[string]any{spatial.FlagTolerance: 0.05}}
		sql, params := render(t, or, ctx, dialect.ExprArg(sqlexpr.Ident("g")), dialect.ColumnArg(roads()), dialect.ScalarArg(10))
		assert.Equal(t, "SDO_GEOM.WITHIN_DISTANCE(g, :1, roads.geom, :2)", sql)
		assert.Equal(t, []any{10, 0.05}, params)
	})

	t.Run("function with diminfo arrays", func(t *testing.T) {
		ctx := dialect.Context{Op: spatial.WithinDistance, Flags: map[string]any{
			spatial.FlagDim1: "D1", spatial.FlagDim2: "D2", spatial.FlagParams: "unit=m",
		}}
		sql, params := render(t, or, ctx, dialect.ExprArg(sqlexpr.Ident("a")), dialect.ExprArg(sqlexpr.Ident("b")), dialect.ScalarArg(3))
		assert.Equal(t, "SDO_GEOM.WITHIN_DISTANCE(a, D1, :1, b, D2, :2)", sql)
		assert.Equal(t, []any{3, "unit=m"}, params)
	})

	t.Run("nothing to derive tolerance from", func(t *testing.T) {
		err := renderErr(or, where(spatial.WithinDistance),
			dialect.ExprArg(sqlexpr.Ident("a")), dialect.ColumnArg(roads()), dialect.ScalarArg(3))
		assert.True(t, geoerr.IsMissingParameter(err))
	})

	sentinel, ok := or.Sentinel(spatial.WithinDistance)
	require.True(t, ok)
	assert.Equal(t, "TRUE", sentinel)
}

func TestOracleEqualsSentinel(t *testing.T) {
	or := dialect.Oracle()
	sql, _ := render(t, or, where(spatial.Equals), dialect.ColumnArg(roads()), textArg(t, or, "POINT(0 0)"))
	assert.Equal(t, "SDO_EQUAL(roads.geom, MDSYS.SDO_GEOMETRY(:1, :2))", sql)

	sentinel, ok := or.Sentinel(spatial.Equals)
	require.True(t, ok)
	assert.Equal(t, "TRUE", sentinel)

	_, ok = dialect.PostGIS().Sentinel(spatial.Equals)
	assert.False(t, ok)
}

func TestMySQLWithinDistanceCompound(t *testing.T) {
	my := dialect.MySQL()
	sql, params := render(t, my, where(spatial.WithinDistance),
		dialect.ColumnArg(roads()), textArg(t, my, "POINT(0 0)"), dialect.ScalarArg(10))

	assert.True(t, strings.HasPrefix(sql, "(MBRIntersects(roads.geom, GeomFromText(Concat('Polygon((', X(StartPoint(ExteriorRing(Envelope(GeomFromText(?, ?))))) - ?, ' ', "), sql)
	assert.Equal(t, 2, strings.Count(sql, "MBRIntersects("))
	assert.Contains(t, sql, "MBRIntersects(GeomFromText(?, ?), GeomFromText(Concat('Polygon((', X(StartPoint(ExteriorRing(Envelope(roads.geom)))) - ?")
	assert.Contains(t, sql, "X(PointN(ExteriorRing(Envelope(roads.geom)), 3)) + ?")
	assert.True(t, strings.HasSuffix(sql, " AND Distance(roads.geom, GeomFromText(?, ?)) <= ?)"), sql)
	assert.NotContains(t, sql, "DWithin")
	assert.Equal(t, strings.Count(sql, "?"), len(params))
}

func TestHandlerSubExpressionsFollowOverrides(t *testing.T) {
	args := []dialect.Arg{dialect.ColumnArg(roads()), dialect.ColumnArg(lakes()), dialect.ScalarArg(10)}

	t.Run("mysql", func(t *testing.T) {
		my := dialect.MySQL().Override(map[spatial.Op]dialect.Strategy{
			spatial.Envelope:      dialect.Name("ST_Envelope"),
			spatial.MBRIntersects: dialect.Name("MBRIntersectsEx"),
			spatial.SRID:          dialect.Name("ST_SRID"),
		})
		sql, _ := render(t, my, where(spatial.WithinDistance), args...)
		assert.Contains(t, sql, "ExteriorRing(ST_Envelope(roads.geom))")
		assert.NotContains(t, sql, "(Envelope(")
		assert.Equal(t, 2, strings.Count(sql, "MBRIntersectsEx("))
		assert.Contains(t, sql, "ST_SRID(lakes.shore)")

		base, _ := render(t, dialect.MySQL(), where(spatial.WithinDistance), args...)
		assert.Contains(t, base, "ExteriorRing(Envelope(roads.geom))")
	})

	t.Run("spatialite", func(t *testing.T) {
		sl := dialect.SpatiaLite().Override(map[spatial.Op]dialect.Strategy{
			spatial.Distance: dialect.Name("ST_Distance"),
		})
		sql, _ := render(t, sl, where(spatial.WithinDistance), args...)
		assert.Equal(t, "ST_Distance(roads.geom, lakes.shore) <= ?", sql)
	})

	t.Run("unsupported sub-expression", func(t *testing.T) {
		my := dialect.MySQL().Override(map[spatial.Op]dialect.Strategy{spatial.Envelope: dialect.Unsupported})
		err := renderErr(my, where(spatial.WithinDistance), args...)
		assert.True(t, geoerr.IsUnsupportedOperation(err))

		pg := dialect.PostGIS().Override(map[spatial.Op]dialect.Strategy{spatial.Expand: dialect.Unsupported})
		ctx := dialect.Context{Op: spatial.WithinDistance, Boolean: true, Version: "v1.3.3"}
		err = renderErr(pg, ctx, args...)
		assert.True(t, geoerr.IsUnsupportedOperation(err))
	})

	t.Run("copy leaves the original alone", func(t *testing.T) {
		orig := dialect.MySQL()
		_ = orig.Override(map[spatial.Op]dialect.Strategy{spatial.Distance: dialect.Name("Distance")})
		assert.False(t, orig.Supports(spatial.Distance))
	})
}

func TestUnsupportedOperations(t *testing.T) {
	tests := []struct {
		desc *dialect.Descriptor
		op   spatial.Op
	}{
		{dialect.MySQL(), spatial.Distance},
		{dialect.MySQL(), spatial.Touches},
		{dialect.MySQL(), spatial.Centroid},
		{dialect.MSSQL(), spatial.Transform},
		{dialect.MSSQL(), spatial.WithinDistance},
		{dialect.MSSQL(), spatial.Covers},
		{dialect.MSSQL(), spatial.Intersection},
		{dialect.Oracle(), spatial.IsValid},
		{dialect.SpatiaLite(), spatial.Union},
		{dialect.PostGIS(), spatial.MBRContains},
	}
	for _, tt := range tests {
		t.Run(tt.desc.Name()+"/"+tt.op.String(), func(t *testing.T) {
			assert.False(t, tt.desc.Supports(tt.op))
			err := renderErr(tt.desc, op(tt.op), dialect.ColumnArg(roads()), dialect.ColumnArg(lakes()))
			require.Error(t, err)
			assert.True(t, geoerr.IsUnsupportedOperation(err))

			var gerr *geoerr.Error
			require.True(t, errors.As(err, &gerr))
			assert.Equal(t, tt.op.String(), gerr.Op)
			assert.Equal(t, tt.desc.Name(), gerr.Dialect)
			assert.Contains(t, err.Error(), tt.op.String())
			assert.Contains(t, err.Error(), tt.desc.Name())
		})
	}

	err := renderErr(dialect.PostGIS(), op(spatial.Invalid))
	assert.True(t, geoerr.IsUnsupportedOperation(err))
}

func TestPostGISWithinDistanceVersions(t *testing.T) {
	pg := dialect.PostGIS()
	args := []dialect.Arg{dialect.ColumnArg(roads()), dialect.ColumnArg(lakes()), dialect.ScalarArg(10)}

	tests := []struct {
		version string
		want    string
	}{
		{"", "ST_DWithin(roads.geom, lakes.shore, $1)"},
		{"v1.3.4", "ST_DWithin(roads.geom, lakes.shore, $1)"},
		{"v3.4.2", "ST_DWithin(roads.geom, lakes.shore, $1)"},
		{"v1.3.3", "(ST_Expand(lakes.shore, $1) && roads.geom AND ST_Expand(roads.geom, $2) && lakes.shore AND ST_Distance(roads.geom, lakes.shore) <= $3)"},
	}
	for _, tt := range tests {
		t.Run("version "+tt.version, func(t *testing.T) {
			ctx := dialect.Context{Op: spatial.WithinDistance, Boolean: true, Version: tt.version}
			sql, _ := render(t, pg, ctx, args...)
			assert.Equal(t, tt.want, sql)
		})
	}

	err := renderErr(pg, where(spatial.WithinDistance), args[:2]...)
	assert.True(t, geoerr.IsInvalidInput(err))
}

func TestSpatiaLiteWithinDistance(t *testing.T) {
	sl := dialect.SpatiaLite()
	args := []dialect.Arg{dialect.ColumnArg(roads()), dialect.ColumnArg(lakes()), dialect.ScalarArg(10)}

	t.Run("rtree index", func(t *testing.T) {
		ctx := dialect.Context{Op: spatial.WithinDistance, Boolean: true, Version: "v3.7.17"}
		sql, params := render(t, sl, ctx, args...)
		assert.Equal(t, "(Distance(roads.geom, lakes.shore) <= ? AND roads.rowid IN (SELECT pkid FROM idx_roads_geom "+
			"WHERE xmin >= MbrMinX(lakes.shore) - ? AND xmax <= MbrMaxX(lakes.shore) + ? "+
			"AND ymin >= MbrMinY(lakes.shore) - ? AND ymax <= MbrMaxY(lakes.shore) + ?))", sql)
		assert.Equal(t, []any{10, 10, 10, 10, 10}, params)
	})

	t.Run("unknown version", func(t *testing.T) {
		sql, _ := render(t, sl, where(spatial.WithinDistance), args...)
		assert.Equal(t, "Distance(roads.geom, lakes.shore) <= ?", sql)
	})

	t.Run("unindexed column", func(t *testing.T) {
		col := roads()
		col.SpatialIndex = false
		ctx := dialect.Context{Op: spatial.WithinDistance, Version: "v3.7.17"}
		sql, _ := render(t, sl, ctx, dialect.ColumnArg(col), args[1], args[2])
		assert.Equal(t, "Distance(roads.geom, lakes.shore) <= ?", sql)
	})
}

func TestCanonicalVersion(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"3.4 USE_GEOS=1 USE_PROJ=1 USE_STATS=1", "v3.4"},
		{"1.3.3", "v1.3.3"},
		{"8.0.36-0ubuntu0.22.04.1", "v8.0.36"},
		{"15.0.2000.5", "v15.0.2000"},
		{"v2.1", "v2.1"},
		{"", ""},
		{"unknown", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, dialect.CanonicalVersion(tt.raw))
		})
	}
}

var callName = regexp.MustCompile(`[A-Za-z_]\w*(?:(?:\.|::)[A-Za-z_]\w*)*\(`)

// emittedNames lists the name segments of every function call in sql.
func emittedNames(sql string) []string {
	var names []string
	for _, m := range callName.FindAllString(sql, -1) {
		m = strings.TrimSuffix(m, "(")
		names = append(names, strings.FieldsFunc(m, func(r rune) bool { return r == '.' || r == ':' })...)
	}
	return names
}

func TestNoCrossDialectLeakage(t *testing.T) {
	all := []*dialect.Descriptor{
		dialect.PostGIS(), dialect.MySQL(), dialect.Oracle(), dialect.MSSQL(), dialect.SpatiaLite(),
	}
	vocab := make(map[string]map[string]bool)
	for _, d := range all {
		set := make(map[string]bool)
		for _, n := range d.Vocabulary() {
			set[n] = true
		}
		vocab[d.Name()] = set
	}

	variants := [][]dialect.Arg{
		{dialect.ColumnArg(roads())},
		{dialect.ColumnArg(roads()), dialect.ColumnArg(lakes())},
		{dialect.ColumnArg(roads()), dialect.ColumnArg(lakes()), dialect.ScalarArg(10)},
	}

	for _, d := range all {
		for _, o := range spatial.All() {
			if !d.Supports(o) {
				continue
			}
			var sql string
			for _, args := range variants {
				e, err := d.Render(where(o), args)
				if err != nil {
					continue
				}
				s, _, err := sqlexpr.Render(e, d.Placeholder())
				require.NoError(t, err)
				sql = s
				break
			}
			require.NotEmpty(t, sql, "%s could not render %s", d.Name(), o)

			for _, name := range emittedNames(sql) {
				if vocab[d.Name()][name] {
					continue
				}
				for _, other := range all {
					assert.False(t, vocab[other.Name()][name],
						"%s rendering %s emitted %q from %s: %s", d.Name(), o, name, other.Name(), sql)
				}
			}
		}
	}
}

func TestColumnAddedStatements(t *testing.T) {
	sqls := func(t *testing.T, stmts []sq.Sqlizer) []string {
		t.Helper()
		out := make([]string, len(stmts))
		for i, s := range stmts {
			q, _, err := s.ToSql()
			require.NoError(t, err)
			out[i] = q
		}
		return out
	}

	t.Run("postgis", func(t *testing.T) {
		col := roads()
		col.Nullable = false
		stmts, err := dialect.PostGIS().ColumnAdded(col, "")
		require.NoError(t, err)
		assert.Equal(t, []string{
			"SELECT AddGeometryColumn(?, ?, ?, ?, ?, ?)",
			`CREATE INDEX "idx_roads_geom" ON "public"."roads" USING GIST (geom)`,
			`ALTER TABLE "public"."roads" ALTER COLUMN "geom" SET not null`,
		}, sqls(t, stmts))
		_, args, err := stmts[0].ToSql()
		require.NoError(t, err)
		assert.Equal(t, []any{"public", "roads", "geom", 4326, "GEOMETRY", 2}, args)

		drop, err := dialect.PostGIS().ColumnRemoved(col, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"SELECT DropGeometryColumn(?, ?, ?)"}, sqls(t, drop))
	})

	t.Run("mysql", func(t *testing.T) {
		col := roads()
		col.Type = geom.LineString
		stmts, err := dialect.MySQL().ColumnAdded(col, "")
		require.NoError(t, err)
		assert.Equal(t, []string{
			"ALTER TABLE roads ADD geom LINESTRING NOT NULL",
			"CREATE SPATIAL INDEX idx_roads_geom ON roads(geom)",
		}, sqls(t, stmts))
	})

	t.Run("spatialite", func(t *testing.T) {
		stmts, err := dialect.SpatiaLite().ColumnAdded(roads(), "v3.7.17")
		require.NoError(t, err)
		assert.Equal(t, []string{
			"SELECT AddGeometryColumn(?, ?, ?, ?, ?, ?)",
			"SELECT CreateSpatialIndex('roads', 'geom')",
			"VACUUM",
		}, sqls(t, stmts))

		drop, err := dialect.SpatiaLite().ColumnRemoved(roads(), "v3.7.17")
		require.NoError(t, err)
		assert.Equal(t, []string{
			"SELECT DisableSpatialIndex(?, ?)",
			"DROP TABLE idx_roads_geom",
			"SELECT DiscardGeometryColumn(?, ?)",
		}, sqls(t, drop))

		old, err := dialect.SpatiaLite().ColumnAdded(roads(), "v3.5.9")
		require.NoError(t, err)
		assert.Len(t, old, 1)
	})

	t.Run("oracle", func(t *testing.T) {
		col := roads()
		col.Type = geom.MultiLineString
		col.DimInfo = "MDSYS.SDO_DIM_ARRAY()"
		stmts, err := dialect.Oracle().ColumnAdded(col, "")
		require.NoError(t, err)
		assert.Equal(t, []string{
			"ALTER TABLE roads ADD geom SDO_GEOMETRY",
			"INSERT INTO USER_SDO_GEOM_METADATA (table_name,column_name,diminfo,srid) VALUES (?,?,MDSYS.SDO_DIM_ARRAY(),?)",
			"CREATE INDEX roads_geom_sidx ON roads(geom) INDEXTYPE IS MDSYS.SPATIAL_INDEX PARAMETERS ('LAYER_GTYPE=MULTILINE')",
		}, sqls(t, stmts))

		drop, err := dialect.Oracle().ColumnRemoved(col, "")
		require.NoError(t, err)
		assert.Equal(t, []string{
			"DELETE FROM USER_SDO_GEOM_METADATA WHERE table_name = ? AND column_name = ?",
			"DROP INDEX roads_geom_sidx",
		}, sqls(t, drop))

		bare, err := dialect.Oracle().ColumnAdded(roads(), "")
		require.NoError(t, err)
		assert.Len(t, bare, 1)
	})

	t.Run("mssql", func(t *testing.T) {
		col := roads()
		col.BoundingBox = "(0, 0, 500, 200)"
		stmts, err := dialect.MSSQL().ColumnAdded(col, "")
		require.NoError(t, err)
		assert.Equal(t, []string{
			"ALTER TABLE [dbo].[roads] ADD [geom] GEOMETRY NULL",
			"CREATE SPATIAL INDEX [roads_geom] ON [dbo].[roads]([geom]) WITH (BOUNDING_BOX = (0, 0, 500, 200))",
		}, sqls(t, stmts))

		drop, err := dialect.MSSQL().ColumnRemoved(col, "")
		require.NoError(t, err)
		assert.Empty(t, drop)
	})
}

func TestDecode(t *testing.T) {
	payload, err := wkb.Marshal(gogeom.NewPointFlat(gogeom.XY, []float64{1, 2}), binary.LittleEndian)
	require.NoError(t, err)

	col := roads()
	col.SRID = 2249

	p, err := dialect.Oracle().Decode(bytes.NewReader(payload), col)
	require.NoError(t, err)
	srid, ok := geom.SRIDOf(p)
	require.True(t, ok)
	assert.Equal(t, 2249, srid)
	got, ok := geom.WKBOf(p)
	require.True(t, ok)
	assert.Equal(t, payload, got)

	col.WKTInternal = true
	p, err = dialect.PostGIS().Decode("POINT(1 2)", col)
	require.NoError(t, err)
	wkt, ok := geom.WKTOf(p)
	require.True(t, ok)
	assert.Equal(t, "POINT(1 2)", wkt)

	_, err = dialect.MySQL().Decode(42, col)
	assert.True(t, geoerr.IsInvalidInput(err))
}

func TestPostGISDecodeEWKB(t *testing.T) {
	point := gogeom.NewPointFlat(gogeom.XY, []float64{1, 2})
	plain, err := wkb.Marshal(point, binary.LittleEndian)
	require.NoError(t, err)
	extended, err := ewkb.Marshal(gogeom.NewPointFlat(gogeom.XY, []float64{1, 2}).SetSRID(3857), binary.LittleEndian)
	require.NoError(t, err)

	col := roads()
	col.SRID = 4326

	tests := []struct {
		name     string
		raw      any
		wantSRID int
		wantWKB  []byte
	}{
		{"ewkb bytes", extended, 3857, plain},
		{"ewkb hex", hex.EncodeToString(extended), 3857, plain},
		{"plain wkb keeps column srid", plain, 4326, plain},
		{"opaque bytes", []byte{0xde, 0xad}, 4326, []byte{0xde, 0xad}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := dialect.PostGIS().Decode(tt.raw, col)
			require.NoError(t, err)
			srid, ok := geom.SRIDOf(p)
			require.True(t, ok)
			assert.Equal(t, tt.wantSRID, srid)
			got, ok := geom.WKBOf(p)
			require.True(t, ok)
			assert.Equal(t, tt.wantWKB, got)
		})
	}
}

func TestVocabularyIsSorted(t *testing.T) {
	v := dialect.MSSQL().Vocabulary()
	assert.IsIncreasing(t, v)
	assert.Contains(t, v, "STGeomFromText")
	assert.Contains(t, v, "geometry")
	assert.NotContains(t, v, "ST_DWithin")
}
