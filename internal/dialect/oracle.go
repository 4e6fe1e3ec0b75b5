package dialect

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/geosql/internal/geoerr"
	"github.com/roach88/geosql/internal/geom"
	"github.com/roach88/geosql/internal/spatial"
	"github.com/roach88/geosql/internal/sqlexpr"
)

// MetadataTable is the catalog Oracle keeps per-column DIMINFO arrays in.
const MetadataTable = "ALL_SDO_GEOM_METADATA"

var upper = cases.Upper(language.Und)

// Oracle returns the descriptor for Oracle Spatial.
func Oracle() *Descriptor {
	vocab := []string{
		"ST_GEOMETRY.GET_SDO_GEOM", "SDO_WITHIN_DISTANCE", "SDO_GEOM.WITHIN_DISTANCE", "TO_BLOB",
	}
	for _, t := range []geom.GeometryType{
		geom.Geometry, geom.Point, geom.Curve, geom.LineString, geom.Polygon,
		geom.MultiPoint, geom.MultiLineString, geom.MultiPolygon, geom.GeometryCollection,
	} {
		vocab = append(vocab, "ST_"+string(t))
	}

	ogc := func(name string, relation, defaultCast bool) Strategy {
		vocab = append(vocab, name)
		return Handler(stFunc(name, relation, defaultCast))
	}
	dim := func(name string) Strategy {
		vocab = append(vocab, name)
		return Handler(dimInfoFunc(name))
	}

	overrides := map[spatial.Op]Strategy{
		spatial.WKT:            Chain{"TO_CHAR", "SDO_UTIL.TO_WKTGEOMETRY"},
		spatial.GeomFromText:   Name("MDSYS.SDO_GEOMETRY"),
		spatial.WKB:            Name("SDO_UTIL.TO_WKBGEOMETRY"),
		spatial.GeomFromWKB:    Name("MDSYS.SDO_GEOMETRY"),
		spatial.Dimension:      Chain{"MDSYS.ST_GEOMETRY.ST_DIMENSION", "MDSYS.ST_GEOMETRY"},
		spatial.SRID:           Chain{"MDSYS.OGC_SRID", "MDSYS.ST_GEOMETRY"},
		spatial.GeometryType:   Chain{"MDSYS.OGC_GeometryType", "MDSYS.ST_GEOMETRY"},
		spatial.IsValid:        Unsupported,
		spatial.IsEmpty:        ogc("MDSYS.OGC_IsEmpty", false, true),
		spatial.IsSimple:       ogc("MDSYS.OGC_IsSimple", false, true),
		spatial.IsClosed:       ogc("MDSYS.OGC_IsClosed", false, false),
		spatial.IsRing:         ogc("MDSYS.OGC_IsRing", false, false),
		spatial.NumPoints:      ogc("MDSYS.OGC_NumPoints", false, false),
		spatial.PointN:         ogc("MDSYS.OGC_PointN", false, false),
		spatial.Length:         dim("SDO_GEOM.SDO_LENGTH"),
		spatial.Area:           dim("SDO_GEOM.SDO_AREA"),
		spatial.X:              ogc("MDSYS.OGC_X", false, false),
		spatial.Y:              ogc("MDSYS.OGC_Y", false, false),
		spatial.Centroid:       dim("SDO_GEOM.SDO_CENTROID"),
		spatial.Boundary:       ogc("MDSYS.ST_GEOMETRY.ST_Boundary", false, false),
		spatial.Buffer:         dim("SDO_GEOM.SDO_BUFFER"),
		spatial.ConvexHull:     dim("SDO_GEOM.SDO_CONVEXHULL"),
		spatial.Envelope:       ogc("MDSYS.ST_GEOMETRY.ST_Envelope", false, false),
		spatial.StartPoint:     ogc("MDSYS.OGC_StartPoint", false, false),
		spatial.EndPoint:       ogc("MDSYS.OGC_EndPoint", false, false),
		spatial.Transform:      Name("SDO_CS.TRANSFORM"),
		spatial.Equals:         Name("SDO_EQUAL"),
		spatial.Distance:       dim("SDO_GEOM.SDO_DISTANCE"),
		spatial.WithinDistance: Handler(oracleWithinDistance),
		spatial.Disjoint:       ogc("MDSYS.OGC_Disjoint", true, true),
		spatial.Intersects:     ogc("MDSYS.OGC_Intersects", true, true),
		spatial.Touches:        ogc("MDSYS.OGC_Touch", true, true),
		spatial.Crosses:        ogc("MDSYS.OGC_Cross", true, true),
		spatial.Within:         ogc("MDSYS.OGC_Within", true, true),
		spatial.Overlaps:       ogc("MDSYS.OGC_Overlap", true, true),
		spatial.Contains:       ogc("MDSYS.OGC_Contains", true, true),
		spatial.Covers:         Unsupported,
		spatial.CoveredBy:      Unsupported,
		spatial.Intersection:   dim("SDO_GEOM.SDO_INTERSECTION"),
		spatial.Union:          Unsupported,
		spatial.Collect:        Unsupported,
		spatial.Extent:         Unsupported,

		spatial.GType:  Name("Get_GType"),
		spatial.Dims:   Name("Get_Dims"),
		spatial.KML:    Chain{"TO_CHAR", "SDO_UTIL.TO_KMLGEOMETRY"},
		spatial.GML:    Chain{"TO_CHAR", "SDO_UTIL.TO_GMLGEOMETRY"},
		spatial.GML311: Chain{"TO_CHAR", "SDO_UTIL.TO_GML311GEOMETRY"},

		spatial.SDOFilter:              Name("SDO_FILTER"),
		spatial.SDONN:                  Name("SDO_NN"),
		spatial.SDONNDistance:          Name("SDO_NN_DISTANCE"),
		spatial.SDORelate:              Name("SDO_RELATE"),
		spatial.SDOWithinDistance:      Name("SDO_WITHIN_DISTANCE"),
		spatial.SDOAnyInteract:         Name("SDO_ANYINTERACT"),
		spatial.SDOContains:            Name("SDO_CONTAINS"),
		spatial.SDOCoveredBy:           Name("SDO_COVEREDBY"),
		spatial.SDOCovers:              Name("SDO_COVERS"),
		spatial.SDOEqual:               Name("SDO_EQUAL"),
		spatial.SDOInside:              Name("SDO_INSIDE"),
		spatial.SDOOn:                  Name("SDO_ON"),
		spatial.SDOOverlapBdyDisjoint:  Name("SDO_OVERLAPBDYDISJOINT"),
		spatial.SDOOverlapBdyIntersect: Name("SDO_OVERLAPBDYINTERSECT"),
		spatial.SDOOverlaps:            Name("SDO_OVERLAPS"),
		spatial.SDOTouch:               Name("SDO_TOUCH"),

		spatial.SDOGeomArea:                dim("SDO_GEOM.SDO_AREA"),
		spatial.SDOGeomBuffer:              dim("SDO_GEOM.SDO_BUFFER"),
		spatial.SDOGeomCentroid:            dim("SDO_GEOM.SDO_CENTROID"),
		spatial.SDOGeomConcaveHull:         Name("SDO_GEOM.SDO_CONCAVEHULL"),
		spatial.SDOGeomConcaveHullBoundary: Name("SDO_GEOM.SDO_CONCAVEHULL_BOUNDARY"),
		spatial.SDOGeomConvexHull:          dim("SDO_GEOM.SDO_CONVEXHULL"),
		spatial.SDOGeomDifference:          dim("SDO_GEOM.SDO_DIFFERENCE"),
		spatial.SDOGeomDistance:            dim("SDO_GEOM.SDO_DISTANCE"),
		spatial.SDOGeomIntersection:        dim("SDO_GEOM.SDO_INTERSECTION"),
		spatial.SDOGeomLength:              dim("SDO_GEOM.SDO_LENGTH"),
		spatial.SDOGeomMBR:                 dim("SDO_GEOM.SDO_MBR"),
		spatial.SDOGeomPointOnSurface:      dim("SDO_GEOM.SDO_POINTONSURFACE"),
		spatial.SDOGeomUnion:               dim("SDO_GEOM.SDO_UNION"),
		spatial.SDOGeomXor:                 dim("SDO_GEOM.SDO_XOR"),
		spatial.SDOGeomWithinDistance:      dim("SDO_GEOM.WITHIN_DISTANCE"),
	}

	sentinels := map[spatial.Op]any{
		spatial.Equals:                "TRUE",
		spatial.WithinDistance:        "TRUE",
		spatial.SDOGeomWithinDistance: "TRUE",
	}
	for _, op := range []spatial.Op{
		spatial.IsEmpty, spatial.IsSimple, spatial.IsClosed, spatial.IsRing,
		spatial.Disjoint, spatial.Intersects, spatial.Touches, spatial.Crosses,
		spatial.Within, spatial.Overlaps, spatial.Contains,
	} {
		sentinels[op] = 1
	}
	for _, op := range spatial.InCatalog(spatial.CatalogOracle) {
		if op.Result() == spatial.ResultBoolean && strings.HasPrefix(op.String(), "sdo_") {
			sentinels[op] = "TRUE"
		}
	}

	return &Descriptor{
		name:          OracleName,
		catalogs:      []spatial.Catalog{spatial.CatalogCore, spatial.CatalogOracle},
		placeholder:   sq.Colon,
		overrides:     overrides,
		members:       opSet(spatial.GType, spatial.Dims),
		sentinels:     sentinels,
		vocabulary:    vocab,
		versionQuery:  "SELECT version FROM product_component_version WHERE product LIKE 'Oracle%'",
		selectSuffix:  " FROM DUAL",
		columnAdded:   oracleColumnAdded,
		columnRemoved: oracleColumnRemoved,
		decode:        oracleDecode,
		bindWKB: func(e sqlexpr.Expr) sqlexpr.Expr {
			return sqlexpr.Call("TO_BLOB", e)
		},
	}
}

// stFunc renders an OGC or SQL/MM function. These take ST_GEOMETRY rather
// than SDO_GEOMETRY, so the first geometry (and the second for relations)
// is cast to ST_GEOMETRY or to the subtype the value declares, and
// geometry results are cast back with ST_GEOMETRY.GET_SDO_GEOM.
func stFunc(name string, relation, defaultCast bool) Handler {
	return func(ctx Context, args []Arg) (sqlexpr.Expr, error) {
		rest := exprs(args)
		first, ok := stCast(args, defaultCast)
		if !ok {
			return sqlexpr.Func{Name: name, Args: rest}, nil
		}
		call := []sqlexpr.Expr{first}
		rest = rest[1:]
		if relation {
			if second, ok := stCast(args[1:], defaultCast); ok {
				call = append(call, second)
				rest = rest[1:]
			}
		}
		var e sqlexpr.Expr = sqlexpr.Func{Name: name, Args: append(call, rest...)}
		if ctx.Op.ReturnsGeometry() {
			e = sqlexpr.Call("ST_GEOMETRY.GET_SDO_GEOM", e)
		}
		return e, nil
	}
}

func stCast(args []Arg, defaultCast bool) (sqlexpr.Expr, bool) {
	if len(args) == 0 {
		return nil, false
	}
	a := args[0]
	switch {
	case defaultCast:
		return sqlexpr.Call("ST_GEOMETRY", a.SQL), true
	case a.Kind == ArgValue && geom.TypeOf(a.Value) != geom.Geometry:
		return sqlexpr.Call("ST_"+string(geom.TypeOf(a.Value)), a.SQL), true
	case a.Kind == ArgColumn:
		return sqlexpr.Call("ST_"+string(a.Column.GeometryType()), a.SQL), true
	}
	return nil, false
}

// DimInfoSelect returns the subselect reading col's DIMINFO array from
// the metadata catalog.
func DimInfoSelect(col *geom.Column) sq.SelectBuilder {
	return sq.Select("diminfo").
		From(MetadataTable).
		Where(sq.Eq{"table_name": upper.String(col.Table)}).
		Where(sq.Eq{"column_name": upper.String(col.Name)})
}

func dimInfoOf(a Arg) (sqlexpr.Expr, bool) {
	switch a.Kind {
	case ArgColumn:
		return sqlexpr.Sub{Query: DimInfoSelect(a.Column)}, true
	case ArgValue:
		if d := geom.DimInfoOf(a.Value); d != "" {
			return sqlexpr.Raw{SQL: d}, true
		}
	}
	return nil, false
}

// dimInfoFunc renders an SDO_GEOM function that takes a DIMINFO array
// after each geometry, or a single tolerance in their place.
func dimInfoFunc(name string) Handler {
	return func(ctx Context, args []Arg) (sqlexpr.Expr, error) {
		tol, hasTol := ctx.Flag(spatial.FlagTolerance)
		auto := true
		if v, ok := ctx.Flag(spatial.FlagAutoDimInfo); ok {
			b, isBool := v.(bool)
			if !isBool {
				return nil, geoerr.InvalidInput("flag %s of %s must be a boolean, got %T", spatial.FlagAutoDimInfo, ctx.Op, v)
			}
			auto = b
		}

		if auto {
			out := make([]sqlexpr.Expr, 0, 2*len(args))
			complete := true
			for _, a := range args {
				out = append(out, a.SQL)
				if !a.IsGeometry() {
					continue
				}
				d, ok := dimInfoOf(a)
				if !ok {
					complete = false
					break
				}
				out = append(out, d)
			}
			if complete {
				return sqlexpr.Func{Name: name, Args: out}, nil
			}
			if !hasTol {
				return nil, geoerr.MissingParameter(ctx.Op.String(), ctx.Dialect(), spatial.FlagTolerance,
					"pass a tolerance flag, or auto_diminfo=false with the tolerance as an argument")
			}
		}

		out := exprs(args)
		if hasTol {
			out = append(out, sqlexpr.Param{Value: tol})
		}
		return sqlexpr.Func{Name: name, Args: out}, nil
	}
}

// oracleWithinDistance uses the SDO_WITHIN_DISTANCE operator when the
// first geometry is a column, so the spatial index is used. Otherwise it
// falls back to SDO_GEOM.WITHIN_DISTANCE, which needs DIMINFO arrays or a
// tolerance.
func oracleWithinDistance(ctx Context, args []Arg) (sqlexpr.Expr, error) {
	if len(args) != 3 {
		return nil, arity(ctx, 3, len(args))
	}
	g1, g2, d := args[0].SQL, args[1].SQL, args[2].SQL
	params, _ := ctx.Flag(spatial.FlagParams)
	extra := ""
	if params != nil {
		extra = fmt.Sprint(params)
	}

	if args[0].Kind == ArgColumn {
		if args[2].Kind != ArgScalar {
			return nil, geoerr.InvalidInput("within_distance on oracle needs a literal distance for an indexed column")
		}
		spec := strings.TrimSpace(fmt.Sprintf("distance=%v %s", args[2].Scalar, extra))
		return ctx.Render(spatial.SDOWithinDistance, args[0], args[1], ScalarArg(spec))
	}

	var call []sqlexpr.Expr
	dim1, ok1 := ctx.Flag(spatial.FlagDim1)
	dim2, ok2 := ctx.Flag(spatial.FlagDim2)
	switch tol, hasTol := ctx.Flag(spatial.FlagTolerance); {
	case ok1 && ok2:
		call = []sqlexpr.Expr{g1, sqlexpr.Raw{SQL: fmt.Sprint(dim1)}, d, g2, sqlexpr.Raw{SQL: fmt.Sprint(dim2)}}
	case hasTol:
		call = []sqlexpr.Expr{g1, d, g2, sqlexpr.Param{Value: tol}}
	default:
		return nil, geoerr.MissingParameter(ctx.Op.String(), ctx.Dialect(), spatial.FlagTolerance,
			"pass dim1 and dim2 DIMINFO arrays or a tolerance flag")
	}
	if extra != "" {
		call = append(call, sqlexpr.Param{Value: extra})
	}
	return sqlexpr.Func{Name: "SDO_GEOM.WITHIN_DISTANCE", Args: call}, nil
}

// oracleLayerGType maps a column type to the LAYER_GTYPE index parameter.
func oracleLayerGType(t geom.GeometryType) string {
	switch t {
	case geom.Geometry:
		return ""
	case geom.LineString:
		return "LINE"
	case geom.MultiLineString:
		return "MULTILINE"
	case geom.GeometryCollection:
		return "COLLECTION"
	}
	return string(t)
}

func oracleColumnAdded(col *geom.Column, _ string) ([]sq.Sqlizer, error) {
	stmts := []sq.Sqlizer{
		sq.Expr(fmt.Sprintf("ALTER TABLE %s ADD %s SDO_GEOMETRY", col.Table, col.Name)),
	}
	if !col.Nullable {
		stmts = append(stmts, sq.Expr(fmt.Sprintf("ALTER TABLE %s MODIFY %s NOT NULL", col.Table, col.Name)))
	}
	if col.DimInfo == "" {
		slog.Warn("no DIMINFO for column, skipping metadata row and spatial index",
			"dialect", OracleName, "table", col.Table, "column", col.Name)
		return stmts, nil
	}

	stmts = append(stmts, sq.Insert("USER_SDO_GEOM_METADATA").
		Columns("table_name", "column_name", "diminfo", "srid").
		Values(upper.String(col.Table), upper.String(col.Name), sq.Expr(col.DimInfo), col.SRID))

	if col.SpatialIndex {
		idx := fmt.Sprintf("CREATE INDEX %s_%s_sidx ON %s(%s) INDEXTYPE IS MDSYS.SPATIAL_INDEX",
			col.Table, col.Name, col.Table, col.Name)
		if gt := oracleLayerGType(col.GeometryType()); gt != "" {
			idx += fmt.Sprintf(" PARAMETERS ('LAYER_GTYPE=%s')", gt)
		}
		stmts = append(stmts, sq.Expr(idx))
	}
	return stmts, nil
}

func oracleColumnRemoved(col *geom.Column, _ string) ([]sq.Sqlizer, error) {
	stmts := []sq.Sqlizer{
		sq.Delete("USER_SDO_GEOM_METADATA").
			Where(sq.Eq{"table_name": upper.String(col.Table)}).
			Where(sq.Eq{"column_name": upper.String(col.Name)}),
	}
	if col.SpatialIndex && col.DimInfo != "" {
		stmts = append(stmts, sq.Expr(fmt.Sprintf("DROP INDEX %s_%s_sidx", col.Table, col.Name)))
	}
	return stmts, nil
}

// oracleDecode reads WKB results, which the driver may hand back as a LOB
// stream.
func oracleDecode(raw any, col *geom.Column) (geom.Persisted, error) {
	if r, ok := raw.(io.Reader); ok {
		b, err := io.ReadAll(r)
		if err != nil {
			return geom.Persisted{}, fmt.Errorf("read geometry LOB: %w", err)
		}
		raw = b
	}
	return decodeBinary(raw, col)
}
