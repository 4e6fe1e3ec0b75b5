package dialect

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/wkb"

	"github.com/roach88/geosql/internal/geoerr"
	"github.com/roach88/geosql/internal/geom"
	"github.com/roach88/geosql/internal/spatial"
	"github.com/roach88/geosql/internal/sqlexpr"
)

// dwithinFixed is the first PostGIS release whose ST_DWithin handles a
// zero distance correctly.
const dwithinFixed = "v1.3.4"

// PostGIS returns the descriptor for PostgreSQL with PostGIS.
func PostGIS() *Descriptor {
	return &Descriptor{
		name:        PostGISName,
		catalogs:    []spatial.Catalog{spatial.CatalogCore, spatial.CatalogPostGIS},
		placeholder: sq.Dollar,
		overrides: map[spatial.Op]Strategy{
			spatial.WKT:            Name("ST_AsText"),
			spatial.WKB:            Name("ST_AsBinary"),
			spatial.GeomFromText:   Name("ST_GeomFromText"),
			spatial.GeomFromWKB:    Name("ST_GeomFromWKB"),
			spatial.Dimension:      Name("ST_Dimension"),
			spatial.SRID:           Name("ST_SRID"),
			spatial.GeometryType:   Name("ST_GeometryType"),
			spatial.IsValid:        Name("ST_IsValid"),
			spatial.IsEmpty:        Name("ST_IsEmpty"),
			spatial.IsSimple:       Name("ST_IsSimple"),
			spatial.IsClosed:       Name("ST_IsClosed"),
			spatial.IsRing:         Name("ST_IsRing"),
			spatial.NumPoints:      Name("ST_NumPoints"),
			spatial.PointN:         Name("ST_PointN"),
			spatial.Length:         Name("ST_Length"),
			spatial.Area:           Name("ST_Area"),
			spatial.X:              Name("ST_X"),
			spatial.Y:              Name("ST_Y"),
			spatial.Centroid:       Name("ST_Centroid"),
			spatial.Boundary:       Name("ST_Boundary"),
			spatial.Buffer:         Name("ST_Buffer"),
			spatial.ConvexHull:     Name("ST_ConvexHull"),
			spatial.Envelope:       Name("ST_Envelope"),
			spatial.StartPoint:     Name("ST_StartPoint"),
			spatial.EndPoint:       Name("ST_EndPoint"),
			spatial.Transform:      Name("ST_Transform"),
			spatial.Equals:         Name("ST_Equals"),
			spatial.Distance:       Name("ST_Distance"),
			spatial.WithinDistance: Handler(postgisWithinDistance),
			spatial.Disjoint:       Name("ST_Disjoint"),
			spatial.Intersects:     Name("ST_Intersects"),
			spatial.Touches:        Name("ST_Touches"),
			spatial.Crosses:        Name("ST_Crosses"),
			spatial.Within:         Name("ST_Within"),
			spatial.Overlaps:       Name("ST_Overlaps"),
			spatial.Contains:       Name("ST_Contains"),
			spatial.Covers:         Name("ST_Covers"),
			spatial.CoveredBy:      Name("ST_CoveredBy"),
			spatial.Intersection:   Name("ST_Intersection"),
			spatial.Union:          Name("ST_Union"),
			spatial.Collect:        Name("ST_Collect"),
			spatial.Extent:         Name("ST_Extent"),
			spatial.SVG:            Name("ST_AsSVG"),
			spatial.KML:            Name("ST_AsKML"),
			spatial.GML:            Name("ST_AsGML"),
			spatial.GeoJSON:        Name("ST_AsGeoJSON"),
			spatial.Expand:         Name("ST_Expand"),
		},
		vocabulary:    []string{"ST_DWithin"},
		textColumns:   true,
		versionQuery:  "SELECT PostGIS_Lib_Version()",
		columnAdded:   postgisColumnAdded,
		columnRemoved: postgisColumnRemoved,
		decode:        postgisDecode,
	}
}

// postgisWithinDistance uses ST_DWithin, or on releases before 1.3.4 the
// bounding-box expansion it is defined as.
func postgisWithinDistance(ctx Context, args []Arg) (sqlexpr.Expr, error) {
	if len(args) != 3 {
		return nil, arity(ctx, 3, len(args))
	}
	g1, g2, d := args[0].SQL, args[1].SQL, args[2].SQL

	if !versionBelow(ctx.Version, dwithinFixed) {
		return sqlexpr.Call("ST_DWithin", g1, g2, d), nil
	}
	c := &calls{ctx: ctx}
	e := sqlexpr.And{
		sqlexpr.Binary{Left: c.call(spatial.Expand, g2, d), Op: "&&", Right: g1},
		sqlexpr.Binary{Left: c.call(spatial.Expand, g1, d), Op: "&&", Right: g2},
		sqlexpr.Binary{Left: c.call(spatial.Distance, g1, g2), Op: "<=", Right: d},
	}
	if c.err != nil {
		return nil, c.err
	}
	return e, nil
}

func postgisSchema(col *geom.Column) string {
	if col.Schema == "" {
		return "public"
	}
	return col.Schema
}

func postgisColumnAdded(col *geom.Column, _ string) ([]sq.Sqlizer, error) {
	schema := postgisSchema(col)
	stmts := []sq.Sqlizer{
		sq.Select().Column(sq.Expr("AddGeometryColumn(?, ?, ?, ?, ?, ?)",
			schema, col.Table, col.Name, col.SRID, string(col.GeometryType()), col.Dimension)),
	}
	if col.SpatialIndex {
		stmts = append(stmts, sq.Expr(fmt.Sprintf(`CREATE INDEX "idx_%s_%s" ON "%s"."%s" USING GIST (%s)`,
			col.Table, col.Name, schema, col.Table, col.Name)))
	}
	if !col.Nullable {
		stmts = append(stmts, sq.Expr(fmt.Sprintf(`ALTER TABLE "%s"."%s" ALTER COLUMN "%s" SET not null`,
			schema, col.Table, col.Name)))
	}
	return stmts, nil
}

func postgisColumnRemoved(col *geom.Column, _ string) ([]sq.Sqlizer, error) {
	return []sq.Sqlizer{
		sq.Select().Column(sq.Expr("DropGeometryColumn(?, ?, ?)", postgisSchema(col), col.Table, col.Name)),
	}, nil
}

func postgisDecode(raw any, col *geom.Column) (geom.Persisted, error) {
	if !col.WKTInternal {
		return postgisDecodeEWKB(raw, col)
	}
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return decodeBinary(raw, col)
	}
	text, err := geom.NewText(s, geom.WithSRID(col.SRID), geom.WithType(col.GeometryType()))
	if err != nil {
		return geom.Persisted{}, err
	}
	return geom.NewPersisted(text)
}

// postgisDecodeEWKB reads a geometry column value, which PostGIS returns
// as EWKB (hex encoded in text mode). An embedded SRID wins over the
// column's and the payload is kept as plain WKB. Anything go-geom cannot
// parse is passed on as opaque bytes.
func postgisDecodeEWKB(raw any, col *geom.Column) (geom.Persisted, error) {
	var b []byte
	switch v := raw.(type) {
	case []byte:
		b = v
	case string:
		h, err := hex.DecodeString(v)
		if err != nil {
			return decodeBinary(raw, col)
		}
		b = h
	default:
		return decodeBinary(raw, col)
	}

	g, err := ewkb.Unmarshal(b)
	if err != nil || g.SRID() == 0 {
		return decodeBinary(b, col)
	}
	plain, err := wkb.Marshal(g, binary.LittleEndian)
	if err != nil {
		return geom.Persisted{}, geoerr.InvalidInput("re-encode ewkb: %v", err)
	}
	bin, err := geom.NewBinary(plain, geom.WithSRID(g.SRID()), geom.WithType(col.GeometryType()), geom.WithDimInfo(col.DimInfo))
	if err != nil {
		return geom.Persisted{}, err
	}
	return geom.NewPersisted(bin)
}
