package geom

import (
	"fmt"

	gogeom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geom/encoding/wkt"

	"github.com/roach88/geosql/internal/geoerr"
)

// Shape is a locally decoded geometry: a GeoJSON-style type name and its
// coordinates.
type Shape struct {
	Type        string
	Coordinates any
	SRID        int
}

// ShapeOf decodes a Text or Binary value without touching the database.
// Binary payloads are tried as plain WKB first, then as PostGIS EWKB.
func ShapeOf(v Value) (Shape, error) {
	g, srid, err := decode(v)
	if err != nil {
		return Shape{}, err
	}

	s := Shape{SRID: srid}
	switch t := g.(type) {
	case *gogeom.Point:
		s.Type, s.Coordinates = "Point", t.Coords()
	case *gogeom.LineString:
		s.Type, s.Coordinates = "LineString", t.Coords()
	case *gogeom.Polygon:
		s.Type, s.Coordinates = "Polygon", t.Coords()
	case *gogeom.MultiPoint:
		s.Type, s.Coordinates = "MultiPoint", t.Coords()
	case *gogeom.MultiLineString:
		s.Type, s.Coordinates = "MultiLineString", t.Coords()
	case *gogeom.MultiPolygon:
		s.Type, s.Coordinates = "MultiPolygon", t.Coords()
	case *gogeom.GeometryCollection:
		s.Type = "GeometryCollection"
	default:
		return Shape{}, geoerr.InvalidInput("unsupported geometry %T", g)
	}
	return s, nil
}

func decode(v Value) (gogeom.T, int, error) {
	switch x := v.(type) {
	case Persisted:
		return decode(x.Inner)
	case Text:
		g, err := wkt.Unmarshal(x.WKT)
		if err != nil {
			return nil, 0, geoerr.InvalidInput("decode wkt %q: %v", x.WKT, err)
		}
		return g, x.SRID, nil
	case Binary:
		if g, err := wkb.Unmarshal(x.WKB); err == nil {
			return g, x.SRID, nil
		}
		g, err := ewkb.Unmarshal(x.WKB)
		if err != nil {
			return nil, 0, geoerr.InvalidInput("decode wkb: %v", err)
		}
		srid := x.SRID
		if g.SRID() != 0 {
			srid = g.SRID()
		}
		return g, srid, nil
	default:
		return nil, 0, geoerr.InvalidInput("%T cannot be decoded locally", v)
	}
}

// ToText converts a Binary value to an equivalent Text value.
func ToText(v Value) (Text, error) {
	if t, ok := v.(Text); ok {
		return t, nil
	}
	g, srid, err := decode(v)
	if err != nil {
		return Text{}, err
	}
	s, err := wkt.Marshal(g)
	if err != nil {
		return Text{}, fmt.Errorf("marshal wkt: %w", err)
	}
	return Text{WKT: s, SRID: srid, Type: TypeOf(v), DimInfo: DimInfoOf(v)}, nil
}
