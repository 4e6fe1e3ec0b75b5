package geom

import (
	"github.com/roach88/geosql/internal/geoerr"
)

// DefaultSRID is the SRID assigned to values constructed without one.
const DefaultSRID = 4326

// GeometryType names a geometry subtype.
type GeometryType string

const (
	Geometry           GeometryType = "GEOMETRY"
	Point              GeometryType = "POINT"
	Curve              GeometryType = "CURVE"
	LineString         GeometryType = "LINESTRING"
	Polygon            GeometryType = "POLYGON"
	MultiPoint         GeometryType = "MULTIPOINT"
	MultiLineString    GeometryType = "MULTILINESTRING"
	MultiPolygon       GeometryType = "MULTIPOLYGON"
	GeometryCollection GeometryType = "GEOMETRYCOLLECTION"
)

// Expression is any node of a spatial or SQL expression tree.
// Coerce passes expressions through untouched.
type Expression interface {
	ExpressionNode()
}

// Value is a geometry value in one of its source forms.
// Sealed: only Text, Binary, Database and Persisted implement it.
type Value interface {
	geometryValue()
}

// Text is a geometry expressed as well-known text.
type Text struct {
	WKT  string
	SRID int

	// SRIDFrom, when set, makes the SRID the result of a database expression.
	// The compiler never reconciles such a value against a column SRID.
	SRIDFrom Expression

	Type GeometryType

	// DimInfo is an Oracle dimension-information array literal, if known.
	DimInfo string
}

// Binary is a geometry expressed as well-known binary.
type Binary struct {
	WKB     []byte
	SRID    int
	Type    GeometryType
	DimInfo string
}

// Database wraps a value produced by an earlier database computation, for
// example the result of a buffer call. It is bound back without re-encoding.
type Database struct {
	Raw any
}

// Persisted is a value read back from a result row.
// Inner is always a Text or Binary.
type Persisted struct {
	Inner Value
}

func (Text) geometryValue()      {}
func (Binary) geometryValue()    {}
func (Database) geometryValue()  {}
func (Persisted) geometryValue() {}

// String returns the WKT directly.
func (t Text) String() string { return t.WKT }

// Option configures a Text or Binary value.
type Option func(*valueOptions)

type valueOptions struct {
	srid     int
	sridFrom Expression
	typ      GeometryType
	dimInfo  string
}

// WithSRID sets the SRID.
func WithSRID(srid int) Option {
	return func(o *valueOptions) { o.srid = srid }
}

// WithSRIDFrom makes the SRID the result of a database expression.
func WithSRIDFrom(e Expression) Option {
	return func(o *valueOptions) { o.sridFrom = e }
}

// WithType sets the geometry subtype.
func WithType(t GeometryType) Option {
	return func(o *valueOptions) { o.typ = t }
}

// WithDimInfo attaches an Oracle DIMINFO literal.
func WithDimInfo(d string) Option {
	return func(o *valueOptions) { o.dimInfo = d }
}

func buildOptions(opts []Option) valueOptions {
	o := valueOptions{srid: DefaultSRID, typ: Geometry}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewText builds a Text value. The payload must be a string.
func NewText(payload any, opts ...Option) (Text, error) {
	s, ok := payload.(string)
	if !ok {
		return Text{}, geoerr.InvalidInput("text geometry payload must be a string, got %T", payload)
	}
	o := buildOptions(opts)
	return Text{WKT: s, SRID: o.srid, SRIDFrom: o.sridFrom, Type: o.typ, DimInfo: o.dimInfo}, nil
}

// NewBinary builds a Binary value. The payload must be []byte or string.
// The bytes are copied.
func NewBinary(payload any, opts ...Option) (Binary, error) {
	var b []byte
	switch p := payload.(type) {
	case []byte:
		b = append([]byte(nil), p...)
	case string:
		b = []byte(p)
	default:
		return Binary{}, geoerr.InvalidInput("binary geometry payload must be bytes, got %T", payload)
	}
	o := buildOptions(opts)
	return Binary{WKB: b, SRID: o.srid, Type: o.typ, DimInfo: o.dimInfo}, nil
}

// NewPersisted wraps a freshly read Text or Binary value.
func NewPersisted(inner Value) (Persisted, error) {
	switch inner.(type) {
	case Text, Binary:
		return Persisted{Inner: inner}, nil
	default:
		return Persisted{}, geoerr.InvalidInput("persisted geometry must wrap text or binary, got %T", inner)
	}
}

// SRIDOf reports the SRID of v and whether it is known at compile time.
func SRIDOf(v Value) (int, bool) {
	switch x := v.(type) {
	case Text:
		if x.SRIDFrom != nil {
			return 0, false
		}
		return x.SRID, true
	case Binary:
		return x.SRID, true
	case Persisted:
		return SRIDOf(x.Inner)
	default:
		return 0, false
	}
}

// TypeOf returns the geometry subtype of v, or Geometry when unknown.
func TypeOf(v Value) GeometryType {
	switch x := v.(type) {
	case Text:
		if x.Type != "" {
			return x.Type
		}
	case Binary:
		if x.Type != "" {
			return x.Type
		}
	case Persisted:
		return TypeOf(x.Inner)
	}
	return Geometry
}

// DimInfoOf returns the DIMINFO literal carried by v, if any.
func DimInfoOf(v Value) string {
	switch x := v.(type) {
	case Text:
		return x.DimInfo
	case Binary:
		return x.DimInfo
	case Persisted:
		return DimInfoOf(x.Inner)
	}
	return ""
}

// WKTOf returns the text of v when it is available without a round trip.
func WKTOf(v Value) (string, bool) {
	switch x := v.(type) {
	case Text:
		return x.WKT, true
	case Persisted:
		return WKTOf(x.Inner)
	}
	return "", false
}

// WKBOf returns the binary payload of v when it has one.
func WKBOf(v Value) ([]byte, bool) {
	switch x := v.(type) {
	case Binary:
		return x.WKB, true
	case Persisted:
		return WKBOf(x.Inner)
	}
	return nil, false
}
