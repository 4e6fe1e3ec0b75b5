package harness

import (
	"encoding/hex"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/roach88/geosql/internal/compile"
	"github.com/roach88/geosql/internal/geoerr"
	"github.com/roach88/geosql/internal/geom"
	"github.com/roach88/geosql/internal/spatial"
	"github.com/roach88/geosql/internal/sqlexpr"
)

// Compile modes.
const (
	ModeWhere  = "where"
	ModeSelect = "select"
	ModeQuery  = "query"
	ModeBind   = "bind"
)

// ValidModes lists the accepted document modes.
var ValidModes = []string{ModeWhere, ModeSelect, ModeQuery, ModeBind}

// ColumnSpec declares a geometry column. Unset fields take the defaults
// of geom.NewColumn.
type ColumnSpec struct {
	Table        string `yaml:"table" json:"table"`
	Schema       string `yaml:"schema,omitempty" json:"schema,omitempty"`
	Name         string `yaml:"name" json:"name"`
	Type         string `yaml:"type,omitempty" json:"type,omitempty"`
	Dimension    int    `yaml:"dimension,omitempty" json:"dimension,omitempty"`
	SRID         int    `yaml:"srid,omitempty" json:"srid,omitempty"`
	SpatialIndex *bool  `yaml:"spatial_index,omitempty" json:"spatial_index,omitempty"`
	Nullable     *bool  `yaml:"nullable,omitempty" json:"nullable,omitempty"`
	WKTInternal  bool   `yaml:"wkt_internal,omitempty" json:"wkt_internal,omitempty"`
	DimInfo      string `yaml:"diminfo,omitempty" json:"diminfo,omitempty"`
	BoundingBox  string `yaml:"bounding_box,omitempty" json:"bounding_box,omitempty"`
}

// Column builds the declared column.
func (s ColumnSpec) Column() (*geom.Column, error) {
	if s.Table == "" || s.Name == "" {
		return nil, geoerr.InvalidInput("column needs a table and a name")
	}
	col := geom.NewColumn(s.Table, s.Name)
	col.Schema = s.Schema
	if s.Type != "" {
		t, err := geometryType(s.Type)
		if err != nil {
			return nil, err
		}
		col.Type = t
	}
	if s.Dimension != 0 {
		col.Dimension = s.Dimension
	}
	if s.SRID != 0 {
		col.SRID = s.SRID
	}
	if s.SpatialIndex != nil {
		col.SpatialIndex = *s.SpatialIndex
	}
	if s.Nullable != nil {
		col.Nullable = *s.Nullable
	}
	col.WKTInternal = s.WKTInternal
	col.DimInfo = s.DimInfo
	col.BoundingBox = s.BoundingBox
	return col, nil
}

var geometryTypes = []geom.GeometryType{
	geom.Geometry, geom.Point, geom.Curve, geom.LineString, geom.Polygon,
	geom.MultiPoint, geom.MultiLineString, geom.MultiPolygon, geom.GeometryCollection,
}

func geometryType(s string) (geom.GeometryType, error) {
	t := geom.GeometryType(strings.ToUpper(strings.TrimSpace(s)))
	if !slices.Contains(geometryTypes, t) {
		return "", geoerr.InvalidInput("unknown geometry type %q", s)
	}
	return t, nil
}

// Document is one compile request: an expression tree, the columns it
// refers to, and how the result is used.
//
// Expression nodes are scalars (numbers, booleans, strings, null) or maps
// with exactly one of these keys:
//
//	op      operation name, with optional args (list) and flags (map)
//	column  a name from columns, or an inline column declaration
//	wkt     well-known text, with optional srid, srid_from, type, diminfo
//	wkb     hex-encoded well-known binary, with optional srid, type, diminfo
//	db      a value computed by the database: hex bytes or an expression
//	ident   a raw SQL identifier such as "t.geom"
type Document struct {
	Columns map[string]ColumnSpec `yaml:"columns,omitempty" json:"columns,omitempty"`
	Mode    string                `yaml:"mode,omitempty" json:"mode,omitempty"`
	Bind    string                `yaml:"bind,omitempty" json:"bind,omitempty"`
	Expr    any                   `yaml:"expr" json:"expr"`
}

// Output is one compiled statement.
type Output struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

// Build turns the document's expression into compiler input.
func (d *Document) Build() (any, error) {
	b, err := newBuilder(d.Columns)
	if err != nil {
		return nil, err
	}
	return b.build(d.Expr)
}

// Compile builds the expression and compiles it in the document's mode
// (default "where").
func (d *Document) Compile(c *compile.Compiler) (Output, error) {
	b, err := newBuilder(d.Columns)
	if err != nil {
		return Output{}, err
	}
	node, err := b.build(d.Expr)
	if err != nil {
		return Output{}, err
	}

	var (
		sql    string
		params []any
	)
	switch mode := d.mode(); mode {
	case ModeWhere:
		sql, params, err = c.Where(node)
	case ModeSelect:
		sql, params, err = c.Select(node)
	case ModeQuery:
		sql, params, err = c.Query(node)
	case ModeBind:
		col, ok := b.columns[d.Bind]
		if !ok {
			return Output{}, geoerr.InvalidInput("bind mode needs a declared column, got %q", d.Bind)
		}
		sql, params, err = c.Bind(node, col)
	default:
		return Output{}, geoerr.InvalidInput("unknown mode %q, expected one of %v", mode, ValidModes)
	}
	if err != nil {
		return Output{}, err
	}
	if params == nil {
		params = []any{}
	}
	return Output{SQL: sql, Params: params}, nil
}

func (d *Document) mode() string {
	if d.Mode == "" {
		return ModeWhere
	}
	return strings.ToLower(d.Mode)
}

// Ops lists the operation names used in the expression, sorted and
// deduplicated. Unknown names are included.
func (d *Document) Ops() []string {
	seen := make(map[string]struct{})
	var walk func(n any)
	walk = func(n any) {
		switch x := n.(type) {
		case map[string]any:
			if name, ok := x["op"].(string); ok {
				seen[name] = struct{}{}
			}
			for _, v := range x {
				walk(v)
			}
		case []any:
			for _, v := range x {
				walk(v)
			}
		}
	}
	walk(d.Expr)
	return slices.Sorted(maps.Keys(seen))
}

type builder struct {
	columns map[string]*geom.Column
}

func newBuilder(specs map[string]ColumnSpec) (*builder, error) {
	b := &builder{columns: make(map[string]*geom.Column, len(specs))}
	for name, spec := range specs {
		col, err := spec.Column()
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		b.columns[name] = col
	}
	return b, nil
}

var nodeKeys = map[string][]string{
	"op":     {"op", "args", "flags"},
	"column": {"column"},
	"wkt":    {"wkt", "srid", "srid_from", "type", "diminfo"},
	"wkb":    {"wkb", "srid", "type", "diminfo"},
	"db":     {"db"},
	"ident":  {"ident"},
}

func (b *builder) build(n any) (any, error) {
	switch x := n.(type) {
	case nil, bool, string:
		return x, nil
	case int, int64, float64:
		return x, nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, geoerr.InvalidInput("number %d is out of range", x)
		}
		return int64(x), nil
	case map[string]any:
		return b.node(x)
	case []any:
		return nil, geoerr.InvalidInput("a list is not an expression; use an op node with args")
	}
	return nil, geoerr.InvalidInput("unsupported expression value %T", n)
}

func (b *builder) node(m map[string]any) (any, error) {
	kind := ""
	for _, k := range []string{"op", "column", "wkt", "wkb", "db", "ident"} {
		if _, ok := m[k]; ok {
			if kind != "" {
				return nil, geoerr.InvalidInput("expression node has both %q and %q", kind, k)
			}
			kind = k
		}
	}
	if kind == "" {
		return nil, geoerr.InvalidInput("expression node needs one of op, column, wkt, wkb, db or ident; got keys %v",
			slices.Sorted(maps.Keys(m)))
	}
	for k := range m {
		if !slices.Contains(nodeKeys[kind], k) {
			return nil, geoerr.InvalidInput("unexpected key %q in %s node", k, kind)
		}
	}

	switch kind {
	case "op":
		return b.invocation(m)
	case "column":
		return b.column(m["column"])
	case "wkt":
		return b.text(m)
	case "wkb":
		return b.binary(m)
	case "db":
		return b.database(m["db"])
	default:
		s, ok := m["ident"].(string)
		if !ok || s == "" {
			return nil, geoerr.InvalidInput("ident must be a non-empty string")
		}
		return sqlexpr.Ident(s), nil
	}
}

func (b *builder) invocation(m map[string]any) (*spatial.Invocation, error) {
	name, ok := m["op"].(string)
	if !ok {
		return nil, geoerr.InvalidInput("op must be a string")
	}
	op, ok := spatial.Lookup(name)
	if !ok {
		return nil, geoerr.UnknownOperation(name)
	}

	var raw []any
	if v, present := m["args"]; present && v != nil {
		list, ok := v.([]any)
		if !ok {
			return nil, geoerr.InvalidInput("args of %s must be a list", name)
		}
		raw = list
	}
	args := make([]any, len(raw))
	for i, a := range raw {
		built, err := b.build(a)
		if err != nil {
			return nil, fmt.Errorf("%s argument %d: %w", name, i+1, err)
		}
		args[i] = built
	}

	inv := spatial.Invoke(op, args...)
	if v, present := m["flags"]; present && v != nil {
		flags, ok := v.(map[string]any)
		if !ok {
			return nil, geoerr.InvalidInput("flags of %s must be a map", name)
		}
		inv = inv.WithFlags(flags)
	}
	return inv, nil
}

func (b *builder) column(v any) (*geom.Column, error) {
	switch x := v.(type) {
	case string:
		col, ok := b.columns[x]
		if !ok {
			return nil, geoerr.InvalidInput("undeclared column %q", x)
		}
		return col, nil
	case map[string]any:
		spec := ColumnSpec{}
		spec.Table, _ = x["table"].(string)
		spec.Schema, _ = x["schema"].(string)
		spec.Name, _ = x["name"].(string)
		spec.Type, _ = x["type"].(string)
		spec.DimInfo, _ = x["diminfo"].(string)
		if s, present := x["srid"]; present {
			srid, err := toInt(s)
			if err != nil {
				return nil, err
			}
			spec.SRID = srid
		}
		return spec.Column()
	}
	return nil, geoerr.InvalidInput("column must be a name or a declaration, got %T", v)
}

func (b *builder) options(m map[string]any) ([]geom.Option, error) {
	var opts []geom.Option
	if v, ok := m["srid"]; ok {
		srid, err := toInt(v)
		if err != nil {
			return nil, err
		}
		opts = append(opts, geom.WithSRID(srid))
	}
	if v, ok := m["srid_from"]; ok {
		built, err := b.build(v)
		if err != nil {
			return nil, fmt.Errorf("srid_from: %w", err)
		}
		e, ok := built.(geom.Expression)
		if !ok {
			return nil, geoerr.InvalidInput("srid_from must be an expression, got %T", built)
		}
		opts = append(opts, geom.WithSRIDFrom(e))
	}
	if v, ok := m["type"]; ok {
		s, _ := v.(string)
		t, err := geometryType(s)
		if err != nil {
			return nil, err
		}
		opts = append(opts, geom.WithType(t))
	}
	if v, ok := m["diminfo"]; ok {
		s, _ := v.(string)
		opts = append(opts, geom.WithDimInfo(s))
	}
	return opts, nil
}

func (b *builder) text(m map[string]any) (geom.Text, error) {
	opts, err := b.options(m)
	if err != nil {
		return geom.Text{}, err
	}
	return geom.NewText(m["wkt"], opts...)
}

func (b *builder) binary(m map[string]any) (geom.Binary, error) {
	s, ok := m["wkb"].(string)
	if !ok {
		return geom.Binary{}, geoerr.InvalidInput("wkb must be a hex string")
	}
	payload, err := hex.DecodeString(s)
	if err != nil {
		return geom.Binary{}, geoerr.InvalidInput("wkb is not valid hex: %v", err)
	}
	opts, err := b.options(m)
	if err != nil {
		return geom.Binary{}, err
	}
	return geom.NewBinary(payload, opts...)
}

func (b *builder) database(v any) (geom.Database, error) {
	if s, ok := v.(string); ok {
		raw, err := hex.DecodeString(s)
		if err != nil {
			return geom.Database{}, geoerr.InvalidInput("db value is not valid hex: %v", err)
		}
		return geom.Database{Raw: raw}, nil
	}
	built, err := b.build(v)
	if err != nil {
		return geom.Database{}, err
	}
	return geom.Database{Raw: built}, nil
}

func toInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case uint64:
		return int(x), nil
	case float64:
		if x == math.Trunc(x) {
			return int(x), nil
		}
	}
	return 0, geoerr.InvalidInput("expected an integer, got %v", v)
}
