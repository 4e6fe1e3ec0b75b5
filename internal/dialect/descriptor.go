package dialect

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/geosql/internal/geoerr"
	"github.com/roach88/geosql/internal/geom"
	"github.com/roach88/geosql/internal/spatial"
	"github.com/roach88/geosql/internal/sqlexpr"
)

// Engine identities.
const (
	PostGISName    = "postgis"
	MySQLName      = "mysql"
	OracleName     = "oracle"
	MSSQLName      = "mssql"
	SpatiaLiteName = "spatialite"
)

// Descriptor is one engine's rendering table and hooks.
type Descriptor struct {
	name         string
	catalogs     []spatial.Catalog
	placeholder  sq.PlaceholderFormat
	overrides    map[spatial.Op]Strategy
	members      map[spatial.Op]bool
	properties   map[spatial.Op]bool
	sentinels    map[spatial.Op]any
	vocabulary   []string
	textColumns  bool
	versionQuery string
	selectSuffix string

	columnAdded   func(col *geom.Column, version string) ([]sq.Sqlizer, error)
	columnRemoved func(col *geom.Column, version string) ([]sq.Sqlizer, error)
	decode        func(raw any, col *geom.Column) (geom.Persisted, error)
	bindWKB       func(e sqlexpr.Expr) sqlexpr.Expr
}

// Name returns the engine identity, e.g. "postgis".
func (d *Descriptor) Name() string { return d.name }

// Catalogs returns the operation catalogs the engine provides.
func (d *Descriptor) Catalogs() []spatial.Catalog { return slices.Clone(d.catalogs) }

// Override returns a copy of d whose override table also holds
// strategies. Handlers of the copy render their sub-expressions through
// the merged table.
func (d *Descriptor) Override(strategies map[spatial.Op]Strategy) *Descriptor {
	c := *d
	c.overrides = make(map[spatial.Op]Strategy, len(d.overrides)+len(strategies))
	maps.Copy(c.overrides, d.overrides)
	maps.Copy(c.overrides, strategies)
	return &c
}

// Placeholder returns the engine's bind placeholder format.
func (d *Descriptor) Placeholder() sq.PlaceholderFormat { return d.placeholder }

// Strategy resolves the strategy for op: override table, then the shared
// default table. It reports false for absent and Unsupported entries.
func (d *Descriptor) Strategy(op spatial.Op) (Strategy, bool) {
	s, ok := d.overrides[op]
	if !ok {
		s, ok = defaults[op]
	}
	if !ok || s == Unsupported {
		return nil, false
	}
	return s, true
}

// Supports reports whether op can be rendered.
func (d *Descriptor) Supports(op spatial.Op) bool {
	_, ok := d.Strategy(op)
	return ok
}

// IsMember reports whether op renders as receiver.name(args).
func (d *Descriptor) IsMember(op spatial.Op) bool { return d.members[op] }

// IsProperty reports whether op renders as receiver.name.
func (d *Descriptor) IsProperty(op spatial.Op) bool { return d.properties[op] }

// Sentinel returns the truthy value op's result must be compared against
// in a WHERE clause. It reports false for native booleans.
func (d *Descriptor) Sentinel(op spatial.Op) (any, bool) {
	v, ok := d.sentinels[op]
	return v, ok
}

// Render renders ctx.Op applied to the compiled args.
func (d *Descriptor) Render(ctx Context, args []Arg) (sqlexpr.Expr, error) {
	ctx.desc = d
	op := ctx.Op
	if !op.Valid() {
		return nil, geoerr.UnknownOperation(op.String())
	}

	s, ok := d.Strategy(op)
	if !ok {
		return nil, geoerr.UnsupportedOperation(op.String(), d.name)
	}

	if d.properties[op] {
		name, isName := s.(Name)
		if !isName {
			return nil, fmt.Errorf("%s: property %s must map to a plain name", d.name, op)
		}
		if len(args) != 1 {
			return nil, geoerr.InvalidInput("property %s takes only its receiver, got %d arguments", op, len(args))
		}
		return sqlexpr.Prop{Recv: args[0].SQL, Name: string(name)}, nil
	}

	member := d.members[op]
	if member && len(args) == 0 {
		return nil, geoerr.InvalidInput("%s needs a receiver geometry", op)
	}

	switch s := s.(type) {
	case Name:
		if member {
			return sqlexpr.Method{Recv: args[0].SQL, Name: string(s), Args: exprs(args[1:])}, nil
		}
		return sqlexpr.Func{Name: string(s), Args: exprs(args)}, nil

	case Chain:
		var e sqlexpr.Expr
		for i := len(s) - 1; i >= 0; i-- {
			if e == nil {
				e = sqlexpr.Func{Name: s[i], Args: exprs(args)}
			} else {
				e = sqlexpr.Func{Name: s[i], Args: []sqlexpr.Expr{e}}
			}
		}
		return e, nil

	case Handler:
		if member {
			e, err := s(ctx, args[1:])
			if err != nil {
				return nil, err
			}
			return sqlexpr.Member{Recv: args[0].SQL, X: e}, nil
		}
		return s(ctx, args)
	}

	return nil, fmt.Errorf("%s: unknown strategy %T for %s", d.name, s, op)
}

// BindWKB wraps the bound WKB parameter of a binary literal.
func (d *Descriptor) BindWKB(e sqlexpr.Expr) sqlexpr.Expr {
	if d.bindWKB == nil {
		return e
	}
	return d.bindWKB(e)
}

// Decode turns a raw column value into a persisted geometry.
func (d *Descriptor) Decode(raw any, col *geom.Column) (geom.Persisted, error) {
	if d.decode == nil {
		return decodeBinary(raw, col)
	}
	return d.decode(raw, col)
}

// ColumnAdded returns the statements that provision col after its table
// was created.
func (d *Descriptor) ColumnAdded(col *geom.Column, version string) ([]sq.Sqlizer, error) {
	if d.columnAdded == nil {
		return nil, nil
	}
	return d.columnAdded(col, version)
}

// ColumnRemoved returns the statements that reverse ColumnAdded.
func (d *Descriptor) ColumnRemoved(col *geom.Column, version string) ([]sq.Sqlizer, error) {
	if d.columnRemoved == nil {
		return nil, nil
	}
	return d.columnRemoved(col, version)
}

// VersionQuery returns the query that reports the spatial server version.
func (d *Descriptor) VersionQuery() string { return d.versionQuery }

// SelectSuffix is appended to a bare scalar SELECT, e.g. " FROM DUAL".
func (d *Descriptor) SelectSuffix() string { return d.selectSuffix }

// TextColumns reports whether columns declared as text-internal can be
// read back as WKT.
func (d *Descriptor) TextColumns() bool { return d.textColumns }

// Vocabulary returns every SQL name this dialect can emit: names from its
// tables and the default table (split at dots), plus names its handlers
// produce.
func (d *Descriptor) Vocabulary() []string {
	set := make(map[string]struct{})
	add := func(s Strategy) {
		switch s := s.(type) {
		case Name:
			addSegments(set, string(s))
		case Chain:
			for _, n := range s {
				addSegments(set, n)
			}
		}
	}
	for op, s := range defaults {
		if _, overridden := d.overrides[op]; !overridden {
			add(s)
		}
	}
	for _, s := range d.overrides {
		add(s)
	}
	for _, n := range d.vocabulary {
		addSegments(set, n)
	}
	names := slices.Collect(maps.Keys(set))
	sort.Strings(names)
	return names
}

func addSegments(set map[string]struct{}, name string) {
	for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == '.' || r == ':' }) {
		set[part] = struct{}{}
	}
}

func decodeBinary(raw any, col *geom.Column) (geom.Persisted, error) {
	var b []byte
	switch v := raw.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return geom.Persisted{}, geoerr.InvalidInput("cannot decode %T as a geometry", raw)
	}
	bin, err := geom.NewBinary(b, geom.WithSRID(col.SRID), geom.WithType(col.GeometryType()), geom.WithDimInfo(col.DimInfo))
	if err != nil {
		return geom.Persisted{}, err
	}
	return geom.NewPersisted(bin)
}

func opSet(ops ...spatial.Op) map[spatial.Op]bool {
	m := make(map[spatial.Op]bool, len(ops))
	for _, op := range ops {
		m[op] = true
	}
	return m
}
