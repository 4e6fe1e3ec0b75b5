// Package compile turns spatial invocations into dialect SQL.
//
// A Compiler is bound to one dialect descriptor. It coerces every argument
// into a geometry operand or a bound scalar, reconciles SRIDs against the
// columns an expression touches, renders through the descriptor, and
// compares predicate results with the dialect's truthy sentinel when the
// expression sits in a WHERE clause.
//
// All values are parameterized. Only dialect sentinels and fixed SQL
// fragments are inlined.
package compile

import (
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/geosql/internal/dialect"
	"github.com/roach88/geosql/internal/geoerr"
	"github.com/roach88/geosql/internal/geom"
	"github.com/roach88/geosql/internal/spatial"
	"github.com/roach88/geosql/internal/sqlexpr"
)

// Compiler compiles spatial expressions for one dialect. It holds no
// mutable state and is safe for concurrent use.
type Compiler struct {
	desc      *dialect.Descriptor
	version   string
	logger    *slog.Logger
	reconcile bool
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithVersion sets the server version reported by the engine, e.g.
// "3.4 USE_GEOS=1". Version-gated renderings treat an unparseable or
// missing version as unknown.
func WithVersion(raw string) Option {
	return func(c *Compiler) {
		c.version = dialect.CanonicalVersion(raw)
	}
}

// WithLogger sets the logger for compile-time warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		c.logger = l
	}
}

// WithoutSRIDReconciliation disables implicit transforms of literal
// geometries to the SRID of the column they are compared with.
func WithoutSRIDReconciliation() Option {
	return func(c *Compiler) {
		c.reconcile = false
	}
}

// New creates a Compiler for desc.
func New(desc *dialect.Descriptor, opts ...Option) *Compiler {
	c := &Compiler{
		desc:      desc,
		logger:    slog.Default(),
		reconcile: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dialect returns the descriptor the compiler renders with.
func (c *Compiler) Dialect() *dialect.Descriptor { return c.desc }

// Version returns the canonical server version, or "" if unknown.
func (c *Compiler) Version() string { return c.version }

// Compile compiles a root node: an *spatial.Invocation, a geometry value,
// a WKT string or a column. boolean is true when the result is used as a
// WHERE predicate.
func (c *Compiler) Compile(node any, boolean bool) (sqlexpr.Expr, error) {
	if inv, ok := node.(*spatial.Invocation); ok {
		return c.invocation(inv, boolean)
	}
	coerced, err := geom.Coerce(node)
	if err != nil {
		return nil, err
	}
	if coerced == nil {
		return nil, geoerr.InvalidInput("cannot compile a nil expression")
	}
	arg, err := c.operand(coerced)
	if err != nil {
		return nil, err
	}
	return arg.SQL, nil
}

// Where compiles node as a WHERE predicate.
func (c *Compiler) Where(node any) (string, []any, error) {
	e, err := c.Compile(node, true)
	if err != nil {
		return "", nil, err
	}
	return c.ToSQL(e)
}

// Select compiles node as a selected value. A bare geometry column is
// wrapped so the driver receives a transferable encoding.
func (c *Compiler) Select(node any) (string, []any, error) {
	var (
		e   sqlexpr.Expr
		err error
	)
	if col, ok := node.(*geom.Column); ok && col != nil {
		e, err = c.Column(col)
	} else {
		e, err = c.Compile(node, false)
	}
	if err != nil {
		return "", nil, err
	}
	return c.ToSQL(e)
}

// Query wraps node in a scalar SELECT statement, adding the dialect's
// FROM clause for engines that require one.
func (c *Compiler) Query(node any) (string, []any, error) {
	e, err := c.Compile(node, false)
	if err != nil {
		return "", nil, err
	}
	q := sq.Select().Column(e).PlaceholderFormat(c.desc.Placeholder())
	if suffix := strings.TrimSpace(c.desc.SelectSuffix()); suffix != "" {
		q = q.Suffix(suffix)
	}
	return q.ToSql()
}

// ToSQL renders e with the dialect's placeholder format.
func (c *Compiler) ToSQL(e sqlexpr.Expr) (string, []any, error) {
	return sqlexpr.Render(e, c.desc.Placeholder())
}

// Column returns the select-list rendering of a geometry column: WKB, or
// WKT for text-internal columns on engines that can return it.
func (c *Compiler) Column(col *geom.Column) (sqlexpr.Expr, error) {
	op := spatial.WKB
	if col.WKTInternal {
		if c.desc.TextColumns() {
			op = spatial.WKT
		} else {
			c.logger.Warn("text-internal column read as WKB",
				"dialect", c.desc.Name(), "column", col.Qualified())
		}
	}
	return c.desc.Render(c.context(op, false, nil), []dialect.Arg{dialect.ColumnArg(col)})
}

// Bind compiles a value for storage in col, transforming it to the
// column's SRID when the two differ.
func (c *Compiler) Bind(value any, col *geom.Column) (string, []any, error) {
	coerced, err := geom.Coerce(value)
	if err != nil {
		return "", nil, err
	}
	if coerced == nil {
		return c.ToSQL(sqlexpr.Null{})
	}
	arg, err := c.operand(coerced)
	if err != nil {
		return "", nil, err
	}
	arg, err = c.toSRID(arg, col.SRID)
	if err != nil {
		return "", nil, err
	}
	return c.ToSQL(arg.SQL)
}

func (c *Compiler) context(op spatial.Op, boolean bool, flags map[string]any) dialect.Context {
	return dialect.Context{Op: op, Boolean: boolean, Flags: flags, Version: c.version}
}

func (c *Compiler) invocation(inv *spatial.Invocation, boolean bool) (sqlexpr.Expr, error) {
	raw := inv.Args()
	args := make([]dialect.Arg, 0, len(raw))
	for _, a := range raw {
		arg, err := c.arg(a)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	op := inv.Op()
	if c.reconcile && op != spatial.Transform {
		var err error
		if args, err = c.reconcileSRIDs(args); err != nil {
			return nil, err
		}
	}

	e, err := c.desc.Render(c.context(op, boolean, inv.Flags()), args)
	if err != nil {
		return nil, err
	}
	if boolean {
		if sentinel, ok := c.desc.Sentinel(op); ok {
			e = sqlexpr.Eq(e, sqlexpr.Lit{Value: sentinel})
		}
	}
	return e, nil
}

// arg compiles one invocation argument. Numbers, booleans, byte slices and
// strings that are not WKT are bound as scalars; everything else is
// coerced into a geometry operand.
func (c *Compiler) arg(a any) (dialect.Arg, error) {
	if scalar(a) {
		return dialect.ScalarArg(a), nil
	}
	coerced, err := geom.Coerce(a)
	if err != nil {
		return dialect.Arg{}, err
	}
	if coerced == nil {
		return dialect.NullArg(), nil
	}
	return c.operand(coerced)
}

func scalar(a any) bool {
	switch x := a.(type) {
	case string:
		return !geom.LooksLikeWKT(x)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
		float32, float64, bool, []byte:
		return true
	}
	return false
}

func (c *Compiler) operand(v any) (dialect.Arg, error) {
	switch x := v.(type) {
	case *geom.Column:
		return dialect.ColumnArg(x), nil
	case *spatial.Invocation:
		e, err := c.invocation(x, false)
		if err != nil {
			return dialect.Arg{}, err
		}
		return dialect.Arg{Kind: dialect.ArgNested, SQL: e, Nested: x}, nil
	case sqlexpr.Expr:
		return dialect.ExprArg(x), nil
	case geom.Value:
		return c.value(x)
	}
	return dialect.Arg{}, geoerr.InvalidInput("cannot compile %T as a geometry", v)
}

// value renders a geometry literal through the dialect's constructor.
func (c *Compiler) value(v geom.Value) (dialect.Arg, error) {
	var (
		op   spatial.Op
		args []dialect.Arg
	)
	switch x := v.(type) {
	case geom.Text:
		srid := dialect.ScalarArg(x.SRID)
		if x.SRIDFrom != nil {
			var err error
			if srid, err = c.arg(x.SRIDFrom); err != nil {
				return dialect.Arg{}, err
			}
		}
		op, args = spatial.GeomFromText, []dialect.Arg{dialect.ScalarArg(x.WKT), srid}

	case geom.Binary:
		bound := c.desc.BindWKB(sqlexpr.Param{Value: x.WKB})
		op, args = spatial.GeomFromWKB, []dialect.Arg{dialect.ExprArg(bound), dialect.ScalarArg(x.SRID)}

	case geom.Database:
		raw := dialect.ScalarArg(x.Raw)
		if _, ok := x.Raw.(geom.Expression); ok {
			var err error
			if raw, err = c.operand(x.Raw); err != nil {
				return dialect.Arg{}, err
			}
		}
		op, args = spatial.GeomFromDB, []dialect.Arg{raw}

	case geom.Persisted:
		if x.Inner == nil {
			return dialect.Arg{}, geoerr.InvalidInput("persisted geometry has no payload")
		}
		return c.value(x.Inner)

	default:
		return dialect.Arg{}, geoerr.InvalidInput("unknown geometry value %T", v)
	}

	e, err := c.desc.Render(c.context(op, false, nil), args)
	if err != nil {
		return dialect.Arg{}, err
	}
	return dialect.Arg{Kind: dialect.ArgValue, SQL: e, Value: v}, nil
}

// reconcileSRIDs transforms literal geometries to the SRID of the first
// column among args.
func (c *Compiler) reconcileSRIDs(args []dialect.Arg) ([]dialect.Arg, error) {
	var target *geom.Column
	for _, a := range args {
		if a.Kind == dialect.ArgColumn {
			target = a.Column
			break
		}
	}
	if target == nil {
		return args, nil
	}
	out := make([]dialect.Arg, len(args))
	for i, a := range args {
		if a.Kind != dialect.ArgValue {
			out[i] = a
			continue
		}
		next, err := c.toSRID(a, target.SRID)
		if err != nil {
			return nil, err
		}
		out[i] = next
	}
	return out, nil
}

// toSRID wraps a literal in a transform when its SRID is known and differs
// from srid. Engines without transform get the literal unchanged.
func (c *Compiler) toSRID(a dialect.Arg, srid int) (dialect.Arg, error) {
	if a.Kind != dialect.ArgValue {
		return a, nil
	}
	have, known := geom.SRIDOf(a.Value)
	if !known || have == srid {
		return a, nil
	}
	if !c.desc.Supports(spatial.Transform) {
		c.logger.Warn("SRID mismatch left to the engine, no transform available",
			"dialect", c.desc.Name(), "from", have, "to", srid)
		return a, nil
	}
	e, err := c.desc.Render(c.context(spatial.Transform, false, nil), []dialect.Arg{a, dialect.ScalarArg(srid)})
	if err != nil {
		return dialect.Arg{}, err
	}
	a.SQL = e
	return a, nil
}
