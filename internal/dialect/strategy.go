package dialect

import (
	"github.com/roach88/geosql/internal/geoerr"
	"github.com/roach88/geosql/internal/geom"
	"github.com/roach88/geosql/internal/spatial"
	"github.com/roach88/geosql/internal/sqlexpr"
)

// Strategy is how a dialect renders one operation.
// Sealed: Name, Chain, Handler and Unsupported.
type Strategy interface {
	strategy()
}

// Name renders a prefix call, or a member call / property read when the
// dialect marks the op that way.
type Name string

// Chain renders nested single-argument calls. The last name is innermost
// and receives every argument:
//
//	Chain{"TO_CHAR", "SDO_UTIL.TO_WKTGEOMETRY"} -> TO_CHAR(SDO_UTIL.TO_WKTGEOMETRY(args...))
type Chain []string

// Handler builds the expression programmatically. For member ops it
// receives the arguments after the receiver and its result is prefixed
// with "receiver.".
type Handler func(ctx Context, args []Arg) (sqlexpr.Expr, error)

type unsupported struct{}

// Unsupported marks an op the engine cannot evaluate.
var Unsupported Strategy = unsupported{}

func (Name) strategy()        {}
func (Chain) strategy()       {}
func (Handler) strategy()     {}
func (unsupported) strategy() {}

// ArgKind classifies a compiled argument.
type ArgKind int

const (
	ArgScalar ArgKind = iota
	ArgNull
	ArgColumn
	ArgValue
	ArgNested
	ArgExpr
)

// Arg is a compiled argument. SQL is always set; the other fields keep
// what the argument was before compilation so handlers can inspect it.
type Arg struct {
	Kind   ArgKind
	SQL    sqlexpr.Expr
	Column *geom.Column
	Value  geom.Value
	Nested *spatial.Invocation
	Scalar any
}

// IsGeometry reports whether the argument is a geometry operand.
func (a Arg) IsGeometry() bool {
	switch a.Kind {
	case ArgColumn, ArgValue, ArgNested, ArgExpr:
		return true
	}
	return false
}

// ScalarArg binds v as a parameter.
func ScalarArg(v any) Arg {
	return Arg{Kind: ArgScalar, SQL: sqlexpr.Param{Value: v}, Scalar: v}
}

// ColumnArg references a geometry column.
func ColumnArg(c *geom.Column) Arg {
	return Arg{Kind: ArgColumn, SQL: sqlexpr.Ident(c.Qualified()), Column: c}
}

// ExprArg wraps an already built expression.
func ExprArg(e sqlexpr.Expr) Arg {
	return Arg{Kind: ArgExpr, SQL: e}
}

// NullArg is the SQL NULL literal.
func NullArg() Arg {
	return Arg{Kind: ArgNull, SQL: sqlexpr.Null{}}
}

func exprs(args []Arg) []sqlexpr.Expr {
	out := make([]sqlexpr.Expr, len(args))
	for i, a := range args {
		out[i] = a.SQL
	}
	return out
}

// Context is passed to handlers.
type Context struct {
	// Op is the operation being rendered.
	Op spatial.Op

	// Boolean is true when the expression sits in a WHERE predicate.
	Boolean bool

	// Flags are the invocation's keyword flags.
	Flags map[string]any

	// Version is the canonical server version ("v1.3.4"), or "" if unknown.
	Version string

	desc *Descriptor
}

// Flag returns a flag value.
func (c Context) Flag(name string) (any, bool) {
	v, ok := c.Flags[name]
	return v, ok
}

// Dialect returns the identity of the dialect doing the rendering.
func (c Context) Dialect() string {
	if c.desc == nil {
		return ""
	}
	return c.desc.name
}

// Render renders a sub-expression with the same dialect, outside boolean
// context and without flags.
func (c Context) Render(op spatial.Op, args ...Arg) (sqlexpr.Expr, error) {
	sub := Context{Op: op, Version: c.Version, desc: c.desc}
	return c.desc.Render(sub, args)
}

// calls renders nested calls through the dialect's own table, keeping the
// first error. Handlers use it to build sub-expressions.
type calls struct {
	ctx Context
	err error
}

func (c *calls) call(op spatial.Op, args ...sqlexpr.Expr) sqlexpr.Expr {
	if c.err != nil {
		return sqlexpr.Null{}
	}
	wrapped := make([]Arg, len(args))
	for i, a := range args {
		wrapped[i] = ExprArg(a)
	}
	e, err := c.ctx.Render(op, wrapped...)
	if err != nil {
		c.err = err
		return sqlexpr.Null{}
	}
	return e
}

func arity(ctx Context, want, got int) error {
	return geoerr.InvalidInput("%s on %s takes %d arguments, got %d", ctx.Op, ctx.Dialect(), want, got)
}
