package compile

import (
	"github.com/roach88/geosql/internal/geoerr"
	"github.com/roach88/geosql/internal/spatial"
	"github.com/roach88/geosql/internal/sqlexpr"
)

// Comparator builds predicates on one geometry operand, usually a column.
type Comparator struct {
	c      *Compiler
	target any
}

// On returns a Comparator for target.
func (c *Compiler) On(target any) Comparator {
	return Comparator{c: c, target: target}
}

// Call builds op applied to the target and args. Operations the dialect
// cannot render are rejected here rather than at compile time.
func (cmp Comparator) Call(op spatial.Op, args ...any) (*spatial.Invocation, error) {
	if !op.Valid() {
		return nil, geoerr.UnknownOperation(op.String())
	}
	if !cmp.c.desc.Supports(op) {
		return nil, geoerr.UnsupportedOperation(op.String(), cmp.c.desc.Name())
	}
	return spatial.Invoke(op, append([]any{cmp.target}, args...)...), nil
}

// Eq is the equality predicate. Comparing with nil tests for NULL.
func (cmp Comparator) Eq(other any) (sqlexpr.Expr, error) {
	if other == nil {
		return cmp.isNull(false)
	}
	inv, err := cmp.Call(spatial.Equals, other)
	if err != nil {
		return nil, err
	}
	return cmp.c.Compile(inv, true)
}

// Ne negates Eq. Comparing with nil tests for NOT NULL.
func (cmp Comparator) Ne(other any) (sqlexpr.Expr, error) {
	if other == nil {
		return cmp.isNull(true)
	}
	eq, err := cmp.Eq(other)
	if err != nil {
		return nil, err
	}
	return sqlexpr.Not{X: eq}, nil
}

func (cmp Comparator) isNull(negate bool) (sqlexpr.Expr, error) {
	e, err := cmp.c.Compile(cmp.target, false)
	if err != nil {
		return nil, err
	}
	return sqlexpr.IsNull{X: e, Negate: negate}, nil
}
