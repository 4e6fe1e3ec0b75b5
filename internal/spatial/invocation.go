package spatial

import (
	"maps"
	"slices"

	"github.com/roach88/geosql/internal/geoerr"
)

// Flag names understood by dialect handlers.
const (
	// FlagAutoDimInfo controls Oracle DIMINFO insertion (default true).
	FlagAutoDimInfo = "auto_diminfo"

	// FlagTolerance supplies a tolerance where DIMINFO is unavailable.
	FlagTolerance = "tolerance"

	// FlagParams is appended to Oracle within-distance parameter strings,
	// e.g. "unit=km".
	FlagParams = "params"

	// FlagDim1 and FlagDim2 supply DIMINFO for the two geometries of an
	// Oracle within-distance call.
	FlagDim1 = "dim1"
	FlagDim2 = "dim2"
)

// Invocation is an operation applied to positional arguments and flags.
//
// An argument is a geometry value, a nested *Invocation, a column, a WKT
// string, or a scalar. Invocations are immutable.
type Invocation struct {
	op    Op
	args  []any
	flags map[string]any
}

// Invoke builds an invocation of op.
func Invoke(op Op, args ...any) *Invocation {
	return &Invocation{op: op, args: slices.Clone(args)}
}

// Call builds an invocation by operation name.
func Call(name string, args ...any) (*Invocation, error) {
	op, ok := Lookup(name)
	if !ok {
		return nil, geoerr.UnknownOperation(name)
	}
	return Invoke(op, args...), nil
}

func (*Invocation) ExpressionNode() {}

// Op returns the operation.
func (i *Invocation) Op() Op { return i.op }

// Args returns a copy of the positional arguments.
func (i *Invocation) Args() []any { return slices.Clone(i.args) }

// NumArgs returns the number of positional arguments.
func (i *Invocation) NumArgs() int { return len(i.args) }

// Flag returns a flag value.
func (i *Invocation) Flag(name string) (any, bool) {
	v, ok := i.flags[name]
	return v, ok
}

// Flags returns a copy of the flags.
func (i *Invocation) Flags() map[string]any {
	return maps.Clone(i.flags)
}

// With returns a copy with args appended. This binds late arguments, such
// as the index of point_n when it was started from a column.
func (i *Invocation) With(args ...any) *Invocation {
	next := i.clone()
	next.args = append(next.args, args...)
	return next
}

// WithFlag returns a copy with one flag set.
func (i *Invocation) WithFlag(name string, v any) *Invocation {
	next := i.clone()
	if next.flags == nil {
		next.flags = make(map[string]any, 1)
	}
	next.flags[name] = v
	return next
}

// WithFlags returns a copy with all of flags set.
func (i *Invocation) WithFlags(flags map[string]any) *Invocation {
	next := i.clone()
	if len(flags) > 0 && next.flags == nil {
		next.flags = make(map[string]any, len(flags))
	}
	maps.Copy(next.flags, flags)
	return next
}

// Then chains op onto this invocation, using it as the first argument.
func (i *Invocation) Then(op Op, args ...any) *Invocation {
	return Invoke(op, append([]any{i}, args...)...)
}

func (i *Invocation) clone() *Invocation {
	return &Invocation{
		op:    i.op,
		args:  slices.Clone(i.args),
		flags: maps.Clone(i.flags),
	}
}

// Equal builds equals(a, b).
func Equal(a, b any) *Invocation { return Invoke(Equals, a, b) }

// DistanceBetween builds distance(a, b).
func DistanceBetween(a, b any) *Invocation { return Invoke(Distance, a, b) }

// WithinDistanceOf builds within_distance(a, b, d).
func WithinDistanceOf(a, b any, d any) *Invocation { return Invoke(WithinDistance, a, b, d) }

// BufferOf builds buffer(g, length).
func BufferOf(g any, length any) *Invocation { return Invoke(Buffer, g, length) }

// TransformTo builds transform(g, srid).
func TransformTo(g any, srid int) *Invocation { return Invoke(Transform, g, srid) }
