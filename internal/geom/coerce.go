package geom

import (
	"regexp"

	"github.com/roach88/geosql/internal/geoerr"
)

// wktPattern is the "looks like WKT" heuristic: a parenthesized group.
var wktPattern = regexp.MustCompile(`\(.*\)`)

// LooksLikeWKT reports whether s would be coerced into a Text value.
func LooksLikeWKT(s string) bool {
	return wktPattern.MatchString(s)
}

// Coerce interprets a client-supplied value as a geometry operand.
//
// Precedence:
//  1. *Column passes through
//  2. any other Expression passes through
//  3. a Value passes through; a Persisted value wrapping Text or Binary
//     unwraps to it, any other Persisted value is returned as is
//  4. a string that looks like WKT becomes a Text with DefaultSRID
//  5. nil stays nil
//
// Anything else fails with INVALID_GEOMETRY_INPUT.
func Coerce(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case *Column:
		if x == nil {
			return nil, nil
		}
		return x, nil
	case Expression:
		return x, nil
	case Persisted:
		if x.Inner == nil {
			return nil, geoerr.InvalidInput("persisted geometry has no payload")
		}
		switch x.Inner.(type) {
		case Text, Binary:
			return x.Inner, nil
		}
		return x, nil
	case Value:
		return x, nil
	case string:
		if LooksLikeWKT(x) {
			return Text{WKT: x, SRID: DefaultSRID, Type: Geometry}, nil
		}
		return nil, geoerr.InvalidInput("string %q is not well-known text", x)
	default:
		return nil, geoerr.InvalidInput("cannot use %T as a geometry", v)
	}
}
