package dialect

import (
	"regexp"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/roach88/geosql/internal/spatial"
)

// defaults is the cross-dialect table consulted when an engine has no
// override.
var defaults = map[spatial.Op]Strategy{
	spatial.WKT:            Name("AsText"),
	spatial.GeomFromText:   Name("GeomFromText"),
	spatial.WKB:            Name("AsBinary"),
	spatial.GeomFromWKB:    Name("GeomFromWKB"),
	spatial.GeomFromDB:     Name(""),
	spatial.Dimension:      Name("Dimension"),
	spatial.SRID:           Name("SRID"),
	spatial.GeometryType:   Name("GeometryType"),
	spatial.IsValid:        Name("IsValid"),
	spatial.IsEmpty:        Name("IsEmpty"),
	spatial.IsSimple:       Name("IsSimple"),
	spatial.IsClosed:       Name("IsClosed"),
	spatial.IsRing:         Name("IsRing"),
	spatial.NumPoints:      Name("NumPoints"),
	spatial.PointN:         Name("PointN"),
	spatial.Length:         Name("Length"),
	spatial.Area:           Name("Area"),
	spatial.X:              Name("X"),
	spatial.Y:              Name("Y"),
	spatial.Centroid:       Name("Centroid"),
	spatial.Boundary:       Name("Boundary"),
	spatial.Buffer:         Name("Buffer"),
	spatial.ConvexHull:     Name("ConvexHull"),
	spatial.Envelope:       Name("Envelope"),
	spatial.StartPoint:     Name("StartPoint"),
	spatial.EndPoint:       Name("EndPoint"),
	spatial.Transform:      Name("Transform"),
	spatial.Equals:         Name("Equals"),
	spatial.Distance:       Name("Distance"),
	spatial.WithinDistance: Name("DWithin"),
	spatial.Disjoint:       Name("Disjoint"),
	spatial.Intersects:     Name("Intersects"),
	spatial.Touches:        Name("Touches"),
	spatial.Crosses:        Name("Crosses"),
	spatial.Within:         Name("Within"),
	spatial.Overlaps:       Name("Overlaps"),
	spatial.Contains:       Name("Contains"),
	spatial.Covers:         Name("Covers"),
	spatial.CoveredBy:      Name("CoveredBy"),
	spatial.Intersection:   Name("Intersection"),
	spatial.Union:          Unsupported,
	spatial.Collect:        Unsupported,
	spatial.Extent:         Unsupported,
}

var versionPrefix = regexp.MustCompile(`^\d+(\.\d+){0,2}`)

// CanonicalVersion extracts a semver-comparable version ("v3.4.2") from a
// server version string such as "3.4 USE_GEOS=1" or "8.0.36-0ubuntu".
// It returns "" when no version can be found.
func CanonicalVersion(raw string) string {
	m := versionPrefix.FindString(strings.TrimPrefix(strings.TrimSpace(raw), "v"))
	if m == "" {
		return ""
	}
	v := "v" + m
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

// versionBelow reports whether a known version is older than min.
// Unknown versions are never below.
func versionBelow(version, min string) bool {
	return version != "" && semver.Compare(version, min) < 0
}

// versionAtLeast reports whether a known version is min or newer.
// Unknown versions never are.
func versionAtLeast(version, min string) bool {
	return version != "" && semver.Compare(version, min) >= 0
}
