package spatial

import (
	"slices"
	"sort"
)

// Op identifies a spatial operation.
type Op int

// Catalog groups operations by the engines that provide them.
type Catalog string

const (
	CatalogCore       Catalog = "core"
	CatalogLiteral    Catalog = "literal"
	CatalogPostGIS    Catalog = "postgis"
	CatalogMBR        Catalog = "mbr"
	CatalogSpatiaLite Catalog = "spatialite"
	CatalogOracle     Catalog = "oracle"
	CatalogMSSQL      Catalog = "mssql"
)

// Result classifies what an operation evaluates to.
type Result int

const (
	ResultValue Result = iota
	ResultBoolean
	ResultGeometry
)

const (
	Invalid Op = iota

	// Core accessors.
	WKT
	WKB
	Dimension
	SRID
	GeometryType
	IsValid
	IsEmpty
	IsSimple
	IsClosed
	IsRing
	NumPoints
	PointN
	Length
	Area
	X
	Y
	Centroid
	Boundary
	Buffer
	ConvexHull
	Envelope
	StartPoint
	EndPoint
	Transform

	// Core relations.
	Equals
	Distance
	WithinDistance
	Disjoint
	Intersects
	Touches
	Crosses
	Within
	Overlaps
	Contains
	Covers
	CoveredBy
	Intersection

	// Core aggregates.
	Union
	Collect
	Extent

	// Literal constructors, used by the compiler for geometry values.
	GeomFromText
	GeomFromWKB
	GeomFromDB

	// Output formats shared by several engines.
	SVG
	KML
	GML
	GeoJSON
	Expand
	FGF

	// Minimum bounding rectangle relations.
	MBREqual
	MBRDisjoint
	MBRIntersects
	MBRTouches
	MBRWithin
	MBROverlaps
	MBRContains

	// Oracle Spatial.
	GType
	Dims
	GML311
	SDOFilter
	SDONN
	SDONNDistance
	SDORelate
	SDOWithinDistance
	SDOAnyInteract
	SDOContains
	SDOCoveredBy
	SDOCovers
	SDOEqual
	SDOInside
	SDOOn
	SDOOverlapBdyDisjoint
	SDOOverlapBdyIntersect
	SDOOverlaps
	SDOTouch
	SDOGeomArea
	SDOGeomBuffer
	SDOGeomCentroid
	SDOGeomConcaveHull
	SDOGeomConcaveHullBoundary
	SDOGeomConvexHull
	SDOGeomDifference
	SDOGeomDistance
	SDOGeomIntersection
	SDOGeomLength
	SDOGeomMBR
	SDOGeomPointOnSurface
	SDOGeomUnion
	SDOGeomXor
	SDOGeomWithinDistance

	// SQL Server.
	TextZM
	BufferWithTolerance
	Filter
	InstanceOf
	M
	MakeValid
	Reduce
	ToString
	Z

	opCount
)

type opInfo struct {
	name      string
	catalogs  []Catalog
	result    Result
	aggregate bool
}

var (
	core    = []Catalog{CatalogCore}
	literal = []Catalog{CatalogLiteral}
	mbr     = []Catalog{CatalogMBR}
	oracle  = []Catalog{CatalogOracle}
	mssql   = []Catalog{CatalogMSSQL}
)

var opTable = [opCount]opInfo{
	WKT:          {"wkt", core, ResultValue, false},
	WKB:          {"wkb", core, ResultValue, false},
	Dimension:    {"dimension", core, ResultValue, false},
	SRID:         {"srid", core, ResultValue, false},
	GeometryType: {"geometry_type", core, ResultValue, false},
	IsValid:      {"is_valid", core, ResultBoolean, false},
	IsEmpty:      {"is_empty", core, ResultBoolean, false},
	IsSimple:     {"is_simple", core, ResultBoolean, false},
	IsClosed:     {"is_closed", core, ResultBoolean, false},
	IsRing:       {"is_ring", core, ResultBoolean, false},
	NumPoints:    {"num_points", core, ResultValue, false},
	PointN:       {"point_n", core, ResultGeometry, false},
	Length:       {"length", core, ResultValue, false},
	Area:         {"area", core, ResultValue, false},
	X:            {"x", core, ResultValue, false},
	Y:            {"y", core, ResultValue, false},
	Centroid:     {"centroid", core, ResultGeometry, false},
	Boundary:     {"boundary", core, ResultGeometry, false},
	Buffer:       {"buffer", core, ResultGeometry, false},
	ConvexHull:   {"convex_hull", core, ResultGeometry, false},
	Envelope:     {"envelope", core, ResultGeometry, false},
	StartPoint:   {"start_point", core, ResultGeometry, false},
	EndPoint:     {"end_point", core, ResultGeometry, false},
	Transform:    {"transform", core, ResultGeometry, false},

	Equals:         {"equals", core, ResultBoolean, false},
	Distance:       {"distance", core, ResultValue, false},
	WithinDistance: {"within_distance", core, ResultBoolean, false},
	Disjoint:       {"disjoint", core, ResultBoolean, false},
	Intersects:     {"intersects", core, ResultBoolean, false},
	Touches:        {"touches", core, ResultBoolean, false},
	Crosses:        {"crosses", core, ResultBoolean, false},
	Within:         {"within", core, ResultBoolean, false},
	Overlaps:       {"overlaps", core, ResultBoolean, false},
	Contains:       {"contains", core, ResultBoolean, false},
	Covers:         {"covers", core, ResultBoolean, false},
	CoveredBy:      {"covered_by", core, ResultBoolean, false},
	Intersection:   {"intersection", core, ResultGeometry, false},

	Union:   {"union", core, ResultGeometry, true},
	Collect: {"collect", core, ResultGeometry, true},
	Extent:  {"extent", core, ResultValue, true},

	GeomFromText: {"geom_from_text", literal, ResultGeometry, false},
	GeomFromWKB:  {"geom_from_wkb", literal, ResultGeometry, false},
	GeomFromDB:   {"geom_from_db", literal, ResultGeometry, false},

	SVG:     {"svg", []Catalog{CatalogPostGIS, CatalogSpatiaLite}, ResultValue, false},
	KML:     {"kml", []Catalog{CatalogPostGIS, CatalogOracle}, ResultValue, false},
	GML:     {"gml", []Catalog{CatalogPostGIS, CatalogOracle, CatalogMSSQL}, ResultValue, false},
	GeoJSON: {"geojson", []Catalog{CatalogPostGIS}, ResultValue, false},
	Expand:  {"expand", []Catalog{CatalogPostGIS}, ResultGeometry, false},
	FGF:     {"fgf", []Catalog{CatalogSpatiaLite}, ResultValue, false},

	MBREqual:      {"mbr_equal", mbr, ResultBoolean, false},
	MBRDisjoint:   {"mbr_disjoint", mbr, ResultBoolean, false},
	MBRIntersects: {"mbr_intersects", mbr, ResultBoolean, false},
	MBRTouches:    {"mbr_touches", mbr, ResultBoolean, false},
	MBRWithin:     {"mbr_within", mbr, ResultBoolean, false},
	MBROverlaps:   {"mbr_overlaps", mbr, ResultBoolean, false},
	MBRContains:   {"mbr_contains", mbr, ResultBoolean, false},

	GType:                      {"gtype", oracle, ResultValue, false},
	Dims:                       {"dims", oracle, ResultValue, false},
	GML311:                     {"gml311", oracle, ResultValue, false},
	SDOFilter:                  {"sdo_filter", oracle, ResultBoolean, false},
	SDONN:                      {"sdo_nn", oracle, ResultBoolean, false},
	SDONNDistance:              {"sdo_nn_distance", oracle, ResultValue, false},
	SDORelate:                  {"sdo_relate", oracle, ResultBoolean, false},
	SDOWithinDistance:          {"sdo_within_distance", oracle, ResultBoolean, false},
	SDOAnyInteract:             {"sdo_anyinteract", oracle, ResultBoolean, false},
	SDOContains:                {"sdo_contains", oracle, ResultBoolean, false},
	SDOCoveredBy:               {"sdo_coveredby", oracle, ResultBoolean, false},
	SDOCovers:                  {"sdo_covers", oracle, ResultBoolean, false},
	SDOEqual:                   {"sdo_equal", oracle, ResultBoolean, false},
	SDOInside:                  {"sdo_inside", oracle, ResultBoolean, false},
	SDOOn:                      {"sdo_on", oracle, ResultBoolean, false},
	SDOOverlapBdyDisjoint:      {"sdo_overlapbdydisjoint", oracle, ResultBoolean, false},
	SDOOverlapBdyIntersect:     {"sdo_overlapbdyintersect", oracle, ResultBoolean, false},
	SDOOverlaps:                {"sdo_overlaps", oracle, ResultBoolean, false},
	SDOTouch:                   {"sdo_touch", oracle, ResultBoolean, false},
	SDOGeomArea:                {"sdo_geom_sdo_area", oracle, ResultValue, false},
	SDOGeomBuffer:              {"sdo_geom_sdo_buffer", oracle, ResultGeometry, false},
	SDOGeomCentroid:            {"sdo_geom_sdo_centroid", oracle, ResultGeometry, false},
	SDOGeomConcaveHull:         {"sdo_geom_sdo_concavehull", oracle, ResultGeometry, false},
	SDOGeomConcaveHullBoundary: {"sdo_geom_sdo_concavehull_boundary", oracle, ResultGeometry, false},
	SDOGeomConvexHull:          {"sdo_geom_sdo_convexhull", oracle, ResultGeometry, false},
	SDOGeomDifference:          {"sdo_geom_sdo_difference", oracle, ResultGeometry, false},
	SDOGeomDistance:            {"sdo_geom_sdo_distance", oracle, ResultValue, false},
	SDOGeomIntersection:        {"sdo_geom_sdo_intersection", oracle, ResultGeometry, false},
	SDOGeomLength:              {"sdo_geom_sdo_length", oracle, ResultValue, false},
	SDOGeomMBR:                 {"sdo_geom_sdo_mbr", oracle, ResultGeometry, false},
	SDOGeomPointOnSurface:      {"sdo_geom_sdo_pointonsurface", oracle, ResultGeometry, false},
	SDOGeomUnion:               {"sdo_geom_sdo_union", oracle, ResultGeometry, false},
	SDOGeomXor:                 {"sdo_geom_sdo_xor", oracle, ResultGeometry, false},
	SDOGeomWithinDistance:      {"sdo_geom_sdo_within_distance", oracle, ResultBoolean, false},

	TextZM:              {"text_zm", mssql, ResultValue, false},
	BufferWithTolerance: {"buffer_with_tolerance", mssql, ResultGeometry, false},
	Filter:              {"filter", mssql, ResultBoolean, false},
	InstanceOf:          {"instance_of", mssql, ResultBoolean, false},
	M:                   {"m", mssql, ResultValue, false},
	MakeValid:           {"make_valid", mssql, ResultGeometry, false},
	Reduce:              {"reduce", mssql, ResultGeometry, false},
	ToString:            {"to_string", mssql, ResultValue, false},
	Z:                   {"z", mssql, ResultValue, false},
}

var byName = func() map[string]Op {
	m := make(map[string]Op, opCount)
	for op := Op(1); op < opCount; op++ {
		m[opTable[op].name] = op
	}
	return m
}()

// Valid reports whether op is a known operation.
func (op Op) Valid() bool { return op > Invalid && op < opCount }

// String returns the operation name, e.g. "within_distance".
func (op Op) String() string {
	if !op.Valid() {
		return "invalid"
	}
	return opTable[op].name
}

// Catalogs returns the catalogs the operation belongs to.
func (op Op) Catalogs() []Catalog {
	if !op.Valid() {
		return nil
	}
	return slices.Clone(opTable[op].catalogs)
}

// In reports whether op belongs to catalog c.
func (op Op) In(c Catalog) bool {
	return op.Valid() && slices.Contains(opTable[op].catalogs, c)
}

// Result classifies what op evaluates to.
func (op Op) Result() Result {
	if !op.Valid() {
		return ResultValue
	}
	return opTable[op].result
}

// ReturnsGeometry reports whether op produces a new geometry.
func (op Op) ReturnsGeometry() bool { return op.Result() == ResultGeometry }

// Aggregate reports whether op is an aggregate over a set of geometries.
func (op Op) Aggregate() bool { return op.Valid() && opTable[op].aggregate }

// Lookup finds an operation by name.
func Lookup(name string) (Op, bool) {
	op, ok := byName[name]
	return op, ok
}

// All returns every operation in declaration order.
func All() []Op {
	ops := make([]Op, 0, opCount-1)
	for op := Op(1); op < opCount; op++ {
		ops = append(ops, op)
	}
	return ops
}

// InCatalog returns the operations of catalog c, sorted by name.
func InCatalog(c Catalog) []Op {
	var ops []Op
	for op := Op(1); op < opCount; op++ {
		if op.In(c) {
			ops = append(ops, op)
		}
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].String() < ops[j].String() })
	return ops
}
