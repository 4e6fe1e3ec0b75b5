package geom

// Column is a geometry column reference.
//
// Table, Schema and Name identify the column. The remaining fields describe
// the declared column type and drive DDL provisioning and dialect handlers.
type Column struct {
	Table  string
	Schema string
	Name   string

	Type      GeometryType
	Dimension int
	SRID      int

	SpatialIndex bool
	Nullable     bool

	// WKTInternal makes select-list reads return text instead of binary.
	WKTInternal bool

	// DimInfo is the Oracle DIMINFO literal for the column.
	DimInfo string

	// BoundingBox is the SQL Server spatial index bounding box,
	// e.g. "(xmin=-180, ymin=-90, xmax=180, ymax=90)".
	BoundingBox string
}

// NewColumn returns a column with the usual defaults: GEOMETRY, two
// dimensions, DefaultSRID, nullable, spatially indexed.
func NewColumn(table, name string) *Column {
	return &Column{
		Table:        table,
		Name:         name,
		Type:         Geometry,
		Dimension:    2,
		SRID:         DefaultSRID,
		SpatialIndex: true,
		Nullable:     true,
	}
}

func (*Column) ExpressionNode() {}

// Qualified returns "table.name", or just the name without a table.
func (c *Column) Qualified() string {
	if c.Table == "" {
		return c.Name
	}
	return c.Table + "." + c.Name
}

// GeometryType returns the declared subtype, defaulting to Geometry.
func (c *Column) GeometryType() GeometryType {
	if c.Type == "" {
		return Geometry
	}
	return c.Type
}
