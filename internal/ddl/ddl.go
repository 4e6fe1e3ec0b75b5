package ddl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/geosql/internal/compile"
	"github.com/roach88/geosql/internal/dialect"
	"github.com/roach88/geosql/internal/geoerr"
	"github.com/roach88/geosql/internal/geom"
	"github.com/roach88/geosql/internal/spatial"
	"github.com/roach88/geosql/internal/sqlexpr"
)

// Conn is the subset of *sql.DB, *sql.Conn and *sql.Tx used here.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Phase selects which provisioning hook to plan.
type Phase int

const (
	// AfterCreate provisions a column once its table exists.
	AfterCreate Phase = iota
	// BeforeDrop removes what AfterCreate added.
	BeforeDrop
)

func (p Phase) String() string {
	if p == BeforeDrop {
		return "before_drop"
	}
	return "after_create"
}

// Statement is one rendered DDL statement.
type Statement struct {
	SQL  string
	Args []any
}

// Plan renders the statements desc issues for col in phase, with the
// dialect's placeholders. version is a canonical server version or "".
func Plan(desc *dialect.Descriptor, col *geom.Column, version string, phase Phase) ([]Statement, error) {
	if col == nil {
		return nil, geoerr.InvalidInput("no geometry column to provision")
	}

	var (
		stmts []sq.Sqlizer
		err   error
	)
	switch phase {
	case AfterCreate:
		stmts, err = desc.ColumnAdded(col, version)
	case BeforeDrop:
		stmts, err = desc.ColumnRemoved(col, version)
	default:
		return nil, fmt.Errorf("unknown ddl phase %d", phase)
	}
	if err != nil {
		return nil, fmt.Errorf("plan %s for %s: %w", phase, col.Qualified(), err)
	}

	out := make([]Statement, 0, len(stmts))
	for _, s := range stmts {
		query, args, err := sqlexpr.Render(s, desc.Placeholder())
		if err != nil {
			return nil, fmt.Errorf("render %s statement for %s: %w", phase, col.Qualified(), err)
		}
		out = append(out, Statement{SQL: query, Args: args})
	}
	return out, nil
}

// Create provisions col. Statements run in order and stop at the first
// failure.
func Create(ctx context.Context, conn Conn, desc *dialect.Descriptor, col *geom.Column, version string) error {
	return run(ctx, conn, desc, col, version, AfterCreate)
}

// Drop reverses Create.
func Drop(ctx context.Context, conn Conn, desc *dialect.Descriptor, col *geom.Column, version string) error {
	return run(ctx, conn, desc, col, version, BeforeDrop)
}

func run(ctx context.Context, conn Conn, desc *dialect.Descriptor, col *geom.Column, version string, phase Phase) error {
	stmts, err := Plan(desc, col, version, phase)
	if err != nil {
		return err
	}
	for i, s := range stmts {
		slog.Debug("executing ddl",
			"dialect", desc.Name(),
			"phase", phase.String(),
			"column", col.Qualified(),
			"step", i+1,
			"sql", s.SQL)
		if _, err := conn.ExecContext(ctx, s.SQL, s.Args...); err != nil {
			return fmt.Errorf("%s %s step %d: %w", phase, col.Qualified(), i+1, err)
		}
	}
	if len(stmts) > 0 {
		slog.Info("geometry column provisioned",
			"dialect", desc.Name(),
			"phase", phase.String(),
			"column", col.Qualified(),
			"statements", len(stmts))
	}
	return nil
}

// ProbeVersion runs the dialect's version query and returns the raw
// answer with its canonical form. The canonical form is "" when the
// answer cannot be parsed.
func ProbeVersion(ctx context.Context, conn Conn, desc *dialect.Descriptor) (raw, canonical string, err error) {
	query := desc.VersionQuery()
	if query == "" {
		return "", "", nil
	}
	var v sql.NullString
	if err := conn.QueryRowContext(ctx, query).Scan(&v); err != nil {
		return "", "", fmt.Errorf("probe %s version: %w", desc.Name(), err)
	}
	canonical = dialect.CanonicalVersion(v.String)
	if canonical == "" {
		slog.Warn("unrecognized server version, version-gated renderings use defaults",
			"dialect", desc.Name(), "version", v.String)
	}
	return v.String, canonical, nil
}

// FetchWKT asks the server for the well-known text of value.
func FetchWKT(ctx context.Context, conn Conn, c *compile.Compiler, value any) (string, error) {
	query, args, err := c.Query(spatial.Invoke(spatial.WKT, value))
	if err != nil {
		return "", err
	}
	var wkt sql.NullString
	if err := conn.QueryRowContext(ctx, query, args...).Scan(&wkt); err != nil {
		return "", fmt.Errorf("fetch wkt: %w", err)
	}
	if !wkt.Valid {
		return "", geoerr.InvalidInput("server returned NULL for the text of the geometry")
	}
	return wkt.String, nil
}

// ShapeOf decodes value locally when it carries its own encoding, and
// otherwise asks the server for its text first.
func ShapeOf(ctx context.Context, conn Conn, c *compile.Compiler, value any) (geom.Shape, error) {
	coerced, err := geom.Coerce(value)
	if err != nil {
		return geom.Shape{}, err
	}
	if v, ok := coerced.(geom.Value); ok {
		if encoded(v) {
			return geom.ShapeOf(v)
		}
	}

	wkt, err := FetchWKT(ctx, conn, c, value)
	if err != nil {
		return geom.Shape{}, err
	}
	srid, known := knownSRID(coerced)
	if !known {
		if srid, err = FetchSRID(ctx, conn, c, value); err != nil {
			return geom.Shape{}, err
		}
	}
	text, err := geom.NewText(wkt, geom.WithSRID(srid))
	if err != nil {
		return geom.Shape{}, err
	}
	return geom.ShapeOf(text)
}

// FetchSRID asks the server for the SRID of value.
func FetchSRID(ctx context.Context, conn Conn, c *compile.Compiler, value any) (int, error) {
	query, args, err := c.Query(spatial.Invoke(spatial.SRID, value))
	if err != nil {
		return 0, err
	}
	var srid sql.NullInt64
	if err := conn.QueryRowContext(ctx, query, args...).Scan(&srid); err != nil {
		return 0, fmt.Errorf("fetch srid: %w", err)
	}
	if !srid.Valid {
		return 0, geoerr.InvalidInput("server returned NULL for the srid of the geometry")
	}
	return int(srid.Int64), nil
}

func knownSRID(v any) (int, bool) {
	switch x := v.(type) {
	case *geom.Column:
		return x.SRID, true
	case geom.Value:
		return geom.SRIDOf(x)
	}
	return 0, false
}

// encoded reports whether v carries WKT or WKB that can be decoded here.
func encoded(v geom.Value) bool {
	switch x := v.(type) {
	case geom.Text:
		return x.SRIDFrom == nil
	case geom.Binary:
		return true
	case geom.Persisted:
		return encoded(x.Inner)
	}
	return false
}

// Geometry scans a geometry result column through a dialect's decoder.
//
//	g := ddl.NewGeometry(desc, col)
//	err := row.Scan(g)
type Geometry struct {
	desc *dialect.Descriptor
	col  *geom.Column

	Value geom.Persisted
	Valid bool
}

// NewGeometry returns a scanner for col.
func NewGeometry(desc *dialect.Descriptor, col *geom.Column) *Geometry {
	return &Geometry{desc: desc, col: col}
}

// Scan implements sql.Scanner.
func (g *Geometry) Scan(src any) error {
	g.Value, g.Valid = geom.Persisted{}, false
	if src == nil {
		return nil
	}
	v, err := g.desc.Decode(src, g.col)
	if err != nil {
		var gerr *geoerr.Error
		if errors.As(err, &gerr) {
			return err
		}
		return fmt.Errorf("decode %s: %w", g.col.Qualified(), err)
	}
	g.Value, g.Valid = v, true
	return nil
}
