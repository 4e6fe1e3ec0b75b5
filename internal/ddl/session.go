package ddl

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/roach88/geosql/internal/compile"
	"github.com/roach88/geosql/internal/dialect"
	"github.com/roach88/geosql/internal/geom"
	"github.com/roach88/geosql/internal/registry"
)

// Session binds an open database to its dialect, server version and a
// compiler configured for both.
type Session struct {
	db       *sql.DB
	desc     *dialect.Descriptor
	raw      string
	version  string
	compiler *compile.Compiler
}

// SessionOption configures Open and Attach.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	registry *registry.Registry
	engine   string
	compile  []compile.Option
}

// WithRegistry resolves the dialect from r instead of the default registry.
func WithRegistry(r *registry.Registry) SessionOption {
	return func(c *sessionConfig) { c.registry = r }
}

// WithEngine names the engine explicitly, for drivers the registry
// cannot identify by type (Oracle, SQL Server).
func WithEngine(engine string) SessionOption {
	return func(c *sessionConfig) { c.engine = engine }
}

// WithCompileOptions passes extra options to the session compiler.
func WithCompileOptions(opts ...compile.Option) SessionOption {
	return func(c *sessionConfig) { c.compile = append(c.compile, opts...) }
}

// Open opens a database with database/sql, verifies the connection and
// attaches a session to it. The caller owns the session and must Close it.
func Open(ctx context.Context, driverName, dsn string, opts ...SessionOption) (*Session, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s, err := Attach(ctx, db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Attach resolves db's dialect and probes its server version.
func Attach(ctx context.Context, db *sql.DB, opts ...SessionOption) (*Session, error) {
	cfg := sessionConfig{registry: registry.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	var (
		desc *dialect.Descriptor
		err  error
	)
	if cfg.engine != "" {
		desc, err = cfg.registry.Resolve(cfg.engine)
	} else {
		desc, err = cfg.registry.ResolveDB(db)
	}
	if err != nil {
		return nil, err
	}

	// SQLite allows one writer; provisioning runs several statements.
	if desc.Name() == dialect.SpatiaLiteName {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	raw, version, err := ProbeVersion(ctx, db, desc)
	if err != nil {
		return nil, err
	}
	slog.Debug("session attached", "dialect", desc.Name(), "version", raw)

	copts := append([]compile.Option{compile.WithVersion(raw)}, cfg.compile...)
	return &Session{
		db:       db,
		desc:     desc,
		raw:      raw,
		version:  version,
		compiler: compile.New(desc, copts...),
	}, nil
}

// Close closes the underlying database.
func (s *Session) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying database.
func (s *Session) DB() *sql.DB { return s.db }

// Dialect returns the session's dialect.
func (s *Session) Dialect() *dialect.Descriptor { return s.desc }

// Version returns the raw and canonical server versions.
func (s *Session) Version() (raw, canonical string) { return s.raw, s.version }

// Compiler returns a compiler bound to the session's dialect and version.
func (s *Session) Compiler() *compile.Compiler { return s.compiler }

// Create provisions col.
func (s *Session) Create(ctx context.Context, col *geom.Column) error {
	return Create(ctx, s.db, s.desc, col, s.version)
}

// Drop removes col's provisioning.
func (s *Session) Drop(ctx context.Context, col *geom.Column) error {
	return Drop(ctx, s.db, s.desc, col, s.version)
}

// FetchWKT returns the server's text rendering of value.
func (s *Session) FetchWKT(ctx context.Context, value any) (string, error) {
	return FetchWKT(ctx, s.db, s.compiler, value)
}

// Scanner returns a result-column scanner for col.
func (s *Session) Scanner(col *geom.Column) *Geometry {
	return NewGeometry(s.desc, col)
}
