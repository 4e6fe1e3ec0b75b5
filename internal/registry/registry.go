// Package registry resolves engine identities to spatial dialect
// descriptors.
//
// Each registry builds at most one descriptor per engine. Resolution is
// safe for concurrent use: the first callers for an engine share a single
// construction (singleflight) and later callers read an immutable snapshot
// of the cache without locking.
package registry

import (
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/geosql/internal/dialect"
	"github.com/roach88/geosql/internal/geoerr"
)

// Factory builds a descriptor.
type Factory func() *dialect.Descriptor

// Registry maps engine identities and their aliases to descriptors.
type Registry struct {
	factories map[string]Factory
	aliases   map[string]string

	mu    sync.Mutex // serializes cache writes
	cache atomic.Pointer[map[string]*dialect.Descriptor]
	group singleflight.Group
	built atomic.Int64
}

// Option configures a Registry.
type Option func(*Registry)

// WithFactory registers (or replaces) the factory for an engine identity,
// plus any aliases that should resolve to it.
func WithFactory(name string, f Factory, aliases ...string) Option {
	return func(r *Registry) {
		name = normalize(name)
		r.factories[name] = f
		for _, a := range aliases {
			r.aliases[normalize(a)] = name
		}
	}
}

// WithoutBuiltins drops every engine registered so far, including the
// built-ins. Options after it start from an empty registry.
func WithoutBuiltins() Option {
	return func(r *Registry) {
		clear(r.factories)
		clear(r.aliases)
	}
}

// New creates a registry with the built-in engines and their driver
// aliases. Options are applied in order after the built-ins.
func New(opts ...Option) *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		aliases:   make(map[string]string),
	}
	builtins := []Option{
		WithFactory(dialect.PostGISName, dialect.PostGIS, "postgres", "postgresql", "pgx", "pq"),
		WithFactory(dialect.MySQLName, dialect.MySQL, "mariadb"),
		WithFactory(dialect.OracleName, dialect.Oracle, "godror", "oci8"),
		WithFactory(dialect.MSSQLName, dialect.MSSQL, "sqlserver"),
		WithFactory(dialect.SpatiaLiteName, dialect.SpatiaLite, "sqlite", "sqlite3"),
	}
	for _, opt := range append(builtins, opts...) {
		opt(r)
	}
	empty := make(map[string]*dialect.Descriptor)
	r.cache.Store(&empty)
	return r
}

var defaultRegistry = sync.OnceValue(func() *Registry { return New() })

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry() }

// Resolve returns the descriptor for engine from the process-wide registry.
func Resolve(engine string) (*dialect.Descriptor, error) {
	return Default().Resolve(engine)
}

// Canonical returns the engine identity engine resolves to.
func (r *Registry) Canonical(engine string) (string, bool) {
	name := normalize(engine)
	if alias, ok := r.aliases[name]; ok {
		name = alias
	}
	_, ok := r.factories[name]
	return name, ok
}

// Resolve returns the descriptor for an engine identity or alias. Every
// call for the same engine returns the same descriptor.
func (r *Registry) Resolve(engine string) (*dialect.Descriptor, error) {
	name, ok := r.Canonical(engine)
	if !ok {
		return nil, geoerr.UnsupportedEngine(engine)
	}
	if d, ok := (*r.cache.Load())[name]; ok {
		return d, nil
	}

	v, err, _ := r.group.Do(name, func() (any, error) {
		if d, ok := (*r.cache.Load())[name]; ok {
			return d, nil
		}
		d := r.factories[name]()
		r.built.Add(1)
		slog.Debug("dialect descriptor constructed", "engine", name)

		r.mu.Lock()
		next := maps.Clone(*r.cache.Load())
		next[name] = d
		r.cache.Store(&next)
		r.mu.Unlock()
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*dialect.Descriptor), nil
}

// Names returns the registered engine identities, sorted.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.factories))
}

// Constructions reports how many descriptors the registry has built.
func (r *Registry) Constructions() int64 { return r.built.Load() }

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
