package registry

import (
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"modernc.org/sqlite"

	"github.com/roach88/geosql/internal/dialect"
	"github.com/roach88/geosql/internal/geoerr"
)

// EngineOf returns the engine identity for a database/sql driver.
func EngineOf(d driver.Driver) (string, bool) {
	switch d.(type) {
	case *pq.Driver, *stdlib.Driver:
		return dialect.PostGISName, true
	case *mysql.MySQLDriver:
		return dialect.MySQLName, true
	case *sqlite3.SQLiteDriver, *sqlite.Driver:
		return dialect.SpatiaLiteName, true
	}
	return "", false
}

// ResolveDB returns the descriptor for the engine behind db.
func (r *Registry) ResolveDB(db *sql.DB) (*dialect.Descriptor, error) {
	name, ok := EngineOf(db.Driver())
	if !ok {
		return nil, geoerr.UnsupportedEngine(fmt.Sprintf("%T", db.Driver()))
	}
	return r.Resolve(name)
}

// ResolveDB resolves db against the process-wide registry.
func ResolveDB(db *sql.DB) (*dialect.Descriptor, error) {
	return Default().ResolveDB(db)
}
