package ddl_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/geosql/internal/ddl"
	"github.com/roach88/geosql/internal/dialect"
	"github.com/roach88/geosql/internal/geoerr"
	"github.com/roach88/geosql/internal/registry"
	"github.com/roach88/geosql/internal/spatial"
)

func TestAttachWithNamedEngine(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT PostGIS_Lib_Version()").
		WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow("1.3.3"))

	s, err := ddl.Attach(context.Background(), db, ddl.WithEngine("postgres"), ddl.WithRegistry(registry.New()))
	require.NoError(t, err)
	assert.Equal(t, dialect.PostGISName, s.Dialect().Name())

	raw, canonical := s.Version()
	assert.Equal(t, "1.3.3", raw)
	assert.Equal(t, "v1.3.3", canonical)
	assert.Equal(t, "v1.3.3", s.Compiler().Version())

	// Releases before 1.3.4 expand the bounding box instead of ST_DWithin.
	sql, _, err := s.Compiler().Where(spatial.WithinDistanceOf("POINT(0 0)", "POINT(1 1)", 2))
	require.NoError(t, err)
	assert.NotContains(t, sql, "ST_DWithin")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachUnknownDriver(t *testing.T) {
	db, _ := newMock(t)
	_, err := ddl.Attach(context.Background(), db)
	require.Error(t, err)
	assert.True(t, geoerr.IsUnsupportedEngine(err))
}

func TestSessionCreateUsesProbedVersion(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT sqlite_version()").
		WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow("3.5.9"))
	mock.ExpectExec("SELECT AddGeometryColumn(?, ?, ?, ?, ?, ?)").
		WithArgs("roads", "geom", 4326, "GEOMETRY", 2, 0).
		WillReturnResult(sqlmock.NewResult(0, 0))

	s, err := ddl.Attach(context.Background(), db, ddl.WithEngine("sqlite3"))
	require.NoError(t, err)

	// 3.5.9 predates R*Tree, so no spatial index statements follow.
	require.NoError(t, s.Create(context.Background(), roads()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenSQLite(t *testing.T) {
	s, err := ddl.Open(context.Background(), "sqlite3", ":memory:")
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, dialect.SpatiaLiteName, s.Dialect().Name())
	raw, canonical := s.Version()
	assert.NotEmpty(t, raw)
	assert.NotEmpty(t, canonical)
	assert.Equal(t, 1, s.DB().Stats().MaxOpenConnections)
}

func TestOpenFailsForUnknownDriver(t *testing.T) {
	_, err := ddl.Open(context.Background(), "no-such-driver", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open database")
}
