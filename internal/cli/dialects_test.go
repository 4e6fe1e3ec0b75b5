package cli

import (
	"encoding/json"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/geosql/internal/dialect"
	"github.com/roach88/geosql/internal/registry"
	"github.com/roach88/geosql/internal/spatial"
)

func TestBuildSupportMatrix(t *testing.T) {
	matrix, err := BuildSupportMatrix(registry.Default(), []spatial.Op{spatial.Distance, spatial.MBRWithin})
	require.NoError(t, err)

	require.Len(t, matrix.Dialects, 5)
	assert.Equal(t, "mssql", matrix.Dialects[0].Name)

	require.Len(t, matrix.Ops, 2)
	assert.Equal(t, "distance", matrix.Ops[0].Op)
	assert.False(t, matrix.Ops[0].Support["mysql"])
	assert.True(t, matrix.Ops[0].Support["postgis"])
	assert.Equal(t, []string{"mbr"}, matrix.Ops[1].Catalogs)
	assert.True(t, matrix.Ops[1].Support["mysql"])
	assert.False(t, matrix.Ops[1].Support["postgis"])
}

func TestBuildSupportMatrix_CustomRegistry(t *testing.T) {
	reg := registry.New(registry.WithoutBuiltins(), registry.WithFactory("pg", dialect.PostGIS))
	matrix, err := BuildSupportMatrix(reg, []spatial.Op{spatial.Area})
	require.NoError(t, err)
	assert.Equal(t, []DialectInfo{{Name: "pg", Catalogs: []string{"core", "postgis"}}}, matrix.Dialects)
}

func TestDialectsCommand_Text(t *testing.T) {
	color.NoColor = true
	out, err := runCommand(t, "dialects", "--op", "distance")
	require.NoError(t, err)

	assert.Contains(t, out, "mssql")
	assert.Contains(t, out, "spatialite")
	assert.Contains(t, out, "distance")
	assert.Contains(t, out, "yes")
	assert.Contains(t, out, "no")
	assert.Contains(t, out, "_1 operations, 5 dialects_")
}

func TestDialectsCommand_CatalogJSON(t *testing.T) {
	out, err := runCommand(t, "--format", "json", "dialects", "--catalog", "MBR")
	require.NoError(t, err)

	var resp struct {
		Data SupportMatrix `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Data.Ops, len(spatial.InCatalog(spatial.CatalogMBR)))
	for _, row := range resp.Data.Ops {
		assert.Contains(t, row.Catalogs, "mbr")
		assert.False(t, row.Support["oracle"], row.Op)
	}
}

func TestDialectsCommand_Errors(t *testing.T) {
	_, err := runCommand(t, "dialects", "--op", "frobnicate")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = runCommand(t, "dialects", "--catalog", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
