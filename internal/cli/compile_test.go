package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestCompileCommand_TextOutput(t *testing.T) {
	out, err := runCommand(t, "compile", "testdata/documents/intersects.yaml", "-d", "postgis", "-d", "mssql")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ postgis\n  ST_Intersects(roads.geom, ST_GeomFromText($1, $2))\n")
	assert.Contains(t, out, `  params: ["POINT(0 0)", 4326]`)
	assert.Contains(t, out, "roads.geom.STIntersects(geometry::STGeomFromText(@p1, @p2)) = 1")
	assert.NotContains(t, out, "mysql")
}

func TestCompileCommand_DocumentFormats(t *testing.T) {
	for _, file := range []string{"intersects.yaml", "intersects.json", "intersects.cue"} {
		t.Run(file, func(t *testing.T) {
			out, err := runCommand(t, "--format", "json", "compile", filepath.Join("testdata/documents", file), "-d", "postgis")
			require.NoError(t, err)

			var resp struct {
				Status  string            `json:"status"`
				Data    CompilationResult `json:"data"`
				TraceID string            `json:"trace_id"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "ok", resp.Status)
			assert.NotEmpty(t, resp.TraceID)
			assert.Equal(t, "where", resp.Data.Mode)
			require.Len(t, resp.Data.Outputs, 1)
			assert.Equal(t, "ST_Intersects(roads.geom, ST_GeomFromText($1, $2))", resp.Data.Outputs[0].SQL)
			assert.Equal(t, []any{"POINT(0 0)", float64(4326)}, resp.Data.Outputs[0].Params)
		})
	}
}

func TestCompileCommand_AllDialectsByDefault(t *testing.T) {
	out, err := runCommand(t, "--format", "json", "compile", "testdata/documents/intersects.yaml")
	require.NoError(t, err)

	var resp struct {
		Data CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	var names []string
	for _, o := range resp.Data.Outputs {
		names = append(names, o.Dialect)
	}
	assert.Equal(t, []string{"mssql", "mysql", "oracle", "postgis", "spatialite"}, names)
}

func TestCompileCommand_UnsupportedOperationExitsOne(t *testing.T) {
	out, err := runCommand(t, "compile", "testdata/documents/distance.yaml", "-d", "mysql", "-d", "postgis")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ mysql\n  E102: UNSUPPORTED_OPERATION")
	assert.Contains(t, out, "✓ postgis\n  ST_Distance(roads.geom, lakes.shore)")
}

func TestCompileCommand_ModeOverride(t *testing.T) {
	out, err := runCommand(t, "compile", "testdata/documents/distance.yaml", "-d", "postgis", "--mode", "query")
	require.NoError(t, err)
	assert.Contains(t, out, "SELECT ST_Distance(roads.geom, lakes.shore)")
}

func TestCompileCommand_ServerVersion(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "near.yaml")
	require.NoError(t, os.WriteFile(doc, []byte(`
columns:
  roads: { table: roads, name: geom }
  lakes: { table: lakes, name: shore }
expr:
  op: within_distance
  args: [{ column: roads }, { column: lakes }, 5]
`), 0644))

	out, err := runCommand(t, "compile", doc, "-d", "postgis", "--server-version", "1.3.3")
	require.NoError(t, err)
	assert.Contains(t, out, "ST_Expand(")
	assert.NotContains(t, out, "ST_DWithin")

	out, err = runCommand(t, "compile", doc, "-d", "postgis")
	require.NoError(t, err)
	assert.Contains(t, out, "ST_DWithin(roads.geom, lakes.shore, $1)")
}

func TestCompileCommand_CommandErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode string
	}{
		{"missing document", []string{"compile", "testdata/documents/missing.yaml"}, ErrCodeNotFound},
		{"unknown dialect", []string{"compile", "testdata/documents/intersects.yaml", "-d", "db2"}, ErrCodeUnsupportedEngine},
		{"bad extension", []string{"compile", "compile_test.go"}, ErrCodeUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCommand(t, append([]string{"--format", "json"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "error", resp.Status)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestCompileCommand_OutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	out, err := runCommand(t, "compile", "testdata/documents/intersects.yaml", "-d", "oracle", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote results to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.Len(t, result.Outputs, 1)
	assert.Contains(t, result.Outputs[0].SQL, "MDSYS.OGC_Intersects(")
}
