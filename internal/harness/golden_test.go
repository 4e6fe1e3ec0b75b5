package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_Intersects(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/intersects.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestSnapshot(t *testing.T) {
	r := NewResult("s")
	r.AddOutcome(Outcome{Case: "a", Dialect: "mysql", Mode: ModeWhere, SQL: "X(?)", Params: []any{"p", 1.5, nil, []byte{0x01}}})
	r.AddOutcome(Outcome{Case: "b", Dialect: "mssql", Mode: ModeSelect, Error: "UNSUPPORTED_ENGINE"})

	want := "scenario: s\n" +
		"\ncase: a [mysql where]\nsql: X(?)\nparams: [\"p\", 1.5, NULL, x'01']\n" +
		"\ncase: b [mssql select]\nerror: UNSUPPORTED_ENGINE\n"
	assert.Equal(t, want, string(Snapshot(r)))
}
