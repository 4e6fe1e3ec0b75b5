package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a result as the deterministic text stored in golden
// files: one block per outcome, in execution order.
func Snapshot(result *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", result.Scenario)
	for _, o := range result.Outcomes {
		fmt.Fprintf(&b, "\ncase: %s [%s %s]\n", o.Case, o.Dialect, o.Mode)
		if o.Error != "" {
			fmt.Fprintf(&b, "error: %s\n", o.Error)
			continue
		}
		fmt.Fprintf(&b, "sql: %s\n", o.SQL)
		fmt.Fprintf(&b, "params: %s\n", FormatParams(o.Params))
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(result))
}
