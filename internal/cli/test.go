package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/geosql/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // rewrite golden snapshots
	Filter string // glob over scenario file names, without extension
}

// ScenarioResult is the verdict for one scenario file.
type ScenarioResult struct {
	Name     string   `json:"name"`
	File     string   `json:"file"`
	Pass     bool     `json:"pass"`
	Outcomes int      `json:"outcomes"`
	Golden   string   `json:"golden,omitempty"` // "matched", "updated" or "mismatch"
	Errors   []string `json:"errors,omitempty"`
}

// TestResult aggregates every scenario run.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run compile scenarios",
		Long: `Compile every case of each scenario file under <scenarios-dir> for its
dialects and check the expected SQL, parameters and error codes.

When golden/<scenario>.golden exists next to a scenario file, the
compiled outcomes must also match it byte for byte. --update rewrites
the golden snapshots instead of comparing them.

Exit codes:
  0 - all scenarios passed
  1 - one or more scenarios failed
  2 - command error

Examples:
  geosql test ./scenarios
  geosql test ./scenarios --filter "distance*"
  geosql test ./scenarios --update`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden snapshots")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only scenario files whose name matches this glob")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}
	files, err := findScenarioFiles(dir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	for _, file := range files {
		r := runScenario(file, opts.Update)
		if r.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, r)
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

// findScenarioFiles lists the .yaml and .yml files under dir, optionally
// restricted to names matching filter.
func findScenarioFiles(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			ok, err := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// runScenario loads, compiles and checks one scenario file.
func runScenario(file string, update bool) ScenarioResult {
	r := ScenarioResult{Name: filepath.Base(file), File: file}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		r.Errors = []string{fmt.Sprintf("load: %v", err)}
		return r
	}
	r.Name = scenario.Name

	result, err := harness.Run(scenario)
	if err != nil {
		r.Errors = []string{fmt.Sprintf("run: %v", err)}
		return r
	}
	r.Outcomes = len(result.Outcomes)
	r.Errors = result.Errors

	golden, err := checkGolden(file, harness.Snapshot(result), update)
	if err != nil {
		r.Errors = append(r.Errors, err.Error())
		return r
	}
	r.Golden = golden
	if golden == "mismatch" {
		r.Errors = append(r.Errors, "Golden file mismatch (run with --update to regenerate)")
	}
	r.Pass = len(r.Errors) == 0
	return r
}

// checkGolden compares snapshot with the scenario's golden file, or
// rewrites it when update is set. It returns "" when there is no golden
// file to compare with.
func checkGolden(file string, snapshot []byte, update bool) (string, error) {
	path := goldenFilePath(file)
	if update {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return "", fmt.Errorf("create golden directory: %w", err)
		}
		if err := os.WriteFile(path, snapshot, 0644); err != nil {
			return "", fmt.Errorf("write golden file: %w", err)
		}
		return "updated", nil
	}

	want, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read golden file: %w", err)
	}
	if !bytes.Equal(want, snapshot) {
		return "mismatch", nil
	}
	return "matched", nil
}

// goldenFilePath maps dir/name.yaml to dir/golden/name.golden.
func goldenFilePath(file string) string {
	base := filepath.Base(file)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(file), "golden", name+".golden")
}

func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	resp := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}
	formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	if err := formatter.Respond(resp); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, resp.Error.Message)
	}
	return nil
}

func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}

	for _, r := range result.Scenarios {
		if !r.Pass {
			fmt.Fprintf(w, "✗ %s\n", r.Name)
			for _, e := range r.Errors {
				fmt.Fprintf(w, "  %s\n", e)
			}
			continue
		}
		line := fmt.Sprintf("✓ %s (%d outcomes)", r.Name, r.Outcomes)
		if r.Golden == "updated" {
			line += " golden updated"
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintf(w, "\n%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}
