package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/geosql/internal/compile"
	"github.com/roach88/geosql/internal/harness"
	"github.com/roach88/geosql/internal/registry"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Dialects      []string // engines to compile for; all when empty
	ServerVersion string   // server version the compiler assumes
	Mode          string   // overrides the document mode
	Output        string   // output file path
}

// DialectOutput is the compiled statement, or the failure, for one dialect.
type DialectOutput struct {
	Dialect string    `json:"dialect"`
	SQL     string    `json:"sql,omitempty"`
	Params  []any     `json:"params,omitempty"`
	Error   *CLIError `json:"error,omitempty"`
}

// CompilationResult holds the per-dialect outputs of one document.
type CompilationResult struct {
	Mode    string          `json:"mode"`
	Outputs []DialectOutput `json:"outputs"`
	Failed  int             `json:"failed"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <document>",
		Short: "Compile a spatial expression document to SQL",
		Long: `Compile a spatial expression document to SQL for one or more dialects.

The document is YAML, JSON or CUE with an expr tree, optional column
declarations and a mode (where, select, query or bind).

Exit codes:
  0 - Compiled for every requested dialect
  1 - At least one dialect failed to compile
  2 - Command error (unreadable document, unknown dialect, etc.)

Examples:
  geosql compile filter.yaml
  geosql compile filter.yaml -d postgis -d oracle
  geosql compile filter.cue --dialect postgis --server-version 1.3.3`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Dialects, "dialect", "d", nil, "dialects to compile for (default all)")
	cmd.Flags().StringVar(&opts.ServerVersion, "server-version", "", "server version the compiler assumes")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "override the document mode (where|select|query|bind)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	doc, err := LoadDocument(path)
	if err != nil {
		code, message := loadErrorCode(err)
		return outputCommandError(formatter, code, message)
	}
	if opts.Mode != "" {
		doc.Mode = opts.Mode
	}

	dialects, err := resolveDialectNames(registry.Default(), opts.Dialects)
	if err != nil {
		return outputCommandError(formatter, MapGeoErrorCode(err), err.Error())
	}

	result := compileDocument(doc, dialects, opts.ServerVersion, formatter)

	if opts.Output != "" {
		if err := writeResultToFile(result, opts.Output); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return outputCompileResult(formatter, result, opts.Output)
}

// resolveDialectNames validates the requested dialects against the registry.
// No names selects every registered dialect.
func resolveDialectNames(reg *registry.Registry, names []string) ([]string, error) {
	if len(names) == 0 {
		return reg.Names(), nil
	}
	resolved := make([]string, 0, len(names))
	for _, name := range names {
		if name == harness.AllDialects {
			resolved = append(resolved, reg.Names()...)
			continue
		}
		canonical, ok := reg.Canonical(name)
		if !ok {
			_, err := reg.Resolve(name)
			return nil, err
		}
		resolved = append(resolved, canonical)
	}
	return resolved, nil
}

// compileDocument compiles doc once per dialect. Failures are recorded per
// dialect rather than aborting the run.
func compileDocument(doc *harness.Document, dialects []string, version string, formatter *OutputFormatter) *CompilationResult {
	result := &CompilationResult{Mode: modeOf(doc), Outputs: make([]DialectOutput, 0, len(dialects))}

	for _, name := range dialects {
		formatter.VerboseLog("Compiling for %s", name)
		out := DialectOutput{Dialect: name}

		desc, err := registry.Resolve(name)
		if err == nil {
			var compiled harness.Output
			compiled, err = doc.Compile(compile.New(desc, compile.WithVersion(version)))
			out.SQL, out.Params = compiled.SQL, compiled.Params
		}
		if err != nil {
			out.Error = &CLIError{Code: MapGeoErrorCode(err), Message: err.Error()}
			result.Failed++
		}
		result.Outputs = append(result.Outputs, out)
	}
	return result
}

func modeOf(doc *harness.Document) string {
	if doc.Mode == "" {
		return harness.ModeWhere
	}
	return doc.Mode
}

// outputCompileResult outputs per-dialect compilation results.
func outputCompileResult(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if result.Failed > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ErrCodeGeneric,
				Message: fmt.Sprintf("%d dialect(s) failed to compile", result.Failed),
			}
		}
		if err := formatter.Respond(resp); err != nil {
			return err
		}
		return compileExit(result)
	}

	w := formatter.Writer
	for _, out := range result.Outputs {
		if out.Error != nil {
			fmt.Fprintf(w, "✗ %s\n  %s: %s\n", out.Dialect, out.Error.Code, out.Error.Message)
			continue
		}
		fmt.Fprintf(w, "✓ %s\n  %s\n", out.Dialect, out.SQL)
		if len(out.Params) > 0 {
			fmt.Fprintf(w, "  params: %s\n", harness.FormatParams(out.Params))
		}
	}

	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote results to %s\n", outputFile)
	}
	return compileExit(result)
}

// compileExit maps a result to its exit error. Compile failures exit 1.
func compileExit(result *CompilationResult) error {
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d dialect(s) failed to compile", result.Failed))
	}
	return nil
}

// outputCommandError outputs a single command-level error (exit code 2).
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// writeResultToFile writes the compilation result to a file as indented JSON.
func writeResultToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
