package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/geosql/internal/registry"
	"github.com/roach88/geosql/internal/spatial"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Dialects []string
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool        `json:"valid"`
	Ops    []OpSupport `json:"ops"`
	Errors []CLIError  `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <document>",
		Short: "Validate a document without compiling it",
		Long: `Validate a spatial expression document without generating SQL.

Checks that the document parses, that its expression tree is well formed
and that every operation it names exists. With --dialect, every operation
must also be supported by each named dialect.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Dialects, "dialect", "d", nil, "dialects that must support every operation")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
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

	reg := registry.Default()
	required, err := resolveDialectNames(reg, opts.Dialects)
	if err != nil {
		return outputCommandError(formatter, MapGeoErrorCode(err), err.Error())
	}
	if len(opts.Dialects) == 0 {
		required = nil
	}

	result := &ValidationResult{Valid: true, Ops: []OpSupport{}}
	if _, err := doc.Build(); err != nil {
		result.addError(MapGeoErrorCode(err), err.Error())
	}

	var ops []spatial.Op
	for _, name := range doc.Ops() {
		op, ok := spatial.Lookup(name)
		if !ok {
			continue // already reported by Build
		}
		formatter.VerboseLog("Checking operation: %s", name)
		ops = append(ops, op)
	}
	matrix, err := BuildSupportMatrix(reg, ops)
	if err != nil {
		return outputCommandError(formatter, MapGeoErrorCode(err), err.Error())
	}
	result.Ops = matrix.Ops

	for _, row := range result.Ops {
		for _, d := range required {
			if !row.Support[d] {
				result.addError(ErrCodeUnsupportedOperation,
					fmt.Sprintf("operation %q is not supported by %q", row.Op, d))
			}
		}
	}

	return outputValidation(formatter, result, matrix)
}

func (r *ValidationResult) addError(code, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, CLIError{Code: code, Message: message})
}

func outputValidation(formatter *OutputFormatter, result *ValidationResult, matrix *SupportMatrix) error {
	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &result.Errors[0]
		}
		if err := formatter.Respond(resp); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		if result.Valid {
			fmt.Fprintln(w, "✓ Document is valid")
		} else {
			fmt.Fprintln(w, "✗ Validation failed")
			for _, e := range result.Errors {
				fmt.Fprintf(w, "  %s: %s\n", e.Code, e.Message)
			}
		}
		for _, row := range result.Ops {
			var missing []string
			for _, d := range matrix.Dialects {
				if !row.Support[d.Name] {
					missing = append(missing, d.Name)
				}
			}
			if len(missing) == 0 {
				fmt.Fprintf(w, "  %s: all dialects\n", row.Op)
			} else {
				fmt.Fprintf(w, "  %s: not on %s\n", row.Op, strings.Join(missing, ", "))
			}
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}
	return nil
}
