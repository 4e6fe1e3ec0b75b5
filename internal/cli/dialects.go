package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/roach88/geosql/internal/dialect"
	"github.com/roach88/geosql/internal/geoerr"
	"github.com/roach88/geosql/internal/registry"
	"github.com/roach88/geosql/internal/spatial"
)

// DialectsOptions holds flags for the dialects command.
type DialectsOptions struct {
	*RootOptions
	Ops     []string // restrict the matrix to these operations
	Catalog string   // restrict the matrix to one catalog
}

// DialectInfo describes one registered dialect.
type DialectInfo struct {
	Name     string   `json:"name"`
	Catalogs []string `json:"catalogs"`
}

// OpSupport is one row of the support matrix.
type OpSupport struct {
	Op       string          `json:"op"`
	Catalogs []string        `json:"catalogs"`
	Support  map[string]bool `json:"support"`
}

// SupportMatrix reports which operations each dialect can render.
type SupportMatrix struct {
	Dialects []DialectInfo `json:"dialects"`
	Ops      []OpSupport   `json:"ops"`
}

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DialectsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dialects",
		Short: "Show the operation support matrix",
		Long: `List the registered dialects and which spatial operations each can render.

Examples:
  geosql dialects
  geosql dialects --catalog mbr
  geosql dialects --op distance --op within_distance --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDialects(opts, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Ops, "op", nil, "operations to include (default all)")
	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "only operations from this catalog")

	return cmd
}

func runDialects(opts *DialectsOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	ops, err := selectOps(opts.Ops, opts.Catalog)
	if err != nil {
		return outputCommandError(formatter, MapGeoErrorCode(err), err.Error())
	}

	matrix, err := BuildSupportMatrix(registry.Default(), ops)
	if err != nil {
		return outputCommandError(formatter, MapGeoErrorCode(err), err.Error())
	}

	if formatter.Format == "json" {
		return formatter.Success(matrix)
	}
	fmt.Fprint(formatter.Writer, renderMatrix(matrix))
	return nil
}

func selectOps(names []string, catalog string) ([]spatial.Op, error) {
	var ops []spatial.Op
	if len(names) == 0 {
		ops = spatial.All()
	}
	for _, name := range names {
		op, ok := spatial.Lookup(name)
		if !ok {
			return nil, geoerr.UnknownOperation(name)
		}
		ops = append(ops, op)
	}
	if catalog != "" {
		c := spatial.Catalog(strings.ToLower(catalog))
		ops = slices.DeleteFunc(ops, func(op spatial.Op) bool { return !op.In(c) })
		if len(ops) == 0 {
			return nil, geoerr.InvalidInput("no operations in catalog %q", catalog)
		}
	}
	return ops, nil
}

// BuildSupportMatrix evaluates ops against every dialect in reg.
func BuildSupportMatrix(reg *registry.Registry, ops []spatial.Op) (*SupportMatrix, error) {
	names := reg.Names()
	descs := make([]*dialect.Descriptor, len(names))
	matrix := &SupportMatrix{
		Dialects: make([]DialectInfo, len(names)),
		Ops:      make([]OpSupport, 0, len(ops)),
	}
	for i, name := range names {
		desc, err := reg.Resolve(name)
		if err != nil {
			return nil, err
		}
		descs[i] = desc
		matrix.Dialects[i] = DialectInfo{Name: name, Catalogs: catalogNames(desc.Catalogs())}
	}

	for _, op := range ops {
		row := OpSupport{
			Op:       op.String(),
			Catalogs: catalogNames(op.Catalogs()),
			Support:  make(map[string]bool, len(names)),
		}
		for i, name := range names {
			row.Support[name] = descs[i].Supports(op)
		}
		matrix.Ops = append(matrix.Ops, row)
	}
	return matrix, nil
}

func catalogNames(cs []spatial.Catalog) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}

// renderMatrix formats the matrix as a markdown table.
func renderMatrix(m *SupportMatrix) string {
	tableString := &strings.Builder{}

	headers := []string{"op"}
	for _, d := range m.Dialects {
		headers = append(headers, d.Name)
	}

	// Create alignment array with all columns using AlignNone for simple separators
	alignment := make([]tw.Align, len(headers))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	table := tablewriter.NewTable(tableString,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(headers)

	for _, row := range m.Ops {
		cells := []string{row.Op}
		for _, d := range m.Dialects {
			if row.Support[d.Name] {
				cells = append(cells, color.GreenString("yes"))
			} else {
				cells = append(cells, color.RedString("no"))
			}
		}
		table.Append(cells)
	}
	table.Render()

	fmt.Fprintf(tableString, "\n_%d operations, %d dialects_\n", len(m.Ops), len(m.Dialects))
	return tableString.String()
}
