package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/geosql/internal/ddl"
	"github.com/roach88/geosql/internal/dialect"
	"github.com/roach88/geosql/internal/geom"
	"github.com/roach88/geosql/internal/harness"
	"github.com/roach88/geosql/internal/registry"
)

// DDLOptions holds flags for the ddl command.
type DDLOptions struct {
	*RootOptions
	Dialect       string
	ServerVersion string
	Drop          bool
	Driver        string // database/sql driver; executes instead of printing when set
	DSN           string

	Schema      string
	Table       string
	Column      string
	Type        string
	SRID        int
	Dimension   int
	NoIndex     bool
	NotNull     bool
	DimInfo     string
	BoundingBox string
}

// DDLResult lists the statements planned or executed for one column.
type DDLResult struct {
	Dialect    string         `json:"dialect"`
	Version    string         `json:"version,omitempty"`
	Phase      string         `json:"phase"`
	Executed   bool           `json:"executed"`
	Statements []DDLStatement `json:"statements"`
}

// DDLStatement is one rendered statement.
type DDLStatement struct {
	SQL  string `json:"sql"`
	Args []any  `json:"args,omitempty"`
}

// NewDDLCommand creates the ddl command.
func NewDDLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DDLOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ddl",
		Short: "Plan or run geometry column provisioning",
		Long: `Render the statements that provision (or, with --drop, remove) a
geometry column: metadata registration, spatial index and constraints.

Without --driver the statements are printed. With --driver and --dsn they
run against the database, using the dialect and server version detected
from the connection.

Examples:
  geosql ddl --dialect postgis --table roads --column geom --type LINESTRING
  geosql ddl --dialect oracle --table roads --column geom --diminfo "MDSYS.SDO_DIM_ARRAY(...)"
  geosql ddl --driver sqlite3 --dsn roads.db --table roads --column geom`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDDL(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Dialect, "dialect", "d", "", "target dialect (required without --driver)")
	cmd.Flags().StringVar(&opts.ServerVersion, "server-version", "", "server version to plan for")
	cmd.Flags().BoolVar(&opts.Drop, "drop", false, "plan removal instead of provisioning")
	cmd.Flags().StringVar(&opts.Driver, "driver", "", "database/sql driver name (postgres, pgx, mysql, sqlite3, sqlite)")
	cmd.Flags().StringVar(&opts.DSN, "dsn", "", "data source name for --driver")

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "table schema")
	cmd.Flags().StringVar(&opts.Table, "table", "", "table name")
	cmd.Flags().StringVar(&opts.Column, "column", "", "geometry column name")
	cmd.Flags().StringVar(&opts.Type, "type", "GEOMETRY", "geometry type")
	cmd.Flags().IntVar(&opts.SRID, "srid", geom.DefaultSRID, "spatial reference id")
	cmd.Flags().IntVar(&opts.Dimension, "dimension", 2, "coordinate dimension")
	cmd.Flags().BoolVar(&opts.NoIndex, "no-index", false, "skip the spatial index")
	cmd.Flags().BoolVar(&opts.NotNull, "not-null", false, "add a NOT NULL constraint")
	cmd.Flags().StringVar(&opts.DimInfo, "diminfo", "", "Oracle dimension information")
	cmd.Flags().StringVar(&opts.BoundingBox, "bbox", "", "SQL Server index bounding box")

	return cmd
}

func runDDL(ctx context.Context, opts *DDLOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	col, err := opts.column()
	if err != nil {
		return outputCommandError(formatter, MapGeoErrorCode(err), err.Error())
	}
	phase := ddl.AfterCreate
	if opts.Drop {
		phase = ddl.BeforeDrop
	}

	var result *DDLResult
	if opts.Driver != "" {
		result, err = executeDDL(ctx, opts, col, phase, formatter)
	} else {
		result, err = planDDL(opts, col, phase)
	}
	if err != nil {
		code := MapGeoErrorCode(err)
		if opts.Driver != "" && code == ErrCodeGeneric {
			code = ErrCodeDatabase
		}
		return outputCommandError(formatter, code, err.Error())
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	outputDDLText(formatter, result)
	return nil
}

func (o *DDLOptions) column() (*geom.Column, error) {
	index, nullable := !o.NoIndex, !o.NotNull
	return harness.ColumnSpec{
		Table:        o.Table,
		Schema:       o.Schema,
		Name:         o.Column,
		Type:         o.Type,
		Dimension:    o.Dimension,
		SRID:         o.SRID,
		SpatialIndex: &index,
		Nullable:     &nullable,
		DimInfo:      o.DimInfo,
		BoundingBox:  o.BoundingBox,
	}.Column()
}

func planDDL(opts *DDLOptions, col *geom.Column, phase ddl.Phase) (*DDLResult, error) {
	if opts.Dialect == "" {
		return nil, fmt.Errorf("--dialect is required without --driver")
	}
	desc, err := registry.Resolve(opts.Dialect)
	if err != nil {
		return nil, err
	}
	version := dialect.CanonicalVersion(opts.ServerVersion)
	stmts, err := ddl.Plan(desc, col, version, phase)
	if err != nil {
		return nil, err
	}
	return newDDLResult(desc.Name(), opts.ServerVersion, phase, false, stmts), nil
}

func executeDDL(ctx context.Context, opts *DDLOptions, col *geom.Column, phase ddl.Phase, formatter *OutputFormatter) (*DDLResult, error) {
	var sopts []ddl.SessionOption
	if opts.Dialect != "" {
		sopts = append(sopts, ddl.WithEngine(opts.Dialect))
	}
	session, err := ddl.Open(ctx, opts.Driver, opts.DSN, sopts...)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	raw, version := session.Version()
	formatter.VerboseLog("Connected to %s %s", session.Dialect().Name(), raw)

	stmts, err := ddl.Plan(session.Dialect(), col, version, phase)
	if err != nil {
		return nil, err
	}
	if phase == ddl.BeforeDrop {
		err = session.Drop(ctx, col)
	} else {
		err = session.Create(ctx, col)
	}
	if err != nil {
		return nil, err
	}
	return newDDLResult(session.Dialect().Name(), raw, phase, true, stmts), nil
}

func newDDLResult(name, version string, phase ddl.Phase, executed bool, stmts []ddl.Statement) *DDLResult {
	result := &DDLResult{
		Dialect:    name,
		Version:    version,
		Phase:      phase.String(),
		Executed:   executed,
		Statements: make([]DDLStatement, len(stmts)),
	}
	for i, s := range stmts {
		result.Statements[i] = DDLStatement{SQL: s.SQL, Args: s.Args}
	}
	return result
}

func outputDDLText(formatter *OutputFormatter, result *DDLResult) {
	w := formatter.Writer
	if len(result.Statements) == 0 {
		fmt.Fprintf(w, "No %s statements for %s\n", result.Phase, result.Dialect)
		return
	}
	for _, s := range result.Statements {
		fmt.Fprintf(w, "%s;\n", s.SQL)
		if len(s.Args) > 0 {
			fmt.Fprintf(w, "  -- args: %s\n", harness.FormatParams(s.Args))
		}
	}
	if result.Executed {
		fmt.Fprintf(w, "\n✓ Executed %d statement(s) on %s\n", len(result.Statements), result.Dialect)
	}
}
