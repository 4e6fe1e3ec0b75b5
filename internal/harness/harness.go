package harness

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/geosql/internal/compile"
	"github.com/roach88/geosql/internal/geoerr"
	"github.com/roach88/geosql/internal/registry"
)

// AllDialects in a case's dialect list expands to every registered engine.
const AllDialects = "all"

// Harness runs compile scenarios against a dialect registry.
type Harness struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithRegistry resolves dialects from r instead of the default registry.
func WithRegistry(r *registry.Registry) Option {
	return func(h *Harness) { h.registry = r }
}

// WithLogger receives compile warnings. The default discards them.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		registry: registry.Default(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(scenario)
}

// Run compiles every case of the scenario for each of its dialects and
// checks the expectations. Compile errors are outcomes, not failures of
// Run; an unknown dialect name is.
func (h *Harness) Run(scenario *Scenario) (*Result, error) {
	result := NewResult(scenario.Name)

	for _, c := range scenario.Cases {
		dialects, err := h.expand(c.Dialects)
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", c.Name, err)
		}
		doc := c.Document(scenario.Columns)

		for _, name := range dialects {
			desc, err := h.registry.Resolve(name)
			if err != nil {
				return nil, fmt.Errorf("case %s: %w", c.Name, err)
			}
			compiler := compile.New(desc,
				compile.WithVersion(c.Version),
				compile.WithLogger(h.logger))

			outcome := Outcome{Case: c.Name, Dialect: name, Mode: doc.mode()}
			out, err := doc.Compile(compiler)
			if err != nil {
				outcome.Error, outcome.Message = errorCode(err), err.Error()
			} else {
				outcome.SQL, outcome.Params = out.SQL, out.Params
			}
			result.AddOutcome(outcome)

			exp, ok := c.Expect[name]
			for _, msg := range checkOutcome(outcome, exp, ok) {
				result.AddError(fmt.Sprintf("%s [%s]: %s", c.Name, name, msg))
			}
		}
	}
	return result, nil
}

func (h *Harness) expand(dialects []string) ([]string, error) {
	var out []string
	for _, d := range dialects {
		if strings.EqualFold(d, AllDialects) {
			out = append(out, h.registry.Names()...)
			continue
		}
		if _, ok := h.registry.Canonical(d); !ok {
			return nil, geoerr.UnsupportedEngine(d)
		}
		out = append(out, d)
	}
	return out, nil
}

// errorCode classifies err for reporting. Errors outside the geoerr
// taxonomy are reported as ERROR.
func errorCode(err error) string {
	if code := geoerr.CodeOf(err); code != "" {
		return string(code)
	}
	return "ERROR"
}
