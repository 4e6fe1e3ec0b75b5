package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario is a named set of compile cases sharing column declarations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Columns declares the geometry columns cases refer to by name.
	Columns map[string]ColumnSpec `yaml:"columns,omitempty"`

	// Cases are compiled in order, once per listed dialect.
	Cases []Case `yaml:"cases"`
}

// Case compiles one expression for one or more dialects.
type Case struct {
	Name string `yaml:"name"`

	// Dialects lists engine names or aliases. "all" expands to every
	// registered engine.
	Dialects []string `yaml:"dialects"`

	// Version is the server version the compiler assumes.
	Version string `yaml:"version,omitempty"`

	// Mode is where, select, query or bind. Defaults to where.
	Mode string `yaml:"mode,omitempty"`

	// Bind names the target column in bind mode.
	Bind string `yaml:"bind,omitempty"`

	Expr any `yaml:"expr"`

	// Expect maps a dialect, as listed in Dialects, to its expected output.
	// Dialects without an entry only have to compile without error.
	Expect map[string]Expect `yaml:"expect,omitempty"`
}

// Expect is the expected outcome of a case for one dialect.
type Expect struct {
	SQL      string   `yaml:"sql,omitempty"`
	Params   []any    `yaml:"params,omitempty"`
	Contains []string `yaml:"contains,omitempty"`

	// Error is the expected error code, e.g. UNSUPPORTED_OPERATION.
	Error string `yaml:"error,omitempty"`
}

// Document returns the case as a standalone compile document.
func (c Case) Document(columns map[string]ColumnSpec) *Document {
	return &Document{Columns: columns, Mode: c.Mode, Bind: c.Bind, Expr: c.Expr}
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}

	for name, spec := range s.Columns {
		if _, err := spec.Column(); err != nil {
			return fmt.Errorf("columns.%s: %w", name, err)
		}
	}

	seen := make(map[string]bool, len(s.Cases))
	for i, c := range s.Cases {
		if c.Name == "" {
			return fmt.Errorf("cases[%d]: name is required", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("cases[%d]: duplicate case name %q", i, c.Name)
		}
		seen[c.Name] = true

		if len(c.Dialects) == 0 {
			return fmt.Errorf("cases[%d]: dialects list is required", i)
		}
		if c.Expr == nil {
			return fmt.Errorf("cases[%d]: expr is required", i)
		}
		if c.Mode != "" && !slices.Contains(ValidModes, c.Mode) {
			return fmt.Errorf("cases[%d]: unknown mode %q", i, c.Mode)
		}
		if c.Mode == ModeBind {
			if _, ok := s.Columns[c.Bind]; !ok {
				return fmt.Errorf("cases[%d]: bind mode needs a declared column, got %q", i, c.Bind)
			}
		}
		for d := range c.Expect {
			if !slices.Contains(c.Dialects, d) && !slices.Contains(c.Dialects, AllDialects) {
				return fmt.Errorf("cases[%d]: expectation for %q, which is not in dialects", i, d)
			}
		}
	}
	return nil
}
