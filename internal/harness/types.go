package harness

// Outcome is the result of compiling one case for one dialect.
type Outcome struct {
	Case    string `json:"case"`
	Dialect string `json:"dialect"`
	Mode    string `json:"mode"`
	SQL     string `json:"sql,omitempty"`
	Params  []any  `json:"params,omitempty"`

	// Error is the error code when compilation failed, Message its text.
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	Scenario string `json:"scenario"`

	// Pass indicates overall success: every outcome met its expectation.
	Pass bool `json:"pass"`

	// Outcomes are in case order, then dialect order.
	Outcomes []Outcome `json:"outcomes"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(scenario string) *Result {
	return &Result{
		Scenario: scenario,
		Pass:     true,
		Outcomes: []Outcome{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddOutcome appends a compile outcome.
func (r *Result) AddOutcome(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
}
