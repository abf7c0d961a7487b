package harness

// StepResult records what one step did.
type StepResult struct {
	Action string `json:"action"`
	Object string `json:"object"`
	Field  string `json:"field,omitempty"`

	// Op is the decoded operation's symbolic name, for perform steps.
	Op string `json:"op,omitempty"`

	// Error is the error code the step failed with, empty on success.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is false if any step failed unexpectedly or any assertion failed.
	Pass bool `json:"pass"`

	Steps []StepResult `json:"steps"`

	// Errors holds one message per unexpected step outcome or failed
	// assertion.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{Pass: true, Steps: []StepResult{}, Errors: []string{}}
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
