package harness

// TraceEvent records one executed step.
type TraceEvent struct {
	Step      int       `json:"step"`
	Action    string    `json:"action"`
	Path      string    `json:"path,omitempty"`
	Tick      int64     `json:"tick,omitempty"`
	Queued    []string  `json:"queued,omitempty"`
	Processed []string  `json:"processed,omitempty"`
	Failed    []Failure `json:"failed,omitempty"`
	Unhandled []string  `json:"unhandled,omitempty"`
}

// Failure is a failed item in a tick trace.
type Failure struct {
	Path string `json:"path"`
	Code string `json:"code"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool `json:"pass"`

	// Trace holds one event per step.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Outputs lists the final destination tree (directories end in "/").
	Outputs []string `json:"outputs"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Errors:  []string{},
		Outputs: []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
