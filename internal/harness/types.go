package harness

import "strings"

// TraceEvent records one flow step: what ran, the change events it produced
// and the sections it left behind.
type TraceEvent struct {
	Step     string         `json:"step"`
	Op       string         `json:"op"`
	Events   []string       `json:"events"`
	Sections []SectionState `json:"sections"`
	Error    string         `json:"error,omitempty"`
}

// SectionState is one section of the view: its key, index title and item ids.
type SectionState struct {
	Key   string   `json:"key"`
	Title string   `json:"title,omitempty"`
	Items []string `json:"items"`
}

// FinalState is the view after the last flow step.
type FinalState struct {
	State    string         `json:"state"`
	Sections []SectionState `json:"sections"`
	Titles   []string       `json:"titles,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expect clause and assertion holds.
	Pass bool `json:"pass"`

	// Trace contains one entry per flow step, in order.
	// Used for event assertions and golden comparison.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the view after the flow.
	State FinalState `json:"state"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}

// EventKinds returns the kinds of every traced event, in order.
func (r *Result) EventKinds() []string {
	var kinds []string
	for _, step := range r.Trace {
		for _, ev := range step.Events {
			kinds = append(kinds, eventKind(ev))
		}
	}
	return kinds
}

// eventKind is the leading word of a rendered event.
func eventKind(rendered string) string {
	kind, _, _ := strings.Cut(rendered, " ")
	return kind
}
