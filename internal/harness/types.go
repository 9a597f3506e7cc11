package harness

// Trace event types.
const (
	EventQuery           = "query"
	EventInsert          = "insert"
	EventInsertAttribute = "insert_attribute"
	EventDelete          = "delete"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Type  string   `json:"type"`
	Step  int      `json:"step"`
	Seq   int64    `json:"seq"`
	Query string   `json:"query,omitempty"`
	Doc   string   `json:"doc,omitempty"`
	Items []string `json:"items,omitempty"`
	Nodes int      `json:"nodes,omitempty"`
	Error string   `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddEvent appends a step to the trace.
func (r *Result) AddEvent(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
