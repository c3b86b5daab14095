package harness

import "github.com/roach88/countbot/internal/game"

// Trace event outcomes.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeIgnored  = "ignored"
	OutcomeCommand  = "command"
)

// TraceEvent records what happened to one scenario step.
type TraceEvent struct {
	Step        int    `json:"step"`
	Seq         int64  `json:"seq,omitempty"`
	Participant string `json:"participant"`
	Text        string `json:"text"`
	Outcome     string `json:"outcome"`

	Command    string           `json:"command,omitempty"`
	Value      *int64           `json:"value,omitempty"`
	Count      *int64           `json:"count,omitempty"`
	Complexity int              `json:"complexity,omitempty"`
	Reason     game.Reason      `json:"reason,omitempty"`
	Reaction   game.ReactionTag `json:"reaction,omitempty"`
	Message    string           `json:"message,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace has one event per step, in step order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final state as loaded back from the store.
	State *game.State `json:"state,omitempty"`

	// Stats is the rendered stats report for the final state.
	Stats string `json:"-"`
}

// NewResult creates a new passing result.
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
