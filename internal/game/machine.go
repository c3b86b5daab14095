package game

import (
	"fmt"
	"strings"
	"time"
)

// Policy decides what happens to the sequence after a rejected submission.
type Policy string

const (
	// PolicyContinue leaves the count and last contributor untouched.
	PolicyContinue Policy = "continue"

	// PolicyReset restarts the count at 1 and clears the last contributor.
	PolicyReset Policy = "reset"
)

// ParsePolicy parses a policy name. The empty string selects PolicyContinue.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyContinue:
		return PolicyContinue, nil
	case PolicyReset:
		return PolicyReset, nil
	default:
		return "", fmt.Errorf("unknown policy %q (want %q or %q)", s, PolicyContinue, PolicyReset)
	}
}

// Reason explains why a submission was rejected.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonConsecutiveTurn Reason = "consecutive_turn"
	ReasonWrongNumber     Reason = "wrong_number"
)

// Input is one evaluated submission, ready for a transition.
type Input struct {
	Participant string
	Expression  string
	Value       int64
	Complexity  int

	// At stamps records set by this transition. Zero means Machine.Now.
	At time.Time
}

// Outcome describes the effect of one transition.
type Outcome struct {
	Accepted bool   `json:"accepted"`
	Reason   Reason `json:"reason,omitempty"`

	// Value is the submitted number; Expected is what the count required.
	Value    int64 `json:"value"`
	Expected int64 `json:"expected"`

	// Count is CurrentCount after the transition.
	Count int64 `json:"count"`

	Complexity int         `json:"complexity"`
	Reaction   ReactionTag `json:"reaction"`

	// Message is the text to post in the channel, if any.
	Message string `json:"message,omitempty"`

	// Milestone is set when this submission newly claimed a milestone.
	Milestone bool `json:"milestone,omitempty"`

	// NewRecord is set when the accepted value beat HighestCount.
	NewRecord bool `json:"new_record,omitempty"`

	// MostComplex is set when the expression became the most complex one.
	MostComplex bool `json:"most_complex,omitempty"`
}

// Machine applies submissions to a State one at a time.
//
// Machine is not safe for concurrent use. The engine's run loop is its
// only caller.
type Machine struct {
	state *State

	Policy Policy
	Table  Table

	// Now stamps new records. Defaults to time.Now.
	Now func() time.Time
}

// NewMachine returns a machine driving state. A nil state starts a fresh
// game.
func NewMachine(state *State, policy Policy, table Table) *Machine {
	if state == nil {
		state = NewState()
	}
	if policy == "" {
		policy = PolicyContinue
	}
	return &Machine{
		state:  state.Repair(),
		Policy: policy,
		Table:  table,
		Now:    time.Now,
	}
}

// State returns the live state. Callers outside the run loop must Clone it.
func (m *Machine) State() *State {
	return m.state
}

// Apply runs one transition.
func (m *Machine) Apply(in Input) Outcome {
	s := m.state
	out := Outcome{
		Value:      in.Value,
		Expected:   s.CurrentCount,
		Complexity: in.Complexity,
	}

	// Every evaluated expression competes for the record, accepted or not.
	out.MostComplex = s.offerComplexOperation(ComplexOperation{
		Expression:  in.Expression,
		Contributor: in.Participant,
		Complexity:  in.Complexity,
	})

	// An empty LastContributor means nobody has counted since the start.
	switch {
	case s.LastContributor != "" && in.Participant == s.LastContributor:
		m.reject(&out, in.Participant, ReasonConsecutiveTurn, "You can't count twice in a row.")
	case in.Value != s.CurrentCount:
		m.reject(&out, in.Participant, ReasonWrongNumber,
			fmt.Sprintf("The next number should have been %d.", s.CurrentCount))
	default:
		m.accept(&out, in)
	}

	out.Count = s.CurrentCount
	return out
}

func (m *Machine) reject(out *Outcome, participant string, reason Reason, detail string) {
	s := m.state
	s.recordFailure(participant)
	s.applyPolicy(m.Policy)

	out.Reason = reason
	out.Reaction = TagReject

	tail := fmt.Sprintf("The count continues at %d!", s.CurrentCount)
	if m.Policy == PolicyReset {
		tail = "The count resets to 1."
	}
	out.Message = fmt.Sprintf("%s messed up! %s %s", Mention(participant), detail, tail)
}

func (m *Machine) accept(out *Outcome, in Input) {
	s := m.state
	at := in.At
	if at.IsZero() {
		at = m.now()
	}

	out.Accepted = true
	out.Reaction = m.Table.Reaction(in.Value)
	out.NewRecord = s.advance(in.Participant, in.Value, in.Complexity, at)

	if m.Table.IsMilestone(in.Value) && s.recordMilestone(in.Value, in.Participant) {
		out.Milestone = true
		glyph := m.Table.Glyph(out.Reaction)
		out.Message = fmt.Sprintf("%s Congratulations %s! You've reached %d! %s",
			glyph, Mention(in.Participant), in.Value, glyph)
	}
}

func (m *Machine) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Mention formats a participant reference for chat output.
func Mention(participant string) string {
	return "<@" + participant + ">"
}
