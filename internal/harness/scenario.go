package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/countbot/internal/game"
)

// Scenario is a scripted game: a starting state, a sequence of chat
// messages, and the expected results.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Policy is the mistake policy: continue (default) or reset.
	Policy string `yaml:"policy,omitempty"`

	// Initial is the starting state. Nil starts a fresh game.
	Initial *InitialState `yaml:"initial,omitempty"`

	// Milestones adds special numbers to the default table.
	Milestones []MilestoneTag `yaml:"milestones,omitempty"`

	// Names maps participant IDs to display names for stats.
	Names map[string]string `yaml:"names,omitempty"`

	// Steps are the messages, played one at a time in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	// Supported types: trace_contains, trace_count, final_state, stats_contains
	Assertions []Assertion `yaml:"assertions"`
}

// InitialState seeds the game before the first step.
type InitialState struct {
	CurrentCount    int64  `yaml:"current_count"`
	LastContributor string `yaml:"last_contributor,omitempty"`
	HighestCount    int64  `yaml:"highest_count,omitempty"`
	TotalSuccessful int64  `yaml:"total_successful,omitempty"`
}

func (s *InitialState) state() *game.State {
	state := game.NewState()
	if s == nil {
		return state
	}
	state.CurrentCount = s.CurrentCount
	state.LastContributor = s.LastContributor
	state.HighestCount = s.HighestCount
	state.TotalSuccessful = s.TotalSuccessful
	return state.Repair()
}

// MilestoneTag is one special number and its reaction tag.
type MilestoneTag struct {
	Value int64  `yaml:"value"`
	Tag   string `yaml:"tag"`
}

// Step is one chat message.
type Step struct {
	Participant string `yaml:"participant"`
	Text        string `yaml:"text"`

	// Expect specifies the expected result. If nil, no validation is
	// performed for this step.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected result of a step. Only the fields that
// are set are checked.
type Expect struct {
	// Outcome is accepted, rejected, ignored or command.
	Outcome string `yaml:"outcome"`

	Count    *int64 `yaml:"count,omitempty"`
	Value    *int64 `yaml:"value,omitempty"`
	Reason   string `yaml:"reason,omitempty"`
	Reaction string `yaml:"reaction,omitempty"`

	// Message must equal the posted message exactly.
	Message *string `yaml:"message,omitempty"`

	// Contains must appear somewhere in the posted message.
	Contains string `yaml:"contains,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an event with the given participant/outcome/reason exists
	// - "trace_count": exactly Count events match participant/outcome
	// - "final_state": query a store table and verify expected values
	// - "stats_contains": the rendered stats report contains Text
	Type string `yaml:"type"`

	// Participant, Outcome and Reason filter trace events. Empty matches any.
	Participant string `yaml:"participant,omitempty"`
	Outcome     string `yaml:"outcome,omitempty"`
	Reason      string `yaml:"reason,omitempty"`

	// Count is the expected number of matching events (trace_count).
	Count int `yaml:"count,omitempty"`

	// Table is the store table name (final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (final_state). All fields must match.
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected column values (final_state).
	// Subset match - only specified columns are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Text is the expected substring (stats_contains).
	Text string `yaml:"text,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertStatsContains = "stats_contains"
)

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
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
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
	if _, err := game.ParsePolicy(s.Policy); err != nil {
		return err
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if s.Initial != nil && s.Initial.CurrentCount < 1 {
		return fmt.Errorf("initial.current_count must be at least 1")
	}

	for i, m := range s.Milestones {
		if m.Value <= 0 {
			return fmt.Errorf("milestones[%d]: value must be positive", i)
		}
		if m.Tag == "" {
			return fmt.Errorf("milestones[%d]: tag is required", i)
		}
	}

	for i, step := range s.Steps {
		if step.Participant == "" {
			return fmt.Errorf("steps[%d]: participant is required", i)
		}
		if step.Expect != nil {
			if err := validateOutcome(step.Expect.Outcome); err != nil {
				return fmt.Errorf("steps[%d].expect: %w", i, err)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateOutcome(outcome string) error {
	switch outcome {
	case OutcomeAccepted, OutcomeRejected, OutcomeIgnored, OutcomeCommand:
		return nil
	case "":
		return fmt.Errorf("outcome is required")
	default:
		return fmt.Errorf("unknown outcome %q", outcome)
	}
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Participant == "" && a.Outcome == "" && a.Reason == "" {
			return fmt.Errorf("assertions[%d]: trace_contains needs participant, outcome or reason", index)
		}
	case AssertTraceCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertStatsContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for stats_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Outcome != "" {
		if err := validateOutcome(a.Outcome); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	}
	return nil
}
