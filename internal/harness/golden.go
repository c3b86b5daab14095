package harness

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/countbot/internal/game"
)

// TraceSnapshot captures a scenario execution for golden comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
	Final        *FinalState  `json:"final,omitempty"`
}

// FinalState is the part of the final game state recorded in goldens.
// Timestamps and per-participant detail are left to assertions.
type FinalState struct {
	CurrentCount    int64                 `json:"current_count"`
	LastContributor string                `json:"last_contributor,omitempty"`
	HighestCount    int64                 `json:"highest_count"`
	TotalSuccessful int64                 `json:"total_successful"`
	Milestones      map[int64]string      `json:"milestones"`
	MostComplex     game.ComplexOperation `json:"most_complex"`
}

func finalState(s *game.State) *FinalState {
	if s == nil {
		return nil
	}
	return &FinalState{
		CurrentCount:    s.CurrentCount,
		LastContributor: s.LastContributor,
		HighestCount:    s.HighestCount,
		TotalSuccessful: s.TotalSuccessful,
		Milestones:      s.Milestones,
		MostComplex:     s.MostComplex,
	}
}

// Snapshot builds the golden snapshot of a scenario result.
func Snapshot(scenarioName string, result *Result) TraceSnapshot {
	return TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		Final:        finalState(result.State),
	}
}

// MarshalSnapshot renders a snapshot as indented JSON with a trailing
// newline. HTML escaping is off so mentions read as <@U01ALICE>.
func MarshalSnapshot(snapshot TraceSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass and Errors.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(Snapshot(scenarioName, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
