package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err, path)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_IsDeterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/basic_counting.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, first.State, second.State)
}

func TestRun_FinalStateRoundTrips(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/milestones.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result.State)

	alice, ok := result.State.Participant("U01ALICE")
	require.True(t, ok)
	assert.Equal(t, int64(2), alice.Successful)
	assert.Equal(t, int64(1), alice.Unsuccessful)
	assert.Equal(t, int64(8), alice.TotalComplexity)

	bob, ok := result.State.Participant("U02BOB")
	require.True(t, ok)
	assert.Equal(t, int64(1), bob.Primes, "43 is prime")

	require.NotNil(t, result.State.HighestCountAt)
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	scenario := mustParse(t, `
name: wrong_expectation
description: "The expect clause disagrees with the engine"
steps:
  - participant: U01ALICE
    text: "1"
    expect:
      outcome: rejected
      count: 7
      reaction: x
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, []string{
		"step 1: expected outcome rejected, got accepted",
		"step 1: expected count 7, got 2",
		"step 1: expected reaction x, got white_check_mark",
	}, result.Errors)
}

func TestRun_AssertionFailureFails(t *testing.T) {
	scenario := mustParse(t, `
name: wrong_assertion
description: "The final state disagrees with the assertion"
steps:
  - participant: U01ALICE
    text: "1"
assertions:
  - type: final_state
    table: game_state
    expect:
      current_count: 3
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "game_state.current_count = 3")
}

func TestRun_EvalErrorsAreIgnored(t *testing.T) {
	scenario := mustParse(t, `
name: eval_errors
description: "Malformed and undefined expressions never reach the game"
steps:
  - participant: U01ALICE
    text: "2+"
    expect: { outcome: ignored }
  - participant: U01ALICE
    text: "1/0"
    expect: { outcome: ignored }
  - participant: U01ALICE
    text: "!eval 1/0"
    expect:
      outcome: command
      message: "Error evaluating expression: division by zero"
  - participant: U01ALICE
    text: "1"
    expect: { outcome: accepted, count: 2 }
assertions:
  - type: final_state
    table: game_state
    expect: { last_seq: 1 }
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, int64(1), result.Trace[3].Seq)
}

func mustParse(t *testing.T, yaml string) *Scenario {
	t.Helper()
	scenario, err := ParseScenario([]byte(yaml))
	require.NoError(t, err)
	return scenario
}
