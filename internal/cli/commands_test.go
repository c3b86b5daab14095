package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/countbot/internal/engine"
	"github.com/roach88/countbot/internal/game"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const session = `# warm-up
U01ALICE: 1
U02BOB: 1+1

U02BOB: 3
U01ALICE: !stats
`

func TestEval_Text(t *testing.T) {
	out, _, err := execute(t, "", "eval", "2^3")
	require.NoError(t, err)
	assert.Equal(t, "Expression: 2^3, Evaluated: 8, Complexity: 4\n", out)
}

func TestEval_JoinsArgs(t *testing.T) {
	out, _, err := execute(t, "", "eval", "6", "*", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Evaluated: 42")
}

func TestEval_JSON(t *testing.T) {
	out, _, err := execute(t, "", "eval", "√(2025)", "--format", "json")
	require.NoError(t, err)

	var res engine.EvalResult
	resp := decodeResponse(t, out, &res)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, int64(45), res.Value)
	assert.Equal(t, 3, res.Complexity)
}

func TestEval_Error(t *testing.T) {
	_, _, err := execute(t, "", "eval", "1/0")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "Error evaluating expression: division by zero", err.Error())
}

func TestEval_ErrorJSON(t *testing.T) {
	out, _, err := execute(t, "", "eval", "1/0", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "DOMAIN_ERROR", resp.Error.Code)
}

func TestEval_NotExpression(t *testing.T) {
	_, _, err := execute(t, "", "eval", "hello", "world")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestPlay_Text(t *testing.T) {
	out, _, err := execute(t, session, "play", "--ephemeral")
	require.NoError(t, err)

	assert.Contains(t, out, "U01ALICE: 1  ✅\n")
	assert.Contains(t, out, "U02BOB: 3  ❌\n")
	assert.Contains(t, out, "  > <@U02BOB> messed up! You can't count twice in a row. The count continues at 3!\n")
	assert.Contains(t, out, "  > 📊 Counting Game Stats 📊\n")
	assert.NotContains(t, out, "warm-up")
}

func TestPlay_JSON(t *testing.T) {
	out, _, err := execute(t, session, "play", "--ephemeral", "--format", "json")
	require.NoError(t, err)

	var events []PlayEvent
	decodeResponse(t, out, &events)
	require.Len(t, events, 4)

	assert.Equal(t, 2, events[0].Line)
	require.NotNil(t, events[0].Reply)
	require.NotNil(t, events[0].Reply.Outcome)
	assert.True(t, events[0].Reply.Outcome.Accepted)

	require.NotNil(t, events[2].Reply.Outcome)
	assert.Equal(t, game.ReasonConsecutiveTurn, events[2].Reply.Outcome.Reason)

	assert.Nil(t, events[3].Reply.Outcome)
	assert.Equal(t, "stats", string(events[3].Reply.Command))
}

func TestPlay_IgnoresChatter(t *testing.T) {
	out, _, err := execute(t, "U01ALICE: good morning everyone\n", "play", "--ephemeral", "--format", "json")
	require.NoError(t, err)

	var events []PlayEvent
	decodeResponse(t, out, &events)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].Reply)
	assert.Empty(t, events[0].Error)
}

func TestPlay_EvalErrorIsSilent(t *testing.T) {
	// A channel says nothing about expressions that fail to evaluate.
	out, _, err := execute(t, "U01ALICE: 1/0\nU01ALICE: 1\n", "play", "--ephemeral")
	require.NoError(t, err)
	assert.Equal(t, "U01ALICE: 1/0\nU01ALICE: 1  ✅\n", out)
}

func TestPlay_MalformedLine(t *testing.T) {
	_, _, err := execute(t, "U01ALICE: 1\nno separator here\n", "play", "--ephemeral")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "line 2")
}

func TestPlay_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.txt")
	writeFile(t, path, "U01ALICE: 1\n")

	out, _, err := execute(t, "", "play", path, "--ephemeral")
	require.NoError(t, err)
	assert.Contains(t, out, "U01ALICE: 1  ✅")

	_, _, err = execute(t, "", "play", filepath.Join(t.TempDir(), "missing.txt"), "--ephemeral")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPlay_ResumesSavedGame(t *testing.T) {
	db := tempDB(t)

	_, _, err := execute(t, "U01ALICE: 1\nU02BOB: 2\n", "play", "--db", db)
	require.NoError(t, err)

	// A second session continues where the first left off.
	_, _, err = execute(t, "U01ALICE: 3\n", "play", "--db", db)
	require.NoError(t, err)

	out, _, err := execute(t, "", "stats", "--db", db, "--format", "json")
	require.NoError(t, err)

	var state game.State
	decodeResponse(t, out, &state)
	assert.Equal(t, int64(4), state.CurrentCount)
	assert.Equal(t, "U01ALICE", state.LastContributor)
	assert.Equal(t, int64(3), state.TotalSuccessful)
	assert.Equal(t, int64(2), state.Participants["U01ALICE"].Successful)

	out, _, err = execute(t, "", "history", "--db", db, "--format", "json")
	require.NoError(t, err)

	var records []engine.TransitionRecord
	decodeResponse(t, out, &records)
	require.Len(t, records, 3)
	for i, r := range records {
		assert.Equal(t, int64(i+1), r.Seq, "seq resumes across sessions")
	}
}

func TestStats_Text(t *testing.T) {
	db := tempDB(t)
	_, _, err := execute(t, "U01ALICE: 1\n", "play", "--db", db)
	require.NoError(t, err)

	out, _, err := execute(t, "", "stats", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "📊 Counting Game Stats 📊")
	assert.Contains(t, out, "Current count: 2")
	assert.Contains(t, out, "U01ALICE: 1 (0 fails")
}

func TestStats_FreshDatabase(t *testing.T) {
	out, _, err := execute(t, "", "stats", "--db", tempDB(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Current count: 1")
	assert.Contains(t, out, "No counters yet!")
}

func TestHistory(t *testing.T) {
	db := tempDB(t)
	_, _, err := execute(t, "U01ALICE: 1\nU02BOB: 2\nU01ALICE: 5\n", "play", "--db", db)
	require.NoError(t, err)

	out, _, err := execute(t, "", "history", "--db", db)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "#1 ")
	assert.Contains(t, lines[0], "U01ALICE: 1 = 1 (complexity 2) -> ok, count 2")
	assert.Contains(t, lines[2], "-> wrong_number, count 3")

	out, _, err = execute(t, "", "history", "--db", db, "--participant", "U01ALICE", "--limit", "1", "--format", "json")
	require.NoError(t, err)
	var records []engine.TransitionRecord
	decodeResponse(t, out, &records)
	require.Len(t, records, 1)
	assert.Equal(t, int64(3), records[0].Seq)
}

func TestHistory_Empty(t *testing.T) {
	out, _, err := execute(t, "", "history", "--db", tempDB(t))
	require.NoError(t, err)
	assert.Equal(t, "No transitions yet.\n", out)
}

func TestHistory_InvalidLimit(t *testing.T) {
	_, _, err := execute(t, "", "history", "--db", tempDB(t), "--limit", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

const legacyFixture = "../store/testdata/counting_stats.json"

func TestImport(t *testing.T) {
	db := tempDB(t)

	out, _, err := execute(t, "", "import", legacyFixture, "--db", db, "--format", "json")
	require.NoError(t, err)

	var summary ImportSummary
	decodeResponse(t, out, &summary)
	assert.Equal(t, int64(57), summary.CurrentCount)
	assert.Equal(t, int64(412), summary.HighestCount)
	assert.Equal(t, int64(530), summary.TotalSuccessful)
	assert.Equal(t, 3, summary.Participants)
	assert.Equal(t, 4, summary.Milestones)

	// The imported game is playable: U02BOB counted last.
	out, _, err = execute(t, "U01ALICE: 57\n", "play", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "U01ALICE: 57  ✅")
}

func TestImport_RefusesPlayedGame(t *testing.T) {
	db := tempDB(t)
	_, _, err := execute(t, "U01ALICE: 1\n", "play", "--db", db)
	require.NoError(t, err)

	_, _, err = execute(t, "", "import", legacyFixture, "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--force")

	out, _, err := execute(t, "", "import", legacyFixture, "--db", db, "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "count 57")
}

func TestImport_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	writeFile(t, path, "{not json")

	_, _, err := execute(t, "", "import", path, "--db", tempDB(t))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRules(t *testing.T) {
	out, _, err := execute(t, "", "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "🔢 Welcome to the Counting Game! 🔢")
	assert.Contains(t, out, "the count continues without resetting.")
}

func TestRules_ResetPolicyFromEnv(t *testing.T) {
	t.Setenv("COUNTBOT_POLICY", "reset")

	out, _, err := execute(t, "", "rules", "--format", "json")
	require.NoError(t, err)

	var data map[string]string
	decodeResponse(t, out, &data)
	assert.Equal(t, "reset", data["policy"])
	assert.Contains(t, data["help"], "the count resets to 1.")
}

func TestReplay_Match(t *testing.T) {
	db := tempDB(t)
	_, _, err := execute(t, "U01ALICE: 1\nU02BOB: 1+1\nU02BOB: 3\nU01ALICE: 9\nU01ALICE: 3\n", "play", "--db", db)
	require.NoError(t, err)

	out, _, err := execute(t, "", "replay", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "Replayed 5 transitions\n✓ saved game matches the transition log\n", out)
}

func TestReplay_PolicyMismatch(t *testing.T) {
	db := tempDB(t)
	_, _, err := execute(t, "U01ALICE: 1\nU02BOB: 7\n", "play", "--db", db)
	require.NoError(t, err)

	t.Setenv("COUNTBOT_POLICY", "reset")
	out, _, err := execute(t, "", "replay", "--db", db, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ReplayResult
	decodeResponse(t, out, &result)
	assert.False(t, result.Match)
	assert.Equal(t, 2, result.Applied)
	require.NotEmpty(t, result.Divergences)
	assert.Equal(t, int64(2), result.Divergences[0].Seq)
}

func TestReplay_ImportedGameDiverges(t *testing.T) {
	db := tempDB(t)
	_, _, err := execute(t, "", "import", legacyFixture, "--db", db)
	require.NoError(t, err)

	_, _, err = execute(t, "", "replay", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
