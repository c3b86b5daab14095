package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

func newTestMachine(policy Policy) *Machine {
	m := NewMachine(nil, policy, DefaultTable())
	m.Now = func() time.Time { return fixedNow }
	return m
}

func submit(m *Machine, participant string, value int64) Outcome {
	return m.Apply(Input{
		Participant: participant,
		Expression:  "n",
		Value:       value,
		Complexity:  2,
	})
}

func TestMachine_AcceptAdvancesCount(t *testing.T) {
	m := newTestMachine(PolicyContinue)

	out := m.Apply(Input{Participant: "A", Expression: "2-1", Value: 1, Complexity: 3})

	assert.True(t, out.Accepted)
	assert.Equal(t, ReasonNone, out.Reason)
	assert.Equal(t, int64(1), out.Expected)
	assert.Equal(t, int64(2), out.Count)
	assert.Equal(t, TagCheck, out.Reaction)
	assert.True(t, out.NewRecord)
	assert.Empty(t, out.Message)

	s := m.State()
	assert.Equal(t, int64(2), s.CurrentCount)
	assert.Equal(t, "A", s.LastContributor)
	assert.Equal(t, int64(1), s.HighestCount)
	require.NotNil(t, s.HighestCountAt)
	assert.Equal(t, fixedNow, *s.HighestCountAt)
	assert.Equal(t, int64(1), s.TotalSuccessful)

	ps, ok := s.Participant("A")
	require.True(t, ok)
	assert.Equal(t, int64(1), ps.Successful)
	assert.Equal(t, int64(3), ps.TotalComplexity)
	assert.Equal(t, int64(1), ps.CountWithComplexity)
}

func TestMachine_ConsecutiveTurn(t *testing.T) {
	m := newTestMachine(PolicyContinue)
	m.state.CurrentCount = 5
	m.state.LastContributor = "A"

	out := submit(m, "A", 5)

	assert.False(t, out.Accepted)
	assert.Equal(t, ReasonConsecutiveTurn, out.Reason)
	assert.Equal(t, TagReject, out.Reaction)
	assert.Equal(t, "<@A> messed up! You can't count twice in a row. The count continues at 5!", out.Message)
	assert.Equal(t, int64(5), m.State().CurrentCount)
	assert.Equal(t, "A", m.State().LastContributor)

	ps, _ := m.State().Participant("A")
	assert.Equal(t, int64(1), ps.Unsuccessful)
}

func TestMachine_FreshGameHasNoPreviousContributor(t *testing.T) {
	m := newTestMachine(PolicyContinue)
	require.Empty(t, m.State().LastContributor)

	out := submit(m, "", 1)

	assert.NotEqual(t, ReasonConsecutiveTurn, out.Reason)
	assert.True(t, out.Accepted)
}

func TestMachine_WrongNumber(t *testing.T) {
	m := newTestMachine(PolicyContinue)
	submit(m, "A", 1)
	submit(m, "B", 2)

	out := submit(m, "A", 4)

	assert.False(t, out.Accepted)
	assert.Equal(t, ReasonWrongNumber, out.Reason)
	assert.Equal(t, int64(3), out.Expected)
	assert.Equal(t, "<@A> messed up! The next number should have been 3. The count continues at 3!", out.Message)
	assert.Equal(t, int64(3), m.State().CurrentCount)
	assert.Equal(t, "B", m.State().LastContributor)
}

func TestMachine_ConsecutiveCheckedBeforeValue(t *testing.T) {
	m := newTestMachine(PolicyContinue)
	submit(m, "A", 1)

	// Wrong value and consecutive turn at once: the turn rule wins.
	out := submit(m, "A", 7)
	assert.Equal(t, ReasonConsecutiveTurn, out.Reason)
}

func TestMachine_ResetPolicy(t *testing.T) {
	m := newTestMachine(PolicyReset)
	submit(m, "A", 1)
	submit(m, "B", 2)

	out := submit(m, "B", 3)

	assert.False(t, out.Accepted)
	assert.Equal(t, "<@B> messed up! You can't count twice in a row. The count resets to 1.", out.Message)
	assert.Equal(t, int64(1), out.Count)
	assert.Equal(t, int64(1), m.State().CurrentCount)
	assert.Empty(t, m.State().LastContributor)

	// After a reset anyone, including B, may start again at 1.
	again := submit(m, "B", 1)
	assert.True(t, again.Accepted)
	assert.Equal(t, int64(2), m.State().HighestCount)
	assert.False(t, again.NewRecord)
}

func TestMachine_Milestone(t *testing.T) {
	m := newTestMachine(PolicyContinue)
	m.state.CurrentCount = 69
	m.state.LastContributor = "A"

	out := submit(m, "B", 69)

	assert.True(t, out.Accepted)
	assert.True(t, out.Milestone)
	assert.Equal(t, ReactionTag("cancer"), out.Reaction)
	assert.Equal(t, "♋ Congratulations <@B>! You've reached 69! ♋", out.Message)
	assert.Equal(t, "B", m.State().Milestones[69])
}

func TestMachine_HundredMilestone(t *testing.T) {
	m := newTestMachine(PolicyContinue)
	m.state.CurrentCount = 200
	m.state.LastContributor = "A"

	out := submit(m, "B", 200)

	assert.Equal(t, TagHundred, out.Reaction)
	assert.Equal(t, "💯 Congratulations <@B>! You've reached 200! 💯", out.Message)
}

func TestMachine_MilestoneFirstReacherKept(t *testing.T) {
	m := newTestMachine(PolicyReset)
	m.state.CurrentCount = 42
	m.state.LastContributor = "A"

	first := submit(m, "B", 42)
	require.True(t, first.Milestone)

	// Force the count back to 42 and let someone else reach it.
	m.state.CurrentCount = 42
	second := submit(m, "C", 42)

	assert.True(t, second.Accepted)
	assert.False(t, second.Milestone)
	assert.Empty(t, second.Message)
	assert.Equal(t, ReactionTag("rocket"), second.Reaction)
	assert.Equal(t, "B", m.State().Milestones[42])
}

func TestMachine_MostComplexOfferedOnRejection(t *testing.T) {
	m := newTestMachine(PolicyContinue)

	out := m.Apply(Input{Participant: "A", Expression: "sqrt(16)+cbrt(8)", Value: 6, Complexity: 8})

	assert.False(t, out.Accepted)
	assert.True(t, out.MostComplex)
	assert.Equal(t, ComplexOperation{Expression: "sqrt(16)+cbrt(8)", Contributor: "A", Complexity: 8}, m.State().MostComplex)

	// Ties do not replace the record.
	tie := m.Apply(Input{Participant: "B", Expression: "x", Value: 1, Complexity: 8})
	assert.False(t, tie.MostComplex)
	assert.Equal(t, "A", m.State().MostComplex.Contributor)
}

func TestMachine_PrimeAndSquareCounters(t *testing.T) {
	m := newTestMachine(PolicyContinue)
	players := []string{"A", "B"}
	for n := int64(1); n <= 10; n++ {
		out := submit(m, players[n%2], n)
		require.True(t, out.Accepted, "n=%d", n)
	}

	a, _ := m.State().Participant("A") // evens: 2,4,6,8,10
	b, _ := m.State().Participant("B") // odds: 1,3,5,7,9
	assert.Equal(t, int64(1), a.Primes)
	assert.Equal(t, int64(1), a.PerfectSquares)
	assert.Equal(t, int64(3), b.Primes)
	assert.Equal(t, int64(2), b.PerfectSquares)
}

func TestMachine_Monotonicity(t *testing.T) {
	m := newTestMachine(PolicyContinue)
	inputs := []struct {
		who   string
		value int64
	}{
		{"A", 1}, {"A", 2}, {"B", 2}, {"C", 5}, {"C", 3}, {"A", 4}, {"B", 3}, {"B", 5},
	}

	var prevTotal, prevHigh int64
	prevCount := m.State().CurrentCount
	for _, in := range inputs {
		out := submit(m, in.who, in.value)
		s := m.State()
		assert.GreaterOrEqual(t, s.TotalSuccessful, prevTotal)
		assert.GreaterOrEqual(t, s.HighestCount, prevHigh)
		if out.Accepted {
			assert.Equal(t, prevCount+1, s.CurrentCount)
		} else {
			assert.Equal(t, prevCount, s.CurrentCount)
		}
		prevTotal, prevHigh, prevCount = s.TotalSuccessful, s.HighestCount, s.CurrentCount
	}
	assert.Equal(t, int64(5), m.State().HighestCount)
	assert.Equal(t, int64(6), m.State().CurrentCount)
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", PolicyContinue, false},
		{"continue", PolicyContinue, false},
		{" Reset ", PolicyReset, false},
		{"restart", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
