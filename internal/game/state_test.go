package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewState(t *testing.T) {
	s := NewState()
	assert.Equal(t, int64(1), s.CurrentCount)
	assert.Empty(t, s.LastContributor)
	assert.Nil(t, s.HighestCountAt)
	assert.NotNil(t, s.Milestones)
	assert.NotNil(t, s.Participants)
}

func TestState_CloneIsDeep(t *testing.T) {
	m := newTestMachine(PolicyContinue)
	submit(m, "A", 1)
	m.state.recordMilestone(100, "A")

	snap := m.State().Clone()
	submit(m, "B", 2)
	m.state.recordMilestone(200, "B")
	*m.state.HighestCountAt = fixedNow.AddDate(1, 0, 0)

	assert.Equal(t, int64(2), snap.CurrentCount)
	assert.Equal(t, int64(1), snap.TotalSuccessful)
	assert.Len(t, snap.Milestones, 1)
	assert.NotContains(t, snap.Participants, "B")
	assert.Equal(t, fixedNow, *snap.HighestCountAt)

	snap.Participants["A"].Successful = 99
	a, _ := m.State().Participant("A")
	assert.Equal(t, int64(1), a.Successful)
}

func TestState_Repair(t *testing.T) {
	s := (&State{
		CurrentCount: 0,
		Participants: map[string]*ParticipantStats{"A": nil},
	}).Repair()

	assert.Equal(t, int64(1), s.CurrentCount)
	assert.NotNil(t, s.Milestones)
	require.NotNil(t, s.Participants["A"])
	assert.Equal(t, ParticipantStats{}, *s.Participants["A"])
}

func TestParticipantStats_Derived(t *testing.T) {
	var empty ParticipantStats
	_, ok := empty.AverageComplexity()
	assert.False(t, ok)
	assert.Zero(t, empty.Accuracy())

	p := ParticipantStats{Successful: 3, Unsuccessful: 1, TotalComplexity: 10, CountWithComplexity: 4}
	avg, ok := p.AverageComplexity()
	require.True(t, ok)
	assert.InDelta(t, 2.5, avg, 1e-9)
	assert.Equal(t, int64(4), p.Attempts())
	assert.InDelta(t, 0.75, p.Accuracy(), 1e-9)
}

func TestState_ParticipantUnknown(t *testing.T) {
	_, ok := NewState().Participant("nobody")
	assert.False(t, ok)
}
