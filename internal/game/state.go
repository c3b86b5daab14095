package game

import (
	"maps"
	"time"
)

// State is the authoritative record of the counting game.
//
// A State is owned by exactly one Machine. It is mutated only through the
// unexported setter groups below, each of which preserves the invariants
// for its fields. Readers take a deep copy with Clone.
type State struct {
	// CurrentCount is the value the next submission must equal. Always >= 1.
	CurrentCount int64 `json:"current_count"`

	// LastContributor is the participant who most recently counted
	// correctly. Empty means nobody (fresh game or after a reset).
	LastContributor string `json:"last_contributor,omitempty"`

	// HighestCount is the highest number ever accepted.
	HighestCount int64 `json:"highest_count"`

	// HighestCountAt is when HighestCount was reached; nil until the first
	// record.
	HighestCountAt *time.Time `json:"highest_count_at,omitempty"`

	// TotalSuccessful counts accepted submissions over the game's lifetime.
	TotalSuccessful int64 `json:"total_successful"`

	// Milestones maps a milestone value to the participant who first
	// reached it.
	Milestones map[int64]string `json:"milestones"`

	// MostComplex is the highest-scoring expression ever evaluated.
	MostComplex ComplexOperation `json:"most_complex"`

	// Participants holds per-participant statistics, created on first
	// submission and never removed.
	Participants map[string]*ParticipantStats `json:"participants"`
}

// ComplexOperation records the most complicated expression seen.
type ComplexOperation struct {
	Expression  string `json:"expression"`
	Contributor string `json:"contributor,omitempty"`
	Complexity  int    `json:"complexity"`
}

// ParticipantStats holds one participant's counters.
type ParticipantStats struct {
	Successful          int64 `json:"successful"`
	Unsuccessful        int64 `json:"unsuccessful"`
	TotalComplexity     int64 `json:"total_complexity"`
	CountWithComplexity int64 `json:"count_with_complexity"`
	Primes              int64 `json:"primes"`
	PerfectSquares      int64 `json:"perfect_squares"`
}

// NewState returns the state of a game that has never been played.
func NewState() *State {
	return &State{
		CurrentCount: 1,
		Milestones:   make(map[int64]string),
		Participants: make(map[string]*ParticipantStats),
	}
}

// Clone returns a deep copy that shares no memory with s.
func (s *State) Clone() *State {
	c := *s
	if s.HighestCountAt != nil {
		at := *s.HighestCountAt
		c.HighestCountAt = &at
	}
	c.Milestones = maps.Clone(s.Milestones)
	if c.Milestones == nil {
		c.Milestones = make(map[int64]string)
	}
	c.Participants = make(map[string]*ParticipantStats, len(s.Participants))
	for id, ps := range s.Participants {
		cp := *ps
		c.Participants[id] = &cp
	}
	return &c
}

// Repair fills in missing maps and clamps fields whose invariants a loaded
// or imported state may violate. It returns s for chaining.
func (s *State) Repair() *State {
	if s.CurrentCount < 1 {
		s.CurrentCount = 1
	}
	if s.Milestones == nil {
		s.Milestones = make(map[int64]string)
	}
	if s.Participants == nil {
		s.Participants = make(map[string]*ParticipantStats)
	}
	for id, ps := range s.Participants {
		if ps == nil {
			s.Participants[id] = &ParticipantStats{}
		}
	}
	return s
}

// Participant returns a copy of one participant's stats.
func (s *State) Participant(id string) (ParticipantStats, bool) {
	ps, ok := s.Participants[id]
	if !ok {
		return ParticipantStats{}, false
	}
	return *ps, true
}

// AverageComplexity returns the mean complexity of accepted submissions.
// ok is false until the participant has at least one accepted submission.
func (p ParticipantStats) AverageComplexity() (avg float64, ok bool) {
	if p.CountWithComplexity <= 0 {
		return 0, false
	}
	return float64(p.TotalComplexity) / float64(p.CountWithComplexity), true
}

// Attempts returns the participant's total number of submissions.
func (p ParticipantStats) Attempts() int64 {
	return p.Successful + p.Unsuccessful
}

// Accuracy returns the fraction of successful submissions in [0, 1].
func (p ParticipantStats) Accuracy() float64 {
	if p.Attempts() == 0 {
		return 0
	}
	return float64(p.Successful) / float64(p.Attempts())
}

// participant returns the mutable stats for id, creating them on first use.
func (s *State) participant(id string) *ParticipantStats {
	ps, ok := s.Participants[id]
	if !ok {
		ps = &ParticipantStats{}
		s.Participants[id] = ps
	}
	return ps
}

// advance records an accepted submission of reached by participant.
// Returns true if reached set a new all-time record.
func (s *State) advance(participant string, reached int64, complexity int, at time.Time) bool {
	s.CurrentCount = reached + 1
	s.LastContributor = participant
	s.TotalSuccessful++

	ps := s.participant(participant)
	ps.Successful++
	ps.TotalComplexity += int64(complexity)
	ps.CountWithComplexity++
	if IsPrime(reached) {
		ps.Primes++
	}
	if IsPerfectSquare(reached) {
		ps.PerfectSquares++
	}

	if reached <= s.HighestCount {
		return false
	}
	s.HighestCount = reached
	at = at.UTC()
	s.HighestCountAt = &at
	return true
}

// recordFailure charges a rejected submission to participant.
func (s *State) recordFailure(participant string) {
	s.participant(participant).Unsuccessful++
}

// applyPolicy adjusts the sequence after a rejected submission.
func (s *State) applyPolicy(p Policy) {
	if p == PolicyReset {
		s.CurrentCount = 1
		s.LastContributor = ""
	}
}

// recordMilestone stores the first participant to reach value.
// Returns false if the milestone was already claimed.
func (s *State) recordMilestone(value int64, participant string) bool {
	if _, claimed := s.Milestones[value]; claimed {
		return false
	}
	s.Milestones[value] = participant
	return true
}

// offerComplexOperation replaces MostComplex if op scores strictly higher.
func (s *State) offerComplexOperation(op ComplexOperation) bool {
	if op.Complexity <= s.MostComplex.Complexity {
		return false
	}
	s.MostComplex = op
	return true
}
