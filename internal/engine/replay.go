package engine

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/countbot/internal/game"
)

// Divergence is a logged transition whose replayed outcome differs.
type Divergence struct {
	Seq    int64  `json:"seq"`
	Field  string `json:"field"`
	Logged string `json:"logged"`
	Replay string `json:"replayed"`
}

// ReplayReport is the result of Replay.
type ReplayReport struct {
	Applied     int          `json:"applied"`
	Divergences []Divergence `json:"divergences"`
	State       *game.State  `json:"-"`
}

// Replay rebuilds a game from its transition log by applying records to
// machine. Records must be in strictly increasing seq order.
//
// Each transition is stamped with its logged time, so a log written by one engine from a fresh game replays
// to the exact state that engine checkpointed. The replayed outcome of
// every transition is compared with the logged one; disagreements are
// reported as divergences, never repaired.
//
// Replay assumes the policy and milestone table in machine are the ones
// the game was played with. A game seeded by an import, or reconfigured
// mid-game, diverges.
func Replay(machine *game.Machine, records []TransitionRecord) (*ReplayReport, error) {
	report := &ReplayReport{Divergences: []Divergence{}}

	var last int64
	for _, rec := range records {
		if rec.Seq <= last {
			return nil, fmt.Errorf("replay: seq %d follows %d", rec.Seq, last)
		}
		last = rec.Seq

		out := machine.Apply(game.Input{
			Participant: rec.Participant,
			Expression:  rec.Expression,
			Value:       rec.Value,
			Complexity:  rec.Complexity,
			At:          rec.At,
		})
		report.Applied++
		report.Divergences = append(report.Divergences, diffOutcome(rec, out)...)
	}

	report.State = machine.State().Clone()
	return report, nil
}

func diffOutcome(rec TransitionRecord, out game.Outcome) []Divergence {
	var d []Divergence
	add := func(field string, logged, replayed any) {
		l, r := fmt.Sprint(logged), fmt.Sprint(replayed)
		if l != r {
			d = append(d, Divergence{Seq: rec.Seq, Field: field, Logged: l, Replay: r})
		}
	}
	add("accepted", rec.Accepted, out.Accepted)
	add("reason", rec.Reason, out.Reason)
	add("count", rec.Count, out.Count)
	add("reaction", rec.Reaction, out.Reaction)
	return d
}

// CompareStates lists the fields in which got differs from want, as
// "field: want != got" lines. Timestamps compare by instant.
func CompareStates(want, got *game.State) []string {
	var diffs []string
	add := func(field string, w, g any) {
		ws, gs := fmt.Sprint(w), fmt.Sprint(g)
		if ws != gs {
			diffs = append(diffs, fmt.Sprintf("%s: %s != %s", field, ws, gs))
		}
	}

	add("current_count", want.CurrentCount, got.CurrentCount)
	add("last_contributor", want.LastContributor, got.LastContributor)
	add("highest_count", want.HighestCount, got.HighestCount)
	add("total_successful", want.TotalSuccessful, got.TotalSuccessful)

	switch {
	case want.HighestCountAt == nil && got.HighestCountAt == nil:
	case want.HighestCountAt == nil || got.HighestCountAt == nil:
		add("highest_count_at", want.HighestCountAt, got.HighestCountAt)
	case !want.HighestCountAt.Equal(*got.HighestCountAt):
		add("highest_count_at", want.HighestCountAt.UTC(), got.HighestCountAt.UTC())
	}

	add("most_complex", want.MostComplex, got.MostComplex)

	for _, v := range unionKeys(want.Milestones, got.Milestones) {
		add(fmt.Sprintf("milestones[%d]", v), want.Milestones[v], got.Milestones[v])
	}
	for _, id := range unionKeys(want.Participants, got.Participants) {
		add("participants["+id+"]", statsOrZero(want.Participants[id]), statsOrZero(got.Participants[id]))
	}
	return diffs
}

func statsOrZero(p *game.ParticipantStats) game.ParticipantStats {
	if p == nil {
		return game.ParticipantStats{}
	}
	return *p
}

func unionKeys[K int64 | string, V any](a, b map[K]V) []K {
	keys := slices.Collect(maps.Keys(a))
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}
