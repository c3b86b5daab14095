// Package render formats the game for chat: the stats report and the help
// text. Output is plain text with emoji section headings.
package render

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/countbot/internal/game"
)

// TopCounters is the number of participants listed in the stats report.
const TopCounters = 5

// achievedLayout mirrors en-US numeric date and 24-hour time.
const achievedLayout = "1/2/2006, 15:04:05"

type ranked struct {
	id    string
	stats game.ParticipantStats
}

// Stats renders the stats report for state. Names are looked up through
// names; lookups that fail show the raw participant ID.
func Stats(ctx context.Context, state *game.State, names NameResolver) string {
	p := message.NewPrinter(language.English)
	nc := newNameCache(ctx, names)

	var b strings.Builder
	b.WriteString("📊 Counting Game Stats 📊\n\n")

	p.Fprintf(&b, "Current count: %d\n", state.CurrentCount)
	p.Fprintf(&b, "Highest count: %d\n", state.HighestCount)
	if state.HighestCountAt != nil {
		b.WriteString("Achieved on: " + state.HighestCountAt.UTC().Format(achievedLayout) + " UTC\n")
	}
	p.Fprintf(&b, "Total successful counts: %d\n", state.TotalSuccessful)

	participants := rankParticipants(state)

	b.WriteString("\n🏆 Top Counters:\n")
	if len(participants) == 0 {
		b.WriteString("No counters yet!\n")
	}
	for _, r := range participants[:min(TopCounters, len(participants))] {
		writeCounter(&b, p, nc.name(r.id), r.stats)
	}

	if len(participants) > 0 {
		b.WriteString("\n⭐ Highlights:\n")
		b.WriteString("Most active: " + nc.name(best(participants, func(s game.ParticipantStats) (float64, bool) {
			return float64(s.Attempts()), true
		})) + "\n")
		b.WriteString("Most accurate: " + nc.name(best(participants, func(s game.ParticipantStats) (float64, bool) {
			return s.Accuracy(), s.Attempts() > 0
		})) + "\n")
		if id := best(participants, game.ParticipantStats.AverageComplexity); id != "" {
			b.WriteString("Highest average complexity: " + nc.name(id) + "\n")
		}
	}

	b.WriteString("\n🎯 Milestones:\n")
	if len(state.Milestones) == 0 {
		b.WriteString("No milestones yet!\n")
	}
	for _, value := range slices.Sorted(maps.Keys(state.Milestones)) {
		p.Fprintf(&b, "%d: %s\n", value, nc.name(state.Milestones[value]))
	}

	b.WriteString("\n🧮 Most Complicated Operation:\n")
	if op := state.MostComplex; op.Contributor != "" {
		p.Fprintf(&b, "%s: %s (Complexity: %d)\n", nc.name(op.Contributor), op.Expression, op.Complexity)
	} else {
		b.WriteString("No complicated operations yet!\n")
	}

	return b.String()
}

func writeCounter(b *strings.Builder, p *message.Printer, name string, s game.ParticipantStats) {
	p.Fprintf(b, "%s: %d (%d fails, %.2f%% accuracy, Avg Complexity: ", name, s.Successful, s.Unsuccessful, s.Accuracy()*100)
	if avg, ok := s.AverageComplexity(); ok {
		p.Fprintf(b, "%.2f", avg)
	} else {
		b.WriteString("N/A")
	}
	if s.Primes > 0 {
		p.Fprintf(b, ", Primes: %d", s.Primes)
	}
	if s.PerfectSquares > 0 {
		p.Fprintf(b, ", Perfect Squares: %d", s.PerfectSquares)
	}
	b.WriteString(")\n")
}

// rankParticipants orders participants by successful counts, highest
// first, then by ID.
func rankParticipants(state *game.State) []ranked {
	out := make([]ranked, 0, len(state.Participants))
	for id, ps := range state.Participants {
		out = append(out, ranked{id: id, stats: *ps})
	}
	slices.SortFunc(out, func(a, b ranked) int {
		if c := cmp.Compare(b.stats.Successful, a.stats.Successful); c != 0 {
			return c
		}
		return strings.Compare(a.id, b.id)
	})
	return out
}

// best returns the ID with the highest metric among participants for which
// the metric is defined. Ties go to the earlier participant in rank order.
// Returns "" if no participant qualifies.
func best(participants []ranked, metric func(game.ParticipantStats) (float64, bool)) string {
	var (
		bestID    string
		bestValue float64
	)
	for _, r := range participants {
		v, ok := metric(r.stats)
		if !ok {
			continue
		}
		if bestID == "" || v > bestValue {
			bestID, bestValue = r.id, v
		}
	}
	return bestID
}
