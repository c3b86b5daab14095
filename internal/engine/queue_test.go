package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/countbot/internal/game"
)

func reserve(t *testing.T, q *admissionQueue) *ticket {
	t.Helper()
	tk, ok := q.Reserve(ticketSubmission)
	require.True(t, ok)
	return tk
}

func TestAdmissionQueue_ReadyHeadDequeues(t *testing.T) {
	q := newAdmissionQueue()
	tk := reserve(t, q)

	require.True(t, q.Fill(tk, game.Input{Participant: "A", Value: 1}))

	got, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "A", got.input.Participant)
	assert.Equal(t, 0, q.Len())
}

func TestAdmissionQueue_PendingHeadBlocksLaterTickets(t *testing.T) {
	q := newAdmissionQueue()
	first := reserve(t, q)
	second := reserve(t, q)

	// The later ticket finishes first; it must wait for the head.
	require.True(t, q.Fill(second, game.Input{Participant: "B"}))
	_, ok := q.TryDequeue()
	assert.False(t, ok, "pending head must block")

	require.True(t, q.Fill(first, game.Input{Participant: "A"}))

	got, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "A", got.input.Participant)

	got, ok = q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "B", got.input.Participant)
}

func TestAdmissionQueue_DiscardedHeadIsSkipped(t *testing.T) {
	q := newAdmissionQueue()
	first := reserve(t, q)
	second := reserve(t, q)

	require.True(t, q.Fill(second, game.Input{Participant: "B"}))
	q.Discard(first)

	got, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "B", got.input.Participant)
	assert.Equal(t, 0, q.Len())
}

func TestAdmissionQueue_DiscardFilledIsNoop(t *testing.T) {
	q := newAdmissionQueue()
	tk := reserve(t, q)
	require.True(t, q.Fill(tk, game.Input{Participant: "A"}))

	q.Discard(tk)

	_, ok := q.TryDequeue()
	assert.True(t, ok)
}

func TestAdmissionQueue_PushIsReady(t *testing.T) {
	q := newAdmissionQueue()
	_, ok := q.Push(ticketControl, &control{policy: game.PolicyReset})
	require.True(t, ok)

	got, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, ticketControl, got.kind)
	assert.Equal(t, game.PolicyReset, got.control.policy)
}

func TestAdmissionQueue_Signal(t *testing.T) {
	q := newAdmissionQueue()
	tk := reserve(t, q)

	select {
	case <-q.Wait():
		t.Fatal("reserve must not signal")
	default:
	}

	q.Fill(tk, game.Input{})
	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("fill should signal")
	}
}

func TestAdmissionQueue_CloseReturnsRemaining(t *testing.T) {
	q := newAdmissionQueue()
	pending := reserve(t, q)
	filled := reserve(t, q)
	q.Fill(filled, game.Input{})

	remaining := q.Close()
	assert.Equal(t, []*ticket{pending, filled}, remaining)
	assert.Nil(t, q.Close(), "second close returns nothing")

	_, ok := q.Reserve(ticketSubmission)
	assert.False(t, ok)
	assert.False(t, q.Fill(pending, game.Input{}))

	_, open := <-q.Wait()
	assert.False(t, open, "close should close the signal channel")
}

func TestAdmissionQueue_ConcurrentReserveKeepsOrder(t *testing.T) {
	q := newAdmissionQueue()
	const n = 100

	// Reservations are serialized; the order of Reserve calls is the
	// order of dequeue, whatever order the fills happen in.
	tickets := make([]*ticket, n)
	for i := range tickets {
		tickets[i] = reserve(t, q)
	}

	var wg sync.WaitGroup
	for i := n - 1; i >= 0; i-- {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q.Fill(tickets[i], game.Input{Value: int64(i)})
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, int64(i), got.input.Value)
	}
}
