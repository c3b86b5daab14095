package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/roach88/countbot/internal/expr"
	"github.com/roach88/countbot/internal/game"
	"github.com/roach88/countbot/internal/score"
)

// DefaultMaxConcurrentEvaluations bounds evaluations running outside the
// run loop at any one time.
const DefaultMaxConcurrentEvaluations = 16

// DefaultMaxExpressionBytes is the longest text, in bytes, that is
// evaluated. Longer text is rejected before it takes a place in line.
const DefaultMaxExpressionBytes = expr.DefaultMaxBytes

// Submission is one inbound chat message.
type Submission struct {
	ParticipantID string `json:"participant_id"`
	Text          string `json:"text"`

	// ChannelRef is opaque to the engine and recorded with the transition.
	ChannelRef string `json:"channel_ref,omitempty"`
}

// EvalResult is the result of evaluating an expression without playing it.
type EvalResult struct {
	Expression string `json:"expression"`
	Value      int64  `json:"value"`
	Complexity int    `json:"complexity"`
}

// Message formats r the way the eval command reports it.
func (r EvalResult) Message() string {
	return fmt.Sprintf("Expression: %s, Evaluated: %d, Complexity: %d", r.Expression, r.Value, r.Complexity)
}

// TransitionRecord describes one applied transition for the checkpoint.
type TransitionRecord struct {
	ID          string           `json:"id"`
	Seq         int64            `json:"seq"`
	At          time.Time        `json:"at"`
	Participant string           `json:"participant"`
	ChannelRef  string           `json:"channel_ref,omitempty"`
	Expression  string           `json:"expression"`
	Value       int64            `json:"value"`
	Complexity  int              `json:"complexity"`
	Accepted    bool             `json:"accepted"`
	Reason      game.Reason      `json:"reason,omitempty"`
	Count       int64            `json:"count"`
	Reaction    game.ReactionTag `json:"reaction"`
}

// Checkpointer persists the game after each transition.
// Implemented by store.Store and testutil.MemoryCheckpointer.
type Checkpointer interface {
	Checkpoint(ctx context.Context, rec TransitionRecord, state *game.State) error
}

// Engine serializes submissions into transitions of one game.
//
// Thread-safety model:
//   - Submit(), Eval(), Reconfigure(), Snapshot(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//
// Submissions are evaluated on the submitter's goroutine, bounded by a
// semaphore. Only the Run loop touches the state machine, and it applies
// tickets strictly in arrival order.
type Engine struct {
	mu      sync.RWMutex // Guards machine; written only by Run
	machine *game.Machine

	queue        *admissionQueue
	clock        *Clock
	ids          IDGenerator
	evaluator    *expr.Evaluator
	scorer       score.Scorer
	checkpointer Checkpointer
	evalSlots    *semaphore.Weighted
	maxBytes     int
}

// Option configures an Engine.
type Option func(*Engine)

// WithCheckpointer sets the checkpoint called after every transition.
func WithCheckpointer(c Checkpointer) Option {
	return func(e *Engine) {
		e.checkpointer = c
	}
}

// WithIDGenerator sets the transition ID generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithClock sets the transition clock, e.g. one resumed from the log.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithEvaluator sets the expression evaluator.
func WithEvaluator(ev *expr.Evaluator) Option {
	return func(e *Engine) {
		e.evaluator = ev
	}
}

// WithScorer sets the complexity scorer.
func WithScorer(s score.Scorer) Option {
	return func(e *Engine) {
		e.scorer = s
	}
}

// WithMaxConcurrentEvaluations bounds concurrent evaluations. Values below
// 1 are ignored.
func WithMaxConcurrentEvaluations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.evalSlots = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithMaxExpressionBytes bounds the length of evaluated text. Values
// below 1 are ignored.
func WithMaxExpressionBytes(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxBytes = n
		}
	}
}

// New creates an Engine that owns machine.
func New(machine *game.Machine, opts ...Option) *Engine {
	e := &Engine{
		machine:   machine,
		queue:     newAdmissionQueue(),
		clock:     NewClock(),
		ids:       UUIDv7Generator{},
		evaluator: expr.NewEvaluator(),
		scorer:    score.Default(),
		evalSlots: semaphore.NewWeighted(DefaultMaxConcurrentEvaluations),
		maxBytes:  DefaultMaxExpressionBytes,
	}
	for _, opt := range opts {
		opt(e)
	}
	currentCount.Set(float64(machine.State().CurrentCount))
	return e
}

// Submit plays one submission and returns its outcome.
//
// The submission's place in line is reserved on arrival, before
// evaluation. Returns (nil, nil) when the text is not an expression,
// (nil, err) when it fails to evaluate, and the outcome otherwise.
// Submissions without a participant and text over the length limit are
// refused before a place is reserved, so they never hold up the line.
//
// ctx bounds only the caller's wait. Once evaluated, a submission is
// applied even if ctx is cancelled afterwards.
func (e *Engine) Submit(ctx context.Context, sub Submission) (*game.Outcome, error) {
	if sub.ParticipantID == "" {
		submissionsTotal.WithLabelValues("error").Inc()
		return nil, ErrNoParticipant
	}
	if err := e.checkLength(sub.Text); err != nil {
		slog.Debug("submission too long", "participant", sub.ParticipantID, "bytes", len(sub.Text))
		submissionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	t, ok := e.queue.Reserve(ticketSubmission)
	if !ok {
		submissionsTotal.WithLabelValues("stopped").Inc()
		return nil, ErrStopped
	}
	queueDepth.Set(float64(e.queue.Len()))

	res, err := e.prepare(ctx, sub.Text)
	if err != nil {
		e.queue.Discard(t)
		if errors.Is(err, ErrNotExpression) {
			slog.Debug("ignoring non-expression", "participant", sub.ParticipantID)
			submissionsTotal.WithLabelValues("ignored").Inc()
			return nil, nil
		}
		slog.Debug("evaluation failed", "participant", sub.ParticipantID, "error", err)
		submissionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	t.submission = sub
	if !e.queue.Fill(t, game.Input{
		Participant: sub.ParticipantID,
		Expression:  res.Expression,
		Value:       res.Value,
		Complexity:  res.Complexity,
	}) {
		submissionsTotal.WithLabelValues("stopped").Inc()
		return nil, ErrStopped
	}

	select {
	case r := <-t.reply:
		return r.outcome, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Eval evaluates text without touching the game.
func (e *Engine) Eval(ctx context.Context, text string) (*EvalResult, error) {
	return e.prepare(ctx, text)
}

// prepare runs everything that happens before the critical section:
// comment stripping, the allow-list, normalization, evaluation and scoring.
func (e *Engine) prepare(ctx context.Context, text string) (*EvalResult, error) {
	if err := e.checkLength(text); err != nil {
		return nil, err
	}
	stripped := expr.StripComments(text)
	if !expr.Allowed(stripped) {
		return nil, ErrNotExpression
	}

	if err := e.evalSlots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.evalSlots.Release(1)

	start := time.Now()
	defer func() { evaluationDuration.Observe(time.Since(start).Seconds()) }()

	value, err := e.evaluator.Evaluate(ctx, expr.Normalize(stripped))
	if err != nil {
		var ee *expr.Error
		if errors.As(err, &ee) {
			evaluationErrors.WithLabelValues(string(ee.Code)).Inc()
		}
		return nil, err
	}

	return &EvalResult{
		Expression: stripped,
		Value:      value,
		Complexity: e.scorer.Score(stripped),
	}, nil
}

// checkLength refuses text longer than the configured limit.
func (e *Engine) checkLength(text string) error {
	if len(text) <= e.maxBytes {
		return nil
	}
	evaluationErrors.WithLabelValues(string(expr.ErrCodeParse)).Inc()
	return &expr.Error{
		Code:    expr.ErrCodeParse,
		Message: fmt.Sprintf("expression is %d bytes, limit is %d", len(text), e.maxBytes),
		Pos:     -1,
	}
}

// Reconfigure swaps the milestone table and policy between transitions.
// A nil table leaves the current one in place; an empty policy leaves the
// current policy.
func (e *Engine) Reconfigure(ctx context.Context, table *game.Table, policy game.Policy) error {
	var c control
	if table != nil {
		cloned := table.Clone()
		c.table = &cloned
	}
	c.policy = policy

	t, ok := e.queue.Push(ticketControl, &c)
	if !ok {
		return ErrStopped
	}
	select {
	case r := <-t.reply:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a deep copy of the current state.
func (e *Engine) Snapshot() *game.State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.machine.State().Clone()
}

// Policy returns the active policy.
func (e *Engine) Policy() game.Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.machine.Policy
}

// Run starts the single-writer transition loop.
// Blocks until ctx is cancelled or Stop() is called.
//
// Checkpoint failures are logged and play continues: the in-memory state
// stays authoritative and the next successful checkpoint catches up.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "count", e.Snapshot().CurrentCount)

	for {
		if t, ok := e.queue.TryDequeue(); ok {
			queueDepth.Set(float64(e.queue.Len()))
			e.process(ctx, t)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.Stop()
			return ctx.Err()

		case _, open := <-e.queue.Wait():
			if !open {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes admission and fails every ticket still queued with
// ErrStopped. A transition already in progress completes.
func (e *Engine) Stop() {
	remaining := e.queue.Close()
	for _, t := range remaining {
		t.reply <- result{err: ErrStopped}
	}
	if len(remaining) > 0 {
		slog.Info("failed queued submissions at shutdown", "count", len(remaining))
	}
	queueDepth.Set(0)
}

// process applies one ticket.
// Called only from Run() goroutine - single-writer guarantee.
func (e *Engine) process(ctx context.Context, t *ticket) {
	switch t.kind {
	case ticketSubmission:
		t.reply <- e.transition(ctx, t)
	case ticketControl:
		e.reconfigure(t.control)
		t.reply <- result{}
	default:
		t.reply <- result{err: fmt.Errorf("unknown ticket kind: %d", t.kind)}
	}
}

func (e *Engine) transition(ctx context.Context, t *ticket) result {
	e.mu.Lock()
	now := time.Now
	if e.machine.Now != nil {
		now = e.machine.Now
	}
	// The record and any state it sets share one timestamp; Replay
	// depends on it.
	in := t.input
	in.At = now().UTC()
	out := e.machine.Apply(in)
	var snapshot *game.State
	if e.checkpointer != nil {
		snapshot = e.machine.State().Clone()
	}
	e.mu.Unlock()

	rec := TransitionRecord{
		ID:          e.ids.Generate(),
		Seq:         e.clock.Next(),
		At:          in.At,
		Participant: t.input.Participant,
		ChannelRef:  t.submission.ChannelRef,
		Expression:  t.input.Expression,
		Value:       t.input.Value,
		Complexity:  t.input.Complexity,
		Accepted:    out.Accepted,
		Reason:      out.Reason,
		Count:       out.Count,
		Reaction:    out.Reaction,
	}

	if out.Accepted {
		submissionsTotal.WithLabelValues("accepted").Inc()
	} else {
		submissionsTotal.WithLabelValues("rejected").Inc()
		rejectionsTotal.WithLabelValues(string(out.Reason)).Inc()
	}
	currentCount.Set(float64(out.Count))

	slog.Debug("transition applied",
		"seq", rec.Seq,
		"participant", rec.Participant,
		"value", rec.Value,
		"accepted", out.Accepted,
		"reason", out.Reason,
		"count", out.Count,
	)

	if e.checkpointer != nil {
		// The transition already happened; a caller giving up must not
		// abort its checkpoint.
		if err := e.checkpointer.Checkpoint(context.WithoutCancel(ctx), rec, snapshot); err != nil {
			checkpointFailures.Inc()
			slog.Error("checkpoint failed", "error", NewCheckpointError(rec.Seq, err))
		}
	}

	return result{outcome: &out}
}

func (e *Engine) reconfigure(c *control) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if c.table != nil {
		e.machine.Table = *c.table
	}
	if c.policy != "" {
		e.machine.Policy = c.policy
	}
	slog.Info("engine reconfigured", "policy", e.machine.Policy, "special_milestones", len(e.machine.Table.Special))
}
