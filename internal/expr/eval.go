package expr

import (
	"context"
	"errors"
	"math"
	"time"
)

const (
	// DefaultTimeout bounds a single evaluation.
	DefaultTimeout = 5 * time.Second

	// DefaultMaxDepth bounds parenthesis, sign and exponent nesting.
	DefaultMaxDepth = 256

	// DefaultMaxNodes bounds the size of the expression tree.
	DefaultMaxNodes = 4096

	// DefaultMaxBytes bounds the length of text accepted for evaluation.
	DefaultMaxBytes = 4096

	// maxFactorial is the largest n whose factorial is finite in float64.
	maxFactorial = 170
)

// Evaluator evaluates normalized expressions under fixed resource bounds.
//
// Thread-safety: Evaluator is immutable after construction and safe for
// concurrent use. Every Evaluate call runs in its own goroutine.
type Evaluator struct {
	timeout  time.Duration
	maxDepth int
	maxNodes int
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithTimeout sets the wall-clock bound for one evaluation.
func WithTimeout(d time.Duration) Option {
	return func(e *Evaluator) {
		e.timeout = d
	}
}

// WithMaxDepth sets the nesting limit.
func WithMaxDepth(n int) Option {
	return func(e *Evaluator) {
		e.maxDepth = n
	}
}

// WithMaxNodes sets the tree-size budget.
func WithMaxNodes(n int) Option {
	return func(e *Evaluator) {
		e.maxNodes = n
	}
}

// NewEvaluator creates an Evaluator with default bounds.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		timeout:  DefaultTimeout,
		maxDepth: DefaultMaxDepth,
		maxNodes: DefaultMaxNodes,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Timeout returns the configured evaluation deadline.
func (e *Evaluator) Timeout() time.Duration {
	return e.timeout
}

type evalResult struct {
	value float64
	err   error
}

// Evaluate parses and evaluates a normalized expression and rounds the
// result half-up to the nearest integer.
//
// Returns an *Error with ErrCodeTimeout when the deadline passes, even if
// the worker goroutine is still running; the worker observes the same
// context and stops at its next node.
func (e *Evaluator) Evaluate(ctx context.Context, normalized string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan evalResult, 1)
	go func() {
		v, err := e.evaluate(ctx, normalized)
		done <- evalResult{value: v, err: err}
	}()

	var res evalResult
	select {
	case res = <-done:
	case <-ctx.Done():
		return 0, contextError(ctx, e.timeout)
	}
	if res.err != nil {
		return 0, res.err
	}
	return round(res.value)
}

// EvaluateFloat returns the unrounded value. It applies the same bounds as
// Evaluate but runs on the caller's goroutine.
func (e *Evaluator) EvaluateFloat(ctx context.Context, normalized string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.evaluate(ctx, normalized)
}

func (e *Evaluator) evaluate(ctx context.Context, normalized string) (float64, error) {
	tree, err := parse(normalized, e.maxDepth, e.maxNodes)
	if err != nil {
		return 0, err
	}
	w := &walker{ctx: ctx, timeout: e.timeout}
	return w.eval(tree)
}

func contextError(ctx context.Context, timeout time.Duration) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return timeoutError("evaluation exceeded %s", timeout)
	}
	return ctx.Err()
}

// round converts a float result to an integer the way the game expects:
// halves round toward positive infinity.
func round(v float64) (int64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, domainError("result is not a finite number")
	}
	r := math.Floor(v + 0.5)
	if r >= math.MaxInt64 || r < math.MinInt64 {
		return 0, domainError("result %g is out of range", v)
	}
	return int64(r), nil
}

type walker struct {
	ctx     context.Context
	timeout time.Duration
}

func (w *walker) eval(n node) (float64, error) {
	if w.ctx.Err() != nil {
		return 0, contextError(w.ctx, w.timeout)
	}

	switch n := n.(type) {
	case *numberNode:
		return n.value, nil

	case *unaryNode:
		v, err := w.eval(n.operand)
		if err != nil {
			return 0, err
		}
		if n.op == tokMinus {
			return -v, nil
		}
		return v, nil

	case *binaryNode:
		l, err := w.eval(n.left)
		if err != nil {
			return 0, err
		}
		r, err := w.eval(n.right)
		if err != nil {
			return 0, err
		}
		return binary(n.op, l, r)

	case *callNode:
		arg, err := w.eval(n.arg)
		if err != nil {
			return 0, err
		}
		return call(n.fn, arg)
	}

	return 0, parseError(n.pos(), "unsupported expression")
}

func binary(op tokenKind, l, r float64) (float64, error) {
	switch op {
	case tokPlus:
		return l + r, nil
	case tokMinus:
		return l - r, nil
	case tokStar:
		return l * r, nil
	case tokSlash:
		if r == 0 {
			return 0, domainError("division by zero")
		}
		return l / r, nil
	case tokCaret:
		v := math.Pow(l, r)
		if math.IsNaN(v) {
			return 0, domainError("%g^%g is not a real number", l, r)
		}
		return v, nil
	}
	return 0, domainError("unknown operator %s", op)
}

func call(fn string, arg float64) (float64, error) {
	switch fn {
	case "sqrt":
		if arg < 0 {
			return 0, domainError("sqrt of negative number %g", arg)
		}
		return math.Sqrt(arg), nil
	case "cbrt":
		return math.Cbrt(arg), nil
	case "factorial":
		return Factorial(arg)
	}
	return 0, domainError("unknown function %q", fn)
}

// Factorial returns n! for non-negative integers. Values above 170
// overflow float64 and return +Inf without iterating.
func Factorial(n float64) (float64, error) {
	if math.IsNaN(n) || n < 0 {
		return 0, domainError("factorial is not defined for %g", n)
	}
	if n != math.Trunc(n) {
		return 0, domainError("factorial is only defined for integers, got %g", n)
	}
	if n > maxFactorial {
		return math.Inf(1), nil
	}
	result := 1.0
	for i := 2.0; i <= n; i++ {
		result *= i
	}
	return result, nil
}
