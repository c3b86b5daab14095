// Package score computes the complexity score of a submitted expression.
//
// The score is a small deterministic integer used for the per-participant
// average complexity and for the "most complicated operation" record. It
// rewards variety (distinct literals and operators, explicit root calls)
// and punishes padding: trivial operations collapse to 1 and long runs of
// literals are divided down.
//
// Scores are computed on the original text (comments stripped), never on
// the normalized form, so "√9" and "sqrt(9)" score differently.
package score

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultOperandCeiling is the literal count above which scores are
	// divided down.
	DefaultOperandCeiling = 10

	// DefaultRepeatThreshold is how many consecutive copies of the same
	// operator+operand fragment make an expression trivial.
	DefaultRepeatThreshold = 10

	// bareLiteralScore is the score of a lone number such as "7" or "5!".
	bareLiteralScore = 2

	// trivialScore is the score of an expression with a trivial operation.
	trivialScore = 1

	// maxFragmentLen bounds the fragment lengths checked for repetition.
	maxFragmentLen = 8

	// operatorRunes are the characters counted as operators.
	operatorRunes = "+-*/^√∛"
)

var (
	operatorPattern = regexp.MustCompile(`[+\-*/^√∛]`)
	literalPattern  = regexp.MustCompile(`\d+`)
	sqrtCall        = regexp.MustCompile(`sqrt\(`)
	cbrtCall        = regexp.MustCompile(`cbrt\(`)

	// zeroPower matches an exponent that is a literal zero, e.g. 2^0, (3+4)^0.
	zeroPower = regexp.MustCompile(`[\d)]\s*\^\s*0+(?:\.0*)?(?:[^\d.]|$)`)

	// zeroLeftFactor matches a literal zero on the left of '*', e.g. 0*5.
	zeroLeftFactor = regexp.MustCompile(`(?:^|[^\d.])0+\s*\*`)

	// zeroRightFactor matches a literal zero on the right of '*', e.g. 5*0.
	zeroRightFactor = regexp.MustCompile(`\*\s*0+(?:[^\d.]|$)`)
)

// Scorer computes complexity scores. The zero value is not usable; use
// New or Default.
type Scorer struct {
	// OperandCeiling is the number of literal occurrences allowed before
	// the padding penalty applies.
	OperandCeiling int

	// RepeatThreshold is the number of consecutive repeats of one fragment
	// that marks an expression as trivial.
	RepeatThreshold int
}

// Default returns a Scorer with the default ceiling and threshold.
func Default() Scorer {
	return Scorer{
		OperandCeiling:  DefaultOperandCeiling,
		RepeatThreshold: DefaultRepeatThreshold,
	}
}

// New returns a Scorer with the given operand ceiling. Non-positive values
// fall back to the default.
func New(operandCeiling int) Scorer {
	s := Default()
	if operandCeiling > 0 {
		s.OperandCeiling = operandCeiling
	}
	return s
}

// Score computes the complexity of text with the default Scorer.
func Score(text string) int {
	return Default().Score(text)
}

// Score computes the complexity of text. It never returns less than 1.
func (s Scorer) Score(text string) int {
	if s.isTrivial(text) {
		return trivialScore
	}

	operators := uniqueMatches(operatorPattern, text)
	literals := literalPattern.FindAllString(text, -1)
	uniqueLiterals := unique(literals)
	roots := len(sqrtCall.FindAllStringIndex(text, -1)) + len(cbrtCall.FindAllStringIndex(text, -1))

	if len(operators) == 0 && len(uniqueLiterals) == 1 && roots == 0 {
		return bareLiteralScore
	}

	complexity := len(uniqueLiterals) + 2*len(operators) + 2*roots

	ceiling := s.OperandCeiling
	if ceiling <= 0 {
		ceiling = DefaultOperandCeiling
	}
	if len(literals) > ceiling {
		complexity /= len(literals) - ceiling + 1
	}

	return max(complexity, 1)
}

func (s Scorer) isTrivial(text string) bool {
	if zeroPower.MatchString(text) || zeroLeftFactor.MatchString(text) || zeroRightFactor.MatchString(text) {
		return true
	}
	threshold := s.RepeatThreshold
	if threshold <= 0 {
		threshold = DefaultRepeatThreshold
	}
	return hasRepeatedFragment(text, threshold)
}

// hasRepeatedFragment reports whether some fragment containing both an
// operator and a digit repeats back to back at least threshold times,
// e.g. "+0*1+0*1+0*1...".
//
// For each fragment size the scan tracks the run of positions where a
// byte equals the byte size positions later. Such a run is a region with
// period size, and every size-long window inside it holds the same bytes,
// so one window decides the operator and digit test. The scan is linear in
// len(text).
func hasRepeatedFragment(text string, threshold int) bool {
	compact := strings.Join(strings.Fields(text), "")
	n := len(compact)
	if n < 2*threshold {
		return false
	}

	// ops[i] and digits[i] count operator and digit bytes in compact[:i].
	isOp := make([]bool, n)
	for i, r := range compact {
		if strings.ContainsRune(operatorRunes, r) {
			for j := i; j < i+utf8.RuneLen(r); j++ {
				isOp[j] = true
			}
		}
	}
	ops := make([]int, n+1)
	digits := make([]int, n+1)
	for i := 0; i < n; i++ {
		ops[i+1], digits[i+1] = ops[i], digits[i]
		if isOp[i] {
			ops[i+1]++
		}
		if c := compact[i]; c >= '0' && c <= '9' {
			digits[i+1]++
		}
	}

	for size := 2; size <= maxFragmentLen; size++ {
		span := size * threshold
		if span > n {
			break
		}
		run := 0
		for i := 0; i+size < n; i++ {
			if compact[i] != compact[i+size] {
				run = 0
				continue
			}
			run++
			if run+size < span {
				continue
			}
			from, to := i+1-run, i+1-run+size
			if ops[to] > ops[from] && digits[to] > digits[from] {
				return true
			}
		}
	}
	return false
}

func uniqueMatches(re *regexp.Regexp, text string) map[string]struct{} {
	return unique(re.FindAllString(text, -1))
}

func unique(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}
