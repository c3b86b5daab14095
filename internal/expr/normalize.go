package expr

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	sqrtLiteral = regexp.MustCompile(`√(\d+(?:\.\d+)?)`)
	sqrtParen   = regexp.MustCompile(`√\(`)
	cbrtLiteral = regexp.MustCompile(`∛(\d+(?:\.\d+)?)`)
	cbrtParen   = regexp.MustCompile(`∛\(`)
	factorialOp = regexp.MustCompile(`(\d+)!`)
	lineComment = regexp.MustCompile(`(?m)[ \t]*(//|#).*$`)

	// expressionChars matches text made only of expression characters.
	expressionChars = regexp.MustCompile(`^[\d+\-*/^√∛().\s!]+$`)

	// functionCall matches text containing a recognized function call.
	functionCall = regexp.MustCompile(`\b(sqrt|cbrt|factorial)\(.*\)`)
)

// StripComments removes trailing "//" and "#" comments from every line and
// trims surrounding whitespace.
func StripComments(text string) string {
	return strings.TrimSpace(lineComment.ReplaceAllString(text, ""))
}

// Allowed reports whether text looks like an expression worth evaluating.
// text should already have comments stripped.
func Allowed(text string) bool {
	if text == "" {
		return false
	}
	return expressionChars.MatchString(text) || functionCall.MatchString(text)
}

// Normalize rewrites surface syntax into canonical function-call form:
//
//	√9      -> sqrt(9)
//	√(7+2)  -> sqrt(7+2)
//	∛27     -> cbrt(27)
//	5!      -> factorial(5)
//
// Trailing line comments are dropped. Normalize never fails and
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	s := norm.NFC.String(text)

	s = sqrtLiteral.ReplaceAllString(s, "sqrt($1)")
	s = sqrtParen.ReplaceAllString(s, "sqrt(")
	s = cbrtLiteral.ReplaceAllString(s, "cbrt($1)")
	s = cbrtParen.ReplaceAllString(s, "cbrt(")

	s = factorialOp.ReplaceAllString(s, "factorial($1)")

	return StripComments(s)
}
