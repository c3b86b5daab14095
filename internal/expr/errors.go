package expr

import (
	"errors"
	"fmt"
)

// Error is returned for every evaluation failure.
//
// Callers in the game path discard the submission on any Error; the eval
// entry points surface Message to the participant.
type Error struct {
	// Code identifies the failure category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Pos is the byte offset in the normalized expression, or -1.
	Pos int
}

// ErrorCode categorizes evaluation errors.
type ErrorCode string

const (
	// ErrCodeParse indicates a malformed expression or unknown identifier.
	ErrCodeParse ErrorCode = "PARSE_ERROR"

	// ErrCodeTimeout indicates the evaluation deadline or budget was exceeded.
	ErrCodeTimeout ErrorCode = "TIMEOUT"

	// ErrCodeDomain indicates a mathematically undefined operation.
	ErrCodeDomain ErrorCode = "DOMAIN_ERROR"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("%s: %s (at %d)", e.Code, e.Message, e.Pos)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func parseError(pos int, format string, args ...any) *Error {
	return &Error{Code: ErrCodeParse, Message: fmt.Sprintf(format, args...), Pos: pos}
}

func domainError(format string, args ...any) *Error {
	return &Error{Code: ErrCodeDomain, Message: fmt.Sprintf(format, args...), Pos: -1}
}

func timeoutError(format string, args ...any) *Error {
	return &Error{Code: ErrCodeTimeout, Message: fmt.Sprintf(format, args...), Pos: -1}
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsParseError reports whether err is a parse failure.
func IsParseError(err error) bool { return hasCode(err, ErrCodeParse) }

// IsTimeout reports whether err is a deadline or budget failure.
func IsTimeout(err error) bool { return hasCode(err, ErrCodeTimeout) }

// IsDomainError reports whether err is a domain failure.
func IsDomainError(err error) bool { return hasCode(err, ErrCodeDomain) }
