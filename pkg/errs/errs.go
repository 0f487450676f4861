// Package errs defines the typed error taxonomy shared across the deck
// engine so callers can branch on failure kind instead of parsing strings.
package errs

import "fmt"

// Kind classifies why an operation failed.
type Kind string

const (
	KindInvalidInput       Kind = "invalid_input"
	KindNotFound           Kind = "not_found"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindParseFailure       Kind = "parse_failure"
	KindInvariantViolation Kind = "invariant_violation"
	KindTimeout            Kind = "timeout"
	KindInternal           Kind = "internal"
)

// Error wraps an underlying cause with a Kind and a component-facing message.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error that carries an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	return e.Kind == kind
}
