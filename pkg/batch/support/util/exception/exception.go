// Package exception provides the error types shared by every conversion stage.
// A ConversionError carries a Kind that callers branch on with errors.Is, the
// module that raised it, and the wrapped cause.
package exception

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a ConversionError.
type Kind int

const (
	// KindUnknown is the zero value; errors of this kind are treated as fatal.
	KindUnknown Kind = iota
	// KindConfiguration covers unknown dataset tokens, malformed geometry and
	// invalid options. Surfaced immediately, never retried.
	KindConfiguration
	// KindUpstreamProtocol covers non-200 statuses, unparseable bodies, provider
	// error lists and missing discovery markers. Aborts the run by default.
	KindUpstreamProtocol
	// KindPrecondition covers an empty point list. Aborts before retrieval.
	KindPrecondition
	// KindIO covers directory creation and file write failures.
	KindIO
	// KindDataAlignment is raised when strict alignment finds source rows that
	// do not match the synthetic calendar.
	KindDataAlignment
)

// String returns the error kind name as used in logs and the run ledger.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "ConfigurationError"
	case KindUpstreamProtocol:
		return "UpstreamProtocolError"
	case KindPrecondition:
		return "PreconditionError"
	case KindIO:
		return "IOError"
	case KindDataAlignment:
		return "DataAlignmentError"
	default:
		return "UnknownError"
	}
}

// Sentinel errors, one per kind. errors.Is(err, ErrUpstreamProtocol) reports
// whether err (or anything it wraps) is a ConversionError of that kind.
var (
	ErrConfiguration    = &kindSentinel{KindConfiguration}
	ErrUpstreamProtocol = &kindSentinel{KindUpstreamProtocol}
	ErrPrecondition     = &kindSentinel{KindPrecondition}
	ErrIO               = &kindSentinel{KindIO}
	ErrDataAlignment    = &kindSentinel{KindDataAlignment}
)

type kindSentinel struct{ kind Kind }

func (s *kindSentinel) Error() string { return s.kind.String() }

// ConversionError is the error type returned by the resolver, retriever,
// transformer and emitter.
type ConversionError struct {
	// Kind is the error category.
	Kind Kind
	// Module is the component that raised the error ("resolver", "provider", ...).
	Module string
	// Message is a concise description of the failure.
	Message string
	// Err is the wrapped cause, if any.
	Err error
}

// New creates a ConversionError.
func New(kind Kind, module, message string, err error) *ConversionError {
	return &ConversionError{Kind: kind, Module: module, Message: message, Err: err}
}

// Newf creates a ConversionError with a formatted message and no cause.
func Newf(kind Kind, module, format string, a ...interface{}) *ConversionError {
	return &ConversionError{Kind: kind, Module: module, Message: fmt.Sprintf(format, a...)}
}

// Configuration creates a KindConfiguration error.
func Configuration(module, message string, err error) *ConversionError {
	return New(KindConfiguration, module, message, err)
}

// UpstreamProtocol creates a KindUpstreamProtocol error.
func UpstreamProtocol(module, message string, err error) *ConversionError {
	return New(KindUpstreamProtocol, module, message, err)
}

// Precondition creates a KindPrecondition error.
func Precondition(module, message string, err error) *ConversionError {
	return New(KindPrecondition, module, message, err)
}

// IO creates a KindIO error.
func IO(module, message string, err error) *ConversionError {
	return New(KindIO, module, message, err)
}

// DataAlignment creates a KindDataAlignment error.
func DataAlignment(module, message string, err error) *ConversionError {
	return New(KindDataAlignment, module, message, err)
}

// Error implements the error interface.
func (e *ConversionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Module, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Module, e.Kind, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels.
func (e *ConversionError) Is(target error) bool {
	if s, ok := target.(*kindSentinel); ok {
		return s.kind == e.Kind
	}
	return false
}

// KindOf returns the Kind of the first ConversionError in err's chain,
// or KindUnknown.
func KindOf(err error) Kind {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// IsFatal reports whether err must stop the whole run even when the caller
// asked to continue past failed units. Configuration and precondition errors
// invalidate every unit, and a cancelled context means the caller gave up.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch KindOf(err) {
	case KindConfiguration, KindPrecondition:
		return true
	default:
		return false
	}
}

// IsRetryable always reports false: no error category is retried.
// It exists so callers state the policy explicitly instead of guessing.
func IsRetryable(err error) bool {
	return false
}

// ExtractErrorMessage returns the Message of a ConversionError, or err.Error().
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return err.Error()
}
