// Package apperr defines the error taxonomy shared by the query compiler,
// the entry orchestrator and the tool surface.
//
// Every failure carries a Kind. Callers branch on the kind with errors.Is:
//
//	if errors.Is(err, apperr.EntryNotFound) { ... }
//
// The tool surface converts an *Error into a structured failure result;
// nothing below it formats errors for agents.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind string

const (
	// InvalidArgument means required input was missing or malformed before any network call.
	InvalidArgument Kind = "InvalidArgument"

	// Filter tree shape violations, detected client-side.
	InvalidFilterSyntax Kind = "InvalidFilterSyntax"
	AmbiguousFilterNode Kind = "AmbiguousFilterNode"
	InvalidOperandArity Kind = "InvalidOperandArity"
	InvalidOperandType  Kind = "InvalidOperandType"

	// Aggregation spec violations.
	UnknownAggregationFunction Kind = "UnknownAggregationFunction"
	InvalidAggregationSyntax   Kind = "InvalidAggregationSyntax"

	// DeletionNotConfirmed means the safety gate tripped and no request was sent.
	DeletionNotConfirmed Kind = "DeletionNotConfirmed"

	// Backend-reported 4xx translated from status and body.
	EntryNotFound    Kind = "EntryNotFound"
	ValidationFailed Kind = "ValidationFailed"

	// GatewayError is any other transport or backend failure.
	GatewayError Kind = "GatewayError"
)

// Error implements error so a bare Kind can be used as an errors.Is target.
func (k Kind) Error() string { return string(k) }

// ClientSide reports whether the kind is detected before any network call.
func (k Kind) ClientSide() bool {
	switch k {
	case EntryNotFound, ValidationFailed, GatewayError:
		return false
	default:
		return true
	}
}

// Error is a classified failure. Op and Resource are filled in by the
// orchestrator; the compilers leave them empty.
type Error struct {
	Kind     Kind
	Op       string
	Resource string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		if e.Resource != "" {
			b.WriteString(" ")
			b.WriteString(e.Resource)
		}
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches a bare Kind target against the error's kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// New creates an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind around err.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or GatewayError for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return GatewayError
}

// WithContext returns a copy of err annotated with the operation and
// resource. Unclassified errors become GatewayError.
func WithContext(err error, op, resource string) *Error {
	var e *Error
	if errors.As(err, &e) {
		c := *e
		c.Op = op
		c.Resource = resource
		return &c
	}
	return &Error{Kind: KindOf(err), Op: op, Resource: resource, Err: err}
}
