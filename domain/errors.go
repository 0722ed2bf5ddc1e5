package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so that every layer can translate it without
// parsing error strings.
type Kind string

const (
	KindPermissionDenied          Kind = "permission_denied"
	KindTransport                 Kind = "transport"
	KindUpstreamRateLimited       Kind = "upstream_rate_limited"
	KindUpstreamNotFound          Kind = "upstream_not_found"
	KindUpstreamBadRequest        Kind = "upstream_bad_request"
	KindUpstreamMalformedResponse Kind = "upstream_malformed_response"
	KindUpstream                  Kind = "upstream"
	KindSynthesisUnsupported      Kind = "synthesis_unsupported"
	KindSynthesis                 Kind = "synthesis"
	KindInvalidRequest            Kind = "invalid_request"
	KindNotConfigured             Kind = "not_configured"
	KindRelay                     Kind = "relay"
	KindUnknown                   Kind = "unknown"
)

// Error carries a Kind, the operation that failed, a user-facing message and
// the underlying cause.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	// Detail is diagnostic text from a remote party, if any.
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Detail)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, msg, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates an Error without a cause.
func NewError(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap annotates err with a kind and message. Errors that are already typed
// keep their original classification.
func Wrap(kind Kind, op, message string, err error) error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return err
	}

	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   err,
	}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindUnknown
}

// MessageOf returns the user-facing message of err, or fallback when err is
// not typed or has no message.
func MessageOf(err error, fallback string) string {
	var typed *Error
	if errors.As(err, &typed) && typed.Message != "" {
		return typed.Message
	}
	return fallback
}

// DetailOf returns the remote diagnostic attached to err, if any.
func DetailOf(err error) string {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Detail
	}
	return ""
}
