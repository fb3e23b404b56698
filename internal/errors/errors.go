// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages, so callers can decide how to present a failure
// (terminal advisory, web panel notice, log record) without parsing strings.
//
// Wrapped errors keep their kind through errors.As, and the underlying cause stays
// reachable through errors.Unwrap.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// QueryFailed indicates the store rejected or failed to execute a query.
	QueryFailed Kind = "query_failed"
	// BrokerUnreachable indicates the broker could not be contacted at all.
	BrokerUnreachable Kind = "broker_unreachable"
	// ConfigInvalid indicates a configuration value could not be used.
	ConfigInvalid Kind = "config_invalid"
	// RenderFailed indicates a chart or page could not be rendered.
	RenderFailed Kind = "render_failed"
	// SecretStore indicates the OS keychain could not be used.
	SecretStore Kind = "secret_store"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the kind of the first *E in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
