// Package orcherr defines the closed set of error kinds the orchestrator
// distinguishes between, replacing the scattered exception handling of
// the source pipeline with a single tagged error type threaded through
// every component boundary.
package orcherr

import (
	"errors"
	"fmt"
)

// Kind is a closed taxonomy. Do not add values without updating every
// switch that ranges over Kind (grep for "case orcherr.Kind").
type Kind string

const (
	OverBudget        Kind = "OVER_BUDGET"
	ProviderTransient  Kind = "PROVIDER_TRANSIENT"
	ProviderPermanent  Kind = "PROVIDER_PERMANENT"
	CredentialMissing  Kind = "CREDENTIAL_MISSING"
	PollTimeout        Kind = "POLL_TIMEOUT"
	InputInvalid       Kind = "INPUT_INVALID"
	JournalIO          Kind = "JOURNAL_IO"
	Cancelled          Kind = "CANCELLED"
)

// ExitCode maps a terminal run outcome to the closed process exit-code
// set from the external interfaces contract.
func (k Kind) ExitCode() int {
	switch k {
	case OverBudget:
		return 2
	case Cancelled:
		return 130
	case "":
		return 0
	default:
		return 1
	}
}

// Retryable reports whether a failure of this kind should be retried by
// the caller (PROVIDER_TRANSIENT, and POLL_TIMEOUT on its first
// occurrence — callers track the "first occurrence" part themselves).
func (k Kind) Retryable() bool {
	return k == ProviderTransient || k == PollTimeout
}

// Error is the orchestrator's single error type. Components wrap
// underlying errors with a Kind so callers can branch on taxonomy
// instead of string-sniffing.
type Error struct {
	Kind    Kind
	Op      string // component/operation that produced the error, e.g. "budget.reserve"
	Err     error
	Details map[string]any
}

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithDetail attaches a diagnostic field (stage, provider, last prompt,
// payload excerpt) for the Run Journal's failure-detail requirement.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error; otherwise returns the empty Kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
