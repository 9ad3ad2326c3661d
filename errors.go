package mediator

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is wrapped by ConfigurationError when a registration
// carried an unusable static configuration payload.
var ErrNotConfigured = errors.New("invalid middleware configuration")

// ConfigurationError reports a middleware that could not be constructed or
// configured for a dispatch call. It identifies the offending middleware type
// and surfaces before any middleware runs. A registered-but-unconstructable
// middleware is a configuration defect, not a compatibility mismatch, so it
// is never silently skipped.
type ConfigurationError struct {
	// Middleware is the cleaned name of the offending middleware type.
	Middleware string

	// Err is the underlying construction or configuration failure.
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("mediator: middleware %s cannot be constructed: %v", e.Middleware, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// MisuseError reports direct invocation of a chain that was built for
// inspection only. Dispatch must go through the Execute entry points, which
// supply the terminal handler; an inspection-only chain has none. This is a
// programming error meant to be caught in development, not a transient
// runtime condition.
type MisuseError struct {
	// Kind is the dispatch shape of the misused chain.
	Kind Kind
}

func (e *MisuseError) Error() string {
	switch e.Kind {
	case KindQuery:
		return "mediator: query chain was built for inspection only; dispatch queries through ExecuteQuery"
	default:
		return "mediator: command chain was built for inspection only; dispatch commands through ExecuteCommand"
	}
}
