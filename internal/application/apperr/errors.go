// Package apperr holds the error conditions the dashboard core surfaces to its callers.
// Storage failures are not among them: adapters absorb those (see port.Result).
package apperr

import "errors"

var (
	// ErrNotFound: the tenant id is not known to the registry.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument: a mutation was rejected and state was left unchanged.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrStorage: a write could not be persisted, or a mutation refused to run on
	// top of a read that failed.
	ErrStorage = errors.New("storage unavailable")
)
