package port

import (
	"context"

	"astrodash/internal/domain/model"
)

// StateKey names one of the small per-tenant state blobs.
type StateKey string

const (
	StatePositions StateKey = "positions"
	StateEquity    StateKey = "equity"
)

// Result carries a read that never fails from the caller's point of view.
// When Err is set the adapter absorbed a storage failure and Value holds the
// documented default for the operation.
type Result[T any] struct {
	Value T
	Err   error
}

func Ok[T any](v T) Result[T] { return Result[T]{Value: v} }

// Absorbed records a storage failure and falls back to def.
func Absorbed[T any](def T, err error) Result[T] { return Result[T]{Value: def, Err: err} }

func (r Result[T]) Failed() bool { return r.Err != nil }

// Backend is the storage contract implemented once per persistence mode.
// Implementations normalize column names so every backend yields identical
// model values, and never return low-level storage errors from reads.
type Backend interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// ListTenants returns tenant ids found in the store itself. File mode has none.
	ListTenants(ctx context.Context) Result[[]string]

	// QuerySignals returns at most limit signals, newest first. closedOnly keeps
	// only signals with a pnl. A store that does not exist yet yields an empty slice.
	QuerySignals(ctx context.Context, tenant model.Tenant, limit int, closedOnly bool) Result[[]model.Signal]

	// LoadState returns the raw blob stored under key, or nil when there is none.
	LoadState(ctx context.Context, tenant model.Tenant, key StateKey) Result[[]byte]

	// SaveState replaces the blob stored under key.
	SaveState(ctx context.Context, tenant model.Tenant, key StateKey, value []byte) error

	Close() error
}
