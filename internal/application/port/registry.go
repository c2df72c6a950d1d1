package port

import (
	"context"

	"astrodash/internal/domain/model"
)

// TenantDirectory resolves tenant ids to their storage location.
type TenantDirectory interface {
	// Resolve fails with apperr.ErrNotFound for unknown ids.
	Resolve(ctx context.Context, id string) (model.Tenant, error)
	// List returns every known tenant: declared ones first, then discovered ones.
	List(ctx context.Context) []model.Tenant
}
