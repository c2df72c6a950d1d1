package container

import (
	"astrodash/internal/application/port"
	"astrodash/internal/application/service"
)

// Container builds the application services over one backend and registry.
// Services are created on first use.
type Container struct {
	backend port.Backend
	tenants *service.TenantRegistry

	aggregator *service.Aggregator
	ledger     *service.PositionLedger
}

func New(backend port.Backend, tenants *service.TenantRegistry) *Container {
	return &Container{
		backend: backend,
		tenants: tenants,
	}
}

func (c *Container) Backend() port.Backend {
	return c.backend
}

func (c *Container) Registry() *service.TenantRegistry {
	return c.tenants
}

func (c *Container) Aggregator() *service.Aggregator {
	if c.aggregator == nil {
		c.aggregator = service.NewAggregator(c.tenants, c.backend)
	}
	return c.aggregator
}

func (c *Container) Ledger() *service.PositionLedger {
	if c.ledger == nil {
		c.ledger = service.NewPositionLedger(c.tenants, c.backend)
	}
	return c.ledger
}

func (c *Container) Close() error {
	return c.backend.Close()
}
