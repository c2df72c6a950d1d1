package container

import (
	"context"
	"path/filepath"
	"testing"

	"astrodash/internal/application/service"
	"astrodash/internal/domain/model"
	"astrodash/internal/infrastructure/storage"
)

func TestContainerReusesServices(t *testing.T) {
	backend := storage.NewMemoryBackend()
	reg := service.NewTenantRegistry(filepath.Join(t.TempDir(), "users.json"), "/srv/bot", backend)
	c := New(backend, reg)
	defer c.Close()

	if c.Aggregator() != c.Aggregator() {
		t.Error("expected the same aggregator on every call")
	}
	if c.Ledger() != c.Ledger() {
		t.Error("expected the same ledger on every call")
	}
	if c.Backend() != backend || c.Registry() != reg {
		t.Error("accessors should return what was passed in")
	}
}

func TestContainerServiceWorkflow(t *testing.T) {
	backend := storage.NewMemoryBackend()
	reg := service.NewTenantRegistry("", "/srv/bot", backend)
	c := New(backend, reg)
	defer c.Close()

	ctx := context.Background()
	backend.AddSignals(service.DefaultTenantID, model.Signal{ID: 1, Symbol: "BTC/USDT"})

	if _, err := c.Ledger().Open(ctx, service.DefaultTenantID, service.OpenRequest{Side: "BUY", Entry: 100, StopLoss: 90, Notional: 50}); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	snap, err := c.Aggregator().Snapshot(ctx, service.DefaultTenantID)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(snap.Positions) != 1 || snap.Positions[0].Risk != 5 {
		t.Errorf("unexpected positions: %+v", snap.Positions)
	}
	if snap.LatestSignal == nil || snap.LatestSignal.Symbol != "BTC/USDT" {
		t.Errorf("unexpected latest signal: %+v", snap.LatestSignal)
	}
}
