package service

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"astrodash/internal/domain/model"
	"astrodash/internal/infrastructure/storage"
)

func writeUsers(t *testing.T, tenants ...model.Tenant) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.json")
	raw, err := json.Marshal(tenants)
	if err != nil {
		t.Fatalf("marshal users: %v", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write users: %v", err)
	}
	return path
}

// newFixture returns a registry declaring alice and bob over a memory backend.
func newFixture(t *testing.T) (*TenantRegistry, *storage.MemoryBackend) {
	t.Helper()
	backend := storage.NewMemoryBackend()
	users := writeUsers(t,
		model.Tenant{ID: "alice", DisplayName: "Alice", Location: "/bots/alice"},
		model.Tenant{ID: "bob", DisplayName: "Bob", Location: "/bots/bob"},
	)
	return NewTenantRegistry(users, "/bots/default", backend), backend
}

func f64(v float64) *float64 { return &v }

func str(v string) *string { return &v }
