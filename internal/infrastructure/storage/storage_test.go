package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"astrodash/internal/application/port"
	"astrodash/internal/domain/model"
)

func pnl(v float64) *float64 { return &v }

func TestMemoryBackendQuerySignals(t *testing.T) {
	m := NewMemoryBackend()
	m.AddSignals("alice",
		model.Signal{ID: 1, Symbol: "BTC/USDT", PnL: pnl(3)},
		model.Signal{ID: 3, Symbol: "BTC/USDT"},
		model.Signal{ID: 2, Symbol: "BTC/USDT", PnL: pnl(-1)},
	)
	m.AddSignals("bob", model.Signal{ID: 9})

	ctx := context.Background()
	tenant := model.Tenant{ID: "alice"}

	all := m.QuerySignals(ctx, tenant, 10, false)
	if len(all.Value) != 3 || all.Value[0].ID != 3 || all.Value[2].ID != 1 {
		t.Fatalf("expected ids 3,2,1, got %+v", all.Value)
	}

	closedOnly := m.QuerySignals(ctx, tenant, 1, true)
	if len(closedOnly.Value) != 1 || closedOnly.Value[0].ID != 2 {
		t.Errorf("expected newest closed signal (id 2), got %+v", closedOnly.Value)
	}

	tenants := m.ListTenants(ctx)
	if len(tenants.Value) != 2 || tenants.Value[0] != "alice" {
		t.Errorf("expected [alice bob], got %v", tenants.Value)
	}
}

func TestMemoryBackendFailureIsAbsorbed(t *testing.T) {
	m := NewMemoryBackend()
	m.Fail = errors.New("connection refused")
	ctx := context.Background()

	sig := m.QuerySignals(ctx, model.Tenant{ID: "alice"}, 10, false)
	if !sig.Failed() || sig.Value == nil || len(sig.Value) != 0 {
		t.Errorf("expected empty default with failure, got %#v / %v", sig.Value, sig.Err)
	}

	pos := LoadJSON(ctx, m, model.Tenant{ID: "alice"}, port.StatePositions, []model.Position{})
	if !pos.Failed() || len(pos.Value) != 0 {
		t.Errorf("expected empty positions with failure, got %#v / %v", pos.Value, pos.Err)
	}
}

func TestLoadJSONDefaults(t *testing.T) {
	m := NewMemoryBackend()
	ctx := context.Background()
	tenant := model.Tenant{ID: "alice"}

	eq := LoadJSON(ctx, m, tenant, port.StateEquity, model.Equity{})
	if eq.Failed() || eq.Value == nil || len(eq.Value) != 0 {
		t.Fatalf("expected empty equity without failure, got %v / %v", eq.Value, eq.Err)
	}

	_ = m.SaveState(ctx, tenant, port.StateEquity, []byte(`[1,2`))
	bad := LoadJSON(ctx, m, tenant, port.StateEquity, model.Equity{})
	if !bad.Failed() {
		t.Fatalf("expected decode failure to be recorded")
	}
	if !strings.Contains(bad.Err.Error(), "decode equity") {
		t.Errorf("unexpected error: %v", bad.Err)
	}
}

func TestSaveJSONRoundTrip(t *testing.T) {
	m := NewMemoryBackend()
	ctx := context.Background()
	tenant := model.Tenant{ID: "alice"}

	if err := SaveJSON(ctx, m, tenant, port.StateEquity, model.Equity{"peak_equity": 1250.5, "mode": "paper"}); err != nil {
		t.Fatalf("SaveJSON failed: %v", err)
	}
	got := LoadJSON(ctx, m, tenant, port.StateEquity, model.Equity{})
	if got.Value.PeakEquity() != 1250.5 {
		t.Errorf("expected peak_equity 1250.5, got %v", got.Value.PeakEquity())
	}
	if got.Value["mode"] != "paper" {
		t.Errorf("expected passthrough key, got %v", got.Value["mode"])
	}
}

func TestSelectListAliases(t *testing.T) {
	got := SelectList(map[string]string{"nakshatra": "indicator"})
	if !strings.Contains(got, "indicator AS nakshatra") {
		t.Errorf("expected alias in select list, got %s", got)
	}
	if !strings.HasPrefix(got, "id, timestamp, symbol") {
		t.Errorf("unexpected column order: %s", got)
	}
	if strings.Contains(SelectList(nil), " AS ") {
		t.Errorf("no aliases expected without a map")
	}
}

func TestStateKey(t *testing.T) {
	if got := StateKey("alice", port.StatePositions); got != "alice:positions" {
		t.Errorf("unexpected key %q", got)
	}
}
