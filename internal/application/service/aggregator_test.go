package service

import (
	"context"
	"errors"
	"testing"

	"astrodash/internal/application/apperr"
	"astrodash/internal/application/port"
	"astrodash/internal/domain/model"
	"astrodash/internal/infrastructure/storage"
)

func TestAggregatorUnknownTenantIsNotFound(t *testing.T) {
	r, backend := newFixture(t)
	a := NewAggregator(r, backend)
	ctx := context.Background()

	calls := map[string]func() error{
		"signals":       func() error { _, err := a.Signals(ctx, "mallory", 10); return err },
		"trades":        func() error { _, err := a.Trades(ctx, "mallory", 10); return err },
		"positions":     func() error { _, err := a.Positions(ctx, "mallory"); return err },
		"equity":        func() error { _, err := a.Equity(ctx, "mallory"); return err },
		"stats":         func() error { _, err := a.Stats(ctx, "mallory"); return err },
		"latest_signal": func() error { _, err := a.LatestSignal(ctx, "mallory"); return err },
		"snapshot":      func() error { _, err := a.Snapshot(ctx, "mallory"); return err },
	}
	for name, call := range calls {
		if err := call(); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound, got %v", name, err)
		}
	}
}

func TestAggregatorStats(t *testing.T) {
	r, backend := newFixture(t)
	ctx := context.Background()
	alice := model.Tenant{ID: "alice"}

	backend.AddSignals("alice",
		model.Signal{ID: 1, PnL: f64(10)},
		model.Signal{ID: 2, PnL: f64(-5)},
		model.Signal{ID: 3, PnL: f64(0)},
		model.Signal{ID: 4},
	)
	_ = storage.SaveJSON(ctx, backend, alice, port.StateEquity, model.Equity{"peak_equity": 10500.0, "paper_pnl": 42.5})
	_ = storage.SaveJSON(ctx, backend, alice, port.StatePositions, []model.Position{{Side: "BUY"}, {Side: "SELL"}})

	a := NewAggregator(r, backend)
	st, err := a.Stats(ctx, "alice")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	want := model.Stats{
		TradeStats:    model.TradeStats{Trades: 3, Wins: 1, Losses: 2, WinRate: 33.3, TotalPnL: 5, AvgWin: 10, AvgLoss: -2.5},
		PeakEquity:    10500,
		PaperPnL:      42.5,
		OpenPositions: 2,
	}
	if st != want {
		t.Errorf("expected %+v, got %+v", want, st)
	}
}

func TestAggregatorReads(t *testing.T) {
	r, backend := newFixture(t)
	ctx := context.Background()
	backend.AddSignals("alice",
		model.Signal{ID: 1, Symbol: "BTC/USDT", PnL: f64(1)},
		model.Signal{ID: 2, Symbol: "ETH/USDT"},
	)
	a := NewAggregator(r, backend)

	signals, err := a.Signals(ctx, "alice", 10)
	if err != nil || len(signals) != 2 {
		t.Fatalf("expected 2 signals, got %d / %v", len(signals), err)
	}

	trades, _ := a.Trades(ctx, "alice", 10)
	if len(trades) != 1 || trades[0].ID != 1 {
		t.Errorf("expected only the closed trade, got %+v", trades)
	}

	latest, _ := a.LatestSignal(ctx, "alice")
	if latest == nil || latest.ID != 2 {
		t.Errorf("expected latest id 2, got %+v", latest)
	}

	none, err := a.LatestSignal(ctx, "bob")
	if err != nil || none != nil {
		t.Errorf("expected nil latest for bob, got %+v / %v", none, err)
	}

	positions, _ := a.Positions(ctx, "bob")
	if positions == nil || len(positions) != 0 {
		t.Errorf("expected empty non-nil positions, got %#v", positions)
	}
	eq, _ := a.Equity(ctx, "bob")
	if eq == nil || len(eq) != 0 {
		t.Errorf("expected empty non-nil equity, got %#v", eq)
	}
}

func TestAggregatorAbsorbsStorageFailures(t *testing.T) {
	r, backend := newFixture(t)
	backend.Fail = errors.New("connection reset")
	a := NewAggregator(r, backend)
	ctx := context.Background()

	signals, err := a.Signals(ctx, "alice", 10)
	if err != nil || len(signals) != 0 {
		t.Errorf("expected empty signals without error, got %v / %v", signals, err)
	}
	st, err := a.Stats(ctx, "alice")
	if err != nil {
		t.Fatalf("Stats must not fail on storage errors: %v", err)
	}
	if st != (model.Stats{}) {
		t.Errorf("expected zero stats, got %+v", st)
	}
	snap, err := a.Snapshot(ctx, "alice")
	if err != nil || snap.LatestSignal != nil || len(snap.Positions) != 0 || len(snap.Equity) != 0 {
		t.Errorf("expected empty snapshot, got %+v / %v", snap, err)
	}
}

func TestAggregatorMalformedStateReadsAsDefault(t *testing.T) {
	r, backend := newFixture(t)
	ctx := context.Background()
	_ = backend.SaveState(ctx, model.Tenant{ID: "alice"}, port.StatePositions, []byte(`{"not":"a list"}`))

	positions, err := NewAggregator(r, backend).Positions(ctx, "alice")
	if err != nil || len(positions) != 0 {
		t.Errorf("expected empty positions, got %v / %v", positions, err)
	}
}
