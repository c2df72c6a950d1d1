package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"astrodash/internal/application/apperr"
	"astrodash/internal/application/port"
	"astrodash/internal/domain/model"
	"astrodash/internal/infrastructure/metrics"
	"astrodash/internal/infrastructure/storage"
)

// OpenRequest 手动开模拟仓请求
type OpenRequest struct {
	Side     string  `json:"side"`
	Entry    float64 `json:"entry"`
	StopLoss float64 `json:"sl"`
	Target   float64 `json:"tp"`
	Notional float64 `json:"notional"`
	Label    string  `json:"signal"`
}

func (r OpenRequest) validate() error {
	switch strings.ToUpper(strings.TrimSpace(r.Side)) {
	case model.SideBuy, model.SideSell:
	default:
		return fmt.Errorf("side must be BUY or SELL, got %q", r.Side)
	}
	fields := []struct {
		name string
		v    float64
	}{{"entry", r.Entry}, {"sl", r.StopLoss}, {"tp", r.Target}, {"notional", r.Notional}}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return fmt.Errorf("%s must be a non-negative number", f.name)
		}
	}
	if r.Entry == 0 {
		return fmt.Errorf("entry must be positive")
	}
	if r.Notional == 0 {
		return fmt.Errorf("notional must be positive")
	}
	return nil
}

// PositionLedger 模拟持仓的开仓与平仓
// 每次修改都读出整个列表、修改后整体写回；同一租户并发写入可能丢失更新
type PositionLedger struct {
	tenants port.TenantDirectory
	backend port.Backend
	now     func() time.Time
}

func NewPositionLedger(tenants port.TenantDirectory, backend port.Backend) *PositionLedger {
	return &PositionLedger{tenants: tenants, backend: backend, now: time.Now}
}

func (l *PositionLedger) Open(ctx context.Context, tenantID string, req OpenRequest) (model.Position, error) {
	t, err := l.tenants.Resolve(ctx, tenantID)
	if err != nil {
		return model.Position{}, err
	}
	if err := req.validate(); err != nil {
		metrics.LedgerMutations.WithLabelValues("open", "rejected").Inc()
		return model.Position{}, fmt.Errorf("open position: %w: %v", apperr.ErrInvalidArgument, err)
	}

	current, err := l.load(ctx, t)
	if err != nil {
		return model.Position{}, err
	}

	label := strings.TrimSpace(req.Label)
	if label == "" {
		label = model.DefaultPositionLabel
	}
	pos := model.Position{
		Side:     strings.ToUpper(strings.TrimSpace(req.Side)),
		Label:    label,
		Entry:    req.Entry,
		StopLoss: req.StopLoss,
		Target:   req.Target,
		Notional: req.Notional,
		Risk:     model.PositionRisk(req.Entry, req.StopLoss, req.Notional),
		Age:      0,
		OpenedAt: l.now().UTC().Truncate(time.Minute).Format(model.OpenedAtLayout),
		Paper:    true,
	}

	entry, err := json.Marshal(pos)
	if err != nil {
		return model.Position{}, fmt.Errorf("encode position: %w", err)
	}
	next := make([]json.RawMessage, 0, len(current)+1)
	next = append(next, current...)
	next = append(next, entry)
	if err := l.save(ctx, t, next); err != nil {
		return model.Position{}, err
	}

	metrics.LedgerMutations.WithLabelValues("open", "ok").Inc()
	log.Info().
		Str("tenant", t.ID).
		Str("side", pos.Side).
		Float64("entry", pos.Entry).
		Float64("risk", pos.Risk).
		Msg("paper position opened")
	return pos, nil
}

// Close 移除 index 处的持仓并返回
func (l *PositionLedger) Close(ctx context.Context, tenantID string, index int) (model.Position, error) {
	t, err := l.tenants.Resolve(ctx, tenantID)
	if err != nil {
		return model.Position{}, err
	}

	current, err := l.load(ctx, t)
	if err != nil {
		return model.Position{}, err
	}
	if index < 0 || index >= len(current) {
		metrics.LedgerMutations.WithLabelValues("close", "rejected").Inc()
		return model.Position{}, fmt.Errorf("close position: %w: index %d out of range [0,%d)",
			apperr.ErrInvalidArgument, index, len(current))
	}

	var removed model.Position
	if err := json.Unmarshal(current[index], &removed); err != nil {
		return model.Position{}, fmt.Errorf("decode position %d for %s: %w: %w", index, t.ID, apperr.ErrStorage, err)
	}
	next := make([]json.RawMessage, 0, len(current)-1)
	next = append(next, current[:index]...)
	next = append(next, current[index+1:]...)
	if err := l.save(ctx, t, next); err != nil {
		return model.Position{}, err
	}

	metrics.LedgerMutations.WithLabelValues("close", "ok").Inc()
	log.Info().Str("tenant", t.ID).Int("index", index).Str("side", removed.Side).Msg("paper position closed")
	return removed, nil
}

// load 返回未解码的原始条目，未改动的持仓按原字节写回
// 读取失败时返回错误而不是默认空列表，否则写回会清空已有持仓
func (l *PositionLedger) load(ctx context.Context, t model.Tenant) ([]json.RawMessage, error) {
	res := storage.LoadJSON(ctx, l.backend, t, port.StatePositions, []json.RawMessage{})
	if res.Failed() {
		metrics.StorageAbsorbed.WithLabelValues(l.backend.Name(), "load_positions").Inc()
		return nil, fmt.Errorf("load positions for %s: %w: %w", t.ID, apperr.ErrStorage, res.Err)
	}
	return res.Value, nil
}

func (l *PositionLedger) save(ctx context.Context, t model.Tenant, positions []json.RawMessage) error {
	if err := storage.SaveJSON(ctx, l.backend, t, port.StatePositions, positions); err != nil {
		metrics.LedgerMutations.WithLabelValues("save", "failed").Inc()
		return fmt.Errorf("save positions for %s: %w: %w", t.ID, apperr.ErrStorage, err)
	}
	return nil
}
