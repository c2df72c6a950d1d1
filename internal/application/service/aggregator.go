package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"astrodash/internal/application/port"
	"astrodash/internal/domain/model"
	domainservice "astrodash/internal/domain/service"
	"astrodash/internal/infrastructure/metrics"
	"astrodash/internal/infrastructure/storage"
)

// StatsTradeWindow Stats 统计的最近平仓交易数
const StatsTradeWindow = 500

// Aggregator 与后端无关的读服务
// 未知租户返回 apperr.ErrNotFound；存储失败只记日志并返回空值
type Aggregator struct {
	tenants port.TenantDirectory
	backend port.Backend
}

func NewAggregator(tenants port.TenantDirectory, backend port.Backend) *Aggregator {
	return &Aggregator{tenants: tenants, backend: backend}
}

func (a *Aggregator) Signals(ctx context.Context, tenantID string, limit int) ([]model.Signal, error) {
	t, err := a.tenants.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return a.signals(ctx, t, limit, false), nil
}

// Trades 只返回已平仓信号
func (a *Aggregator) Trades(ctx context.Context, tenantID string, limit int) ([]model.Signal, error) {
	t, err := a.tenants.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return a.signals(ctx, t, limit, true), nil
}

func (a *Aggregator) Positions(ctx context.Context, tenantID string) ([]model.Position, error) {
	t, err := a.tenants.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return a.positions(ctx, t), nil
}

func (a *Aggregator) Equity(ctx context.Context, tenantID string) (model.Equity, error) {
	t, err := a.tenants.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return a.equity(ctx, t), nil
}

// LatestSignal 租户还没有信号时返回 nil
func (a *Aggregator) LatestSignal(ctx context.Context, tenantID string) (*model.Signal, error) {
	t, err := a.tenants.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return a.latest(ctx, t), nil
}

// Stats 合并交易统计与实时权益、持仓数据
// 三次读取之间不保证原子性
func (a *Aggregator) Stats(ctx context.Context, tenantID string) (model.Stats, error) {
	t, err := a.tenants.Resolve(ctx, tenantID)
	if err != nil {
		return model.Stats{}, err
	}
	trades := a.signals(ctx, t, StatsTradeWindow, true)
	eq := a.equity(ctx, t)
	positions := a.positions(ctx, t)

	return model.Stats{
		TradeStats:    domainservice.ComputeStats(trades),
		PeakEquity:    eq.PeakEquity(),
		PaperPnL:      eq.PaperPnL(),
		OpenPositions: len(positions),
	}, nil
}

func (a *Aggregator) Snapshot(ctx context.Context, tenantID string) (model.TenantSnapshot, error) {
	t, err := a.tenants.Resolve(ctx, tenantID)
	if err != nil {
		return model.TenantSnapshot{}, err
	}
	return a.SnapshotOf(ctx, t), nil
}

// SnapshotOf 读取已解析租户的广播数据
func (a *Aggregator) SnapshotOf(ctx context.Context, t model.Tenant) model.TenantSnapshot {
	return model.TenantSnapshot{
		Positions:    a.positions(ctx, t),
		Equity:       a.equity(ctx, t),
		LatestSignal: a.latest(ctx, t),
	}
}

func (a *Aggregator) signals(ctx context.Context, t model.Tenant, limit int, closedOnly bool) []model.Signal {
	res := a.backend.QuerySignals(ctx, t, limit, closedOnly)
	a.absorb(t, "query_signals", res.Err)
	return res.Value
}

func (a *Aggregator) latest(ctx context.Context, t model.Tenant) *model.Signal {
	rows := a.signals(ctx, t, 1, false)
	if len(rows) == 0 {
		return nil
	}
	return &rows[0]
}

func (a *Aggregator) positions(ctx context.Context, t model.Tenant) []model.Position {
	res := loadPositions(ctx, a.backend, t)
	a.absorb(t, "load_positions", res.Err)
	return res.Value
}

func (a *Aggregator) equity(ctx context.Context, t model.Tenant) model.Equity {
	res := storage.LoadJSON(ctx, a.backend, t, port.StateEquity, model.Equity{})
	a.absorb(t, "load_equity", res.Err)
	if res.Value == nil {
		return model.Equity{}
	}
	return res.Value
}

func (a *Aggregator) absorb(t model.Tenant, op string, err error) {
	if err == nil {
		return
	}
	metrics.StorageAbsorbed.WithLabelValues(a.backend.Name(), op).Inc()
	log.Warn().Err(err).
		Str("tenant", t.ID).
		Str("backend", a.backend.Name()).
		Str("op", op).
		Msg("storage read failed, serving default")
}

func loadPositions(ctx context.Context, b port.Backend, t model.Tenant) port.Result[[]model.Position] {
	res := storage.LoadJSON(ctx, b, t, port.StatePositions, []model.Position{})
	if res.Value == nil {
		// 存储的 JSON null 会解码成 nil 切片
		res.Value = []model.Position{}
	}
	return res
}
