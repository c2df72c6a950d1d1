package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"astrodash/internal/application/port"
	"astrodash/internal/infrastructure/metrics"
)

// Hub 持有观看端集合，按固定周期向所有观看端推送全部租户的快照
type Hub struct {
	deps HubDeps

	mu      sync.Mutex
	viewers map[string]port.Viewer
}

func NewHub(deps HubDeps) *Hub {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.SendTimeout <= 0 {
		deps.SendTimeout = DefaultSendTimeout
	}
	return &Hub{deps: deps, viewers: make(map[string]port.Viewer)}
}

// Attach 注册观看端，相同 id 会替换之前的连接
func (h *Hub) Attach(v port.Viewer) {
	h.mu.Lock()
	h.viewers[v.ID()] = v
	n := len(h.viewers)
	h.mu.Unlock()

	metrics.Viewers.Set(float64(n))
	log.Info().Str("viewer", v.ID()).Int("viewers", n).Msg("viewer attached")
}

// Detach 注销观看端，未注册的观看端直接忽略
func (h *Hub) Detach(v port.Viewer) bool {
	h.mu.Lock()
	cur, ok := h.viewers[v.ID()]
	if ok && cur == v {
		delete(h.viewers, v.ID())
	}
	n := len(h.viewers)
	h.mu.Unlock()

	if !ok || cur != v {
		return false
	}
	metrics.Viewers.Set(float64(n))
	log.Info().Str("viewer", v.ID()).Int("viewers", n).Msg("viewer detached")
	return true
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.viewers)
}

func (h *Hub) State() State {
	if h.Len() == 0 {
		return StateIdle
	}
	return StateActive
}

// Run 周期推送直到 ctx 取消，空闲时也继续运行
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.deps.Interval)
	defer ticker.Stop()

	log.Info().Dur("interval", h.deps.Interval).Msg("broadcast loop started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("broadcast loop stopped")
			return ctx.Err()
		case <-ticker.C:
			h.Tick(ctx)
		}
	}
}

// Tick 构建一次更新并发送给观看端集合的副本
// 所有发送结束后返回，结果为成功接收的观看端数量
func (h *Hub) Tick(ctx context.Context) int {
	msg, tenants, err := h.build(ctx)
	if err != nil {
		log.Error().Err(err).Msg("build broadcast update failed")
		return 0
	}
	metrics.BroadcastTicks.Inc()

	if h.deps.Mirror != nil {
		if err := h.deps.Mirror.Publish(ctx, msg, tenants); err != nil {
			log.Warn().Err(err).Msg("mirror publish failed")
		}
	}

	viewers := h.snapshot()
	if len(viewers) == 0 {
		return 0
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		delivered int
	)
	for _, v := range viewers {
		wg.Add(1)
		go func(v port.Viewer) {
			defer wg.Done()
			if h.send(ctx, v, msg) {
				mu.Lock()
				delivered++
				mu.Unlock()
			}
		}(v)
	}
	wg.Wait()

	log.Debug().Int("tenants", len(tenants)).Int("viewers", len(viewers)).Int("delivered", delivered).Msg("broadcast tick")
	return delivered
}

// Welcome 向刚连接的观看端发送当前数据
func (h *Hub) Welcome(ctx context.Context, v port.Viewer) bool {
	msg, _, err := h.build(ctx)
	if err != nil {
		log.Error().Err(err).Msg("build welcome update failed")
		return false
	}
	return h.send(ctx, v, msg)
}

// send 发送失败时注销并关闭该观看端
func (h *Hub) send(ctx context.Context, v port.Viewer, msg []byte) bool {
	sctx, cancel := context.WithTimeout(ctx, h.deps.SendTimeout)
	defer cancel()

	if err := v.Send(sctx, msg); err != nil {
		if h.Detach(v) {
			metrics.BroadcastDropped.Inc()
		}
		_ = v.Close()
		log.Warn().Err(err).Str("viewer", v.ID()).Msg("send failed, viewer dropped")
		return false
	}
	return true
}

func (h *Hub) snapshot() []port.Viewer {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]port.Viewer, 0, len(h.viewers))
	for _, v := range h.viewers {
		out = append(out, v)
	}
	return out
}

func (h *Hub) build(ctx context.Context) ([]byte, map[string]json.RawMessage, error) {
	tenants := h.deps.Tenants.List(ctx)
	data := make(map[string]json.RawMessage, len(tenants))
	for _, t := range tenants {
		raw, err := json.Marshal(h.deps.Snapshots.SnapshotOf(ctx, t))
		if err != nil {
			return nil, nil, fmt.Errorf("encode snapshot for %s: %w", t.ID, err)
		}
		data[t.ID] = raw
	}
	msg, err := json.Marshal(Update{Type: MessageTypeUpdate, Data: data})
	if err != nil {
		return nil, nil, fmt.Errorf("encode update: %w", err)
	}
	return msg, data, nil
}
