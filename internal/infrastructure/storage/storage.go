package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"astrodash/internal/application/port"
	"astrodash/internal/domain/model"
)

// DefaultSignalLimit limit 不为正数时使用
const DefaultSignalLimit = 100

// LoadJSON 将 key 下的数据解码为 T
// 数据不存在时返回 def；读取或解码失败时返回 def 并在 Err 中记录失败原因
func LoadJSON[T any](ctx context.Context, b port.Backend, tenant model.Tenant, key port.StateKey, def T) port.Result[T] {
	raw := b.LoadState(ctx, tenant, key)
	if raw.Failed() {
		return port.Absorbed(def, raw.Err)
	}
	if len(raw.Value) == 0 {
		return port.Ok(def)
	}
	var v T
	if err := json.Unmarshal(raw.Value, &v); err != nil {
		return port.Absorbed(def, fmt.Errorf("decode %s: %w", key, err))
	}
	return port.Ok(v)
}

// SaveJSON 编码 v 并保存到 key
func SaveJSON(ctx context.Context, b port.Backend, tenant model.Tenant, key port.StateKey, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return b.SaveState(ctx, tenant, key, raw)
}

// MemoryBackend 内存后端，用于测试和没有机器人时的本地运行
type MemoryBackend struct {
	mu      sync.RWMutex
	signals map[string][]model.Signal
	state   map[string][]byte

	// 设置后所有操作都按存储不可达处理
	Fail error
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		signals: make(map[string][]model.Signal),
		state:   make(map[string][]byte),
	}
}

func (m *MemoryBackend) Name() string { return "memory" }

// AddSignals 模拟机器人写入信号
func (m *MemoryBackend) AddSignals(tenantID string, signals ...model.Signal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals[tenantID] = append(m.signals[tenantID], signals...)
}

func (m *MemoryBackend) ListTenants(ctx context.Context) port.Result[[]string] {
	if m.Fail != nil {
		return port.Absorbed([]string{}, m.Fail)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.signals))
	for id := range m.signals {
		out = append(out, id)
	}
	sort.Strings(out)
	return port.Ok(out)
}

func (m *MemoryBackend) QuerySignals(ctx context.Context, tenant model.Tenant, limit int, closedOnly bool) port.Result[[]model.Signal] {
	if m.Fail != nil {
		return port.Absorbed([]model.Signal{}, m.Fail)
	}
	if limit <= 0 {
		limit = DefaultSignalLimit
	}

	m.mu.RLock()
	all := make([]model.Signal, len(m.signals[tenant.ID]))
	copy(all, m.signals[tenant.ID])
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	out := make([]model.Signal, 0, min(limit, len(all)))
	for _, s := range all {
		if closedOnly && !s.Closed() {
			continue
		}
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return port.Ok(out)
}

func (m *MemoryBackend) LoadState(ctx context.Context, tenant model.Tenant, key port.StateKey) port.Result[[]byte] {
	if m.Fail != nil {
		return port.Absorbed[[]byte](nil, m.Fail)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.state[StateKey(tenant.ID, key)]
	if !ok {
		return port.Ok[[]byte](nil)
	}
	out := make([]byte, len(v))
	copy(out, v)
	return port.Ok(out)
}

func (m *MemoryBackend) SaveState(ctx context.Context, tenant model.Tenant, key port.StateKey, value []byte) error {
	if m.Fail != nil {
		return m.Fail
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.state[StateKey(tenant.ID, key)] = v
	return nil
}

func (m *MemoryBackend) Close() error { return nil }

// StateKey 键值存储使用的组合键 "{tenant}:{data-type}"
func StateKey(tenantID string, key port.StateKey) string {
	return tenantID + ":" + string(key)
}

var _ port.Backend = (*MemoryBackend)(nil)
