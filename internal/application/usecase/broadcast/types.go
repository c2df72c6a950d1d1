package broadcast

import (
	"context"
	"encoding/json"
	"time"

	"astrodash/internal/application/port"
	"astrodash/internal/domain/model"
)

const (
	DefaultInterval    = 30 * time.Second
	DefaultSendTimeout = 10 * time.Second

	MessageTypeUpdate = "update"
)

// Snapshotter 读取单个租户的广播数据
type Snapshotter interface {
	SnapshotOf(ctx context.Context, t model.Tenant) model.TenantSnapshot
}

type HubDeps struct {
	Tenants   port.TenantDirectory
	Snapshots Snapshotter
	// 可选
	Mirror      port.Mirror
	Interval    time.Duration
	SendTimeout time.Duration
}

// Update 每个周期推送给所有观看端的消息
type Update struct {
	Type string                     `json:"type"`
	Data map[string]json.RawMessage `json:"data"`
}

// State 是否有观看端连接
type State int

const (
	StateIdle State = iota
	StateActive
)

func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "idle"
}
