package redis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"astrodash/internal/application/port"
)

// Publisher mirrors broadcast updates into redis: the latest snapshot of every
// tenant in one hash, and the full update on a pub/sub channel.
type Publisher struct {
	rdb       *redis.Client
	ttl       time.Duration
	keyLatest string // prefix + ":latest"
	channel   string
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, channel string) *Publisher {
	if strings.TrimSpace(prefix) == "" {
		prefix = "astrodash"
	}
	if strings.TrimSpace(channel) == "" {
		channel = prefix + ":updates"
	}
	return &Publisher{
		rdb:       rdb,
		ttl:       ttl,
		keyLatest: prefix + ":latest",
		channel:   channel,
	}
}

func (p *Publisher) Publish(ctx context.Context, msg []byte, tenants map[string]json.RawMessage) error {
	pipe := p.rdb.Pipeline()
	if len(tenants) > 0 {
		// field = tenant id -> snapshot json
		fields := make(map[string]any, len(tenants))
		for id, raw := range tenants {
			fields[id] = string(raw)
		}
		pipe.HSet(ctx, p.keyLatest, fields)
		if p.ttl > 0 {
			pipe.Expire(ctx, p.keyLatest, p.ttl)
		}
	}
	pipe.Publish(ctx, p.channel, string(msg))
	_, err := pipe.Exec(ctx)
	return err
}

func (p *Publisher) Channel() string { return p.channel }

var _ port.Mirror = (*Publisher)(nil)
