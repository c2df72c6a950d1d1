package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/rs/zerolog/log"

	"astrodash/internal/application/apperr"
	"astrodash/internal/application/port"
	"astrodash/internal/domain/model"
)

const (
	DefaultTenantID   = "default"
	DefaultTenantName = "Main Bot"
)

var tenantIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

type tenantLister interface {
	Name() string
	ListTenants(ctx context.Context) port.Result[[]string]
}

// TenantRegistry 租户注册表
// 合并 users 文件中声明的租户和共享存储中发现的租户
// users 文件每次调用都重新读取，开通新用户无需重启；自动发现由 Refresh 刷新
type TenantRegistry struct {
	usersFile     string
	defaultTenant model.Tenant
	lister        tenantLister

	mu         sync.RWMutex
	discovered []string

	// 串行化 users 文件的改写
	fileMu sync.Mutex
}

func NewTenantRegistry(usersFile, defaultBotDir string, lister tenantLister) *TenantRegistry {
	return &TenantRegistry{
		usersFile: usersFile,
		defaultTenant: model.Tenant{
			ID:          DefaultTenantID,
			DisplayName: DefaultTenantName,
			Location:    defaultBotDir,
			Color:       "#58a6ff",
		},
		lister: lister,
	}
}

// Refresh 重新加载自动发现的租户，查询失败时保留上一次的结果
func (r *TenantRegistry) Refresh(ctx context.Context) int {
	if r.lister == nil {
		return 0
	}
	res := r.lister.ListTenants(ctx)
	if res.Failed() {
		log.Warn().Err(res.Err).Str("backend", r.lister.Name()).Msg("tenant discovery failed, keeping previous set")
		r.mu.RLock()
		defer r.mu.RUnlock()
		return len(r.discovered)
	}

	ids := make([]string, 0, len(res.Value))
	for _, id := range res.Value {
		if !tenantIDPattern.MatchString(id) {
			log.Warn().Str("tenant", id).Msg("skipping discovered tenant with invalid id")
			continue
		}
		ids = append(ids, id)
	}

	r.mu.Lock()
	r.discovered = ids
	r.mu.Unlock()
	return len(ids)
}

func (r *TenantRegistry) List(ctx context.Context) []model.Tenant {
	declared := r.declared()
	seen := make(map[string]struct{}, len(declared))
	for _, t := range declared {
		seen[t.ID] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := declared
	for _, id := range r.discovered {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, model.Tenant{ID: id, DisplayName: id, Discovered: true})
	}
	return out
}

func (r *TenantRegistry) Resolve(ctx context.Context, id string) (model.Tenant, error) {
	for _, t := range r.List(ctx) {
		if t.ID == id {
			return t, nil
		}
	}
	return model.Tenant{}, fmt.Errorf("tenant %q: %w", id, apperr.ErrNotFound)
}

// Remove 从 users 文件删除该 id 的所有条目，其余条目原样写回（包括未建模的字段）
// 自动发现的租户存放在共享存储中，不能在这里删除
func (r *TenantRegistry) Remove(ctx context.Context, id string) (model.Tenant, error) {
	r.fileMu.Lock()
	defer r.fileMu.Unlock()

	var removed *model.Tenant
	for _, t := range r.declared() {
		if t.ID == id {
			removed = &t
			break
		}
	}
	if removed == nil {
		return model.Tenant{}, fmt.Errorf("tenant %q: %w", id, apperr.ErrNotFound)
	}

	entries, err := r.readUsers()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// 只有隐式的默认租户
		entries = nil
	case err != nil:
		return model.Tenant{}, fmt.Errorf("remove tenant %q: %w: %w", id, apperr.ErrStorage, err)
	}

	rest := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		if t, ok := decodeUser(e); ok && t.ID == id {
			continue
		}
		rest = append(rest, e)
	}
	if err := r.writeUsers(rest); err != nil {
		return model.Tenant{}, fmt.Errorf("remove tenant %q: %w: %w", id, apperr.ErrStorage, err)
	}

	log.Info().Str("tenant", id).Int("remaining", len(rest)).Msg("tenant removed from users file")
	return *removed, nil
}

// declared 读取 users 文件，文件不可用时只返回默认租户
func (r *TenantRegistry) declared() []model.Tenant {
	fallback := []model.Tenant{r.defaultTenant}
	entries, err := r.readUsers()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("file", r.usersFile).Msg("users file unusable, using default tenant")
		}
		return fallback
	}

	out := make([]model.Tenant, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		t, ok := decodeUser(e)
		if !ok || !tenantIDPattern.MatchString(t.ID) {
			log.Warn().Str("tenant", t.ID).Msg("skipping declared tenant with invalid entry")
			continue
		}
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		if t.DisplayName == "" {
			t.DisplayName = t.ID
		}
		t.Discovered = false
		out = append(out, t)
	}
	return out
}

// readUsers 返回未解码的 users 文件条目
// 文件不存在或未配置路径时返回 fs.ErrNotExist
func (r *TenantRegistry) readUsers() ([]json.RawMessage, error) {
	if r.usersFile == "" {
		return nil, fs.ErrNotExist
	}
	raw, err := os.ReadFile(r.usersFile)
	if err != nil {
		return nil, err
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.usersFile, err)
	}
	return entries, nil
}

func decodeUser(raw json.RawMessage) (model.Tenant, bool) {
	var t model.Tenant
	if err := json.Unmarshal(raw, &t); err != nil {
		return model.Tenant{}, false
	}
	return t, true
}

func (r *TenantRegistry) writeUsers(entries []json.RawMessage) error {
	if r.usersFile == "" {
		return errors.New("no users file configured")
	}
	if entries == nil {
		entries = []json.RawMessage{}
	}
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(r.usersFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := r.usersFile + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.usersFile)
}

var _ port.TenantDirectory = (*TenantRegistry)(nil)
