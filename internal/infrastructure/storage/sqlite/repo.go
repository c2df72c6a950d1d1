package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"astrodash/internal/application/port"
	"astrodash/internal/domain/model"
	"astrodash/internal/infrastructure/storage"
)

// Layout 租户文件相对机器人目录的位置
type Layout struct {
	LogsDir       string
	SignalsDB     string
	PositionsFile string
	EquityFile    string
}

func DefaultLayout() Layout {
	return Layout{
		LogsDir:       "logs",
		SignalsDB:     "signals.db",
		PositionsFile: "open_positions.json",
		EquityFile:    "equity_state.json",
	}
}

// Backend 文件模式后端
// 读取机器人目录下的 sqlite 信号库和两个 JSON 状态文件
type Backend struct {
	layout Layout
}

func New(layout Layout) *Backend {
	def := DefaultLayout()
	if layout.LogsDir == "" {
		layout.LogsDir = def.LogsDir
	}
	if layout.SignalsDB == "" {
		layout.SignalsDB = def.SignalsDB
	}
	if layout.PositionsFile == "" {
		layout.PositionsFile = def.PositionsFile
	}
	if layout.EquityFile == "" {
		layout.EquityFile = def.EquityFile
	}
	return &Backend{layout: layout}
}

func (b *Backend) Name() string { return "file" }

func (b *Backend) Close() error { return nil }

// ListTenants 文件模式下租户只来自 users 文件，这里始终为空
func (b *Backend) ListTenants(ctx context.Context) port.Result[[]string] {
	return port.Ok([]string{})
}

func (b *Backend) QuerySignals(ctx context.Context, tenant model.Tenant, limit int, closedOnly bool) port.Result[[]model.Signal] {
	empty := []model.Signal{}
	if tenant.Location == "" {
		return port.Ok(empty)
	}
	if limit <= 0 {
		limit = storage.DefaultSignalLimit
	}

	path := b.path(tenant, b.layout.SignalsDB)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return port.Ok(empty)
		}
		return port.Absorbed(empty, err)
	}

	// 文件归机器人所有，只读打开；每次查询重新打开，以便感知被替换的库
	db, err := openSignalsDB(path)
	if err != nil {
		return port.Absorbed(empty, err)
	}
	defer db.Close()

	where := ""
	if closedOnly {
		where = "WHERE pnl IS NOT NULL"
	}
	q := fmt.Sprintf(`SELECT %s FROM signals %s ORDER BY id DESC LIMIT ?`, storage.SelectList(nil), where)

	rows, err := db.QueryContext(ctx, q, limit)
	if err != nil {
		return port.Absorbed(empty, err)
	}
	defer rows.Close()

	out := empty
	for rows.Next() {
		s, err := storage.ScanSignal(rows)
		if err != nil {
			return port.Absorbed(empty, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return port.Absorbed(empty, err)
	}
	return port.Ok(out)
}

func (b *Backend) LoadState(ctx context.Context, tenant model.Tenant, key port.StateKey) port.Result[[]byte] {
	path, err := b.statePath(tenant, key)
	if err != nil {
		return port.Absorbed[[]byte](nil, err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return port.Ok[[]byte](nil)
		}
		return port.Absorbed[[]byte](nil, err)
	}
	return port.Ok(raw)
}

// SaveState 通过 rename 替换文件，读者不会看到写了一半的内容
func (b *Backend) SaveState(ctx context.Context, tenant model.Tenant, key port.StateKey, value []byte) error {
	path, err := b.statePath(tenant, key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

func (b *Backend) statePath(tenant model.Tenant, key port.StateKey) (string, error) {
	if tenant.Location == "" {
		return "", fmt.Errorf("tenant %q has no bot directory", tenant.ID)
	}
	switch key {
	case port.StatePositions:
		return b.path(tenant, b.layout.PositionsFile), nil
	case port.StateEquity:
		return b.path(tenant, b.layout.EquityFile), nil
	default:
		return "", fmt.Errorf("unknown state key %q", key)
	}
}

func (b *Backend) path(tenant model.Tenant, name string) string {
	return filepath.Join(tenant.Location, b.layout.LogsDir, name)
}

var _ port.Backend = (*Backend)(nil)

func openSignalsDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro&_pragma=busy_timeout(2000)")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
