package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"astrodash/internal/application/port"
	"astrodash/internal/domain/model"
	"astrodash/internal/infrastructure/storage"
)

// columnAliases maps public signal fields to the names the shared schema uses.
var columnAliases = map[string]string{
	"western_score":  "slope",
	"western_signal": "slope_signal",
	"nakshatra":      "indicator",
}

// Placeholder renders the n-th (1-based) bind parameter.
type Placeholder func(n int) string

func Dollar(n int) string { return "$" + strconv.Itoa(n) }

func Question(int) string { return "?" }

type Options struct {
	MaxOpenConns int
	MaxIdleConns int
}

// Backend keeps every tenant in one shared database: signals scoped by a
// tenant_id column and state blobs in a key-value table keyed "{tenant}:{type}".
type Backend struct {
	db *sql.DB
	ph Placeholder
}

func New(dsn string, opts Options) (*Backend, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)

	b, err := NewWithDB(db, Dollar)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

// NewWithDB wraps an already opened database and ensures the schema exists.
func NewWithDB(db *sql.DB, ph Placeholder) (*Backend, error) {
	b := &Backend{db: db, ph: ph}
	if err := b.migrate(context.Background()); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Backend) Name() string { return "postgres" }

func (b *Backend) Close() error { return b.db.Close() }

func (b *Backend) migrate(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS signals (
  id BIGSERIAL PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  timestamp TEXT NOT NULL,
  symbol TEXT NOT NULL,
  action TEXT NOT NULL,
  slope DOUBLE PRECISION,
  vedic_score DOUBLE PRECISION,
  slope_signal TEXT,
  vedic_signal TEXT,
  indicator TEXT,
  entry_price DOUBLE PRECISION,
  stop_loss DOUBLE PRECISION,
  target DOUBLE PRECISION,
  position_size_usdt DOUBLE PRECISION,
  paper BOOLEAN NOT NULL DEFAULT TRUE,
  close_price DOUBLE PRECISION,
  pnl DOUBLE PRECISION,
  result TEXT,
  notes TEXT
);
CREATE INDEX IF NOT EXISTS idx_signals_tenant ON signals(tenant_id, id);

CREATE TABLE IF NOT EXISTS bot_state (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at BIGINT NOT NULL
);
`)
	return err
}

func (b *Backend) ListTenants(ctx context.Context) port.Result[[]string] {
	empty := []string{}
	rows, err := b.db.QueryContext(ctx, `SELECT DISTINCT tenant_id FROM signals ORDER BY tenant_id`)
	if err != nil {
		return port.Absorbed(empty, err)
	}
	defer rows.Close()

	out := empty
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return port.Absorbed(empty, err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return port.Absorbed(empty, err)
	}
	return port.Ok(out)
}

func (b *Backend) QuerySignals(ctx context.Context, tenant model.Tenant, limit int, closedOnly bool) port.Result[[]model.Signal] {
	empty := []model.Signal{}
	if limit <= 0 {
		limit = storage.DefaultSignalLimit
	}

	filter := ""
	if closedOnly {
		filter = "AND pnl IS NOT NULL"
	}
	q := fmt.Sprintf(`SELECT %s FROM signals WHERE tenant_id = %s %s ORDER BY id DESC LIMIT %s`,
		storage.SelectList(columnAliases), b.ph(1), filter, b.ph(2))

	rows, err := b.db.QueryContext(ctx, q, tenant.ID, limit)
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
	var value string
	err := b.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT value FROM bot_state WHERE key = %s`, b.ph(1)),
		storage.StateKey(tenant.ID, key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return port.Ok[[]byte](nil)
	}
	if err != nil {
		return port.Absorbed[[]byte](nil, err)
	}
	return port.Ok([]byte(value))
}

// SaveState upserts the blob; the last writer wins.
func (b *Backend) SaveState(ctx context.Context, tenant model.Tenant, key port.StateKey, value []byte) error {
	_, err := b.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO bot_state(key, value, updated_at)
		VALUES(%s, %s, %s)
		ON CONFLICT(key) DO UPDATE SET
		value=excluded.value, updated_at=excluded.updated_at
	`, b.ph(1), b.ph(2), b.ph(3)), storage.StateKey(tenant.ID, key), string(value), time.Now().UnixMilli())
	return err
}

var _ port.Backend = (*Backend)(nil)
