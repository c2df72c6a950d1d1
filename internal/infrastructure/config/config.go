package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"

	EnvBotDir = "BOT_DIR"
	EnvPgDSN  = "ASTRODASH_PG_DSN"
)

type Config struct {
	App struct {
		ListenAddr           string `toml:"listen_addr"`
		BroadcastIntervalSec int    `toml:"broadcast_interval_sec"`
		LogLevel             string `toml:"log_level"`
	} `toml:"app"`

	Registry struct {
		UsersFile     string `toml:"users_file"`
		DefaultBotDir string `toml:"default_bot_dir"`
		DiscoveryCron string `toml:"discovery_cron"`
	} `toml:"registry"`

	Storage struct {
		Backend string `toml:"backend"`

		File struct {
			LogsDir       string `toml:"logs_dir"`
			SignalsDB     string `toml:"signals_db"`
			PositionsFile string `toml:"positions_file"`
			EquityFile    string `toml:"equity_file"`
		} `toml:"file"`

		Postgres struct {
			DSN          string `toml:"dsn"`
			MaxOpenConns int    `toml:"max_open_conns"`
			MaxIdleConns int    `toml:"max_idle_conns"`
		} `toml:"postgres"`
	} `toml:"storage"`

	Redis struct {
		Enabled    bool   `toml:"enabled"`
		Addr       string `toml:"addr"`
		Password   string `toml:"password"`
		DB         int    `toml:"db"`
		Prefix     string `toml:"prefix"`
		Channel    string `toml:"channel"`
		TTLSeconds int    `toml:"ttl_seconds"`
	} `toml:"redis"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// BroadcastInterval returns the hub tick period.
func (c *Config) BroadcastInterval() time.Duration {
	return time.Duration(c.App.BroadcastIntervalSec) * time.Second
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvBotDir)); v != "" {
		cfg.Registry.DefaultBotDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPgDSN)); v != "" {
		cfg.Storage.Postgres.DSN = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.ListenAddr == "" {
		cfg.App.ListenAddr = ":8080"
	}
	if cfg.App.BroadcastIntervalSec <= 0 {
		cfg.App.BroadcastIntervalSec = 30
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.Registry.UsersFile == "" {
		cfg.Registry.UsersFile = "users.json"
	}
	if cfg.Registry.DiscoveryCron == "" {
		cfg.Registry.DiscoveryCron = "@every 1m"
	}
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendFile
	}
	if cfg.Storage.Postgres.MaxOpenConns <= 0 {
		cfg.Storage.Postgres.MaxOpenConns = 10
	}
	if cfg.Storage.Postgres.MaxIdleConns <= 0 {
		cfg.Storage.Postgres.MaxIdleConns = 2
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "astrodash"
	}
}

func validate(cfg *Config) error {
	switch cfg.Storage.Backend {
	case BackendFile:
	case BackendPostgres:
		if strings.TrimSpace(cfg.Storage.Postgres.DSN) == "" {
			return fmt.Errorf("storage.postgres.dsn empty but backend is postgres (set %s)", EnvPgDSN)
		}
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", BackendFile, BackendPostgres, cfg.Storage.Backend)
	}

	if cfg.Redis.Enabled && strings.TrimSpace(cfg.Redis.Addr) == "" {
		return errors.New("redis.addr empty but enabled")
	}
	if cfg.Redis.TTLSeconds < 0 {
		return errors.New("redis.ttl_seconds must not be negative")
	}
	return nil
}
