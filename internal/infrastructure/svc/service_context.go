package svc

import (
	"context"
	"fmt"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"astrodash/internal/application/container"
	"astrodash/internal/application/port"
	"astrodash/internal/application/service"
	"astrodash/internal/application/usecase/broadcast"
	"astrodash/internal/infrastructure/config"
	cronrunner "astrodash/internal/infrastructure/cron"
	"astrodash/internal/infrastructure/storage/postgres"
	redisrepo "astrodash/internal/infrastructure/storage/redis"
	"astrodash/internal/infrastructure/storage/sqlite"
)

type ServiceContext struct {
	Ctx    context.Context
	Config *config.Config

	backend     port.Backend
	redisClient *redisclient.Client
	publisher   *redisrepo.Publisher

	registry  *service.TenantRegistry
	container *container.Container
	hub       *broadcast.Hub
	cron      *cronrunner.Runner

	closerChain []func() error
}

// New 创建并初始化 ServiceContext
// 按依赖顺序初始化所有组件，只有这里知道当前使用哪个后端
func New(ctx context.Context, cfg *config.Config) (*ServiceContext, error) {
	sc := &ServiceContext{
		Ctx:         ctx,
		Config:      cfg,
		closerChain: make([]func() error, 0),
	}
	if err := sc.initializeComponents(); err != nil {
		_ = sc.Close()
		return nil, err
	}
	return sc, nil
}

func (sc *ServiceContext) initializeComponents() error {
	if err := sc.initializeStorage(); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageInitFailed, err)
	}

	sc.registry = service.NewTenantRegistry(
		sc.Config.Registry.UsersFile,
		sc.Config.Registry.DefaultBotDir,
		sc.backend,
	)
	sc.container = container.New(sc.backend, sc.registry)
	c := sc.container
	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Str("backend", c.Backend().Name()).Msg("closing storage backend")
		return c.Close()
	})

	if sc.Config.Redis.Enabled {
		if err := sc.initRedis(); err != nil {
			return fmt.Errorf("redis initialization failed: %w", err)
		}
	}

	deps := broadcast.HubDeps{
		Tenants:   sc.registry,
		Snapshots: sc.container.Aggregator(),
		Interval:  sc.Config.BroadcastInterval(),
	}
	if sc.publisher != nil {
		deps.Mirror = sc.publisher
	}
	sc.hub = broadcast.NewHub(deps)

	if err := sc.initCron(); err != nil {
		return fmt.Errorf("cron initialization failed: %w", err)
	}

	log.Info().
		Str("backend", sc.backend.Name()).
		Int("tenants", len(sc.registry.List(sc.Ctx))).
		Bool("redis", sc.publisher != nil).
		Msg("✓ All components initialized")
	return nil
}

func (sc *ServiceContext) initializeStorage() error {
	switch sc.Config.Storage.Backend {
	case config.BackendFile:
		f := sc.Config.Storage.File
		sc.backend = sqlite.New(sqlite.Layout{
			LogsDir:       f.LogsDir,
			SignalsDB:     f.SignalsDB,
			PositionsFile: f.PositionsFile,
			EquityFile:    f.EquityFile,
		})
		log.Info().Str("default_bot_dir", sc.Config.Registry.DefaultBotDir).Msg("✓ File backend initialized")

	case config.BackendPostgres:
		pg := sc.Config.Storage.Postgres
		b, err := postgres.New(pg.DSN, postgres.Options{
			MaxOpenConns: pg.MaxOpenConns,
			MaxIdleConns: pg.MaxIdleConns,
		})
		if err != nil {
			return fmt.Errorf("postgres backend: %w", err)
		}
		sc.backend = b
		log.Info().Int("max_open_conns", pg.MaxOpenConns).Msg("✓ Postgres backend initialized")

	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, sc.Config.Storage.Backend)
	}

	return nil
}

func (sc *ServiceContext) initRedis() error {
	rdb := redisclient.NewClient(&redisclient.Options{
		Addr:     sc.Config.Redis.Addr,
		Password: sc.Config.Redis.Password,
		DB:       sc.Config.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(sc.Ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	sc.redisClient = rdb
	sc.publisher = redisrepo.New(
		rdb,
		sc.Config.Redis.Prefix,
		time.Duration(sc.Config.Redis.TTLSeconds)*time.Second,
		sc.Config.Redis.Channel,
	)
	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().
		Str("addr", sc.Config.Redis.Addr).
		Int("db", sc.Config.Redis.DB).
		Str("channel", sc.publisher.Channel()).
		Msg("✓ Redis initialized")
	return nil
}

// initCron 立即刷新一次自动发现的租户，之后按配置的周期刷新
func (sc *ServiceContext) initCron() error {
	n := sc.registry.Refresh(sc.Ctx)
	log.Info().Int("discovered", n).Msg("tenant discovery")

	runner := cronrunner.New(sc.Ctx)
	registry := sc.registry
	if _, err := runner.Add("tenant-discovery", sc.Config.Registry.DiscoveryCron, func(ctx context.Context) {
		n := registry.Refresh(ctx)
		log.Debug().Int("discovered", n).Msg("tenant discovery refreshed")
	}); err != nil {
		return err
	}
	sc.cron = runner
	return nil
}

// Start 启动后台任务（不阻塞）
func (sc *ServiceContext) Start() {
	sc.cron.Start()
	sc.closerChain = append(sc.closerChain, func() error {
		sc.cron.Stop()
		return nil
	})
}

func (sc *ServiceContext) Container() *container.Container { return sc.container }

func (sc *ServiceContext) Registry() *service.TenantRegistry { return sc.registry }

func (sc *ServiceContext) Hub() *broadcast.Hub { return sc.hub }

// Close 按初始化的逆序释放资源
func (sc *ServiceContext) Close() error {
	for i := len(sc.closerChain) - 1; i >= 0; i-- {
		if err := sc.closerChain[i](); err != nil {
			log.Error().Err(err).Msg("error closing resource")
		}
	}
	sc.closerChain = nil
	return nil
}
