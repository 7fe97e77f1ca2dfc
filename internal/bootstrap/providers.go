package bootstrap

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/wire"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/eventradar/internal/domain/search"
	"github.com/yanqian/eventradar/internal/infra/config"
	"github.com/yanqian/eventradar/internal/infra/eventcache"
	"github.com/yanqian/eventradar/internal/infra/jobstore"
	"github.com/yanqian/eventradar/internal/infra/llm/chatgpt"
	"github.com/yanqian/eventradar/internal/infra/sources"
	"github.com/yanqian/eventradar/pkg/metrics"
	"github.com/yanqian/eventradar/pkg/util"
)

// SearchSet builds search.Service and its storage. Every backend falls back to
// an in-memory implementation when it is disabled or unreachable.
var SearchSet = wire.NewSet(
	ProvideSearchConfig,
	ProvideValkeyClient,
	ProvideVenuePool,
	ProvideChatClient,
	ProvideArchive,
	ProvideCategoryCache,
	ProvideDayBucketStore,
	ProvideJobStore,
	ProvideGateway,
	search.NewService,
)

// ProvideSearchConfig maps the search section onto the domain config.
func ProvideSearchConfig(cfg *config.Config) (search.Config, error) {
	loc, err := cfg.Search.Location()
	if err != nil {
		return search.Config{}, err
	}
	return search.Config{
		DefaultConcurrency: cfg.Search.DefaultConcurrency,
		MaxConcurrency:     cfg.Search.MaxConcurrency,
		FetchTimeout:       cfg.Search.FetchTimeout,
		ProgressiveBatch:   cfg.Search.ProgressiveBatch,
		Location:           loc,
		JobTTL:             cfg.Search.JobTTL,
	}, nil
}

// ProvideValkeyClient returns nil when valkey is disabled or unreachable.
func ProvideValkeyClient(cfg *config.Config, logger *slog.Logger) (valkey.Client, func()) {
	noop := func() {}
	if !cfg.Cache.Valkey.Enabled {
		logger.Info("valkey disabled, using memory stores")
		return nil, noop
	}
	opt, err := buildValkeyOptions(cfg.Cache.Valkey.Addr)
	if err != nil {
		logger.Error("invalid valkey configuration, using memory stores", "error", err)
		return nil, noop
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, using memory stores", "error", err)
		return nil, noop
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, using memory stores", "error", err)
		client.Close()
		return nil, noop
	}
	logger.Info("valkey stores enabled", "addr", cfg.Cache.Valkey.Addr)
	return client, client.Close
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}

// ProvideVenuePool returns nil when the venue source is disabled or Postgres
// cannot be reached.
func ProvideVenuePool(cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, func()) {
	noop := func() {}
	if !cfg.Venues.Enabled {
		return nil, noop
	}
	poolConfig, err := pgxpool.ParseConfig(strings.TrimSpace(cfg.Venues.Postgres.DSN))
	if err != nil {
		logger.Error("invalid postgres dsn, venue source disabled", "error", err)
		return nil, noop
	}
	if cfg.Venues.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Venues.Postgres.MaxConns
	}
	if cfg.Venues.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Venues.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, venue source disabled", "error", err)
		return nil, noop
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, venue source disabled", "error", err)
		pool.Close()
		return nil, noop
	}
	logger.Info("venue source enabled")
	return pool, pool.Close
}

// ProvideChatClient returns nil when no API key is configured.
func ProvideChatClient(cfg *config.Config, logger *slog.Logger) *chatgpt.Client {
	client, err := chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Timeout)
	if err != nil {
		logger.Warn("generative source disabled", "error", err)
		return nil
	}
	return client
}

// ProvideArchive returns nil when the object archive is disabled.
func ProvideArchive(cfg *config.Config, logger *slog.Logger) eventcache.Archive {
	if !cfg.Archive.Enabled {
		return nil
	}
	archive, err := eventcache.NewObjectArchive(cfg.Archive.Endpoint, cfg.Archive.AccessKey, cfg.Archive.SecretKey, cfg.Archive.Bucket, cfg.Archive.Region, logger)
	if err != nil {
		logger.Error("day bucket archive disabled", "error", err)
		return nil
	}
	logger.Info("day bucket archive enabled", "bucket", cfg.Archive.Bucket)
	return archive
}

// ProvideCategoryCache selects the shard store.
func ProvideCategoryCache(cfg *config.Config, client valkey.Client, logger *slog.Logger) search.CategoryCache {
	if client == nil {
		return eventcache.NewMemoryCategoryCache(util.NowUTC)
	}
	return eventcache.NewValkeyCategoryCache(client, cfg.Cache.Valkey.Prefix, util.NowUTC, logger)
}

// ProvideDayBucketStore selects the day bucket store and mirrors it to the
// archive when one is configured.
func ProvideDayBucketStore(cfg *config.Config, client valkey.Client, archive eventcache.Archive, logger *slog.Logger) search.DayBucketStore {
	var primary search.DayBucketStore
	if client == nil {
		primary = eventcache.NewMemoryDayBucketStore(util.NowUTC)
	} else {
		primary = eventcache.NewValkeyDayBucketStore(client, cfg.Cache.Valkey.Prefix, util.NowUTC)
	}
	if archive == nil {
		return primary
	}
	return eventcache.NewMirroredDayBucketStore(primary, archive, logger)
}

// ProvideJobStore selects the background job store.
func ProvideJobStore(cfg *config.Config, client valkey.Client) search.JobStore {
	if client == nil {
		return jobstore.NewMemoryStore(util.NowUTC)
	}
	return jobstore.NewValkeyStore(client, cfg.Cache.Valkey.Prefix)
}

// ProvideGateway assembles the configured event sources.
func ProvideGateway(cfg *config.Config, chat *chatgpt.Client, pool *pgxpool.Pool, logger *slog.Logger) search.Gateway {
	var srcs []sources.Source
	if chat != nil {
		srcs = append(srcs, sources.NewGenerativeSource(sources.GenerativeConfig{
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Prompt:      cfg.LLM.Prompt,
		}, chat, sources.NewTokenCounter(cfg.LLM.Model), logger))
	}
	if pool != nil {
		loc, err := cfg.Search.Location()
		if err != nil {
			loc = time.UTC
		}
		srcs = append(srcs, sources.NewVenueSource(pool, loc, logger))
	}
	if len(srcs) == 0 {
		logger.Warn("no event sources configured, uncached searches will fail")
	}
	return sources.NewGateway(srcs, sources.RetryConfig{
		MaxAttempts:     cfg.Search.Retry.MaxAttempts,
		InitialInterval: cfg.Search.Retry.InitialInterval,
		MaxInterval:     cfg.Search.Retry.MaxInterval,
	}, logger)
}

// NewSearchService composes SearchSet by hand for tools that do not go
// through wire. The returned cleanup releases the backends.
func NewSearchService(cfg *config.Config, recorder *metrics.Recorder, logger *slog.Logger) (search.Service, func(), error) {
	searchCfg, err := ProvideSearchConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	client, closeValkey := ProvideValkeyClient(cfg, logger)
	pool, closePool := ProvideVenuePool(cfg, logger)
	chat := ProvideChatClient(cfg, logger)
	archive := ProvideArchive(cfg, logger)
	svc := search.NewService(
		searchCfg,
		ProvideCategoryCache(cfg, client, logger),
		ProvideDayBucketStore(cfg, client, archive, logger),
		ProvideGateway(cfg, chat, pool, logger),
		ProvideJobStore(cfg, client),
		recorder,
		logger,
	)
	return svc, func() {
		closePool()
		closeValkey()
	}, nil
}
