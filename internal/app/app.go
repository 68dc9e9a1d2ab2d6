// Package app wires configuration into the book service shared by the API
// server and the command line tool.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"bookresale/internal/book"
	"bookresale/internal/cache"
	"bookresale/internal/config"
	"bookresale/internal/metadata"
	"bookresale/internal/pipeline"
	"bookresale/internal/platform/fetch"
	"bookresale/internal/platform/googlebooks"
	"bookresale/internal/platform/openlibrary"
	"bookresale/internal/platform/sell4more"
	"bookresale/internal/price"
)

type App struct {
	Service  *book.Service
	Pipeline *pipeline.Pipeline
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Logger   *slog.Logger
}

// New connects to Postgres when DB_DSN is set and falls back to an in-memory
// repository otherwise. Redis is optional.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Logger: logger}

	var repo book.Repository
	if cfg.DBDSN != "" {
		db, err := openDB(ctx, cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		a.DB = db
		repo = book.NewPostgresRepo(db, cfg.DBTimeout)
		logger.Info("database connection OK", "dsn", RedactDSN(cfg.DBDSN))
	} else {
		repo = book.NewMemoryRepo()
		logger.Warn("DB_DSN not set, books are kept in memory")
	}

	var meta pipeline.MetadataResolver = NewMetadataResolver(cfg, logger)
	if cfg.RedisAddr != "" {
		a.Redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := a.Redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn("redis unreachable, metadata cache degrades to direct lookups", "addr", cfg.RedisAddr, "error", err)
		}
		meta = cache.NewMetadataCache(a.Redis, meta, cfg.MetadataCacheTTL, logger)
	}

	a.Pipeline = pipeline.New(meta, NewAggregator(cfg, logger), logger)
	a.Service = book.NewService(repo, a.Pipeline, logger)
	return a, nil
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func newFetcher(cfg config.Config) *fetch.Client {
	return fetch.NewClient(fetch.Config{
		UserAgent:  cfg.UserAgent,
		RPS:        cfg.ProviderRPS,
		MaxRetries: cfg.ProviderMaxRetries,
		Timeout:    cfg.ProviderTimeout,
	})
}

// NewMetadataResolver builds the Google Books then Open Library chain. Each
// upstream gets its own rate limiter.
func NewMetadataResolver(cfg config.Config, logger *slog.Logger) *metadata.Resolver {
	return metadata.NewResolver(cfg.ProviderTimeout, logger,
		googlebooks.NewClient(newFetcher(cfg), googlebooks.DefaultBaseURL, cfg.GoogleBooksAPIKey),
		openlibrary.NewClient(newFetcher(cfg), openlibrary.DefaultBaseURL),
	)
}

func NewAggregator(cfg config.Config, logger *slog.Logger) *price.Aggregator {
	names := cfg.PriceVendors
	if len(names) == 0 {
		names = sell4more.DefaultVendors
	}
	vendors := sell4more.Registry(newFetcher(cfg), sell4more.DefaultAPIBaseURL, sell4more.DefaultWebBaseURL, names, cfg.PriceScraperEnabled)
	return price.NewAggregator(vendors, cfg.ProviderTimeout, logger)
}

func openDB(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot create db pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cannot ping database (%s): %w", RedactDSN(dsn), err)
	}
	return pool, nil
}

// RedactDSN hides the credentials of a URL-style DSN.
func RedactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
