package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/predictify/predictifyd/internal/blob/s3"
	"github.com/predictify/predictifyd/internal/cache/redis"
	"github.com/predictify/predictifyd/internal/config"
	"github.com/predictify/predictifyd/internal/domain"
	"github.com/predictify/predictifyd/internal/events"
	"github.com/predictify/predictifyd/internal/metrics"
	"github.com/predictify/predictifyd/internal/notify"
	"github.com/predictify/predictifyd/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	MarketStore domain.MarketStore
	StakeStore  domain.StakeStore
	WindowStore domain.WindowConfigStore
	AuditStore  domain.AuditStore

	// Caches and coordination
	MarketCache domain.MarketCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Blob storage (nil unless s3.enabled)
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   *s3blob.Archiver

	// Event fan-out, notifications, metrics
	Events   domain.EventSink
	Notifier *notify.Notifier
	Metrics  *metrics.Registry

	// Concrete clients kept for health checks.
	PG    *postgres.Client
	Redis *redis.Client
	S3    *s3blob.Client
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.PG = pgClient
	deps.MarketStore = postgres.NewMarketStore(pool)
	deps.StakeStore = postgres.NewStakeStore(pool)
	deps.WindowStore = postgres.NewWindowStore(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)

	// Seed the global dispute window on first start. An UpdatedAt of zero
	// means no admin has ever set it; later restarts keep the stored value.
	if gw, err := deps.WindowStore.GetGlobal(ctx); err == nil && gw.UpdatedAt.IsZero() {
		if hours := cfg.Resolution.DefaultWindowHours; hours != gw.Hours {
			_ = deps.WindowStore.SetGlobal(ctx, domain.WindowConfig{Hours: hours})
		}
	}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.Redis = redisClient
	deps.MarketCache = redis.NewMarketCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- S3 blob storage (archives) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.S3 = s3Client
		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.StakeStore, deps.AuditStore)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Metrics and event fan-out ---
	deps.Metrics = metrics.New()
	deps.Events = events.NewPublisher(deps.SignalBus, deps.Notifier, deps.Metrics, logger)

	return deps, cleanup, nil
}
