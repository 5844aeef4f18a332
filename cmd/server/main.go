package main

import (
	"context"
	"errors"
	"os"

	"log/slog"

	"github.com/roamingbanjara/urgency-timer/handler"
	"github.com/roamingbanjara/urgency-timer/pkg/billing"
	"github.com/roamingbanjara/urgency-timer/pkg/config"
	"github.com/roamingbanjara/urgency-timer/pkg/httpserver"
	"github.com/roamingbanjara/urgency-timer/pkg/logger"
	"github.com/roamingbanjara/urgency-timer/pkg/pg"
	"github.com/roamingbanjara/urgency-timer/pkg/ratelimit"
	"github.com/roamingbanjara/urgency-timer/pkg/redis"
	"github.com/roamingbanjara/urgency-timer/pkg/tenantstore"
	"github.com/roamingbanjara/urgency-timer/pkg/viewcache"
	"github.com/roamingbanjara/urgency-timer/pkg/views"
)

type appConfig struct {
	Logger    logger.Config
	PG        pg.Config
	Redis     redis.Config
	HTTP      httpserver.Config
	RateLimit ratelimit.Config

	// WebhookSecret signs billing webhook deliveries from the host platform.
	WebhookSecret string `env:"WEBHOOK_SECRET"`
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.NewFromConfig(cfg.Logger, logger.WithService("urgency-timer"))

	ctx := context.Background()

	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		log.Error("postgres connection failed", logger.Error(err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.PG, log); err != nil {
		log.Error("migrations failed", logger.Error(err))
		os.Exit(1)
	}

	store := tenantstore.NewPGStore(pool)
	reconciler := billing.NewReconciler(store, billing.WithLogger(log))

	healthChecks := []func(context.Context) error{pg.Healthcheck(pool)}

	// The dedup cache is a fast path, not a dependency: without Redis the
	// service still runs, deduplicating through the database alone.
	var cache viewcache.Cache
	var viewers viewcache.ViewerCounter
	var sessions viewcache.SessionTracker
	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, running without dedup cache", logger.Error(err))
	} else {
		defer rdb.Close()
		rc := viewcache.NewRedis(rdb, viewcache.WithTTL(cfg.Redis.DedupTTL))
		cache = rc
		viewers = rc
		sessions = rc
		healthChecks = append(healthChecks, redis.Healthcheck(rdb))
	}

	viewsSvc := views.New(store, cache, views.WithLogger(log))

	limiter, err := ratelimit.NewBucket(ratelimit.NewMemoryStore(), cfg.RateLimit)
	if err != nil {
		log.Error("invalid rate limit config", logger.Error(err))
		os.Exit(1)
	}

	opts := []handler.Option{
		handler.WithLogger(log),
		handler.WithRateLimiter(limiter),
		handler.WithWebhookSecret(cfg.WebhookSecret),
		handler.WithHealthChecks(healthChecks...),
	}
	if viewers != nil {
		opts = append(opts, handler.WithViewerCounter(viewers))
	}
	if sessions != nil {
		opts = append(opts, handler.WithSessionTracker(sessions))
	}
	h := handler.New(viewsSvc, reconciler, store, opts...)

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))

	log.Info("server starting", slog.String("addr", cfg.HTTP.Addr))
	if err := srv.Run(ctx, h.Router()); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", logger.Error(err))
		os.Exit(1)
	}
}
