package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/forkful/recommender/internal/api"
	"github.com/forkful/recommender/internal/catalog"
	"github.com/forkful/recommender/internal/config"
	"github.com/forkful/recommender/internal/database"
	"github.com/forkful/recommender/internal/llm"
	mw "github.com/forkful/recommender/internal/middleware"
	inats "github.com/forkful/recommender/internal/nats"
	"github.com/forkful/recommender/internal/recommend"
	iredis "github.com/forkful/recommender/internal/redis"
	"github.com/forkful/recommender/internal/server"
	"github.com/forkful/recommender/internal/servelog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Signals stop the HTTP server and the log consumer together.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Schema first: the pool registers pgvector types on connect.
	if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS (optional)
	var (
		natsClient *inats.Client
		publisher  recommend.EventPublisher
	)
	if cfg.NATS.URL != "" {
		natsClient, err = inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to nats", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		publisher = inats.NewPublisher(natsClient.JetStream())
	}

	// Model services
	gemini, err := llm.NewGeminiClient(ctx, cfg.Gemini)
	if err != nil {
		slog.Error("creating gemini client", "error", err)
		os.Exit(1)
	}
	completer := llm.NewBreakerCompleter(gemini, cfg.Breaker)
	breakerEmbedder := llm.NewBreakerEmbedder(gemini, cfg.Breaker)
	embedder, err := llm.NewCachedEmbedder(breakerEmbedder, redisClient, cfg.Gemini.EmbeddingModel,
		cfg.Cache.EmbeddingLRUSize, cfg.Cache.EmbeddingTTL)
	if err != nil {
		slog.Error("creating embedding cache", "error", err)
		os.Exit(1)
	}

	// Pipeline
	opts, err := recommend.OptionsFromConfig(cfg.Pipeline)
	if err != nil {
		slog.Error("building pipeline options", "error", err)
		os.Exit(1)
	}
	store := catalog.NewPostgresStore(pool)
	pipeline := recommend.NewPipeline(store, embedder, completer, store, opts)
	recommendHandler := recommend.NewHandler(pipeline, publisher)

	// Recommendation log: written from the event stream, read over HTTP.
	logRepo := servelog.NewRepository(pool)
	if natsClient != nil {
		logConsumer := servelog.NewConsumer(logRepo, inats.NewConsumerManager(natsClient.JetStream()))
		go func() {
			if err := logConsumer.Start(ctx); err != nil {
				slog.Error("recommendation log consumer stopped", "error", err)
			}
		}()
	}

	// Router
	routerCfg := api.RouterConfig{
		CORS:               cfg.CORS,
		RecommendRateLimit: mw.NewRateLimiter(redisClient, "recommend", cfg.RateLimit.MaxRequests, cfg.RateLimit.WindowSec).Middleware,
		Database: api.HealthCheckFunc(func(ctx context.Context) error {
			return database.HealthCheck(ctx, pool)
		}),
	}
	if natsClient != nil {
		routerCfg.NATS = natsClient
	}
	router := api.NewRouter(routerCfg, api.HandlerSet{
		Recommend:         recommendHandler.Recommend,
		RecommendationLog: servelog.NewHandler(logRepo).List,
		EmbeddingBreaker:  breakerEmbedder.State,
		CompletionBreaker: completer.State,
	})

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Run(ctx); err != nil {
		slog.Error("server error", "error", err)
		stop()
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
