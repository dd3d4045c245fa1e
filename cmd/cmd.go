package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pair-date-backend/internal/config"
	"pair-date-backend/internal/database"
	"pair-date-backend/internal/handlers"
	"pair-date-backend/internal/metrics"
	"pair-date-backend/internal/push"
	"pair-date-backend/internal/repository"
	"pair-date-backend/internal/repository/memory"
	"pair-date-backend/internal/repository/postgres"
	"pair-date-backend/internal/services"
	"pair-date-backend/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Optional .env for local runs
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	configPath := os.Getenv("PAIRDATE_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer closeStore()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Image URLs
	resolver, closeCache := newResolver(ctx, cfg)
	defer closeCache()

	// Push relay
	var sender push.Sender = push.LogSender{}
	if cfg.APNs.Enabled {
		apns, err := push.NewAPNsSender(cfg.APNs)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create APNs sender")
		}
		sender = apns
		log.Info().Bool("production", cfg.APNs.Production).Msg("APNs push enabled")
	}
	dispatcher := push.NewDispatcher(sender, cfg.Push.Workers, cfg.Push.QueueSize, m)

	// Initialize services
	wsHub := services.NewWSHub()
	svc := handlers.Services{
		Users: services.NewUserService(store, cfg.JWT.Secret),
		Couples: services.NewCoupleService(store, wsHub, m, services.InviteCodePolicy{
			Length:         cfg.Invite.CodeLength,
			FallbackLength: cfg.Invite.FallbackLength,
			MaxAttempts:    cfg.Invite.MaxAttempts,
		}),
		Proposals: services.NewProposalService(store, resolver, m),
		Swipes:    services.NewSwipeService(store, dispatcher, wsHub, m),
		Matches:   services.NewMatchService(store, resolver),
		Plans:     services.NewPlanService(store, wsHub),
		Hub:       wsHub,
	}

	router := handlers.NewRouter(svc, handlers.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Gatherer:       reg,
		RequestLogging: true,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Str("driver", cfg.Database.Driver).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Flush queued push notifications
	dispatcher.Close()

	log.Info().Msg("Server exited")
}

// openStore selects the repository backend
func openStore(ctx context.Context, cfg config.DatabaseConfig) (repository.Store, func(), error) {
	if cfg.Driver == config.DriverMemory {
		log.Warn().Msg("Using in-memory store; data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	pool, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		return nil, nil, err
	}
	log.Info().Msg("Database connection established")

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info().Msg("Database migrations applied")
	}

	return postgres.NewStore(pool), pool.Close, nil
}

// newResolver builds the image resolver. Missing S3 or Redis settings
// degrade to unresolved images and uncached URLs respectively.
func newResolver(ctx context.Context, cfg *config.Config) (*storage.Resolver, func()) {
	var presigner storage.Presigner
	if cfg.AWS.S3Bucket != "" {
		s3Presigner, err := storage.NewS3Presigner(ctx, cfg.AWS)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create S3 presigner")
		}
		presigner = s3Presigner
	} else {
		log.Warn().Msg("No S3 bucket configured; image URLs will not be resolved")
	}

	var cache storage.Cache
	closeCache := func() {}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unreachable; continuing without URL cache")
			_ = client.Close()
		} else {
			cache = storage.NewRedisCache(client)
			closeCache = func() { _ = client.Close() }
		}
	}

	return storage.NewResolver(presigner, cache, cfg.AWS.PresignTTL, cfg.Redis.CacheTTL), closeCache
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
