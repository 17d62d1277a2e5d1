// Package main provides the entrypoint for the Nocturna background worker.
//
// The worker precomputes analytics for the tracked cities so interactive
// requests are served from cache. It warms on a fixed interval and also
// accepts on-demand jobs over a Pub/Sub subscription when one is configured.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/nocturna-project/nocturna/internal/cache"
	"github.com/nocturna-project/nocturna/internal/correlation"
	"github.com/nocturna-project/nocturna/internal/database"
	"github.com/nocturna-project/nocturna/internal/measurement"
	"github.com/nocturna-project/nocturna/internal/raster/blackmarble"
	"github.com/nocturna-project/nocturna/internal/seasonal"
	"github.com/nocturna-project/nocturna/internal/trend"
	"github.com/nocturna-project/nocturna/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "nocturna-worker"

	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting Nocturna worker")

	// Worker also exposes a health endpoint for Cloud Run.
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Warming only pays off against a cache the API replicas share.
	var store cache.Store
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr != "" {
		redisClient, redisErr := cache.ConnectRedis(ctx, cache.RedisConfig{Addr: redisAddr})
		if redisErr != nil {
			log.Fatal().Err(redisErr).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		store = cache.NewRedis(redisClient)
		log.Info().Str("addr", redisAddr).Msg("redis result cache connected")
	} else {
		store = cache.NewMemory()
		log.Warn().Msg("REDIS_ADDR not set - warming a worker-local cache only")
	}

	var sampler measurement.Sampler
	if rasterBaseURL := os.Getenv("BLACKMARBLE_BASE_URL"); rasterBaseURL != "" {
		sampler = blackmarble.NewClient(blackmarble.ClientConfig{
			BaseURL: rasterBaseURL,
			APIKey:  os.Getenv("BLACKMARBLE_API_KEY"),
		})
	}

	accessor := measurement.NewAccessor(measurement.AccessorConfig{
		Repository: measurement.NewPostgresRepository(pool),
		Sampler:    sampler,
		Logger:     log,
	})

	warmJob := worker.NewWarmJob(worker.WarmJobConfig{
		Config: worker.DefaultWarmConfig(),
		Logger: log,
		CorrelationService: correlation.NewService(correlation.ServiceConfig{
			Accessor: accessor,
			Cache:    store,
			Logger:   log,
		}),
		TrendService: trend.NewService(trend.ServiceConfig{
			Accessor: accessor,
			Cache:    store,
			Logger:   log,
		}),
		SeasonalService: seasonal.NewService(seasonal.ServiceConfig{
			Accessor: accessor,
			Cache:    store,
			Logger:   log,
		}),
	})

	// Create HTTP server for health checks
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","version":"%s"}`, Version)
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// On-demand jobs over Pub/Sub, when a subscription is configured.
	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	subscription := os.Getenv("PUBSUB_SUBSCRIPTION")
	if projectID != "" && subscription != "" {
		handler, handlerErr := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        projectID,
			SubscriptionName: subscription,
			WarmJob:          warmJob,
			Logger:           log,
		})
		if handlerErr != nil {
			log.Fatal().Err(handlerErr).Msg("failed to create pubsub handler")
		}
		defer handler.Close()

		go func() {
			if err := handler.Start(ctx); err != nil {
				log.Error().Err(err).Msg("pubsub receiver stopped")
			}
		}()
		log.Info().
			Str("subscription", subscription).
			Msg("pubsub receiver started")
	} else {
		log.Warn().Msg("pubsub not configured - running interval warming only")
	}

	// Interval warming keeps results fresh between on-demand jobs.
	warmInterval := 30 * time.Minute
	if v := os.Getenv("WARM_INTERVAL_MINUTES"); v != "" {
		if minutes, parseErr := strconv.Atoi(v); parseErr == nil && minutes > 0 {
			warmInterval = time.Duration(minutes) * time.Minute
		}
	}

	go func() {
		// Warm once on startup so a fresh deploy serves cached results
		// without waiting a full interval.
		warmJob.Run(ctx)

		ticker := time.NewTicker(warmInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				warmJob.Run(ctx)
			}
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
