// Package main provides the entrypoint for the Nocturna API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/nocturna-project/nocturna/internal/anomaly"
	"github.com/nocturna-project/nocturna/internal/api"
	"github.com/nocturna-project/nocturna/internal/api/handler"
	"github.com/nocturna-project/nocturna/internal/api/middleware"
	"github.com/nocturna-project/nocturna/internal/auth"
	"github.com/nocturna-project/nocturna/internal/cache"
	"github.com/nocturna-project/nocturna/internal/correlation"
	"github.com/nocturna-project/nocturna/internal/database"
	"github.com/nocturna-project/nocturna/internal/impact"
	"github.com/nocturna-project/nocturna/internal/measurement"
	"github.com/nocturna-project/nocturna/internal/raster/blackmarble"
	"github.com/nocturna-project/nocturna/internal/seasonal"
	"github.com/nocturna-project/nocturna/internal/telemetry"
	"github.com/nocturna-project/nocturna/internal/trend"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "nocturna-api"

	// Local development convenience, ignored when the file is absent.
	_ = godotenv.Load()

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting Nocturna API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Result cache: Redis when configured, in-process otherwise.
	var store cache.Store
	readyChecks := []handler.ReadyCheck{
		{Name: "postgres", Check: pool.Ping},
	}
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr != "" {
		redisClient, redisErr := cache.ConnectRedis(ctx, cache.RedisConfig{Addr: redisAddr})
		if redisErr != nil {
			log.Fatal().Err(redisErr).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		store = cache.NewRedis(redisClient)
		readyChecks = append(readyChecks, handler.ReadyCheck{
			Name: "redis",
			Check: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		})
		log.Info().Str("addr", redisAddr).Msg("redis result cache connected")
	} else {
		store = cache.NewMemory()
		log.Info().Msg("using in-process result cache")
	}

	// Initialize JWT service (get signing key from environment)
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: jwtSigningKey,
		Issuer:     os.Getenv("JWT_ISSUER"),
		Audience:   os.Getenv("JWT_AUDIENCE"),
	})

	// Raster fallback sampler (may be nil if not configured)
	var sampler measurement.Sampler
	if rasterBaseURL := os.Getenv("BLACKMARBLE_BASE_URL"); rasterBaseURL != "" {
		sampler = blackmarble.NewClient(blackmarble.ClientConfig{
			BaseURL: rasterBaseURL,
			APIKey:  os.Getenv("BLACKMARBLE_API_KEY"),
		})
		log.Info().Str("base_url", rasterBaseURL).Msg("Black Marble raster sampler initialized")
	} else {
		log.Warn().Msg("raster sampler not configured - satellite gaps fall back to defaults")
	}

	// Initialize measurement accessor over the spatial store
	repo := measurement.NewPostgresRepository(pool)
	accessor := measurement.NewAccessor(measurement.AccessorConfig{
		Repository: repo,
		Sampler:    sampler,
		Logger:     log,
	})
	log.Info().Msg("measurement accessor initialized")

	// Initialize analytics engines
	correlationService := correlation.NewService(correlation.ServiceConfig{
		Accessor: accessor,
		Cache:    store,
		Logger:   log,
	})
	trendService := trend.NewService(trend.ServiceConfig{
		Accessor: accessor,
		Cache:    store,
		Logger:   log,
	})
	anomalyService := anomaly.NewService(anomaly.ServiceConfig{
		Accessor: accessor,
		Cache:    store,
		Logger:   log,
	})
	seasonalService := seasonal.NewService(seasonal.ServiceConfig{
		Accessor: accessor,
		Cache:    store,
		Logger:   log,
	})
	impactService := impact.NewService(impact.ServiceConfig{
		Correlator: correlationService,
		Habitats:   impact.NewPostgresHabitatRepository(pool),
		Cache:      store,
		Logger:     log,
	})
	log.Info().Msg("analytics engines initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		ServiceName:        serviceName,
		Metrics:            metrics,
		JWTService:         jwtService,
		CorrelationService: correlationService,
		TrendService:       trendService,
		AnomalyService:     anomalyService,
		SeasonalService:    seasonalService,
		ImpactService:      impactService,
		Cache:              store,
		ReadyChecks:        readyChecks,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
