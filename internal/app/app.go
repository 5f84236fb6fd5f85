package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Fachryxyf/felisa-userside/internal/config"
	"github.com/Fachryxyf/felisa-userside/internal/event"
	handler "github.com/Fachryxyf/felisa-userside/internal/handler/http"
	"github.com/Fachryxyf/felisa-userside/internal/repository"
	memoryrepo "github.com/Fachryxyf/felisa-userside/internal/repository/memory"
	redisrepo "github.com/Fachryxyf/felisa-userside/internal/repository/redis"
	"github.com/Fachryxyf/felisa-userside/internal/reviewapi"
	"github.com/Fachryxyf/felisa-userside/internal/service"
	"github.com/Fachryxyf/felisa-userside/internal/storage"
	"github.com/Fachryxyf/felisa-userside/internal/storage/cloudinary"
	memorystorage "github.com/Fachryxyf/felisa-userside/internal/storage/memory"
	"github.com/Fachryxyf/felisa-userside/pkg/database"
	"github.com/Fachryxyf/felisa-userside/pkg/health"
	"github.com/Fachryxyf/felisa-userside/pkg/httpclient"
	pkgkafka "github.com/Fachryxyf/felisa-userside/pkg/kafka"
	"github.com/Fachryxyf/felisa-userside/pkg/middleware"
	"github.com/Fachryxyf/felisa-userside/pkg/tracing"
)

// App wires together all dependencies and runs the review service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    handler.ServiceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{
		cfg:            cfg,
		logger:         logger,
		tracerShutdown: tracerShutdown,
	}
	healthHandler := health.NewHandler(handler.ServiceName)

	// Session store and submit guard.
	var (
		sessions repository.SessionRepository
		guard    repository.SubmitGuard
	)
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		redisCfg := database.DefaultRedisConfig()
		redisCfg.Addr = cfg.RedisAddr
		redisCfg.Password = cfg.RedisPass
		redisCfg.DB = cfg.RedisDB

		rdb, err := database.NewRedisClient(ctx, redisCfg)
		if err != nil {
			_ = tracerShutdown(context.Background())
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		a.rdb = rdb

		sessions = redisrepo.NewSessionRepository(rdb, cfg.SessionTTL())
		// A guard outlives its request by at most the request deadline, so a
		// crashed replica cannot lock a session forever.
		guard = redisrepo.NewSubmitGuard(rdb, cfg.RequestTimeout)
		healthHandler.RegisterCritical("session-store", database.RedisChecker(rdb))
	default:
		sessions = memoryrepo.NewSessionRepository(cfg.SessionTTL())
		guard = memoryrepo.NewSubmitGuard()
		logger.Info("using in-memory session store")
	}

	// Kafka producer for review lifecycle events.
	var publisher pkgkafka.Publisher = pkgkafka.NopPublisher{}
	if cfg.KafkaEnabled {
		producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		a.producer = producer
		publisher = producer
		healthHandler.RegisterNonCritical("kafka", producer.Ping)
	}
	eventProducer := event.NewProducer(publisher, logger)

	// Avatar uploader.
	var (
		uploader     storage.Uploader
		mediaHandler http.Handler
	)
	if cfg.UseCloudinary() {
		mediaClient := newBreakerClient("cloudinary", cfg.UploadTimeout, cloudinary.CircuitOpenFallback, logger)
		uploader = cloudinary.New(mediaClient, cloudinary.Config{
			APIBase:      cfg.CloudinaryAPIBase,
			CloudName:    cfg.CloudinaryCloudName,
			UploadPreset: cfg.CloudinaryUploadPreset,
		}, logger)
		logger.Info("cloudinary uploader initialized", slog.String("cloud_name", cfg.CloudinaryCloudName))
	} else {
		local := memorystorage.New(cfg.MediaBaseURL)
		uploader = local
		mediaHandler = local
		logger.Warn("CLOUDINARY_CLOUD_NAME not set, avatars are kept and served by this instance",
			slog.String("media_base_url", cfg.MediaBaseURL),
		)
	}

	// Review storage API.
	apiClient := newBreakerClient("review-api", cfg.ReviewAPITimeout, reviewapi.CircuitOpenFallback, logger)
	reviews := reviewapi.NewClient(apiClient, cfg.ReviewAPIBaseURL, logger)
	healthHandler.RegisterNonCritical("review-api", reviews.Ping)

	// Build the dependency graph.
	orchestrator := service.NewOrchestrator(guard, uploader, reviews, eventProducer, cfg.AvatarFolder, logger)
	sessionService := service.NewSessionService(sessions, guard, orchestrator, logger)
	feedService := service.NewFeedService(reviews, logger)

	// HTTP router.
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	corsCfg.Environment = cfg.Environment
	corsCfg.ExposedHeaders = append(corsCfg.ExposedHeaders, middleware.SessionIDHeader)

	router := handler.NewRouter(sessionService, feedService, healthHandler, logger, handler.RouterOptions{
		PprofCIDRs:       cfg.PprofAllowedCIDRs,
		CORS:             corsCfg,
		FeedCacheSeconds: cfg.FeedCacheSeconds,
		RequestTimeout:   cfg.RequestTimeout,
		Media:            mediaHandler,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       cfg.UploadTimeout,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// newBreakerClient builds an HTTP client for one upstream, guarded by its own
// circuit breaker.
func newBreakerClient(name string, timeout time.Duration, fallback httpclient.FallbackFunc, logger *slog.Logger) *httpclient.CircuitBreakerClient {
	clientCfg := httpclient.DefaultConfig()
	clientCfg.Timeout = timeout

	cbCfg := httpclient.DefaultCircuitBreakerConfig(name)
	client := httpclient.NewCircuitBreakerClient(httpclient.New(clientCfg), cbCfg, logger).
		WithFallback(fallback)
	logger.Info("circuit breaker initialized",
		slog.String("name", cbCfg.Name),
		slog.Uint64("max_requests", uint64(cbCfg.MaxRequests)),
		slog.Duration("timeout", cbCfg.Timeout),
		slog.Uint64("min_requests", uint64(cbCfg.MinRequests)),
	)
	return client
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: HTTP server (in-flight
// submissions finish), tracer, Kafka producer, Redis client.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.RequestTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}

	a.logger.Info("application shutdown complete")
	return nil
}
