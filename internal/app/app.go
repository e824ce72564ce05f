package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/utafrali/LibraryGo/internal/auth"
	"github.com/utafrali/LibraryGo/internal/config"
	"github.com/utafrali/LibraryGo/internal/event"
	handler "github.com/utafrali/LibraryGo/internal/handler/http"
	"github.com/utafrali/LibraryGo/internal/repository/postgres"
	"github.com/utafrali/LibraryGo/internal/repository/redis"
	"github.com/utafrali/LibraryGo/internal/seed"
	"github.com/utafrali/LibraryGo/internal/service"
	"github.com/utafrali/LibraryGo/migrations"
	"github.com/utafrali/LibraryGo/pkg/database"
	"github.com/utafrali/LibraryGo/pkg/health"
	pkgkafka "github.com/utafrali/LibraryGo/pkg/kafka"
	"github.com/utafrali/LibraryGo/pkg/middleware"
	"github.com/utafrali/LibraryGo/pkg/tracing"
)

// ServiceName labels logs, metrics and traces.
const ServiceName = "library"

const serviceVersion = "0.1.0"

// App wires together all dependencies and runs the library service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	publisher      pkgkafka.Publisher
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
	stopBackground context.CancelFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var undo cleanupStack
	defer func() {
		if err != nil {
			undo.unwind(logger)
		}
	}()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    ServiceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	undo.push("tracer", tracerShutdown)

	pool, err := OpenDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	undo.push("postgres", func(context.Context) error {
		pool.Close()
		return nil
	})
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, ServiceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Initialize Redis for the logout denylist.
	redisClient, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	undo.push("redis", func(context.Context) error { return redisClient.Close() })
	logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))

	// Initialize the event publisher.
	var publisher pkgkafka.Publisher = pkgkafka.NopPublisher{}
	var kafkaProducer *pkgkafka.Producer
	if cfg.KafkaEnabled {
		kafkaProducer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = event.NewBreakingPublisher(kafkaProducer, event.DefaultCircuitBreakerConfig("kafka"), logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Info("kafka disabled, domain events are dropped")
	}

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(cfg.JWTKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTExpiry)
	bookRepo := postgres.NewBookRepository(pool)
	reviewRepo := postgres.NewReviewRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	revocationStore := redis.NewRevocationStore(redisClient)
	eventProducer := event.NewProducer(publisher, logger)

	catalogService := service.NewCatalogService(bookRepo, reviewRepo, eventProducer, service.CatalogConfig{
		CheckoutPeriod: cfg.CheckoutPeriod,
		FeaturedLimit:  cfg.FeaturedLimit,
	}, logger)
	userService := service.NewUserService(userRepo, revocationStore, jwtManager, eventProducer, logger)
	authenticator := auth.NewAuthenticator(jwtManager, revocationStore, logger)

	if cfg.SeedOnStart {
		if _, err := seed.NewSeeder(bookRepo, logger).Seed(ctx, seed.DefaultCount, false); err != nil {
			logger.Error("seeding catalog failed", slog.String("error", err.Error()))
		}
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	if kafkaProducer != nil {
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return kafkaProducer.Ping(ctx)
		})
	}

	trustedProxies, err := middleware.ParseTrustedProxies(cfg.AuthTrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}

	// The limiter's sweeper lives until Shutdown.
	bgCtx, stopBackground := context.WithCancel(context.Background())
	authLimiter := middleware.NewRateLimiter(bgCtx, middleware.RateLimitConfig{
		RPS:            cfg.AuthRateLimitRPS,
		Burst:          cfg.AuthRateLimitBurst,
		TrustedProxies: trustedProxies,
	}, logger)

	// HTTP router.
	router := handler.NewRouter(catalogService, userService, authenticator.Validate, healthHandler, handler.RouterConfig{
		ServiceName: ServiceName,
		CORSOrigin:  cfg.CORSAllowedOrigin,
		AuthLimiter: authLimiter,
	}, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		publisher:      publisher,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
		stopBackground: stopBackground,
	}, nil
}

// OpenDatabase connects to PostgreSQL with the configured pool settings.
func OpenDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	return pool, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer
// 4. Redis client
// 5. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	a.stopBackground()

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Close the event publisher.
	if err := a.publisher.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 4. Close Redis.
	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 5. Close PostgreSQL pool.
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
