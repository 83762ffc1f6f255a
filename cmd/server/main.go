package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/vitrina-voz/internal/adapter/cache"
	"github.com/seu-repo/vitrina-voz/internal/adapter/catalog"
	"github.com/seu-repo/vitrina-voz/internal/adapter/events"
	"github.com/seu-repo/vitrina-voz/internal/adapter/http/fiber/handlers"
	"github.com/seu-repo/vitrina-voz/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/vitrina-voz/internal/adapter/queue"
	"github.com/seu-repo/vitrina-voz/internal/adapter/storage/kv"
	"github.com/seu-repo/vitrina-voz/internal/adapter/storage/postgres"
	wsAdapter "github.com/seu-repo/vitrina-voz/internal/adapter/websocket"
	"github.com/seu-repo/vitrina-voz/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/vitrina-voz/internal/observability/telemetry"
	"github.com/seu-repo/vitrina-voz/internal/ports"
	"github.com/seu-repo/vitrina-voz/internal/service/health"
	"github.com/seu-repo/vitrina-voz/internal/service/storefront"
	"github.com/seu-repo/vitrina-voz/internal/service/voice"
	"github.com/seu-repo/vitrina-voz/pkg/config"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	// 2. Initialize Logger
	logger, err := telemetry.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	defer logger.Sync()

	logger.Info("Starting vitrina-voz",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.String("catalog", cfg.Catalog.Backend),
	)

	// 3. Initialize OpenTelemetry (Distributed Tracing)
	if cfg.OpenTelemetry.Enabled {
		tp, err := telemetry.InitTracer(context.Background(), cfg.OpenTelemetry.ServiceName, cfg.App.Version, cfg.OpenTelemetry.Endpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("Error shutting down tracer provider", zap.Error(err))
			}
		}()
	}

	healthService := health.NewService(cfg.App.Version, logger)

	// 4. Cache (Redis, falling back to memory)
	kvCache := newCache(cfg, logger)
	defer kvCache.Close()
	healthService.RegisterChecker("cache", health.PingChecker("cache", false, func(ctx context.Context) error {
		return kvCache.Ping()
	}))

	// 5. Product catalog
	breakers := circuitbreaker.NewManager(logger)
	searcher, db, err := newSearcher(cfg, kvCache, breakers, logger)
	if err != nil {
		logger.Fatal("Failed to initialize catalog", zap.Error(err))
	}
	if db != nil {
		defer postgres.Close(db)
		healthService.RegisterChecker("database", health.PingChecker("database", false, func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}))
	}
	healthService.RegisterChecker("catalog", health.PingChecker("catalog", true, func(ctx context.Context) error {
		if breakers.AnyOpen() {
			return fmt.Errorf("circuit open")
		}
		return nil
	}))

	// 6. Event bus, websocket hub and NATS fan-out
	bus := events.NewBus(logger)
	wsHub := wsAdapter.NewHub(logger)
	bus.Subscribe(wsHub.Deliver)

	if cfg.NATS.Enabled {
		mq, err := queue.NewNATSQueue(cfg.NATS.URL, cfg.App.Name, logger)
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer mq.Close()
		bus.Subscribe(queue.NewEventForwarder(mq, cfg.NATS.SubjectPrefix, logger).Handle)
		healthService.RegisterChecker("nats", health.PingChecker("nats", true, func(ctx context.Context) error {
			return mq.Ping()
		}))
	}

	// 7. Storefront clients
	manager := storefront.NewManager(
		kv.NewCartStore(kvCache, cfg.Cache.CartTTL, logger),
		searcher,
		bus,
		voice.Config{
			MaxCandidates: cfg.Catalog.MaxCandidates,
			QueueSize:     cfg.Voice.QueueSize,
			UsageHint:     cfg.Voice.UsageHint,
		},
		logger,
	)
	manager.StartSweeper(cfg.Voice.SweepInterval, cfg.Voice.IdleTimeout)

	// 8. Initialize Fiber HTTP Server
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		ServerHeader:          cfg.App.Name,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		IdleTimeout:           cfg.HTTP.IdleTimeout,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	// Global Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	if cfg.CORS.Enabled {
		app.Use(middleware.NewCORS(cfg.CORS))
	}

	health.NewFiberHandler(healthService).RegisterRoutes(app)

	if cfg.Prometheus.Enabled {
		metrics := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
		app.Get(cfg.Prometheus.Path, func(c *fiber.Ctx) error {
			metrics(c.Context())
			return nil
		})
	}

	// API v1 Routes
	v1 := app.Group("/api/v1", middleware.ClientIdentity())
	if cfg.RateLimiting.Enabled {
		v1.Use(middleware.RateLimit(cfg.RateLimiting.MaxRequests, cfg.RateLimiting.Window))
	}
	if cfg.CircuitBreaker.Enabled {
		v1.Use(middleware.CircuitBreaker(cfg.App.Name+"-api", logger))
	}
	handlers.Register(v1, handlers.NewVoiceHandler(manager, logger), handlers.NewCartHandler(manager, logger))

	// Voice streaming WebSocket
	if cfg.FeatureFlags.VoiceAssistant {
		app.Use("/ws", middleware.ClientIdentity())
		voiceStreamHandler := wsAdapter.NewVoiceStreamHandler(manager, wsHub, cfg.RecognizerLanguage(), logger)
		wsAdapter.SetupVoiceRoutes(app, voiceStreamHandler)
	}

	// 9. Start HTTP Server
	go func() {
		logger.Info("Starting HTTP Server", zap.Int("port", cfg.HTTP.Port))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP Server failed", zap.Error(err))
		}
	}()

	// 10. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	manager.Close()

	logger.Info("Server exited gracefully")
}

func newCache(cfg *config.Config, logger *zap.Logger) ports.Cache {
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.URL, cfg.Redis.KeyPrefix, logger)
		if err == nil {
			return redisCache
		}
		logger.Warn("Redis unavailable, using in-memory cache", zap.Error(err))
	}
	return cache.NewLocalCache(cfg.Cache.CleanupInterval, logger)
}

// newSearcher builds the configured catalog backend behind the search cache.
// The returned *gorm.DB is non-nil only for the postgres backend.
func newSearcher(cfg *config.Config, kvCache ports.Cache, breakers *circuitbreaker.Manager, logger *zap.Logger) (ports.ProductSearcher, *gorm.DB, error) {
	var (
		backend ports.ProductSearcher
		db      *gorm.DB
	)

	switch cfg.Catalog.Backend {
	case config.CatalogHTTP:
		breaker := breakers.Get("catalog", circuitbreaker.Settings{
			MaxRequests:      cfg.CircuitBreaker.MaxRequests,
			Interval:         cfg.CircuitBreaker.Interval,
			Timeout:          cfg.CircuitBreaker.Timeout,
			FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
		})
		client := circuitbreaker.NewHTTPClient(&http.Client{Timeout: cfg.Catalog.Timeout}, breaker, logger)
		s, err := catalog.NewHTTPSearcher(cfg.Catalog.BaseURL, client, cfg.Catalog.MaxCandidates, logger)
		if err != nil {
			return nil, nil, err
		}
		backend = s

	case config.CatalogPostgres:
		conn, err := postgres.NewConnection(cfg.Database.URL, postgres.PoolConfig{
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := postgres.RunMigrations(conn); err != nil {
				postgres.Close(conn)
				return nil, nil, err
			}
		}
		db = conn
		backend = catalog.NewRepositorySearcher(postgres.NewProductRepository(conn, logger), cfg.Catalog.MaxCandidates)

	default:
		backend = catalog.NewMemorySearcher(catalog.DemoProducts(), cfg.Catalog.MaxCandidates)
		return backend, nil, nil
	}

	return catalog.NewCachedSearcher(backend, kvCache, cfg.Cache.SearchTTL, logger), db, nil
}
