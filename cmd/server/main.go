package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	cartapp "github.com/storefront/backend/internal/application/cart"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	identityapp "github.com/storefront/backend/internal/application/identity"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/event"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"github.com/storefront/backend/internal/infrastructure/scheduler"
	"github.com/storefront/backend/internal/infrastructure/storage"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const version = "1.0.0"

//	@title			Storefront API
//	@version		1.0
//	@description	Storefront backend: catalog, cart, checkout, orders and admin

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// The OTLP log bridge needs a logger to report its own setup, so the root
	// logger is rebuilt with the bridge core once the provider exists.
	logProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	if logProvider.IsEnabled() {
		if log, err = logger.New(logCfg, logProvider.Core(logger.ParseLevel(cfg.Log.Level))); err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting storefront backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	meter := meterProvider.Meter(telemetry.MeterName)

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log, cfg.Telemetry.DBLogFullSQL)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Database.Driver == "sqlite" {
		// SQL migrations target postgres; a local sqlite file gets its schema from the models
		if err := db.DB.AutoMigrate(models.All()...); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}
	if _, err := telemetry.InstrumentDB(db.DB, telemetry.DBOptions{
		Tracing:       cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:    cfg.Telemetry.DBLogFullSQL,
		SlowThreshold: cfg.Database.SlowThreshold,
		Meter:         meterIf(cfg.Telemetry.MetricsEnabled, meterProvider),
		Logger:        log,
	}); err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			_ = redisClient.Close()
		}()
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	// Event bus: order events go to metrics and, when enabled, to Kafka
	bus := event.NewInMemoryEventBus(log)
	storeMetrics, err := telemetry.NewStoreMetrics(meter, log)
	if err != nil {
		log.Fatal("Failed to create storefront metrics", zap.Error(err))
	}
	bus.Subscribe(storeMetrics)
	if cfg.Kafka.Enabled {
		writer, err := event.NewKafkaWriter(cfg.Kafka, log)
		if err != nil {
			log.Fatal("Failed to create Kafka writer", zap.Error(err))
		}
		forwarder := event.NewKafkaForwarder(writer, cfg.App.Name, log)
		bus.Subscribe(forwarder)
		defer func() {
			if err := forwarder.Close(); err != nil {
				log.Error("Error closing Kafka writer", zap.Error(err))
			}
		}()
		log.Info("Order events forwarded to Kafka", zap.String("topic", cfg.Kafka.Topic))
	}
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	mediaRepo := persistence.NewGormMediaRepository(db.DB)
	recentlyViewedRepo := persistence.NewGormRecentlyViewedRepository(db.DB)
	cartRepo := persistence.NewGormCartRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Redis-backed stores fall back to in-process ones for single-node setups
	var (
		blacklist    auth.TokenBlacklist
		idempotency  shared.IdempotencyStore
		productCache catalogapp.ProductCache
	)
	if redisClient != nil {
		blacklist = auth.NewRedisTokenBlacklist(redisClient)
		idempotency = cache.NewRedisIdempotencyStore(redisClient, "storefront:checkout:")
		productCache = cache.NewRedisJSONCache(redisClient, "storefront:product", log)
	} else {
		blacklist = auth.NewInMemoryTokenBlacklist()
		memIdempotency := cache.NewInMemoryIdempotencyStore()
		defer func() {
			_ = memIdempotency.Close()
		}()
		idempotency = memIdempotency
		productCache = cache.NewInMemoryJSONCache(1000)
	}

	objectStorage, err := newObjectStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT)

	// Application services
	mediaService := catalogapp.NewMediaService(mediaRepo, productRepo, objectStorage, bus, log)
	recentlyViewedService := catalogapp.NewRecentlyViewedService(recentlyViewedRepo, productRepo, cfg.Catalog.RecentlyViewedLimit, log)
	productService := catalogapp.NewProductService(productRepo, categoryRepo, bus, log,
		catalogapp.WithProductCache(productCache, cfg.Catalog.ProductCacheTTL),
		catalogapp.WithViewRecorder(recentlyViewedService),
		catalogapp.WithMediaLister(mediaService),
	)
	categoryService := catalogapp.NewCategoryService(categoryRepo, productRepo, bus, log)

	cartService := cartapp.NewCartService(cartRepo, productRepo, txScope,
		cartapp.ServiceConfig{MaxQuantityPerItem: cfg.Cart.MaxQuantityPerItem}, log)
	cartService.SetStoreMetrics(storeMetrics)

	orderService := orderapp.NewOrderService(orderRepo, txScope, idempotency, bus,
		orderapp.ServiceConfig{IdempotencyTTL: cfg.Order.IdempotencyTTL}, log)
	orderService.SetStoreMetrics(storeMetrics)
	adminOrderService := orderapp.NewAdminOrderService(orderRepo, txScope, bus, log)

	authService := identityapp.NewAuthService(userRepo, jwtService, blacklist, bus, identityapp.AuthServiceConfig{
		MaxLoginAttempts: cfg.Auth.MaxLoginAttempts,
		LockDuration:     cfg.Auth.LockDuration,
	}, log)
	authService.OnGuestSignIn("cart", func(ctx context.Context, sessionID string, userID uuid.UUID) error {
		_, err := cartService.MergeGuest(ctx, sessionID, userID)
		return err
	})
	authService.OnGuestSignIn("recently_viewed", recentlyViewedService.MergeGuest)
	userService := identityapp.NewUserService(userRepo, jwtService, blacklist, bus, log)

	// HTTP engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	} else if err := engine.SetTrustedProxies(nil); err != nil {
		log.Fatal("Failed to disable trusted proxies", zap.Error(err))
	}

	engine.Use(middleware.RequestID(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.SpanErrorMarker())
	if cfg.Telemetry.MetricsEnabled {
		engine.Use(middleware.HTTPMetrics(meter, log))
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.Secure())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Close()
		engine.Use(middleware.RateLimit(rateLimiter))
	}
	if cfg.HTTP.RequestTimeout > 0 {
		engine.Use(middleware.Timeout(cfg.HTTP.RequestTimeout))
	}

	checks := map[string]handler.HealthCheck{"database": db.Ping}
	if redisClient != nil {
		checks["cache"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, checks)
	engine.GET("/health", systemHandler.Health)
	engine.GET("/ready", systemHandler.Ready)

	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: blacklist,
		Logger:         log,
	}
	guards := router.Guards{
		RequireAuth:  middleware.RequireAuth(jwtConfig),
		OptionalAuth: middleware.OptionalAuth(jwtConfig),
		RequireAdmin: middleware.RequireAdmin(),
	}
	if cfg.HTTP.AuthRateLimitEnabled {
		authLimiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		defer authLimiter.Close()
		guards.AuthRateLimit = middleware.AuthRateLimit(authLimiter)
	}

	groups := router.StorefrontGroups(router.Handlers{
		Auth:           handler.NewAuthHandler(authService),
		Product:        handler.NewProductHandler(productService),
		Media:          handler.NewProductMediaHandler(mediaService),
		Category:       handler.NewCategoryHandler(categoryService),
		RecentlyViewed: handler.NewRecentlyViewedHandler(recentlyViewedService),
		Cart:           handler.NewCartHandler(cartService),
		Order:          handler.NewOrderHandler(orderService),
		AdminOrder:     handler.NewAdminOrderHandler(adminOrderService),
		User:           handler.NewUserHandler(userService),
		System:         systemHandler,
	}, guards)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	for _, g := range groups {
		r.Register(g)
		log.Debug("Route group registered", zap.String("group", g.Name()), zap.Int("routes", len(g.Routes(r.BasePath()))))
	}
	r.Setup()

	stopHousekeeping, err := startHousekeeping(ctx, cfg.Housekeeping, cartRepo, recentlyViewedRepo, log)
	if err != nil {
		log.Fatal("Failed to start housekeeping", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := stopHousekeeping(shutdownCtx); err != nil {
		log.Error("Error stopping housekeeping", zap.Error(err))
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newObjectStorage returns S3 storage when enabled, otherwise a stub that
// hands out URLs under the public base URL.
func newObjectStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (catalogapp.ObjectStorageService, error) {
	if !cfg.Storage.Enabled {
		log.Warn("Object storage disabled, media URLs are not backed by a bucket")
		return storage.NewStubObjectStorage(cfg.Storage.PublicBaseURL), nil
	}
	s3Storage, err := storage.NewS3ObjectStorage(ctx, &cfg.Storage, storage.WithLogger(log))
	if err != nil {
		return nil, err
	}
	if err := s3Storage.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	log.Info("Object storage ready", zap.String("bucket", s3Storage.Bucket()))
	return s3Storage, nil
}

// startHousekeeping runs the nightly guest cart and history cleanup.
// The returned func stops the trigger and then the workers.
func startHousekeeping(
	ctx context.Context,
	cfg config.HousekeepingConfig,
	carts scheduler.GuestCartPruner,
	history scheduler.HistoryPruner,
	log *zap.Logger,
) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	hour, minute, err := scheduler.ParseSchedule(cfg.Schedule)
	if err != nil {
		return nil, err
	}

	jobs := scheduler.NewScheduler(scheduler.Config{
		Workers:       cfg.Workers,
		JobTimeout:    cfg.JobTimeout,
		RetryAttempts: cfg.RetryAttempts,
		RetryDelay:    cfg.RetryDelay,
	}, scheduler.NewHousekeepingExecutor(carts, history), log.Named("housekeeping"))
	trigger := scheduler.NewDailyTrigger(scheduler.DailyTriggerConfig{
		Hour:              hour,
		Minute:            minute,
		CheckInterval:     cfg.CheckInterval,
		GuestCartTTL:      cfg.GuestCartTTL,
		RecentlyViewedTTL: cfg.RecentlyViewedTTL,
	}, jobs, log.Named("housekeeping"))

	if err := jobs.Start(ctx); err != nil {
		return nil, err
	}
	if err := trigger.Start(ctx); err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		return errors.Join(trigger.Stop(ctx), jobs.Stop(ctx))
	}, nil
}

func meterIf(enabled bool, mp *telemetry.MeterProvider) metric.Meter {
	if !enabled {
		return nil
	}
	return mp.Meter(telemetry.MeterName)
}
