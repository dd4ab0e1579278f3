package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"github.com/homewatt/homewatt/internal/adapter/cache"
	"github.com/homewatt/homewatt/internal/adapter/http/fiber/handlers"
	"github.com/homewatt/homewatt/internal/adapter/http/fiber/middleware"
	"github.com/homewatt/homewatt/internal/adapter/queue"
	"github.com/homewatt/homewatt/internal/adapter/storage/postgres"
	"github.com/homewatt/homewatt/internal/adapter/vault"
	"github.com/homewatt/homewatt/internal/adapter/weather/openmeteo"
	wsAdapter "github.com/homewatt/homewatt/internal/adapter/websocket"
	"github.com/homewatt/homewatt/internal/domain"
	"github.com/homewatt/homewatt/internal/observability/telemetry"
	"github.com/homewatt/homewatt/internal/ports"
	"github.com/homewatt/homewatt/internal/service/assets"
	"github.com/homewatt/homewatt/internal/service/auth"
	"github.com/homewatt/homewatt/internal/service/health"
	"github.com/homewatt/homewatt/internal/service/metering"
	"github.com/homewatt/homewatt/pkg/config"
)

const (
	serviceName    = "homewatt"
	serviceVersion = "v1.0.0"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	logger.Info("Starting HomeWatt live metering engine",
		zap.String("service", serviceName),
		zap.String("version", serviceVersion),
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Vault overrides the static config when enabled.
	if cfg.Vault.Enabled {
		sm, err := vault.NewSecretManager(cfg.Vault.Address, cfg.Vault.Token)
		if err != nil {
			logger.Fatal("Failed to connect to Vault", zap.Error(err))
		}
		if url, err := sm.GetDatabaseURL(); err == nil {
			cfg.Database.URL = url
		} else {
			logger.Warn("Vault database secret unavailable", zap.Error(err))
		}
		if secret, err := sm.GetJWTSecret(); err == nil {
			cfg.JWT.Secret = secret
		} else {
			logger.Warn("Vault jwt secret unavailable", zap.Error(err))
		}
		if password, err := sm.GetRedisPassword(); err == nil {
			cfg.Redis.Password = password
		} else {
			logger.Warn("Vault redis secret unavailable", zap.Error(err))
		}
	}

	if cfg.OpenTelemetry.Enabled {
		tracerProvider, err := telemetry.InitTracer(serviceName, serviceVersion, cfg.OpenTelemetry.Jaeger.Endpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			if err := tracerProvider.Shutdown(context.Background()); err != nil {
				logger.Error("Error shutting down tracer provider", zap.Error(err))
			}
		}()
	}

	db, err := postgres.NewConnection(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("Failed to get underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	// The cache tier is optional at startup: with Redis down the engine
	// runs on the in-process cache until the next restart.
	appCache, err := cache.NewRedisCache(cfg.Redis.URL, cfg.Redis.Password, logger)
	if err != nil {
		logger.Warn("Redis unavailable, falling back to local cache", zap.Error(err))
		appCache = cache.NewLocalCache(time.Minute, logger)
	}
	defer appCache.Close()

	messageQueue, err := queue.New(cfg.Queue.Driver, cfg.Queue.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to message queue", zap.Error(err))
	}
	defer messageQueue.Close()

	profileRepo := postgres.NewProfileRepository(db, logger)
	systemRepo := postgres.NewEnergySystemRepository(db, logger)
	batteryRepo := postgres.NewBatteryRepository(db, logger)
	deviceRepo := postgres.NewDeviceRepository(db, logger)

	assetService := assets.NewService(profileRepo, systemRepo, batteryRepo, deviceRepo, appCache, messageQueue, logger)
	authService := auth.NewService(cfg.JWT.Secret, appCache, logger)

	weatherClient := openmeteo.NewClient(logger,
		openmeteo.WithBaseURL(cfg.Weather.BaseURL),
		openmeteo.WithRetries(cfg.Weather.MaxRetries, 500*time.Millisecond),
	)

	wsHub := wsAdapter.NewHub()
	go wsHub.Run()

	meteringService := metering.NewService(
		assetService,
		weatherClient,
		appCache,
		wsHub,
		cfg.Simulation.TimeStepMinutes/60,
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler := metering.NewScheduler(wsHub, meteringService, cfg.Simulation.TickInterval, logger)
	go scheduler.Run(ctx)

	startEventWorkers(messageQueue, meteringService, logger)

	healthService := health.NewService(&health.Config{
		Version: serviceVersion,
		DB:      sqlDB,
		Redis:   redisClient(appCache),
		Queue:   messageQueue,
	}, logger)

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	if cfg.CORS.Enabled {
		app.Use(middleware.NewCORS(cfg.CORS))
	}

	health.NewFiberHandler(healthService).RegisterRoutes(app)

	if cfg.Prometheus.Enabled {
		app.Get(cfg.Prometheus.Path, func(c *fiber.Ctx) error {
			handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
			handler(c.Context())
			return nil
		})
	}

	v1 := app.Group("/api/v1")
	protected := v1.Group("", middleware.AuthRequired(authService))

	deviceHandler := handlers.NewDeviceHandler(assetService, logger)
	protected.Get("/devices", deviceHandler.List)
	protected.Patch("/devices/:id/state", deviceHandler.SetState)

	batteryHandler := handlers.NewBatteryHandler(assetService, logger)
	protected.Get("/battery", batteryHandler.Get)
	protected.Post("/battery", batteryHandler.Attach)
	protected.Delete("/battery", batteryHandler.Detach)

	sessionHandler := handlers.NewSessionHandler(authService, assetService, logger)
	protected.Post("/session/logout", sessionHandler.Logout)

	liveHandler := handlers.NewLiveHandler(wsHub, authService, meteringService, logger)
	app.Get("/ws/live", liveHandler.Upgrade, liveHandler.Stream())

	go func() {
		logger.Info("Starting HTTP Server", zap.Int("port", cfg.HTTP.Port))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
			logger.Fatal("HTTP Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited gracefully")
}

// startEventWorkers re-runs the metering pipeline whenever an asset
// mutation is published. The debounce cache absorbs bursts; a run that
// finds another in flight is simply skipped.
func startEventWorkers(mq queue.MessageQueue, meteringService ports.MeteringService, logger *zap.Logger) {
	recompute := func(msg []byte) error {
		var event assets.ChangeEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			return fmt.Errorf("decode change event: %w", err)
		}
		err := meteringService.ComputeAndPublish(context.Background(), event.AccountID)
		if err != nil && !errors.Is(err, domain.ErrComputationInFlight) {
			return err
		}
		return nil
	}

	for _, subject := range []string{assets.SubjectDevicesChanged, assets.SubjectBatteryChanged} {
		if err := mq.Subscribe(subject, recompute); err != nil {
			logger.Error("Failed to subscribe to mutation events", zap.String("subject", subject), zap.Error(err))
		}
	}
}

func redisClient(c ports.Cache) *redis.Client {
	if rc, ok := c.(*cache.RedisCache); ok {
		return rc.Client()
	}
	return nil
}
