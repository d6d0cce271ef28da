package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cyperhq/integration-engine/internal/analytics"
	"github.com/cyperhq/integration-engine/internal/config"
	"github.com/cyperhq/integration-engine/internal/handler"
	"github.com/cyperhq/integration-engine/internal/infra/postgresql"
	"github.com/cyperhq/integration-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/cyperhq/integration-engine/internal/infra/redis"
	"github.com/cyperhq/integration-engine/internal/mailer"
	"github.com/cyperhq/integration-engine/internal/notifier"
	"github.com/cyperhq/integration-engine/internal/observability"
	"github.com/cyperhq/integration-engine/internal/queue"
	"github.com/cyperhq/integration-engine/internal/repository"
	"github.com/cyperhq/integration-engine/internal/service"
	"github.com/cyperhq/integration-engine/internal/transport"
	"github.com/cyperhq/integration-engine/internal/vulnscan"
	"github.com/cyperhq/integration-engine/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()

	// Storage: in-memory by default, postgres when a DSN is configured.
	var (
		registry    webhook.Registry
		deliveryLog webhook.DeliveryLog
		sqlDB       *sql.DB
	)
	if cfg.DatabaseDSN != "" {
		db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
		if err != nil {
			logger.Fatal("postgres initialization failed", zap.Error(err))
		}
		if err := migrations.Migrate(db); err != nil {
			logger.Fatal("database migrations failed", zap.Error(err))
		}
		sqlDB, err = db.DB()
		if err != nil {
			logger.Fatal("postgres underlying db init failed", zap.Error(err))
		}
		defer sqlDB.Close()

		registry, err = repository.NewGormEndpointRepo(db, logger)
		if err != nil {
			logger.Fatal("endpoint repository init failed", zap.Error(err))
		}
		deliveryLog, err = repository.NewGormDeliveryLog(db, logger)
		if err != nil {
			logger.Fatal("delivery log init failed", zap.Error(err))
		}
	} else {
		logger.Info("no DATABASE_DSN configured, using in-memory registry and delivery log")
		registry = webhook.NewInMemoryRegistry()
		deliveryLog = webhook.NewInMemoryDeliveryLog()
	}

	webhookService, err := webhook.NewService(registry, deliveryLog, nil, logger)
	if err != nil {
		logger.Fatal("webhook service init failed", zap.Error(err))
	}
	webhookService.SetMetrics(metrics)

	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		rdb, err = infraredis.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis initialization failed", zap.Error(err))
		}
		defer rdb.Close()

		limiter, err := infraredis.NewDeliveryRateLimiter(rdb, cfg.RateLimitPerSec)
		if err != nil {
			logger.Fatal("rate limiter init failed", zap.Error(err))
		}
		webhookService.SetRateLimiter(limiter)
	}

	broker, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer broker.Close()

	publisher := queue.NewRabbitMQPublisher(broker)
	consumer := queue.NewRabbitMQConsumer(broker, cfg.WorkerConcurrency, logger)

	eventService, err := service.NewEventService(publisher, logger)
	if err != nil {
		logger.Fatal("event service init failed", zap.Error(err))
	}
	eventService.SetMetrics(metrics)

	worker, err := service.NewDispatchWorker(consumer, webhookService, cfg.WorkerConcurrency, logger)
	if err != nil {
		logger.Fatal("dispatch worker init failed", zap.Error(err))
	}
	worker.SetMetrics(metrics)

	slack := notifier.NewSlackNotifier(cfg.SlackWebhookURL, nil, logger)
	discord := notifier.NewDiscordNotifier(cfg.DiscordWebhookURL, nil, logger)
	pagerduty := notifier.NewPagerDutyNotifier(cfg.PagerDutyRoutingKey, nil, logger)
	worker.AddScanAlerter(slack)
	worker.AddScanAlerter(discord)
	worker.AddCriticalAlerter(slack)
	worker.AddCriticalAlerter(pagerduty)
	worker.SetBillingMailer(mailer.NewEmailService(cfg.SendGridAPIKey, cfg.FromEmail, nil, logger))

	analyticsService := analytics.NewService(cfg.AnalyticsEnabled, logger)
	collector := analytics.NewCollector(analyticsService)

	scanService, err := service.NewScanService(eventService, logger,
		vulnscan.NewSQLiTester(nil, logger),
		vulnscan.NewXSSTester(nil, logger),
	)
	if err != nil {
		logger.Fatal("scan service init failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:      "integration-engine",
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())

	// A typed-nil *redis.Client must not reach the interface parameter.
	var readinessRedis goredis.UniversalClient
	if rdb != nil {
		readinessRedis = rdb
	}
	handler.RegisterHealthRoutes(app, sqlDB, readinessRedis)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	if err := handler.RegisterWebhookRoutes(app, webhookService); err != nil {
		logger.Fatal("webhook routes init failed", zap.Error(err))
	}
	if err := handler.RegisterEventRoutes(app, eventService, scanService); err != nil {
		logger.Fatal("event routes init failed", zap.Error(err))
	}
	if err := handler.RegisterAnalyticsRoutes(app, analyticsService, collector); err != nil {
		logger.Fatal("analytics routes init failed", zap.Error(err))
	}

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("integration-engine api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	g.Go(func() error {
		return worker.Start(groupCtx)
	})

	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		return app.Shutdown()
	})

	if err := g.Wait(); err != nil {
		logger.Error("shutdown with error", zap.Error(err))
	}
	logger.Info("integration-engine stopped")
}
