package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/kursadbilgin/faultline/internal/config"
	"github.com/kursadbilgin/faultline/internal/handler"
	"github.com/kursadbilgin/faultline/internal/infra/postgresql"
	"github.com/kursadbilgin/faultline/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/faultline/internal/infra/redis"
	"github.com/kursadbilgin/faultline/internal/observability"
	"github.com/kursadbilgin/faultline/internal/provider"
	"github.com/kursadbilgin/faultline/internal/queue"
	"github.com/kursadbilgin/faultline/internal/render"
	"github.com/kursadbilgin/faultline/internal/repository"
	"github.com/kursadbilgin/faultline/internal/service"
	"github.com/kursadbilgin/faultline/internal/template"
	"github.com/kursadbilgin/faultline/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

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

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("faultline api stopped with error", zap.Error(err))
	}
	logger.Info("faultline api stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	host := observability.HostIdentifier(cfg.Host)
	metrics := observability.NewMetrics()

	db, err := postgresql.NewPostgres(ctx, cfg.DatabaseDSN, postgresql.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("postgres initialization failed: %w", err)
	}
	if err := migrations.Migrate(db); err != nil {
		return fmt.Errorf("database migrations failed: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("postgres underlying db init failed: %w", err)
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis initialization failed: %w", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	records := repository.NewGormErrorRecordRepo(db)
	notifications := repository.NewGormNotificationLogRepo(db)
	params := repository.NewGormParamRepo(db)

	templates, err := template.NewCache(repository.NewGormTemplateRepo(db), metrics, logger)
	if err != nil {
		return err
	}

	envAddr := cfg.EnvName
	if envAddr == "" {
		envAddr = host
	}
	renderer, err := render.NewRenderer(render.Options{
		AppName:       cfg.AppName,
		EnvAddr:       envAddr,
		SubjectPrefix: cfg.SubjectPrefix,
	})
	if err != nil {
		return err
	}

	mailer, err := provider.NewHTTPMailGateway(params, provider.GatewayConfig{
		EndpointParam: cfg.MailEndpointParam,
		FallbackURL:   cfg.MailGatewayURL,
		From:          cfg.MailFrom,
	}, logger)
	if err != nil {
		return err
	}

	publisher, err := queue.NewRabbitMQPublisher(cfg.RabbitMQURL, metrics, logger)
	if err != nil {
		return err
	}

	deps := service.CoordinatorDeps{
		Records:       records,
		Notifications: notifications,
		Templates:     templates,
		Renderer:      renderer,
		Mailer:        mailer,
		Publisher:     publisher,
		Metrics:       metrics,
	}
	if rdb != nil {
		limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.MailRateLimit, cfg.MailRateWindow())
		if err != nil {
			return err
		}
		deps.RateLimiter = limiter
	} else {
		logger.Warn("redis not configured, recipient rate limiting disabled")
	}

	coordinator, err := service.NewCoordinator(deps, service.CoordinatorConfig{
		Host:                   host,
		DefaultTemplateID:      cfg.DefaultTemplateID,
		ReportQueue:            cfg.ReportQueue,
		EventsQueue:            cfg.EventsQueue,
		PublishPersistedEvents: cfg.PublishPersistedEvents,
		StorageTimeout:         cfg.StorageTimeout,
		MailTimeout:            cfg.MailTimeout,
		QueueTimeout:           cfg.QueueTimeout,
	}, logger)
	if err != nil {
		return err
	}

	broker, err := queue.NewRabbitMQ(ctx, cfg.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("rabbitmq initialization failed: %w", err)
	}
	consumer := queue.NewRabbitMQConsumer(broker, cfg.WorkerPrefetch, logger)
	defer consumer.Close() //nolint:errcheck

	worker, err := service.NewWorkerService(consumer, coordinator, cfg.ReportQueue, cfg.WorkerConcurrency, logger)
	if err != nil {
		return err
	}

	// Warm the cache so /readyz reflects template availability from the start.
	if _, ok := templates.Get(ctx, cfg.DefaultTemplateID); !ok {
		logger.Warn("default notification template not available, layout fallback in use",
			zap.String("templateId", cfg.DefaultTemplateID),
		)
	}

	app := fiber.New(fiber.Config{
		AppName:      "faultline",
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	handler.RegisterHealthRoutes(app, handler.HealthDeps{
		DB:        sqlDB,
		Redis:     rdb,
		Templates: templates,
		Broker:    broker,
	})
	if err := handler.RegisterErrorRoutes(app, coordinator, records); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return worker.Start(gctx)
	})

	g.Go(func() error {
		logger.Info("faultline api started",
			zap.Int("port", cfg.APIPort),
			zap.String("host", host),
			zap.String("reportQueue", cfg.ReportQueue),
		)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down faultline api")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
