package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/talentgrid/interview-engine/internal/channel"
	"github.com/talentgrid/interview-engine/internal/config"
	"github.com/talentgrid/interview-engine/internal/dispatch"
	"github.com/talentgrid/interview-engine/internal/handler"
	"github.com/talentgrid/interview-engine/internal/infra/postgresql"
	"github.com/talentgrid/interview-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/talentgrid/interview-engine/internal/infra/redis"
	"github.com/talentgrid/interview-engine/internal/observability"
	"github.com/talentgrid/interview-engine/internal/queue"
	"github.com/talentgrid/interview-engine/internal/repository"
	"github.com/talentgrid/interview-engine/internal/transport"
	"github.com/talentgrid/interview-engine/internal/workflow"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

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

	if err := run(cfg, logger); err != nil {
		logger.Fatal("interview-engine exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
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

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis initialization failed: %w", err)
	}
	defer rdb.Close()

	rateLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		return fmt.Errorf("rate limiter initialization failed: %w", err)
	}

	interviews := repository.NewGormInterviewRepo(db)
	notifications := repository.NewGormNotificationRepo(db)
	preferences := repository.NewGormPreferenceRepo(db)
	attempts := repository.NewGormAttemptRepo(db)
	broadcasts := repository.NewGormBroadcastRepo(db)
	dir := repository.NewGormDirectory(db)

	deliveryQueue := queue.NewMemory(cfg.QueueCapacity)
	defer deliveryQueue.Close() //nolint:errcheck

	smtpTransport, err := channel.NewGomailTransport(channel.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.EmailFrom,
		FromName: cfg.EmailFromName,
	})
	if err != nil {
		return fmt.Errorf("smtp transport initialization failed: %w", err)
	}
	emailer, err := channel.NewEmailAdapter(smtpTransport)
	if err != nil {
		return fmt.Errorf("email adapter initialization failed: %w", err)
	}
	pusher, err := channel.NewPushAdapter(cfg.PushGatewayURL)
	if err != nil {
		return fmt.Errorf("push adapter initialization failed: %w", err)
	}

	metrics := observability.NewMetrics()

	dispatcher, err := dispatch.NewDispatcher(notifications, broadcasts, dir, deliveryQueue, logger)
	if err != nil {
		return fmt.Errorf("dispatcher initialization failed: %w", err)
	}
	dispatcher.SetMetrics(metrics)

	worker, err := dispatch.NewDeliveryWorker(
		notifications, preferences, attempts, dir, deliveryQueue,
		emailer, pusher, rateLimiter, cfg.DeliveryConcurrency, logger,
	)
	if err != nil {
		return fmt.Errorf("delivery worker initialization failed: %w", err)
	}
	worker.SetMetrics(metrics)

	reminderWindow := time.Duration(cfg.ReminderWindowHours) * time.Hour
	reminderScanner, err := dispatch.NewReminderScanner(interviews, dir, dispatcher, 0, reminderWindow, 0, logger)
	if err != nil {
		return fmt.Errorf("reminder scanner initialization failed: %w", err)
	}

	retryScanner, err := dispatch.NewRetryScanner(notifications, deliveryQueue, 0, 0, logger)
	if err != nil {
		return fmt.Errorf("retry scanner initialization failed: %w", err)
	}

	engine, err := workflow.NewEngine(interviews, dir, dispatcher, logger)
	if err != nil {
		return fmt.Errorf("workflow engine initialization failed: %w", err)
	}
	engine.SetMetrics(metrics)

	queries, err := workflow.NewQueries(interviews)
	if err != nil {
		return fmt.Errorf("workflow queries initialization failed: %w", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(requestid.New())
	app.Use(correlationMiddleware())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	if err := handler.RegisterInterviewRoutes(app, engine, queries); err != nil {
		return fmt.Errorf("failed to register interview routes: %w", err)
	}
	if err := handler.RegisterNotificationRoutes(app, notifications); err != nil {
		return fmt.Errorf("failed to register notification routes: %w", err)
	}

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("interview-engine api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})
	g.Go(func() error {
		return worker.Start(groupCtx)
	})
	g.Go(func() error {
		return reminderScanner.Start(groupCtx)
	})
	g.Go(func() error {
		return retryScanner.Start(groupCtx)
	})
	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// correlationMiddleware copies fiber's request id into the user context so
// downstream loggers can attach it.
func correlationMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rid, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok && rid != "" {
			c.SetUserContext(observability.WithCorrelationID(c.UserContext(), rid))
		}
		return c.Next()
	}
}
