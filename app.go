package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"taskmanager/internal/cache"
	"taskmanager/internal/config"
	"taskmanager/internal/database"
	"taskmanager/internal/handlers"
	"taskmanager/internal/logger"
	"taskmanager/internal/metrics"
	"taskmanager/internal/middleware"
	"taskmanager/internal/notifications"
	"taskmanager/internal/repositories"
	"taskmanager/internal/services"
	"taskmanager/pkg/mailer"
	"taskmanager/pkg/rabbitmq"
)

// App is the wired HTTP server together with the resources it owns.
type App struct {
	Fiber *fiber.App

	log          *slog.Logger
	closers      []func() error
	mailNotifier *notifications.MailNotifier
}

// NewApp connects every backing service named in cfg and registers the
// routes. The RabbitMQ consumer, if any, runs until ctx is cancelled.
func NewApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	a := &App{log: log}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	m := metrics.New()

	// --- Repositories ---
	var (
		userRepo repositories.UserRepository
		taskRepo repositories.TaskRepository
	)
	if cfg.DBDriver == "memory" {
		log.Warn("using in-memory storage, data is lost on restart")
		userRepo = repositories.NewMemoryUserRepository()
		taskRepo = repositories.NewMemoryTaskRepository()
	} else {
		db, err := database.Open(cfg.DBDriver, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { return database.Close(db) })
		userRepo = repositories.NewGORMUserRepository(db)
		taskRepo = repositories.NewGORMTaskRepository(db)
	}

	// --- Notifications ---
	mail := mailer.New(mailer.Config{
		APIKey: cfg.Mail.APIKey,
		Host:   cfg.Mail.SMTPHost,
		Port:   cfg.Mail.SMTPPort,
		User:   cfg.Mail.SMTPUser,
		From:   cfg.Mail.From,
	}, log)
	if !mail.Configured() {
		log.Warn("MAIL_API_KEY not set, account emails will be skipped")
	}

	var notifier services.Notifier
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Queue: notifications.Queue}, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, mq.Close)

		consumer := notifications.NewConsumer(mail, m, log)
		if err := mq.Consume(ctx, consumer.Handle); err != nil {
			return nil, err
		}
		notifier = notifications.NewQueueNotifier(mq, log)
	} else {
		a.mailNotifier = notifications.NewMailNotifier(mail, m, log)
		notifier = a.mailNotifier
	}

	// --- Login throttling ---
	var loginLimit fiber.Handler
	if cfg.LoginRateLimit > 0 {
		var limiter cache.Limiter
		if cfg.RedisAddr != "" {
			rdb, err := cache.NewRedisClient(ctx, cache.RedisConnection{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			if err != nil {
				return nil, err
			}
			a.closers = append(a.closers, rdb.Close)
			limiter = cache.NewRedisLimiter(rdb, "login:", cfg.LoginRateLimit, time.Minute)
		} else {
			limiter = cache.NewLocalLimiter(cfg.LoginRateLimit, time.Minute)
		}
		loginLimit = middleware.RateLimit(limiter, m, log)
	}

	// --- Services ---
	authService := services.NewAuthService(userRepo, notifier, cfg.JWTSecret, cfg.TokenTTL, log)
	userService := services.NewUserService(userRepo, taskRepo, notifier, log)
	taskService := services.NewTaskService(taskRepo)

	// --- Handlers ---
	userHandler := handlers.NewUserHandler(authService, userService, log)
	taskHandler := handlers.NewTaskHandler(taskService, log)

	// --- Fiber ---
	app := fiber.New(fiber.Config{
		AppName:               "taskmanager",
		DisableStartupMessage: cfg.Env != config.EnvLocal,
	})
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(middleware.Metrics(m))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	app.Get("/metrics", m.Handler())

	auth := middleware.AuthRequired(authService, log)
	userHandler.RegisterRoutes(app, auth, loginLimit)
	taskHandler.RegisterRoutes(app, auth)

	a.Fiber = app
	ok = true
	return a, nil
}

// Close waits for direct emails in flight and releases broker, cache and
// database handles in reverse order of acquisition.
func (a *App) Close() error {
	if a.mailNotifier != nil {
		a.mailNotifier.Wait()
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Error("failed to release resource", logger.Err(err))
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if len(errs) > 0 {
		return fmt.Errorf("close app: %w", errors.Join(errs...))
	}
	return nil
}
