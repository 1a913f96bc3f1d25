package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	_ "github.com/lib/pq"

	"github.com/Proton-105/hermes-bot/internal/command"
	"github.com/Proton-105/hermes-bot/internal/database"
	apperrors "github.com/Proton-105/hermes-bot/internal/errors"
	"github.com/Proton-105/hermes-bot/internal/filecache"
	"github.com/Proton-105/hermes-bot/internal/form"
	"github.com/Proton-105/hermes-bot/internal/handlers"
	"github.com/Proton-105/hermes-bot/internal/health"
	"github.com/Proton-105/hermes-bot/internal/history"
	"github.com/Proton-105/hermes-bot/internal/idempotency"
	"github.com/Proton-105/hermes-bot/internal/lifecycle"
	"github.com/Proton-105/hermes-bot/internal/poller"
	"github.com/Proton-105/hermes-bot/internal/ratelimit"
	"github.com/Proton-105/hermes-bot/internal/repository"
	"github.com/Proton-105/hermes-bot/internal/sentlog"
	"github.com/Proton-105/hermes-bot/internal/telegram"
	"github.com/Proton-105/hermes-bot/internal/user"
	"github.com/Proton-105/hermes-bot/pkg/config"
	"github.com/Proton-105/hermes-bot/pkg/graceful"
	"github.com/Proton-105/hermes-bot/pkg/logger"
	"github.com/Proton-105/hermes-bot/pkg/metrics"
	"github.com/Proton-105/hermes-bot/pkg/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("bot terminated", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, v, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.AppEnv,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	logCfg := cfg.Log
	logCfg.SentryEnabled = cfg.Sentry.Enabled
	log := logger.New(logCfg)
	slog.SetDefault(log)

	log.Info("starting hermes bot",
		slog.String("env", cfg.AppEnv),
		slog.String("http_port", cfg.Server.Port),
		slog.String("log_level", cfg.Log.Level),
	)

	config.Watch(v, log, func(updated *config.Config) {
		// Connection settings only apply on restart; log the change so
		// operators can tell the file was picked up.
		log.Info("config change detected",
			slog.String("log_level", updated.Log.Level),
			slog.Int("rate_limit", updated.Bot.RateLimit),
		)
	})

	shutdown := lifecycle.NewShutdown(log)

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.New(ctx, cfg.Redis.Client)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		shutdown.Register("redis", func(context.Context) error {
			return redisClient.Close()
		})
	}

	var db *sql.DB
	var userService *user.Service
	if cfg.Postgres.Enabled {
		db, err = sql.Open("postgres", cfg.Postgres.DSN())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		shutdown.Register("postgres", func(context.Context) error {
			return db.Close()
		})

		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}

		migrator := database.NewMigrator(db, log)
		if err := migrator.ApplyDir(ctx, "migrations"); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}

		userRepo := repository.NewUserRepository(db, log)
		userService = user.NewService(userRepo, log)
	}

	client := telegram.New(telegram.Config{
		BaseURL:  cfg.Bot.APIBaseURL,
		Token:    cfg.Bot.Token,
		Attempts: cfg.Bot.Attempts,
		Timeout:  cfg.Bot.RequestTimeout,
	}, log)

	me, err := client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("verify bot token: %w", err)
	}
	log.Info("authenticated", slog.String("username", me.Username), slog.Int64("bot_id", me.ID))

	checker := health.NewChecker(log)
	checker.AddCheck("telegram", client)
	if redisClient != nil {
		checker.AddCheck("redis", health.NewRedisChecker(redisClient))
	}
	if db != nil {
		checker.AddCheck("postgres", health.NewDBChecker(db))
	}

	var formStorage form.Storage
	var fileCache filecache.Cache
	var guard idempotency.Guard
	var limiter ratelimit.Limiter

	memoryLimiter := ratelimit.NewMemoryLimiter(log)
	if redisClient != nil {
		formStorage = form.NewRedisStorage(redisClient.Client, cfg.Bot.SessionTTL, log)
		fileCache = filecache.NewRedisCache(redisClient.Client)
		guard = idempotency.NewRedisGuard(redisClient.Client, log, 0)
		limiter = ratelimit.NewAdaptiveLimiter(ratelimit.NewRedisLimiter(redisClient.Client, log), memoryLimiter, log)
	} else {
		formStorage = form.NewMemoryStorage()
		fileCache = filecache.NewMemoryCache()
		guard = idempotency.NewMemoryGuard(0)
		limiter = memoryLimiter
	}

	forms := form.NewEngine(formStorage, client, log)
	registerForms(forms)

	historyStack := history.NewStack(client, cfg.Bot.HistoryDepth, log)
	sentLog := sentlog.New(sentlog.DefaultKeep)

	services := &command.Services{
		Client:  client,
		Forms:   forms,
		History: historyStack,
		Users:   userService,
		Files:   fileCache,
		Sent:    sentLog,
		Log:     log,
	}

	registry := command.NewRegistry(cfg.Bot.CommandPrefix, services, log)
	registry.Register("start", handlers.NewStartHandler(log))
	registry.Register("help", handlers.NewHelpHandler(registry.Names))
	registry.Register("echo", handlers.NewEchoHandler())
	registry.Register("form", handlers.NewFormHandler(log))
	registry.Register("cancel", handlers.NewCancelHandler(log))
	registry.Register("back", handlers.NewBackHandler(log))
	registry.Register("undo", handlers.NewUndoHandler(log))
	if userService != nil {
		registry.Register("profile", handlers.NewProfileHandler(log))
	}
	if cfg.Bot.LogoPath != "" {
		registry.Register("logo", handlers.NewLogoHandler(cfg.Bot.LogoPath, log))
	}

	errHandler := apperrors.NewHandler(log, cfg.Sentry.Enabled)

	updatePoller := poller.New(
		client,
		registry,
		forms,
		guard,
		limiter,
		userService,
		errHandler,
		client,
		poller.Config{
			Limit:       cfg.Bot.PollLimit,
			PollTimeout: cfg.Bot.PollTimeout,
			RateLimit:   cfg.Bot.RateLimit,
			RateWindow:  cfg.Bot.RateWindow,
		},
		log,
	)

	sessionCleaner := form.NewCleaner(formStorage, log, cfg.Bot.SessionTTL, cfg.Bot.SessionTTL/4)
	limiterCleaner := ratelimit.NewCleaner(memoryLimiter, log, 2*cfg.Bot.RateWindow, cfg.Bot.RateWindow)
	formCollector := metrics.NewFormCollector(forms)

	probes := lifecycle.NewProbes(checker, log)
	server := graceful.NewServer(log, cfg.Server.Port, map[string]http.Handler{
		"/healthz": checker.Handler(),
		"/live":    probes.LivenessHandler(),
		"/ready":   probes.ReadinessHandler(),
	}, cfg.Server.ShutdownTimeout)

	// A fatal poller error (bad token) must bring the sidecars down with it.
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	go sessionCleaner.Run(runCtx)
	go limiterCleaner.Run(runCtx)
	go formCollector.Run(runCtx)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe(runCtx)
	}()

	pollErr := updatePoller.Run(runCtx)
	cancelRun()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown finished with errors", slog.Any("error", err))
	}

	if err := <-serverErr; err != nil {
		log.Error("http server finished with error", slog.Any("error", err))
	}

	log.Info("hermes bot stopped")
	return pollErr
}

// registerForms installs the built-in multi-step forms.
func registerForms(engine *form.Engine) {
	engine.Register(form.Definition{
		Name: "registration",
		Steps: []form.Step{
			{Prompt: "What's your name?", Key: "name"},
			{Prompt: "What's your email address?", Key: "email"},
			{Prompt: "How old are you?", Key: "age"},
		},
		OnComplete: func(ctx context.Context, chatID int64, answers map[string]string, sender form.Sender) error {
			summary := fmt.Sprintf(
				"You're all set, %s! We'll reach you at %s.",
				answers["name"], answers["email"],
			)
			_, err := sender.SendMessage(ctx, telegram.SendMessageParams{ChatID: chatID, Text: summary})
			return err
		},
	})

	engine.Register(form.Definition{
		Name: "feedback",
		Steps: []form.Step{
			{Prompt: "What would you like to tell us?", Key: "message"},
			{Prompt: "How would you rate us from 1 to 5?", Key: "rating"},
		},
		OnComplete: func(ctx context.Context, chatID int64, answers map[string]string, sender form.Sender) error {
			rating, err := strconv.Atoi(strings.TrimSpace(answers["rating"]))
			if err != nil || rating < 1 || rating > 5 {
				return apperrors.NewValidationError("The rating must be a number from 1 to 5.")
			}

			reply := "Thanks for the feedback!"
			if rating == 5 {
				reply = "Thanks for the feedback, we're glad you like it!"
			}
			_, err = sender.SendMessage(ctx, telegram.SendMessageParams{ChatID: chatID, Text: reply})
			return err
		},
	})
}
