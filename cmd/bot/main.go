package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/chankeeper/chankeeper/internal/common/metrics"
	"github.com/chankeeper/chankeeper/internal/config"
	"github.com/chankeeper/chankeeper/internal/database"
	"github.com/chankeeper/chankeeper/internal/dispatcher"
	"github.com/chankeeper/chankeeper/internal/ledger/cache"
	"github.com/chankeeper/chankeeper/internal/ledger/feed"
	ledgermemory "github.com/chankeeper/chankeeper/internal/ledger/repository/memory"
	ledgerservice "github.com/chankeeper/chankeeper/internal/ledger/service"
	ledgersnapshot "github.com/chankeeper/chankeeper/internal/ledger/snapshot"
	"github.com/chankeeper/chankeeper/internal/notify"
	"github.com/chankeeper/chankeeper/internal/scheduler"
	tellrepository "github.com/chankeeper/chankeeper/internal/tell/repository"
	tellservice "github.com/chankeeper/chankeeper/internal/tell/service"
	"github.com/chankeeper/chankeeper/internal/transport/telegram"
	"github.com/chankeeper/chankeeper/pkg"
)

func main() {
	appLogger := pkg.NewLogger(os.Stdout)

	cfg := config.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *database.PostgresDB

	if cfg.TellStorageType == config.SQLStorage {
		var err error

		db, err = database.NewPostgresDB(ctx, cfg, appLogger)
		if err != nil {
			appLogger.Error("failed to connect to PostgreSQL", "error", err)
			os.Exit(1)
		}

		defer db.Close()
	}

	tellRepo, err := tellrepository.NewFactory(db, cfg, appLogger).CreateTellRepository()
	if err != nil {
		appLogger.Error("failed to create tell repository", "error", err)
		os.Exit(1)
	}

	tells := tellservice.NewTellService(tellRepo, cfg.TellQueueMax, cfg.TellMaxAge, appLogger)

	publisher := feed.NewPublisher(
		cfg.FeedDir,
		cfg.FeedBaseURL,
		cfg.FeedTitle,
		cfg.FeedLanguage,
		cfg.FeedHost,
		cfg.Channel,
		appLogger,
	)

	var viewCache ledgerservice.ViewCache

	if cfg.RedisEnabled {
		redisCache, err := cache.NewRedisViewCache(
			cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB, cfg.RedisCacheTTL, cfg.Channel, appLogger)
		if err != nil {
			appLogger.Error("failed to connect to Redis, running without view cache", "error", err)
		} else {
			viewCache = redisCache
			defer redisCache.Close()
		}
	}

	var notifier ledgerservice.LinkNotifier

	if cfg.NotifierEnabled {
		linkNotifier, err := notify.NewNotifierFactory(cfg, appLogger).CreateNotifier()
		if err != nil {
			appLogger.Error("failed to create link notifier, running without", "error", err)
		} else {
			notifier = linkNotifier
		}
	}

	ledger := ledgerservice.NewLedgerService(
		ledgermemory.NewRecordStore(),
		ledgersnapshot.NewStore(cfg.DataDir),
		publisher,
		viewCache,
		notifier,
		cfg.Channel,
		cfg.DefaultTagList(),
		cfg.BacklogMax,
		appLogger,
	)

	limiter := dispatcher.NewNickRateLimiter(ctx, cfg.RateLimitCommands, cfg.RateLimitWindow, appLogger)
	disp := dispatcher.NewDispatcher(ledger, tells, limiter, cfg.Channel, cfg.OperatorLogins(), appLogger)

	sched := scheduler.NewScheduler(tells, ledger, cfg.SweepInterval, appLogger)
	sched.Start()

	metricsServer := metrics.NewMetricsServer(cfg.MetricsPort, appLogger)

	go func() {
		if err := metricsServer.Start(ctx); err != nil {
			appLogger.Error("metrics server stopped", "error", err)
		}
	}()

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		appLogger.Error("failed to create Telegram bot", "error", err)
		os.Exit(1)
	}

	poller := telegram.NewPoller(bot, disp, appLogger)
	poller.Start()

	appLogger.Info("chankeeper started",
		"channel", cfg.Channel,
		"tellStorage", string(cfg.TellStorageType),
	)

	<-ctx.Done()
	gracefulShutdown(poller, sched, appLogger)
}

func gracefulShutdown(poller *telegram.Poller, sched *scheduler.Scheduler, appLogger *slog.Logger) {
	appLogger.Info("shutdown signal received")

	poller.Stop()
	sched.Stop()

	appLogger.Info("shutdown complete")
}
