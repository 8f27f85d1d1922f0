package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"gptbot/internal/bot"
	"gptbot/internal/config"
	"gptbot/internal/logging"
	"gptbot/internal/repository"
	"gptbot/internal/server"
	"gptbot/internal/service"
)

func runBot(ctx context.Context, configPath string) error {
	cfg, log, err := setup(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting gptbot",
		zap.String("token", logging.MaskToken(cfg.BotToken)),
		zap.String("mode", cfg.BotMode),
		zap.String("db_driver", cfg.DBDriver),
		zap.Bool("completion", cfg.CompletionEnabled()),
		zap.String("rate_limit", cfg.RateLimitMode),
	)

	db, err := repository.NewDB(cfg.DBDriver, cfg.DSN(), log)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer closeDB(db, log)

	users := repository.NewUserRepository(db)
	directory := service.NewUserDirectory(users, log.Named("directory"))

	var completer bot.Completer
	if cfg.CompletionEnabled() {
		completer = service.NewCompletionService(service.CompletionOptions{
			APIKey:    cfg.OpenAIAPIKey,
			BaseURL:   cfg.OpenAIBaseURL,
			Model:     cfg.OpenAIModel,
			MaxTokens: cfg.MaxToken,
		})
	} else {
		log.Warn("OPENAI_API_KEY not set, AI replies disabled")
	}

	scheduler := service.NewSchedulerService(time.Local, log.Named("scheduler"))

	var limiter service.Limiter = service.Unlimited{}
	switch cfg.RateLimitMode {
	case config.RateLimitLocal:
		local := service.NewLocalLimiter(cfg.RateLimit, cfg.Window())
		if _, err := scheduler.ScheduleInterval("ratelimit-sweep", cfg.Window(), func(context.Context) error {
			if n := local.Sweep(); n > 0 {
				log.Debug("rate limit buckets swept", zap.Int("removed", n))
			}
			return nil
		}); err != nil {
			return fmt.Errorf("schedule sweep: %w", err)
		}
		limiter = local
	case config.RateLimitRedis:
		shared, err := service.NewRedisLimiter(ctx, cfg.RedisURL, cfg.RateLimit, cfg.Window(), log.Named("ratelimit"))
		if err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
		defer func() { _ = shared.Close() }()
		limiter = shared
	}

	tg, err := bot.New(cfg.BotToken, directory, completer, limiter, log.Named("bot"))
	if err != nil {
		return fmt.Errorf("bot: %w", err)
	}

	if cfg.NotificationChannel != "" {
		stats := service.NewStatsService(users, tg.Messenger(), cfg.NotificationChannel)
		if _, err := scheduler.ScheduleDaily("stats-report", cfg.StatsReportTime, stats.Report); err != nil {
			return fmt.Errorf("schedule stats report: %w", err)
		}
	}

	if cfg.BotMode == config.ModeWebhook {
		if err := tg.RegisterWebhook(cfg.WebhookURL); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	switch cfg.BotMode {
	case config.ModeWebhook:
		srv := server.New(cfg.WebhookListen, tg.Dispatch, log.Named("webhook"))
		g.Go(func() error {
			err := srv.Run(gctx)
			tg.Wait()
			return err
		})
	default:
		g.Go(func() error {
			if err := tg.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	log.Info("gptbot started", zap.Int("scheduled_jobs", scheduler.Entries()))
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

func setup(configPath string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("config: %w", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, log, nil
}

func closeDB(db *gorm.DB, log *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("close db", zap.Error(err))
	}
}
