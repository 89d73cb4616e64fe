package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/slot_booking/internal/app"
	"github.com/Freeeeeet/slot_booking/internal/config"
	"github.com/Freeeeeet/slot_booking/internal/notify"
	"github.com/Freeeeeet/slot_booking/internal/repository"
	"github.com/Freeeeeet/slot_booking/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting slot booking service",
		zap.String("environment", cfg.Environment),
		zap.String("timezone", cfg.SchoolTimezone.String()),
		zap.Bool("single_active_booking", cfg.SingleActiveBooking),
		zap.Duration("lock_timeout", cfg.BookingLockTimeout),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := connect(ctx, cfg.GetDBDSN())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if cfg.MigrationsEnabled {
		if err := migrate(ctx, pool, logger); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to set up notifier", zap.Error(err))
	}

	application := app.New(cfg, repository.NewPostgresTxManager(pool, cfg.BookingLockTimeout), pool, notifier, logger)
	if err := application.Run(ctx); err != nil {
		logger.Error("Service stopped with error", zap.Error(err))
		return
	}
	logger.Info("Service stopped")
}

func connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	migrator, err := app.NewMigrator(pool, migrations.FS, logger.Named("migrator"))
	if err != nil {
		return err
	}
	defer migrator.Close()
	return migrator.Run(ctx)
}

func newNotifier(cfg *config.Config, logger *zap.Logger) (notify.Notifier, error) {
	if !cfg.TelegramEnabled() {
		logger.Info("TELEGRAM_TOKEN not set, session events are only logged")
		return notify.NewLogNotifier(logger.Named("notify")), nil
	}

	b, err := notify.NewTelegramBot(cfg.TelegramToken)
	if err != nil {
		return nil, err
	}
	return notify.NewTelegramNotifier(b, cfg.TelegramChatID), nil
}
