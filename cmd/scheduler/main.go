package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/karzdaar/ledger/internal/config"
	"github.com/karzdaar/ledger/internal/repository"
	"github.com/karzdaar/ledger/internal/service"
	"github.com/karzdaar/ledger/internal/storage"
	"github.com/karzdaar/ledger/pkg/logging"
)

const jobTimeout = 5 * time.Minute

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level)
	slog.Info("starting ledger scheduler")

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		slog.Error("connecting to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	debtRepo := repository.NewDebtRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	snapshots := storage.NewSnapshotStore(cfg.Storage.SnapshotPath, cfg.Storage.BackupDir)
	ledgerService := service.NewLedgerService(debtRepo, paymentRepo, nil, snapshots, cfg)

	c := cron.New(cron.WithSeconds())
	setupCronJobs(c, cfg, ledgerService)

	c.Start()
	slog.Info("scheduler started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down scheduler")
	<-c.Stop().Done()
	slog.Info("scheduler stopped")
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, ledgerService *service.LedgerService) {
	// Daily job to flag entries whose due date has passed.
	_, err := c.AddFunc(cfg.Scheduler.OverdueSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		count, err := ledgerService.FlagOverdueEntries(ctx)
		if err != nil {
			slog.Error("overdue flagging job failed", "error", err)
			return
		}
		slog.Info("overdue flagging job finished", "flagged", count)
	})
	if err != nil {
		slog.Error("scheduling overdue flagging job", "error", err)
	}

	// Daily job to export a timestamped JSON backup of the whole book.
	_, err = c.AddFunc(cfg.Scheduler.BackupSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		path, err := ledgerService.ExportSnapshot(ctx)
		if err != nil {
			slog.Error("snapshot backup job failed", "error", err)
			return
		}
		slog.Info("snapshot backup job finished", "path", path)
	})
	if err != nil {
		slog.Error("scheduling snapshot backup job", "error", err)
	}
}
