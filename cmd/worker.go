package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	authpg "github.com/anditama/inventory-management/internal/auth/postgres"
	"github.com/anditama/inventory-management/internal/obs"
	"github.com/anditama/inventory-management/pkg/logger"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start and manage background workers like the session purge job.`,
}

var sessionWorkerCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Start the session purge worker",
	Long:  `Periodically deletes sessions that expired or were revoked past the retention window.`,
	Run: func(cmd *cobra.Command, args []string) {
		startSessionWorker()
	},
}

var purgeSchedule string

func startSessionWorker() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.LoggerWrapper()

	sqlxDB, err := initDB(config.Database)
	if err != nil {
		lg.Error("failed to init db", "error", err)
		os.Exit(1)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlxDB.DB}), &gorm.Config{})
	if err != nil {
		lg.Error("failed to init gorm", "error", err)
		os.Exit(1)
	}

	obs.Init()
	sessions := authpg.NewSessionRepository(gormDB)

	schedule := config.Worker.SessionPurgeSchedule
	if purgeSchedule != "" {
		schedule = purgeSchedule
	}
	retention := config.Worker.SessionRetention

	c := cron.New()
	_, err = c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		purged, err := sessions.PurgeExpired(ctx, retention)
		if err != nil {
			lg.Error("session purge failed", "error", err)
			return
		}
		obs.SessionsPurged(purged)
		lg.Info("session purge complete", "purged", purged, "retention", retention)
	})
	if err != nil {
		lg.Error("invalid purge schedule", "schedule", schedule, "error", err)
		os.Exit(1)
	}

	c.Start()
	lg.Info("session purge worker started", "schedule", schedule)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	lg.Info("received signal, shutting down session worker", "signal", sig)

	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
		lg.Info("session worker shutdown complete")
	case <-time.After(30 * time.Second):
		lg.Warn("shutdown timeout reached, forcing exit")
	}

	if err := sqlxDB.Close(); err != nil {
		lg.Error("database close error", "error", err)
	}
}

func init() {
	sessionWorkerCmd.Flags().StringVar(&purgeSchedule, "schedule", "", "Cron schedule for the purge job (overrides config)")

	workerCmd.AddCommand(sessionWorkerCmd)
}
