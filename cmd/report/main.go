package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"passportwatch/config"
	"passportwatch/internal/mailer"
	"passportwatch/internal/marketcheck"
	"passportwatch/internal/pipeline"
	"passportwatch/internal/scheduler"
	"passportwatch/internal/storage"
)

func main() {
	daemon := flag.Bool("daemon", false, "keep running and fire on the configured schedule instead of running once")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if err := cfg.ValidateSearch(); err != nil {
		logger.WithError(err).Fatal("Invalid search configuration")
	}
	if err := cfg.ValidateSMTP(); err != nil {
		logger.WithError(err).Fatal("Invalid SMTP configuration")
	}

	client := marketcheck.NewClient(cfg.BaseURL, cfg.APIKey, logger)
	sender := mailer.NewService(cfg, logger)

	var store pipeline.Store
	if cfg.DBPath != "" {
		db, err := storage.NewDatabase(cfg.DBPath, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize database")
		}
		defer db.Close()
		store = db
	} else {
		logger.Info("REPORT_DB_PATH not set; skipping historical storage")
	}

	pipe := pipeline.New(cfg, client, sender, store, logger)

	if *daemon {
		sched, err := scheduler.New(cfg.ReportSchedule, pipe.Run, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to build scheduler")
		}

		sched.Start()
		logger.WithField("schedule", cfg.ReportSchedule).Info("Report scheduler started")

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down scheduler")
		sched.Stop()
		return
	}

	if err := pipe.Run(context.Background()); err != nil {
		logger.WithError(err).Error("Report run failed")
		os.Exit(1)
	}
}
