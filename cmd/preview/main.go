// Command preview runs the report pipeline without sending email or
// writing to storage and prints the resulting snapshot as JSON: the
// rendered HTML body plus the rows a real run would have upserted.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"passportwatch/config"
	"passportwatch/internal/marketcheck"
	"passportwatch/internal/pipeline"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	// Logs go to stderr so stdout stays machine-readable JSON.
	logger.SetOutput(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if err := cfg.ValidateSearch(); err != nil {
		logger.WithError(err).Fatal("Invalid search configuration")
	}

	client := marketcheck.NewClient(cfg.BaseURL, cfg.APIKey, logger)
	pipe := pipeline.New(cfg, client, nil, nil, logger)

	snapshot, err := pipe.Preview(context.Background())
	if err != nil {
		logger.WithError(err).Error("Preview failed")
		os.Exit(1)
	}

	payload, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		logger.WithError(err).Fatal("Failed to encode snapshot")
	}
	fmt.Println(string(payload))
}
