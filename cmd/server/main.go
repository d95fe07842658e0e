package main

import (
	"os"
	"path/filepath"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"passportwatch/config"
	"passportwatch/internal/api"
	"passportwatch/internal/marketcheck"
	"passportwatch/internal/pipeline"
	"passportwatch/internal/storage"
)

func main() {
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

	dbPath := cfg.DBPath
	if dbPath == "" {
		currentDir, err := os.Getwd()
		if err != nil {
			logger.WithError(err).Fatal("Failed to get current directory")
		}
		dbPath = filepath.Join(currentDir, "database", "passportwatch.db")
		cfg.DBPath = dbPath
	}
	logger.Infof("Using database at: %s", dbPath)

	db, err := storage.NewDatabase(dbPath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	client := marketcheck.NewClient(cfg.BaseURL, cfg.APIKey, logger)
	pipe := pipeline.New(cfg, client, nil, nil, logger)

	handler := api.NewHandler(db, pipe, logger)

	router := gin.Default()
	router.Use(cors.Default())
	api.SetupRoutes(router, handler)

	logger.Infof("Starting server on port %s", cfg.ServerPort)
	if err := router.Run(":" + cfg.ServerPort); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
