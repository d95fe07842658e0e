// Package storage keeps the historical listing archive in SQLite so price
// and mileage trends survive across daily runs.
package storage

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"passportwatch/internal/models"
)

// Database wraps the listing archive.
type Database struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// DailyStat is one fetch date's aggregate over the stored listings.
type DailyStat struct {
	FetchedAt    string   `json:"fetched_at"`
	ListingCount int      `json:"listing_count"`
	AveragePrice *float64 `json:"average_price"`
	MinPrice     *float64 `json:"min_price"`
}

// NewDatabase opens (or creates) the archive at dbPath and migrates the
// schema, including the unique identity index the upsert relies on.
func NewDatabase(dbPath string, logger *logrus.Logger) (*Database, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", dbPath, err)
	}

	if err := db.AutoMigrate(&models.PersistenceRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate listings schema: %w", err)
	}

	return &Database{db: db, logger: logger}, nil
}

// UpsertListings merges rows into the archive keyed on the natural
// identity triple (vin, source_id, fetched_at): new identities insert,
// repeated ones overwrite in place. Re-running the same day's report is
// therefore idempotent.
func (d *Database) UpsertListings(rows []models.PersistenceRow) error {
	if len(rows) == 0 {
		return nil
	}

	err := d.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "vin"}, {Name: "source_id"}, {Name: "fetched_at"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"listing_url", "year", "price", "km", "trim", "body",
			"exterior", "interior", "dealer_name", "dealer_city",
			"dealer_state", "postal", "currency",
		}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to upsert %d listings: %w", len(rows), err)
	}

	d.logger.WithField("rows", len(rows)).Info("Upserted listings")
	return nil
}

// RecentListings returns the most recently fetched rows, newest first.
func (d *Database) RecentListings(limit int) ([]models.PersistenceRow, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []models.PersistenceRow
	err := d.db.
		Order("fetched_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query recent listings: %w", err)
	}
	return rows, nil
}

// DailyStats aggregates stored listings per fetch date, newest first.
func (d *Database) DailyStats() ([]DailyStat, error) {
	var stats []DailyStat
	err := d.db.
		Model(&models.PersistenceRow{}).
		Select("fetched_at, COUNT(*) AS listing_count, AVG(price) AS average_price, MIN(price) AS min_price").
		Group("fetched_at").
		Order("fetched_at DESC").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	return stats, nil
}

// Close releases the underlying connection pool.
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
