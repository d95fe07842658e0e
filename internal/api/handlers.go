package api

import (
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"passportwatch/internal/pipeline"
	"passportwatch/internal/storage"
)

// Handler serves the inspection API: run previews and the stored listing
// history. It never triggers email delivery or storage writes.
type Handler struct {
	db     *storage.Database
	pipe   *pipeline.Pipeline
	logger *logrus.Logger
}

func NewHandler(db *storage.Database, pipe *pipeline.Pipeline, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		db:     db,
		pipe:   pipe,
		logger: logger,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetPreview runs a live fetch-filter-render pass and returns the
// snapshot of what a real run would deliver and store.
func (h *Handler) GetPreview(c *gin.Context) {
	snapshot, err := h.pipe.Preview(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to build report preview")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to build report preview"})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// GetListings returns the most recently stored listings.
func (h *Handler) GetListings(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 50
	}

	listings, err := h.db.RecentListings(limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get listings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get listings"})
		return
	}

	c.JSON(http.StatusOK, listings)
}

// GetStats returns per-day aggregates over the stored listings.
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.db.DailyStats()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get daily stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get daily stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
