// Package pipeline composes one report run: fetch listings, drop excluded
// trims, normalize, render, then hand the artifacts to the delivery and
// storage collaborators. Data flows strictly one direction and the run is
// fully sequential.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"passportwatch/config"
	"passportwatch/internal/filter"
	"passportwatch/internal/marketcheck"
	"passportwatch/internal/models"
	"passportwatch/internal/normalize"
	"passportwatch/internal/report"
)

// maxPageSize keeps page requests within the API's default row limit.
const maxPageSize = 50

// Fetcher retrieves listings from the search API.
type Fetcher interface {
	FetchAll(ctx context.Context, query marketcheck.SearchQuery, pageSize, maxResults int) ([]models.RawListing, int, error)
}

// Sender is the delivery collaborator.
type Sender interface {
	Send(subject, htmlBody string) error
}

// Store is the storage collaborator. May be nil when historical tracking
// is not configured.
type Store interface {
	UpsertListings(rows []models.PersistenceRow) error
}

// Pipeline runs the fetch-filter-render-deliver pass.
type Pipeline struct {
	cfg      *config.Config
	fetcher  Fetcher
	sender   Sender
	store    Store
	filter   *filter.TrimFilter
	renderer *report.Renderer
	logger   *logrus.Logger
}

// New wires a pipeline from its collaborators. sender and store may be nil
// for preview-only use.
func New(cfg *config.Config, fetcher Fetcher, sender Sender, store Store, logger *logrus.Logger) *Pipeline {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Pipeline{
		cfg:      cfg,
		fetcher:  fetcher,
		sender:   sender,
		store:    store,
		filter:   filter.NewTrimFilter(cfg.ExcludedTrims),
		renderer: report.NewRenderer(cfg.Make, cfg.Model, cfg.MinYear),
		logger:   logger,
	}
}

func (p *Pipeline) query() marketcheck.SearchQuery {
	return marketcheck.SearchQuery{
		Make:        p.cfg.Make,
		Model:       p.cfg.Model,
		MinYear:     p.cfg.MinYear,
		Years:       p.cfg.Years,
		Country:     p.cfg.Country,
		State:       p.cfg.State,
		ZIP:         p.cfg.ZIP,
		RadiusMiles: p.cfg.RadiusMiles,
	}
}

func (p *Pipeline) pageSize() int {
	if p.cfg.MaxListings < maxPageSize {
		return p.cfg.MaxListings
	}
	return maxPageSize
}

// fetchFiltered runs the fetch and exclusion phases and normalizes what
// survives. raws and rows stay index-aligned for the persistence
// projection.
func (p *Pipeline) fetchFiltered(ctx context.Context) (raws []models.RawListing, rows []models.CanonicalRow, totalFound int, err error) {
	listings, totalFound, err := p.fetcher.FetchAll(ctx, p.query(), p.pageSize(), p.cfg.MaxListings)
	if err != nil {
		return nil, nil, 0, err
	}

	raws = p.filter.Apply(listings)
	rows = make([]models.CanonicalRow, 0, len(raws))
	for _, raw := range raws {
		rows = append(rows, normalize.Row(raw))
	}

	p.logger.WithFields(logrus.Fields{
		"fetched":     len(listings),
		"kept":        len(raws),
		"total_found": totalFound,
	}).Info("Fetched and filtered listings")

	return raws, rows, totalFound, nil
}

// Run performs one full report pass. A fetch failure short-circuits
// rendering and persistence but still attempts an error notification.
// Storage and delivery failures are isolated from each other; any failure
// surfaces in the returned error so the process can exit non-zero.
func (p *Pipeline) Run(ctx context.Context) error {
	date := time.Now().Format("2006-01-02")

	raws, rows, totalFound, err := p.fetchFiltered(ctx)
	if err != nil {
		p.logger.WithError(err).Error("Fetch failed")
		if sendErr := p.sender.Send(p.renderer.ErrorSubject(date), p.renderer.RenderError(err)); sendErr != nil {
			p.logger.WithError(sendErr).Error("Failed to send error email")
		}
		return fmt.Errorf("fetch failed: %w", err)
	}

	table, err := p.renderer.RenderTable(rows)
	if err != nil {
		return err
	}
	body, err := p.renderer.RenderBody(date, table, len(rows), totalFound)
	if err != nil {
		return err
	}

	var errs []error

	if p.store != nil {
		persistRows := report.ToPersistenceRows(rows, raws, date, p.cfg.Currency())
		if err := p.store.UpsertListings(persistRows); err != nil {
			p.logger.WithError(err).Error("Failed to upsert listings")
			errs = append(errs, err)
		}
	}

	if err := p.sender.Send(p.renderer.ReportSubject(date), body); err != nil {
		p.logger.WithError(err).Error("Failed to send report email")
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Preview performs the fetch and render phases and captures what a real
// run would deliver and store, without invoking either collaborator.
// Persistence rows are only projected when storage is configured, to
// mirror the real run.
func (p *Pipeline) Preview(ctx context.Context) (*models.ReportSnapshot, error) {
	date := time.Now().Format("2006-01-02")

	raws, rows, totalFound, err := p.fetchFiltered(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}

	table, err := p.renderer.RenderTable(rows)
	if err != nil {
		return nil, err
	}
	body, err := p.renderer.RenderBody(date, table, len(rows), totalFound)
	if err != nil {
		return nil, err
	}

	snapshot := &models.ReportSnapshot{
		Date:       date,
		TotalFound: totalFound,
		Count:      len(rows),
		HTMLBody:   body,
	}
	if p.cfg.DBPath != "" {
		snapshot.Rows = report.ToPersistenceRows(rows, raws, date, p.cfg.Currency())
	}
	return snapshot, nil
}
