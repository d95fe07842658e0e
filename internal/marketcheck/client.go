// Package marketcheck is the client for the MarketCheck used-car search
// API. It drives offset pagination over the active-inventory endpoint and
// aggregates pages into one bounded result set.
package marketcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"passportwatch/internal/models"
)

const (
	requestTimeout = 30 * time.Second

	// maxErrorBody bounds how much of an error response is carried into
	// the failure message.
	maxErrorBody = 500
)

// SearchQuery is the filter parameter set for one fetch. All parameters
// except the pagination offset stay fixed across pages: a server that
// re-sorts between pages would corrupt the aggregate, so the sort key and
// order are part of the query, not per-page options.
type SearchQuery struct {
	Make        string
	Model       string
	MinYear     int
	Years       []int // explicit model years; overrides the MinYear range
	Country     string
	State       string
	ZIP         string
	RadiusMiles int
	SortBy      string
	SortOrder   string
}

// yearFilter renders the model-year filter as an explicit comma-separated
// enumeration (e.g. "2020,2021,2022"). Some accounts interpret a
// hyphenated range like "2020-2026" as the single literal year, so the
// range from MinYear to the current calendar year is always expanded.
func (q SearchQuery) yearFilter(now time.Time) string {
	if len(q.Years) > 0 {
		years := make([]string, len(q.Years))
		for i, y := range q.Years {
			years[i] = strconv.Itoa(y)
		}
		return strings.Join(years, ",")
	}

	var years []string
	for y := q.MinYear; y <= now.Year(); y++ {
		years = append(years, strconv.Itoa(y))
	}
	return strings.Join(years, ",")
}

// PageResult is one decoded API page: the listings it returned and the
// server-reported total match count, when the server reported one.
type PageResult struct {
	Listings []models.RawListing
	Total    *int
}

// Client fetches listings from the MarketCheck search API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *logrus.Logger
}

// NewClient constructs a client with a shared HTTP client. baseURL points
// at the active-inventory search endpoint.
func NewClient(baseURL, apiKey string, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: requestTimeout},
		logger:  logger,
	}
}

// FetchAll retrieves up to maxResults listings matching the query,
// requesting pageSize records per call starting at offset 0. It returns
// the aggregated listings and the total number of matches the server
// reported (falling back to the retrieved count when the server never
// reported one).
//
// Any transport failure, non-200 status, or malformed page aborts the
// whole fetch: offsets do not compose safely across failed intermediate
// pages, so a partial aggregate is unusable.
func (c *Client) FetchAll(ctx context.Context, query SearchQuery, pageSize, maxResults int) ([]models.RawListing, int, error) {
	baseParams := c.baseParams(query, time.Now())

	var listings []models.RawListing
	var totalFound *int

	for len(listings) < maxResults {
		page, err := c.fetchPage(ctx, baseParams, len(listings), pageSize)
		if err != nil {
			return nil, 0, err
		}

		if totalFound == nil && page.Total != nil {
			totalFound = page.Total
		}
		listings = append(listings, page.Listings...)

		c.logger.WithFields(logrus.Fields{
			"page_size":   len(page.Listings),
			"accumulated": len(listings),
		}).Debug("Fetched listings page")

		// A short page signals the last page; reaching the reported
		// total means nothing further is available.
		if len(page.Listings) < pageSize {
			break
		}
		if totalFound != nil && len(listings) >= *totalFound {
			break
		}
	}

	if len(listings) > maxResults {
		listings = listings[:maxResults]
	}

	total := len(listings)
	if totalFound != nil {
		total = *totalFound
	}
	return listings, total, nil
}

// baseParams builds the filter parameter set shared by every page request.
func (c *Client) baseParams(query SearchQuery, now time.Time) url.Values {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("car_type", "used")
	params.Set("make", query.Make)
	params.Set("model", query.Model)
	params.Set("year", query.yearFilter(now))

	sortBy := query.SortBy
	if sortBy == "" {
		sortBy = "year" // newest model years first
	}
	sortOrder := query.SortOrder
	if sortOrder == "" {
		sortOrder = "desc"
	}
	params.Set("sort_by", sortBy)
	params.Set("sort_order", sortOrder)

	if query.Country != "" {
		params.Set("country", query.Country)
	}
	if query.State != "" {
		params.Set("state", query.State)
	}
	if query.ZIP != "" {
		params.Set("zip", query.ZIP)
		params.Set("radius", strconv.Itoa(query.RadiusMiles))
	}

	return params
}

// fetchPage performs one page request at the given offset and decodes it.
func (c *Client) fetchPage(ctx context.Context, baseParams url.Values, start, rows int) (*PageResult, error) {
	params := url.Values{}
	for key, values := range baseParams {
		params[key] = values
	}
	params.Set("start", strconv.Itoa(start))
	params.Set("rows", strconv.Itoa(rows))

	reqURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error calling MarketCheck API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		text := string(body)
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Body: text}
	}

	return decodePage(body)
}

// decodePage extracts the listings array and the total match count from a
// page body. Both appear under one of two alternative key names.
func decodePage(body []byte) (*PageResult, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	rawListings := payload["listings"]
	if rawListings == nil {
		rawListings = payload["results"]
	}

	page := &PageResult{}
	if rawListings != nil {
		entries, ok := rawListings.([]interface{})
		if !ok {
			return nil, ErrMalformedResponse
		}
		page.Listings = make([]models.RawListing, 0, len(entries))
		for _, entry := range entries {
			obj, ok := entry.(map[string]interface{})
			if !ok {
				return nil, ErrMalformedResponse
			}
			page.Listings = append(page.Listings, models.RawListing(obj))
		}
	}

	for _, key := range []string{"num_found", "total"} {
		if v, ok := payload[key].(float64); ok {
			total := int(v)
			page.Total = &total
			break
		}
	}

	return page, nil
}
