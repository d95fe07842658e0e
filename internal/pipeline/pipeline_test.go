package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"passportwatch/config"
	"passportwatch/internal/marketcheck"
	"passportwatch/internal/models"
)

// MockFetcher is a mock implementation of the Fetcher interface
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchAll(ctx context.Context, query marketcheck.SearchQuery, pageSize, maxResults int) ([]models.RawListing, int, error) {
	args := m.Called(ctx, query, pageSize, maxResults)
	var listings []models.RawListing
	if v := args.Get(0); v != nil {
		listings = v.([]models.RawListing)
	}
	return listings, args.Int(1), args.Error(2)
}

// MockSender is a mock implementation of the Sender interface
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(subject, htmlBody string) error {
	args := m.Called(subject, htmlBody)
	return args.Error(0)
}

// MockStore is a mock implementation of the Store interface
type MockStore struct {
	mock.Mock
}

func (m *MockStore) UpsertListings(rows []models.PersistenceRow) error {
	args := m.Called(rows)
	return args.Error(0)
}

func testConfig() *config.Config {
	return &config.Config{
		Make:          "Honda",
		Model:         "Passport",
		MinYear:       2020,
		Country:       "CA",
		MaxListings:   50,
		ExcludedTrims: []string{"Black Edition"},
		DBPath:        "report.db",
	}
}

func listing(id, trim, dealer string) models.RawListing {
	return models.RawListing{
		"id":     id,
		"price":  float64(35000),
		"build":  map[string]interface{}{"trim": trim},
		"dealer": map[string]interface{}{"name": dealer},
	}
}

func TestRunSuccess(t *testing.T) {
	fetcher := &MockFetcher{}
	sender := &MockSender{}
	store := &MockStore{}

	listings := []models.RawListing{
		listing("mc-1", "Touring", "Keeper Honda"),
		listing("mc-2", "Black Edition", "Denied Honda"),
		listing("mc-3", "EX-L", "Other Honda"),
	}
	fetcher.On("FetchAll", mock.Anything, mock.Anything, 50, 50).Return(listings, 37, nil)

	var sentBody string
	sender.On("Send",
		mock.MatchedBy(func(subject string) bool {
			return strings.HasPrefix(subject, "[Car Report] Used Honda Passport listings (")
		}),
		mock.Anything,
	).Run(func(args mock.Arguments) {
		sentBody = args.String(1)
	}).Return(nil)

	var storedRows []models.PersistenceRow
	store.On("UpsertListings", mock.Anything).Run(func(args mock.Arguments) {
		storedRows = args.Get(0).([]models.PersistenceRow)
	}).Return(nil)

	pipe := New(testConfig(), fetcher, sender, store, nil)
	err := pipe.Run(context.Background())

	require.NoError(t, err)
	fetcher.AssertExpectations(t)
	sender.AssertExpectations(t)
	store.AssertExpectations(t)

	// The excluded trim reaches neither the report nor the storage rows,
	// and its removal leaves the surrounding listings intact.
	assert.Contains(t, sentBody, "Keeper Honda")
	assert.Contains(t, sentBody, "Other Honda")
	assert.NotContains(t, sentBody, "Black Edition")
	assert.NotContains(t, sentBody, "Denied Honda")
	assert.Contains(t, sentBody, "(of 37 found)")

	require.Len(t, storedRows, 2)
	assert.Equal(t, "mc-1", storedRows[0].SourceID)
	assert.Equal(t, "mc-3", storedRows[1].SourceID)
	assert.Equal(t, "CAD", storedRows[0].Currency)
}

func TestRunFetchFailureSendsErrorEmail(t *testing.T) {
	fetcher := &MockFetcher{}
	sender := &MockSender{}
	store := &MockStore{}

	fetchErr := &marketcheck.APIError{StatusCode: 500, Body: "upstream down"}
	fetcher.On("FetchAll", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, 0, fetchErr)

	sender.On("Send",
		mock.MatchedBy(func(subject string) bool {
			return strings.HasPrefix(subject, "[Car Report] ERROR fetching Honda Passport data (")
		}),
		mock.MatchedBy(func(body string) bool {
			return strings.Contains(body, "Error fetching data from MarketCheck")
		}),
	).Return(nil)

	pipe := New(testConfig(), fetcher, sender, store, nil)
	err := pipe.Run(context.Background())

	require.Error(t, err)
	assert.ErrorAs(t, err, new(*marketcheck.APIError))
	sender.AssertExpectations(t)
	// No partial report: nothing is rendered or stored after a failed fetch.
	store.AssertNotCalled(t, "UpsertListings", mock.Anything)
}

func TestRunStorageFailureDoesNotBlockDelivery(t *testing.T) {
	fetcher := &MockFetcher{}
	sender := &MockSender{}
	store := &MockStore{}

	fetcher.On("FetchAll", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]models.RawListing{listing("mc-1", "Touring", "Keeper Honda")}, 1, nil)
	store.On("UpsertListings", mock.Anything).Return(errors.New("disk full"))
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)

	pipe := New(testConfig(), fetcher, sender, store, nil)
	err := pipe.Run(context.Background())

	require.Error(t, err, "a storage failure still surfaces as a non-zero completion")
	assert.Contains(t, err.Error(), "disk full")
	sender.AssertCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestRunDeliveryFailureAfterStorageSuccess(t *testing.T) {
	fetcher := &MockFetcher{}
	sender := &MockSender{}
	store := &MockStore{}

	fetcher.On("FetchAll", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]models.RawListing{listing("mc-1", "Touring", "Keeper Honda")}, 1, nil)
	store.On("UpsertListings", mock.Anything).Return(nil)
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp auth failed"))

	pipe := New(testConfig(), fetcher, sender, store, nil)
	err := pipe.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp auth failed")
	store.AssertExpectations(t)
}

func TestRunWithoutStoreSkipsPersistence(t *testing.T) {
	fetcher := &MockFetcher{}
	sender := &MockSender{}

	fetcher.On("FetchAll", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]models.RawListing{listing("mc-1", "Touring", "Keeper Honda")}, 1, nil)
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)

	cfg := testConfig()
	cfg.DBPath = ""
	pipe := New(cfg, fetcher, sender, nil, nil)

	assert.NoError(t, pipe.Run(context.Background()))
}

func TestRunEmptyResultSet(t *testing.T) {
	fetcher := &MockFetcher{}
	sender := &MockSender{}
	store := &MockStore{}

	fetcher.On("FetchAll", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]models.RawListing{}, 0, nil)

	var sentBody string
	sender.On("Send", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sentBody = args.String(1)
	}).Return(nil)

	var storedRows []models.PersistenceRow
	store.On("UpsertListings", mock.Anything).Run(func(args mock.Arguments) {
		storedRows = args.Get(0).([]models.PersistenceRow)
	}).Return(nil)

	pipe := New(testConfig(), fetcher, sender, store, nil)
	err := pipe.Run(context.Background())

	require.NoError(t, err)
	assert.Contains(t, sentBody, "No used Honda Passport listings (2020+) found for today.")
	assert.Empty(t, storedRows)
}

func TestPageSizeStaysWithinAPILimit(t *testing.T) {
	fetcher := &MockFetcher{}
	sender := &MockSender{}

	cfg := testConfig()
	cfg.MaxListings = 200
	fetcher.On("FetchAll", mock.Anything, mock.Anything, 50, 200).Return([]models.RawListing{}, 0, nil)
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)

	pipe := New(cfg, fetcher, sender, nil, nil)
	require.NoError(t, pipe.Run(context.Background()))

	cfg.MaxListings = 10
	fetcher2 := &MockFetcher{}
	fetcher2.On("FetchAll", mock.Anything, mock.Anything, 10, 10).Return([]models.RawListing{}, 0, nil)
	pipe2 := New(cfg, fetcher2, sender, nil, nil)
	require.NoError(t, pipe2.Run(context.Background()))

	fetcher.AssertExpectations(t)
	fetcher2.AssertExpectations(t)
}

func TestPreview(t *testing.T) {
	fetcher := &MockFetcher{}

	fetcher.On("FetchAll", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]models.RawListing{
			listing("mc-1", "Touring", "Keeper Honda"),
			listing("mc-2", "Black Edition", "Denied Honda"),
		}, 25, nil)

	pipe := New(testConfig(), fetcher, nil, nil, nil)
	snapshot, err := pipe.Preview(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 25, snapshot.TotalFound)
	assert.Equal(t, 1, snapshot.Count)
	assert.Contains(t, snapshot.HTMLBody, "Keeper Honda")
	assert.NotContains(t, snapshot.HTMLBody, "Denied Honda")
	require.Len(t, snapshot.Rows, 1)
	assert.Equal(t, "mc-1", snapshot.Rows[0].SourceID)
}

func TestPreviewWithoutStorageConfigured(t *testing.T) {
	fetcher := &MockFetcher{}
	fetcher.On("FetchAll", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]models.RawListing{listing("mc-1", "Touring", "Keeper Honda")}, 1, nil)

	cfg := testConfig()
	cfg.DBPath = ""
	pipe := New(cfg, fetcher, nil, nil, nil)

	snapshot, err := pipe.Preview(context.Background())

	require.NoError(t, err)
	assert.Nil(t, snapshot.Rows, "persistence rows are only projected when storage is configured")
}

func TestPreviewFetchFailure(t *testing.T) {
	fetcher := &MockFetcher{}
	fetcher.On("FetchAll", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, 0, errors.New("boom"))

	pipe := New(testConfig(), fetcher, nil, nil, nil)
	snapshot, err := pipe.Preview(context.Background())

	require.Error(t, err)
	assert.Nil(t, snapshot)
}
