package importer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"apisense/internal/catalogindex"
	"apisense/internal/common/errors"
	"apisense/internal/common/logger"
	"apisense/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategory(t *testing.T) {
	tests := []struct {
		name        string
		apiName     string
		description string
		expected    string
	}{
		{"hotel goes to travel", "Booking.com", "Hotel availability", "travel"},
		{"earlier rule wins", "Weather", "Forecast and currency exchange", "weather"},
		{"case insensitive", "OPENWEATHERMAP", "", "weather"},
		{"multi word keyword", "Data.gov", "US open data portal", "government"},
		{"api keyword is a catch all", "Foo", "A simple api", "development"},
		{"no keyword", "Lorem", "Ipsum dolor", "general"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Category(tt.apiName, tt.description))
		})
	}
}

func TestFeatures(t *testing.T) {
	assert.Equal(t, []string{"Real-time data", "Free tier available"}, Features("Free REALTIME quotes"))
	assert.Equal(t, []string{"Historical data", "Search functionality"}, Features("Search historical records"))
	assert.Equal(t, []string{"API access"}, Features("Cats"))
}

func TestTags(t *testing.T) {
	assert.Equal(t, []string{"weather", "data", "api"}, Tags("Weather API", "Global data"))
	assert.Equal(t, []string{"api"}, Tags("Cats", "Pictures"))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		validate func(t *testing.T, apis []PublicAPI, err error)
	}{
		{
			name:  "valid list",
			input: `[{"name":"Cat Facts","description":"Daily cat facts","url":"https://catfact.ninja","auth":""}]`,
			validate: func(t *testing.T, apis []PublicAPI, err error) {
				require.NoError(t, err)
				require.Len(t, apis, 1)
				assert.Equal(t, "https://catfact.ninja", apis[0].URL)
			},
		},
		{
			name:  "not an array",
			input: `{"name":"x"}`,
			validate: func(t *testing.T, apis []PublicAPI, err error) {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeInvalidInput, errors.KindOf(err))
			},
		},
		{
			name:  "missing name",
			input: `[{"description":"no name"}]`,
			validate: func(t *testing.T, apis []PublicAPI, err error) {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "name")
			},
		},
		{
			name:  "broken json",
			input: `[{"name":`,
			validate: func(t *testing.T, apis []PublicAPI, err error) {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeInvalidInput, errors.KindOf(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apis, err := Parse(strings.NewReader(tt.input))
			tt.validate(t, apis, err)
		})
	}
}

func TestToEntry(t *testing.T) {
	e := ToEntry(PublicAPI{Name: "  ", Description: "Real-time stock prices", URL: "https://example.com"})

	assert.Equal(t, "Unknown", e.Name)
	assert.Equal(t, "finance", e.Category)
	assert.Equal(t, models.PricingUnknown, e.Pricing)
	assert.Equal(t, "https://example.com", e.DocumentationURL)
	assert.Equal(t, 7.0, e.DocumentationQuality)
	assert.Equal(t, 4.0, e.CommunityRating)
	assert.True(t, e.IsActive)
}

type fakeStore struct {
	truncated bool
	inserted  []models.CatalogEntry
	entries   []models.CatalogEntry
	err       error
}

func (f *fakeStore) Truncate(ctx context.Context) error {
	f.truncated = true
	return f.err
}

func (f *fakeStore) InsertEntries(ctx context.Context, entries []models.CatalogEntry) ([]models.CatalogEntry, error) {
	out := make([]models.CatalogEntry, len(entries))
	for i, e := range entries {
		e.ID = fmt.Sprintf("db-%d", i+1)
		out[i] = e
	}
	f.inserted = out
	return out, nil
}

func (f *fakeStore) ListActive(ctx context.Context) ([]models.CatalogEntry, error) {
	return f.entries, f.err
}

type fakeIndex struct {
	ensured bool
	written []models.CatalogEntry
	err     error
}

func (f *fakeIndex) EnsureIndex(ctx context.Context) (bool, error) {
	f.ensured = true
	return true, nil
}

func (f *fakeIndex) BulkUpsert(ctx context.Context, entries []models.CatalogEntry) (*catalogindex.BulkResult, error) {
	if f.err != nil {
		return &catalogindex.BulkResult{}, f.err
	}
	f.written = append(f.written, entries...)
	return &catalogindex.BulkResult{Indexed: len(entries), Batches: 1}, nil
}

func TestImport(t *testing.T) {
	apis := []PublicAPI{
		{Name: "OpenWeather", Description: "Weather forecast", URL: "https://openweathermap.org"},
		{Name: "Stripe", Description: "Payment processing", URL: "https://stripe.com"},
	}

	t.Run("store ids flow into the index", func(t *testing.T) {
		store, index := &fakeStore{}, &fakeIndex{}
		im := New(store, index, logger.NewTestLogger(t))

		summary, err := im.Import(context.Background(), apis)
		require.NoError(t, err)

		assert.True(t, store.truncated)
		assert.True(t, index.ensured)
		assert.Equal(t, 2, summary.Indexed)
		assert.True(t, summary.IndexCreated)
		require.Len(t, index.written, 2)
		assert.Equal(t, "db-1", index.written[0].ID)
		assert.Equal(t, "finance", index.written[1].Category)
	})

	t.Run("without a store ids are generated", func(t *testing.T) {
		index := &fakeIndex{}
		im := New(nil, index, logger.NewNoOpLogger())

		_, err := im.Import(context.Background(), apis)
		require.NoError(t, err)
		assert.NotEmpty(t, index.written[0].ID)
		assert.NotEqual(t, index.written[0].ID, index.written[1].ID)
	})

	t.Run("bulk failure is returned with partial summary", func(t *testing.T) {
		index := &fakeIndex{err: errors.NewBulkIndexFailedError("apisense_apis", 1, "boom", nil)}
		im := New(nil, index, logger.NewNoOpLogger())

		summary, err := im.Import(context.Background(), apis)
		require.Error(t, err)
		require.NotNil(t, summary)
		assert.Equal(t, 2, summary.Records)
		assert.Zero(t, summary.Indexed)
	})
}

func TestReindex(t *testing.T) {
	store := &fakeStore{entries: []models.CatalogEntry{{ID: "1", Name: "A"}, {ID: "2", Name: "B"}}}
	index := &fakeIndex{}
	im := New(store, index, logger.NewNoOpLogger())

	summary, err := im.Reindex(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Indexed)
	assert.Len(t, index.written, 2)
}
