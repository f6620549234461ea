// internal/workers/recommendation/retrieve-candidates/handler_test.go
package retrievecandidates

import (
	"context"
	"testing"

	"apisense/internal/catalogindex"
	"apisense/internal/common/errors"
	"apisense/internal/common/logger"
	"apisense/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	requests []catalogindex.SearchRequest
	result   *catalogindex.SearchResult
	err      error
}

func (f *fakeSearcher) Search(ctx context.Context, req catalogindex.SearchRequest) (*catalogindex.SearchResult, error) {
	f.requests = append(f.requests, req)
	return f.result, f.err
}

func testHits() *catalogindex.SearchResult {
	return &catalogindex.SearchResult{
		Total: 42,
		Hits: []catalogindex.Hit{
			{ID: "7", Score: 3.2, Source: models.CatalogEntry{
				ID: "7", Name: "Booking.com", Category: "travel", Pricing: "paid",
				Description: "Hotel booking", WebsiteURL: "https://booking.com",
				DocumentationURL: "https://developers.booking.com",
				Features:         []string{"Search functionality"}, Tags: []string{"api"},
				DocumentationQuality: 8, CommunityRating: 4.5,
			}},
			{ID: "9", Score: 2.1, Source: models.CatalogEntry{
				Name: "OpenWeather", Category: "weather", Pricing: "freemium",
			}},
		},
	}
}

func TestHandler_Retrieve(t *testing.T) {
	tests := []struct {
		name     string
		req      Request
		validate func(t *testing.T, out *Output, search catalogindex.SearchRequest)
	}{
		{
			name: "compact projection without filters",
			req:  Request{Query: "hotel booking weather", Limit: 15},
			validate: func(t *testing.T, out *Output, search catalogindex.SearchRequest) {
				assert.True(t, search.Filters.IsEmpty())
				assert.Equal(t, 15, search.Limit)
				assert.Equal(t, int64(42), out.Total)
				require.Len(t, out.Candidates, 2)

				c := out.Candidates[0]
				assert.Equal(t, "7", c.ID)
				assert.Equal(t, "https://developers.booking.com", c.DocumentationURL)
				assert.Nil(t, c.Features)
				assert.Nil(t, c.CommunityRating)
				assert.Equal(t, "9", out.Candidates[1].ID)
			},
		},
		{
			name: "detailed projection carries ratings",
			req: Request{
				Query:          "hotel",
				Filters:        models.SearchFilters{Category: "travel"},
				IncludeDetails: true,
			},
			validate: func(t *testing.T, out *Output, search catalogindex.SearchRequest) {
				assert.Equal(t, "travel", search.Filters.Category)
				assert.Equal(t, 15, search.Limit)

				c := out.Candidates[0]
				assert.Equal(t, []string{"Search functionality"}, c.Features)
				require.NotNil(t, c.CommunityRating)
				assert.Equal(t, 4.5, *c.CommunityRating)
			},
		},
		{
			name: "summary stands in for a blank query",
			req: Request{
				Query:        "  ",
				Requirements: &models.RequirementSet{Summary: "payment APIs"},
			},
			validate: func(t *testing.T, out *Output, search catalogindex.SearchRequest) {
				assert.Equal(t, "payment APIs", search.Query)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &fakeSearcher{result: testHits()}
			handler := NewHandler(LoadConfig(nil), searcher, logger.NewTestLogger(t))

			out, err := handler.Retrieve(context.Background(), tt.req)
			require.NoError(t, err)
			require.Len(t, searcher.requests, 1)
			tt.validate(t, out, searcher.requests[0])
		})
	}
}

func TestHandler_Retrieve_Error(t *testing.T) {
	searcher := &fakeSearcher{err: errors.NewIndexNotFoundError("apisense_apis")}
	handler := NewHandler(LoadConfig(nil), searcher, logger.NewNoOpLogger())

	_, err := handler.Retrieve(context.Background(), Request{Query: "x"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeIndexNotFound, errors.KindOf(err))
}

func TestDeriveFilters(t *testing.T) {
	tests := []struct {
		name     string
		reqs     models.RequirementSet
		expected models.SearchFilters
	}{
		{"first category and budget", models.RequirementSet{RequiredCategories: []string{"Weather", "maps"}, BudgetConsideration: "free"}, models.SearchFilters{Category: "weather", Pricing: "free"}},
		{"unknown budget is not a filter", models.RequirementSet{RequiredCategories: []string{"finance"}, BudgetConsideration: "unknown"}, models.SearchFilters{Category: "finance"}},
		{"nothing to derive", models.RequirementSet{}, models.SearchFilters{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveFilters(tt.reqs))
		})
	}
}

func TestHandler_Execute_DerivesFilters(t *testing.T) {
	searcher := &fakeSearcher{result: &catalogindex.SearchResult{}}
	handler := NewHandler(LoadConfig(nil), searcher, logger.NewNoOpLogger())

	out, err := handler.Execute(context.Background(), &Input{
		Request: Request{
			Query:        "stock prices",
			Requirements: &models.RequirementSet{RequiredCategories: []string{"finance"}, BudgetConsideration: "paid"},
			Limit:        20,
		},
		DeriveFilters: true,
	})
	require.NoError(t, err)
	assert.Empty(t, out.Candidates)
	assert.Equal(t, models.SearchFilters{Category: "finance", Pricing: "paid"}, searcher.requests[0].Filters)
}
