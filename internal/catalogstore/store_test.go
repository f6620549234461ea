package catalogstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"apisense/internal/common/errors"
	"apisense/internal/common/logger"
	"apisense/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := New(db, logger.NewTestLogger(t))
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

var catalogColumns = []string{
	"id", "name", "category", "features", "pricing", "description",
	"website_url", "documentation_url", "tags",
	"documentation_quality", "community_rating", "is_active",
	"created_at", "updated_at",
}

func TestListActive(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT id, name, category`).
		WillReturnRows(sqlmock.NewRows(catalogColumns).
			AddRow("1", "OpenWeather", "weather", "{Real-time data,Historical data}", "freemium", "Weather data",
				"https://openweathermap.org", nil, "{weather,api}", 7.0, 4.0, true, fixedNow, fixedNow).
			AddRow("2", "Stripe", "finance", "{}", "paid", "Payments",
				"https://stripe.com", "https://stripe.com/docs", "{}", 9.0, 4.8, true, fixedNow, fixedNow))

	entries, err := s.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, []string{"Real-time data", "Historical data"}, entries[0].Features)
	assert.Equal(t, []string{"weather", "api"}, entries[0].Tags)
	assert.Empty(t, entries[0].DocumentationURL)
	assert.Equal(t, "https://stripe.com/docs", entries[1].DocumentationURL)
	assert.Equal(t, 4.8, entries[1].CommunityRating)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveQueryError(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT id, name, category`).WillReturnError(fmt.Errorf("connection refused"))

	_, err := s.ListActive(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeCatalogStoreFailed, errors.KindOf(err))
}

func TestInsertEntries(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(mock sqlmock.Sqlmock)
		validate func(t *testing.T, out []models.CatalogEntry, err error)
	}{
		{
			name: "commits every entry",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				prep := mock.ExpectPrepare(`INSERT INTO api_catalog`)
				prep.ExpectExec().
					WithArgs("fixed-id", "Stripe", "finance", sqlmock.AnyArg(), "paid", "Payments",
						"https://stripe.com", "https://stripe.com", sqlmock.AnyArg(), 7.0, 4.0, true, fixedNow).
					WillReturnResult(sqlmock.NewResult(0, 1))
				prep.ExpectExec().
					WithArgs(sqlmock.AnyArg(), "OpenWeather", "weather", sqlmock.AnyArg(), "unknown", "Weather",
						"https://openweathermap.org", "https://openweathermap.org", sqlmock.AnyArg(), 7.0, 4.0, true, fixedNow).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			validate: func(t *testing.T, out []models.CatalogEntry, err error) {
				require.NoError(t, err)
				require.Len(t, out, 2)
				assert.Equal(t, "fixed-id", out[0].ID)
				assert.NotEmpty(t, out[1].ID)
				assert.Equal(t, fixedNow, out[1].CreatedAt)
			},
		},
		{
			name: "failed insert rolls back",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				prep := mock.ExpectPrepare(`INSERT INTO api_catalog`)
				prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
				prep.ExpectExec().WillReturnError(fmt.Errorf("duplicate key"))
				mock.ExpectRollback()
			},
			validate: func(t *testing.T, out []models.CatalogEntry, err error) {
				require.Error(t, err)
				assert.Nil(t, out)
				assert.Equal(t, errors.ErrCodeCatalogStoreFailed, errors.KindOf(err))
				assert.Equal(t, "OpenWeather", errors.AsStandard(err).Metadata["name"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newTestStore(t)
			tt.setup(mock)

			out, err := s.InsertEntries(context.Background(), []models.CatalogEntry{
				{ID: "fixed-id", Name: "Stripe", Category: "finance", Pricing: "paid", Description: "Payments",
					WebsiteURL: "https://stripe.com", DocumentationURL: "https://stripe.com",
					DocumentationQuality: 7.0, CommunityRating: 4.0, IsActive: true},
				{Name: "OpenWeather", Category: "weather", Pricing: "unknown", Description: "Weather",
					WebsiteURL: "https://openweathermap.org", DocumentationURL: "https://openweathermap.org",
					DocumentationQuality: 7.0, CommunityRating: 4.0, IsActive: true},
			})

			tt.validate(t, out, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTruncate(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectExec(`TRUNCATE TABLE api_catalog`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Truncate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveConversation(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectExec(`INSERT INTO conversations`).
		WithArgs(sqlmock.AnyArg(), "user-1", "session-1", "weather api", sqlmock.AnyArg(), fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := s.SaveConversation(context.Background(), models.Conversation{
		UserID:    "user-1",
		SessionID: "session-1",
		Query:     "weather api",
		Response: models.Result{
			Recommendations: models.RecommendationSet{Summary: "none"},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveConversationFailure(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectExec(`INSERT INTO conversations`).WillReturnError(fmt.Errorf("relation does not exist"))

	_, err := s.SaveConversation(context.Background(), models.Conversation{SessionID: "s"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeCatalogStoreFailed))
}
