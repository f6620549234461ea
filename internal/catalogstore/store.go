// Package catalogstore is the PostgreSQL system of record for catalog entries
// and saved structured-query conversations.
package catalogstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"apisense/internal/common/errors"
	"apisense/internal/common/logger"
	"apisense/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Store struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "catalogstore"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ListActive returns every active entry ordered by name.
func (s *Store) ListActive(ctx context.Context) ([]models.CatalogEntry, error) {
	rows, err := s.db.QueryContext(ctx, listActiveQuery)
	if err != nil {
		return nil, errors.NewCatalogStoreFailedError("list active", err)
	}
	defer rows.Close()

	var entries []models.CatalogEntry
	for rows.Next() {
		var e models.CatalogEntry
		var features, tags pq.StringArray
		var website, docs sql.NullString
		if err := rows.Scan(
			&e.ID, &e.Name, &e.Category, &features, &e.Pricing, &e.Description,
			&website, &docs, &tags,
			&e.DocumentationQuality, &e.CommunityRating, &e.IsActive,
			&e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, errors.NewCatalogStoreFailedError("scan entry", err)
		}
		e.Features = []string(features)
		e.Tags = []string(tags)
		e.WebsiteURL = website.String
		e.DocumentationURL = docs.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewCatalogStoreFailedError("iterate entries", err)
	}

	s.logger.Debug("active entries loaded", map[string]interface{}{"count": len(entries)})
	return entries, nil
}

// InsertEntries writes entries in one transaction and returns them with IDs
// and timestamps filled in. Entries without an ID get a fresh UUID.
func (s *Store) InsertEntries(ctx context.Context, entries []models.CatalogEntry) ([]models.CatalogEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewCatalogStoreFailedError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertEntryQuery)
	if err != nil {
		return nil, errors.NewCatalogStoreFailedError("prepare insert", err)
	}
	defer stmt.Close()

	now := s.now()
	out := make([]models.CatalogEntry, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		e.CreatedAt, e.UpdatedAt = now, now

		if _, err := stmt.ExecContext(ctx,
			e.ID, e.Name, e.Category, pq.Array(e.Features), e.Pricing, e.Description,
			e.WebsiteURL, e.DocumentationURL, pq.Array(e.Tags),
			e.DocumentationQuality, e.CommunityRating, e.IsActive,
			now,
		); err != nil {
			return nil, errors.NewCatalogStoreFailedError("insert entry", err).WithMetadata("name", e.Name)
		}
		out = append(out, e)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewCatalogStoreFailedError("commit", err)
	}

	s.logger.Info("catalog entries inserted", map[string]interface{}{"count": len(out)})
	return out, nil
}

// Truncate removes every catalog entry.
func (s *Store) Truncate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, truncateQuery); err != nil {
		return errors.NewCatalogStoreFailedError("truncate", err)
	}
	s.logger.Warn("catalog truncated", nil)
	return nil
}

// SaveConversation persists a structured-query exchange and returns its ID.
func (s *Store) SaveConversation(ctx context.Context, c models.Conversation) (string, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}

	response, err := json.Marshal(c.Response)
	if err != nil {
		return "", errors.NewInternalError(err)
	}

	if _, err := s.db.ExecContext(ctx, insertConversationQuery,
		c.ID, c.UserID, c.SessionID, c.Query, response, c.CreatedAt,
	); err != nil {
		return "", errors.NewCatalogStoreFailedError("save conversation", err).WithMetadata("sessionId", c.SessionID)
	}

	s.logger.Info("conversation saved", map[string]interface{}{
		"conversationId": c.ID,
		"sessionId":      c.SessionID,
		"recommended":    len(c.Response.Recommendations.Recommendations),
	})
	return c.ID, nil
}
