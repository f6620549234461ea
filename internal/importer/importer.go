// Package importer loads a public API list, derives catalog metadata for each
// record and writes the result to the store and the search index.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"apisense/internal/catalogindex"
	"apisense/internal/common/errors"
	"apisense/internal/common/logger"
	"apisense/internal/models"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
)

const (
	defaultName                 = "Unknown"
	defaultDocumentationQuality = 7.0
	defaultCommunityRating      = 4.0
)

// publicAPISchema accepts the public_apis.json layout: an array of objects
// carrying at least a name. Extra fields are ignored.
var publicAPISchema = map[string]interface{}{
	"type": "array",
	"items": map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"name"},
		"properties": map[string]interface{}{
			"name":        map[string]interface{}{"type": "string"},
			"description": map[string]interface{}{"type": "string"},
			"url":         map[string]interface{}{"type": "string"},
		},
	},
}

// PublicAPI is one record of the source file.
type PublicAPI struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Parse reads and validates a public API list.
func Parse(r io.Reader) ([]PublicAPI, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("read import file: %v", err))
	}

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("invalid JSON: %v", err))
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(publicAPISchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, errors.NewInvalidInputError("schema validation failed: " + strings.Join(msgs, "; "))
	}

	var apis []PublicAPI
	if err := json.Unmarshal(raw, &apis); err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("decode records: %v", err))
	}
	return apis, nil
}

// ToEntry derives a catalog entry from a source record. Pricing is unknown
// and ratings take neutral defaults since the source carries neither.
func ToEntry(api PublicAPI) models.CatalogEntry {
	name := strings.TrimSpace(api.Name)
	if name == "" {
		name = defaultName
	}
	return models.CatalogEntry{
		Name:                 name,
		Category:             Category(name, api.Description),
		Features:             Features(api.Description),
		Pricing:              models.PricingUnknown,
		Description:          api.Description,
		WebsiteURL:           api.URL,
		DocumentationURL:     api.URL,
		Tags:                 Tags(name, api.Description),
		DocumentationQuality: defaultDocumentationQuality,
		CommunityRating:      defaultCommunityRating,
		IsActive:             true,
	}
}

// Store is the system of record written before indexing.
type Store interface {
	Truncate(ctx context.Context) error
	InsertEntries(ctx context.Context, entries []models.CatalogEntry) ([]models.CatalogEntry, error)
}

// Lister supplies the active catalog for a reindex.
type Lister interface {
	ListActive(ctx context.Context) ([]models.CatalogEntry, error)
}

// Index is the search index the entries end up in.
type Index interface {
	EnsureIndex(ctx context.Context) (bool, error)
	BulkUpsert(ctx context.Context, entries []models.CatalogEntry) (*catalogindex.BulkResult, error)
}

type Importer struct {
	store  Store
	index  Index
	logger logger.Logger
}

// New builds an Importer. store may be nil, in which case entries get fresh
// UUIDs and go straight to the index.
func New(store Store, index Index, log logger.Logger) *Importer {
	return &Importer{
		store:  store,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "importer"}),
	}
}

// Summary reports what an import run wrote.
type Summary struct {
	Records      int  `json:"records"`
	Indexed      int  `json:"indexed"`
	Batches      int  `json:"batches"`
	IndexCreated bool `json:"index_created"`
}

// Import replaces the catalog with apis. The store is cleared and rewritten
// first so the index never holds IDs the store does not know.
func (im *Importer) Import(ctx context.Context, apis []PublicAPI) (*Summary, error) {
	entries := make([]models.CatalogEntry, 0, len(apis))
	for _, api := range apis {
		entries = append(entries, ToEntry(api))
	}

	if im.store != nil {
		if err := im.store.Truncate(ctx); err != nil {
			return nil, err
		}
		stored, err := im.store.InsertEntries(ctx, entries)
		if err != nil {
			return nil, err
		}
		entries = stored
	} else {
		for i := range entries {
			entries[i].ID = uuid.New().String()
		}
	}

	created, err := im.index.EnsureIndex(ctx)
	if err != nil {
		return nil, err
	}

	res, err := im.index.BulkUpsert(ctx, entries)
	summary := &Summary{Records: len(apis), IndexCreated: created}
	if res != nil {
		summary.Indexed = res.Indexed
		summary.Batches = res.Batches
	}
	if err != nil {
		return summary, err
	}

	im.logger.Info("catalog import completed", map[string]interface{}{
		"records":      summary.Records,
		"indexed":      summary.Indexed,
		"batches":      summary.Batches,
		"indexCreated": created,
	})
	return summary, nil
}

// Reindex pushes every active stored entry to the index.
func (im *Importer) Reindex(ctx context.Context, lister Lister) (*Summary, error) {
	entries, err := lister.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	created, err := im.index.EnsureIndex(ctx)
	if err != nil {
		return nil, err
	}

	res, err := im.index.BulkUpsert(ctx, entries)
	summary := &Summary{Records: len(entries), IndexCreated: created}
	if res != nil {
		summary.Indexed = res.Indexed
		summary.Batches = res.Batches
	}
	return summary, err
}
