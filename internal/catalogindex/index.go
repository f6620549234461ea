// Package catalogindex is the full-text search index over the API catalog.
package catalogindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"apisense/internal/common/errors"
	"apisense/internal/common/logger"
	"apisense/internal/common/metrics"
	"apisense/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const (
	defaultBatchSize   = 100
	defaultSearchLimit = 10
)

// Options tunes an Index.
type Options struct {
	Prefix         string
	BatchSize      int
	RefreshOnWrite bool
}

// Index manages one catalog index. It holds no mutable state and is safe for
// concurrent use.
type Index struct {
	client    *elasticsearch.Client
	name      string
	batchSize int
	refresh   bool
	logger    logger.Logger
	now       func() time.Time
}

func New(client *elasticsearch.Client, opts Options, log logger.Logger) *Index {
	batch := opts.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	name := IndexName(opts.Prefix, CatalogSuffix)
	return &Index{
		client:    client,
		name:      name,
		batchSize: batch,
		refresh:   opts.RefreshOnWrite,
		logger:    log.WithFields(map[string]interface{}{"index": name}),
		now:       time.Now,
	}
}

// Name is the concrete index name.
func (i *Index) Name() string {
	return i.name
}

// SearchRequest is one catalog query. Limit bounds returned hits, not Total.
type SearchRequest struct {
	Query   string
	Filters models.SearchFilters
	Limit   int
}

func (r SearchRequest) size() int {
	if r.Limit <= 0 {
		return defaultSearchLimit
	}
	return r.Limit
}

type Hit struct {
	ID        string
	Score     float64
	Source    models.CatalogEntry
	Highlight map[string][]string
}

type SearchResult struct {
	Hits     []Hit
	Total    int64
	MaxScore float64
	Took     int64
}

type BulkResult struct {
	Indexed int
	Batches int
}

// Exists reports whether the index exists. Any transport or lookup failure
// reads as false.
func (i *Index) Exists(ctx context.Context) bool {
	res, err := i.client.Indices.Exists([]string{i.name}, i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		i.logger.Warn("index existence check failed", map[string]interface{}{"error": err.Error()})
		return false
	}
	defer res.Body.Close()
	return res.StatusCode == http.StatusOK
}

// Create creates the index with the catalog mapping. An existing index yields
// an INDEX_ALREADY_EXISTS error.
func (i *Index) Create(ctx context.Context) error {
	body, err := json.Marshal(catalogMapping())
	if err != nil {
		return errors.NewInternalError(err)
	}

	res, err := i.client.Indices.Create(
		i.name,
		i.client.Indices.Create.WithBody(bytes.NewReader(body)),
		i.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return errors.NewUpstreamError("elasticsearch", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		esErr := decodeError(res)
		if esErr.Type == "resource_already_exists_exception" {
			return errors.NewIndexAlreadyExistsError(i.name)
		}
		return errors.NewUpstreamUnavailableError("elasticsearch", esErr)
	}

	i.logger.Info("index created", nil)
	return nil
}

// EnsureIndex creates the index when absent and reports whether it did. It is
// idempotent, including against a concurrent creator.
func (i *Index) EnsureIndex(ctx context.Context) (bool, error) {
	if i.Exists(ctx) {
		return false, nil
	}
	if err := i.Create(ctx); err != nil {
		if errors.Is(err, errors.ErrCodeIndexAlreadyExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete drops the index; a missing index is not an error.
func (i *Index) Delete(ctx context.Context) error {
	res, err := i.client.Indices.Delete(
		[]string{i.name},
		i.client.Indices.Delete.WithIgnoreUnavailable(true),
		i.client.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return errors.NewUpstreamError("elasticsearch", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return errors.NewUpstreamUnavailableError("elasticsearch", decodeError(res))
	}
	return nil
}

// Upsert writes entry under its ID, replacing any previous version.
func (i *Index) Upsert(ctx context.Context, entry models.CatalogEntry) error {
	if strings.TrimSpace(entry.ID) == "" {
		return errors.NewInvalidInputError("catalog entry id is required")
	}

	body, err := json.Marshal(newDocument(entry, i.now()))
	if err != nil {
		return errors.NewInternalError(err)
	}

	opts := []func(*esapi.IndexRequest){
		i.client.Index.WithDocumentID(entry.ID),
		i.client.Index.WithContext(ctx),
	}
	if i.refresh {
		opts = append(opts, i.client.Index.WithRefresh("wait_for"))
	}

	res, err := i.client.Index(i.name, bytes.NewReader(body), opts...)
	if err != nil {
		return errors.NewUpstreamError("elasticsearch", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.NewUpstreamUnavailableError("elasticsearch", decodeError(res))
	}
	return nil
}

// BulkUpsert writes entries in batches. The first failing batch stops the run
// and is named in the error; earlier batches stay committed and are counted
// in the returned result.
func (i *Index) BulkUpsert(ctx context.Context, entries []models.CatalogEntry) (*BulkResult, error) {
	result := &BulkResult{}
	now := i.now()

	for start := 0; start < len(entries); start += i.batchSize {
		end := start + i.batchSize
		if end > len(entries) {
			end = len(entries)
		}
		batchNo := start/i.batchSize + 1

		if err := i.bulkBatch(ctx, entries[start:end], batchNo, now); err != nil {
			i.logger.Error("bulk batch failed", map[string]interface{}{
				"batch":   batchNo,
				"indexed": result.Indexed,
				"error":   err.Error(),
			})
			return result, err
		}

		result.Indexed += end - start
		result.Batches++
	}

	i.logger.Info("bulk upsert completed", map[string]interface{}{
		"indexed": result.Indexed,
		"batches": result.Batches,
	})
	return result, nil
}

func (i *Index) bulkBatch(ctx context.Context, batch []models.CatalogEntry, batchNo int, now time.Time) error {
	var buf bytes.Buffer
	for _, entry := range batch {
		if strings.TrimSpace(entry.ID) == "" {
			return errors.NewBulkIndexFailedError(i.name, batchNo, fmt.Sprintf("entry %q has no id", entry.Name), nil)
		}
		meta, _ := json.Marshal(map[string]interface{}{
			"index": map[string]interface{}{"_index": i.name, "_id": entry.ID},
		})
		doc, err := json.Marshal(newDocument(entry, now))
		if err != nil {
			return errors.NewBulkIndexFailedError(i.name, batchNo, "encode document", err)
		}
		buf.Write(meta)
		buf.WriteByte('\n')
		buf.Write(doc)
		buf.WriteByte('\n')
	}

	opts := []func(*esapi.BulkRequest){
		i.client.Bulk.WithIndex(i.name),
		i.client.Bulk.WithContext(ctx),
	}
	if i.refresh {
		opts = append(opts, i.client.Bulk.WithRefresh("wait_for"))
	}

	res, err := i.client.Bulk(bytes.NewReader(buf.Bytes()), opts...)
	if err != nil {
		return errors.NewBulkIndexFailedError(i.name, batchNo, "transport", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.NewBulkIndexFailedError(i.name, batchNo, "request rejected", decodeError(res))
	}

	var br bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&br); err != nil {
		return errors.NewBulkIndexFailedError(i.name, batchNo, "decode response", err)
	}
	if br.Errors {
		id, reason := br.firstFailure()
		return errors.NewBulkIndexFailedError(i.name, batchNo,
			fmt.Sprintf("first failed id: %s, reason: %s", id, reason), nil)
	}
	return nil
}

// Search runs a fuzzy multi-field query with hard filters.
func (i *Index) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	body, err := json.Marshal(BuildSearchQuery(req))
	if err != nil {
		return nil, errors.NewInternalError(err)
	}

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(i.name),
		i.client.Search.WithBody(bytes.NewReader(body)),
		i.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, errors.NewUpstreamError("elasticsearch", err).
			WithMetadata("query", req.Query).
			WithMetadata("filters", req.Filters)
	}
	defer res.Body.Close()

	if res.IsError() {
		esErr := decodeError(res)
		if res.StatusCode == http.StatusNotFound || esErr.Type == "index_not_found_exception" {
			return nil, errors.NewIndexNotFoundError(i.name)
		}
		return nil, errors.NewUpstreamUnavailableError("elasticsearch", esErr).
			WithMetadata("query", req.Query).
			WithMetadata("filters", req.Filters)
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, errors.NewUpstreamUnavailableError("elasticsearch", fmt.Errorf("decode search response: %w", err))
	}

	result := &SearchResult{
		Hits:  make([]Hit, 0, len(sr.Hits.Hits)),
		Total: sr.Hits.Total.Value,
		Took:  sr.Took,
	}
	if sr.Hits.MaxScore != nil {
		result.MaxScore = *sr.Hits.MaxScore
	}
	for _, h := range sr.Hits.Hits {
		hit := Hit{ID: h.ID, Source: h.Source.entry(h.ID), Highlight: h.Highlight}
		if h.Score != nil {
			hit.Score = *h.Score
		}
		result.Hits = append(result.Hits, hit)
	}

	filtered := "false"
	if !req.Filters.IsEmpty() {
		filtered = "true"
	}
	metrics.SearchHits.WithLabelValues(filtered).Observe(float64(len(result.Hits)))

	i.logger.Info("catalog search completed", map[string]interface{}{
		"query":    req.Query,
		"filters":  req.Filters,
		"limit":    req.size(),
		"total":    result.Total,
		"returned": len(result.Hits),
		"tookMs":   result.Took,
	})
	return result, nil
}

type searchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		MaxScore *float64 `json:"max_score"`
		Hits     []struct {
			ID        string              `json:"_id"`
			Score     *float64            `json:"_score"`
			Source    document            `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

func (b bulkResponse) firstFailure() (string, string) {
	for _, item := range b.Items {
		for _, op := range item {
			if op.Error != nil {
				return op.ID, op.Error.Type + ": " + op.Error.Reason
			}
		}
	}
	return "", "unknown"
}

// esError is the error envelope returned by the REST API.
type esError struct {
	Status int
	Type   string
	Reason string
}

func (e *esError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("elasticsearch status %d", e.Status)
	}
	return fmt.Sprintf("elasticsearch status %d: %s: %s", e.Status, e.Type, e.Reason)
}

func decodeError(res *esapi.Response) *esError {
	out := &esError{Status: res.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err != nil {
		return out
	}
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) != nil || len(envelope.Error) == 0 {
		return out
	}
	var detail struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	}
	if json.Unmarshal(envelope.Error, &detail) == nil {
		out.Type, out.Reason = detail.Type, detail.Reason
	} else {
		var reason string
		if json.Unmarshal(envelope.Error, &reason) == nil {
			out.Reason = reason
		}
	}
	return out
}
