package catalogindex

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"apisense/internal/common/errors"
	"apisense/internal/common/logger"
	"apisense/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCluster is an in-memory stand-in for the handful of REST endpoints the
// index uses. Search applies term filters and ignores relevance.
type fakeCluster struct {
	mu        sync.Mutex
	indices   map[string]map[string]json.RawMessage
	order     map[string][]string
	bulkCalls int
	failBulk  int // 1-based bulk call that reports item errors
	searches  []map[string]interface{}
}

func newFakeCluster() *fakeCluster {
	return &fakeCluster{
		indices: map[string]map[string]json.RawMessage{},
		order:   map[string][]string{},
	}
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	name := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodHead:
		if _, ok := f.indices[name]; ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)

	case len(parts) == 1 && r.Method == http.MethodPut:
		if _, ok := f.indices[name]; ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"type":"resource_already_exists_exception","reason":"index exists"},"status":400}`)
			return
		}
		f.indices[name] = map[string]json.RawMessage{}
		_, _ = io.WriteString(w, `{"acknowledged":true}`)

	case len(parts) == 1 && r.Method == http.MethodDelete:
		delete(f.indices, name)
		delete(f.order, name)
		_, _ = io.WriteString(w, `{"acknowledged":true}`)

	case len(parts) == 3 && parts[1] == "_doc":
		body, _ := io.ReadAll(r.Body)
		f.put(name, parts[2], body)
		_, _ = io.WriteString(w, `{"result":"created"}`)

	case len(parts) == 2 && parts[1] == "_bulk":
		f.bulkCalls++
		f.bulk(w, name, r.Body)

	case len(parts) == 2 && parts[1] == "_search":
		f.search(w, name, r.Body)

	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (f *fakeCluster) put(index, id string, body []byte) {
	docs, ok := f.indices[index]
	if !ok {
		docs = map[string]json.RawMessage{}
		f.indices[index] = docs
	}
	if _, exists := docs[id]; !exists {
		f.order[index] = append(f.order[index], id)
	}
	docs[id] = body
}

func (f *fakeCluster) bulk(w http.ResponseWriter, index string, body io.Reader) {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 1<<20), 1<<20)

	var items []string
	for sc.Scan() {
		var meta struct {
			Index struct {
				ID string `json:"_id"`
			} `json:"index"`
		}
		_ = json.Unmarshal(sc.Bytes(), &meta)
		if !sc.Scan() {
			break
		}
		id := meta.Index.ID
		if f.bulkCalls == f.failBulk {
			items = append(items, `{"index":{"_id":"`+id+`","status":400,"error":{"type":"mapper_parsing_exception","reason":"bad field"}}}`)
			continue
		}
		f.put(index, id, append([]byte(nil), sc.Bytes()...))
		items = append(items, `{"index":{"_id":"`+id+`","status":201}}`)
	}

	failed := f.bulkCalls == f.failBulk
	_, _ = io.WriteString(w, `{"took":1,"errors":`+boolString(failed)+`,"items":[`+strings.Join(items, ",")+`]}`)
}

func (f *fakeCluster) search(w http.ResponseWriter, index string, body io.Reader) {
	docs, ok := f.indices[index]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"type":"index_not_found_exception","reason":"no such index"},"status":404}`)
		return
	}

	var query map[string]interface{}
	_ = json.NewDecoder(body).Decode(&query)
	f.searches = append(f.searches, query)

	terms := map[string]string{}
	if b, ok := query["query"].(map[string]interface{})["bool"].(map[string]interface{}); ok {
		if filters, ok := b["filter"].([]interface{}); ok {
			for _, clause := range filters {
				if term, ok := clause.(map[string]interface{})["term"].(map[string]interface{}); ok {
					for k, v := range term {
						terms[k], _ = v.(string)
					}
				}
			}
		}
	}
	size := int(query["size"].(float64))

	var hits []string
	total := 0
	for _, id := range f.order[index] {
		var doc map[string]interface{}
		_ = json.Unmarshal(docs[id], &doc)
		if active, ok := doc["is_active"].(bool); ok && !active {
			continue
		}
		match := true
		for k, v := range terms {
			if doc[k] != v {
				match = false
			}
		}
		if !match {
			continue
		}
		total++
		if len(hits) < size {
			hits = append(hits, `{"_id":"`+id+`","_score":1.5,"_source":`+string(docs[id])+`,"highlight":{"name":["<em>`+id+`</em>"]}}`)
		}
	}

	_, _ = io.WriteString(w, `{"took":3,"hits":{"total":{"value":`+itoa(total)+`},"max_score":1.5,"hits":[`+strings.Join(hits, ",")+`]}}`)
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func newTestIndex(t *testing.T, cluster http.Handler, opts Options) *Index {
	t.Helper()
	srv := httptest.NewServer(cluster)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{srv.URL},
		DisableRetry: true,
	})
	require.NoError(t, err)

	return New(client, opts, logger.NewTestLogger(t))
}

func entry(id, name, category string) models.CatalogEntry {
	return models.CatalogEntry{
		ID:          id,
		Name:        name,
		Category:    category,
		Pricing:     models.PricingFree,
		Description: name + " description",
		WebsiteURL:  "https://" + id + ".example.com",
		IsActive:    true,
	}
}

func TestIndexName(t *testing.T) {
	idx := newTestIndex(t, newFakeCluster(), Options{Prefix: "apisense"})
	assert.Equal(t, "apisense_apis", idx.Name())
	assert.Equal(t, "apis", IndexName("", CatalogSuffix))
}

func TestEnsureIndex(t *testing.T) {
	cluster := newFakeCluster()
	idx := newTestIndex(t, cluster, Options{Prefix: "test"})
	ctx := context.Background()

	assert.False(t, idx.Exists(ctx))

	created, err := idx.EnsureIndex(ctx)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, idx.Exists(ctx))

	created, err = idx.EnsureIndex(ctx)
	require.NoError(t, err)
	assert.False(t, created)

	err = idx.Create(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeIndexAlreadyExists))

	require.NoError(t, idx.Delete(ctx))
	assert.False(t, idx.Exists(ctx))
}

func TestExistsFalseOnTransportError(t *testing.T) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{"http://127.0.0.1:1"},
		DisableRetry: true,
	})
	require.NoError(t, err)

	idx := New(client, Options{Prefix: "test"}, logger.NewNoOpLogger())
	assert.False(t, idx.Exists(context.Background()))
}

func TestUpsertIsIdempotent(t *testing.T) {
	cluster := newFakeCluster()
	idx := newTestIndex(t, cluster, Options{Prefix: "test", RefreshOnWrite: true})
	ctx := context.Background()

	_, err := idx.EnsureIndex(ctx)
	require.NoError(t, err)

	first := entry("1", "OpenWeather", "weather")
	require.NoError(t, idx.Upsert(ctx, first))

	second := first
	second.Name = "OpenWeatherMap"
	require.NoError(t, idx.Upsert(ctx, second))

	res, err := idx.Search(ctx, SearchRequest{Query: "weather"})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, int64(1), res.Total)
	assert.Equal(t, "1", res.Hits[0].ID)
	assert.Equal(t, "OpenWeatherMap", res.Hits[0].Source.Name)
}

func TestUpsertRequiresID(t *testing.T) {
	idx := newTestIndex(t, newFakeCluster(), Options{Prefix: "test"})

	err := idx.Upsert(context.Background(), models.CatalogEntry{Name: "No ID"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.KindOf(err))
}

func TestBulkUpsert(t *testing.T) {
	tests := []struct {
		name     string
		entries  int
		failBulk int
		validate func(t *testing.T, res *BulkResult, err error, cluster *fakeCluster)
	}{
		{
			name:    "batches every entry",
			entries: 5,
			validate: func(t *testing.T, res *BulkResult, err error, cluster *fakeCluster) {
				require.NoError(t, err)
				assert.Equal(t, 5, res.Indexed)
				assert.Equal(t, 3, res.Batches)
				assert.Len(t, cluster.indices["test_apis"], 5)
			},
		},
		{
			name:     "failed batch stops the run and is named",
			entries:  5,
			failBulk: 2,
			validate: func(t *testing.T, res *BulkResult, err error, cluster *fakeCluster) {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeBulkIndexFailed, errors.KindOf(err))
				assert.Equal(t, 2, errors.AsStandard(err).Metadata["batch"])
				assert.Contains(t, errors.AsStandard(err).Details, "first failed id: 3")
				assert.Equal(t, 2, res.Indexed)
				assert.Equal(t, 1, res.Batches)
				assert.Equal(t, 2, cluster.bulkCalls)
			},
		},
		{
			name:    "empty input is a no-op",
			entries: 0,
			validate: func(t *testing.T, res *BulkResult, err error, cluster *fakeCluster) {
				require.NoError(t, err)
				assert.Zero(t, res.Indexed)
				assert.Zero(t, cluster.bulkCalls)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cluster := newFakeCluster()
			cluster.failBulk = tt.failBulk
			idx := newTestIndex(t, cluster, Options{Prefix: "test", BatchSize: 2})

			var entries []models.CatalogEntry
			for i := 1; i <= tt.entries; i++ {
				entries = append(entries, entry(itoa(i), "API "+itoa(i), "general"))
			}

			res, err := idx.BulkUpsert(context.Background(), entries)
			tt.validate(t, res, err, cluster)
		})
	}
}

func TestSearch(t *testing.T) {
	cluster := newFakeCluster()
	idx := newTestIndex(t, cluster, Options{Prefix: "test"})
	ctx := context.Background()

	inactive := entry("4", "Old Weather", "weather")
	inactive.IsActive = false

	_, err := idx.BulkUpsert(ctx, []models.CatalogEntry{
		entry("1", "OpenWeather", "weather"),
		entry("2", "Stripe", "finance"),
		entry("3", "Weatherstack", "weather"),
		inactive,
	})
	require.NoError(t, err)

	t.Run("category filter is a hard constraint", func(t *testing.T) {
		res, err := idx.Search(ctx, SearchRequest{
			Query:   "wether",
			Filters: models.SearchFilters{Category: "weather"},
		})
		require.NoError(t, err)
		require.Len(t, res.Hits, 2)
		for _, h := range res.Hits {
			assert.Equal(t, "weather", h.Source.Category)
			assert.True(t, h.Source.IsActive)
		}
	})

	t.Run("limit bounds hits but not total", func(t *testing.T) {
		res, err := idx.Search(ctx, SearchRequest{Query: "api", Limit: 1})
		require.NoError(t, err)
		assert.Len(t, res.Hits, 1)
		assert.Equal(t, int64(3), res.Total)
		assert.Equal(t, 1.5, res.MaxScore)
		assert.Equal(t, []string{"<em>1</em>"}, res.Hits[0].Highlight["name"])
	})

	t.Run("request carries the search body", func(t *testing.T) {
		last := cluster.searches[len(cluster.searches)-1]
		assert.Equal(t, float64(1), last["size"])
		assert.Equal(t, true, last["track_total_hits"])
	})
}

func TestSearchMissingIndex(t *testing.T) {
	idx := newTestIndex(t, newFakeCluster(), Options{Prefix: "missing"})

	_, err := idx.Search(context.Background(), SearchRequest{Query: "weather"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeIndexNotFound, errors.KindOf(err))
}

func TestSearchUpstreamFailure(t *testing.T) {
	srv := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(bytes.TrimSpace([]byte(`{"error":{"type":"search_phase_execution_exception","reason":"all shards failed"}}`)))
	})
	idx := newTestIndex(t, srv, Options{Prefix: "test"})

	_, err := idx.Search(context.Background(), SearchRequest{Query: "weather"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUpstreamUnavailable, errors.KindOf(err))
	assert.Contains(t, err.Error(), "all shards failed")
}
