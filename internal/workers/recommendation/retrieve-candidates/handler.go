// internal/workers/recommendation/retrieve-candidates/handler.go
package retrievecandidates

import (
	"context"
	"strings"
	"time"

	"apisense/internal/catalogindex"
	"apisense/internal/common/camunda"
	"apisense/internal/common/logger"
	"apisense/internal/common/metrics"
	"apisense/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "retrieve-candidates"

// Searcher is the part of the catalog index retrieval needs.
type Searcher interface {
	Search(ctx context.Context, req catalogindex.SearchRequest) (*catalogindex.SearchResult, error)
}

// Handler queries the catalog and projects hits into candidates. It has no
// filter policy of its own.
type Handler struct {
	config *Config
	index  Searcher
	logger logger.Logger
}

func NewHandler(config *Config, index Searcher, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.RunJob(client, job, TaskType, h.config.Timeout, h.logger, h.Execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	req := input.Request
	if input.DeriveFilters && req.Requirements != nil {
		req.Filters = DeriveFilters(*req.Requirements)
	}
	return h.Retrieve(ctx, req)
}

// Retrieve runs one catalog search. An empty Query falls back to the
// requirement summary.
func (h *Handler) Retrieve(ctx context.Context, req Request) (*Output, error) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("retrieve").Observe(time.Since(start).Seconds())
	}()

	query := strings.TrimSpace(req.Query)
	if query == "" && req.Requirements != nil {
		query = req.Requirements.SearchQuery("")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = h.config.DefaultLimit
	}

	res, err := h.index.Search(ctx, catalogindex.SearchRequest{
		Query:   query,
		Filters: req.Filters,
		Limit:   limit,
	})
	if err != nil {
		h.logger.Error("candidate search failed", map[string]interface{}{
			"query":   query,
			"filters": req.Filters,
			"error":   err.Error(),
		})
		return nil, err
	}

	candidates := make([]models.Candidate, 0, len(res.Hits))
	names := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		candidates = append(candidates, project(hit, req.IncludeDetails))
		names = append(names, hit.Source.Name)
	}

	h.logger.Info("candidates retrieved", map[string]interface{}{
		"query":      query,
		"filters":    req.Filters,
		"limit":      limit,
		"total":      res.Total,
		"returned":   len(candidates),
		"candidates": names,
	})

	return &Output{Candidates: candidates, Total: res.Total}, nil
}

// DeriveFilters applies the structured-query policy: the first required
// category and a concrete budget become hard filters.
func DeriveFilters(reqs models.RequirementSet) models.SearchFilters {
	var f models.SearchFilters
	if len(reqs.RequiredCategories) > 0 {
		f.Category = strings.ToLower(strings.TrimSpace(reqs.RequiredCategories[0]))
	}
	switch budget := strings.ToLower(reqs.BudgetConsideration); budget {
	case models.PricingFree, models.PricingFreemium, models.PricingPaid:
		f.Pricing = budget
	}
	return f
}

func project(hit catalogindex.Hit, detailed bool) models.Candidate {
	e := hit.Source
	c := models.Candidate{
		ID:               hit.ID,
		Name:             e.Name,
		Category:         e.Category,
		Description:      e.Description,
		Pricing:          e.Pricing,
		WebsiteURL:       e.WebsiteURL,
		DocumentationURL: e.DocumentationURL,
	}
	if c.ID == "" {
		c.ID = e.ID
	}
	if detailed {
		docQuality, rating := e.DocumentationQuality, e.CommunityRating
		c.Features = e.Features
		c.Tags = e.Tags
		c.DocumentationQuality = &docQuality
		c.CommunityRating = &rating
	}
	return c
}
