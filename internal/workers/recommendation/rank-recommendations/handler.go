// internal/workers/recommendation/rank-recommendations/handler.go
package rankrecommendations

import (
	"context"
	"fmt"
	"sort"
	"time"

	"apisense/internal/common/camunda"
	"apisense/internal/common/errors"
	"apisense/internal/common/logger"
	"apisense/internal/common/metrics"
	"apisense/internal/llm"
	"apisense/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "rank-recommendations"

	operation = "rank_recommendations"

	noCandidatesSummary = "No APIs in the catalog matched your project. Try describing the features you need in different words."
	fallbackSummaryFmt  = "Found %d potential APIs for your project. Review the documentation to determine the best fit."
)

var (
	fallbackPros = []string{"Matches your search criteria"}
	fallbackCons = []string{"Requires further evaluation"}
	fallbackTips = []string{"Check the official documentation for integration details"}
)

// Handler ranks candidates with one model call and reconciles the answer
// against the candidate list.
type Handler struct {
	config  *Config
	backend llm.Backend
	logger  logger.Logger
}

func NewHandler(config *Config, backend llm.Backend, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		backend: backend,
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.RunJob(client, job, TaskType, h.config.Timeout, h.logger, h.Execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	set, fallback, err := h.rank(ctx, input.Requirements, input.Candidates)
	if err != nil {
		return nil, err
	}
	return &Output{Recommendations: *set, FallbackUsed: fallback}, nil
}

// Rank selects and explains candidates for reqs. With no candidates the model
// is not called. When the model yields nothing usable the top candidates are
// returned unranked.
func (h *Handler) Rank(ctx context.Context, reqs models.RequirementSet, candidates []models.Candidate) (*models.RecommendationSet, error) {
	set, _, err := h.rank(ctx, reqs, candidates)
	return set, err
}

func (h *Handler) rank(ctx context.Context, reqs models.RequirementSet, candidates []models.Candidate) (*models.RecommendationSet, bool, error) {
	if len(candidates) == 0 {
		h.logger.Info("no candidates to rank", nil)
		return &models.RecommendationSet{
			Recommendations: []models.Recommendation{},
			Summary:         noCandidatesSummary,
			Alternatives:    []string{},
		}, false, nil
	}

	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("rank").Observe(time.Since(start).Seconds())
	}()

	set, err := h.generate(ctx, reqs, candidates)
	if err != nil {
		if !h.config.DegradeOnMalformed || !errors.Is(err, errors.ErrCodeMalformedResponse, errors.ErrCodeEmptyResponse) {
			return nil, false, err
		}
		h.logger.Warn("ranking response unusable, degrading to fallback", map[string]interface{}{
			"errorCode": errors.KindOf(err),
		})
		metrics.FallbackActivations.WithLabelValues(string(errors.KindOf(err))).Inc()
		return h.fallback(&models.RecommendationSet{Alternatives: []string{}}, candidates), true, nil
	}

	h.reconcile(set.Recommendations, candidates)

	if len(set.Recommendations) == 0 {
		h.logger.Warn("model returned no recommendations, using fallback", map[string]interface{}{
			"candidates": len(candidates),
		})
		metrics.FallbackActivations.WithLabelValues("no_recommendations").Inc()
		return h.fallback(set, candidates), true, nil
	}

	sort.SliceStable(set.Recommendations, func(i, j int) bool {
		return set.Recommendations[i].MatchScore > set.Recommendations[j].MatchScore
	})

	h.logger.Info("recommendations ranked", map[string]interface{}{
		"candidates":      len(candidates),
		"recommendations": len(set.Recommendations),
		"hasSummary":      set.Summary != "",
	})
	return set, false, nil
}

func (h *Handler) generate(ctx context.Context, reqs models.RequirementSet, candidates []models.Candidate) (*models.RecommendationSet, error) {
	prompt, err := buildRecommendationsPrompt(reqs, candidates)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}

	opts := h.config.Generate
	opts.Operation = operation

	h.logger.Info("ranking candidates", map[string]interface{}{
		"projectType": reqs.ProjectType,
		"candidates":  len(candidates),
	})

	resp, err := h.backend.Generate(ctx, prompt, opts)
	if err != nil {
		h.logger.Error("ranking call failed", map[string]interface{}{"error": err.Error()})
		if errors.KindOf(err) == errors.ErrCodeInternal {
			return nil, errors.NewUpstreamError("llm", err)
		}
		return nil, err
	}

	obj, err := llm.DecodeObject(resp, operation)
	if err != nil {
		h.logger.Error("ranking response rejected", map[string]interface{}{"errorCode": errors.KindOf(err)})
		return nil, err
	}
	return toRecommendationSet(obj), nil
}

// reconcile attaches canonical ids and URLs. Unresolved recommendations keep
// blank URLs.
func (h *Handler) reconcile(recs []models.Recommendation, candidates []models.Candidate) {
	lookup := NewLookup(candidates, h.config.Aliases)
	unresolved := 0
	for i := range recs {
		r := &recs[i]
		c := lookup.Resolve(r.APIID, r.APIName)
		if c == nil {
			r.WebsiteURL, r.DocumentationURL = "", ""
			unresolved++
			continue
		}
		r.APIID = c.ID
		if r.APIName == "" {
			r.APIName = c.Name
		}
		r.WebsiteURL = c.WebsiteURL
		r.DocumentationURL = c.DocumentationURL
	}
	if unresolved > 0 {
		h.logger.Warn("recommendations could not be reconciled", map[string]interface{}{"unresolved": unresolved})
	}
}

// fallback fills set with the leading candidates in retrieval order. A summary
// the model already wrote is kept.
func (h *Handler) fallback(set *models.RecommendationSet, candidates []models.Candidate) *models.RecommendationSet {
	limit := h.config.FallbackLimit
	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}

	recs := make([]models.Recommendation, 0, limit)
	for _, c := range candidates[:limit] {
		recs = append(recs, models.Recommendation{
			APIID:            c.ID,
			APIName:          c.Name,
			MatchScore:       h.config.FallbackScore,
			Reasoning:        c.Description,
			Pros:             append([]string(nil), fallbackPros...),
			Cons:             append([]string(nil), fallbackCons...),
			IntegrationTips:  append([]string(nil), fallbackTips...),
			WebsiteURL:       c.WebsiteURL,
			DocumentationURL: c.DocumentationURL,
		})
	}

	set.Recommendations = recs
	if set.Summary == "" {
		set.Summary = fmt.Sprintf(fallbackSummaryFmt, len(candidates))
	}
	if set.Alternatives == nil {
		set.Alternatives = []string{}
	}
	return set
}

func toRecommendationSet(obj map[string]interface{}) *models.RecommendationSet {
	set := &models.RecommendationSet{
		Recommendations: []models.Recommendation{},
		Summary:         llm.String(obj, "summary"),
		Alternatives:    llm.StringList(obj, "alternatives"),
	}
	for _, item := range llm.Objects(obj, "recommendations") {
		score, _ := llm.Float(item, "match_score")
		set.Recommendations = append(set.Recommendations, models.Recommendation{
			APIID:           llm.String(item, "api_id"),
			APIName:         llm.String(item, "api_name"),
			MatchScore:      clampScore(score),
			Reasoning:       llm.String(item, "reasoning"),
			Pros:            llm.StringList(item, "pros"),
			Cons:            llm.StringList(item, "cons"),
			IntegrationTips: llm.StringList(item, "integration_tips"),
		})
	}
	return set
}

func clampScore(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}
