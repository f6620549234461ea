// internal/workers/recommendation/recommend-apis/handler.go
package recommendapis

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"apisense/internal/cache"
	"apisense/internal/common/camunda"
	"apisense/internal/common/errors"
	"apisense/internal/common/logger"
	"apisense/internal/common/metrics"
	"apisense/internal/common/observability"
	"apisense/internal/models"
	retrievecandidates "apisense/internal/workers/recommendation/retrieve-candidates"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	TaskType = "recommend-apis"

	pathDescription = "public_description"
	pathFile        = "public_file"
	pathQuery       = "query"

	cacheVariantDescription = "description"
	cacheVariantFile        = "file"

	fallbackProjectType = "web application"
)

type Extractor interface {
	Analyze(ctx context.Context, description, additionalContext string) (*models.RequirementSet, error)
	AnalyzeFile(ctx context.Context, content, filename string) (*models.RequirementSet, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, req retrievecandidates.Request) (*retrievecandidates.Output, error)
}

type Ranker interface {
	Rank(ctx context.Context, reqs models.RequirementSet, candidates []models.Candidate) (*models.RecommendationSet, error)
}

type ConversationStore interface {
	SaveConversation(ctx context.Context, c models.Conversation) (string, error)
}

// Dependencies wires the pipeline stages. Cache, Store and Observability are
// optional.
type Dependencies struct {
	Extractor     Extractor
	Retriever     Retriever
	Ranker        Ranker
	Cache         *cache.RequirementCache
	Store         ConversationStore
	Observability *observability.Observability
}

// Handler sequences extraction, retrieval and ranking. It is the only
// component that talks to all three stages; no stage retries another.
type Handler struct {
	config *Config
	deps   Dependencies
	logger logger.Logger
}

func NewHandler(config *Config, deps Dependencies, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		deps:   deps,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.RunJob(client, job, TaskType, h.config.Timeout, h.logger, h.Execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	switch input.Mode {
	case ModeDescription, "":
		result, err := h.AnalyzeDescription(ctx, input.Text)
		if err != nil {
			return nil, err
		}
		return &Output{Result: *result}, nil
	case ModeFile:
		result, err := h.AnalyzeFile(ctx, input.Text, input.Filename)
		if err != nil {
			return nil, err
		}
		return &Output{Result: *result}, nil
	case ModeQuery:
		qr, err := h.Query(ctx, QueryRequest{Query: input.Text, UserID: input.UserID, SessionID: input.SessionID})
		if err != nil {
			return nil, err
		}
		return &Output{Result: qr.Result, SessionID: qr.SessionID, ConversationID: qr.ConversationID}, nil
	default:
		return nil, errors.NewInvalidInputError(fmt.Sprintf("unknown mode %q", input.Mode))
	}
}

// AnalyzeDescription is the public free-text path. Retrieval runs without
// filters and searches the raw description, leaving all filtering to ranking.
func (h *Handler) AnalyzeDescription(ctx context.Context, description string) (result *models.Result, err error) {
	ctx, finish := h.begin(ctx, pathDescription)
	defer func() { finish(err) }()

	reqs, err := h.extract(ctx, cacheVariantDescription, description, func(ctx context.Context) (*models.RequirementSet, error) {
		return h.deps.Extractor.Analyze(ctx, description, "")
	})
	if err != nil {
		return nil, err
	}

	return h.retrieveAndRank(ctx, *reqs, retrievecandidates.Request{
		Query: description,
		Limit: h.config.PublicSearchLimit,
	})
}

// AnalyzeFile is the public upload path. Content is capped before extraction;
// a failed extraction degrades to basic requirements built from the content.
func (h *Handler) AnalyzeFile(ctx context.Context, content, filename string) (result *models.Result, err error) {
	ctx, finish := h.begin(ctx, pathFile)
	defer func() { finish(err) }()

	capped := truncateRunes(content, h.config.MaxFileChars)

	reqs, err := h.extract(ctx, cacheVariantFile, capped, func(ctx context.Context) (*models.RequirementSet, error) {
		return h.deps.Extractor.AnalyzeFile(ctx, capped, filename)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewUpstreamError("pipeline", ctx.Err())
		}
		h.logger.Warn("file analysis failed, using basic requirements", map[string]interface{}{
			"filename":  filename,
			"errorCode": errors.KindOf(err),
		})
		metrics.FallbackActivations.WithLabelValues("file_requirements").Inc()
		reqs = h.basicRequirements(capped)
	}

	return h.retrieveAndRank(ctx, *reqs, retrievecandidates.Request{
		Query: reqs.SearchQuery(capped),
		Limit: h.config.PublicSearchLimit,
	})
}

// Query is the structured path: filters derived from the requirements, a
// larger detailed candidate set and a persisted conversation.
func (h *Handler) Query(ctx context.Context, req QueryRequest) (qr *QueryResult, err error) {
	ctx, finish := h.begin(ctx, pathQuery)
	defer func() { finish(err) }()

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	reqs, err := h.extract(ctx, cacheVariantDescription, req.Query, func(ctx context.Context) (*models.RequirementSet, error) {
		return h.deps.Extractor.Analyze(ctx, req.Query, "")
	})
	if err != nil {
		return nil, err
	}

	result, err := h.retrieveAndRank(ctx, *reqs, retrievecandidates.Request{
		Query:          req.Query,
		Requirements:   reqs,
		Filters:        retrievecandidates.DeriveFilters(*reqs),
		Limit:          h.config.QuerySearchLimit,
		IncludeDetails: true,
	})
	if err != nil {
		return nil, err
	}

	qr = &QueryResult{Result: *result, SessionID: sessionID}
	if h.deps.Store != nil {
		id, saveErr := h.deps.Store.SaveConversation(ctx, models.Conversation{
			UserID:    req.UserID,
			SessionID: sessionID,
			Query:     req.Query,
			Response:  *result,
		})
		if saveErr != nil {
			h.logger.Warn("conversation not saved", map[string]interface{}{
				"sessionId": sessionID,
				"error":     saveErr.Error(),
			})
		} else {
			qr.ConversationID = id
		}
	}
	return qr, nil
}

// begin applies the request budget and opens the pipeline span. The returned
// finish func records the outcome and must be deferred.
func (h *Handler) begin(ctx context.Context, path string) (context.Context, func(error)) {
	start := time.Now()
	cancel := context.CancelFunc(func() {})
	if h.config.RequestTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, h.config.RequestTimeout)
	}
	ctx, span := h.deps.Observability.StartSpan(ctx, "pipeline."+path, attribute.String("path", path))

	return ctx, func(err error) {
		status := "success"
		if err != nil {
			status = string(errors.KindOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, status)
			h.logger.Error("recommendation pipeline failed", map[string]interface{}{
				"path":       path,
				"errorCode":  status,
				"error":      err.Error(),
				"durationMs": time.Since(start).Milliseconds(),
			})
		}
		span.End()
		cancel()

		metrics.PipelineRequests.WithLabelValues(path, status).Inc()
		h.deps.Observability.RecordRequest(context.Background(), path, status, time.Since(start))
	}
}

func (h *Handler) extract(
	ctx context.Context,
	variant, text string,
	run func(ctx context.Context) (*models.RequirementSet, error),
) (*models.RequirementSet, error) {
	if reqs, ok := h.deps.Cache.Get(ctx, variant, text); ok {
		h.logger.Debug("requirements served from cache", map[string]interface{}{"variant": variant})
		return reqs, nil
	}

	ctx, span := h.deps.Observability.StartSpan(ctx, "stage.extract", attribute.String("variant", variant))
	defer span.End()

	reqs, err := run(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(errors.KindOf(err)))
		return nil, err
	}

	h.deps.Cache.Set(ctx, variant, text, reqs)
	return reqs, nil
}

func (h *Handler) retrieveAndRank(ctx context.Context, reqs models.RequirementSet, req retrievecandidates.Request) (*models.Result, error) {
	retrieveCtx, span := h.deps.Observability.StartSpan(ctx, "stage.retrieve",
		attribute.Int("limit", req.Limit),
		attribute.Bool("filtered", !req.Filters.IsEmpty()),
	)
	found, err := h.deps.Retriever.Retrieve(retrieveCtx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(errors.KindOf(err)))
		span.End()
		return nil, err
	}
	span.SetAttributes(attribute.Int64("total", found.Total), attribute.Int("returned", len(found.Candidates)))
	span.End()

	rankCtx, span := h.deps.Observability.StartSpan(ctx, "stage.rank", attribute.Int("candidates", len(found.Candidates)))
	defer span.End()

	set, err := h.deps.Ranker.Rank(rankCtx, reqs, found.Candidates)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(errors.KindOf(err)))
		return nil, err
	}

	return &models.Result{Requirements: reqs, Recommendations: *set}, nil
}

func (h *Handler) basicRequirements(content string) *models.RequirementSet {
	return &models.RequirementSet{
		ProjectType:           fallbackProjectType,
		RequiredCategories:    []string{},
		SpecificFeatures:      []string{},
		TechnicalRequirements: []string{},
		PriorityLevel:         models.PriorityMedium,
		BudgetConsideration:   models.PricingUnknown,
		Summary:               truncateRunes(content, h.config.FileSummaryChars),
	}
}

// truncateRunes keeps at most n characters of s.
func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
