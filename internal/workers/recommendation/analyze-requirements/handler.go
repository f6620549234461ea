// internal/workers/recommendation/analyze-requirements/handler.go
package analyzerequirements

import (
	"context"
	"fmt"
	"strings"
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
	TaskType = "analyze-requirements"

	operationDescription = "analyze_requirements"
	operationFile        = "analyze_file"
)

var (
	validPriorities = map[string]bool{
		models.PriorityHigh:   true,
		models.PriorityMedium: true,
		models.PriorityLow:    true,
	}
	validBudgets = map[string]bool{
		models.PricingFree:     true,
		models.PricingFreemium: true,
		models.PricingPaid:     true,
		models.PricingUnknown:  true,
	}
)

// Handler turns free text into a RequirementSet with one model call. It never
// retries; failures carry the kind that detected them.
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
	var (
		reqs *models.RequirementSet
		err  error
	)
	switch input.Source {
	case SourceDescription, "":
		reqs, err = h.Analyze(ctx, input.Text, input.AdditionalContext)
	case SourceFile:
		reqs, err = h.AnalyzeFile(ctx, input.Text, input.Filename)
	default:
		return nil, errors.NewInvalidInputError(fmt.Sprintf("unknown source %q", input.Source))
	}
	if err != nil {
		return nil, err
	}
	return &Output{Requirements: *reqs}, nil
}

// Analyze extracts requirements from a project description. Empty text is
// passed through to the model unchanged.
func (h *Handler) Analyze(ctx context.Context, description, additionalContext string) (*models.RequirementSet, error) {
	obj, err := h.generate(ctx, operationDescription, buildRequirementsPrompt(description, additionalContext))
	if err != nil {
		return nil, err
	}

	reqs := toRequirementSet(obj, false)
	h.logResult(operationDescription, reqs)
	return reqs, nil
}

// AnalyzeFile extracts requirements from file content with the terse prompt.
// Callers cap content length before calling.
func (h *Handler) AnalyzeFile(ctx context.Context, content, filename string) (*models.RequirementSet, error) {
	obj, err := h.generate(ctx, operationFile, buildFilePrompt(content, filename))
	if err != nil {
		return nil, err
	}

	reqs := toRequirementSet(obj, true)
	h.logResult(operationFile, reqs)
	return reqs, nil
}

func (h *Handler) generate(ctx context.Context, operation, prompt string) (map[string]interface{}, error) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("extract").Observe(time.Since(start).Seconds())
	}()

	opts := h.config.Generate
	opts.Operation = operation

	resp, err := h.backend.Generate(ctx, prompt, opts)
	if err != nil {
		h.logger.Error("requirement extraction call failed", map[string]interface{}{
			"operation": operation,
			"error":     err.Error(),
		})
		if errors.KindOf(err) == errors.ErrCodeInternal {
			return nil, errors.NewUpstreamError("llm", err)
		}
		return nil, err
	}

	obj, err := llm.DecodeObject(resp, operation)
	if err != nil {
		h.logger.Error("requirement extraction response rejected", map[string]interface{}{
			"operation": operation,
			"errorCode": errors.KindOf(err),
		})
		return nil, err
	}
	return obj, nil
}

func (h *Handler) logResult(operation string, reqs *models.RequirementSet) {
	h.logger.Info("requirements extracted", map[string]interface{}{
		"operation":   operation,
		"projectType": reqs.ProjectType,
		"categories":  reqs.RequiredCategories,
		"priority":    reqs.PriorityLevel,
		"budget":      reqs.BudgetConsideration,
	})
}

// toRequirementSet converts the loosely typed model answer. Every field is
// defaulted; file answers also get the priority backfilled.
func toRequirementSet(obj map[string]interface{}, fromFile bool) *models.RequirementSet {
	reqs := &models.RequirementSet{
		ProjectType:           llm.String(obj, "project_type"),
		RequiredCategories:    lowerAll(llm.StringList(obj, "required_categories")),
		SpecificFeatures:      llm.StringList(obj, "specific_features"),
		TechnicalRequirements: llm.StringList(obj, "technical_requirements"),
		PriorityLevel:         normalizePriority(llm.String(obj, "priority_level"), fromFile),
		BudgetConsideration:   normalizeBudget(llm.String(obj, "budget_consideration")),
		Summary:               llm.String(obj, "summary"),
	}
	return reqs
}

func normalizePriority(raw string, fromFile bool) string {
	p := strings.ToLower(raw)
	if validPriorities[p] {
		return p
	}
	if p == "" && !fromFile {
		return ""
	}
	return models.PriorityMedium
}

func normalizeBudget(raw string) string {
	b := strings.ToLower(raw)
	if validBudgets[b] {
		return b
	}
	return models.PricingUnknown
}

func lowerAll(values []string) []string {
	for i, v := range values {
		values[i] = strings.ToLower(v)
	}
	return values
}
