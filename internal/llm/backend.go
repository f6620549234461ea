// Package llm talks to the text-generation provider and turns its loosely
// shaped answers into JSON objects.
package llm

import (
	"context"
	"fmt"
	"time"

	"apisense/internal/common/config"
	"apisense/internal/common/logger"
	"apisense/internal/common/metrics"
)

// FinishReason tells a normal completion apart from an output-limit stop.
type FinishReason string

const (
	FinishReasonStop      FinishReason = "STOP"
	FinishReasonMaxTokens FinishReason = "MAX_TOKENS"
	FinishReasonOther     FinishReason = "OTHER"
)

// GenerateOptions are the sampling settings for a single call. Operation only
// labels logs and metrics.
type GenerateOptions struct {
	Operation       string
	Temperature     float32
	TopP            float32
	TopK            int32
	MaxOutputTokens int32
	ForceJSON       bool
}

type Response struct {
	Text         string
	FinishReason FinishReason
}

// Backend generates text for a prompt. Implementations apply their own
// transport timeout and never retry.
type Backend interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Response, error)
	Close() error
}

// OptionsFromConfig builds the default sampling settings.
func OptionsFromConfig(cfg config.LLMConfig) GenerateOptions {
	return GenerateOptions{
		Temperature:     cfg.Temperature,
		TopP:            cfg.TopP,
		TopK:            cfg.TopK,
		MaxOutputTokens: cfg.MaxOutputTokens,
		ForceJSON:       cfg.JSONMode(),
	}
}

// NewBackend constructs the configured provider wrapped with metrics.
func NewBackend(ctx context.Context, cfg config.LLMConfig, log logger.Logger) (Backend, error) {
	timeout := config.GetDuration(cfg.Timeout)

	var (
		backend Backend
		err     error
	)
	switch cfg.Provider {
	case config.LLMProviderGemini:
		backend, err = NewGeminiBackend(ctx, cfg.APIKey, cfg.Model, timeout)
	case config.LLMProviderGateway:
		backend = NewGatewayBackend(cfg.BaseURL, cfg.APIKey, timeout)
	default:
		err = fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	log.Info("LLM backend initialized", map[string]interface{}{
		"provider": cfg.Provider,
		"model":    cfg.Model,
		"timeout":  timeout.String(),
	})
	return WithMetrics(backend, log), nil
}

type instrumented struct {
	next   Backend
	logger logger.Logger
}

// WithMetrics records call counts, finish reasons and latency for next.
func WithMetrics(next Backend, log logger.Logger) Backend {
	return &instrumented{next: next, logger: log}
}

func (i *instrumented) Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Response, error) {
	start := time.Now()
	resp, err := i.next.Generate(ctx, prompt, opts)
	elapsed := time.Since(start)

	metrics.StageDuration.WithLabelValues("llm_" + opts.Operation).Observe(elapsed.Seconds())

	if err != nil {
		metrics.LLMCalls.WithLabelValues(opts.Operation, "error").Inc()
		i.logger.Error("LLM call failed", map[string]interface{}{
			"operation": opts.Operation,
			"duration":  elapsed.String(),
			"error":     err.Error(),
		})
		return nil, err
	}

	metrics.LLMCalls.WithLabelValues(opts.Operation, string(resp.FinishReason)).Inc()
	i.logger.Debug("LLM call completed", map[string]interface{}{
		"operation":    opts.Operation,
		"duration":     elapsed.String(),
		"finishReason": string(resp.FinishReason),
		"promptChars":  len(prompt),
		"responseSize": len(resp.Text),
	})
	return resp, nil
}

func (i *instrumented) Close() error {
	return i.next.Close()
}
