package llm

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
	commonhttp "apisense/internal/common/http"
)

// GatewayBackend posts prompts to an internal GenAI gateway.
type GatewayBackend struct {
	baseURL string
	apiKey  string
	client  *commonhttp.Client
}

type gatewayRequest struct {
	Prompt         string  `json:"prompt"`
	MaxTokens      int32   `json:"max_tokens,omitempty"`
	Temperature    float32 `json:"temperature"`
	TopP           float32 `json:"top_p,omitempty"`
	TopK           int32   `json:"top_k,omitempty"`
	ResponseFormat string  `json:"response_format,omitempty"`
}

type gatewayResponse struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
}

func NewGatewayBackend(baseURL, apiKey string, timeout time.Duration) *GatewayBackend {
	return &GatewayBackend{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  commonhttp.NewClient(timeout),
	}
}

func (g *GatewayBackend) Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Response, error) {
	payload := gatewayRequest{
		Prompt:      prompt,
		MaxTokens:   opts.MaxOutputTokens,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		TopK:        opts.TopK,
	}
	if opts.ForceJSON {
		payload.ResponseFormat = "json"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/ai/generate", bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewUpstreamUnavailableError("genai-gateway", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewUpstreamError("genai-gateway", ctx.Err())
		}
		return nil, errors.NewUpstreamError("genai-gateway", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.NewUpstreamUnavailableError("genai-gateway",
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	var out gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.NewUpstreamUnavailableError("genai-gateway", fmt.Errorf("decode envelope: %w", err))
	}

	return &Response{Text: out.Text, FinishReason: normalizeFinishReason(out.FinishReason)}, nil
}

func (g *GatewayBackend) Close() error {
	return nil
}

func normalizeFinishReason(reason string) FinishReason {
	switch strings.ToUpper(strings.TrimSpace(reason)) {
	case "", "STOP", "END_TURN", "COMPLETE":
		return FinishReasonStop
	case "MAX_TOKENS", "LENGTH":
		return FinishReasonMaxTokens
	default:
		return FinishReasonOther
	}
}
