package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"apisense/internal/common/errors"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiBackend calls Google Gemini through the generative-ai-go SDK.
type GeminiBackend struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGeminiBackend(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiBackend{client: client, model: model, timeout: timeout}, nil
}

func (g *GeminiBackend) Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Response, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(opts.Temperature)
	model.SetTopP(opts.TopP)
	if opts.TopK > 0 {
		model.SetTopK(opts.TopK)
	}
	if opts.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(opts.MaxOutputTokens)
	}
	if opts.ForceJSON {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, errors.NewUpstreamError("gemini", err)
	}
	return convertGeminiResponse(resp), nil
}

func (g *GeminiBackend) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// convertGeminiResponse keeps the first candidate's text parts and its finish
// reason. A response without candidates yields empty text.
func convertGeminiResponse(resp *genai.GenerateContentResponse) *Response {
	out := &Response{FinishReason: FinishReasonOther}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return out
	}

	candidate := resp.Candidates[0]
	switch candidate.FinishReason {
	case genai.FinishReasonStop, genai.FinishReasonUnspecified:
		out.FinishReason = FinishReasonStop
	case genai.FinishReasonMaxTokens:
		out.FinishReason = FinishReasonMaxTokens
	}

	if candidate.Content == nil {
		return out
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	out.Text = strings.Join(parts, "")
	return out
}
