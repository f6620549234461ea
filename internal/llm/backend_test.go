package llm

import (
	"context"
	"fmt"
	"testing"

	"apisense/internal/common/config"
	"apisense/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	resp   *Response
	err    error
	closed bool
}

func (s *stubBackend) Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Response, error) {
	return s.resp, s.err
}

func (s *stubBackend) Close() error {
	s.closed = true
	return nil
}

func TestOptionsFromConfig(t *testing.T) {
	off := false
	opts := OptionsFromConfig(config.LLMConfig{
		Temperature: 0.7, TopP: 0.95, TopK: 40, MaxOutputTokens: 8192, ForceJSON: &off,
	})

	assert.InDelta(t, 0.7, opts.Temperature, 0.0001)
	assert.Equal(t, int32(40), opts.TopK)
	assert.Equal(t, int32(8192), opts.MaxOutputTokens)
	assert.False(t, opts.ForceJSON)

	assert.True(t, OptionsFromConfig(config.LLMConfig{}).ForceJSON)
}

func TestWithMetrics_PassesThrough(t *testing.T) {
	inner := &stubBackend{resp: &Response{Text: "{}", FinishReason: FinishReasonStop}}
	b := WithMetrics(inner, logger.NewTestLogger(t))

	resp, err := b.Generate(context.Background(), "p", GenerateOptions{Operation: "extract"})
	require.NoError(t, err)
	assert.Equal(t, "{}", resp.Text)

	require.NoError(t, b.Close())
	assert.True(t, inner.closed)

	failing := WithMetrics(&stubBackend{err: fmt.Errorf("down")}, logger.NewNoOpLogger())
	_, err = failing.Generate(context.Background(), "p", GenerateOptions{Operation: "rank"})
	assert.EqualError(t, err, "down")
}

func TestNewBackend_Gateway(t *testing.T) {
	b, err := NewBackend(context.Background(), config.LLMConfig{
		Provider: config.LLMProviderGateway, BaseURL: "http://localhost:1", Timeout: 1000,
	}, logger.NewNoOpLogger())
	require.NoError(t, err)
	assert.NoError(t, b.Close())

	_, err = NewBackend(context.Background(), config.LLMConfig{Provider: "other"}, logger.NewNoOpLogger())
	assert.Error(t, err)
}
