package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	path := writeConfig(t, `
database:
  elasticsearch:
    addresses: ["http://localhost:9200"]
llm:
  api_key: test-key
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "apisense", cfg.Database.Elasticsearch.IndexPrefix)
	assert.Equal(t, 100, cfg.Database.Elasticsearch.BulkSize)
	assert.Equal(t, LLMProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, 120000, cfg.LLM.Timeout)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 0.0001)
	assert.InDelta(t, 0.95, cfg.LLM.TopP, 0.0001)
	assert.Equal(t, int32(40), cfg.LLM.TopK)
	assert.Equal(t, int32(8192), cfg.LLM.MaxOutputTokens)
	assert.True(t, cfg.LLM.JSONMode())

	assert.Equal(t, 15, cfg.Recommendation.PublicSearchLimit)
	assert.Equal(t, 20, cfg.Recommendation.QuerySearchLimit)
	assert.Equal(t, 2000, cfg.Recommendation.MaxFileChars)
	assert.Equal(t, 500, cfg.Recommendation.FileSummaryChars)
	assert.Equal(t, 70.0, cfg.Recommendation.FallbackScore)
	assert.Equal(t, 10, cfg.Recommendation.FallbackLimit)
	assert.True(t, cfg.Recommendation.DegradeOnMalformed())
	require.Len(t, cfg.Recommendation.Aliases, 1)
	assert.Contains(t, cfg.Recommendation.Aliases[0].Aliases, "themoviedb")

	assert.False(t, cfg.Camunda.Enabled())
	assert.False(t, cfg.Database.Postgres.Enabled())
	assert.False(t, cfg.Database.Redis.Enabled())
}

func TestLoadFromFile_Overrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  elasticsearch:
    url: http://es:9200
    index_prefix: staging
llm:
  provider: gateway
  base_url: http://genai:8000
  force_json: false
recommendation:
  fallback_score: 60
  fallback_on_malformed: false
  aliases:
    - match: ["openweather"]
      aliases: ["owm"]
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"http://es:9200"}, cfg.Database.Elasticsearch.GetAddresses())
	assert.Equal(t, "staging", cfg.Database.Elasticsearch.IndexPrefix)
	assert.False(t, cfg.LLM.JSONMode())
	assert.Equal(t, 60.0, cfg.Recommendation.FallbackScore)
	assert.False(t, cfg.Recommendation.DegradeOnMalformed())
	require.Len(t, cfg.Recommendation.Aliases, 1)
	assert.Equal(t, []string{"owm"}, cfg.Recommendation.Aliases[0].Aliases)
}

func TestLoadFromFile_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_APISENSE_LLM_KEY", "from-env")
	path := writeConfig(t, `
database:
  elasticsearch:
    addresses: ["http://localhost:9200"]
llm:
  api_key: ${TEST_APISENSE_LLM_KEY}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing elasticsearch",
			body:    "llm:\n  api_key: k\n",
			wantErr: "elasticsearch",
		},
		{
			name:    "gateway without base url",
			body:    "database:\n  elasticsearch:\n    url: http://es:9200\nllm:\n  provider: gateway\n",
			wantErr: "llm.base_url",
		},
		{
			name:    "unknown provider",
			body:    "database:\n  elasticsearch:\n    url: http://es:9200\nllm:\n  provider: other\n",
			wantErr: "unsupported llm.provider",
		},
		{
			name:    "fallback score out of range",
			body:    "database:\n  elasticsearch:\n    url: http://es:9200\nllm:\n  api_key: k\nrecommendation:\n  fallback_score: 150\n",
			wantErr: "fallback_score",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GEMINI_API_KEY", "")
			t.Setenv("GENAI_API_KEY", "")
			t.Setenv("ELASTICSEARCH_HOST", "")

			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetWorkerConfig(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"rank-recommendations": {Enabled: false, MaxJobsActive: 2, Timeout: 1000},
	}}

	assert.False(t, IsWorkerEnabled(cfg, "rank-recommendations"))
	assert.Equal(t, 2, GetWorkerConfig(cfg, "rank-recommendations").MaxJobsActive)

	assert.True(t, IsWorkerEnabled(cfg, "retrieve-candidates"))
	assert.Equal(t, 5, GetWorkerConfig(cfg, "retrieve-candidates").MaxJobsActive)

	assert.Equal(t, 2*time.Second, GetDuration(2000))
}
