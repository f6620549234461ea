// internal/workers/recommendation/rank-recommendations/config.go
package rankrecommendations

import (
	"time"

	"apisense/internal/common/config"
	"apisense/internal/llm"
)

type Config struct {
	Timeout            time.Duration
	Generate           llm.GenerateOptions
	FallbackScore      float64
	FallbackLimit      int
	DegradeOnMalformed bool
	Aliases            []config.AliasRule
}

func LoadConfig(cfg *config.Config) *Config {
	if cfg == nil {
		return &Config{
			Timeout: 200 * time.Second,
			Generate: llm.GenerateOptions{
				Temperature:     0.7,
				TopP:            0.95,
				TopK:            40,
				MaxOutputTokens: 8192,
				ForceJSON:       true,
			},
			FallbackScore:      70,
			FallbackLimit:      10,
			DegradeOnMalformed: true,
			Aliases:            config.DefaultAliases(),
		}
	}
	return &Config{
		Timeout:            config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
		Generate:           llm.OptionsFromConfig(cfg.LLM),
		FallbackScore:      cfg.Recommendation.FallbackScore,
		FallbackLimit:      cfg.Recommendation.FallbackLimit,
		DegradeOnMalformed: cfg.Recommendation.DegradeOnMalformed(),
		Aliases:            cfg.Recommendation.Aliases,
	}
}
