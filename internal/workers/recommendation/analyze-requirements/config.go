// internal/workers/recommendation/analyze-requirements/config.go
package analyzerequirements

import (
	"time"

	"apisense/internal/common/config"
	"apisense/internal/llm"
)

type Config struct {
	Timeout  time.Duration
	Generate llm.GenerateOptions
}

// LoadConfig derives the worker settings from the application config. A nil
// cfg yields the built-in sampling defaults.
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
		}
	}
	return &Config{
		Timeout:  config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
		Generate: llm.OptionsFromConfig(cfg.LLM),
	}
}
