// internal/workers/recommendation/retrieve-candidates/config.go
package retrievecandidates

import (
	"time"

	"apisense/internal/common/config"
)

type Config struct {
	Timeout      time.Duration
	DefaultLimit int
}

func LoadConfig(cfg *config.Config) *Config {
	if cfg == nil {
		return &Config{Timeout: 30 * time.Second, DefaultLimit: 15}
	}
	return &Config{
		Timeout:      config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
		DefaultLimit: cfg.Recommendation.PublicSearchLimit,
	}
}
