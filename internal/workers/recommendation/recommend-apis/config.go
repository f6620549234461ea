// internal/workers/recommendation/recommend-apis/config.go
package recommendapis

import (
	"time"

	"apisense/internal/common/config"
)

type Config struct {
	Timeout           time.Duration
	RequestTimeout    time.Duration
	PublicSearchLimit int
	QuerySearchLimit  int
	MaxFileChars      int
	FileSummaryChars  int
}

func LoadConfig(cfg *config.Config) *Config {
	if cfg == nil {
		return &Config{
			Timeout:           200 * time.Second,
			RequestTimeout:    180 * time.Second,
			PublicSearchLimit: 15,
			QuerySearchLimit:  20,
			MaxFileChars:      2000,
			FileSummaryChars:  500,
		}
	}
	rec := cfg.Recommendation
	return &Config{
		Timeout:           config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
		RequestTimeout:    config.GetDuration(rec.RequestTimeout),
		PublicSearchLimit: rec.PublicSearchLimit,
		QuerySearchLimit:  rec.QuerySearchLimit,
		MaxFileChars:      rec.MaxFileChars,
		FileSummaryChars:  rec.FileSummaryChars,
	}
}
