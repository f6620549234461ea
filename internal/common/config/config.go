// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App            AppConfig               `mapstructure:"app"`
	Server         ServerConfig            `mapstructure:"server"`
	Camunda        CamundaConfig           `mapstructure:"camunda"`
	Database       DatabaseConfig          `mapstructure:"database"`
	Workers        map[string]WorkerConfig `mapstructure:"workers"`
	LLM            LLMConfig               `mapstructure:"llm"`
	Recommendation RecommendationConfig    `mapstructure:"recommendation"`
	Logging        LoggingConfig           `mapstructure:"logging"`
	Tracing        TracingConfig           `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port              int   `mapstructure:"port"`
	Debug             bool  `mapstructure:"debug"`
	MaxDescriptionLen int   `mapstructure:"max_description_length"`
	MaxQueryLen       int   `mapstructure:"max_query_length"`
	MaxFileBytes      int64 `mapstructure:"max_file_bytes"`
	ShutdownTimeout   int   `mapstructure:"shutdown_timeout"` // milliseconds
}

// CamundaConfig is optional; an empty broker address disables the job workers.
type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

func (c CamundaConfig) Enabled() bool {
	return c.BrokerAddress != ""
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

func (p PostgresConfig) Enabled() bool {
	return p.Host != "" && p.Database != ""
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses    []string `mapstructure:"addresses"`
	URL          string   `mapstructure:"url"` // single address shorthand
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	APIKey       string   `mapstructure:"api_key"`
	IndexPrefix  string   `mapstructure:"index_prefix"`
	Timeout      int      `mapstructure:"timeout"` // milliseconds
	BulkSize     int      `mapstructure:"bulk_size"`
	RefreshWrite bool     `mapstructure:"refresh_on_write"`
}

// GetAddresses returns the configured node list, falling back to URL.
func (e ElasticsearchConfig) GetAddresses() []string {
	if len(e.Addresses) > 0 {
		return e.Addresses
	}
	if e.URL != "" {
		return []string{e.URL}
	}
	return nil
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	CacheTTL int    `mapstructure:"cache_ttl"` // seconds
}

func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

// WorkerConfig holds the core settings applicable to every job worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
}

// --- LLM ---

const (
	LLMProviderGemini  = "gemini"
	LLMProviderGateway = "gateway"
)

type LLMConfig struct {
	Provider        string  `mapstructure:"provider"`
	APIKey          string  `mapstructure:"api_key"`
	Model           string  `mapstructure:"model"`
	BaseURL         string  `mapstructure:"base_url"`
	Timeout         int     `mapstructure:"timeout"` // milliseconds
	Temperature     float32 `mapstructure:"temperature"`
	TopP            float32 `mapstructure:"top_p"`
	TopK            int32   `mapstructure:"top_k"`
	MaxOutputTokens int32   `mapstructure:"max_output_tokens"`
	ForceJSON       *bool   `mapstructure:"force_json"`
}

// JSONMode reports whether the provider should be asked for JSON output.
func (l LLMConfig) JSONMode() bool {
	return l.ForceJSON == nil || *l.ForceJSON
}

// --- Recommendation pipeline ---

type RecommendationConfig struct {
	PublicSearchLimit   int         `mapstructure:"public_search_limit"`
	QuerySearchLimit    int         `mapstructure:"query_search_limit"`
	MaxFileChars        int         `mapstructure:"max_file_chars"`
	FileSummaryChars    int         `mapstructure:"file_fallback_summary_chars"`
	FallbackScore       float64     `mapstructure:"fallback_score"`
	FallbackLimit       int         `mapstructure:"fallback_limit"`
	FallbackOnMalformed *bool       `mapstructure:"fallback_on_malformed"`
	RequestTimeout      int         `mapstructure:"request_timeout"` // milliseconds
	Aliases             []AliasRule `mapstructure:"aliases"`
}

// AliasRule registers extra lookup names for any candidate whose lower-cased
// name contains one of Match.
type AliasRule struct {
	Match   []string `mapstructure:"match"`
	Aliases []string `mapstructure:"aliases"`
}

func (r RecommendationConfig) DegradeOnMalformed() bool {
	return r.FallbackOnMalformed == nil || *r.FallbackOnMalformed
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type TracingConfig struct {
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}
