// internal/api/router.go
package api

import (
	"context"
	"net/http"

	"apisense/internal/common/config"
	"apisense/internal/common/logger"
	"apisense/internal/models"
	recommendapis "apisense/internal/workers/recommendation/recommend-apis"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultMaxDescriptionLen = 2000
	defaultMaxQueryLen       = 1000
	defaultMaxFileBytes      = 10 << 20
)

// Pipeline is the orchestrator as seen by the HTTP layer.
type Pipeline interface {
	AnalyzeDescription(ctx context.Context, description string) (*models.Result, error)
	AnalyzeFile(ctx context.Context, content, filename string) (*models.Result, error)
	Query(ctx context.Context, req recommendapis.QueryRequest) (*recommendapis.QueryResult, error)
}

// Check reports whether a dependency is usable. Used by /ready.
type Check func(ctx context.Context) error

type Options struct {
	Debug             bool
	MaxDescriptionLen int
	MaxQueryLen       int
	MaxFileBytes      int64
	Checks            map[string]Check
}

// OptionsFromConfig maps server settings onto Options, leaving Checks empty.
func OptionsFromConfig(cfg config.ServerConfig) Options {
	return Options{
		Debug:             cfg.Debug,
		MaxDescriptionLen: cfg.MaxDescriptionLen,
		MaxQueryLen:       cfg.MaxQueryLen,
		MaxFileBytes:      cfg.MaxFileBytes,
	}
}

func (o *Options) applyDefaults() {
	if o.MaxDescriptionLen <= 0 {
		o.MaxDescriptionLen = defaultMaxDescriptionLen
	}
	if o.MaxQueryLen <= 0 {
		o.MaxQueryLen = defaultMaxQueryLen
	}
	if o.MaxFileBytes <= 0 {
		o.MaxFileBytes = defaultMaxFileBytes
	}
}

type Handler struct {
	pipeline Pipeline
	opts     Options
	logger   logger.Logger
}

// NewRouter builds the gin engine with middleware and every route registered.
func NewRouter(pipeline Pipeline, opts Options, log logger.Logger) *gin.Engine {
	opts.applyDefaults()
	h := &Handler{
		pipeline: pipeline,
		opts:     opts,
		logger:   log.WithFields(map[string]interface{}{"component": "http"}),
	}

	r := gin.New()
	r.Use(
		RequestID(),
		Logging(h.logger),
		Recovery(h.logger),
	)

	r.GET("/health", h.health)
	r.GET("/ready", h.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := r.Group("/api/public")
	public.GET("/health", h.publicHealth)
	public.POST("/analyze", h.analyzeDescription)
	public.POST("/analyze-file", h.analyzeFile)

	r.POST("/api/query", h.query)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Success: false, Error: "Not found"})
	})

	return r
}
