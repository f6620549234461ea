// cmd/apisense-server/main.go
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"apisense/internal/api"
	"apisense/internal/cache"
	"apisense/internal/catalogindex"
	"apisense/internal/catalogstore"
	"apisense/internal/common/camunda"
	"apisense/internal/common/config"
	"apisense/internal/common/database"
	"apisense/internal/common/logger"
	"apisense/internal/common/observability"
	"apisense/internal/llm"
	analyzerequirements "apisense/internal/workers/recommendation/analyze-requirements"
	rankrecommendations "apisense/internal/workers/recommendation/rank-recommendations"
	recommendapis "apisense/internal/workers/recommendation/recommend-apis"
	retrievecandidates "apisense/internal/workers/recommendation/retrieve-candidates"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// retryWithBackoff runs operation until it succeeds, doubling the delay after
// each failure.
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	log.Info("server stopped gracefully", nil)
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	log.Info("starting apisense", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	obs := observability.New(observability.Options{
		ServiceName:    cfg.App.Name,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
		SampleRatio:    cfg.Tracing.SampleRatio,
	}, log)
	defer obs.Shutdown(context.Background())

	checks := make(map[string]api.Check)

	// --- Elasticsearch (required) ---
	var es *database.ElasticsearchClient
	err := retryWithBackoff(ctx, func() error {
		var err error
		es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return es.Ping(ctx)
	}, 15, 2*time.Second, log, "Elasticsearch connection")
	if err != nil {
		return err
	}
	checks["elasticsearch"] = es.Ping
	log.Info("Elasticsearch connected successfully", nil)

	index := catalogindex.New(es.Client, catalogindex.Options{
		Prefix:         cfg.Database.Elasticsearch.IndexPrefix,
		BatchSize:      cfg.Database.Elasticsearch.BulkSize,
		RefreshOnWrite: cfg.Database.Elasticsearch.RefreshWrite,
	}, log)
	if ok := index.Exists(ctx); !ok {
		log.Warn("catalog index missing; run catalog-indexer init", map[string]interface{}{"index": index.Name()})
	}

	// --- PostgreSQL (optional: conversation history) ---
	var conversations recommendapis.ConversationStore
	if cfg.Database.Postgres.Enabled() {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err == nil {
			err = retryWithBackoff(ctx, func() error { return pg.Ping(ctx) }, 5, 2*time.Second, log, "PostgreSQL connection")
		}
		if err != nil {
			log.Warn("postgres unavailable, conversations will not be saved", map[string]interface{}{"error": err.Error()})
		} else {
			defer pg.Close()
			conversations = catalogstore.New(pg.DB, log)
			checks["postgres"] = pg.Ping
			log.Info("PostgreSQL connected successfully", nil)
		}
	}

	// --- Redis (optional: requirement cache) ---
	var requirementCache *cache.RequirementCache
	if cfg.Database.Redis.Enabled() {
		rc := database.NewRedis(cfg.Database.Redis)
		if err := rc.Ping(ctx); err != nil {
			log.Warn("redis unavailable, requirement cache disabled", map[string]interface{}{"error": err.Error()})
			rc.Close()
		} else {
			defer rc.Close()
			requirementCache = cache.NewRequirementCache(rc.Client, time.Duration(cfg.Database.Redis.CacheTTL)*time.Second, log)
			checks["redis"] = rc.Ping
			log.Info("Redis connected successfully", nil)
		}
	}

	// --- LLM ---
	backend, err := llm.NewBackend(ctx, cfg.LLM, log)
	if err != nil {
		return fmt.Errorf("llm backend: %w", err)
	}
	defer backend.Close()

	// --- Pipeline ---
	extractor := analyzerequirements.NewHandler(analyzerequirements.LoadConfig(cfg), backend, log)
	retriever := retrievecandidates.NewHandler(retrievecandidates.LoadConfig(cfg), index, log)
	ranker := rankrecommendations.NewHandler(rankrecommendations.LoadConfig(cfg), backend, log)
	pipeline := recommendapis.NewHandler(recommendapis.LoadConfig(cfg), recommendapis.Dependencies{
		Extractor:     extractor,
		Retriever:     retriever,
		Ranker:        ranker,
		Cache:         requirementCache,
		Store:         conversations,
		Observability: obs,
	}, log)

	// --- Zeebe job workers (optional) ---
	if cfg.Camunda.Enabled() {
		var zeebe *camunda.Client
		err := retryWithBackoff(ctx, func() error {
			var err error
			zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			return err
		}, 10, 2*time.Second, log, "Zeebe client initialization")
		if err != nil {
			return err
		}
		defer zeebe.Close()
		checks["zeebe"] = zeebe.HealthCheck

		workers := startWorkers(zeebe, cfg, log, map[string]camunda.JobHandler{
			analyzerequirements.TaskType: extractor,
			retrievecandidates.TaskType:  retriever,
			rankrecommendations.TaskType: ranker,
			recommendapis.TaskType:       pipeline,
		})
		defer func() {
			for _, w := range workers {
				w.Close()
				w.AwaitClose()
			}
		}()
	}

	// --- HTTP ---
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	opts := api.OptionsFromConfig(cfg.Server)
	opts.Checks = checks
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(pipeline, opts, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, draining requests", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func startWorkers(client *camunda.Client, cfg *config.Config, log logger.Logger, handlers map[string]camunda.JobHandler) []worker.JobWorker {
	workers := make([]worker.JobWorker, 0, len(handlers))
	for taskType, handler := range handlers {
		if !config.IsWorkerEnabled(cfg, taskType) {
			log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
			continue
		}
		wcfg := config.GetWorkerConfig(cfg, taskType)
		workers = append(workers, camunda.StartWorker(client.GetClient(), camunda.Registration{
			TaskType:      taskType,
			Handler:       handler,
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       config.GetDuration(wcfg.Timeout),
		}, log))
	}
	return workers
}
