// cmd/tools/catalog-indexer/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"apisense/internal/catalogindex"
	"apisense/internal/catalogstore"
	"apisense/internal/common/config"
	"apisense/internal/common/database"
	"apisense/internal/common/logger"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "catalog-indexer",
	Short:         "Manage the API catalog search index",
	Long:          "catalog-indexer creates the catalog index, imports public API lists, rebuilds the index from PostgreSQL and runs ad-hoc searches.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (defaults to configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// env holds the connections a command needs. Close releases them.
type env struct {
	cfg   *config.Config
	log   logger.Logger
	index *catalogindex.Index
	pg    *database.PostgresClient
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// connect loads configuration and opens Elasticsearch. PostgreSQL is opened
// only when withStore is set.
func connect(ctx context.Context, withStore bool) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.NewStructured(logLevel, "console")

	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		return nil, err
	}
	if err := es.Ping(ctx); err != nil {
		return nil, err
	}

	e := &env{
		cfg: cfg,
		log: log,
		index: catalogindex.New(es.Client, catalogindex.Options{
			Prefix:         cfg.Database.Elasticsearch.IndexPrefix,
			BatchSize:      cfg.Database.Elasticsearch.BulkSize,
			RefreshOnWrite: cfg.Database.Elasticsearch.RefreshWrite,
		}, log),
	}

	if withStore {
		if !cfg.Database.Postgres.Enabled() {
			return nil, fmt.Errorf("database.postgres is not configured")
		}
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return nil, err
		}
		if err := pg.Ping(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("postgres ping failed: %w", err)
		}
		e.pg = pg
	}
	return e, nil
}

func (e *env) store() *catalogstore.Store {
	if e.pg == nil {
		return nil
	}
	return catalogstore.New(e.pg.DB, e.log)
}

func (e *env) Close() {
	if e.pg != nil {
		e.pg.Close()
	}
}
