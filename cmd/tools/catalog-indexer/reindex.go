// cmd/tools/catalog-indexer/reindex.go
package main

import (
	"apisense/internal/importer"

	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the index from the active PostgreSQL catalog",
	Args:  cobra.NoArgs,
	RunE:  runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := connect(ctx, true)
	if err != nil {
		return err
	}
	defer e.Close()

	store := e.store()
	summary, err := importer.New(store, e.index, e.log).Reindex(ctx, store)
	if summary != nil {
		printSummary(cmd, summary)
	}
	return err
}
