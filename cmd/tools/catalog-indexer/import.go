// cmd/tools/catalog-indexer/import.go
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"apisense/internal/importer"

	"github.com/spf13/cobra"
)

var importIndexOnly bool

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a public API list into the catalog",
	Long:  "Import a JSON array of {name, description, url} records. The PostgreSQL catalog is replaced and the index updated, unless --index-only is set.",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importIndexOnly, "index-only", false, "Skip PostgreSQL and write straight to the index")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer f.Close()

	apis, err := importer.Parse(f)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	e, err := connect(ctx, !importIndexOnly)
	if err != nil {
		return err
	}
	defer e.Close()

	var store importer.Store
	if s := e.store(); s != nil {
		store = s
	}

	summary, err := importer.New(store, e.index, e.log).Import(ctx, apis)
	if summary != nil {
		printSummary(cmd, summary)
	}
	return err
}

func printSummary(cmd *cobra.Command, summary *importer.Summary) {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(summary)
}
