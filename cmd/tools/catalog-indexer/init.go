// cmd/tools/catalog-indexer/init.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initRecreate bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the catalog index with its mapping",
	Long:  "Create the catalog index if it does not exist. With --recreate an existing index is dropped first.",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initRecreate, "recreate", false, "Drop and recreate the index if it exists")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := connect(ctx, false)
	if err != nil {
		return err
	}
	defer e.Close()

	if initRecreate && e.index.Exists(ctx) {
		if err := e.index.Delete(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted index %s\n", e.index.Name())
	}

	created, err := e.index.EnsureIndex(ctx)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(cmd.OutOrStdout(), "Created index %s\n", e.index.Name())
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Index %s already exists\n", e.index.Name())
	}
	return nil
}
