// cmd/tools/catalog-indexer/search.go
package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"apisense/internal/catalogindex"
	"apisense/internal/models"

	"github.com/spf13/cobra"
)

var (
	searchCategory  string
	searchPricing   string
	searchMinRating float64
	searchLimit     int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a catalog search and print the hits",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "Only return this category")
	searchCmd.Flags().StringVar(&searchPricing, "pricing", "", "Only return this pricing model (free, freemium, paid)")
	searchCmd.Flags().Float64Var(&searchMinRating, "min-rating", 0, "Minimum community rating")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum number of hits")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := connect(ctx, false)
	if err != nil {
		return err
	}
	defer e.Close()

	filters := models.SearchFilters{Category: searchCategory, Pricing: searchPricing}
	if cmd.Flags().Changed("min-rating") {
		filters.MinRating = &searchMinRating
	}

	res, err := e.index.Search(ctx, catalogindex.SearchRequest{
		Query:   strings.Join(args, " "),
		Filters: filters,
		Limit:   searchLimit,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d of %d hits (%dms)\n", len(res.Hits), res.Total, res.Took)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tID\tNAME\tCATEGORY\tPRICING")
	for _, hit := range res.Hits {
		fmt.Fprintf(tw, "%.2f\t%s\t%s\t%s\t%s\n", hit.Score, hit.ID, hit.Source.Name, hit.Source.Category, hit.Source.Pricing)
	}
	return tw.Flush()
}
