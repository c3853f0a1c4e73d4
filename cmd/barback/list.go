package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cocktails, refreshing the cache when it is stale",
	Long: `List cocktails from the cache. When online and the cache is older than
the validity window, the catalog is fetched first and images are resolved.
If the fetch fails the cache is listed anyway.

Examples:
  barback list --limit 20
  barback list --refresh --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var (
	listLimit   int
	listRefresh bool
	outputJSON  bool
)

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "number of cocktails to fetch (default from config)")
	listCmd.Flags().BoolVar(&listRefresh, "refresh", false, "fetch even if the cache is fresh")
	listCmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *session) error {
		for u := range s.client.Cocktails(ctx, listLimit, listRefresh) {
			if u.Loading {
				fmt.Fprintln(cmd.ErrOrStderr(), "Fetching cocktails...")
				continue
			}
			if u.Err != nil {
				return u.Err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d cocktails from %s\n", len(u.Cocktails), u.Source)
			if err := printCocktails(cmd.OutOrStdout(), u.Cocktails, outputJSON); err != nil {
				return err
			}
		}
		return nil
	})
}
