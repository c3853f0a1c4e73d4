package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/discochess/barback"
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search cached cocktails by name or ingredient",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			recs, err := s.client.Search(ctx, args[0])
			if err != nil {
				return err
			}
			return printCocktails(cmd.OutOrStdout(), recs, outputJSON)
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a cached cocktail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			rec, ok, err := s.client.Cocktail(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("cocktail %q not in cache", args[0])
			}
			return printCocktail(cmd.OutOrStdout(), rec, outputJSON)
		})
	},
}

var ingredientCmd = &cobra.Command{
	Use:   "ingredient NAME",
	Short: "Find cocktails using an ingredient",
	Long: `Find cocktails using an ingredient. Online, the catalog is queried and
the results are added to the cache; offline, the cache is searched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			recs, err := s.client.ByIngredient(ctx, args[0])
			if err != nil {
				return err
			}
			return printCocktails(cmd.OutOrStdout(), recs, outputJSON)
		})
	},
}

var (
	categoryName string
	minRating    float64
)

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "List cached cocktails by rating",
	Long: `List cached cocktails best rated first, optionally restricted to a
category such as Gin or Tequila.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			var recs []barback.Cocktail
			var err error
			if categoryName != "" {
				recs, err = s.client.ByCategory(ctx, categoryName)
				recs = atLeast(recs, minRating)
			} else {
				recs, err = s.client.TopRated(ctx, minRating)
			}
			if err != nil {
				return err
			}
			return printCocktails(cmd.OutOrStdout(), recs, outputJSON)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{searchCmd, showCmd, ingredientCmd, topCmd} {
		c.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
		rootCmd.AddCommand(c)
	}
	topCmd.Flags().StringVar(&categoryName, "category", "", "only this category")
	topCmd.Flags().Float64Var(&minRating, "min", 0, "minimum rating")
}

// atLeast keeps the cocktails rated at least min, preserving order.
func atLeast(recs []barback.Cocktail, min float64) []barback.Cocktail {
	out := recs[:0:0]
	for _, r := range recs {
		if r.Rating >= min {
			out = append(out, r)
		}
	}
	return out
}
