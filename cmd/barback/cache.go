package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/discochess/barback"
	"github.com/discochess/barback/internal/config"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the size and age of the cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			info, err := s.client.CacheInfo(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			c := s.cfg.Cache
			fmt.Fprintf(w, "Backend:   %s\n", c.Backend)
			if c.Backend == config.BackendFile {
				fmt.Fprintf(w, "Directory: %s\n", c.Dir)
			}
			fmt.Fprintf(w, "Cocktails: %d\n", info.Count)
			if info.HasAge {
				fmt.Fprintf(w, "Fetched:   %s\n", formatAge(info.Age))
			}
			fmt.Fprintf(w, "State:     %s (valid for %s)\n", info.State, c.Validity)
			return nil
		})
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached cocktail",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			if err := s.client.ClearCache(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
			return nil
		})
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh the cache from the catalog now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			n, err := s.client.Sync(ctx)
			if errors.Is(err, barback.ErrOffline) {
				return fmt.Errorf("cannot sync while offline")
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Synced %d cocktails.\n", n)
			return nil
		})
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve NAME",
	Short: "Resolve the image of a cocktail name",
	Long: `Resolve the image of a free-text cocktail name such as
"Spicy Margarita (frozen)". The exact name is tried first, then simplified
variants, then the closest name sharing its first letter.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			ref, ok, err := s.client.ResolveImage(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no image found for %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), ref)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(infoCmd, clearCmd, syncCmd, resolveCmd)
}
