package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var cachePurgeAll bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the render cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show render cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := setupLogging(cfg)

		database, cache, err := openCache(cfg, logger)
		if err != nil {
			return err
		}
		if cache == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Render cache is disabled.")
			return nil
		}
		defer database.Close()

		stats, err := cache.Stats(context.Background())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Path:    %s\n", database.Path())
		fmt.Fprintf(out, "Entries: %d\n", stats.Entries)
		fmt.Fprintf(out, "Hits:    %d\n", stats.Hits)
		fmt.Fprintf(out, "Size:    %d bytes\n", stats.Bytes)
		return nil
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete render cache entries older than cache.max_age",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := setupLogging(cfg)

		database, cache, err := openCache(cfg, logger)
		if err != nil {
			return err
		}
		if cache == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Render cache is disabled.")
			return nil
		}
		defer database.Close()

		cutoff := time.Now().Add(-cfg.Cache.MaxAge)
		if cachePurgeAll {
			cutoff = time.Now().Add(time.Second)
		}
		n, err := cache.Purge(context.Background(), cutoff)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries.\n", n)
		return nil
	},
}

func init() {
	cachePurgeCmd.Flags().BoolVar(&cachePurgeAll, "all", false, "remove every entry")
	cacheCmd.AddCommand(cacheStatsCmd, cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
