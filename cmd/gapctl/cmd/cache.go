package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/webpulse/gapctl/internal/cache"
)

func cacheCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the response cache",
	}

	root.AddCommand(
		cacheStatsCmd(),
		cacheClearCmd(),
	)

	return root
}

func cacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show hit/miss counters and entry counts per namespace",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			stats := make(map[string]cache.Stats, len(app.caches))
			for name, c := range app.caches {
				stats[name] = c.Stats()
			}

			if jsonOutput() {
				return outputJSON(stats)
			}
			return printCacheStatsTable(stats)
		},
	}
}

func cacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop all cached responses",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			total := 0
			for _, c := range app.caches {
				total += c.Clear()
			}

			if jsonOutput() {
				return outputJSON(map[string]int{"cleared": total})
			}
			fmt.Printf("Cleared %d cached entries.\n", total)
			return nil
		},
	}
}
