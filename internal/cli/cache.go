package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/batchrun/internal/config"
	"github.com/rshade/batchrun/internal/engine/cache"
	"github.com/rshade/batchrun/internal/tui"
)

// newCacheCmd creates the cache command group for the response cache used by
// run --cache.
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clean the response cache",
	}
	cmd.AddCommand(newCacheStatsCmd(), newCachePruneCmd(), newCacheClearCmd())
	return cmd
}

func openConfiguredCache() (*cache.Store, error) {
	cfg := config.GetGlobalConfig()
	dir, err := cfg.Cache.CacheDir()
	if err != nil {
		return nil, err
	}
	return cache.Open(dir, cfg.Cache.TTL)
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the number and size of cached results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openConfiguredCache()
			if err != nil {
				return err
			}
			st, err := store.Stats()
			if err != nil {
				return err
			}
			cmd.Printf("Directory: %s\n", store.Dir())
			cmd.Printf("TTL:       %s\n", store.TTL())
			cmd.Printf("Entries:   %s (%s expired)\n", tui.FormatNumber(st.Entries), tui.FormatNumber(st.Expired))
			cmd.Printf("Size:      %s bytes\n", tui.FormatNumber(int(st.Bytes)))
			return nil
		},
	}
}

func newCachePruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove expired cached results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openConfiguredCache()
			if err != nil {
				return err
			}
			removed, err := store.Prune()
			if err != nil {
				return fmt.Errorf("pruning cache: %w", err)
			}
			cmd.Printf("Removed %d expired entries\n", removed)
			return nil
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openConfiguredCache()
			if err != nil {
				return err
			}
			removed, err := store.Clear()
			if err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}
			cmd.Printf("Removed %d entries\n", removed)
			return nil
		},
	}
}
