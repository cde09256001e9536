// Package cmd implements the syncore maintenance CLI. The sync core itself
// is an embedded library; these commands only inspect and reset the
// on-disk cache it manages.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/wordtrail/syncore/internal/cache"
)

var rootCmd = &cobra.Command{
	Use:   "syncore",
	Short: "Maintenance tool for the Wordtrail sync cache",
	Long:  "Inspect and reset the local-first sync cache used by Wordtrail clients.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite cache file (overrides WORDTRAIL_DB env var)")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the cache path using --db flag (highest priority),
// then WORDTRAIL_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, cache.EnsureDir(p)
	}
	return cache.DefaultDBPath()
}
