package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wordtrail/syncore/internal/cache"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear all cached state for all learners",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		if !force {
			return fmt.Errorf("reset deletes every learner's cached state; re-run with --force")
		}

		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return err
		}
		store, err := cache.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer store.Close()

		if err := store.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("cache cleared")
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("force", false, "Confirm deletion")
}
