package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wordtrail/syncore/internal/cache"
	"github.com/wordtrail/syncore/internal/learner"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show cache entries, pending queues, and recent sync outcomes",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return err
		}
		store, err := cache.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer store.Close()

		ctx := cmd.Context()

		entries, err := store.Entries(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("cache: %s\n\n", dbPath)
		if len(entries) == 0 {
			fmt.Println("no live entries")
		}
		for _, e := range entries {
			fmt.Printf("  %-40s %6dB  expires %s\n",
				e.Key, e.Size, e.ExpiresAt.Format(time.RFC3339))
		}

		printQueues(ctx, store, entries)
		printSyncEvents(ctx, store)
		return nil
	},
}

func printQueues(ctx context.Context, store *cache.Store, entries []cache.Entry) {
	for _, e := range entries {
		learnerID, ok := strings.CutPrefix(e.Key, "queue:")
		if !ok {
			continue
		}
		data, found, err := store.Get(ctx, e.Key)
		if err != nil || !found {
			continue
		}
		var actions []learner.QueuedAction
		if err := json.Unmarshal(data, &actions); err != nil {
			continue
		}
		pending := 0
		for _, a := range actions {
			if !a.Synced {
				pending++
			}
		}
		fmt.Printf("\nqueue %s: %d pending\n", learnerID, pending)
		for _, a := range actions {
			id := a.ID
			if len(id) > 8 {
				id = id[:8]
			}
			fmt.Printf("  %s  %-22s  %s  %s\n",
				id, a.Kind, a.EntityID, a.CreatedAt.Format(time.RFC3339))
		}
	}
}

func printSyncEvents(ctx context.Context, store *cache.Store) {
	events, err := store.RecentSyncEvents(ctx, 10)
	if err != nil || len(events) == 0 {
		return
	}
	fmt.Println("\nrecent syncs:")
	for _, ev := range events {
		status := fmt.Sprintf("%d accepted, %d rejected", ev.Accepted, ev.Rejected)
		if ev.Error != "" {
			status = "failed: " + ev.Error
		}
		fmt.Printf("  %s  learner=%s  submitted=%d  %s\n",
			ev.Timestamp.Format(time.RFC3339), ev.LearnerID, ev.Submitted, status)
	}
}
