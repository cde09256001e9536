// Package core wires the sync core together and is the surface the
// presentation layer embeds: instant local reads and writes, durable
// queueing, background synchronization, and profile switching.
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/wordtrail/syncore/internal/cache"
	"github.com/wordtrail/syncore/internal/config"
	"github.com/wordtrail/syncore/internal/learner"
	"github.com/wordtrail/syncore/internal/remote"
	"github.com/wordtrail/syncore/internal/state"
	"github.com/wordtrail/syncore/internal/switcher"
	"github.com/wordtrail/syncore/internal/syncer"
)

// queueFlushTimeout bounds the final durable write on Close.
const queueFlushTimeout = 5 * time.Second

// Core is the embedding handle. All UI reads go through State(); all writes
// go through RecordAction/StartEntity; profile changes go through Switch.
type Core struct {
	cfg     *config.Config
	store   *cache.Store
	state   *state.Store
	svc     remote.Service
	catalog remote.Catalog
	sw      *switcher.Switcher
	syncer  *syncer.Syncer
}

// New opens the persistent cache at the configured path and wires the core
// against the given service implementations. The service is wrapped with
// the transport-level retry decorator.
func New(cfg *config.Config, svc remote.Service, catalog remote.Catalog) (*Core, error) {
	dbPath := cfg.DBPath
	if dbPath == "" {
		p, err := cache.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
		dbPath = p
	}

	store, err := cache.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open persistent cache: %w", err)
	}

	c := build(cfg, store, svc, catalog)
	return c, nil
}

// NewWithStore wires the core against an already-open cache store. Used by
// tests and the maintenance CLI.
func NewWithStore(cfg *config.Config, store *cache.Store, svc remote.Service, catalog remote.Catalog) *Core {
	return build(cfg, store, svc, catalog)
}

func build(cfg *config.Config, store *cache.Store, svc remote.Service, catalog remote.Catalog) *Core {
	retried := remote.WithRetry(svc, remote.RetryConfig{
		MaxAttempts: cfg.RetryAttempts,
		InitialWait: cfg.BackoffInitial / 4,
		MaxWait:     cfg.BackoffInitial,
		Multiplier:  cfg.BackoffMultiplier,
	})

	st := state.New()
	sw := switcher.New(st, store, retried)
	sy := syncer.New(st, sw, retried, store, syncer.Config{
		Interval:    cfg.SyncInterval,
		InitialWait: cfg.BackoffInitial,
		MaxWait:     cfg.BackoffMax,
		Multiplier:  cfg.BackoffMultiplier,
	})

	return &Core{
		cfg:     cfg,
		store:   store,
		state:   st,
		svc:     retried,
		catalog: catalog,
		sw:      sw,
		syncer:  sy,
	}
}

// Run starts the background synchronizer and blocks until ctx is
// cancelled.
func (c *Core) Run(ctx context.Context) {
	c.syncer.Run(ctx)
}

// State exposes the live state store for synchronous reads and
// subscriptions.
func (c *Core) State() *state.Store {
	return c.state
}

// Cache exposes the persistent cache (maintenance surface).
func (c *Core) Cache() *cache.Store {
	return c.store
}

// SetRoster replaces the process-wide learner list.
func (c *Core) SetRoster(roster []learner.Learner) {
	c.state.SetRoster(roster)
}

// Switch makes target the active learner. Never fails; see the switcher
// package for the restore protocol.
func (c *Core) Switch(ctx context.Context, target learner.Learner) {
	c.sw.Switch(ctx, target)
}

// NotifyOnline and NotifyForeground forward connectivity/lifecycle events
// to the background synchronizer.
func (c *Core) NotifyOnline()     { c.syncer.NotifyOnline() }
func (c *Core) NotifyForeground() { c.syncer.NotifyForeground() }

// RecordAction applies the optimistic delta instantly, appends the action
// to the durable queue, and kicks the synchronizer. Returns the queued
// action (with its assigned id). Fails only on payload validation; nothing
// here waits on I/O.
func (c *Core) RecordAction(kind learner.Kind, entityID string, payload map[string]any, optimistic learner.Delta) (learner.QueuedAction, error) {
	q := c.sw.ActiveQueue()
	if q == nil {
		return learner.QueuedAction{}, fmt.Errorf("no active learner")
	}

	a, err := q.Enqueue(learner.QueuedAction{
		Kind:       kind,
		EntityID:   entityID,
		Payload:    payload,
		Optimistic: optimistic,
	})
	if err != nil {
		return learner.QueuedAction{}, err
	}

	gen := c.state.Generation()
	c.state.ApplyDelta(optimistic, gen)
	if kind == learner.KindStartEntity {
		c.state.SetEntityStatus(entityID, learner.StatusInProgress, gen)
	}

	c.syncer.Kick()
	return a, nil
}

// StartEntity is the latency-sensitive "begin working on X" path: the
// in-progress status lands optimistically and the single-action remote
// call runs in the background. If the remote is unreachable the action
// falls back onto the regular batch queue.
func (c *Core) StartEntity(ctx context.Context, entityID string) {
	gen := c.state.Generation()
	learnerID := c.state.ActiveLearnerID()
	if learnerID == "" {
		return
	}
	c.state.SetEntityStatus(entityID, learner.StatusInProgress, gen)

	go func() {
		result, err := c.svc.StartEntity(ctx, learnerID, entityID)
		if err != nil {
			// Degrade to the durable queue; the synchronizer will retry.
			if q := c.sw.QueueFor(learnerID); q != nil {
				if _, qErr := q.Enqueue(learner.QueuedAction{
					Kind:     learner.KindStartEntity,
					EntityID: entityID,
					Payload:  map[string]any{},
				}); qErr != nil {
					warnf("queue start for %s: %v", entityID, qErr)
				}
				c.syncer.Kick()
			}
			return
		}

		if c.state.Generation() != gen {
			return // switched away; stale result discarded
		}
		c.state.ApplyDelta(result.Delta, gen)
		if result.EntityStatus != nil {
			c.state.SetEntityStatus(entityID, *result.EntityStatus, gen)
		}
		c.sw.SnapshotActive()
	}()
}

// DueItems returns the active learner's due-item list: the short-TTL cache
// entry when fresh, otherwise a catalog fetch whose result is cached and
// folded into the live store. Catalog failures degrade to the last list
// the live store holds.
func (c *Core) DueItems(ctx context.Context) []string {
	ls := c.state.Active()
	if ls == nil {
		return []string{}
	}
	gen := c.state.Generation()
	key := "due:" + ls.LearnerID

	if c.store != nil {
		if data, ok, err := c.store.Get(ctx, key); err == nil && ok {
			var items []string
			if err := json.Unmarshal(data, &items); err == nil {
				c.state.SetDueItems(items, gen)
				return items
			}
		}
	}

	if c.catalog == nil {
		return ls.DueItems
	}
	items, err := c.catalog.DueItems(ctx, ls.LearnerID)
	if err != nil {
		warnf("fetch due items for %s: %v", ls.LearnerID, err)
		return ls.DueItems
	}

	if c.store != nil {
		if data, err := json.Marshal(items); err == nil {
			if err := c.store.Put(ctx, key, data, c.cfg.ShortTTL); err != nil {
				warnf("cache due items for %s: %v", ls.LearnerID, err)
			}
		}
	}
	c.state.SetDueItems(items, gen)
	return items
}

// Flush forces one synchronous sync pass. Used by tests and shutdown
// hooks; normal operation relies on the background loop.
func (c *Core) Flush(ctx context.Context) error {
	return c.syncer.Flush(ctx)
}

// Logout clears all caches for all learners and drops the active profile.
func (c *Core) Logout(ctx context.Context) error {
	return c.sw.Reset(ctx)
}

// Close flushes the active queue and closes the persistent cache.
func (c *Core) Close() error {
	if q := c.sw.ActiveQueue(); q != nil {
		ctx, cancel := context.WithTimeout(context.Background(), queueFlushTimeout)
		defer cancel()
		if err := q.Flush(ctx); err != nil {
			warnf("flush queue on close: %v", err)
		}
	}
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

func warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
}
