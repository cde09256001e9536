// Package queue holds the durable, ordered list of not-yet-confirmed user
// actions for one learner. Enqueue is split per the local-first contract:
// an instant in-memory append followed by a fire-and-forget durable write.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wordtrail/syncore/internal/cache"
	"github.com/wordtrail/syncore/internal/learner"
)

// persistTimeout bounds the background durable write so a wedged disk
// can't pile up goroutines.
const persistTimeout = 10 * time.Second

// Queue is the per-learner action queue. Safe for concurrent use.
type Queue struct {
	mu        sync.Mutex
	persistMu sync.Mutex // serializes durable writes; see persist
	learnerID string
	actions   []learner.QueuedAction
	store     *cache.Store // nil means memory-only (tests, degraded mode)
}

// New creates an empty queue for the learner, persisted through store.
func New(learnerID string, store *cache.Store) *Queue {
	return &Queue{learnerID: learnerID, store: store}
}

// Load restores a learner's queue from the persistent cache. Any cache
// failure degrades to an empty queue; a missing entry is not an error.
func Load(ctx context.Context, learnerID string, store *cache.Store) *Queue {
	q := New(learnerID, store)
	if store == nil {
		return q
	}

	data, ok, err := store.Get(ctx, cacheKey(learnerID))
	if err != nil {
		warnf("load queue for %s: %v", learnerID, err)
		return q
	}
	if !ok {
		return q
	}

	var actions []learner.QueuedAction
	if err := json.Unmarshal(data, &actions); err != nil {
		warnf("decode queue for %s: %v", learnerID, err)
		return q
	}
	q.actions = actions
	return q
}

// LearnerID returns the learner this queue belongs to.
func (q *Queue) LearnerID() string {
	return q.learnerID
}

// Enqueue validates the action's payload, appends it in memory, and kicks
// off the durable write. It returns before durability is confirmed: if the
// durable write fails, the action survives only in memory for this process
// lifetime — a documented degradation, not a hard failure.
//
// A missing ID is filled in; CreatedAt defaults to now.
func (q *Queue) Enqueue(a learner.QueuedAction) (learner.QueuedAction, error) {
	if err := validatePayload(a.Kind, a.Payload); err != nil {
		return learner.QueuedAction{}, err
	}

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.Payload == nil {
		a.Payload = map[string]any{}
	}
	a.Synced = false

	q.mu.Lock()
	q.actions = append(q.actions, a)
	q.mu.Unlock()

	q.persistAsync()
	return a, nil
}

// Pending returns all unsynced actions in insertion order.
func (q *Queue) Pending() []learner.QueuedAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []learner.QueuedAction
	for _, a := range q.actions {
		if !a.Synced {
			out = append(out, a)
		}
	}
	return out
}

// All returns a copy of every action, synced or not, in insertion order.
func (q *Queue) All() []learner.QueuedAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]learner.QueuedAction{}, q.actions...)
}

// MarkSynced confirms the given action ids and removes them from both the
// in-memory list and the durable record. An action is durable only until
// synced.
func (q *Queue) MarkSynced(ids []string) {
	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	q.mu.Lock()
	kept := q.actions[:0]
	for _, a := range q.actions {
		if idSet[a.ID] {
			continue // confirmed actions need no further storage
		}
		kept = append(kept, a)
	}
	q.actions = kept
	q.mu.Unlock()

	q.persistAsync()
}

// Drop removes a single action, synced or not. Used for server-rejected
// actions that are clearly invalid.
func (q *Queue) Drop(id string) {
	q.mu.Lock()
	kept := q.actions[:0]
	for _, a := range q.actions {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	q.actions = kept
	q.mu.Unlock()

	q.persistAsync()
}

// DropEntity removes every pending action referencing entityID. Used when
// reconciliation learns the entity reached a terminal status remotely.
func (q *Queue) DropEntity(entityID string) int {
	q.mu.Lock()
	kept := q.actions[:0]
	dropped := 0
	for _, a := range q.actions {
		if a.EntityID == entityID && !a.Synced {
			dropped++
			continue
		}
		kept = append(kept, a)
	}
	q.actions = kept
	q.mu.Unlock()

	if dropped > 0 {
		q.persistAsync()
	}
	return dropped
}

// ReplaceAll swaps the queue contents, used when restoring from a snapshot.
func (q *Queue) ReplaceAll(actions []learner.QueuedAction) {
	q.mu.Lock()
	q.actions = append([]learner.QueuedAction{}, actions...)
	q.mu.Unlock()

	q.persistAsync()
}

// Flush writes the queue synchronously. The switcher uses it on shutdown;
// everything else relies on the async path.
func (q *Queue) Flush(ctx context.Context) error {
	return q.persist(ctx)
}

func (q *Queue) persistAsync() {
	if q.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := q.persist(ctx); err != nil {
			warnf("persist queue for %s: %v", q.learnerID, err)
		}
	}()
}

func (q *Queue) persist(ctx context.Context) error {
	if q.store == nil {
		return nil
	}

	// One writer at a time, and the contents are marshalled under the write
	// lock: overlapping async persists from several mutations can then never
	// land an older queue over a newer one.
	q.persistMu.Lock()
	defer q.persistMu.Unlock()

	q.mu.Lock()
	data, err := json.Marshal(q.actions)
	q.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}

	return q.store.Put(ctx, cacheKey(q.learnerID), data, cache.TTLLong)
}

func cacheKey(learnerID string) string {
	return "queue:" + learnerID
}

func warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
}
