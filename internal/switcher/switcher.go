// Package switcher orchestrates profile switches: snapshot the outgoing
// learner, restore the target from the fastest available source, then
// reconcile against the remote in the background. Switching never errors
// and never leaves the live store mixed between two learners.
package switcher

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/wordtrail/syncore/internal/cache"
	"github.com/wordtrail/syncore/internal/learner"
	"github.com/wordtrail/syncore/internal/queue"
	"github.com/wordtrail/syncore/internal/remote"
	"github.com/wordtrail/syncore/internal/state"
)

// Phase names the steps of the switch protocol. Switch runs them to
// completion synchronously; the phase field exists for the inspect surface.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseSnapshotting Phase = "snapshotting"
	PhaseRestoring    Phase = "restoring"
)

// ioTimeout bounds background cache writes kicked off by a switch.
const ioTimeout = 10 * time.Second

// Switcher owns the snapshot cache (learner id → full snapshot, making
// repeat switches instant) and the per-learner queue registry.
type Switcher struct {
	state *state.Store
	store *cache.Store
	svc   remote.Service

	mu        sync.Mutex
	phase     Phase
	snapshots map[string]*learner.Snapshot
	queues    map[string]*queue.Queue
}

// New creates a Switcher. store may be nil for memory-only operation.
func New(st *state.Store, store *cache.Store, svc remote.Service) *Switcher {
	return &Switcher{
		state:     st,
		store:     store,
		svc:       svc,
		phase:     PhaseIdle,
		snapshots: make(map[string]*learner.Snapshot),
		queues:    make(map[string]*queue.Queue),
	}
}

// Phase returns the current protocol phase.
func (sw *Switcher) Phase() Phase {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.phase
}

// QueueFor returns the learner's action queue, loading it from the
// persistent cache on first access.
func (sw *Switcher) QueueFor(learnerID string) *queue.Queue {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.queueForLocked(learnerID)
}

func (sw *Switcher) queueForLocked(learnerID string) *queue.Queue {
	if q, ok := sw.queues[learnerID]; ok {
		return q
	}
	ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
	defer cancel()
	q := queue.Load(ctx, learnerID, sw.store)
	sw.queues[learnerID] = q
	return q
}

// ActiveQueue returns the active learner's queue, or nil when no learner is
// active.
func (sw *Switcher) ActiveQueue() *queue.Queue {
	id := sw.state.ActiveLearnerID()
	if id == "" {
		return nil
	}
	return sw.QueueFor(id)
}

// Switch makes target the active learner.
//
// Protocol: Idle → Snapshotting (capture outgoing learner into the snapshot
// cache, opportunistic persistent write) → Restoring (snapshot cache, else
// persistent cache, else empty defaults — every path populates the snapshot
// cache) → Idle, then a non-blocking remote reconciliation guarded by the
// switch generation. Requesting a switch while one is reconciling
// supersedes it: the in-flight result is discarded by the guard.
//
// Switch never fails; any I/O trouble degrades to the best locally
// available state.
func (sw *Switcher) Switch(ctx context.Context, target learner.Learner) {
	gen := sw.state.NextGeneration()

	sw.mu.Lock()
	sw.phase = PhaseSnapshotting
	sw.captureOutgoingLocked()

	sw.phase = PhaseRestoring
	snap := sw.restoreSourceLocked(ctx, target.ID)
	q := sw.queueForLocked(target.ID)
	if len(q.All()) == 0 && len(snap.Queue) > 0 {
		q.ReplaceAll(snap.Queue)
	}
	sw.phase = PhaseIdle
	sw.mu.Unlock()

	if !sw.state.ReplaceActive(state.FromSnapshot(snap), gen) {
		return // superseded by a newer switch request
	}

	go sw.reconcile(ctx, target.ID, gen)
}

// captureOutgoingLocked snapshots the current learner-scoped fields into
// the snapshot cache and opportunistically persists them.
func (sw *Switcher) captureOutgoingLocked() {
	active := sw.state.Active()
	if active == nil {
		return
	}
	snap := active.ToSnapshot(sw.queueForLocked(active.LearnerID).Pending())
	sw.snapshots[active.LearnerID] = snap
	go sw.persistSnapshot(snap)
}

// restoreSourceLocked picks the restore source in strict priority order and
// guarantees the snapshot cache holds an entry for the target afterwards,
// so a miss is never re-computed as "no cache" again.
func (sw *Switcher) restoreSourceLocked(ctx context.Context, targetID string) *learner.Snapshot {
	// (a) Snapshot cache: the instant path, the common case after the
	// first visit in a session.
	if snap, ok := sw.snapshots[targetID]; ok {
		return snap
	}

	// (b) Persistent cache. Decode failures (including a newer snapshot
	// format) degrade to a miss.
	if sw.store != nil {
		if data, ok, err := sw.store.Get(ctx, snapshotKey(targetID)); err != nil {
			warnf("read persisted snapshot for %s: %v", targetID, err)
		} else if ok {
			if snap, err := learner.DecodeSnapshot(data); err != nil {
				warnf("decode persisted snapshot for %s: %v", targetID, err)
			} else {
				sw.snapshots[targetID] = snap
				return snap
			}
		}
	}

	// (c) Empty-but-valid defaults.
	snap := learner.NewSnapshot(targetID)
	sw.snapshots[targetID] = snap
	return snap
}

// reconcile pulls the remote truth for the learner and merges it into the
// live store, but only while the switch generation is still current.
func (sw *Switcher) reconcile(ctx context.Context, learnerID string, gen uint64) {
	rsnap, err := sw.svc.GetSnapshot(ctx, learnerID)
	if err != nil {
		warnf("reconcile fetch for %s: %v", learnerID, err)
		return // keep showing local state
	}

	if sw.state.Generation() != gen {
		return // user switched again; stale result is silently discarded
	}

	q := sw.QueueFor(learnerID)
	res := Merge(q.Pending(), rsnap.Progress)

	// A learner first seen on this device restores to empty defaults, so
	// the full pull (stats, SRS levels, currencies, inventory) is the real
	// state: adopt it wholesale. Once local work has landed — optimistic
	// deltas, statuses — only the per-entity merge below applies.
	sw.state.ReplaceActiveIfPristine(state.FromSnapshot(rsnap), gen)

	for entityID, status := range res.Resolve {
		q.DropEntity(entityID)
		sw.state.SetEntityStatus(entityID, status, gen)
	}
	for entityID, status := range res.Adopt {
		sw.state.SetEntityStatus(entityID, status, gen)
	}

	sw.SnapshotActive()
}

// SnapshotActive captures the active learner's current state into the
// snapshot cache and persists it. Used after successful syncs and at the
// end of reconciliation.
func (sw *Switcher) SnapshotActive() {
	active := sw.state.Active()
	if active == nil {
		return
	}

	sw.mu.Lock()
	snap := active.ToSnapshot(sw.queueForLocked(active.LearnerID).Pending())
	sw.snapshots[active.LearnerID] = snap
	sw.mu.Unlock()

	go sw.persistSnapshot(snap)
}

// persistSnapshot writes a snapshot to the persistent cache.
// Last-writer-wins by wall-clock timestamp: an older snapshot never
// clobbers a newer persisted one.
func (sw *Switcher) persistSnapshot(snap *learner.Snapshot) {
	if sw.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
	defer cancel()

	key := snapshotKey(snap.LearnerID)
	if data, ok, err := sw.store.Get(ctx, key); err == nil && ok {
		if existing, err := learner.DecodeSnapshot(data); err == nil && existing.Timestamp.After(snap.Timestamp) {
			return
		}
	}

	data, err := snap.Encode()
	if err != nil {
		warnf("encode snapshot for %s: %v", snap.LearnerID, err)
		return
	}
	if err := sw.store.Put(ctx, key, data, cache.TTLLong); err != nil {
		warnf("persist snapshot for %s: %v", snap.LearnerID, err)
	}
}

// Reset clears all cached state for all learners: the snapshot cache, the
// queue registry, the persistent cache, and the live store. Used on
// logout/reset only; nothing else deletes snapshots.
func (sw *Switcher) Reset(ctx context.Context) error {
	sw.mu.Lock()
	sw.snapshots = make(map[string]*learner.Snapshot)
	sw.queues = make(map[string]*queue.Queue)
	sw.mu.Unlock()

	sw.state.ClearActive()

	if sw.store == nil {
		return nil
	}
	if err := sw.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear persistent cache: %w", err)
	}
	return nil
}

func snapshotKey(learnerID string) string {
	return "snapshot:" + learnerID
}

func warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
}
