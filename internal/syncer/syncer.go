// Package syncer drains the pending action queue in the background: batch
// submission to the remote sync service, authoritative reconciliation back
// into the live store, and backoff when the network is down.
package syncer

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/wordtrail/syncore/internal/cache"
	"github.com/wordtrail/syncore/internal/learner"
	"github.com/wordtrail/syncore/internal/remote"
	"github.com/wordtrail/syncore/internal/state"
	"github.com/wordtrail/syncore/internal/switcher"
)

// Config controls the sync cadence and failure backoff.
type Config struct {
	Interval    time.Duration // tick while pending actions exist
	InitialWait time.Duration // backoff after first failure
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig matches the spec'd cadence: a 5s tick, exponential backoff
// on repeated failures.
func DefaultConfig() Config {
	return Config{
		Interval:    5 * time.Second,
		InitialWait: 2 * time.Second,
		MaxWait:     2 * time.Minute,
		Multiplier:  2.0,
	}
}

// Syncer is the background synchronizer. One flush runs at a time; a flush
// either confirms the whole batch or leaves the queue untouched for retry.
type Syncer struct {
	state *state.Store
	sw    *switcher.Switcher
	svc   remote.Service
	store *cache.Store
	cfg   Config

	kick chan struct{}

	mu        sync.Mutex
	inFlight  bool
	failures  int
	nextTryAt time.Time
}

// New creates a Syncer. store may be nil; audit events are then skipped.
func New(st *state.Store, sw *switcher.Switcher, svc remote.Service, store *cache.Store, cfg Config) *Syncer {
	if cfg.Interval <= 0 {
		cfg = DefaultConfig()
	}
	return &Syncer{
		state: st,
		sw:    sw,
		svc:   svc,
		store: store,
		cfg:   cfg,
		kick:  make(chan struct{}, 1),
	}
}

// Run drives the sync loop until ctx is cancelled: a fixed tick plus
// event kicks from NotifyOnline/NotifyForeground and fresh enqueues.
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.kick:
		}

		if !s.due() {
			continue
		}
		if err := s.Flush(ctx); err != nil && ctx.Err() == nil {
			warnf("sync flush: %v", err)
		}
	}
}

// Kick requests a flush soon (after an enqueue). Non-blocking.
func (s *Syncer) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// NotifyOnline signals network reconnection; failure backoff is reset so
// the next flush happens immediately.
func (s *Syncer) NotifyOnline() {
	s.resetBackoff()
	s.Kick()
}

// NotifyForeground signals the app returned to the foreground.
func (s *Syncer) NotifyForeground() {
	s.resetBackoff()
	s.Kick()
}

func (s *Syncer) resetBackoff() {
	s.mu.Lock()
	s.failures = 0
	s.nextTryAt = time.Time{}
	s.mu.Unlock()
}

// due reports whether the backoff window has passed.
func (s *Syncer) due() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Now().After(s.nextTryAt)
}

// Flush submits all pending actions for the active learner as one batch
// and reconciles the authoritative response. Transport failure leaves the
// queue untouched and arms the backoff. Returns nil when there is nothing
// to do or another flush is already in flight.
func (s *Syncer) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil
	}
	s.inFlight = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	q := s.sw.ActiveQueue()
	if q == nil {
		return nil
	}
	pending := q.Pending()
	if len(pending) == 0 {
		return nil
	}

	learnerID := q.LearnerID()
	gen := s.state.Generation()

	results, err := s.svc.SubmitBatch(ctx, learnerID, pending)
	if err != nil {
		s.recordFailure(ctx, learnerID, len(pending), err)
		return err
	}

	s.resetBackoff()

	// Apply per-action authoritative results. Each confirmation retires the
	// action's optimistic guess and lands the server's delta in one additive
	// fold (authoritative minus optimistic), so the aggregate ends up at the
	// sum of the authoritative deltas while optimistic updates made for
	// still-pending actions stay untouched — no absolute overwrite.
	var confirmed []string
	accepted, rejected := 0, 0
	for _, r := range results {
		if r.Rejected {
			rejected++
			warnf("action %s rejected by sync service: %s", r.ActionID, r.Reason)
			q.Drop(r.ActionID)
			continue
		}
		accepted++
		confirmed = append(confirmed, r.ActionID)

		// Live-store application is guarded by generation: if the user
		// switched profiles mid-flight, the queue is still confirmed but
		// the stale learner's deltas stay out of the new learner's state.
		a, ok := actionByID(pending, r.ActionID)
		if !ok {
			s.state.ApplyDelta(r.Delta, gen)
			continue
		}
		s.state.ApplyDelta(r.Delta.Merge(a.Optimistic.Negated()), gen)
		if r.EntityStatus != nil {
			s.state.SetEntityStatus(a.EntityID, *r.EntityStatus, gen)
		}
	}
	q.MarkSynced(confirmed)

	s.sw.SnapshotActive()
	s.audit(ctx, cache.SyncEvent{
		LearnerID: learnerID,
		Submitted: len(pending),
		Accepted:  accepted,
		Rejected:  rejected,
	})
	return nil
}

func (s *Syncer) recordFailure(ctx context.Context, learnerID string, submitted int, err error) {
	s.mu.Lock()
	s.failures++
	s.nextTryAt = time.Now().Add(s.backoff(s.failures - 1))
	s.mu.Unlock()

	s.audit(ctx, cache.SyncEvent{
		LearnerID: learnerID,
		Submitted: submitted,
		Error:     err.Error(),
	})
}

// backoff computes the wait after the given number of consecutive failures,
// with ±20% jitter.
func (s *Syncer) backoff(failures int) time.Duration {
	wait := float64(s.cfg.InitialWait) * math.Pow(s.cfg.Multiplier, float64(failures))
	if wait > float64(s.cfg.MaxWait) {
		wait = float64(s.cfg.MaxWait)
	}
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}

func (s *Syncer) audit(ctx context.Context, ev cache.SyncEvent) {
	if s.store == nil {
		return
	}
	if err := s.store.AppendSyncEvent(ctx, ev); err != nil {
		warnf("record sync event: %v", err)
	}
}

// actionByID resolves an action id back to the submitted action.
func actionByID(actions []learner.QueuedAction, id string) (learner.QueuedAction, bool) {
	for _, a := range actions {
		if a.ID == id {
			return a, true
		}
	}
	return learner.QueuedAction{}, false
}

func warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
}
