package core

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/wordtrail/syncore/internal/cache"
	"github.com/wordtrail/syncore/internal/config"
	"github.com/wordtrail/syncore/internal/learner"
	"github.com/wordtrail/syncore/internal/remote"
)

func testConfig() *config.Config {
	return &config.Config{
		BaseURL:           "http://unused",
		SyncInterval:      time.Hour, // tests drive Flush directly
		BackoffInitial:    20 * time.Millisecond,
		BackoffMax:        100 * time.Millisecond,
		BackoffMultiplier: 2.0,
		RetryAttempts:     1, // no transport retries; tests assert call counts
		ShortTTL:          time.Hour,
		LongTTL:           time.Hour,
	}
}

func openTestCache(t *testing.T) *cache.Store {
	t.Helper()
	s, err := cache.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test cache: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// offline keeps reconciliation quiet so tests observe only the paths they
// drive.
func offline(m *remote.Mock) *remote.Mock {
	if m.GetSnapshotFn == nil {
		m.GetSnapshotFn = func(learnerID string) (*learner.Snapshot, error) {
			return nil, &remote.ErrUnavailable{Err: errors.New("offline")}
		}
	}
	return m
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestRecordActionAppliesOptimisticDeltaInstantly(t *testing.T) {
	mock := offline(&remote.Mock{})
	c := NewWithStore(testConfig(), nil, mock, mock)
	c.Switch(context.Background(), learner.Learner{ID: "kid-1"})

	a, err := c.RecordAction(
		learner.KindCompleteVerification, "word-1",
		map[string]any{"score": 0.9},
		learner.Delta{XP: 5},
	)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if a.ID == "" {
		t.Error("action id not assigned")
	}

	// The read path must see the optimistic delta with no waiting.
	if xp := c.State().Active().Stats.XP; xp != 5 {
		t.Errorf("xp = %d, want optimistic 5", xp)
	}
}

func TestRecordActionStartMarksInProgress(t *testing.T) {
	mock := offline(&remote.Mock{})
	c := NewWithStore(testConfig(), nil, mock, mock)
	c.Switch(context.Background(), learner.Learner{ID: "kid-1"})

	if _, err := c.RecordAction(learner.KindStartEntity, "word-1", nil, learner.Delta{}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := c.State().Active().Progress["word-1"]; got != learner.StatusInProgress {
		t.Errorf("progress = %v, want in_progress", got)
	}
}

func TestRecordActionWithoutActiveLearnerFails(t *testing.T) {
	mock := offline(&remote.Mock{})
	c := NewWithStore(testConfig(), nil, mock, mock)

	if _, err := c.RecordAction(learner.KindStartEntity, "word-1", nil, learner.Delta{}); err == nil {
		t.Error("expected error with no active learner")
	}
}

func TestRecordActionInvalidPayloadRejected(t *testing.T) {
	mock := offline(&remote.Mock{})
	c := NewWithStore(testConfig(), nil, mock, mock)
	c.Switch(context.Background(), learner.Learner{ID: "kid-1"})

	_, err := c.RecordAction(
		learner.KindCompleteVerification, "word-1",
		map[string]any{"score": 7.0}, // out of range
		learner.Delta{XP: 5},
	)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if xp := c.State().Active().Stats.XP; xp != 0 {
		t.Error("rejected action must not apply its optimistic delta")
	}
}

func TestStartEntityOptimisticThenAuthoritative(t *testing.T) {
	status := learner.StatusInProgress
	mock := offline(&remote.Mock{
		StartEntityFn: func(learnerID, entityID string) (*remote.ActionResult, error) {
			return &remote.ActionResult{Delta: learner.Delta{XP: 10}, EntityStatus: &status}, nil
		},
	})
	c := NewWithStore(testConfig(), nil, mock, mock)
	c.Switch(context.Background(), learner.Learner{ID: "kid-1"})

	c.StartEntity(context.Background(), "word-1")

	// Optimistic status is visible before the remote answers.
	if got := c.State().Active().Progress["word-1"]; got != learner.StatusInProgress {
		t.Errorf("progress = %v, want immediate in_progress", got)
	}

	waitFor(t, func() bool {
		return c.State().Active().Stats.XP == 10
	}, "authoritative delta never landed")
}

func TestStartEntityFallsBackToQueueWhenOffline(t *testing.T) {
	mock := offline(&remote.Mock{
		StartEntityFn: func(learnerID, entityID string) (*remote.ActionResult, error) {
			return nil, &remote.ErrUnavailable{Err: errors.New("offline")}
		},
	})
	c := NewWithStore(testConfig(), nil, mock, mock)
	c.Switch(context.Background(), learner.Learner{ID: "kid-1"})

	c.StartEntity(context.Background(), "word-1")

	// Status still lands optimistically, and the action degrades to the
	// durable queue for the next batch.
	if got := c.State().Active().Progress["word-1"]; got != learner.StatusInProgress {
		t.Errorf("progress = %v", got)
	}
	waitFor(t, func() bool {
		pending := c.sw.QueueFor("kid-1").Pending()
		return len(pending) == 1 && pending[0].Kind == learner.KindStartEntity
	}, "failed start never fell back to the queue")
}

func TestDueItemsFetchesOnceThenServesFromCache(t *testing.T) {
	store := openTestCache(t)
	mock := offline(&remote.Mock{
		DueItemsFn: func(learnerID string) ([]string, error) {
			return []string{"w1", "w2"}, nil
		},
	})
	c := NewWithStore(testConfig(), store, mock, mock)
	c.Switch(context.Background(), learner.Learner{ID: "kid-1"})
	ctx := context.Background()

	first := c.DueItems(ctx)
	if len(first) != 2 {
		t.Fatalf("due = %v", first)
	}

	second := c.DueItems(ctx)
	if len(second) != 2 {
		t.Fatalf("due = %v", second)
	}
	if n := len(mock.DueCalls); n != 1 {
		t.Errorf("catalog calls = %d, second read should hit the cache", n)
	}
	if got := c.State().Active().DueItems; len(got) != 2 {
		t.Errorf("live store due items = %v", got)
	}
}

func TestDueItemsDegradesToLastKnownList(t *testing.T) {
	healthy := true
	mock := offline(&remote.Mock{
		DueItemsFn: func(learnerID string) ([]string, error) {
			if !healthy {
				return nil, &remote.ErrUnavailable{Err: errors.New("offline")}
			}
			return []string{"w1"}, nil
		},
	})
	// No persistent cache: every read consults the catalog.
	c := NewWithStore(testConfig(), nil, mock, mock)
	c.Switch(context.Background(), learner.Learner{ID: "kid-1"})
	ctx := context.Background()

	if got := c.DueItems(ctx); len(got) != 1 {
		t.Fatalf("due = %v", got)
	}

	healthy = false
	if got := c.DueItems(ctx); len(got) != 1 || got[0] != "w1" {
		t.Errorf("due = %v, want last known list", got)
	}
}

func TestFlushDrainsQueueEndToEnd(t *testing.T) {
	mock := offline(&remote.Mock{
		SubmitBatchFn: func(learnerID string, actions []learner.QueuedAction) ([]remote.ActionResult, error) {
			results := make([]remote.ActionResult, len(actions))
			for i, a := range actions {
				results[i] = remote.ActionResult{ActionID: a.ID, Delta: learner.Delta{XP: 10}}
			}
			return results, nil
		},
	})
	c := NewWithStore(testConfig(), nil, mock, mock)
	c.Switch(context.Background(), learner.Learner{ID: "kid-1"})

	for _, e := range []string{"w1", "w2", "w3"} {
		if _, err := c.RecordAction(learner.KindCompleteVerification, e,
			map[string]any{"score": 1.0}, learner.Delta{XP: 5}); err != nil {
			t.Fatalf("record %s: %v", e, err)
		}
	}
	if xp := c.State().Active().Stats.XP; xp != 15 {
		t.Fatalf("optimistic xp = %d, want 15", xp)
	}

	if err := c.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if mock.BatchCallCount() != 1 {
		t.Errorf("batch calls = %d, want 1", mock.BatchCallCount())
	}
	if n := len(c.sw.QueueFor("kid-1").Pending()); n != 0 {
		t.Errorf("pending = %d, want drained", n)
	}

	// The server awarded 10 per action; the 5-XP guesses are retired.
	if xp := c.State().Active().Stats.XP; xp != 30 {
		t.Errorf("xp = %d, want 30 (sum of authoritative deltas)", xp)
	}
}

func TestLogoutClearsAllLocalState(t *testing.T) {
	store := openTestCache(t)
	mock := offline(&remote.Mock{})
	c := NewWithStore(testConfig(), store, mock, mock)
	ctx := context.Background()

	c.Switch(ctx, learner.Learner{ID: "kid-1"})
	c.RecordAction(learner.KindCompleteVerification, "w1",
		map[string]any{"score": 0.5}, learner.Delta{XP: 5})

	// Let the fire-and-forget queue write land before clearing.
	waitFor(t, func() bool {
		_, ok, _ := store.Get(ctx, "queue:kid-1")
		return ok
	}, "queue never persisted")

	if err := c.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if c.State().Active() != nil {
		t.Error("logout must drop the active learner")
	}

	entries, err := store.Entries(ctx)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %d, logout must clear the persistent cache", len(entries))
	}
}
