package remote

import (
	"context"
	"sync"

	"github.com/wordtrail/syncore/internal/learner"
)

// Mock is a deterministic Service and Catalog for testing. Behavior is
// driven by function fields; unset fields return zero values. All calls are
// recorded.
type Mock struct {
	mu sync.Mutex

	SubmitBatchFn func(learnerID string, actions []learner.QueuedAction) ([]ActionResult, error)
	GetSnapshotFn func(learnerID string) (*learner.Snapshot, error)
	StartEntityFn func(learnerID, entityID string) (*ActionResult, error)
	DueItemsFn    func(learnerID string) ([]string, error)

	BatchCalls    [][]learner.QueuedAction
	SnapshotCalls []string
	StartCalls    []string
	DueCalls      []string
}

func (m *Mock) SubmitBatch(_ context.Context, learnerID string, actions []learner.QueuedAction) ([]ActionResult, error) {
	m.mu.Lock()
	m.BatchCalls = append(m.BatchCalls, append([]learner.QueuedAction{}, actions...))
	fn := m.SubmitBatchFn
	m.mu.Unlock()

	if fn == nil {
		// Default: acknowledge everything with empty deltas.
		results := make([]ActionResult, len(actions))
		for i, a := range actions {
			results[i] = ActionResult{ActionID: a.ID}
		}
		return results, nil
	}
	return fn(learnerID, actions)
}

func (m *Mock) GetSnapshot(_ context.Context, learnerID string) (*learner.Snapshot, error) {
	m.mu.Lock()
	m.SnapshotCalls = append(m.SnapshotCalls, learnerID)
	fn := m.GetSnapshotFn
	m.mu.Unlock()

	if fn == nil {
		return learner.NewSnapshot(learnerID), nil
	}
	return fn(learnerID)
}

func (m *Mock) StartEntity(_ context.Context, learnerID, entityID string) (*ActionResult, error) {
	m.mu.Lock()
	m.StartCalls = append(m.StartCalls, entityID)
	fn := m.StartEntityFn
	m.mu.Unlock()

	if fn == nil {
		status := learner.StatusInProgress
		return &ActionResult{EntityStatus: &status}, nil
	}
	return fn(learnerID, entityID)
}

func (m *Mock) DueItems(_ context.Context, learnerID string) ([]string, error) {
	m.mu.Lock()
	m.DueCalls = append(m.DueCalls, learnerID)
	fn := m.DueItemsFn
	m.mu.Unlock()

	if fn == nil {
		return []string{}, nil
	}
	return fn(learnerID)
}

// BatchCallCount returns the number of SubmitBatch calls made.
func (m *Mock) BatchCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.BatchCalls)
}
