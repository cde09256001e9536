// Package remote defines the two narrow boundaries the sync core consumes:
// the sync service (authoritative progress) and the content catalog
// (derived due-item lists). Implementations are decorated with retry the
// same way callers compose them with mocks in tests.
package remote

import (
	"context"

	"github.com/wordtrail/syncore/internal/learner"
)

// ActionResult is the per-action outcome of a batch submission. The
// authoritative delta always wins over the client's optimistic guess and is
// applied additively on top of current state. Rejection is expressed here,
// in the payload, never by splitting the transport call.
type ActionResult struct {
	ActionID     string          `json:"action_id"`
	Delta        learner.Delta   `json:"authoritative_delta"`
	EntityStatus *learner.Status `json:"entity_status,omitempty"`
	Rejected     bool            `json:"rejected,omitempty"`
	Reason       string          `json:"reason,omitempty"`
}

// Service is the remote sync service. Batch submission is atomic from the
// caller's perspective: either every action in the batch is acknowledged
// (with per-action results) or the whole batch errors and is retried.
type Service interface {
	// SubmitBatch submits all pending actions for a learner in one call.
	SubmitBatch(ctx context.Context, learnerID string, actions []learner.QueuedAction) ([]ActionResult, error)

	// GetSnapshot pulls the learner's full authoritative snapshot. Used on
	// cache miss and for post-switch reconciliation.
	GetSnapshot(ctx context.Context, learnerID string) (*learner.Snapshot, error)

	// StartEntity is the latency-sensitive single-action path for "begin
	// working on X".
	StartEntity(ctx context.Context, learnerID, entityID string) (*ActionResult, error)
}

// Catalog is the content/catalog service boundary. The sync core only
// consumes derived lists from it; content shapes are out of scope.
type Catalog interface {
	// DueItems returns the entity ids currently due for review.
	DueItems(ctx context.Context, learnerID string) ([]string, error)
}
