package learner

import "time"

// Kind identifies the type of a queued action. The set is closed; the
// remote sync service rejects unknown kinds.
type Kind string

const (
	KindStartEntity          Kind = "START_ENTITY"
	KindCompleteVerification Kind = "COMPLETE_VERIFICATION"
	KindUpdateProgress       Kind = "UPDATE_PROGRESS"
)

// Valid reports whether k is a member of the closed kind set.
func (k Kind) Valid() bool {
	switch k {
	case KindStartEntity, KindCompleteVerification, KindUpdateProgress:
		return true
	}
	return false
}

// QueuedAction is a user action that has not yet been confirmed by the
// remote sync service. It stays durable until Synced. Ordering within a
// single entity's actions is significant; ordering across entities is not.
//
// Optimistic records the delta the client applied locally when the action
// was recorded. On confirmation the synchronizer retires it and lands the
// server's authoritative delta instead, so the aggregate ends up at the
// authoritative numbers even when the guess was off.
type QueuedAction struct {
	ID         string         `json:"id"`
	Kind       Kind           `json:"kind"`
	EntityID   string         `json:"entity_id"`
	Payload    map[string]any `json:"payload"`
	Optimistic Delta          `json:"optimistic"`
	CreatedAt  time.Time      `json:"created_at"`
	Synced     bool           `json:"synced"`
}
