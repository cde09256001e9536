// Package learner defines the shared data model of the sync core: learner
// profiles, per-entity progress, action deltas, queued actions, and the full
// state snapshot used for instant profile restore.
package learner

import "time"

// Learner is a profile under which progress accrues. Learners are created
// and mutated by the account service; the sync core treats them as
// read-only references and never deletes them.
type Learner struct {
	ID              string `json:"id"`
	GuardianID      string `json:"guardian_id"`
	IsParentProfile bool   `json:"is_parent_profile"`
	DisplayName     string `json:"display_name"`
}

// Status is the lifecycle status of a content entity for one learner.
// The set is ordered by terminality: a terminal status supersedes any
// locally pending action for that entity.
type Status string

const (
	StatusUndiscovered Status = "undiscovered"
	StatusInProgress   Status = "in_progress"
	StatusMastered     Status = "mastered"
	StatusRetired      Status = "retired"
)

// Terminal reports whether the status supersedes pending local actions.
func (s Status) Terminal() bool {
	return s == StatusMastered || s == StatusRetired
}

// Rank orders statuses by terminality. Unknown statuses rank lowest so a
// remote-introduced status never accidentally supersedes local work.
func (s Status) Rank() int {
	switch s {
	case StatusUndiscovered:
		return 1
	case StatusInProgress:
		return 2
	case StatusMastered:
		return 3
	case StatusRetired:
		return 4
	}
	return 0
}

// EntityProgress is the per-content-item progress record.
type EntityProgress struct {
	EntityID     string     `json:"entity_id"`
	Status       Status     `json:"status"`
	MasteryLevel int        `json:"mastery_level"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Stats aggregates the learner-level counters that deltas fold into.
type Stats struct {
	XP           int64    `json:"xp"`
	Level        int      `json:"level"`
	Wallet       int64    `json:"wallet"`
	Streak       int      `json:"streak"`
	Achievements []string `json:"achievements"`
}
