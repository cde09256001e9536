// Package state holds the live, synchronously-readable state of the active
// learner plus process-wide data (roster, active profile). All UI reads go
// through this package; nothing here blocks or performs I/O.
package state

import (
	"time"

	"github.com/wordtrail/syncore/internal/learner"
)

// LearnerState is the learner-scoped block of the live store. It is swapped
// atomically as a unit on profile switch, never left mixed between two
// learners mid-read. All containers are non-nil from construction on.
type LearnerState struct {
	LearnerID    string
	Progress     map[string]learner.Status
	SRSLevels    map[string]int
	Stats        learner.Stats
	StatusCounts map[learner.Status]int
	DueItems     []string
	Inventory    []string
	Currencies   map[string]int64
}

// NewLearnerState returns an empty-but-valid state block for the learner.
func NewLearnerState(learnerID string) *LearnerState {
	return &LearnerState{
		LearnerID:    learnerID,
		Progress:     map[string]learner.Status{},
		SRSLevels:    map[string]int{},
		Stats:        learner.Stats{Achievements: []string{}},
		StatusCounts: map[learner.Status]int{},
		DueItems:     []string{},
		Inventory:    []string{},
		Currencies:   map[string]int64{},
	}
}

// Pristine reports whether the block still holds the empty defaults a
// never-visited learner starts from. Used by post-switch reconciliation to
// decide whether a full remote pull can be adopted wholesale.
func (ls *LearnerState) Pristine() bool {
	return ls.Stats.XP == 0 && ls.Stats.Level == 0 && ls.Stats.Wallet == 0 &&
		ls.Stats.Streak == 0 && len(ls.Stats.Achievements) == 0 &&
		len(ls.Progress) == 0 && len(ls.SRSLevels) == 0 &&
		len(ls.StatusCounts) == 0 && len(ls.DueItems) == 0 &&
		len(ls.Inventory) == 0 && len(ls.Currencies) == 0
}

// Clone returns a deep copy, safe to hand to async tasks or snapshots.
func (ls *LearnerState) Clone() *LearnerState {
	out := &LearnerState{
		LearnerID:    ls.LearnerID,
		Progress:     make(map[string]learner.Status, len(ls.Progress)),
		SRSLevels:    make(map[string]int, len(ls.SRSLevels)),
		Stats:        ls.Stats,
		StatusCounts: make(map[learner.Status]int, len(ls.StatusCounts)),
		DueItems:     append([]string{}, ls.DueItems...),
		Inventory:    append([]string{}, ls.Inventory...),
		Currencies:   make(map[string]int64, len(ls.Currencies)),
	}
	out.Stats.Achievements = append([]string{}, ls.Stats.Achievements...)
	for k, v := range ls.StatusCounts {
		out.StatusCounts[k] = v
	}
	for k, v := range ls.Progress {
		out.Progress[k] = v
	}
	for k, v := range ls.SRSLevels {
		out.SRSLevels[k] = v
	}
	for k, v := range ls.Currencies {
		out.Currencies[k] = v
	}
	return out
}

// FromSnapshot builds a state block from a normalized snapshot. The
// snapshot's queue is restored separately by the profile switcher.
func FromSnapshot(snap *learner.Snapshot) *LearnerState {
	ls := NewLearnerState(snap.LearnerID)
	for k, v := range snap.Progress {
		ls.Progress[k] = v
	}
	for k, v := range snap.SRSLevels {
		ls.SRSLevels[k] = v
	}
	ls.Stats = snap.Stats
	ls.Stats.Achievements = append([]string{}, snap.Stats.Achievements...)
	for k, v := range snap.StatusCounts {
		ls.StatusCounts[k] = v
	}
	ls.DueItems = append([]string{}, snap.DueItems...)
	ls.Inventory = append([]string{}, snap.Inventory...)
	for k, v := range snap.Currencies {
		ls.Currencies[k] = v
	}
	return ls
}

// ToSnapshot captures the state block (plus the caller-supplied pending
// queue) as a snapshot stamped with the current time.
func (ls *LearnerState) ToSnapshot(queue []learner.QueuedAction) *learner.Snapshot {
	c := ls.Clone()
	snap := &learner.Snapshot{
		FormatVersion: learner.FormatVersion,
		LearnerID:     c.LearnerID,
		Queue:         queue,
		Progress:      c.Progress,
		SRSLevels:     c.SRSLevels,
		Stats:         c.Stats,
		StatusCounts:  c.StatusCounts,
		DueItems:      c.DueItems,
		Inventory:     c.Inventory,
		Currencies:    c.Currencies,
		Timestamp:     time.Now().UTC(),
	}
	snap.Normalize()
	return snap
}
