package state

import "github.com/wordtrail/syncore/internal/learner"

// Apply folds a delta into the state block. Pure and total: unset fields
// are no-ops, numeric fields add, achievement events append, and the level
// marker replaces only when higher (level never decreases locally).
//
// Apply performs no deduplication — callers dedupe by QueuedAction.ID
// before folding. Additive semantics make application commutative on
// numeric fields, which is what lets authoritative deltas land additively
// on top of optimistic updates made while a batch was in flight.
func Apply(ls *LearnerState, d learner.Delta) {
	ls.Stats.XP += d.XP
	ls.Stats.Wallet += d.WalletDelta
	ls.Stats.Streak += d.StreakDelta
	if ls.Stats.Streak < 0 {
		ls.Stats.Streak = 0
	}

	for kind, amount := range d.Currencies {
		ls.Currencies[kind] += amount
	}

	for status, n := range d.StatusCounts {
		ls.StatusCounts[status] += n
		if ls.StatusCounts[status] < 0 {
			ls.StatusCounts[status] = 0
		}
	}

	if len(d.AchievementsUnlocked) > 0 {
		ls.Stats.Achievements = append(ls.Stats.Achievements, d.AchievementsUnlocked...)
	}

	if d.NewLevel != nil && *d.NewLevel > ls.Stats.Level {
		ls.Stats.Level = *d.NewLevel
	}
}
