package learner

// Delta is a flat record of changes to fold into a learner's state. All
// fields are optional: the zero value is a no-op. Numeric fields are
// associative and commutative under application — folding a set of deltas
// must produce the same state regardless of order. Event fields
// (achievements, new level) append or replace.
type Delta struct {
	XP                   int64            `json:"xp,omitempty"`
	Currencies           map[string]int64 `json:"currencies,omitempty"`
	WalletDelta          int64            `json:"wallet_delta,omitempty"`
	StatusCounts         map[Status]int   `json:"status_counts,omitempty"`
	StreakDelta          int              `json:"streak_delta,omitempty"`
	AchievementsUnlocked []string         `json:"achievements_unlocked,omitempty"`
	NewLevel             *int             `json:"new_level,omitempty"`
}

// IsZero reports whether applying the delta would change nothing.
func (d Delta) IsZero() bool {
	return d.XP == 0 &&
		len(d.Currencies) == 0 &&
		d.WalletDelta == 0 &&
		len(d.StatusCounts) == 0 &&
		d.StreakDelta == 0 &&
		len(d.AchievementsUnlocked) == 0 &&
		d.NewLevel == nil
}

// Merge combines two deltas into one. Numeric fields sum, achievement lists
// concatenate, and the higher of the two level markers wins, so Merge is
// commutative wherever Apply is.
func (d Delta) Merge(other Delta) Delta {
	out := Delta{
		XP:          d.XP + other.XP,
		WalletDelta: d.WalletDelta + other.WalletDelta,
		StreakDelta: d.StreakDelta + other.StreakDelta,
	}

	if len(d.Currencies) > 0 || len(other.Currencies) > 0 {
		out.Currencies = make(map[string]int64, len(d.Currencies)+len(other.Currencies))
		for k, v := range d.Currencies {
			out.Currencies[k] += v
		}
		for k, v := range other.Currencies {
			out.Currencies[k] += v
		}
	}

	if len(d.StatusCounts) > 0 || len(other.StatusCounts) > 0 {
		out.StatusCounts = make(map[Status]int, len(d.StatusCounts)+len(other.StatusCounts))
		for k, v := range d.StatusCounts {
			out.StatusCounts[k] += v
		}
		for k, v := range other.StatusCounts {
			out.StatusCounts[k] += v
		}
	}

	if len(d.AchievementsUnlocked) > 0 || len(other.AchievementsUnlocked) > 0 {
		out.AchievementsUnlocked = append(append([]string{}, d.AchievementsUnlocked...), other.AchievementsUnlocked...)
	}

	out.NewLevel = maxLevel(d.NewLevel, other.NewLevel)
	return out
}

// Negated returns a delta that cancels d's numeric fields when folded after
// it. Event fields are not retractable: achievements stay unlocked and the
// level marker never decreases, so both are dropped from the negation.
func (d Delta) Negated() Delta {
	out := Delta{
		XP:          -d.XP,
		WalletDelta: -d.WalletDelta,
		StreakDelta: -d.StreakDelta,
	}
	if len(d.Currencies) > 0 {
		out.Currencies = make(map[string]int64, len(d.Currencies))
		for k, v := range d.Currencies {
			out.Currencies[k] = -v
		}
	}
	if len(d.StatusCounts) > 0 {
		out.StatusCounts = make(map[Status]int, len(d.StatusCounts))
		for k, v := range d.StatusCounts {
			out.StatusCounts[k] = -v
		}
	}
	return out
}

func maxLevel(a, b *int) *int {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *b > *a:
		return b
	}
	return a
}
