package learner

import "testing"

func TestDeltaIsZero(t *testing.T) {
	if !(Delta{}).IsZero() {
		t.Error("empty delta should be zero")
	}
	if (Delta{XP: 1}).IsZero() {
		t.Error("xp delta should not be zero")
	}
	if (Delta{Currencies: map[string]int64{"acorns": 1}}).IsZero() {
		t.Error("currency delta should not be zero")
	}
}

func TestDeltaMergeCommutes(t *testing.T) {
	lvl3, lvl5 := 3, 5
	d1 := Delta{
		XP:                   10,
		WalletDelta:          -2,
		StreakDelta:          1,
		Currencies:           map[string]int64{"acorns": 3},
		StatusCounts:         map[Status]int{StatusMastered: 1},
		AchievementsUnlocked: []string{"streak-5"},
		NewLevel:             &lvl3,
	}
	d2 := Delta{
		XP:         25,
		Currencies: map[string]int64{"acorns": 1, "stars": 2},
		NewLevel:   &lvl5,
	}

	a := d1.Merge(d2)
	b := d2.Merge(d1)

	if a.XP != b.XP || a.XP != 35 {
		t.Errorf("xp: %d vs %d, want 35", a.XP, b.XP)
	}
	if a.Currencies["acorns"] != 4 || b.Currencies["acorns"] != 4 {
		t.Errorf("acorns: %d vs %d, want 4", a.Currencies["acorns"], b.Currencies["acorns"])
	}
	if a.Currencies["stars"] != 2 || b.Currencies["stars"] != 2 {
		t.Error("stars should merge to 2 either way")
	}
	if a.StatusCounts[StatusMastered] != 1 || b.StatusCounts[StatusMastered] != 1 {
		t.Error("status counts should survive merge")
	}
	if *a.NewLevel != 5 || *b.NewLevel != 5 {
		t.Errorf("level: %d vs %d, want higher marker 5", *a.NewLevel, *b.NewLevel)
	}
}

func TestDeltaNegatedCancelsNumericFields(t *testing.T) {
	lvl := 3
	d := Delta{
		XP:                   10,
		WalletDelta:          -2,
		StreakDelta:          1,
		Currencies:           map[string]int64{"acorns": 3},
		StatusCounts:         map[Status]int{StatusMastered: 1},
		AchievementsUnlocked: []string{"streak-5"},
		NewLevel:             &lvl,
	}

	sum := d.Merge(d.Negated())

	if sum.XP != 0 || sum.WalletDelta != 0 || sum.StreakDelta != 0 {
		t.Errorf("numeric fields did not cancel: %+v", sum)
	}
	if sum.Currencies["acorns"] != 0 {
		t.Errorf("acorns = %d, want 0", sum.Currencies["acorns"])
	}
	if sum.StatusCounts[StatusMastered] != 0 {
		t.Errorf("status counts = %v, want cancelled", sum.StatusCounts)
	}

	// Event fields are one-way: negation must not try to retract them.
	neg := d.Negated()
	if len(neg.AchievementsUnlocked) != 0 || neg.NewLevel != nil {
		t.Errorf("negation retracted event fields: %+v", neg)
	}
}

func TestStatusTerminality(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusUndiscovered, false},
		{StatusInProgress, false},
		{StatusMastered, true},
		{StatusRetired, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.terminal {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.terminal)
		}
	}

	if StatusUndiscovered.Rank() >= StatusInProgress.Rank() {
		t.Error("undiscovered should rank below in_progress")
	}
	if StatusInProgress.Rank() >= StatusMastered.Rank() {
		t.Error("in_progress should rank below mastered")
	}
	if Status("bogus").Rank() != 0 {
		t.Error("unknown status should rank lowest")
	}
}

func TestKindValid(t *testing.T) {
	for _, k := range []Kind{KindStartEntity, KindCompleteVerification, KindUpdateProgress} {
		if !k.Valid() {
			t.Errorf("%s should be valid", k)
		}
	}
	if Kind("DELETE_EVERYTHING").Valid() {
		t.Error("unknown kind should be invalid")
	}
}
