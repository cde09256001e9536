package learner

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
)

func TestNewSnapshotContainersNeverNil(t *testing.T) {
	s := NewSnapshot("kid-1")

	if s.Queue == nil {
		t.Error("queue is nil")
	}
	if s.Progress == nil {
		t.Error("progress is nil")
	}
	if s.SRSLevels == nil {
		t.Error("srs levels is nil")
	}
	if s.StatusCounts == nil {
		t.Error("status counts is nil")
	}
	if s.DueItems == nil {
		t.Error("due items is nil")
	}
	if s.Inventory == nil {
		t.Error("inventory is nil")
	}
	if s.Currencies == nil {
		t.Error("currencies is nil")
	}
	if s.Stats.Achievements == nil {
		t.Error("achievements is nil")
	}
}

func TestDecodeSnapshotNormalizes(t *testing.T) {
	// A minimal blob with every container absent.
	blob := []byte(`{"format_version":"v1.0.0","learner_id":"kid-1"}`)

	s, err := DecodeSnapshot(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Progress == nil || s.Queue == nil || s.Currencies == nil {
		t.Error("decoded snapshot has nil containers")
	}
}

func TestDecodeSnapshotRoundTrip(t *testing.T) {
	orig := NewSnapshot("kid-1")
	orig.Progress["word-1"] = StatusMastered
	orig.SRSLevels["word-1"] = 4
	orig.Stats.XP = 250
	orig.Currencies["acorns"] = 9

	data, err := orig.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.Progress["word-1"] != StatusMastered {
		t.Errorf("progress = %q, want mastered", got.Progress["word-1"])
	}
	if got.SRSLevels["word-1"] != 4 {
		t.Errorf("srs level = %d, want 4", got.SRSLevels["word-1"])
	}
	if got.Stats.XP != 250 {
		t.Errorf("xp = %d, want 250", got.Stats.XP)
	}
	if got.Currencies["acorns"] != 9 {
		t.Errorf("acorns = %d, want 9", got.Currencies["acorns"])
	}
}

func TestDecodeSnapshotNewerMajorIsMiss(t *testing.T) {
	blob := []byte(`{"format_version":"v2.0.0","learner_id":"kid-1"}`)

	_, err := DecodeSnapshot(blob)
	var tooNew *ErrFormatTooNew
	if !errors.As(err, &tooNew) {
		t.Fatalf("err = %v, want ErrFormatTooNew", err)
	}
	if tooNew.Version != "v2.0.0" {
		t.Errorf("version = %q, want v2.0.0", tooNew.Version)
	}
}

func TestDecodeSnapshotOlderFormatStillReads(t *testing.T) {
	blob := []byte(`{"format_version":"v0.9.0","learner_id":"kid-1"}`)

	s, err := DecodeSnapshot(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.LearnerID != "kid-1" {
		t.Errorf("learner id = %q", s.LearnerID)
	}
}

func TestSnapshotGolden(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	snap := &Snapshot{
		FormatVersion: "v1.0.0",
		LearnerID:     "kid-1",
		Queue: []QueuedAction{{
			ID:         "a1",
			Kind:       KindCompleteVerification,
			EntityID:   "word-42",
			Payload:    map[string]any{"score": 0.75},
			Optimistic: Delta{XP: 5},
			CreatedAt:  ts,
		}},
		Progress:     map[string]Status{"word-42": StatusInProgress, "word-7": StatusMastered},
		SRSLevels:    map[string]int{"word-7": 3},
		Stats:        Stats{XP: 120, Level: 2, Wallet: 40, Streak: 5, Achievements: []string{"first-word"}},
		StatusCounts: map[Status]int{StatusMastered: 1},
		DueItems:     []string{"word-7"},
		Inventory:    []string{"sticker-owl"},
		Currencies:   map[string]int64{"acorns": 12},
		Timestamp:    ts,
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	g := goldie.New(t)
	g.Assert(t, "snapshot", data)
}
