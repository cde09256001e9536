package learner

import (
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/mod/semver"
)

// FormatVersion is the semver version of the snapshot wire format. The
// major version gates compatibility: a persisted snapshot written by a
// newer major version is treated as a cache miss, not a parse error, so an
// old binary falls back to a remote pull instead of misreading the blob.
const FormatVersion = "v1.0.0"

// ErrFormatTooNew is returned by DecodeSnapshot when the persisted snapshot
// was written by an incompatible newer format.
type ErrFormatTooNew struct {
	Version string
}

func (e *ErrFormatTooNew) Error() string {
	return fmt.Sprintf("snapshot format %s is newer than supported %s", e.Version, FormatVersion)
}

// Snapshot is a full copy of one learner's state, stored for instant
// restore on profile switch. Every container field is always a valid
// (possibly empty) container, never nil, for any learner that has ever
// been switched to — Normalize enforces this in one place so call sites
// never need nil guards.
type Snapshot struct {
	FormatVersion string            `json:"format_version"`
	LearnerID     string            `json:"learner_id"`
	Queue         []QueuedAction    `json:"queue"`
	Progress      map[string]Status `json:"progress"`
	SRSLevels     map[string]int    `json:"srs_levels"`
	Stats         Stats             `json:"stats"`
	StatusCounts  map[Status]int    `json:"status_counts"`
	DueItems      []string          `json:"due_items"`
	Inventory     []string          `json:"inventory"`
	Currencies    map[string]int64  `json:"currencies"`
	Timestamp     time.Time         `json:"timestamp"`
}

// NewSnapshot returns an empty, normalized snapshot for the learner.
func NewSnapshot(learnerID string) *Snapshot {
	s := &Snapshot{
		FormatVersion: FormatVersion,
		LearnerID:     learnerID,
		Timestamp:     time.Now().UTC(),
	}
	s.Normalize()
	return s
}

// Normalize replaces nil containers with empty ones and stamps the current
// format version if missing.
func (s *Snapshot) Normalize() {
	if s.FormatVersion == "" {
		s.FormatVersion = FormatVersion
	}
	if s.Queue == nil {
		s.Queue = []QueuedAction{}
	}
	if s.Progress == nil {
		s.Progress = map[string]Status{}
	}
	if s.SRSLevels == nil {
		s.SRSLevels = map[string]int{}
	}
	if s.StatusCounts == nil {
		s.StatusCounts = map[Status]int{}
	}
	if s.DueItems == nil {
		s.DueItems = []string{}
	}
	if s.Inventory == nil {
		s.Inventory = []string{}
	}
	if s.Currencies == nil {
		s.Currencies = map[string]int64{}
	}
	if s.Stats.Achievements == nil {
		s.Stats.Achievements = []string{}
	}
}

// Encode serializes the snapshot for the persistent cache.
func (s *Snapshot) Encode() ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

// DecodeSnapshot parses a persisted snapshot and normalizes its containers.
// Returns *ErrFormatTooNew if the blob was written by a newer major format
// version.
func DecodeSnapshot(b []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if v := s.FormatVersion; v != "" && semver.IsValid(v) {
		if semver.Major(v) != semver.Major(FormatVersion) && semver.Compare(v, FormatVersion) > 0 {
			return nil, &ErrFormatTooNew{Version: v}
		}
	}
	s.Normalize()
	return &s, nil
}
