package cache

import (
	"context"
	"fmt"
	"time"
)

// SyncEvent records the outcome of one background sync attempt. The audit
// trail is operational history only; it is never read back into learner
// state.
type SyncEvent struct {
	LearnerID string
	Submitted int
	Accepted  int
	Rejected  int
	Error     string
	Timestamp time.Time
}

// AppendSyncEvent records a sync outcome. Callers treat failures as
// best-effort: a lost audit row must never fail the sync itself.
func (s *Store) AppendSyncEvent(ctx context.Context, ev SyncEvent) error {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_events (learner_id, submitted, accepted, rejected, error, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ev.LearnerID, ev.Submitted, ev.Accepted, ev.Rejected, ev.Error, ts.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("append sync event: %w", err)
	}
	return nil
}

// RecentSyncEvents returns up to limit sync events, newest first.
func (s *Store) RecentSyncEvents(ctx context.Context, limit int) ([]SyncEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT learner_id, submitted, accepted, rejected, error, timestamp
		 FROM sync_events ORDER BY timestamp DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query sync events: %w", err)
	}
	defer rows.Close()

	var events []SyncEvent
	for rows.Next() {
		var ev SyncEvent
		var ts int64
		if err := rows.Scan(&ev.LearnerID, &ev.Submitted, &ev.Accepted, &ev.Rejected, &ev.Error, &ts); err != nil {
			return nil, fmt.Errorf("scan sync event: %w", err)
		}
		ev.Timestamp = time.UnixMilli(ts)
		events = append(events, ev)
	}
	return events, rows.Err()
}
