package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Entry describes a cache entry's metadata, used by the maintenance CLI.
type Entry struct {
	Key       string
	Size      int
	ExpiresAt time.Time
}

// Put writes data under key with the given TTL, replacing any prior entry.
func (s *Store) Put(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	expires := time.Now().Add(ttl).UnixMilli()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, data, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at`,
		key, data, expires,
	)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

// Get reads the entry under key. A read after the entry's expiry is a miss,
// not a stale hit; the expired row is deleted opportunistically.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	var expires int64
	err := s.db.QueryRowContext(ctx,
		`SELECT data, expires_at FROM cache_entries WHERE key = ?`, key,
	).Scan(&data, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %q: %w", key, err)
	}

	if time.Now().UnixMilli() >= expires {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
		return nil, false, nil
	}
	return data, true, nil
}

// Delete removes the entry under key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Clear removes every cache entry for every learner. Used on logout/reset.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// PurgeExpired deletes all expired entries and returns how many were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE expires_at <= ?`, time.Now().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// Entries lists all live entries ordered by key.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, length(data), expires_at FROM cache_entries
		 WHERE expires_at > ? ORDER BY key`, time.Now().UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var expires int64
		if err := rows.Scan(&e.Key, &e.Size, &expires); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.ExpiresAt = time.UnixMilli(expires)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
