package store

import (
	"context"
	"fmt"
)

// Poll detects writes committed by other processes sharing the database
// file and announces the collections observed by live subscriptions.
// Returns true if a foreign write was seen.
//
// Writes made through this Store are announced directly; Poll is only
// needed when several processes write to one database.
func (s *Store) Poll(ctx context.Context) (bool, error) {
	var version int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA data_version").Scan(&version); err != nil {
		return false, fmt.Errorf("poll: %w", err)
	}
	if s.dataVersion.Swap(version) == version {
		return false, nil
	}

	var lastSeq int64
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM records").Scan(&lastSeq); err != nil {
		return false, fmt.Errorf("poll: read last seq: %w", err)
	}
	s.clock.AdvanceTo(lastSeq)

	seen := make(map[string]bool)
	s.subs.Range(func(_ string, sub *subscription) bool {
		seen[sub.query.From] = true
		return true
	})
	for collection := range seen {
		s.announce(collection)
	}

	s.logger.Debug("foreign write detected",
		"data_version", version,
		"collections", len(seen),
		"last_seq", lastSeq,
	)
	return true, nil
}
