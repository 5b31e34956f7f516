package store

import (
	"context"
	"fmt"

	"github.com/roach88/assetpipe/internal/engine"
)

// RecordQueued inserts a work item.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) RecordQueued(ctx context.Context, item engine.WorkItem) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO work_items
		(id, seq, source, destination, kind, enqueued_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		item.ID,
		item.Seq,
		item.Source,
		item.Destination,
		item.Kind.String(),
		item.EnqueuedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record queued: %w", err)
	}
	return nil
}

// RecordOutcome inserts the outcome of a work item. Each item has at most
// one outcome; a second write is silently ignored.
//
// Note: The work item referenced by ItemID must exist (foreign key constraint).
func (s *Store) RecordOutcome(ctx context.Context, o engine.Outcome) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outcomes
		(item_id, seq, status, code, error, bytes, elapsed_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO NOTHING
	`,
		o.ItemID,
		o.Seq,
		string(o.Status),
		string(o.Code),
		o.Err,
		o.Bytes,
		o.Elapsed.Nanoseconds(),
	)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

// AbandonUnfinished gives every item without an outcome an abandoned
// outcome and returns how many were closed. Call it once at startup, after
// reporting Unfinished, so a later run does not report the same items.
func (s *Store) AbandonUnfinished(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO outcomes (item_id, seq, status, error)
		SELECT w.id, w.seq, 'abandoned', 'previous run ended before processing'
		FROM work_items w
		WHERE NOT EXISTS (SELECT 1 FROM outcomes o WHERE o.item_id = w.id)
		ORDER BY w.seq
	`)
	if err != nil {
		return 0, fmt.Errorf("abandon unfinished: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("abandon unfinished: %w", err)
	}
	return n, nil
}
