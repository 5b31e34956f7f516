package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/assetpipe/internal/engine"
	"github.com/roach88/assetpipe/internal/processor"
)

// Entry is a finished work item joined with its outcome.
type Entry struct {
	Item    engine.WorkItem
	Outcome engine.Outcome
}

// Counts summarizes the journal.
type Counts struct {
	Done       int64
	Failed     int64
	Abandoned  int64
	Unfinished int64
}

// LastSeq returns the highest recorded item seq, or 0 for an empty journal.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM work_items`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

// RecentOutcomes returns up to limit finished items, most recent first.
// Returns an empty slice (not nil) for an empty journal.
func (s *Store) RecentOutcomes(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.seq, w.source, w.destination, w.kind, w.enqueued_at,
		       o.status, o.code, o.error, o.bytes, o.elapsed_ns
		FROM outcomes o
		JOIN work_items w ON o.item_id = w.id
		ORDER BY o.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e        Entry
			kind     string
			enqueued int64
			status   string
			code     string
			elapsed  int64
		)
		if err := rows.Scan(
			&e.Item.ID, &e.Item.Seq, &e.Item.Source, &e.Item.Destination, &kind, &enqueued,
			&status, &code, &e.Outcome.Err, &e.Outcome.Bytes, &elapsed,
		); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		e.Item.Kind = parseKind(kind)
		e.Item.EnqueuedAt = time.Unix(0, enqueued).UTC()
		e.Outcome.ItemID = e.Item.ID
		e.Outcome.Seq = e.Item.Seq
		e.Outcome.Source = e.Item.Source
		e.Outcome.Kind = e.Item.Kind
		e.Outcome.Status = engine.Status(status)
		e.Outcome.Code = processor.ErrorCode(code)
		e.Outcome.Elapsed = time.Duration(elapsed)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return entries, nil
}

// OutcomeCounts counts items by outcome status, plus those with none.
func (s *Store) OutcomeCounts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM outcomes WHERE status = 'done'),
			(SELECT COUNT(*) FROM outcomes WHERE status = 'failed'),
			(SELECT COUNT(*) FROM outcomes WHERE status = 'abandoned'),
			(SELECT COUNT(*) FROM work_items w
			 WHERE NOT EXISTS (SELECT 1 FROM outcomes o WHERE o.item_id = w.id))
	`).Scan(&c.Done, &c.Failed, &c.Abandoned, &c.Unfinished)
	if err != nil {
		return Counts{}, fmt.Errorf("count outcomes: %w", err)
	}
	return c, nil
}

// Unfinished returns items queued without an outcome, ordered by seq.
// These were cut off by a crash or kill; the next scan re-queues them if
// their destination is still stale. AbandonUnfinished closes them out.
func (s *Store) Unfinished(ctx context.Context) ([]engine.WorkItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.seq, w.source, w.destination, w.kind, w.enqueued_at
		FROM work_items w
		WHERE NOT EXISTS (SELECT 1 FROM outcomes o WHERE o.item_id = w.id)
		ORDER BY w.seq ASC, w.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query unfinished: %w", err)
	}
	defer rows.Close()

	items := []engine.WorkItem{}
	for rows.Next() {
		var (
			it       engine.WorkItem
			kind     string
			enqueued int64
		)
		if err := rows.Scan(&it.ID, &it.Seq, &it.Source, &it.Destination, &kind, &enqueued); err != nil {
			return nil, fmt.Errorf("scan work item: %w", err)
		}
		it.Kind = parseKind(kind)
		it.EnqueuedAt = time.Unix(0, enqueued).UTC()
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unfinished: %w", err)
	}
	return items, nil
}

func parseKind(s string) processor.Kind {
	k, _ := processor.ParseKind(s)
	return k
}
