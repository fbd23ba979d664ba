package store

import (
	"context"
	"database/sql"
	"time"

	mkerr "github.com/markdownkeeper/markdownkeeper/internal/errors"
)

// EnqueueChange records a created-or-modified path, coalescing with any
// existing queued event for the same path: a queued delete becomes a
// change (the file is back), a queued change stays a change.
func (s *Store) EnqueueChange(ctx context.Context, path string, at time.Time) error {
	return s.enqueue(ctx, path, EventChange, at)
}

// EnqueueDelete records a removed path, coalescing with any existing
// queued event for the same path: any queued change becomes a delete.
func (s *Store) EnqueueDelete(ctx context.Context, path string, at time.Time) error {
	return s.enqueue(ctx, path, EventDelete, at)
}

func (s *Store) enqueue(ctx context.Context, path string, eventType EventType, at time.Time) error {
	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return mkerr.StorageError("begin enqueue transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existingID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM events WHERE path = ? AND status = ?`, path, string(EventQueued)).Scan(&existingID)
	switch {
	case err == sql.ErrNoRows:
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO events (path, type, status, enqueued_at, attempts, code) VALUES (?, ?, ?, ?, 0, '')`,
			path, string(eventType), string(EventQueued), at); err != nil {
			return mkerr.StorageError("insert event", err)
		}
	case err != nil:
		return mkerr.StorageError("lookup existing event", err)
	default:
		if _, err := tx.ExecContext(ctx,
			`UPDATE events SET type = ?, enqueued_at = ? WHERE id = ?`, string(eventType), at, existingID); err != nil {
			return mkerr.StorageError("update coalesced event", err)
		}
	}

	return tx.Commit()
}

// ResetRetryableFailed reverts failed events back to queued, so the next
// Drain gives them another try — but only the ones mkerr.IsRetryable
// reports as retryable from the error code that failed them. A
// ParseError (unreadable file, bad frontmatter) is never retryable, so
// it stays failed permanently after its first attempt; a StorageError
// (locked or transient IO) is retried until MaxEventAttempts. Called at
// the start of every Drain.
func (s *Store) ResetRetryableFailed(ctx context.Context) error {
	rows, err := s.writeDB.QueryContext(ctx,
		`SELECT id, code FROM events WHERE status = ? AND attempts < ?`,
		string(EventFailed), MaxEventAttempts)
	if err != nil {
		return mkerr.StorageError("select failed events", err)
	}

	type failedEvent struct {
		id   int64
		code string
	}
	var candidates []failedEvent
	for rows.Next() {
		var c failedEvent
		if err := rows.Scan(&c.id, &c.code); err != nil {
			rows.Close()
			return mkerr.StorageError("scan failed event", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return mkerr.StorageError("iterate failed events", err)
	}
	rows.Close()

	for _, c := range candidates {
		if !mkerr.IsRetryable(mkerr.New(c.code, "", nil)) {
			continue
		}
		if _, err := s.writeDB.ExecContext(ctx,
			`UPDATE events SET status = ? WHERE id = ?`, string(EventQueued), c.id); err != nil {
			return mkerr.StorageError("reset retryable failed event", err)
		}
	}
	return nil
}

// SelectQueuedEvents returns every queued event in ascending id order,
// the order Drain processes them in.
func (s *Store) SelectQueuedEvents(ctx context.Context) ([]Event, error) {
	rows, err := s.writeDB.QueryContext(ctx,
		`SELECT id, path, type, status, enqueued_at, attempts, code FROM events WHERE status = ? ORDER BY id`,
		string(EventQueued))
	if err != nil {
		return nil, mkerr.StorageError("select queued events", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var eventType, status string
		if err := rows.Scan(&e.ID, &e.Path, &eventType, &status, &e.EnqueuedAt, &e.Attempts, &e.Code); err != nil {
			return nil, mkerr.StorageError("scan event row", err)
		}
		e.Type = EventType(eventType)
		e.Status = EventStatus(status)
		events = append(events, e)
	}
	return events, rows.Err()
}

// MarkInProgress transitions an event to in_progress.
func (s *Store) MarkInProgress(ctx context.Context, id int64) error {
	_, err := s.writeDB.ExecContext(ctx, `UPDATE events SET status = ? WHERE id = ?`, string(EventInProgress), id)
	if err != nil {
		return mkerr.StorageError("mark event in progress", err)
	}
	return nil
}

// MarkDone transitions an event to done.
func (s *Store) MarkDone(ctx context.Context, id int64) error {
	_, err := s.writeDB.ExecContext(ctx, `UPDATE events SET status = ? WHERE id = ?`, string(EventDone), id)
	if err != nil {
		return mkerr.StorageError("mark event done", err)
	}
	return nil
}

// MarkFailed transitions an event to failed, increments its attempt
// count, and records the code of the error that failed it.
// ResetRetryableFailed reconstructs an error from this code and consults
// mkerr.IsRetryable to decide whether the event is eligible for another
// attempt.
func (s *Store) MarkFailed(ctx context.Context, id int64, code string) error {
	_, err := s.writeDB.ExecContext(ctx,
		`UPDATE events SET status = ?, attempts = attempts + 1, code = ? WHERE id = ?`,
		string(EventFailed), code, id)
	if err != nil {
		return mkerr.StorageError("mark event failed", err)
	}
	return nil
}
