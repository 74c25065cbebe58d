package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SendStatus is the ledger's view of a send attempt.
type SendStatus string

const (
	SendPending SendStatus = "pending"
	SendSent    SendStatus = "sent"
	SendFailed  SendStatus = "failed"
	// SendLateAck marks a send that was failed locally by the timeout and
	// acknowledged by the server afterwards.
	SendLateAck SendStatus = "late_ack"
)

// Send is one row of the ledger.
type Send struct {
	TempID    string
	ChatID    string
	Body      string
	Status    SendStatus
	ServerID  string
	Error     string
	RetryOf   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ErrNotFound is returned by Get for an unknown temp id.
var ErrNotFound = errors.New("send not found")

// Record inserts a pending send.
func (db *DB) Record(ctx context.Context, s Send) error {
	now := time.Now().UnixMilli()
	_, err := db.ExecContext(ctx, `
		INSERT INTO sends (temp_id, chat_id, body, status, retry_of, created_at, updated_at)
		VALUES (?, ?, ?, 'pending', ?, ?, ?)`,
		s.TempID, s.ChatID, s.Body, s.RetryOf, now, now)
	if err != nil {
		return fmt.Errorf("record send %s: %w", s.TempID, err)
	}
	return nil
}

// MarkSent moves a pending send to sent. It reports false when the row was
// not pending (already failed by the timeout, or unknown).
func (db *DB) MarkSent(ctx context.Context, tempID, serverID string) (bool, error) {
	return db.transition(ctx, tempID, SendPending, SendSent, serverID, "")
}

// MarkFailed moves a pending send to failed.
func (db *DB) MarkFailed(ctx context.Context, tempID, reason string) (bool, error) {
	return db.transition(ctx, tempID, SendPending, SendFailed, "", reason)
}

// MarkLateAck records a server acknowledgement for a send already failed locally.
func (db *DB) MarkLateAck(ctx context.Context, tempID, serverID string) (bool, error) {
	return db.transition(ctx, tempID, SendFailed, SendLateAck, serverID, "")
}

func (db *DB) transition(ctx context.Context, tempID string, from, to SendStatus, serverID, reason string) (bool, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE sends
		SET status = ?,
		    server_id = CASE WHEN ? <> '' THEN ? ELSE server_id END,
		    error = CASE WHEN ? <> '' THEN ? ELSE error END,
		    updated_at = ?
		WHERE temp_id = ? AND status = ?`,
		to, serverID, serverID, reason, reason, time.Now().UnixMilli(), tempID, from)
	if err != nil {
		return false, fmt.Errorf("mark send %s %s: %w", tempID, to, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Get returns the send with the given temp id.
func (db *DB) Get(ctx context.Context, tempID string) (*Send, error) {
	row := db.QueryRowContext(ctx, `
		SELECT temp_id, chat_id, body, status, server_id, error, retry_of, created_at, updated_at
		FROM sends WHERE temp_id = ?`, tempID)
	s, err := scanSend(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// ListFailed returns failed and late-acknowledged sends, newest first.
func (db *DB) ListFailed(ctx context.Context, limit int) ([]Send, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
		SELECT temp_id, chat_id, body, status, server_id, error, retry_of, created_at, updated_at
		FROM sends WHERE status IN ('failed', 'late_ack')
		ORDER BY created_at DESC, temp_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list failed sends: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sends []Send
	for rows.Next() {
		s, err := scanSend(rows)
		if err != nil {
			return nil, err
		}
		sends = append(sends, *s)
	}
	return sends, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSend(sc scanner) (*Send, error) {
	var s Send
	var created, updated int64
	if err := sc.Scan(&s.TempID, &s.ChatID, &s.Body, &s.Status, &s.ServerID, &s.Error, &s.RetryOf, &created, &updated); err != nil {
		return nil, err
	}
	s.CreatedAt = time.UnixMilli(created)
	s.UpdatedAt = time.UnixMilli(updated)
	return &s, nil
}
