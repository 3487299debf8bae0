package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/solatis/ducktest/internal/types"
)

// SessionRow is a persisted session.
type SessionRow struct {
	SessionID string         `db:"session_id"`
	ClientID  string         `db:"client_id"`
	Class     string         `db:"class"`
	CreatedAt string         `db:"created_at"`
	ClosedAt  sql.NullString `db:"closed_at"`
}

// CallRow is one audited method call.
type CallRow struct {
	CallID     string `db:"call_id"`
	SessionID  string `db:"session_id"`
	ClientID   string `db:"client_id"`
	Method     string `db:"method"`
	Result     string `db:"result"`
	Error      string `db:"error"`
	DurationUs int64  `db:"duration_us"`
	CreatedAt  string `db:"created_at"`
}

// Store persists sessions, calls and API keys through named queries.
type Store struct {
	q *Queries
}

// NewStore wraps loaded queries.
func NewStore(q *Queries) (*Store, error) {
	if q == nil {
		return nil, fmt.Errorf("queries cannot be nil")
	}
	return &Store{q: q}, nil
}

// Queries exposes the underlying named queries (used by auth).
func (s *Store) Queries() *Queries { return s.q }

// InsertSession records a newly opened session.
func (s *Store) InsertSession(ctx context.Context, row SessionRow) error {
	_, err := s.q.ExecContext(ctx, "insert-session", row.SessionID, row.ClientID, row.Class, row.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", row.SessionID, err)
	}
	return nil
}

// CloseSession stamps closed_at. Closing twice is a no-op.
func (s *Store) CloseSession(ctx context.Context, id types.SessionID, at time.Time) error {
	_, err := s.q.ExecContext(ctx, "close-session", at.UTC().Format(time.RFC3339), string(id))
	if err != nil {
		return fmt.Errorf("close session %s: %w", id, err)
	}
	return nil
}

// GetSession loads a session row; returns sql.ErrNoRows when absent.
func (s *Store) GetSession(ctx context.Context, id types.SessionID) (SessionRow, error) {
	var row SessionRow
	err := s.q.GetContext(ctx, "get-session", &row, string(id))
	return row, err
}

// InsertCall appends a call to the audit trail.
func (s *Store) InsertCall(ctx context.Context, row CallRow) error {
	_, err := s.q.ExecContext(ctx, "insert-call",
		row.CallID, row.SessionID, row.ClientID, row.Method,
		row.Result, row.Error, row.DurationUs, row.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert call %s: %w", row.CallID, err)
	}
	return nil
}

// ListCalls returns a session's calls in creation order.
func (s *Store) ListCalls(ctx context.Context, id types.SessionID) ([]CallRow, error) {
	var rows []CallRow
	if err := s.q.SelectContext(ctx, "list-calls-by-session", &rows, string(id)); err != nil {
		return nil, fmt.Errorf("list calls for %s: %w", id, err)
	}
	return rows, nil
}

// InsertAPIKey stores the HMAC of a freshly issued key.
func (s *Store) InsertAPIKey(ctx context.Context, apiKeyID, clientID string, keyHash []byte) error {
	_, err := s.q.ExecContext(ctx, "insert-api-key", apiKeyID, clientID, keyHash, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// RevokeAPIKey marks a key revoked. Returns false if no active key matched.
func (s *Store) RevokeAPIKey(ctx context.Context, apiKeyID string) (bool, error) {
	res, err := s.q.ExecContext(ctx, "revoke-api-key", time.Now().UTC(), apiKeyID)
	if err != nil {
		return false, fmt.Errorf("revoke api key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
