package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Session is a server-issued proof of a prior successful signature check.
type Session struct {
	SessionID     string
	WalletAddress string
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// InsertSession persists a new session record
func (db *DB) InsertSession(ctx context.Context, s *Session) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, wallet_address, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`, s.SessionID, s.WalletAddress, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetSession returns the session with the given token, or sql.ErrNoRows
// when none exists. Expiry is not checked here; that is the session
// manager's concern.
func (db *DB) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var s Session
	err := db.QueryRowContext(ctx, `
		SELECT session_id, wallet_address, created_at, expires_at
		FROM sessions
		WHERE session_id = $1
	`, sessionID).Scan(&s.SessionID, &s.WalletAddress, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return &s, nil
}

// DeleteExpiredSessions removes sessions past their expiry and returns
// the number of rows deleted.
func (db *DB) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at <= $1", now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
