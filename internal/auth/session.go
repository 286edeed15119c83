package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/voxdeploy/voxdeploy/internal/database"
	"github.com/voxdeploy/voxdeploy/pkg/logger"
)

// SessionStore is the durable storage the session manager writes through.
type SessionStore interface {
	InsertSession(ctx context.Context, s *database.Session) error
	GetSession(ctx context.Context, sessionID string) (*database.Session, error)
}

// SessionManager issues and validates short-lived wallet-bound sessions.
type SessionManager struct {
	store SessionStore
	ttl   time.Duration
	log   *logger.Logger
	now   func() time.Time
}

// NewSessionManager creates a session manager with the given token TTL
func NewSessionManager(store SessionStore, ttl time.Duration, log *logger.Logger) *SessionManager {
	return &SessionManager{
		store: store,
		ttl:   ttl,
		log:   log,
		now:   time.Now,
	}
}

// Create mints an opaque session token bound to a wallet address and
// persists it with a fixed TTL.
func (m *SessionManager) Create(ctx context.Context, walletAddress string) (string, error) {
	if walletAddress == "" {
		return "", ErrEmptyAddress
	}

	now := m.now().UTC()
	session := &database.Session{
		SessionID:     uuid.NewString(),
		WalletAddress: walletAddress,
		CreatedAt:     now,
		ExpiresAt:     now.Add(m.ttl),
	}

	if err := m.store.InsertSession(ctx, session); err != nil {
		return "", fmt.Errorf("failed to persist session: %w", err)
	}

	m.log.Info("Session created", "wallet", walletAddress, "expires_at", session.ExpiresAt)
	return session.SessionID, nil
}

// Validate returns the wallet address bound to a live session token.
// Expired sessions are treated as absent; the TTL is never extended.
func (m *SessionManager) Validate(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrSessionMissing
	}

	session, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrSessionInvalid
		}
		return "", fmt.Errorf("failed to look up session: %w", err)
	}

	if !m.now().UTC().Before(session.ExpiresAt) {
		return "", ErrSessionInvalid
	}

	return session.WalletAddress, nil
}
