package auth

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxdeploy/voxdeploy/internal/database"
	"github.com/voxdeploy/voxdeploy/pkg/logger"
)

// memorySessionStore keeps sessions in a map for tests
type memorySessionStore struct {
	sessions  map[string]*database.Session
	insertErr error
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{sessions: make(map[string]*database.Session)}
}

func (s *memorySessionStore) InsertSession(_ context.Context, sess *database.Session) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	copied := *sess
	s.sessions[sess.SessionID] = &copied
	return nil
}

func (s *memorySessionStore) GetSession(_ context.Context, sessionID string) (*database.Session, error) {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *sess
	return &copied, nil
}

func newTestSessionManager(store SessionStore) *SessionManager {
	return NewSessionManager(store, time.Hour, logger.New("session-test"))
}

func TestSessionCreateAndValidate(t *testing.T) {
	store := newMemorySessionStore()
	m := newTestSessionManager(store)
	ctx := context.Background()

	id, err := m.Create(ctx, "akash1test")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	wallet, err := m.Validate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "akash1test", wallet)

	// Tokens are unique per login.
	id2, err := m.Create(ctx, "akash1test")
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)
}

func TestSessionCreateEmptyAddress(t *testing.T) {
	m := newTestSessionManager(newMemorySessionStore())

	_, err := m.Create(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyAddress)
}

func TestSessionValidateMissing(t *testing.T) {
	m := newTestSessionManager(newMemorySessionStore())

	_, err := m.Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrSessionMissing)
}

func TestSessionValidateUnknown(t *testing.T) {
	m := newTestSessionManager(newMemorySessionStore())

	_, err := m.Validate(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestSessionValidateExpired(t *testing.T) {
	store := newMemorySessionStore()
	m := newTestSessionManager(store)
	ctx := context.Background()

	id, err := m.Create(ctx, "akash1test")
	require.NoError(t, err)

	// Force the clock past the TTL; expired sessions are never resurrected.
	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = m.Validate(ctx, id)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestSessionTTL(t *testing.T) {
	store := newMemorySessionStore()
	m := newTestSessionManager(store)

	id, err := m.Create(context.Background(), "akash1test")
	require.NoError(t, err)

	sess := store.sessions[id]
	assert.Equal(t, time.Hour, sess.ExpiresAt.Sub(sess.CreatedAt))
}
