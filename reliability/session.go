package reliability

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"tokenmesh/channel"
)

// SessionManager creates and resumes channel.Sessions, enforcing the
// default 24h TTL (spec §6) and issuing the resumption token a reconnecting
// peer presents to recover sequence-number state after a transport drop.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*channel.Session
	now      func() time.Time
}

// NewSessionManager constructs an empty manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*channel.Session),
		now:      time.Now,
	}
}

// Open creates a fresh session.
func (m *SessionManager) Open() *channel.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	session := channel.NewSession(uuid.NewString(), uuid.NewString(), now)
	m.sessions[session.SessionID] = session
	return session
}

// Resume looks up sessionID by its resumption token, returning the session
// if it exists and has not expired.
func (m *SessionManager) Resume(sessionID, resumptionToken string) (*channel.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("reliability: unknown session %s", sessionID)
	}
	if session.ResumptionToken != resumptionToken {
		return nil, fmt.Errorf("reliability: resumption token mismatch for session %s", sessionID)
	}
	if session.Expired(m.now()) {
		delete(m.sessions, sessionID)
		return nil, fmt.Errorf("reliability: session %s expired", sessionID)
	}
	return session, nil
}

// Advance records that sequence has been observed on sessionID, rejecting
// sequence numbers that would move the session backwards.
func (m *SessionManager) Advance(sessionID string, sequence uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("reliability: unknown session %s", sessionID)
	}
	if sequence <= session.LastSequence && sequence != 0 {
		return fmt.Errorf("reliability: session %s sequence %d is not monotonic after %d", sessionID, sequence, session.LastSequence)
	}
	session.LastSequence = sequence
	return nil
}

// Close discards sessionID.
func (m *SessionManager) Close(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// Sweep evicts every session that has expired as of now.
func (m *SessionManager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, session := range m.sessions {
		if session.Expired(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
