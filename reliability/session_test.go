package reliability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionOpenAndResume(t *testing.T) {
	mgr := NewSessionManager()
	session := mgr.Open()

	resumed, err := mgr.Resume(session.SessionID, session.ResumptionToken)
	require.NoError(t, err)
	require.Equal(t, session.SessionID, resumed.SessionID)
}

func TestSessionResumeWrongToken(t *testing.T) {
	mgr := NewSessionManager()
	session := mgr.Open()

	_, err := mgr.Resume(session.SessionID, "wrong-token")
	require.Error(t, err)
}

func TestSessionAdvanceRejectsNonMonotonic(t *testing.T) {
	mgr := NewSessionManager()
	session := mgr.Open()

	require.NoError(t, mgr.Advance(session.SessionID, 5))
	require.Error(t, mgr.Advance(session.SessionID, 3))
}

func TestSessionSweepRemovesExpired(t *testing.T) {
	mgr := NewSessionManager()
	fixed := time.Now()
	mgr.now = func() time.Time { return fixed }
	mgr.Open()

	removed := mgr.Sweep(fixed.Add(25 * time.Hour))
	require.Equal(t, 1, removed)
}
