package reliability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFrameGuardRemembersResponse(t *testing.T) {
	guard := NewFrameGuard(time.Minute)

	_, ok := guard.Seen("frame-1")
	require.False(t, ok)

	guard.Remember("frame-1", []byte("computed-response"))
	resp, ok := guard.Seen("frame-1")
	require.True(t, ok)
	require.Equal(t, []byte("computed-response"), resp)
}

func TestFrameGuardExpires(t *testing.T) {
	guard := NewFrameGuard(time.Millisecond)
	fixed := time.Now()
	guard.now = func() time.Time { return fixed }

	guard.Remember("frame-1", nil)
	guard.now = func() time.Time { return fixed.Add(time.Second) }

	_, ok := guard.Seen("frame-1")
	require.False(t, ok)
}

func TestFrameGuardEvictsOverflow(t *testing.T) {
	guard := NewFrameGuard(time.Hour)
	guard.maxEntries = 2

	guard.Remember("a", nil)
	guard.Remember("b", nil)
	guard.Remember("c", nil)

	require.Equal(t, 2, guard.Size())
	_, ok := guard.Seen("a")
	require.False(t, ok)
}
