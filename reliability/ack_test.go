package reliability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tokenmesh/channel"
)

func TestAckTrackerFullAck(t *testing.T) {
	tracker := NewAckTracker()
	frame := channel.NewDataFrame("frame-1", []byte("payload"), 1, time.Now())
	tracker.Track(frame)

	complete, missing := tracker.Observe(channel.Ack{FrameID: "frame-1", Success: true})
	require.True(t, complete)
	require.Empty(t, missing)
	require.Empty(t, tracker.Pending())
}

func TestAckTrackerPartialAckTracksMissing(t *testing.T) {
	tracker := NewAckTracker()
	frame := channel.Frame{
		FrameID: "frame-2",
		Chunks: []channel.ChunkInfo{
			{Index: 0, Total: 3}, {Index: 1, Total: 3}, {Index: 2, Total: 3},
		},
	}
	tracker.Track(frame)

	complete, missing := tracker.Observe(channel.Ack{FrameID: "frame-2", ReceivedChunks: []int{0, 2}})
	require.False(t, complete)
	require.Equal(t, []int{1}, missing)

	req, ok := tracker.BuildRecoveryRequest("frame-2", "session-1")
	require.True(t, ok)
	require.Equal(t, []int{1}, req.MissingChunks)

	complete, missing = tracker.Observe(channel.Ack{FrameID: "frame-2", ReceivedChunks: []int{1}})
	require.True(t, complete)
	require.Empty(t, missing)
}

func TestAckTrackerForget(t *testing.T) {
	tracker := NewAckTracker()
	frame := channel.NewDataFrame("frame-3", []byte("p"), 1, time.Now())
	tracker.Track(frame)
	tracker.Forget("frame-3")
	require.Empty(t, tracker.Pending())
}
