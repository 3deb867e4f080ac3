package memchannel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tokenmesh/channel"
)

func TestPairDeliversFrame(t *testing.T) {
	a, b := Pair()
	defer a.Close()
	defer b.Close()

	frame := channel.NewDataFrame("frame-1", []byte("payload"), 1, time.Now())
	ctx := context.Background()
	require.NoError(t, a.Send(ctx, frame))

	got, err := b.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, frame.FrameID, got.FrameID)
	require.Equal(t, frame.Payload, got.Payload)
}

func TestCloseUnblocksReceive(t *testing.T) {
	a, b := Pair()
	defer a.Close()

	errCh := make(chan error, 1)
	go func() {
		_, err := b.Receive(context.Background())
		errCh <- err
	}()

	require.NoError(t, b.Close())
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, channel.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("receive did not unblock after close")
	}
}
