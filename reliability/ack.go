package reliability

import (
	"sync"

	"tokenmesh/channel"
)

// PendingSend tracks one outbound frame awaiting acknowledgement, including
// whatever chunks have been confirmed received so a partial ack only
// triggers retransmission of what's missing (spec §6).
type PendingSend struct {
	Frame    channel.Frame
	Received map[int]bool
}

// MissingChunks returns the chunk indices of Frame not yet confirmed
// received. An unchunked (single-chunk) frame reports index 0 as missing
// until acked.
func (p *PendingSend) MissingChunks() []int {
	total := len(p.Frame.Chunks)
	if total == 0 {
		total = 1
	}
	var missing []int
	for i := 0; i < total; i++ {
		if !p.Received[i] {
			missing = append(missing, i)
		}
	}
	return missing
}

// AckTracker correlates outbound frames with the Acks that arrive for them.
type AckTracker struct {
	mu      sync.Mutex
	pending map[string]*PendingSend
}

// NewAckTracker constructs an empty tracker.
func NewAckTracker() *AckTracker {
	return &AckTracker{pending: make(map[string]*PendingSend)}
}

// Track registers frame as awaiting acknowledgement.
func (t *AckTracker) Track(frame channel.Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[frame.FrameID] = &PendingSend{Frame: frame, Received: make(map[int]bool)}
}

// Observe applies an incoming Ack, marking its received chunks and
// reporting whether the frame is now fully acknowledged (and so may be
// removed from the caller's retransmission set) plus any chunks still
// outstanding.
func (t *AckTracker) Observe(ack channel.Ack) (complete bool, missing []int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pending, ok := t.pending[ack.FrameID]
	if !ok {
		return ack.Success, nil
	}
	if ack.Success && len(ack.ReceivedChunks) == 0 {
		delete(t.pending, ack.FrameID)
		return true, nil
	}
	for _, idx := range ack.ReceivedChunks {
		pending.Received[idx] = true
	}
	missing = pending.MissingChunks()
	if len(missing) == 0 {
		delete(t.pending, ack.FrameID)
		return true, nil
	}
	return false, missing
}

// Pending returns the frame ids still awaiting acknowledgement.
func (t *AckTracker) Pending() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.pending))
	for id := range t.pending {
		ids = append(ids, id)
	}
	return ids
}

// Forget removes frameId from tracking regardless of ack state, e.g. once
// its owning transaction has aborted.
func (t *AckTracker) Forget(frameID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, frameID)
}

// BuildRecoveryRequest produces a RecoveryRequest for the chunks still
// missing from frameId under sessionID, or ok=false if frameId isn't
// tracked or has nothing missing.
func (t *AckTracker) BuildRecoveryRequest(frameID, sessionID string) (req channel.RecoveryRequest, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pending, found := t.pending[frameID]
	if !found {
		return channel.RecoveryRequest{}, false
	}
	missing := pending.MissingChunks()
	if len(missing) == 0 {
		return channel.RecoveryRequest{}, false
	}
	return channel.RecoveryRequest{FrameID: frameID, MissingChunks: missing, SessionID: sessionID}, true
}
