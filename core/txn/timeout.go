package txn

import "context"

// ExpireTimeouts scans pending transactions for those whose timeoutAtMs has
// passed while still in an abortable state and rolls each of them back
// (spec §4.1 Timeouts). Callers are expected to invoke this periodically
// (e.g. from a ticker) since the core has no goroutine of its own.
func (m *Manager) ExpireTimeouts(ctx context.Context, nowMs int64) int {
	m.mu.Lock()
	var expired []*Transaction
	for _, tx := range m.pending {
		if tx.State.Abortable() && nowMs >= tx.Timestamps.TimeoutAtMs {
			expired = append(expired, tx)
		}
	}
	m.mu.Unlock()

	for _, tx := range expired {
		m.executeRollback(ctx, tx, "", nowMs)
	}
	return len(expired)
}
