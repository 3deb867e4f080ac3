package txn

import (
	"context"

	coreerrors "tokenmesh/core/errors"
	"tokenmesh/core/events"
	"tokenmesh/core/types"
)

// executeRollback implements the timeout/failure path of spec §4.1 and §7:
// release every token lock this transaction held, reassert the retained
// (never-transformed) tokens as ACTIVE per the RetroPak's rollback
// instructions, and move the transaction to ABORTED. It is idempotent: a
// transaction with no SenderExoPak/SenderRetroPak (aborted before any token
// was ever locked) simply has nothing to release or restore.
func (m *Manager) executeRollback(ctx context.Context, tx *Transaction, reason string, now int64) {
	if tx.SenderExoPak != nil {
		m.locks.release(tx.ID, tokenIDsOf(tx.SenderExoPak.Tokens))
	}
	if tx.ReceiverExoPak != nil {
		m.locks.release(tx.ID, tokenIDsOf(tx.ReceiverExoPak.Tokens))
	}

	restored := 0
	if tx.Role == RoleSender && tx.SenderRetroPak != nil {
		restored += m.restoreRetained(ctx, tx, tx.SenderRetroPak.Tokens)
	}
	if tx.Role == RoleReceiver && tx.ReceiverRetroPak != nil {
		restored += m.restoreRetained(ctx, tx, tx.ReceiverRetroPak.Tokens)
	}

	tx.State = StateAborted
	tx.Timestamps.CompletedAtMs = now

	m.mu.Lock()
	delete(m.pending, tx.ID)
	m.completed[tx.ID] = tx
	m.mu.Unlock()

	m.metrics.RecordTransition(tx.State.String())
	m.metrics.RecordRollback(rollbackTrigger(reason))
	m.emitter.Emit(events.TxRolledBack{TransactionID: tx.ID, TokenCount: restored})
	m.emitter.Emit(events.TxAborted{TransactionID: tx.ID, Code: string(coreerrors.CodeTimeout), Reason: reason})
}

// restoreRetained writes each token in tokens back to the store with State
// ACTIVE and returns how many of those writes succeeded.
func (m *Manager) restoreRetained(ctx context.Context, tx *Transaction, tokens []*types.Token) int {
	restored := 0
	for _, tok := range tokens {
		restore := tok.Clone()
		restore.State = types.StateActive
		if err := m.store.PutToken(ctx, restore); err != nil {
			m.logger.Error("rollback: restore retained token failed", "transactionId", tx.ID, "tokenId", tok.ID, "error", err)
			continue
		}
		restored++
	}
	return restored
}

func rollbackTrigger(reason string) string {
	switch reason {
	case "TIME":
		return "time_gate"
	case "":
		return "timeout"
	default:
		return "validation_failed"
	}
}
