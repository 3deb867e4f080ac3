package txn

import (
	"sort"
	"sync"

	"tokenmesh/core/types"
)

// tokenLocks is the per-token exclusive lock table described in spec §5:
// a token is locked the moment it is placed into an ExoPak or RetroPak, and
// released at COMMITTED or ABORTED. Locks are always acquired in sorted
// token-id order so two transactions racing over overlapping tokens cannot
// deadlock each other.
type tokenLocks struct {
	mu    sync.Mutex
	heldBy map[types.TokenID]string // tokenID -> transactionID
}

func newTokenLocks() *tokenLocks {
	return &tokenLocks{heldBy: make(map[types.TokenID]string)}
}

// acquire locks every id for transactionID, all-or-nothing. On partial
// conflict it releases anything it had already taken before returning the
// first conflicting id.
func (l *tokenLocks) acquire(transactionID string, ids []types.TokenID) (conflict types.TokenID, ok bool) {
	sorted := append([]types.TokenID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	l.mu.Lock()
	defer l.mu.Unlock()

	taken := make([]types.TokenID, 0, len(sorted))
	for _, id := range sorted {
		if owner, locked := l.heldBy[id]; locked && owner != transactionID {
			for _, t := range taken {
				delete(l.heldBy, t)
			}
			return id, false
		}
	}
	for _, id := range sorted {
		l.heldBy[id] = transactionID
		taken = append(taken, id)
	}
	return "", true
}

// release drops every lock held by transactionID among ids.
func (l *tokenLocks) release(transactionID string, ids []types.TokenID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range ids {
		if l.heldBy[id] == transactionID {
			delete(l.heldBy, id)
		}
	}
}

func tokenIDsOf(tokens []*types.Token) []types.TokenID {
	ids := make([]types.TokenID, len(tokens))
	for i, t := range tokens {
		ids[i] = t.ID
	}
	return ids
}
