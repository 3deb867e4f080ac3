package txn

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	coreerrors "tokenmesh/core/errors"
	"tokenmesh/core/types"
	"tokenmesh/crypto"
)

// mockStore is an in-memory core/store.TokenStore, mirroring the shape of
// the teacher's hand-rolled mock chain state used in its escrow engine
// tests.
type mockStore struct {
	mu      sync.Mutex
	tokens  map[types.TokenID]*types.Token
	wissels map[string]*types.WisselToken
}

func newMockStore() *mockStore {
	return &mockStore{
		tokens:  make(map[types.TokenID]*types.Token),
		wissels: make(map[string]*types.WisselToken),
	}
}

func (s *mockStore) Portfolio(ctx context.Context, userID string) ([]*types.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Token
	for _, tok := range s.tokens {
		if tok.Telomere != nil && tok.Telomere.OwnerPublicKey == userID {
			out = append(out, tok.Clone())
		}
	}
	return out, nil
}

func (s *mockStore) GetToken(ctx context.Context, id types.TokenID) (*types.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[id]
	if !ok {
		return nil, coreerrors.Newf(coreerrors.CodeInternalError, "mockstore: token %s not found", id)
	}
	return tok.Clone(), nil
}

func (s *mockStore) PutToken(ctx context.Context, tok *types.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tok.ID] = tok.Clone()
	return nil
}

func (s *mockStore) WisselToken(ctx context.Context, userID string) (*types.WisselToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wissels[userID], nil
}

func (s *mockStore) PutWisselToken(ctx context.Context, w *types.WisselToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wissels[w.Telomere.OwnerPublicKey] = w
	return nil
}

func (s *mockStore) seed(tok *types.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tok.ID] = tok
}

type allowGate struct{}

func (allowGate) Check(ctx context.Context) error { return nil }

type denyGate struct{}

func (denyGate) Check(ctx context.Context) error {
	return coreerrors.WithReason(coreerrors.CodePeerRejected, "TIME", nil)
}

func newParty(t *testing.T) (*crypto.PrivateKey, string) {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return key, key.PubKey().String()
}

func seedTokens(t *testing.T, store *mockStore, owner string, denoms ...types.Denomination) []*types.Token {
	t.Helper()
	var out []*types.Token
	for i, d := range denoms {
		id := types.TokenID(string(rune('a'+i)) + "-batch1-" + d.String() + "-0")
		tok, err := types.NewToken(id, d, types.TokenRegular, owner, 1000)
		require.NoError(t, err)
		store.seed(tok)
		out = append(out, tok)
	}
	return out
}

func newManagerPair(t *testing.T) (senderStore, receiverStore *mockStore, senderKey, receiverKey *crypto.PrivateKey, senderPub, receiverPub string, senderMgr, receiverMgr *Manager) {
	t.Helper()
	senderStore = newMockStore()
	receiverStore = newMockStore()
	senderKey, senderPub = newParty(t)
	receiverKey, receiverPub = newParty(t)

	clockTime := int64(1_000_000)
	now := func() int64 { return clockTime }

	senderMgr = NewManager(senderPub, senderKey, senderStore, nil, allowGate{}, nil, nil, now)
	receiverMgr = NewManager(receiverPub, receiverKey, receiverStore, nil, allowGate{}, nil, nil, now)
	return
}

func TestHappyPathSingleDenominationTransfer(t *testing.T) {
	senderStore, receiverStore, _, _, senderPub, receiverPub, senderMgr, receiverMgr := newManagerPair(t)
	_ = receiverPub

	for i := 0; i < 5; i++ {
		id := types.TokenID("nyc-batch1-10-" + string(rune('0'+i)))
		tok, err := types.NewToken(id, types.Denom10, types.TokenRegular, senderPub, 1000)
		require.NoError(t, err)
		senderStore.seed(tok)
	}

	ctx := context.Background()
	initPkt, err := senderMgr.InitiateTransaction(ctx, "tx-1", receiverPub, types.AmountFromUnits(30), "gift", Constraints{})
	require.NoError(t, err)
	require.Len(t, initPkt.SenderTokens, 5)

	respPkt, err := receiverMgr.RespondToTransaction(ctx, initPkt)
	require.NoError(t, err)
	require.True(t, respPkt.Accepted)
	require.Len(t, respPkt.SenderExoPak.Tokens, 3)

	confirmPkt, err := senderMgr.ProcessResponse(ctx, respPkt)
	require.NoError(t, err)
	require.Len(t, confirmPkt.SenderExoPak.Tokens, 3)
	for _, tok := range confirmPkt.SenderExoPak.Tokens {
		require.Equal(t, receiverPub, tok.Telomere.OwnerPublicKey)
		require.Equal(t, senderPub, tok.Telomere.PreviousOwnerPublicKey)
	}

	ackPkt, err := receiverMgr.ProcessConfirmation(ctx, confirmPkt)
	require.NoError(t, err)

	require.NoError(t, senderMgr.FinalizeTransaction(ctx, ackPkt))

	senderTx, ok := senderMgr.GetTransaction("tx-1")
	require.True(t, ok)
	require.Equal(t, StateCommitted, senderTx.State)
	require.NotEmpty(t, senderTx.Proofs.AtomicCommitmentProof)

	receiverTx, ok := receiverMgr.GetTransaction("tx-1")
	require.True(t, ok)
	require.Equal(t, StateCommitted, receiverTx.State)

	for _, tok := range confirmPkt.SenderExoPak.Tokens {
		got, err := receiverStore.GetToken(ctx, tok.ID)
		require.NoError(t, err)
		require.Equal(t, receiverPub, got.Telomere.OwnerPublicKey)
	}
}

func TestBidirectionalTransferSettlesBothDirections(t *testing.T) {
	senderStore, receiverStore, _, _, senderPub, receiverPub, senderMgr, receiverMgr := newManagerPair(t)

	seedTokens(t, senderStore, senderPub, types.Denom10, types.Denom10, types.Denom10)
	receiverTokens := seedTokens(t, receiverStore, receiverPub, types.Denom5)

	ctx := context.Background()
	initPkt, err := senderMgr.InitiateTransaction(ctx, "tx-1", receiverPub, types.AmountFromUnits(20), "swap",
		Constraints{ReverseAmount: types.AmountFromUnits(5)})
	require.NoError(t, err)

	respPkt, err := receiverMgr.RespondToTransaction(ctx, initPkt)
	require.NoError(t, err)
	require.True(t, respPkt.Accepted)
	require.Len(t, respPkt.ReceiverExoPak.Tokens, 1)
	require.Equal(t, senderPub, respPkt.ReceiverExoPak.Tokens[0].Telomere.OwnerPublicKey)
	require.Equal(t, receiverTokens[0].ID, respPkt.ReceiverExoPak.Tokens[0].ID)

	confirmPkt, err := senderMgr.ProcessResponse(ctx, respPkt)
	require.NoError(t, err)

	ackPkt, err := receiverMgr.ProcessConfirmation(ctx, confirmPkt)
	require.NoError(t, err)

	require.NoError(t, senderMgr.FinalizeTransaction(ctx, ackPkt))

	got, err := senderStore.GetToken(ctx, receiverTokens[0].ID)
	require.NoError(t, err)
	require.Equal(t, senderPub, got.Telomere.OwnerPublicKey)

	got, err = receiverStore.GetToken(ctx, receiverTokens[0].ID)
	require.NoError(t, err)
	require.Equal(t, senderPub, got.Telomere.OwnerPublicKey)
}

func TestDoubleSpendPreventionAtResponseTime(t *testing.T) {
	senderStore, _, _, _, senderPub, receiverPub, senderMgr, receiverMgr := newManagerPair(t)

	tok := seedTokens(t, senderStore, senderPub, types.Denom10)[0]
	ctx := context.Background()

	initPkt, err := senderMgr.InitiateTransaction(ctx, "tx-1", receiverPub, types.AmountFromUnits(10), "p", Constraints{})
	require.NoError(t, err)
	resp1, err := receiverMgr.RespondToTransaction(ctx, initPkt)
	require.NoError(t, err)
	require.True(t, resp1.Accepted)

	_, err = senderMgr.ProcessResponse(ctx, resp1)
	require.NoError(t, err)

	// Second transaction proposes the same already-locked token.
	init2, err := senderMgr.InitiateTransaction(ctx, "tx-2", receiverPub, types.AmountFromUnits(10), "p", Constraints{})
	require.NoError(t, err)
	resp2, err := receiverMgr.RespondToTransaction(ctx, init2)
	require.NoError(t, err)
	require.True(t, resp2.Accepted)
	require.Equal(t, tok.ID, resp2.SenderExoPak.Tokens[0].ID)

	_, err = senderMgr.ProcessResponse(ctx, resp2)
	require.Error(t, err)
	code, ok := coreerrors.CodeOf(err)
	require.True(t, ok)
	require.Equal(t, coreerrors.CodeInsufficientTokens, code)
}

func TestBadTelomereDetectedAtResponseTime(t *testing.T) {
	senderStore, _, senderKey, _, senderPub, receiverPub, senderMgr, receiverMgr := newManagerPair(t)
	_ = senderKey

	tok := seedTokens(t, senderStore, senderPub, types.Denom10)[0]
	tok.Telomere.OwnershipHistory = []types.OwnershipRecord{{Owner: "someone", TransferMethod: "bogus"}}
	tok.Telomere.TransferCount = 1
	senderStore.seed(tok)

	ctx := context.Background()
	initPkt, err := senderMgr.InitiateTransaction(ctx, "tx-1", receiverPub, types.AmountFromUnits(10), "p", Constraints{})
	require.NoError(t, err)

	respPkt, err := receiverMgr.RespondToTransaction(ctx, initPkt)
	require.NoError(t, err)
	require.False(t, respPkt.Accepted)
	require.Contains(t, respPkt.Reason, "bad telomere")
}

func TestTimeIntegrityVetoAbortsBeforeCommit(t *testing.T) {
	senderStore, _, senderKey, receiverKey, senderPub, receiverPub, _, _ := newManagerPair(t)

	now := func() int64 { return 5_000_000 }
	senderMgr := NewManager(senderPub, senderKey, senderStore, nil, denyGate{}, nil, nil, now)
	receiverStore := newMockStore()
	receiverMgr := NewManager(receiverPub, receiverKey, receiverStore, nil, allowGate{}, nil, nil, now)

	seedTokens(t, senderStore, senderPub, types.Denom10)
	ctx := context.Background()

	initPkt, err := senderMgr.InitiateTransaction(ctx, "tx-1", receiverPub, types.AmountFromUnits(10), "p", Constraints{})
	require.NoError(t, err)
	respPkt, err := receiverMgr.RespondToTransaction(ctx, initPkt)
	require.NoError(t, err)
	require.True(t, respPkt.Accepted)

	_, err = senderMgr.ProcessResponse(ctx, respPkt)
	require.Error(t, err)
	code, ok := coreerrors.CodeOf(err)
	require.True(t, ok)
	require.Equal(t, coreerrors.CodePeerRejected, code)

	tx, ok := senderMgr.GetTransaction("tx-1")
	require.True(t, ok)
	require.Equal(t, StateAborted, tx.State)
}

func TestExpireTimeoutsRollsBackAndRestoresRetainedTokens(t *testing.T) {
	senderStore, _, senderKey, receiverKey, senderPub, receiverPub, _, _ := newManagerPair(t)

	clockTime := int64(1_000_000)
	now := func() int64 { return clockTime }
	senderMgr := NewManager(senderPub, senderKey, senderStore, nil, allowGate{}, nil, nil, now)
	receiverStore := newMockStore()
	receiverMgr := NewManager(receiverPub, receiverKey, receiverStore, nil, allowGate{}, nil, nil, now)

	tokens := seedTokens(t, senderStore, senderPub, types.Denom10, types.Denom10)
	ctx := context.Background()

	initPkt, err := senderMgr.InitiateTransaction(ctx, "tx-1", receiverPub, types.AmountFromUnits(10), "p", Constraints{MaxDurationMs: 1000})
	require.NoError(t, err)
	respPkt, err := receiverMgr.RespondToTransaction(ctx, initPkt)
	require.NoError(t, err)

	confirmPkt, err := senderMgr.ProcessResponse(ctx, respPkt)
	require.NoError(t, err)
	_ = confirmPkt

	clockTime = 1_000_000 + 1001
	expired := senderMgr.ExpireTimeouts(ctx, clockTime)
	require.Equal(t, 1, expired)

	tx, ok := senderMgr.GetTransaction("tx-1")
	require.True(t, ok)
	require.Equal(t, StateAborted, tx.State)

	retained, err := senderStore.GetToken(ctx, tokens[1].ID)
	require.NoError(t, err)
	require.Equal(t, types.StateActive, retained.State)
}
