package node

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	coreerrors "tokenmesh/core/errors"
	"tokenmesh/core/types"
	"tokenmesh/core/txn"
	"tokenmesh/crypto"
)

type memStore struct {
	mu     sync.Mutex
	tokens map[types.TokenID]*types.Token
}

func newMemStore() *memStore {
	return &memStore{tokens: make(map[types.TokenID]*types.Token)}
}

func (s *memStore) Portfolio(ctx context.Context, userID string) ([]*types.Token, error) {
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

func (s *memStore) GetToken(ctx context.Context, id types.TokenID) (*types.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[id]
	if !ok {
		return nil, coreerrors.Newf(coreerrors.CodeInternalError, "memstore: token %s not found", id)
	}
	return tok.Clone(), nil
}

func (s *memStore) PutToken(ctx context.Context, tok *types.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tok.ID] = tok.Clone()
	return nil
}

func (s *memStore) WisselToken(ctx context.Context, userID string) (*types.WisselToken, error) {
	return nil, nil
}

func (s *memStore) PutWisselToken(ctx context.Context, w *types.WisselToken) error { return nil }

func (s *memStore) seed(tok *types.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tok.ID] = tok
}

type allowGate struct{}

func (allowGate) Check(ctx context.Context) error { return nil }

func TestDispatcherHandlesFullFourPacketFlow(t *testing.T) {
	senderStore := newMemStore()
	receiverStore := newMemStore()

	senderKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	receiverKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	senderPub := senderKey.PubKey().String()
	receiverPub := receiverKey.PubKey().String()

	now := func() int64 { return 1_700_000_000_000 }
	senderMgr := txn.NewManager(senderPub, senderKey, senderStore, nil, allowGate{}, nil, nil, now)
	receiverMgr := txn.NewManager(receiverPub, receiverKey, receiverStore, nil, allowGate{}, nil, nil, now)

	tok, err := types.NewToken(types.TokenID("nyc-batch1-10-0"), types.Denom10, types.TokenRegular, senderPub, 1000)
	require.NoError(t, err)
	senderStore.seed(tok)

	senderDispatch := New(nil, senderMgr, nil, nil, nil, nil)
	receiverDispatch := New(nil, receiverMgr, nil, nil, nil, nil)

	ctx := context.Background()

	initPkt, err := senderMgr.InitiateTransaction(ctx, "tx-1", receiverPub, types.AmountFromUnits(10), "gift", txn.Constraints{})
	require.NoError(t, err)
	initRaw, err := encode(KindInitiation, initPkt)
	require.NoError(t, err)

	respRaw, err := receiverDispatch.handle(ctx, initRaw)
	require.NoError(t, err)
	var respEnv envelope
	require.NoError(t, json.Unmarshal(respRaw, &respEnv))
	require.Equal(t, KindResponse, respEnv.Kind)

	confirmRaw, err := senderDispatch.handle(ctx, respRaw)
	require.NoError(t, err)
	var confirmEnv envelope
	require.NoError(t, json.Unmarshal(confirmRaw, &confirmEnv))
	require.Equal(t, KindConfirmation, confirmEnv.Kind)

	ackRaw, err := receiverDispatch.handle(ctx, confirmRaw)
	require.NoError(t, err)
	var ackEnv envelope
	require.NoError(t, json.Unmarshal(ackRaw, &ackEnv))
	require.Equal(t, KindAcknowledgement, ackEnv.Kind)

	finalRaw, err := senderDispatch.handle(ctx, ackRaw)
	require.NoError(t, err)
	require.Nil(t, finalRaw)

	senderTx, ok := senderMgr.GetTransaction("tx-1")
	require.True(t, ok)
	require.Equal(t, txn.StateCommitted, senderTx.State)

	receiverTx, ok := receiverMgr.GetTransaction("tx-1")
	require.True(t, ok)
	require.Equal(t, txn.StateCommitted, receiverTx.State)
}

func TestDispatcherRejectsUnknownKind(t *testing.T) {
	d := New(nil, txn.NewManager("p", nil, newMemStore(), nil, allowGate{}, nil, nil, func() int64 { return 0 }), nil, nil, nil, nil)
	raw, err := json.Marshal(envelope{Kind: "bogus", Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)
	_, err = d.handle(context.Background(), raw)
	require.Error(t, err)
}
