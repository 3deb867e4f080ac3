package txn

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	coreerrors "tokenmesh/core/errors"
	"tokenmesh/core/events"
	"tokenmesh/core/pak"
	"tokenmesh/core/store"
	"tokenmesh/core/telomere"
	"tokenmesh/core/types"
	"tokenmesh/core/vectorclock"
	"tokenmesh/crypto"
	"tokenmesh/observability"
)

var tracer = otel.Tracer("tokenmesh/core/txn")

// Manager owns one party's view of every in-flight and recently-completed
// transaction. A node runs exactly one Manager per local identity; a
// transaction between two parties is tracked by a Manager instance on each
// side, each holding that side's own Transaction record and role.
type Manager struct {
	selfPub string
	selfKey *crypto.PrivateKey

	store        store.TokenStore
	attestations store.AttestationStore
	gate         timeGate
	emitter      events.Emitter
	logger       *slog.Logger
	metrics      *observability.TxnMetrics
	now          func() int64

	locks *tokenLocks

	mu        sync.Mutex
	pending   map[string]*Transaction
	completed map[string]*Transaction
}

// timeGate is the narrow interface Manager needs from core/timegate,
// declared locally so this package does not have to import timegate just to
// name its Gate type in a field (both satisfy it; core/timegate.Gate is the
// concrete collaborator wired in by callers).
type timeGate interface {
	Check(ctx context.Context) error
}

// NewManager constructs a Manager for the local party identified by selfPub
// (a bech32 party address, matching (*crypto.PublicKey).String()).
func NewManager(selfPub string, selfKey *crypto.PrivateKey, tokenStore store.TokenStore, attestations store.AttestationStore, gate timeGate, emitter events.Emitter, logger *slog.Logger, now func() int64) *Manager {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		selfPub:      selfPub,
		selfKey:      selfKey,
		store:        tokenStore,
		attestations: attestations,
		gate:         gate,
		emitter:      emitter,
		logger:       logger.With("component", "txn.Manager", "party", selfPub),
		metrics:      observability.Txn(),
		now:          now,
		locks:        newTokenLocks(),
		pending:      make(map[string]*Transaction),
		completed:    make(map[string]*Transaction),
	}
}

// GetTransaction returns a snapshot of a transaction by id, checking pending
// transactions before completed ones.
func (m *Manager) GetTransaction(transactionID string) (*Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tx, ok := m.pending[transactionID]; ok {
		return tx.Clone(), true
	}
	if tx, ok := m.completed[transactionID]; ok {
		return tx.Clone(), true
	}
	return nil, false
}

// InitiateTransaction is the sender-side entry point: packet 1 of the
// protocol. It snapshots the sender's candidate portfolio and moves the
// transaction to INITIATED.
func (m *Manager) InitiateTransaction(ctx context.Context, transactionID, receiverPub string, amount types.Amount, purpose string, constraints Constraints) (*InitiationPacket, error) {
	ctx, span := tracer.Start(ctx, "txn.InitiateTransaction")
	defer span.End()

	if transactionID == "" {
		transactionID = uuid.NewString()
	}
	if constraints.MaxDurationMs <= 0 {
		constraints.MaxDurationMs = DefaultMaxDurationMs
	}

	m.mu.Lock()
	if _, exists := m.pending[transactionID]; exists {
		m.mu.Unlock()
		return nil, coreerrors.New(coreerrors.CodeInvalidState, coreerrors.ErrDuplicateInitiation)
	}
	m.mu.Unlock()

	portfolio, err := m.store.Portfolio(ctx, m.selfPub)
	if err != nil {
		return nil, coreerrors.Newf(coreerrors.CodeInternalError, "txn: load sender portfolio: %w", err)
	}
	wissel, err := m.store.WisselToken(ctx, m.selfPub)
	if err != nil {
		return nil, coreerrors.Newf(coreerrors.CodeInternalError, "txn: load sender wissel token: %w", err)
	}

	now := m.now()
	tx := &Transaction{
		ID:   transactionID,
		Role: RoleSender,
		State: StateInitiated,
		Context: Context{
			SenderPub:   m.selfPub,
			ReceiverPub: receiverPub,
			Amount:      amount,
			Purpose:     purpose,
			Constraints: constraints,
		},
		Timestamps: Timestamps{
			CreatedAtMs:   now,
			InitiatedAtMs: now,
			TimeoutAtMs:   now + constraints.MaxDurationMs,
		},
		senderPortfolioSnapshot: portfolio,
	}

	m.mu.Lock()
	m.pending[transactionID] = tx
	m.mu.Unlock()

	m.metrics.RecordTransition(tx.State.String())
	m.emitter.Emit(events.TxInitiated{
		TransactionID: transactionID,
		Sender:        m.selfPub,
		Receiver:      receiverPub,
		Amount:        amount.Units(),
	})
	span.SetAttributes(attribute.String("transaction.id", transactionID))

	return &InitiationPacket{
		TransactionID: transactionID,
		Context: Context{
			SenderPub:   m.selfPub,
			Amount:      amount,
			Purpose:     purpose,
			Constraints: constraints,
		},
		SenderTokens:      portfolio,
		SenderWisselToken: wissel,
		TimestampMs:       now,
	}, nil
}

// RespondToTransaction is the receiver-side entry point: it validates the
// sender's offered candidate tokens, runs the vector-clock optimizer to pick
// which of them to accept, and returns packet 2. Scenario 5 (bad telomere)
// and scenario 2 (insufficient tokens) both abort here, before any token is
// locked.
func (m *Manager) RespondToTransaction(ctx context.Context, pkt *InitiationPacket) (*ResponsePacket, error) {
	ctx, span := tracer.Start(ctx, "txn.RespondToTransaction", trace.WithAttributes(attribute.String("transaction.id", pkt.TransactionID)))
	defer span.End()

	now := m.now()

	for i, tok := range pkt.SenderTokens {
		status := telomere.Verify(tok.ID, tok.Telomere)
		if status != types.ChainOfCustodyVerified {
			m.emitter.Emit(events.TelomereVerificationFailed{TokenID: string(tok.ID), AtIndex: i})
			m.recordAborted(pkt.TransactionID, RoleReceiver, coreerrors.CodeValidationFailed, "bad telomere", now)
			return &ResponsePacket{TransactionID: pkt.TransactionID, Accepted: false, Reason: "VALIDATION_FAILED: bad telomere", TimestampMs: now}, nil
		}
	}

	receiverPortfolio, err := m.store.Portfolio(ctx, m.selfPub)
	if err != nil {
		return nil, coreerrors.Newf(coreerrors.CodeInternalError, "txn: load receiver portfolio: %w", err)
	}
	receiverWissel, err := m.store.WisselToken(ctx, m.selfPub)
	if err != nil {
		return nil, coreerrors.Newf(coreerrors.CodeInternalError, "txn: load receiver wissel token: %w", err)
	}
	receiverClock := vectorclock.Build(m.selfPub, countsByDenom(receiverPortfolio), now)
	senderClock := vectorclock.Build(pkt.Context.SenderPub, countsByDenom(pkt.SenderTokens), now)

	senderWisselIssuance := ""
	if pkt.SenderWisselToken != nil {
		senderWisselIssuance = pkt.SenderWisselToken.IssuanceID
	}
	wisselSpendable := pkt.SenderWisselToken != nil && pkt.SenderWisselToken.IsSpendable(countActive(pkt.SenderTokens, senderWisselIssuance))

	selection, err := vectorclock.Optimize(pkt.SenderTokens, pkt.Context.Amount, senderClock, receiverClock, pkt.SenderWisselToken, wisselSpendable)
	if err != nil {
		code, _ := coreerrors.CodeOf(err)
		m.recordAborted(pkt.TransactionID, RoleReceiver, code, err.Error(), now)
		return &ResponsePacket{TransactionID: pkt.TransactionID, Accepted: false, Reason: string(code), TimestampMs: now}, nil
	}

	proposal := &types.ExoPak{ID: uuid.NewString(), Status: types.PackageCreated, Tokens: selection.Tokens}

	// Package computation (spec §4.1): receiverExoPak.tokens = [] for a
	// one-way transfer; otherwise the symmetric optimization runs over the
	// receiver's own portfolio for ReverseAmount, exactly as ProcessResponse
	// runs it for the sender's side, and the receiver transforms and locks
	// its own selected tokens immediately since (unlike the sender's side)
	// the receiver needs no further round trip to commit to them.
	var receiverExoPak *types.ExoPak
	var receiverRetroPak *types.RetroPak
	if pkt.Context.Constraints.ReverseAmount > 0 {
		receiverWisselIssuance := ""
		if receiverWissel != nil {
			receiverWisselIssuance = receiverWissel.IssuanceID
		}
		receiverWisselSpendable := receiverWissel != nil && receiverWissel.IsSpendable(countActive(receiverPortfolio, receiverWisselIssuance))

		reverseSelection, err := vectorclock.Optimize(receiverPortfolio, pkt.Context.Constraints.ReverseAmount, receiverClock, senderClock, receiverWissel, receiverWisselSpendable)
		if err != nil {
			code, _ := coreerrors.CodeOf(err)
			m.recordAborted(pkt.TransactionID, RoleReceiver, code, err.Error(), now)
			return &ResponsePacket{TransactionID: pkt.TransactionID, Accepted: false, Reason: string(code), TimestampMs: now}, nil
		}
		reverseIDs := tokenIDsOf(reverseSelection.Tokens)
		if conflict, ok := m.locks.acquire(pkt.TransactionID, reverseIDs); !ok {
			m.metrics.RecordLockConflict("receiver")
			m.recordAborted(pkt.TransactionID, RoleReceiver, coreerrors.CodeInsufficientTokens, fmt.Sprintf("token %s locked by another transaction", conflict), now)
			return &ResponsePacket{TransactionID: pkt.TransactionID, Accepted: false, Reason: string(coreerrors.CodeInsufficientTokens), TimestampMs: now}, nil
		}

		transformedReverse := make([]*types.Token, 0, len(reverseSelection.Tokens))
		for _, tok := range reverseSelection.Tokens {
			clone := tok.Clone()
			if err := telomere.Transform(clone, pkt.Context.SenderPub, pkt.TransactionID, m.selfKey, now); err != nil {
				m.locks.release(pkt.TransactionID, reverseIDs)
				m.recordAborted(pkt.TransactionID, RoleReceiver, coreerrors.CodeInternalError, "telomere transform failed", now)
				return nil, coreerrors.New(coreerrors.CodeInternalError, err)
			}
			transformedReverse = append(transformedReverse, clone)
		}

		receiverExoPak, err = pak.BuildExoPak(uuid.NewString(), transformedReverse, "OUT", pkt.TransactionID, m.selfKey)
		if err != nil {
			m.locks.release(pkt.TransactionID, reverseIDs)
			return nil, coreerrors.New(coreerrors.CodeInternalError, err)
		}
		receiverRetained := pak.Split(receiverPortfolio, reverseSelection.Tokens)
		receiverRetroPak, err = pak.BuildRetroPak(uuid.NewString(), receiverRetained, pkt.Context.Constraints.MaxDurationMs, m.selfKey)
		if err != nil {
			m.locks.release(pkt.TransactionID, reverseIDs)
			return nil, coreerrors.New(coreerrors.CodeInternalError, err)
		}
	} else {
		receiverExoPak, err = pak.BuildExoPak(uuid.NewString(), nil, "OUT", pkt.TransactionID, m.selfKey)
		if err != nil {
			return nil, coreerrors.New(coreerrors.CodeInternalError, err)
		}
	}

	tx := &Transaction{
		ID:   pkt.TransactionID,
		Role: RoleReceiver,
		State: StatePrepared,
		Context: Context{
			SenderPub:   pkt.Context.SenderPub,
			ReceiverPub: m.selfPub,
			Amount:      pkt.Context.Amount,
			Purpose:     pkt.Context.Purpose,
			Constraints: pkt.Context.Constraints,
		},
		SenderExoPak:     proposal,
		ReceiverExoPak:   receiverExoPak,
		ReceiverRetroPak: receiverRetroPak,
		Timestamps: Timestamps{
			CreatedAtMs:   now,
			InitiatedAtMs: pkt.TimestampMs,
			PreparedAtMs:  now,
			TimeoutAtMs:   pkt.TimestampMs + pkt.Context.Constraints.MaxDurationMs,
		},
		senderPortfolioSnapshot:   pkt.SenderTokens,
		receiverPortfolioSnapshot: receiverPortfolio,
	}

	m.mu.Lock()
	m.pending[pkt.TransactionID] = tx
	m.mu.Unlock()
	m.metrics.RecordTransition(tx.State.String())

	return &ResponsePacket{
		TransactionID:  pkt.TransactionID,
		Accepted:       true,
		SenderExoPak:   proposal,
		ReceiverExoPak: receiverExoPak,
		TimestampMs:    now,
	}, nil
}

// ProcessResponse is the sender-side handler for packet 2. On acceptance it
// locks the selected tokens (scenario 4: INSUFFICIENT_TOKENS if any are
// already committed to another pending transaction), telomere-transforms
// them to the receiver, checks the time-integrity gate, and signs the
// sender's commitment proof for packet 3.
func (m *Manager) ProcessResponse(ctx context.Context, pkt *ResponsePacket) (*ConfirmationPacket, error) {
	ctx, span := tracer.Start(ctx, "txn.ProcessResponse", trace.WithAttributes(attribute.String("transaction.id", pkt.TransactionID)))
	defer span.End()

	tx, err := m.mustPending(pkt.TransactionID, StateInitiated)
	if err != nil {
		return nil, err
	}
	now := m.now()

	if !pkt.Accepted {
		m.completeAborted(tx, coreerrors.CodePeerRejected, pkt.Reason, now)
		return nil, coreerrors.WithReason(coreerrors.CodePeerRejected, pkt.Reason, fmt.Errorf("txn: receiver rejected transaction %s", tx.ID))
	}

	selectedIDs := tokenIDsOf(pkt.SenderExoPak.Tokens)
	if conflict, ok := m.locks.acquire(tx.ID, selectedIDs); !ok {
		m.metrics.RecordLockConflict("sender")
		m.completeAborted(tx, coreerrors.CodeInsufficientTokens, fmt.Sprintf("token %s locked by another transaction", conflict), now)
		return nil, coreerrors.Newf(coreerrors.CodeInsufficientTokens, "txn: token %s already locked", conflict)
	}

	byID := make(map[types.TokenID]*types.Token, len(tx.senderPortfolioSnapshot))
	for _, t := range tx.senderPortfolioSnapshot {
		byID[t.ID] = t
	}

	transformed := make([]*types.Token, 0, len(selectedIDs))
	for _, id := range selectedIDs {
		original, ok := byID[id]
		if !ok {
			m.locks.release(tx.ID, selectedIDs)
			m.completeAborted(tx, coreerrors.CodeInternalError, "selected token missing from snapshot", now)
			return nil, coreerrors.Newf(coreerrors.CodeInternalError, "txn: selected token %s not in sender snapshot", id)
		}
		clone := original.Clone()
		if err := telomere.Transform(clone, tx.Context.ReceiverPub, tx.ID, m.selfKey, now); err != nil {
			m.locks.release(tx.ID, selectedIDs)
			m.completeAborted(tx, coreerrors.CodeInternalError, "telomere transform failed", now)
			return nil, coreerrors.New(coreerrors.CodeInternalError, err)
		}
		transformed = append(transformed, clone)
	}

	senderExoPak, err := pak.BuildExoPak(uuid.NewString(), transformed, "OUT", tx.ID, m.selfKey)
	if err != nil {
		m.locks.release(tx.ID, selectedIDs)
		return nil, coreerrors.New(coreerrors.CodeInternalError, err)
	}
	retained := pak.Split(tx.senderPortfolioSnapshot, pkt.SenderExoPak.Tokens)
	senderRetroPak, err := pak.BuildRetroPak(uuid.NewString(), retained, tx.Context.Constraints.MaxDurationMs, m.selfKey)
	if err != nil {
		m.locks.release(tx.ID, selectedIDs)
		return nil, coreerrors.New(coreerrors.CodeInternalError, err)
	}

	if err := m.gate.Check(ctx); err != nil {
		m.locks.release(tx.ID, selectedIDs)
		m.completeAborted(tx, coreerrors.CodePeerRejected, "TIME", now)
		return nil, err
	}

	digest := commitDigest(tx.ID, pak.MerkleRoot(senderExoPak.Tokens), pak.MerkleRoot(pkt.ReceiverExoPak.Tokens), tx.Context.SenderPub, tx.Context.ReceiverPub)
	proof, err := m.selfKey.Sign(digest)
	if err != nil {
		m.locks.release(tx.ID, selectedIDs)
		return nil, coreerrors.New(coreerrors.CodeInternalError, err)
	}

	tx.SenderExoPak = senderExoPak
	tx.SenderRetroPak = senderRetroPak
	tx.ReceiverExoPak = pkt.ReceiverExoPak
	tx.State = StatePrepared
	tx.Timestamps.PreparedAtMs = now
	tx.Proofs.SenderCommitmentProof = proof
	m.metrics.RecordTransition(tx.State.String())

	return &ConfirmationPacket{
		TransactionID:         tx.ID,
		SenderExoPak:          senderExoPak,
		SenderCommitmentProof: proof,
		TimestampMs:           now,
	}, nil
}

// ProcessConfirmation is the receiver-side handler for packet 3. It verifies
// the sender's commitment proof against the package roots it already
// proposed, adopts the transformed tokens into its own store, signs the
// receiver's commitment proof, and commits — the receiver has nothing left
// to wait for once the Acknowledgement (packet 4) is away.
func (m *Manager) ProcessConfirmation(ctx context.Context, pkt *ConfirmationPacket) (*AcknowledgementPacket, error) {
	ctx, span := tracer.Start(ctx, "txn.ProcessConfirmation", trace.WithAttributes(attribute.String("transaction.id", pkt.TransactionID)))
	defer span.End()

	tx, err := m.mustPending(pkt.TransactionID, StatePrepared)
	if err != nil {
		return nil, err
	}
	now := m.now()

	senderRoot := pak.MerkleRoot(tx.SenderExoPak.Tokens)
	receiverRoot := pak.MerkleRoot(tx.ReceiverExoPak.Tokens)
	digest := commitDigest(tx.ID, senderRoot, receiverRoot, tx.Context.SenderPub, tx.Context.ReceiverPub)
	if !crypto.VerifyByAddress(tx.Context.SenderPub, digest, pkt.SenderCommitmentProof) {
		m.completeAborted(tx, coreerrors.CodeValidationFailed, "sender commitment proof invalid", now)
		return nil, coreerrors.New(coreerrors.CodeValidationFailed, fmt.Errorf("txn: sender commitment proof failed verification for %s", tx.ID))
	}

	for i, tok := range pkt.SenderExoPak.Tokens {
		if telomere.Verify(tok.ID, tok.Telomere) != types.ChainOfCustodyVerified {
			m.emitter.Emit(events.TelomereVerificationFailed{TokenID: string(tok.ID), AtIndex: i})
			m.completeAborted(tx, coreerrors.CodeValidationFailed, "bad telomere on settlement", now)
			return nil, coreerrors.New(coreerrors.CodeValidationFailed, fmt.Errorf("txn: settlement token %s failed chain-of-custody verification", tok.ID))
		}
	}

	tx.State = StateCommitting
	m.metrics.RecordTransition(tx.State.String())

	if err := m.gate.Check(ctx); err != nil {
		m.executeRollback(ctx, tx, "TIME", now)
		return nil, err
	}

	digest2 := commitDigest(tx.ID, senderRoot, receiverRoot, tx.Context.ReceiverPub, tx.Context.SenderPub)
	proof, err := m.selfKey.Sign(digest2)
	if err != nil {
		return nil, coreerrors.New(coreerrors.CodeInternalError, err)
	}

	for _, tok := range pkt.SenderExoPak.Tokens {
		if err := m.store.PutToken(ctx, tok); err != nil {
			return nil, coreerrors.Newf(coreerrors.CodeInternalError, "txn: persist settled token %s: %w", tok.ID, err)
		}
	}

	if len(tx.ReceiverExoPak.Tokens) > 0 {
		for _, tok := range tx.ReceiverExoPak.Tokens {
			if err := m.store.PutToken(ctx, tok); err != nil {
				return nil, coreerrors.Newf(coreerrors.CodeInternalError, "txn: persist settled reverse token %s: %w", tok.ID, err)
			}
		}
		m.locks.release(tx.ID, tokenIDsOf(tx.ReceiverExoPak.Tokens))
	}

	tx.SenderExoPak = pkt.SenderExoPak
	tx.State = StateCommitted
	tx.Proofs.ReceiverCommitmentProof = proof
	tx.Timestamps.CommittedAtMs = now
	tx.Timestamps.CompletedAtMs = now
	m.completeCommitted(tx)

	return &AcknowledgementPacket{
		TransactionID:           tx.ID,
		ReceiverCommitmentProof: proof,
		TimestampMs:             now,
	}, nil
}

// FinalizeTransaction is the sender-side handler for packet 4: it verifies
// the receiver's commitment proof, persists the transformed tokens as gone
// from the sender's own portfolio, releases the locks, and computes the
// atomic commitment proof binding both sides' signatures together.
func (m *Manager) FinalizeTransaction(ctx context.Context, pkt *AcknowledgementPacket) error {
	ctx, span := tracer.Start(ctx, "txn.FinalizeTransaction", trace.WithAttributes(attribute.String("transaction.id", pkt.TransactionID)))
	defer span.End()

	tx, err := m.mustPending(pkt.TransactionID, StatePrepared)
	if err != nil {
		return err
	}
	now := m.now()

	senderRoot := pak.MerkleRoot(tx.SenderExoPak.Tokens)
	receiverRoot := pak.MerkleRoot(tx.ReceiverExoPak.Tokens)
	digest := commitDigest(tx.ID, senderRoot, receiverRoot, tx.Context.ReceiverPub, tx.Context.SenderPub)
	if !crypto.VerifyByAddress(tx.Context.ReceiverPub, digest, pkt.ReceiverCommitmentProof) {
		m.executeRollback(ctx, tx, "receiver commitment proof invalid", now)
		return coreerrors.New(coreerrors.CodeValidationFailed, fmt.Errorf("txn: receiver commitment proof failed verification for %s", tx.ID))
	}

	atomicDigest := crypto.Hash([]byte(tx.ID), tx.Proofs.SenderCommitmentProof, pkt.ReceiverCommitmentProof)
	atomicProof, err := m.selfKey.Sign(atomicDigest)
	if err != nil {
		return coreerrors.New(coreerrors.CodeInternalError, err)
	}

	for _, tok := range tx.SenderExoPak.Tokens {
		if err := m.store.PutToken(ctx, tok); err != nil {
			return coreerrors.Newf(coreerrors.CodeInternalError, "txn: persist sent token %s: %w", tok.ID, err)
		}
	}
	for _, tok := range tx.ReceiverExoPak.Tokens {
		if err := m.store.PutToken(ctx, tok); err != nil {
			return coreerrors.Newf(coreerrors.CodeInternalError, "txn: persist received reverse token %s: %w", tok.ID, err)
		}
	}

	selectedIDs := tokenIDsOf(tx.SenderExoPak.Tokens)
	m.locks.release(tx.ID, selectedIDs)

	tx.State = StateCommitted
	tx.Proofs.ReceiverCommitmentProof = pkt.ReceiverCommitmentProof
	tx.Proofs.AtomicCommitmentProof = atomicProof
	tx.Timestamps.CommittedAtMs = now
	tx.Timestamps.CompletedAtMs = now
	m.completeCommitted(tx)

	m.emitter.Emit(events.TxCommitted{TransactionID: tx.ID, AtomicCommitmentProof: atomicProof})
	return nil
}

// AbortTransaction cancels a pending transaction and executes its RetroPak
// rollback if tokens were already locked.
func (m *Manager) AbortTransaction(ctx context.Context, transactionID, reason string) error {
	m.mu.Lock()
	tx, ok := m.pending[transactionID]
	m.mu.Unlock()
	if !ok {
		return coreerrors.Newf(coreerrors.CodeInvalidState, "txn: %s is not pending", transactionID)
	}
	now := m.now()
	m.executeRollback(ctx, tx, reason, now)
	return nil
}

// UpdateVectorClock rebuilds the local party's vector clock from the tokens
// given (normally the full current portfolio after a commit) and persists
// nothing itself; callers decide where a recomputed clock is cached or
// advertised (spec §4.3, §9).
func (m *Manager) UpdateVectorClock(tokens []*types.Token, nowMs int64) *vectorclock.Clock {
	return vectorclock.Build(m.selfPub, countsByDenom(tokens), nowMs)
}

// --- internal helpers ---

func (m *Manager) mustPending(transactionID string, want State) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.pending[transactionID]
	if !ok || tx.State != want {
		return nil, coreerrors.Newf(coreerrors.CodeInvalidState, "txn: %s is not in state %s", transactionID, want)
	}
	return tx, nil
}

func (m *Manager) recordAborted(transactionID string, role Role, code coreerrors.Code, reason string, now int64) {
	tx := &Transaction{
		ID:    transactionID,
		Role:  role,
		State: StateAborted,
		Timestamps: Timestamps{
			CreatedAtMs:   now,
			CompletedAtMs: now,
		},
	}
	m.mu.Lock()
	m.completed[transactionID] = tx
	m.mu.Unlock()
	m.metrics.RecordTransition(tx.State.String())
	m.emitter.Emit(events.TxAborted{TransactionID: transactionID, Code: string(code), Reason: reason})
}

func (m *Manager) completeAborted(tx *Transaction, code coreerrors.Code, reason string, now int64) {
	if tx.Role == RoleReceiver && tx.ReceiverExoPak != nil {
		m.locks.release(tx.ID, tokenIDsOf(tx.ReceiverExoPak.Tokens))
	}
	tx.State = StateAborted
	tx.Timestamps.CompletedAtMs = now
	m.mu.Lock()
	delete(m.pending, tx.ID)
	m.completed[tx.ID] = tx
	m.mu.Unlock()
	m.metrics.RecordTransition(tx.State.String())
	m.emitter.Emit(events.TxAborted{TransactionID: tx.ID, Code: string(code), Reason: reason})
}

func (m *Manager) completeCommitted(tx *Transaction) {
	m.mu.Lock()
	delete(m.pending, tx.ID)
	m.completed[tx.ID] = tx
	m.mu.Unlock()
	m.metrics.RecordTransition(tx.State.String())
}

// commitDigest is the preimage a commitment proof signs: transactionId,
// both package roots, and the (signer, counterparty) pair in that order, so
// the sender's and receiver's proofs are over distinguishable digests even
// though they cover the same roots.
func commitDigest(transactionID string, senderRoot, receiverRoot [32]byte, signerPub, counterpartyPub string) [32]byte {
	return crypto.Hash([]byte(transactionID), senderRoot[:], receiverRoot[:], []byte(signerPub), []byte(counterpartyPub))
}

func countsByDenom(tokens []*types.Token) map[types.Denomination]int {
	counts := make(map[types.Denomination]int, len(types.Denominations))
	for _, t := range tokens {
		if t == nil || t.Type != types.TokenRegular || t.State != types.StateActive {
			continue
		}
		counts[t.Denomination]++
	}
	return counts
}

// countActive counts the ACTIVE regular tokens in a candidate set that
// belong to issuanceID, the population IsSpendable's minimum-balance rule
// (spec §4.3/§8) is measured against: the WisselToken is unspendable when
// spending it would leave fewer than two tokens of its *own* originating
// issuance, not fewer than two tokens overall.
func countActive(tokens []*types.Token, issuanceID string) int {
	n := 0
	for _, t := range tokens {
		if t != nil && t.State == types.StateActive && t.Type == types.TokenRegular && t.IssuanceID == issuanceID {
			n++
		}
	}
	return n
}
