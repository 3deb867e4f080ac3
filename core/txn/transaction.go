package txn

import "tokenmesh/core/types"

// Constraints narrows how a transaction is allowed to be satisfied.
type Constraints struct {
	MaxDurationMs        int64
	MinBalanceAfter      int
	AllowedDenominations []types.Denomination
	UseWisselToken       bool
	UseAfrondingBuffer   bool

	// ReverseAmount is zero for a one-way transfer. When non-zero, the
	// receiver runs the symmetric vector-clock optimization over its own
	// portfolio for this amount during Response (spec §4.1 "Package
	// computation"), producing a populated receiverExoPak/receiverRetroPak
	// instead of the empty one-way pair.
	ReverseAmount types.Amount
}

// DefaultMaxDurationMs is the rollback-instruction timeout used when a
// transaction's constraints do not specify one (spec §4.1).
const DefaultMaxDurationMs = 30_000

// Context carries the negotiated parameters of a transaction. SenderPub is
// always populated; ReceiverPub is withheld from the Initiation packet the
// sender broadcasts (spec §4.1 packet 1) and filled in once the receiver is
// known locally.
type Context struct {
	SenderPub   string
	ReceiverPub string
	Amount      types.Amount
	Purpose     string
	Constraints Constraints
}

// Timestamps records the wall-clock milestones of a transaction's life.
type Timestamps struct {
	CreatedAtMs   int64
	InitiatedAtMs int64
	PreparedAtMs  int64
	CommittedAtMs int64
	CompletedAtMs int64
	TimeoutAtMs   int64
}

// Proofs accumulates the cryptographic witnesses produced as the four
// packets are exchanged.
type Proofs struct {
	TransactionSignature    []byte
	SenderCommitmentProof   []byte
	ReceiverCommitmentProof []byte
	AtomicCommitmentProof   []byte
}

// Role distinguishes which side of the exchange a Transaction value is
// tracking the state of for the local party.
type Role uint8

const (
	RoleSender Role = iota
	RoleReceiver
)

// Transaction is a single four-packet exchange in progress or completed.
type Transaction struct {
	ID    string
	Role  Role
	State State
	Context    Context
	SenderExoPak     *types.ExoPak
	ReceiverExoPak   *types.ExoPak
	SenderRetroPak   *types.RetroPak
	ReceiverRetroPak *types.RetroPak
	Timestamps Timestamps
	Proofs     Proofs

	// senderPortfolioSnapshot/receiverPortfolioSnapshot are the candidate
	// token sets the Initiation/Response packets were computed from, kept
	// so a rollback can restore pre-transaction telomeres exactly.
	senderPortfolioSnapshot   []*types.Token
	receiverPortfolioSnapshot []*types.Token
}

// Clone returns a shallow copy of t: the struct fields are copied, but the
// packages, tokens, proofs and portfolio snapshots it points to are shared
// with t.
func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}
