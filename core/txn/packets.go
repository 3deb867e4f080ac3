package txn

import "tokenmesh/core/types"

// InitiationPacket is packet 1, sender to receiver (spec §4.1). Context is
// carried without ReceiverPub, matching the packet's documented shape.
// SenderTokens is the full candidate token set (not just ids): the receiver
// needs each token's telomere to run chain-of-custody verification and its
// denomination to run the selection optimizer, before it has any other way
// to reach the sender's portfolio.
type InitiationPacket struct {
	TransactionID      string
	Context            Context
	SenderTokens       []*types.Token
	SenderWisselToken  *types.WisselToken // nil if the sender holds none
	TimestampMs        int64
}

// ResponsePacket is packet 2, receiver to sender. SenderExoPak carries the
// receiver's proposed selection from SenderTokens (unsigned: only the
// sender can produce a valid package proof over its own tokens).
// ReceiverExoPak is the receiver's own, already-signed package — empty for
// a one-way transfer.
type ResponsePacket struct {
	TransactionID  string
	Accepted       bool
	Reason         string
	SenderExoPak   *types.ExoPak
	ReceiverExoPak *types.ExoPak
	TimestampMs    int64
}

// ConfirmationPacket is packet 3, sender to receiver. SenderExoPak here is
// the sender's final, signed package over the telomere-transformed tokens
// (new owner already set to the receiver) so the receiver can adopt them
// directly without a further round trip.
type ConfirmationPacket struct {
	TransactionID         string
	SenderExoPak          *types.ExoPak
	SenderCommitmentProof []byte
	TimestampMs           int64
}

// AcknowledgementPacket is packet 4, receiver to sender.
type AcknowledgementPacket struct {
	TransactionID           string
	ReceiverCommitmentProof []byte
	TimestampMs             int64
}
