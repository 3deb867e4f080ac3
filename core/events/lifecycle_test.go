package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTxInitiatedEventAttributes(t *testing.T) {
	e := TxInitiated{TransactionID: "tx-1", Sender: "sender-pub", Receiver: "receiver-pub", Amount: 2700}
	require.Equal(t, TypeTxInitiated, e.EventType())

	evt := e.Event()
	require.Equal(t, TypeTxInitiated, evt.Type)
	require.Equal(t, "tx-1", evt.Attributes["transactionId"])
	require.Equal(t, "2700", evt.Attributes["amount"])
}

func TestTxCommittedEncodesProofAsHex(t *testing.T) {
	e := TxCommitted{TransactionID: "tx-1", AtomicCommitmentProof: []byte{0xde, 0xad}}
	evt := e.Event()
	require.Equal(t, "dead", evt.Attributes["atomicCommitmentProof"])
}

func TestNoopEmitterDiscards(t *testing.T) {
	var emitter Emitter = NoopEmitter{}
	require.NotPanics(t, func() {
		emitter.Emit(TxAborted{TransactionID: "tx-1", Code: "TIMEOUT"})
	})
}
