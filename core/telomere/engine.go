package telomere

import (
	"fmt"

	"tokenmesh/core/errors"
	"tokenmesh/core/types"
	"tokenmesh/crypto"
)

// recordDigest is the preimage every ownership-record proof signs:
// tokenId || nextOwner || root. nextOwner is the owner being handed the
// token by the record's signer (the record's own Owner field when replaying
// history, the newOwner argument when Transform creates a fresh record).
func recordDigest(tokenID types.TokenID, nextOwner string, root [32]byte) [32]byte {
	return crypto.Hash([]byte(tokenID), []byte(nextOwner), root[:])
}

// Transform appends a new ownership record to token's telomere, reassigns
// ownership to newOwner, and re-signs the chain head with signer (which must
// be the current owner's private key). It is the only sanctioned way to
// mutate a token's owner (spec §4.2 invariant), and callers (core/txn) must
// only invoke it as part of a COMMITTED transaction.
func Transform(token *types.Token, newOwner string, transactionID string, signer *crypto.PrivateKey, nowMs int64) error {
	if token == nil || token.Telomere == nil {
		return fmt.Errorf("telomere: nil token or telomere")
	}
	t := token.Telomere
	if signer.PubKey().String() != t.OwnerPublicKey {
		return errors.Newf(errors.CodeValidationFailed, "telomere: signer does not match current owner")
	}

	history := append([]types.OwnershipRecord(nil), t.OwnershipHistory...)
	history = append(history, types.OwnershipRecord{
		Owner:          t.OwnerPublicKey,
		StartMs:        t.TransferTimestampMs,
		EndMs:          nowMs,
		Proof:          append([]byte(nil), t.OwnershipProof...),
		TransferMethod: types.TransferMethod(transactionID),
	})

	leaves := make([][32]byte, len(history))
	for i, r := range history {
		leaves[i] = recordHash(r)
	}
	root := merkleRoot(leaves)
	for i := range history {
		history[i].MerkleProof = merkleProof(leaves, i)
	}

	digest := recordDigest(token.ID, newOwner, root)
	proof, err := signer.Sign(digest)
	if err != nil {
		return fmt.Errorf("telomere: sign transfer: %w", err)
	}

	t.OwnershipHistory = history
	t.OwnershipHistoryRoot = root
	t.PreviousOwnerPublicKey = t.OwnerPublicKey
	t.OwnerPublicKey = newOwner
	t.OwnershipProof = proof
	t.TransferTimestampMs = nowMs
	t.TransferCount++
	t.ChainOfCustodyStatus = types.ChainOfCustodyVerified
	return nil
}

// Verify replays a token's full ownership history and reports whether every
// record's proof verifies and the reconstructed root matches the stored
// OwnershipHistoryRoot. It mutates telomere.ChainOfCustodyStatus as a side
// effect so callers can cache the result without re-running Verify.
//
// Each history record r at index i was produced by Transform at the moment
// the token moved out of r.Owner's hands: r's proof is signed by the *previous*
// owner (history[i-1].Owner, or nobody for the genesis record at i==0) over
// recordDigest(tokenID, r.Owner, partialRoot), where partialRoot is the
// Merkle root over only the records that existed before r was appended. The
// final handoff to the telomere's current owner is verified the same way
// against the live OwnershipProof and the full stored root.
func Verify(tokenID types.TokenID, t *types.Telomere) types.ChainOfCustodyStatus {
	if t == nil {
		return types.ChainOfCustodyVerificationFailed
	}
	if len(t.OwnershipHistory) == 0 {
		t.ChainOfCustodyStatus = types.ChainOfCustodyVerified
		return t.ChainOfCustodyStatus
	}
	if uint64(len(t.OwnershipHistory)) != t.TransferCount {
		t.ChainOfCustodyStatus = types.ChainOfCustodyVerificationFailed
		return t.ChainOfCustodyStatus
	}

	leaves := make([][32]byte, len(t.OwnershipHistory))
	for i, r := range t.OwnershipHistory {
		leaves[i] = recordHash(r)
	}
	root := merkleRoot(leaves)
	if root != t.OwnershipHistoryRoot {
		t.ChainOfCustodyStatus = types.ChainOfCustodyVerificationFailed
		return t.ChainOfCustodyStatus
	}

	for i, r := range t.OwnershipHistory {
		if reconstructRoot(leaves[i], i, r.MerkleProof) != t.OwnershipHistoryRoot {
			t.ChainOfCustodyStatus = types.ChainOfCustodyVerificationFailed
			return t.ChainOfCustodyStatus
		}
		if i == 0 {
			if len(r.Proof) != 0 {
				t.ChainOfCustodyStatus = types.ChainOfCustodyVerificationFailed
				return t.ChainOfCustodyStatus
			}
			continue
		}
		partialRoot := merkleRoot(leaves[:i])
		digest := recordDigest(tokenID, r.Owner, partialRoot)
		signer, err := crypto.RecoverPublicKey(digest, r.Proof)
		if err != nil || signer.String() != t.OwnershipHistory[i-1].Owner {
			t.ChainOfCustodyStatus = types.ChainOfCustodyVerificationFailed
			return t.ChainOfCustodyStatus
		}
	}

	last := t.OwnershipHistory[len(t.OwnershipHistory)-1]
	liveDigest := recordDigest(tokenID, t.OwnerPublicKey, t.OwnershipHistoryRoot)
	liveSigner, err := crypto.RecoverPublicKey(liveDigest, t.OwnershipProof)
	if err != nil || liveSigner.String() != last.Owner {
		t.ChainOfCustodyStatus = types.ChainOfCustodyVerificationFailed
		return t.ChainOfCustodyStatus
	}

	t.ChainOfCustodyStatus = types.ChainOfCustodyVerified
	return t.ChainOfCustodyStatus
}
