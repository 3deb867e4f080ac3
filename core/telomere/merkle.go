// Package telomere implements the per-token ownership-chain transform and
// verification described in spec §4.2: transferring a token appends a new
// ownership record, recomputes the Merkle root over the (ordered) record
// hashes, and re-signs the chain head. Verification replays the chain and
// confirms every record's proof and the reconstructed root.
package telomere

import (
	"bytes"
	"encoding/binary"

	"lukechampine.com/blake3"

	"tokenmesh/core/types"
	"tokenmesh/crypto"
)

// recordHash returns the content-addressed hash of an ownership record. It
// uses blake3 rather than the Keccak256 signing primitive in tokenmesh/crypto:
// this hash is never a signature preimage by itself (recordDigest folds it
// into one), it is purely a content address for the Merkle leaf, and blake3
// is faster for the high record-churn telomeres accumulate under heavy
// transfer load. The hash intentionally excludes MerkleProof: the proof is
// derived *from* this hash, not part of its preimage.
func recordHash(r types.OwnershipRecord) [32]byte {
	var startBuf, endBuf [8]byte
	binary.BigEndian.PutUint64(startBuf[:], uint64(r.StartMs))
	binary.BigEndian.PutUint64(endBuf[:], uint64(r.EndMs))
	buf := bytes.NewBuffer(nil)
	buf.WriteString(r.Owner)
	buf.Write(startBuf[:])
	buf.Write(endBuf[:])
	buf.Write(r.Proof)
	buf.WriteString(string(r.TransferMethod))
	return blake3.Sum256(buf.Bytes())
}

// merkleRoot computes the root over an ordered list of leaf hashes using the
// standard pairwise-duplicate-last scheme. An empty history roots to the
// zero hash.
func merkleRoot(leaves [][32]byte) [32]byte {
	if len(leaves) == 0 {
		return [32]byte{}
	}
	level := leaves
	for len(level) > 1 {
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, crypto.Hash(left[:], right[:]))
		}
		level = next
	}
	return level[0]
}

// MerkleProofStep is one sibling hash on the path from a leaf to the root,
// tagged with which side the sibling sits on.
type MerkleProofStep struct {
	Sibling [32]byte
	OnRight bool
}

// merkleProof returns the authentication path for leaf index idx within
// leaves, and the list is encoded into []([32]byte) (OwnershipRecord.MerkleProof
// stores just the sibling hashes in path order; the side is recomputed
// deterministically from the record's own index during verification).
func merkleProof(leaves [][32]byte, idx int) [][32]byte {
	if len(leaves) <= 1 {
		return nil
	}
	var proof [][32]byte
	level := leaves
	index := idx
	for len(level) > 1 {
		var siblingIdx int
		if index%2 == 0 {
			siblingIdx = index + 1
		} else {
			siblingIdx = index - 1
		}
		if siblingIdx < len(level) {
			proof = append(proof, level[siblingIdx])
		} else {
			proof = append(proof, level[index])
		}
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, crypto.Hash(left[:], right[:]))
		}
		level = next
		index /= 2
	}
	return proof
}

// reconstructRoot rebuilds the root from a leaf hash, its index, and its
// authentication path, for use during verification of a single record
// without needing the full history in hand.
func reconstructRoot(leaf [32]byte, idx int, proof [][32]byte) [32]byte {
	current := leaf
	index := idx
	for _, sibling := range proof {
		if index%2 == 0 {
			current = crypto.Hash(current[:], sibling[:])
		} else {
			current = crypto.Hash(sibling[:], current[:])
		}
		index /= 2
	}
	return current
}
