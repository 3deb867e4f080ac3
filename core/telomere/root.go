package telomere

import (
	"tokenmesh/core/types"
	"tokenmesh/crypto"
)

// TokenSetRoot computes a Merkle root over an ordered set of token ids. It
// is exported for core/pak, which needs the same primitive to root an
// ExoPak/RetroPak's token-id set for its commitment/rollback proofs.
func TokenSetRoot(ids []types.TokenID) [32]byte {
	leaves := make([][32]byte, len(ids))
	for i, id := range ids {
		leaves[i] = crypto.Hash([]byte(id))
	}
	return merkleRoot(leaves)
}
