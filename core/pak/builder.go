// Package pak builds the ExoPak (outbound tokens) and RetroPak (rollback
// insurance) packages exchanged during the Response phase of the four-packet
// protocol (spec §4.1). It never mutates token ownership itself — that is
// core/telomere's job: core/txn transforms copies of the selected tokens
// during the Response phase and writes them to the store only at commit.
package pak

import (
	"fmt"

	"tokenmesh/core/telomere"
	"tokenmesh/core/types"
	"tokenmesh/crypto"
)

// tokenIDs extracts the ordered id list used to compute a package's Merkle
// root; order is significant (it is the package's canonical token-id set
// ordering) so both parties compute the same root independently.
func tokenIDs(tokens []*types.Token) []types.TokenID {
	ids := make([]types.TokenID, len(tokens))
	for i, t := range tokens {
		ids[i] = t.ID
	}
	return ids
}

// MerkleRoot computes the root over a package's token-id set.
func MerkleRoot(tokens []*types.Token) [32]byte {
	return telomere.TokenSetRoot(tokenIDs(tokens))
}

// BuildExoPak forms an ExoPak for the given outbound tokens, signed by
// signer over (tokenIdSet, direction, transactionId) per spec §3.
func BuildExoPak(id string, tokens []*types.Token, direction string, transactionID string, signer *crypto.PrivateKey) (*types.ExoPak, error) {
	root := MerkleRoot(tokens)
	digest := crypto.Hash(root[:], []byte(direction), []byte(transactionID))
	proof, err := signer.Sign(digest)
	if err != nil {
		return nil, fmt.Errorf("pak: sign exopak: %w", err)
	}
	return &types.ExoPak{
		ID:     id,
		Status: types.PackageCreated,
		Tokens: tokens,
		Proof:  proof,
	}, nil
}

// VerifyExoPakProof checks that proof was produced by signerPub over the
// ExoPak's token set, direction, and transaction id.
func VerifyExoPakProof(pak *types.ExoPak, direction string, transactionID string, signerPub *crypto.PublicKey) bool {
	root := MerkleRoot(pak.Tokens)
	digest := crypto.Hash(root[:], []byte(direction), []byte(transactionID))
	return crypto.Verify(signerPub, digest, pak.Proof)
}

// BuildRetroPak forms a RetroPak for the tokens a party retains locally,
// with a single RESTORE rollback step signed over the retained-token-set
// root, and a timeout matching the transaction's maxDurationMs.
func BuildRetroPak(id string, tokens []*types.Token, timeoutMs int64, signer *crypto.PrivateKey) (*types.RetroPak, error) {
	root := MerkleRoot(tokens)
	stepProof, err := signer.Sign(root)
	if err != nil {
		return nil, fmt.Errorf("pak: sign retropak step: %w", err)
	}
	instrDigest := crypto.Hash(root[:], []byte("RESTORE"))
	instrProof, err := signer.Sign(instrDigest)
	if err != nil {
		return nil, fmt.Errorf("pak: sign retropak instructions: %w", err)
	}
	return &types.RetroPak{
		ID:     id,
		Status: types.PackageCreated,
		Tokens: tokens,
		Proof:  instrProof,
		RollbackInstructions: types.RollbackInstructions{
			Steps: []types.RollbackStep{
				{Step: 1, Type: types.RollbackRestore, Proof: stepProof},
			},
			TimeoutMs: timeoutMs,
			Proof:     instrProof,
		},
	}, nil
}

// Split partitions a sender's candidate portfolio into the tokens selected
// to leave (exo) and everything else, which becomes the RetroPak's token
// set (spec §4.1: "senderRetroPak.tokens = senderTokens \ senderExoPak.tokens").
func Split(portfolio []*types.Token, selected []*types.Token) (retained []*types.Token) {
	sel := make(map[types.TokenID]bool, len(selected))
	for _, t := range selected {
		sel[t.ID] = true
	}
	for _, t := range portfolio {
		if !sel[t.ID] {
			retained = append(retained, t)
		}
	}
	return retained
}
