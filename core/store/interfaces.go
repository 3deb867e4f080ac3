// Package store defines the narrow abstract interfaces the transaction
// core depends on for persistence (spec §1: "the core depends on an
// abstract TokenStore / AttestationStore interface"). Concrete backends
// live in the top-level storage package; this package exists so core/txn
// never imports a concrete persistence implementation.
package store

import (
	"context"

	"tokenmesh/core/types"
)

// TokenStore is the abstract per-user token ledger the state machine reads
// portfolios from and writes committed telomeres/states back to.
type TokenStore interface {
	Portfolio(ctx context.Context, userID string) ([]*types.Token, error)
	GetToken(ctx context.Context, id types.TokenID) (*types.Token, error)
	PutToken(ctx context.Context, tok *types.Token) error
	WisselToken(ctx context.Context, userID string) (*types.WisselToken, error)
	PutWisselToken(ctx context.Context, w *types.WisselToken) error
}

// TrustLevel is the coarse result of an attestation lookup. The trust and
// attestation network itself is an external collaborator (spec §1); the
// core only ever consumes this narrow verdict.
type TrustLevel uint8

const (
	TrustUnknown TrustLevel = iota
	TrustUntrusted
	TrustTrusted
)

// AttestationStore is the abstract lookup the core uses to ask whether a
// party's device/key has a known attestation on file.
type AttestationStore interface {
	Lookup(ctx context.Context, partyID string) (TrustLevel, error)
	Record(ctx context.Context, partyID string, level TrustLevel) error
}
