package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/syndtr/goleveldb/leveldb"

	"tokenmesh/core/types"
)

// TokenStore adapts a Database (LevelDB or MemDB) to the core/store.TokenStore
// interface the transaction engine depends on. Tokens are stored as JSON
// blobs keyed by id; a per-owner index (a JSON array of token ids) is kept
// alongside since Database exposes no range/iteration primitive.
type TokenStore struct {
	db Database
}

// NewTokenStore wraps db as a core/store.TokenStore.
func NewTokenStore(db Database) *TokenStore {
	return &TokenStore{db: db}
}

func tokenKey(id types.TokenID) []byte    { return []byte("tok:" + string(id)) }
func ownerIndexKey(owner string) []byte   { return []byte("owner:" + owner) }
func wisselKey(owner string) []byte       { return []byte("wissel:" + owner) }

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, leveldb.ErrNotFound) {
		return true
	}
	return strings.Contains(err.Error(), "not found")
}

// GetToken loads a single token by id.
func (s *TokenStore) GetToken(ctx context.Context, id types.TokenID) (*types.Token, error) {
	raw, err := s.db.Get(tokenKey(id))
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("storage: token %s not found", id)
		}
		return nil, err
	}
	var tok types.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("storage: decode token %s: %w", id, err)
	}
	return &tok, nil
}

// PutToken persists tok and maintains the owner index, moving the token out
// of its previous owner's index if ownership changed (the settlement path
// in core/txn always writes the token's post-transform state, so this is
// also how a committed transfer becomes visible in Portfolio queries).
func (s *TokenStore) PutToken(ctx context.Context, tok *types.Token) error {
	if tok == nil || tok.Telomere == nil {
		return fmt.Errorf("storage: cannot persist a token with no telomere")
	}

	if existing, err := s.GetToken(ctx, tok.ID); err == nil && existing.Telomere != nil {
		if existing.Telomere.OwnerPublicKey != tok.Telomere.OwnerPublicKey {
			if err := s.removeFromIndex(existing.Telomere.OwnerPublicKey, tok.ID); err != nil {
				return err
			}
		}
	}

	blob, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("storage: encode token %s: %w", tok.ID, err)
	}
	if err := s.db.Put(tokenKey(tok.ID), blob); err != nil {
		return err
	}
	return s.addToIndex(tok.Telomere.OwnerPublicKey, tok.ID)
}

// Portfolio returns every token currently indexed under userID, regardless
// of lifecycle state (callers filter by state/type as needed, e.g.
// core/vectorclock.Optimize only considers ACTIVE REGULAR tokens).
func (s *TokenStore) Portfolio(ctx context.Context, userID string) ([]*types.Token, error) {
	ids, err := s.index(userID)
	if err != nil {
		return nil, err
	}
	tokens := make([]*types.Token, 0, len(ids))
	for _, id := range ids {
		tok, err := s.GetToken(ctx, id)
		if err != nil {
			continue // index and store can briefly disagree across a crash; skip rather than fail the whole portfolio read
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

// WisselToken returns userID's single WisselToken, or nil if it holds none.
func (s *TokenStore) WisselToken(ctx context.Context, userID string) (*types.WisselToken, error) {
	raw, err := s.db.Get(wisselKey(userID))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var w types.WisselToken
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("storage: decode wissel token for %s: %w", userID, err)
	}
	return &w, nil
}

// PutWisselToken persists userID's WisselToken.
func (s *TokenStore) PutWisselToken(ctx context.Context, w *types.WisselToken) error {
	if w == nil || w.Telomere == nil {
		return fmt.Errorf("storage: cannot persist a wissel token with no telomere")
	}
	blob, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("storage: encode wissel token: %w", err)
	}
	return s.db.Put(wisselKey(w.Telomere.OwnerPublicKey), blob)
}

func (s *TokenStore) index(owner string) ([]types.TokenID, error) {
	raw, err := s.db.Get(ownerIndexKey(owner))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []types.TokenID
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("storage: decode owner index for %s: %w", owner, err)
	}
	return ids, nil
}

func (s *TokenStore) addToIndex(owner string, id types.TokenID) error {
	ids, err := s.index(owner)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	ids = append(ids, id)
	return s.writeIndex(owner, ids)
}

func (s *TokenStore) removeFromIndex(owner string, id types.TokenID) error {
	ids, err := s.index(owner)
	if err != nil {
		return err
	}
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return s.writeIndex(owner, out)
}

func (s *TokenStore) writeIndex(owner string, ids []types.TokenID) error {
	blob, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("storage: encode owner index for %s: %w", owner, err)
	}
	return s.db.Put(ownerIndexKey(owner), blob)
}
