package types

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenID is the deterministic ASCII identifier of a token:
// LOCATION-REFERENCE-VALUE-INDEX, e.g. "nyc-batch123-10-1".
type TokenID string

// ParseTokenID validates the wire format and extracts the denomination
// component so callers can cross-check it against Token.Denomination.
func ParseTokenID(id TokenID) (location, reference string, value Denomination, index int, err error) {
	parts := strings.Split(string(id), "-")
	if len(parts) != 4 {
		return "", "", 0, 0, fmt.Errorf("types: token id %q: expected 4 hyphen-separated fields", id)
	}
	location, reference = parts[0], parts[1]
	if location == "" || reference == "" {
		return "", "", 0, 0, fmt.Errorf("types: token id %q: location and reference must be non-empty", id)
	}
	raw, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return "", "", 0, 0, fmt.Errorf("types: token id %q: invalid value field: %w", id, err)
	}
	value = Denomination(raw)
	idx, err := strconv.Atoi(parts[3])
	if err != nil {
		return "", "", 0, 0, fmt.Errorf("types: token id %q: invalid index field: %w", id, err)
	}
	index = idx
	return location, reference, value, index, nil
}

// TokenType distinguishes a regular value token from the two special
// buffer/exchange tokens.
type TokenType uint8

const (
	TokenRegular TokenType = iota
	TokenWissel
	TokenAfronding
)

func (t TokenType) String() string {
	switch t {
	case TokenRegular:
		return "REGULAR"
	case TokenWissel:
		return "WISSEL"
	case TokenAfronding:
		return "AFRONDING"
	default:
		return "UNKNOWN"
	}
}

// TokenState is the lifecycle state of a token.
type TokenState uint8

const (
	StateActive TokenState = iota
	StateFrozen
	StateExpired
	StateRevoked
	StatePending
	StateSplit
	StateMerged
)

func (s TokenState) String() string {
	switch s {
	case StateActive:
		return "ACTIVE"
	case StateFrozen:
		return "FROZEN"
	case StateExpired:
		return "EXPIRED"
	case StateRevoked:
		return "REVOKED"
	case StatePending:
		return "PENDING"
	case StateSplit:
		return "SPLIT"
	case StateMerged:
		return "MERGED"
	default:
		return "UNKNOWN"
	}
}

// Token is the immutable-identity, mutable-ownership unit of value exchanged
// between parties. Construction validates the denomination against the fixed
// set; the telomere and state are the only fields the core ever mutates, and
// only through the telomere engine / transaction state machine.
type Token struct {
	ID           TokenID      `json:"id"`
	Denomination Denomination `json:"denomination"`
	Value        Amount       `json:"value"`
	Type         TokenType    `json:"type"`
	State        TokenState   `json:"state"`
	IssuanceID   string       `json:"issuanceId"`
	Telomere     *Telomere    `json:"telomere"`
	CreatedAtMs  int64        `json:"createdAtMs"`
	UpdatedAtMs  int64        `json:"updatedAtMs"`
	Version      uint64       `json:"version"`
}

// NewToken constructs a token in ACTIVE state with a fresh genesis telomere
// naming owner as the first and only owner of record. IssuanceID (the
// LOCATION-REFERENCE prefix of id, e.g. "nyc-batch123") is derived from id
// itself rather than taken as a separate parameter: spec §2's wire format
// already names the originating issuance, it is the WisselToken
// minimum-balance rule (§4.3/§8) that needs it as a first-class field to
// filter a portfolio by.
func NewToken(id TokenID, denom Denomination, tokenType TokenType, owner string, nowMs int64) (*Token, error) {
	if !denom.Valid() {
		return nil, fmt.Errorf("types: denomination %d is not in the fixed set", uint32(denom))
	}
	location, reference, _, _, err := ParseTokenID(id)
	if err != nil {
		return nil, err
	}
	return &Token{
		ID:           id,
		Denomination: denom,
		Value:        AmountFromUnits(uint64(denom)),
		Type:         tokenType,
		State:        StateActive,
		IssuanceID:   location + "-" + reference,
		Telomere:     genesisTelomere(owner, nowMs),
		CreatedAtMs:  nowMs,
		UpdatedAtMs:  nowMs,
		Version:      1,
	}, nil
}

// Clone returns a deep copy so callers can stage a speculative mutation (e.g.
// during package building) without touching the portfolio's copy of record.
func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	clone := *t
	clone.Telomere = t.Telomere.Clone()
	return &clone
}
