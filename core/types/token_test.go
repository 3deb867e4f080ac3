package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTokenID(t *testing.T) {
	location, reference, value, index, err := ParseTokenID(TokenID("nyc-batch123-10-1"))
	require.NoError(t, err)
	require.Equal(t, "nyc", location)
	require.Equal(t, "batch123", reference)
	require.Equal(t, Denomination(10), value)
	require.Equal(t, 1, index)
}

func TestParseTokenIDRejectsMalformed(t *testing.T) {
	_, _, _, _, err := ParseTokenID(TokenID("not-enough-fields"))
	require.Error(t, err)

	_, _, _, _, err = ParseTokenID(TokenID("nyc-batch123-notanumber-1"))
	require.Error(t, err)
}

func TestNewTokenRejectsInvalidDenomination(t *testing.T) {
	_, err := NewToken(TokenID("nyc-b1-7-0"), Denomination(7), TokenRegular, "owner-pub", 1000)
	require.Error(t, err)
}

func TestNewTokenGenesisTelomere(t *testing.T) {
	tok, err := NewToken(TokenID("nyc-b1-10-0"), Denomination(10), TokenRegular, "owner-pub", 1000)
	require.NoError(t, err)
	require.Equal(t, StateActive, tok.State)
	require.Equal(t, "owner-pub", tok.Telomere.OwnerPublicKey)
	require.Equal(t, uint64(0), tok.Telomere.TransferCount)
	require.Equal(t, ChainOfCustodyVerified, tok.Telomere.ChainOfCustodyStatus)
}

func TestTokenCloneIsIndependent(t *testing.T) {
	tok, err := NewToken(TokenID("nyc-b1-10-0"), Denomination(10), TokenRegular, "owner-pub", 1000)
	require.NoError(t, err)

	clone := tok.Clone()
	clone.Telomere.OwnerPublicKey = "someone-else"
	require.Equal(t, "owner-pub", tok.Telomere.OwnerPublicKey)
}

func TestWisselTokenSpendable(t *testing.T) {
	w := &WisselToken{}
	require.False(t, w.IsSpendable(1))
	require.True(t, w.IsSpendable(2))
	require.True(t, w.IsSpendable(3))
}
