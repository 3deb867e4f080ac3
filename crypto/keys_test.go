package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	digest := Hash([]byte("hello"), []byte("world"))
	sig, err := key.Sign(digest)
	require.NoError(t, err)

	require.True(t, Verify(key.PubKey(), digest, sig))
	require.True(t, VerifyByAddress(key.PubKey().String(), digest, sig))
}

func TestVerifyRejectsWrongSigner(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	other, err := GeneratePrivateKey()
	require.NoError(t, err)

	digest := Hash([]byte("hello"))
	sig, err := key.Sign(digest)
	require.NoError(t, err)

	require.False(t, Verify(other.PubKey(), digest, sig))
	require.False(t, VerifyByAddress(other.PubKey().String(), digest, sig))
}

func TestRecoverPublicKey(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	digest := Hash([]byte("payload"))
	sig, err := key.Sign(digest)
	require.NoError(t, err)

	recovered, err := RecoverPublicKey(digest, sig)
	require.NoError(t, err)
	require.Equal(t, key.PubKey().String(), recovered.String())
}

func TestAddressBech32RoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	addr := key.PubKey().Address()

	decoded, err := DecodeAddress(addr.String())
	require.NoError(t, err)
	require.Equal(t, addr.Bytes(), decoded.Bytes())
	require.Equal(t, PartyPrefix, decoded.Prefix())
}

func TestPrivateKeyFromBytesRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	restored, err := PrivateKeyFromBytes(key.Bytes())
	require.NoError(t, err)
	require.Equal(t, key.PubKey().String(), restored.PubKey().String())
}
