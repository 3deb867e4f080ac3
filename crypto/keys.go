package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix defines the different types of human-readable address prefixes.
type AddressPrefix string

const (
	// PartyPrefix is used for the public identity of a transacting party
	// (sender or receiver) in a token exchange.
	PartyPrefix AddressPrefix = "xch"
)

// Address represents a 20-byte party identity with a specific prefix.
type Address struct {
	prefix AddressPrefix
	bytes  []byte
}

func NewAddress(prefix AddressPrefix, b []byte) (Address, error) {
	if len(b) != 20 {
		return Address{}, fmt.Errorf("address must be 20 bytes long, got %d", len(b))
	}
	cloned := append([]byte(nil), b...)
	return Address{prefix: prefix, bytes: cloned}, nil
}

// MustNewAddress constructs an address and panics if the input is invalid.
func MustNewAddress(prefix AddressPrefix, b []byte) Address {
	addr, err := NewAddress(prefix, b)
	if err != nil {
		panic(err)
	}
	return addr
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes, 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) Bytes() []byte {
	return append([]byte(nil), a.bytes...)
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	addr, err := NewAddress(AddressPrefix(prefix), conv)
	if err != nil {
		return Address{}, err
	}
	return addr, nil
}

// --- Key Management ---

type PrivateKey struct {
	*ecdsa.PrivateKey
}

type PublicKey struct {
	*ecdsa.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(crypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// Bytes returns the byte representation of the private key.
func (k *PrivateKey) Bytes() []byte {
	return crypto.FromECDSA(k.PrivateKey)
}

func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&k.PrivateKey.PublicKey}
}

func (k *PublicKey) Address() Address {
	addrBytes := crypto.PubkeyToAddress(*k.PublicKey).Bytes()
	return MustNewAddress(PartyPrefix, addrBytes)
}

// String returns the bech32 party address, which doubles as the stable
// "ownerPublicKey" identity carried in a token's telomere.
func (k *PublicKey) String() string {
	return k.Address().String()
}

func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// --- Signing primitives ---
//
// Every signature in the token-exchange core covers a Keccak256 digest of a
// canonical byte encoding (telomere transfer proofs, commitment proofs,
// package proofs). Centralizing Sign/Verify/Hash here keeps every caller
// from having to reason about recoverable-signature byte layout directly.

// Hash returns the Keccak256 digest of the concatenation of parts.
func Hash(parts ...[]byte) [32]byte {
	h := crypto.NewKeccakState()
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	h.Read(out[:])
	return out
}

// Sign produces a 65-byte recoverable signature over digest.
func (k *PrivateKey) Sign(digest [32]byte) ([]byte, error) {
	return crypto.Sign(digest[:], k.PrivateKey)
}

// Verify reports whether sig is a valid signature by pub over digest.
func Verify(pub *PublicKey, digest [32]byte, sig []byte) bool {
	if pub == nil || len(sig) < 64 {
		return false
	}
	// Drop the recovery id: crypto.VerifySignature expects the 64-byte
	// r||s form.
	trimmed := sig
	if len(trimmed) == 65 {
		trimmed = trimmed[:64]
	}
	pubBytes := crypto.FromECDSAPub(pub.PublicKey)
	return crypto.VerifySignature(pubBytes, digest[:], trimmed)
}

// RecoverPublicKey recovers the signer's public key from a 65-byte signature
// over digest. Used to authenticate a telomere record whose claimed owner is
// not otherwise available to the verifier.
func RecoverPublicKey(digest [32]byte, sig []byte) (*PublicKey, error) {
	pub, err := crypto.SigToPub(digest[:], sig)
	if err != nil {
		return nil, err
	}
	return &PublicKey{pub}, nil
}

// VerifyByAddress recovers the signer of sig over digest and reports whether
// their party address matches address. Used wherever only the bech32 party
// identity (not the full public key) is on hand, such as a commitment proof
// keyed by sender/receiver address.
func VerifyByAddress(address string, digest [32]byte, sig []byte) bool {
	pub, err := RecoverPublicKey(digest, sig)
	if err != nil {
		return false
	}
	return pub.String() == address
}
