package sdk

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
)

// AddressLength is the fixed size of every on-ledger identity and storage slot.
// An address is either an ed25519 public key (a wallet) or a derived slot id.
const AddressLength = 32

// Address identifies a wallet or a storage slot. The zero value is not a
// valid address anywhere in the system.
type Address [AddressLength]byte

// ZeroAddress is the all-zeroes sentinel used for "no address".
var ZeroAddress Address

// String returns the base58 form used in logs and transport.
// Example: sdk.Address{0x1}.String()
func (a Address) String() string {
	return base58.Encode(a[:])
}

// Bytes exposes the raw 32 bytes for hashing and key building.
func (a Address) Bytes() []byte {
	return a[:]
}

// IsZero reports whether the address is the unset sentinel.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Less orders addresses lexicographically, used for sorted participant pairs.
func (a Address) Less(b Address) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

// AddressFromString parses the base58 text form back into an Address.
// Example: sdk.AddressFromString("7f8a...")
func AddressFromString(s string) (Address, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return ZeroAddress, fmt.Errorf("decode address %q: %w", s, err)
	}
	return AddressFromBytes(raw)
}

// AddressFromBytes wraps a raw 32-byte slice, rejecting any other length.
func AddressFromBytes(raw []byte) (Address, error) {
	if len(raw) != AddressLength {
		return ZeroAddress, fmt.Errorf("address must be %d bytes, got %d", AddressLength, len(raw))
	}
	var a Address
	copy(a[:], raw)
	return a, nil
}

// MarshalText makes addresses readable inside JSON-encoded records.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses the base58 form so records round-trip through JSON.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := AddressFromString(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Keypair holds a signing identity. The public key doubles as the wallet
// address, keeping identities at the same fixed 32 bytes as storage slots.
type Keypair struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// NewKeypair generates a fresh ed25519 identity.
func NewKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return &Keypair{pub: pub, priv: priv}, nil
}

// KeypairFromSeed rebuilds a deterministic identity from a 32-byte seed,
// handy for tests that need stable addresses.
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Keypair{pub: priv.Public().(ed25519.PublicKey), priv: priv}, nil
}

// Address returns the wallet address of this identity.
func (kp *Keypair) Address() Address {
	var a Address
	copy(a[:], kp.pub)
	return a
}

// Seed returns the 32-byte private seed, the input KeypairFromSeed expects.
func (kp *Keypair) Seed() []byte {
	return kp.priv.Seed()
}

// Sign produces a detached ed25519 signature over msg.
func (kp *Keypair) Sign(msg []byte) []byte {
	return ed25519.Sign(kp.priv, msg)
}

// Verify checks a detached signature against the signer address. A zero or
// malformed address never verifies.
func Verify(signer Address, msg, sig []byte) bool {
	if signer.IsZero() || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(signer[:]), msg, sig)
}
