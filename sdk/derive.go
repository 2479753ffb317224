package sdk

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/crypto"
)

// -----------------------------------------------------------------------------
// Derived addresses
// -----------------------------------------------------------------------------
//
// Every stored entity lives at an address computed from a program tag plus a
// list of seeds. The same (tag, seeds) always yields the same address, and
// every seed is length-prefixed before hashing so that adjacent variable
// length seeds can never be re-split into a colliding input
// ("ab"+"c" vs "a"+"bc" hash differently).

// Tag names the program namespace an address belongs to, e.g. "note" or
// "campaign". Tags keep different entity families out of each other's
// address space even when their seeds coincide.
type Tag string

// Derive computes the storage address for (tag, seeds). Pure and
// deterministic; callers on both sides of the wire must use the same seeds
// or they simply address a slot that does not exist.
func Derive(tag Tag, seeds ...[]byte) Address {
	buf := make([]byte, 0, 64)
	buf = appendFramed(buf, []byte(tag))
	for _, seed := range seeds {
		buf = appendFramed(buf, seed)
	}
	sum := crypto.Keccak256(buf)
	var a Address
	copy(a[:], sum)
	return a
}

// appendFramed writes a little-endian u32 length before the payload, the
// framing that makes seed concatenation unambiguous.
func appendFramed(dst, payload []byte) []byte {
	var l [4]byte
	binary.LittleEndian.PutUint32(l[:], uint32(len(payload)))
	dst = append(dst, l[:]...)
	return append(dst, payload...)
}

// SeedString frames a text seed (titles, names).
func SeedString(s string) []byte {
	return []byte(s)
}

// SeedU64 encodes numeric seeds (counter ids) as fixed 8-byte little-endian.
func SeedU64(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}

// SeedAddress frames an identity seed.
func SeedAddress(a Address) []byte {
	return a.Bytes()
}

// SeedI64 encodes signed timestamps used in message addressing.
func SeedI64(v int64) []byte {
	return SeedU64(uint64(v))
}
