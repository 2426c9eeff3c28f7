package bitcoin

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// HeaderSize is the fixed 80-byte wire size of a Bitcoin block header.
const HeaderSize = 80

// Header is a raw 80-byte Bitcoin block header, enriched with the
// out-of-band height and cumulative chainwork the wallet tracks once the
// header is accepted onto the active chain.
type Header struct {
	Version    int32
	PrevHash   Hash256
	MerkleRoot Hash256
	Timestamp  uint32
	Bits       uint32 // compact difficulty target ("nBits")
	Nonce      uint32

	Height   uint64
	Chainwork *big.Int
}

// Serialize returns the canonical 80-byte wire encoding, used both for
// hashing and for re-serializing a chunk to disk.
func (h *Header) Serialize() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.Version))
	copy(buf[4:36], h.PrevHash[:])
	copy(buf[36:68], h.MerkleRoot[:])
	binary.LittleEndian.PutUint32(buf[68:72], h.Timestamp)
	binary.LittleEndian.PutUint32(buf[72:76], h.Bits)
	binary.LittleEndian.PutUint32(buf[76:80], h.Nonce)
	return buf
}

// ParseHeader decodes an 80-byte wire header. Height/Chainwork are not
// part of the wire format and are left zero; the caller fills them in
// once the header's position on the chain is known.
func ParseHeader(b []byte) (*Header, error) {
	if len(b) != HeaderSize {
		return nil, fmt.Errorf("bitcoin: header must be %d bytes, got %d", HeaderSize, len(b))
	}
	h := &Header{
		Version:   int32(binary.LittleEndian.Uint32(b[0:4])),
		Timestamp: binary.LittleEndian.Uint32(b[68:72]),
		Bits:      binary.LittleEndian.Uint32(b[72:76]),
		Nonce:     binary.LittleEndian.Uint32(b[76:80]),
	}
	copy(h.PrevHash[:], b[4:36])
	copy(h.MerkleRoot[:], b[36:68])
	return h, nil
}

// Hash returns the block hash: double-SHA256 of the 80-byte serialization.
func (h *Header) Hash() Hash256 {
	return DoubleSHA256(h.Serialize())
}

var maxTarget = func() *big.Int {
	// 2^224 - 1, the genesis-era Bitcoin maximum target (bits 0x1d00ffff).
	t := new(big.Int).Lsh(big.NewInt(1), 224)
	return t.Sub(t, big.NewInt(1))
}()

// BitsToTarget expands the compact "nBits" representation into a full
// 256-bit target.
func BitsToTarget(bits uint32) *big.Int {
	exponent := bits >> 24
	mantissa := bits & 0x007fffff
	target := new(big.Int).SetUint64(uint64(mantissa))
	if exponent <= 3 {
		shift := uint(8 * (3 - exponent))
		return target.Rsh(target, shift)
	}
	shift := uint(8 * (exponent - 3))
	return target.Lsh(target, shift)
}

// TargetToBits compresses a 256-bit target into the compact "nBits" form,
// clamped so the result never exceeds the network's maximum target.
func TargetToBits(target *big.Int) uint32 {
	if target.Sign() <= 0 {
		return 0
	}
	if target.Cmp(maxTarget) > 0 {
		target = maxTarget
	}
	bytes := target.Bytes()
	exponent := len(bytes)
	var mantissa uint32
	switch {
	case exponent <= 3:
		var padded [3]byte
		copy(padded[3-exponent:], bytes)
		mantissa = uint32(padded[0])<<16 | uint32(padded[1])<<8 | uint32(padded[2])
	default:
		mantissa = uint32(bytes[0])<<16 | uint32(bytes[1])<<8 | uint32(bytes[2])
	}
	// If the high bit of the mantissa is set it would be read as a sign bit;
	// shift right by a byte and bump the exponent, matching Bitcoin Core.
	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}
	return uint32(exponent)<<24 | mantissa
}

// Work returns the amount of proof-of-work represented by this target:
// floor(2^256 / (target + 1)), the same definition Bitcoin Core uses for
// per-block chainwork contribution.
func Work(bits uint32) *big.Int {
	target := BitsToTarget(bits)
	if target.Sign() <= 0 {
		return big.NewInt(0)
	}
	numerator := new(big.Int).Lsh(big.NewInt(1), 256)
	denom := new(big.Int).Add(target, big.NewInt(1))
	return numerator.Div(numerator, denom)
}

// MeetsTarget reports whether the header's hash satisfies its own stated
// difficulty bits, reading the hash as a little-endian 256-bit integer as
// Bitcoin does.
func (h *Header) MeetsTarget() bool {
	hash := h.Hash()
	// Bitcoin compares the hash as a little-endian integer; reverse bytes
	// to treat it as big-endian for big.Int, matching Bitcoin Core's
	// internal arith_uint256 semantics.
	reversed := make([]byte, HashSize)
	for i := 0; i < HashSize; i++ {
		reversed[i] = hash[HashSize-1-i]
	}
	hashInt := new(big.Int).SetBytes(reversed)
	return hashInt.Cmp(BitsToTarget(h.Bits)) <= 0
}
