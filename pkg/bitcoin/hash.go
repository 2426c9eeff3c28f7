// Package bitcoin implements the wire-level Bitcoin primitives the wallet
// core needs: block headers, merkle-branch verification, P2SH-P2WPKH
// scripts/addresses, and segwit transaction signing. It assembles these
// from lower-level crypto exactly the way the source primitives (SHA-256,
// double-SHA-256, retarget math) are assumed available per the design —
// this package is the thin layer that turns them into Bitcoin-shaped bytes.
package bitcoin

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashSize is the length of a Bitcoin hash (txid, block hash, script hash).
const HashSize = 32

// Hash256 is a double-SHA256 digest, displayed byte-reversed per Bitcoin
// convention when hex-encoded via String().
type Hash256 [HashSize]byte

// DoubleSHA256 computes SHA256(SHA256(data)).
func DoubleSHA256(data []byte) Hash256 {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second
}

// IsZero reports whether h is the all-zero hash.
func (h Hash256) IsZero() bool {
	return h == Hash256{}
}

// Bytes returns a copy of the hash in internal (little-endian) byte order.
func (h Hash256) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// String returns the byte-reversed hex string Bitcoin tooling displays
// (block explorers, RPC, Electrum) for txids and block hashes.
func (h Hash256) String() string {
	const hextable = "0123456789abcdef"
	buf := make([]byte, HashSize*2)
	for i := 0; i < HashSize; i++ {
		b := h[HashSize-1-i]
		buf[i*2] = hextable[b>>4]
		buf[i*2+1] = hextable[b&0x0f]
	}
	return string(buf)
}

// MarshalText encodes the hash as its byte-reversed hex string. Defining
// this (rather than only MarshalJSON) lets Hash256 be used as a JSON
// object key, e.g. map[Hash256]string in a persisted snapshot.
func (h Hash256) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (h *Hash256) UnmarshalText(text []byte) error {
	quoted := make([]byte, 0, len(text)+2)
	quoted = append(quoted, '"')
	quoted = append(quoted, text...)
	quoted = append(quoted, '"')
	return h.UnmarshalJSON(quoted)
}

// MarshalJSON encodes the hash as its byte-reversed hex string, the same
// form String() and every wallet-facing tool displays it in.
func (h Hash256) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes a byte-reversed hex string into a hash.
func (h *Hash256) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*h = Hash256{}
		return nil
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("bitcoin: invalid hash hex: %w", err)
	}
	if len(decoded) != HashSize {
		return fmt.Errorf("bitcoin: hash must be %d bytes, got %d", HashSize, len(decoded))
	}
	for i := 0; i < HashSize; i++ {
		h[i] = decoded[HashSize-1-i]
	}
	return nil
}

// Less provides a total order over hashes, used to sort candidate headers
// deterministically when cumulative work ties (never in practice, but it
// keeps tests and replay deterministic).
func (h Hash256) Less(o Hash256) bool {
	for i := 0; i < HashSize; i++ {
		if h[i] != o[i] {
			return h[i] < o[i]
		}
	}
	return false
}
