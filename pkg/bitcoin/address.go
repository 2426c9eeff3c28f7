package bitcoin

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// AddressVersion selects the one-byte version prefix a network uses for
// P2SH addresses.
type AddressVersion byte

const (
	AddressVersionMainnet AddressVersion = 0x05
	AddressVersionTestnet AddressVersion = 0xc4
)

func checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:4]
}

// base58CheckEncode encodes version||payload with a trailing 4-byte
// double-SHA256 checksum, the envelope Bitcoin uses for addresses and
// extended keys alike.
func base58CheckEncode(version []byte, payload []byte) string {
	body := make([]byte, 0, len(version)+len(payload)+4)
	body = append(body, version...)
	body = append(body, payload...)
	body = append(body, checksum(body)...)
	return base58.Encode(body)
}

func base58CheckDecode(s string, versionLen int) (version, payload []byte, err error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, nil, fmt.Errorf("bitcoin: base58 decode: %w", err)
	}
	if len(raw) < versionLen+4 {
		return nil, nil, fmt.Errorf("bitcoin: base58check payload too short")
	}
	body := raw[:len(raw)-4]
	sum := raw[len(raw)-4:]
	want := checksum(body)
	for i := range want {
		if want[i] != sum[i] {
			return nil, nil, fmt.Errorf("bitcoin: base58check checksum mismatch")
		}
	}
	return body[:versionLen], body[versionLen:], nil
}

// EncodeP2SHAddress base58check-encodes a 20-byte script hash under the
// given network's P2SH version byte.
func EncodeP2SHAddress(version AddressVersion, scriptHash []byte) string {
	return base58CheckEncode([]byte{byte(version)}, scriptHash)
}

// DecodeP2SHAddress recovers the 20-byte script hash from a P2SH address,
// verifying it carries the expected network version byte.
func DecodeP2SHAddress(version AddressVersion, addr string) ([]byte, error) {
	ver, payload, err := base58CheckDecode(addr, 1)
	if err != nil {
		return nil, err
	}
	if ver[0] != byte(version) {
		return nil, fmt.Errorf("bitcoin: address version %#x does not match expected %#x", ver[0], byte(version))
	}
	if len(payload) != 20 {
		return nil, fmt.Errorf("bitcoin: P2SH payload must be 20 bytes, got %d", len(payload))
	}
	return payload, nil
}

// ExtKeyVersion selects the 4-byte version prefix for a BIP49 extended
// public key (ypub on mainnet, upub on testnet).
type ExtKeyVersion uint32

const (
	ExtKeyVersionYpub ExtKeyVersion = 0x049d7cb2
	ExtKeyVersionUpub ExtKeyVersion = 0x044a5262
)

// EncodeExtendedPublicKey base58check-encodes the standard 78-byte
// extended-key body (depth, parent fingerprint, child number, chain
// code, compressed pubkey) under a BIP49 ypub/upub version.
// parentFingerprint and childNumber are each the raw 4-byte big-endian
// fields an HD key library already carries.
func EncodeExtendedPublicKey(version ExtKeyVersion, depth byte, parentFingerprint, childNumber, chainCode, pubKey []byte) (string, error) {
	if len(parentFingerprint) != 4 {
		return "", fmt.Errorf("bitcoin: parent fingerprint must be 4 bytes, got %d", len(parentFingerprint))
	}
	if len(childNumber) != 4 {
		return "", fmt.Errorf("bitcoin: child number must be 4 bytes, got %d", len(childNumber))
	}
	if len(chainCode) != 32 {
		return "", fmt.Errorf("bitcoin: chain code must be 32 bytes, got %d", len(chainCode))
	}
	if len(pubKey) != 33 {
		return "", fmt.Errorf("bitcoin: compressed pubkey must be 33 bytes, got %d", len(pubKey))
	}
	payload := make([]byte, 0, 1+4+4+32+33)
	payload = append(payload, depth)
	payload = append(payload, parentFingerprint...)
	payload = append(payload, childNumber...)
	payload = append(payload, chainCode...)
	payload = append(payload, pubKey...)
	return base58CheckEncode(be32(uint32(version)), payload), nil
}

func be32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}
