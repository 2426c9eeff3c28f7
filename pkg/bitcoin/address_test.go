package bitcoin

import "testing"

func TestP2SHAddress_RoundTrip(t *testing.T) {
	scriptHash := make([]byte, 20)
	for i := range scriptHash {
		scriptHash[i] = byte(i)
	}

	for _, ver := range []AddressVersion{AddressVersionMainnet, AddressVersionTestnet} {
		addr := EncodeP2SHAddress(ver, scriptHash)
		got, err := DecodeP2SHAddress(ver, addr)
		if err != nil {
			t.Fatalf("DecodeP2SHAddress(%#x): %v", ver, err)
		}
		if string(got) != string(scriptHash) {
			t.Fatalf("round trip mismatch for version %#x", ver)
		}
	}
}

func TestDecodeP2SHAddress_WrongVersion(t *testing.T) {
	scriptHash := make([]byte, 20)
	addr := EncodeP2SHAddress(AddressVersionMainnet, scriptHash)
	if _, err := DecodeP2SHAddress(AddressVersionTestnet, addr); err == nil {
		t.Fatal("expected version mismatch error")
	}
}

func TestDecodeP2SHAddress_CorruptedChecksum(t *testing.T) {
	scriptHash := make([]byte, 20)
	addr := EncodeP2SHAddress(AddressVersionMainnet, scriptHash)
	corrupted := addr[:len(addr)-1] + "z"
	if _, err := DecodeP2SHAddress(AddressVersionMainnet, corrupted); err == nil {
		t.Fatal("expected checksum error for corrupted address")
	}
}

func TestEncodeExtendedPublicKey_RejectsBadLengths(t *testing.T) {
	zero4 := make([]byte, 4)
	if _, err := EncodeExtendedPublicKey(ExtKeyVersionYpub, 0, zero4, zero4, make([]byte, 31), make([]byte, 33)); err == nil {
		t.Fatal("expected error for short chain code")
	}
	if _, err := EncodeExtendedPublicKey(ExtKeyVersionYpub, 0, zero4, zero4, make([]byte, 32), make([]byte, 32)); err == nil {
		t.Fatal("expected error for short pubkey")
	}
	if _, err := EncodeExtendedPublicKey(ExtKeyVersionYpub, 0, make([]byte, 3), zero4, make([]byte, 32), make([]byte, 33)); err == nil {
		t.Fatal("expected error for short fingerprint")
	}
}

func TestEncodeExtendedPublicKey_Deterministic(t *testing.T) {
	zero4 := make([]byte, 4)
	chainCode := make([]byte, 32)
	pubKey := make([]byte, 33)
	pubKey[0] = 0x02
	a, err := EncodeExtendedPublicKey(ExtKeyVersionYpub, 1, zero4, zero4, chainCode, pubKey)
	if err != nil {
		t.Fatalf("EncodeExtendedPublicKey: %v", err)
	}
	b, _ := EncodeExtendedPublicKey(ExtKeyVersionYpub, 1, zero4, zero4, chainCode, pubKey)
	if a != b {
		t.Fatal("encoding must be deterministic for the same inputs")
	}
	c, _ := EncodeExtendedPublicKey(ExtKeyVersionUpub, 1, zero4, zero4, chainCode, pubKey)
	if a == c {
		t.Fatal("ypub and upub encodings of the same key must differ")
	}
}
