package keystore

import (
	"bytes"
	"testing"
)

// fastParams returns low-cost Argon2 params for fast tests.
func fastParams() EncryptionParams {
	return EncryptionParams{
		Memory:      64, // 64 KiB (minimal)
		Iterations:  1,
		Parallelism: 1,
	}
}

func TestEncryptDecrypt_Roundtrip(t *testing.T) {
	seed := []byte("a fake 64-byte BIP-39 seed used only for this test to exercise")
	password := []byte("strong-password-123")

	encrypted, err := Encrypt(seed, password, fastParams())
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	decrypted, err := Decrypt(encrypted, password)
	if err != nil {
		t.Fatalf("Decrypt() error: %v", err)
	}
	if !bytes.Equal(decrypted, seed) {
		t.Errorf("decrypted = %q, want %q", decrypted, seed)
	}
}

func TestEncryptDecrypt_WrongPassword(t *testing.T) {
	encrypted, err := Encrypt([]byte("seed bytes"), []byte("correct"), fastParams())
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	if _, err := Decrypt(encrypted, []byte("wrong")); err == nil {
		t.Fatal("Decrypt() with wrong password should fail")
	}
}

func TestEncryptDecrypt_EachEncryptionIsRandomized(t *testing.T) {
	a, err := Encrypt([]byte("seed bytes"), []byte("pass"), fastParams())
	if err != nil {
		t.Fatalf("Encrypt(): %v", err)
	}
	b, err := Encrypt([]byte("seed bytes"), []byte("pass"), fastParams())
	if err != nil {
		t.Fatalf("Encrypt(): %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("two encryptions of the same seed should differ (random salt/nonce)")
	}
}

func TestDecrypt_TooShort(t *testing.T) {
	if _, err := Decrypt([]byte("short"), []byte("pass")); err == nil {
		t.Fatal("Decrypt() on too-short input should fail")
	}
}
