package payment

import "testing"

func TestFullPaymentTag_DistinguishesSecretNotJustHash(t *testing.T) {
	hash := [32]byte{1, 2, 3}
	a := FullPaymentTag{PaymentHash: hash, PaymentSecret: [32]byte{0xaa}, Tag: Local}
	b := FullPaymentTag{PaymentHash: hash, PaymentSecret: [32]byte{0xbb}, Tag: Local}
	if a == b {
		t.Fatal("tags with different payment secrets must not be equal, even sharing a hash")
	}
}

func TestFullPaymentTag_UsableAsMapKey(t *testing.T) {
	m := map[FullPaymentTag]int{}
	tag := FullPaymentTag{PaymentHash: [32]byte{9}, PaymentSecret: [32]byte{9}, Tag: Trampoline}
	m[tag] = 1
	m[tag]++
	if m[tag] != 2 {
		t.Fatalf("m[tag] = %d, want 2", m[tag])
	}
}

func TestTag_String(t *testing.T) {
	if Local.String() != "LOCAL" {
		t.Fatalf("Local.String() = %q", Local.String())
	}
	if Trampoline.String() != "TRAMPOLINE" {
		t.Fatalf("Trampoline.String() = %q", Trampoline.String())
	}
}
