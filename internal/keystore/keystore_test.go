package keystore

import "testing"

func TestKeystore_CreateAndLoad(t *testing.T) {
	dir := t.TempDir()
	ks, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	seed := []byte("a fake seed used only for this test")
	if err := ks.Create("testnet", seed, []byte("pw"), fastParams()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := ks.Load([]byte("pw"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(got) != string(seed) {
		t.Fatalf("Load = %q, want %q", got, seed)
	}

	net, err := ks.Network()
	if err != nil {
		t.Fatalf("Network: %v", err)
	}
	if net != "testnet" {
		t.Fatalf("Network() = %q, want testnet", net)
	}
}

func TestKeystore_CreateRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	ks, _ := New(dir)
	if err := ks.Create("testnet", []byte("seed1"), []byte("pw"), fastParams()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := ks.Create("testnet", []byte("seed2"), []byte("pw"), fastParams()); err == nil {
		t.Fatal("Create() on an existing seed file should fail")
	}
}

func TestKeystore_LoadWrongPassword(t *testing.T) {
	dir := t.TempDir()
	ks, _ := New(dir)
	if err := ks.Create("mainnet", []byte("seed"), []byte("right"), fastParams()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := ks.Load([]byte("wrong")); err == nil {
		t.Fatal("Load() with wrong password should fail")
	}
}

func TestKeystore_ExistsAndDelete(t *testing.T) {
	dir := t.TempDir()
	ks, _ := New(dir)
	if ks.Exists() {
		t.Fatal("Exists() should be false before Create")
	}
	if err := ks.Create("mainnet", []byte("seed"), []byte("pw"), fastParams()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !ks.Exists() {
		t.Fatal("Exists() should be true after Create")
	}
	if err := ks.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ks.Exists() {
		t.Fatal("Exists() should be false after Delete")
	}
}

func TestKeystore_DeleteMissing(t *testing.T) {
	dir := t.TempDir()
	ks, _ := New(dir)
	if err := ks.Delete(); err == nil {
		t.Fatal("Delete() with no seed file should fail")
	}
}
