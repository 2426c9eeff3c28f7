package storage

import (
	"math/big"
	"testing"

	"github.com/Klingon-tech/klingnet-wallet/pkg/bitcoin"
)

func sampleHeader(height uint64) *bitcoin.Header {
	return &bitcoin.Header{
		Version:   1,
		Timestamp: 1_600_000_000 + uint32(height)*600,
		Bits:      0x207fffff,
		Height:    height,
		Chainwork: big.NewInt(int64(height) + 1),
	}
}

func TestBadgerWalletDB_AddAndGetHeaders(t *testing.T) {
	wdb := NewBadgerWalletDB(NewMemory())
	headers := []*bitcoin.Header{sampleHeader(10), sampleHeader(11), sampleHeader(12)}
	if err := wdb.AddHeaders(10, headers); err != nil {
		t.Fatalf("AddHeaders: %v", err)
	}

	got, err := wdb.GetHeaders(10, 3)
	if err != nil {
		t.Fatalf("GetHeaders: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(got) = %d, want 3", len(got))
	}
	for i, h := range got {
		if h.Height != uint64(10+i) {
			t.Fatalf("got[%d].Height = %d, want %d", i, h.Height, 10+i)
		}
		if h.Chainwork.Cmp(headers[i].Chainwork) != 0 {
			t.Fatalf("got[%d].Chainwork = %s, want %s", i, h.Chainwork, headers[i].Chainwork)
		}
	}
}

func TestBadgerWalletDB_GetHeaders_StopsAtGap(t *testing.T) {
	wdb := NewBadgerWalletDB(NewMemory())
	if err := wdb.AddHeaders(0, []*bitcoin.Header{sampleHeader(0), sampleHeader(1)}); err != nil {
		t.Fatalf("AddHeaders: %v", err)
	}
	got, err := wdb.GetHeaders(0, 10)
	if err != nil {
		t.Fatalf("GetHeaders: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2 (should stop at the gap after height 1)", len(got))
	}
}

func TestBadgerWalletDB_GetHeader_Missing(t *testing.T) {
	wdb := NewBadgerWalletDB(NewMemory())
	if _, err := wdb.GetHeader(5); err == nil {
		t.Fatal("expected error for a missing header")
	}
}

func TestBadgerWalletDB_PersistentData_RoundTrip(t *testing.T) {
	wdb := NewBadgerWalletDB(NewMemory())

	empty, err := wdb.ReadPersistentData()
	if err != nil {
		t.Fatalf("ReadPersistentData (empty): %v", err)
	}
	if empty.AccountKeysCount != 0 || len(empty.Status) != 0 {
		t.Fatal("ReadPersistentData before any Persist should return an empty snapshot")
	}

	data := NewPersistentData()
	data.AccountKeysCount = 5
	data.ChangeKeysCount = 3
	sh := bitcoin.Hash256{0xaa}
	data.Status[sh] = "deadbeef"
	data.History[sh] = []HistoryEntry{{Txid: bitcoin.Hash256{0xbb}, Height: 100}}

	if err := wdb.Persist(data); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	got, err := wdb.ReadPersistentData()
	if err != nil {
		t.Fatalf("ReadPersistentData: %v", err)
	}
	if got.AccountKeysCount != 5 || got.ChangeKeysCount != 3 {
		t.Fatalf("round-tripped counts = (%d, %d), want (5, 3)", got.AccountKeysCount, got.ChangeKeysCount)
	}
	if got.Status[sh] != "deadbeef" {
		t.Fatalf("round-tripped status = %q, want deadbeef", got.Status[sh])
	}
	if len(got.History[sh]) != 1 || got.History[sh][0].Height != 100 {
		t.Fatalf("round-tripped history = %+v", got.History[sh])
	}
}
