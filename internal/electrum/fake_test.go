package electrum

import (
	"context"
	"testing"
	"time"

	"github.com/Klingon-tech/klingnet-wallet/pkg/bitcoin"
)

func sampleHeader(height uint32) *bitcoin.Header {
	return &bitcoin.Header{
		Version:   1,
		Timestamp: 1600000000 + height,
		Bits:      0x1d00ffff,
		Nonce:     height,
	}
}

func TestFake_SubscribeHeaders_EmptyChain(t *testing.T) {
	f := NewFake()
	res, err := f.SubscribeHeaders(context.Background())
	if err != nil {
		t.Fatalf("SubscribeHeaders: %v", err)
	}
	if res.Height != 0 || res.Header != nil {
		t.Fatalf("empty chain should report height 0, nil header, got %+v", res)
	}
}

func TestFake_SeedAndGetHeaders(t *testing.T) {
	f := NewFake()
	h0, h1, h2 := sampleHeader(0), sampleHeader(1), sampleHeader(2)
	f.SeedHeaders(h0, h1, h2)

	res, err := f.GetHeaders(context.Background(), GetHeadersRequest{Start: 1, Count: 5})
	if err != nil {
		t.Fatalf("GetHeaders: %v", err)
	}
	if len(res.Headers) != 2 {
		t.Fatalf("got %d headers, want 2 (clamped at chain length)", len(res.Headers))
	}
}

func TestFake_SubscribeAndPushStatus(t *testing.T) {
	f := NewFake()
	scriptHash := bitcoin.DoubleSHA256([]byte("addr"))

	sub, err := f.SubscribeScriptHash(context.Background(), ScriptHashSubscribeRequest{ScriptHash: scriptHash})
	if err != nil {
		t.Fatalf("SubscribeScriptHash: %v", err)
	}
	if sub.Status != "" {
		t.Fatalf("unused script hash should report empty status, got %q", sub.Status)
	}

	f.PushStatus(scriptHash, "abc123")

	select {
	case n := <-f.Notifications():
		sn, ok := n.(ScriptHashStatusNotification)
		if !ok || sn.StatusString != "abc123" {
			t.Fatalf("unexpected notification %+v", n)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a status notification")
	}
}

func TestFake_BroadcastTransaction_RecordsAndMakesRetrievable(t *testing.T) {
	f := NewFake()
	tx := &bitcoin.Transaction{Version: 1, LockTime: 0}
	res, err := f.BroadcastTransaction(context.Background(), BroadcastTransactionRequest{Transaction: tx})
	if err != nil {
		t.Fatalf("BroadcastTransaction: %v", err)
	}
	if res.Txid != tx.Txid() {
		t.Fatalf("broadcast returned wrong txid")
	}
	if len(f.Broadcasts()) != 1 {
		t.Fatalf("expected 1 recorded broadcast")
	}
	got, err := f.GetTransaction(context.Background(), GetTransactionRequest{Txid: tx.Txid()})
	if err != nil {
		t.Fatalf("GetTransaction after broadcast: %v", err)
	}
	if got.Transaction.Txid() != tx.Txid() {
		t.Fatal("broadcast transaction not retrievable")
	}
}

func TestFake_GetTransaction_UnknownTxidErrors(t *testing.T) {
	f := NewFake()
	if _, err := f.GetTransaction(context.Background(), GetTransactionRequest{}); err == nil {
		t.Fatal("expected error for unseeded txid")
	}
}

func TestFake_GetMerkle_UnknownProofErrors(t *testing.T) {
	f := NewFake()
	if _, err := f.GetMerkle(context.Background(), GetMerkleRequest{}); err == nil {
		t.Fatal("expected error for unseeded proof")
	}
}

func TestFake_SeedHistory_RoundTrips(t *testing.T) {
	f := NewFake()
	scriptHash := bitcoin.DoubleSHA256([]byte("addr"))
	txid := bitcoin.DoubleSHA256([]byte("tx"))
	f.SeedHistory(scriptHash, "status1", HistoryItem{Txid: txid, Height: 100})

	res, err := f.GetScriptHashHistory(context.Background(), GetScriptHashHistoryRequest{ScriptHash: scriptHash})
	if err != nil {
		t.Fatalf("GetScriptHashHistory: %v", err)
	}
	if len(res.Items) != 1 || res.Items[0].Txid != txid {
		t.Fatalf("history mismatch: %+v", res.Items)
	}
}
