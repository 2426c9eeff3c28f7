package walletfsm

import (
	"context"
	"testing"
	"time"

	"github.com/Klingon-tech/klingnet-wallet/internal/chainparams"
	"github.com/Klingon-tech/klingnet-wallet/internal/electrum"
	"github.com/Klingon-tech/klingnet-wallet/internal/keyring"
	"github.com/Klingon-tech/klingnet-wallet/internal/storage"
	"github.com/Klingon-tech/klingnet-wallet/pkg/bitcoin"
)

func testFSM(t *testing.T) (*FSM, *electrum.Fake) {
	t.Helper()
	params := chainparams.TestnetParams()
	keys, err := keyring.NewFromSeed([]byte("test seed test seed test seed!!"), params)
	if err != nil {
		t.Fatalf("NewFromSeed: %v", err)
	}
	if _, err := keys.EnsureLookahead(keyring.Receive, 5); err != nil {
		t.Fatalf("lookahead receive: %v", err)
	}
	if _, err := keys.EnsureLookahead(keyring.Change, 5); err != nil {
		t.Fatalf("lookahead change: %v", err)
	}

	db := storage.NewBadgerWalletDB(storage.NewMemory())
	server := electrum.NewFake()

	f, err := New(context.Background(), server, db, keys, params, Params{
		SwipeRange:   5,
		DustLimit:    546,
		FeeRatePerKw: 1000,
	}, Events{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f, server
}

func TestFSM_ServerReadyToWaitingForTip(t *testing.T) {
	f, _ := testFSM(t)
	f.Start()
	defer f.Stop()

	if err := f.Send(ServerReady{}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	deadline := time.After(time.Second)
	for f.State() == Disconnected {
		select {
		case <-deadline:
			t.Fatal("never left DISCONNECTED")
		case <-time.After(time.Millisecond):
		}
	}
	if f.State() != WaitingForTip {
		t.Fatalf("state = %v, want WAITING_FOR_TIP", f.State())
	}
}

func TestFSM_EmptyChainReachesRunning(t *testing.T) {
	f, server := testFSM(t)
	f.Start()
	defer f.Stop()

	_ = server // empty chain: SubscribeHeaders returns height 0, nil header

	if err := f.Send(ServerReady{}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		if f.State() == Running {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("never reached RUNNING, stuck at %v", f.State())
		case <-time.After(time.Millisecond):
		}
	}
}

func TestFSM_IsReady_FalseWithPendingRequests(t *testing.T) {
	f, _ := testFSM(t)
	f.state.pendingHistoryRequests[bitcoin.Hash256{0x01}] = true
	if f.isReady() {
		t.Fatal("expected not ready with a pending history request")
	}
}

func TestCompleteTransaction_InsufficientFunds(t *testing.T) {
	f, _ := testFSM(t)
	outputs := []bitcoin.Output{{Value: 100000, ScriptPubKey: []byte{0x00}}}
	_, _, err := f.completeTransaction(outputs, []byte{0x01})
	if err != ErrInsufficientFunds {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
}

func TestCompleteTransaction_SignsSelectedInputs(t *testing.T) {
	f, _ := testFSM(t)

	k, err := f.keys.EnsureLookahead(keyring.Receive, 5)
	if err != nil || len(k) == 0 {
		t.Fatalf("EnsureLookahead: %v", err)
	}
	owner := k[0]

	fundingTx := &bitcoin.Transaction{
		Version: 2,
		Outputs: []bitcoin.Output{
			{Value: 50000, ScriptPubKey: keyOutputScript(owner)},
		},
	}
	txid := fundingTx.Txid()
	f.state.transactions[txid] = fundingTx
	f.state.heights[txid] = 100
	f.state.history[owner.ScriptHash()] = []storage.HistoryEntry{{Txid: txid, Height: 100}}

	destScript := []byte{0x00, 0x14}
	outputs := []bitcoin.Output{{Value: 10000, ScriptPubKey: destScript}}

	tx, selected, err := f.completeTransaction(outputs, []byte{0x00, 0x15})
	if err != nil {
		t.Fatalf("completeTransaction: %v", err)
	}
	if len(selected) == 0 {
		t.Fatal("expected at least one selected UTXO")
	}
	if len(tx.Inputs) != len(selected) {
		t.Fatalf("input count %d != selected count %d", len(tx.Inputs), len(selected))
	}

	if err := f.signTransaction(tx, selected); err != nil {
		t.Fatalf("signTransaction: %v", err)
	}
	for i, in := range tx.Inputs {
		if len(in.Witness) != 2 {
			t.Fatalf("input %d: witness has %d items, want 2", i, len(in.Witness))
		}
	}
}

func TestOnMerkleProof_FallsBackToPersistedHeader(t *testing.T) {
	f, _ := testFSM(t)
	f.fsmState = Running

	tx := &bitcoin.Transaction{Version: 2, Outputs: []bitcoin.Output{{Value: 1000, ScriptPubKey: []byte{0x00}}}}
	txid := tx.Txid()
	f.state.transactions[txid] = tx

	// Height 500 is outside the (empty) in-memory chain but already
	// sealed to persistent storage, as a pruned chunk would be.
	header := &bitcoin.Header{Version: 1, MerkleRoot: txid, Height: 500}
	if err := f.db.AddHeaders(500, []*bitcoin.Header{header}); err != nil {
		t.Fatalf("AddHeaders: %v", err)
	}

	f.onMerkleProof(MerkleProofMsg{Txid: txid, Height: 500, Proof: bitcoin.MerkleProof{Pos: 0}})

	if _, buffered := f.state.pendingProofs[txid]; buffered {
		t.Fatal("proof should not be buffered: header was available from persisted storage")
	}
	if _, ok := f.state.proofs[txid]; !ok {
		t.Fatal("expected proof to be recorded")
	}
}

func TestOnMerkleProof_BuffersThenReplaysOnChunkSeal(t *testing.T) {
	f, _ := testFSM(t)
	f.fsmState = Running

	tx := &bitcoin.Transaction{Version: 2, Outputs: []bitcoin.Output{{Value: 1000, ScriptPubKey: []byte{0x00}}}}
	txid := tx.Txid()
	f.state.transactions[txid] = tx

	proof := MerkleProofMsg{Txid: txid, Height: 700, Proof: bitcoin.MerkleProof{Pos: 0}}
	f.onMerkleProof(proof)

	if _, buffered := f.state.pendingProofs[txid]; !buffered {
		t.Fatal("expected proof to be buffered: height is neither in the working window nor persisted yet")
	}
	if _, ok := f.state.proofs[txid]; ok {
		t.Fatal("proof should not be recorded before its header is available")
	}

	header := &bitcoin.Header{Version: 1, MerkleRoot: txid, Height: 700}
	if err := f.db.AddHeaders(700, []*bitcoin.Header{header}); err != nil {
		t.Fatalf("AddHeaders: %v", err)
	}

	f.replayPendingProofs()

	if _, buffered := f.state.pendingProofs[txid]; buffered {
		t.Fatal("proof should have been replayed and cleared")
	}
	if _, ok := f.state.proofs[txid]; !ok {
		t.Fatal("expected proof to be recorded after replay")
	}
}

func TestIsDoubleSpent_NoTipReportsFalse(t *testing.T) {
	f, _ := testFSM(t)

	spentOutpoint := bitcoin.Outpoint{Hash: bitcoin.DoubleSHA256([]byte("parent")), Index: 0}
	confirmed := &bitcoin.Transaction{
		Version: 2,
		Inputs:  []bitcoin.Input{{PrevOutpoint: spentOutpoint}},
		Outputs: []bitcoin.Output{{Value: 1000}},
	}
	f.state.transactions[confirmed.Txid()] = confirmed
	f.state.heights[confirmed.Txid()] = 10

	candidate := &bitcoin.Transaction{
		Version: 2,
		Inputs:  []bitcoin.Input{{PrevOutpoint: spentOutpoint}},
		Outputs: []bitcoin.Output{{Value: 999}},
	}
	// A fresh testnet chain with no headers added has no tip yet, so
	// isDoubleSpent has no confirmation depth to measure against.
	if f.isDoubleSpent(candidate) {
		t.Fatal("expected false: chain has no tip to measure confirmation depth against")
	}
}
