package electrum

import (
	"context"
	"fmt"
	"sync"

	"github.com/Klingon-tech/klingnet-wallet/pkg/bitcoin"
)

// Fake is an in-memory ServerPort for tests, the electrum-protocol
// counterpart of storage.NewMemory(): it lets wallet-core tests drive a
// scripted server without a real TCP connection. Callers seed it with
// headers and script-hash state, then use PushTip/PushStatus to emulate
// asynchronous server notifications.
type Fake struct {
	mu sync.Mutex

	headers []*bitcoin.Header // index i = height i
	status  map[bitcoin.Hash256]string
	history map[bitcoin.Hash256][]HistoryItem
	txs     map[bitcoin.Hash256]*bitcoin.Transaction
	proofs  map[bitcoin.Hash256]bitcoin.MerkleProof

	broadcast []*bitcoin.Transaction

	notifications chan any
}

// NewFake creates an empty Fake server.
func NewFake() *Fake {
	return &Fake{
		status:        make(map[bitcoin.Hash256]string),
		history:       make(map[bitcoin.Hash256][]HistoryItem),
		txs:           make(map[bitcoin.Hash256]*bitcoin.Transaction),
		proofs:        make(map[bitcoin.Hash256]bitcoin.MerkleProof),
		notifications: make(chan any, 64),
	}
}

// SeedHeaders appends headers to the fake's chain, starting at height 0.
func (f *Fake) SeedHeaders(headers ...*bitcoin.Header) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headers = append(f.headers, headers...)
}

// SeedTransaction registers a transaction the fake can serve via
// GetTransaction.
func (f *Fake) SeedTransaction(tx *bitcoin.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs[tx.Txid()] = tx
}

// SeedHistory sets a script hash's history and status in one step. The
// status string is stored exactly as given; the fake does not derive it
// from the history items the way a real server does.
func (f *Fake) SeedHistory(scriptHash bitcoin.Hash256, status string, items ...HistoryItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history[scriptHash] = items
	f.status[scriptHash] = status
}

// SeedProof registers the merkle proof GetMerkle should return for a
// given (txid, height) pair.
func (f *Fake) SeedProof(txid bitcoin.Hash256, height uint64, proof bitcoin.MerkleProof) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.proofs[proofKey(txid, height)] = proof
}

func proofKey(txid bitcoin.Hash256, height uint64) bitcoin.Hash256 {
	// Proofs are keyed by txid alone in practice (one confirmation height
	// per txid); height is accepted for interface symmetry with the real
	// protocol but not mixed into the key.
	_ = height
	return txid
}

// PushTip emits a TipNotification as if the server's chain advanced.
func (f *Fake) PushTip(height uint64, header *bitcoin.Header) {
	f.mu.Lock()
	f.headers = append(f.headers, header)
	f.mu.Unlock()
	f.notifications <- TipNotification{Height: height, Header: header}
}

// PushStatus emits a ScriptHashStatusNotification for scriptHash.
func (f *Fake) PushStatus(scriptHash bitcoin.Hash256, status string) {
	f.mu.Lock()
	f.status[scriptHash] = status
	f.mu.Unlock()
	f.notifications <- ScriptHashStatusNotification{ScriptHash: scriptHash, StatusString: status}
}

// Broadcasts returns the transactions submitted via BroadcastTransaction,
// in submission order.
func (f *Fake) Broadcasts() []*bitcoin.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*bitcoin.Transaction, len(f.broadcast))
	copy(out, f.broadcast)
	return out
}

func (f *Fake) SubscribeHeaders(ctx context.Context) (*HeaderSubscribeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.headers) == 0 {
		return &HeaderSubscribeResult{Height: 0, Header: nil}, nil
	}
	tip := uint64(len(f.headers) - 1)
	return &HeaderSubscribeResult{Height: tip, Header: f.headers[tip]}, nil
}

func (f *Fake) GetHeaders(ctx context.Context, req GetHeadersRequest) (*GetHeadersResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req.Start >= uint64(len(f.headers)) {
		return &GetHeadersResponse{}, nil
	}
	end := req.Start + req.Count
	if end > uint64(len(f.headers)) {
		end = uint64(len(f.headers))
	}
	return &GetHeadersResponse{Headers: f.headers[req.Start:end]}, nil
}

func (f *Fake) SubscribeScriptHash(ctx context.Context, req ScriptHashSubscribeRequest) (*ScriptHashSubscribeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &ScriptHashSubscribeResponse{
		ScriptHash: req.ScriptHash,
		Status:     f.status[req.ScriptHash],
	}, nil
}

func (f *Fake) GetScriptHashHistory(ctx context.Context, req GetScriptHashHistoryRequest) (*GetScriptHashHistoryResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.history[req.ScriptHash]
	out := make([]HistoryItem, len(items))
	copy(out, items)
	return &GetScriptHashHistoryResponse{ScriptHash: req.ScriptHash, Items: out}, nil
}

func (f *Fake) GetTransaction(ctx context.Context, req GetTransactionRequest) (*GetTransactionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.txs[req.Txid]
	if !ok {
		return nil, fmt.Errorf("electrum fake: unknown transaction %s", req.Txid)
	}
	return &GetTransactionResponse{Txid: req.Txid, Transaction: tx}, nil
}

func (f *Fake) GetMerkle(ctx context.Context, req GetMerkleRequest) (*GetMerkleResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	proof, ok := f.proofs[proofKey(req.Txid, req.Height)]
	if !ok {
		return nil, fmt.Errorf("electrum fake: no proof seeded for %s", req.Txid)
	}
	return &GetMerkleResponse{Txid: req.Txid, Height: req.Height, Proof: proof}, nil
}

func (f *Fake) BroadcastTransaction(ctx context.Context, req BroadcastTransactionRequest) (*BroadcastTransactionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcast = append(f.broadcast, req.Transaction)
	f.txs[req.Transaction.Txid()] = req.Transaction
	return &BroadcastTransactionResponse{Txid: req.Transaction.Txid()}, nil
}

func (f *Fake) Notifications() <-chan any {
	return f.notifications
}
