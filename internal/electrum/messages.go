// Package electrum defines the abstracted Electrum-style server protocol
// the wallet core speaks: request/response shapes, asynchronous server
// notifications, and a ServerPort the core depends on as an interface so
// the concrete transport (TCP/TLS to a real Electrum server) stays
// swappable, mirroring how the daemon's own RPC layer never has callers
// reach past its param/result structs.
package electrum

import "github.com/Klingon-tech/klingnet-wallet/pkg/bitcoin"

// GetHeadersRequest asks the server for a run of headers starting at a
// given height.
type GetHeadersRequest struct {
	Start uint64
	Count uint64
}

// GetHeadersResponse carries the headers the server returned, which may
// be fewer than requested if the server's tip is closer than Start+Count.
type GetHeadersResponse struct {
	Headers []*bitcoin.Header
}

// ScriptHashSubscribeRequest subscribes to status notifications for a
// single script hash.
type ScriptHashSubscribeRequest struct {
	ScriptHash bitcoin.Hash256
}

// ScriptHashSubscribeResponse carries the script hash's current status
// string at subscription time (empty string means "never used").
type ScriptHashSubscribeResponse struct {
	ScriptHash bitcoin.Hash256
	Status     string
}

// GetScriptHashHistoryRequest asks for the ordered (txid, height) history
// of a script hash.
type GetScriptHashHistoryRequest struct {
	ScriptHash bitcoin.Hash256
}

// HistoryItem is one entry in a script hash's history. Height <= 0 means
// unconfirmed, per Electrum convention (0 = mempool, no parent
// unconfirmed; -1 = mempool, has an unconfirmed parent).
type HistoryItem struct {
	Txid   bitcoin.Hash256
	Height int64
}

// GetScriptHashHistoryResponse carries a script hash's full history.
type GetScriptHashHistoryResponse struct {
	ScriptHash bitcoin.Hash256
	Items      []HistoryItem
}

// GetTransactionRequest asks for the raw bytes of a single transaction.
type GetTransactionRequest struct {
	Txid bitcoin.Hash256
}

// GetTransactionResponse carries the decoded transaction.
type GetTransactionResponse struct {
	Txid        bitcoin.Hash256
	Transaction *bitcoin.Transaction
}

// GetMerkleRequest asks for the merkle branch proving a transaction's
// inclusion in the block at Height.
type GetMerkleRequest struct {
	Txid   bitcoin.Hash256
	Height uint64
}

// GetMerkleResponse carries the proof and the leaf's position, so the
// core can verify it against the header it already has for Height.
type GetMerkleResponse struct {
	Txid   bitcoin.Hash256
	Height uint64
	Proof  bitcoin.MerkleProof
}

// BroadcastTransactionRequest submits a fully-signed transaction.
type BroadcastTransactionRequest struct {
	Transaction *bitcoin.Transaction
}

// BroadcastTransactionResponse carries the accepted transaction's txid,
// or an error from the port call if the server rejected it.
type BroadcastTransactionResponse struct {
	Txid bitcoin.Hash256
}

// TipNotification is pushed by the server whenever its chain tip advances,
// once the wallet has an active header subscription.
type TipNotification struct {
	Height uint64
	Header *bitcoin.Header
}

// ScriptHashStatusNotification is pushed whenever a subscribed script
// hash's status changes. StatusString is opaque except for the
// empty-string sentinel.
type ScriptHashStatusNotification struct {
	ScriptHash   bitcoin.Hash256
	StatusString string
}
