package walletfsm

import (
	"github.com/Klingon-tech/klingnet-wallet/internal/electrum"
	"github.com/Klingon-tech/klingnet-wallet/pkg/bitcoin"
)

// Message is the sum type of everything the wallet FSM's mailbox
// accepts. Each concrete type below corresponds to one row of the
// (state, message) transition table.
type Message interface {
	isWalletMessage()
}

// ServerReady fires once the transport has connected to the server.
type ServerReady struct{}

func (ServerReady) isWalletMessage() {}

// TipNotificationMsg carries a new tip announced by the server, either
// as the initial SubscribeHeaders reply or an async push.
type TipNotificationMsg struct {
	Height uint64
	Header *bitcoin.Header
}

func (TipNotificationMsg) isWalletMessage() {}

// HeadersResponseMsg carries the reply to a GetHeaders request. Empty
// Headers means the server has nothing more to send for this range.
type HeadersResponseMsg struct {
	Start   uint64
	Headers []*bitcoin.Header
}

func (HeadersResponseMsg) isWalletMessage() {}

// ScriptHashStatusMsg carries a status push or subscribe reply for one
// script hash.
type ScriptHashStatusMsg struct {
	ScriptHash bitcoin.Hash256
	Status     string
}

func (ScriptHashStatusMsg) isWalletMessage() {}

// HistoryResponseMsg carries a script hash's full history as the server
// reports it. The FSM merges it into what it had: entries missing from
// Items are kept.
type HistoryResponseMsg struct {
	ScriptHash bitcoin.Hash256
	Items      []electrum.HistoryItem
}

func (HistoryResponseMsg) isWalletMessage() {}

// TransactionResponseMsg carries a decoded transaction the FSM requested.
type TransactionResponseMsg struct {
	Txid        bitcoin.Hash256
	Transaction *bitcoin.Transaction
}

func (TransactionResponseMsg) isWalletMessage() {}

// MerkleProofMsg carries a Merkle-proof response for a confirmed
// transaction.
type MerkleProofMsg struct {
	Txid   bitcoin.Hash256
	Height uint64
	Proof  bitcoin.MerkleProof
}

func (MerkleProofMsg) isWalletMessage() {}

// DisconnectedMsg fires when the transport drops the server connection,
// from any state.
type DisconnectedMsg struct {
	Reason error
}

func (DisconnectedMsg) isWalletMessage() {}
