// Package walletfsm implements Core A: the single-threaded wallet state
// machine that tracks a BIP49 header chain and key set against one
// Electrum-style server, selects coins, and signs outgoing transactions.
package walletfsm

import (
	"github.com/Klingon-tech/klingnet-wallet/internal/storage"
	"github.com/Klingon-tech/klingnet-wallet/pkg/bitcoin"
)

// State is one of the four wallet connection states.
type State int

const (
	Disconnected State = iota
	WaitingForTip
	Syncing
	Running
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "DISCONNECTED"
	case WaitingForTip:
		return "WAITING_FOR_TIP"
	case Syncing:
		return "SYNCING"
	case Running:
		return "RUNNING"
	default:
		return "UNKNOWN"
	}
}

// ReadyMessage is the event published whenever the wallet transitions
// into (or materially changes within) the RUNNING ready set.
type ReadyMessage struct {
	Height          uint64
	AccountKeyCount int
	ChangeKeyCount  int
}

// Equal reports whether two ready messages describe the same ready set,
// used to decide whether re-publishing WalletReady is warranted.
func (r ReadyMessage) Equal(other ReadyMessage) bool {
	return r == other
}

// walletState holds everything the FSM needs beyond the header chain and
// key ring, held in memory and mirrored to
// storage.PersistentData on every significant transition.
type walletState struct {
	status       map[bitcoin.Hash256]string
	transactions map[bitcoin.Hash256]*bitcoin.Transaction
	heights      map[bitcoin.Hash256]int64
	history      map[bitcoin.Hash256][]storage.HistoryEntry
	proofs       map[bitcoin.Hash256]storage.ProofRecord

	pendingHistoryRequests     map[bitcoin.Hash256]bool
	pendingTransactionRequests map[bitcoin.Hash256]bool
	pendingHeadersRequests     map[headersRange]bool
	pendingTransactions        []*bitcoin.Transaction

	// pendingProofs holds a MerkleProofMsg whose header is neither in
	// the working window nor yet sealed to persistent storage, keyed by
	// txid, replayed once a later chunk seal makes it available.
	pendingProofs map[bitcoin.Hash256]MerkleProofMsg

	lastReady *ReadyMessage
}

type headersRange struct {
	Start uint64
	Count uint64
}

func newWalletState() *walletState {
	return &walletState{
		status:                     make(map[bitcoin.Hash256]string),
		transactions:               make(map[bitcoin.Hash256]*bitcoin.Transaction),
		heights:                    make(map[bitcoin.Hash256]int64),
		history:                    make(map[bitcoin.Hash256][]storage.HistoryEntry),
		proofs:                     make(map[bitcoin.Hash256]storage.ProofRecord),
		pendingHistoryRequests:     make(map[bitcoin.Hash256]bool),
		pendingTransactionRequests: make(map[bitcoin.Hash256]bool),
		pendingHeadersRequests:     make(map[headersRange]bool),
		pendingProofs:              make(map[bitcoin.Hash256]MerkleProofMsg),
	}
}

// fromPersistentData replaces the in-memory maps with a loaded snapshot,
// called once at startup after storage.WalletDB.ReadPersistentData.
func (s *walletState) fromPersistentData(data *storage.PersistentData) {
	if data.Status != nil {
		s.status = data.Status
	}
	if data.Transactions != nil {
		s.transactions = data.Transactions
	}
	if data.Heights != nil {
		s.heights = data.Heights
	}
	if data.History != nil {
		s.history = data.History
	}
	if data.Proofs != nil {
		s.proofs = data.Proofs
	}
	s.pendingTransactions = append([]*bitcoin.Transaction(nil), data.PendingTransactions...)
}

// snapshot builds the storage.PersistentData to persist, taking the
// current key counts from the caller since the key ring lives outside
// walletState.
func (s *walletState) snapshot(accountKeyCount, changeKeyCount uint32) *storage.PersistentData {
	return &storage.PersistentData{
		AccountKeysCount:    accountKeyCount,
		ChangeKeysCount:     changeKeyCount,
		Status:              s.status,
		Transactions:        s.transactions,
		Heights:             s.heights,
		History:             s.history,
		Proofs:              s.proofs,
		PendingTransactions: s.pendingTransactions,
	}
}

// clearPending drops every in-flight request set, the reaction to a
// Disconnected message from any state.
func (s *walletState) clearPending() {
	s.pendingHistoryRequests = make(map[bitcoin.Hash256]bool)
	s.pendingTransactionRequests = make(map[bitcoin.Hash256]bool)
	s.pendingHeadersRequests = make(map[headersRange]bool)
	s.pendingProofs = make(map[bitcoin.Hash256]MerkleProofMsg)
	s.lastReady = nil
}
