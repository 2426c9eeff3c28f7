package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/Klingon-tech/klingnet-wallet/pkg/bitcoin"
)

// HistoryEntry is one (txid, height) pair in a script hash's history,
// using the Electrum height convention: h>0 confirmed at
// block h, 0 unconfirmed with confirmed inputs, -1 unconfirmed with an
// unconfirmed input.
type HistoryEntry struct {
	Txid   bitcoin.Hash256 `json:"txid"`
	Height int64           `json:"height"`
}

// ProofRecord is a stored Merkle-proof response, tied to the header
// height it was verified against.
type ProofRecord struct {
	Height uint64             `json:"height"`
	Proof  bitcoin.MerkleProof `json:"proof"`
}

// PersistentData is the full wallet-state snapshot WalletDB persists on
// every significant FSM transition.
type PersistentData struct {
	AccountKeysCount uint32 `json:"account_keys_count"`
	ChangeKeysCount  uint32 `json:"change_keys_count"`

	Status              map[bitcoin.Hash256]string             `json:"status"`
	Transactions        map[bitcoin.Hash256]*bitcoin.Transaction `json:"transactions"`
	Heights             map[bitcoin.Hash256]int64              `json:"heights"`
	History             map[bitcoin.Hash256][]HistoryEntry     `json:"history"`
	Proofs              map[bitcoin.Hash256]ProofRecord        `json:"proofs"`
	PendingTransactions []*bitcoin.Transaction                 `json:"pending_transactions"`
}

// NewPersistentData returns an empty snapshot with initialized maps,
// the shape a brand-new wallet persists before its first sync.
func NewPersistentData() *PersistentData {
	return &PersistentData{
		Status:       make(map[bitcoin.Hash256]string),
		Transactions: make(map[bitcoin.Hash256]*bitcoin.Transaction),
		Heights:      make(map[bitcoin.Hash256]int64),
		History:      make(map[bitcoin.Hash256][]HistoryEntry),
		Proofs:       make(map[bitcoin.Hash256]ProofRecord),
	}
}

// WalletDB is the bag interface Core A persists header chunks and wallet
// state through.
type WalletDB interface {
	GetHeaders(start, max uint64) ([]*bitcoin.Header, error)
	AddHeaders(start uint64, headers []*bitcoin.Header) error
	GetHeader(height uint64) (*bitcoin.Header, error)
	ReadPersistentData() (*PersistentData, error)
	Persist(data *PersistentData) error
}

const (
	headerKeyPrefix     = "hdr/"
	persistentStateKey  = "state"
)

func headerKey(height uint64) []byte {
	key := make([]byte, len(headerKeyPrefix)+8)
	copy(key, headerKeyPrefix)
	binary.BigEndian.PutUint64(key[len(headerKeyPrefix):], height)
	return key
}

// headerRecord carries the fields bitcoin.Header.Serialize() omits
// (Height, Chainwork) alongside the 80-byte wire header.
type headerRecord struct {
	Wire      []byte `json:"wire"`
	Height    uint64 `json:"height"`
	Chainwork string `json:"chainwork"` // big.Int decimal string
}

// BadgerWalletDB implements WalletDB on top of a DB (typically a
// PrefixDB-scoped BadgerDB), storing sealed header chunks one header per
// key and the wallet snapshot as a single JSON blob, following the
// teacher's keystore.go convention of JSON-on-disk for structured state.
type BadgerWalletDB struct {
	db DB
}

// NewBadgerWalletDB wraps db as a WalletDB.
func NewBadgerWalletDB(db DB) *BadgerWalletDB {
	return &BadgerWalletDB{db: db}
}

// AddHeaders persists headers starting at height start, one key per
// header, so GetHeaders can later slice an arbitrary contiguous range
// without decoding the whole chunk.
func (w *BadgerWalletDB) AddHeaders(start uint64, headers []*bitcoin.Header) error {
	batch, ok := w.db.(Batcher)
	if ok {
		b := batch.NewBatch()
		for i, h := range headers {
			rec, err := encodeHeaderRecord(h)
			if err != nil {
				return err
			}
			if err := b.Put(headerKey(start+uint64(i)), rec); err != nil {
				return err
			}
		}
		return b.Commit()
	}
	for i, h := range headers {
		rec, err := encodeHeaderRecord(h)
		if err != nil {
			return err
		}
		if err := w.db.Put(headerKey(start+uint64(i)), rec); err != nil {
			return err
		}
	}
	return nil
}

// GetHeader returns the header stored at height, if any.
func (w *BadgerWalletDB) GetHeader(height uint64) (*bitcoin.Header, error) {
	raw, err := w.db.Get(headerKey(height))
	if err != nil {
		return nil, fmt.Errorf("storage: get header at %d: %w", height, err)
	}
	return decodeHeaderRecord(raw)
}

// GetHeaders returns up to max consecutive headers starting at start,
// stopping early (without error) at the first gap.
func (w *BadgerWalletDB) GetHeaders(start, max uint64) ([]*bitcoin.Header, error) {
	var out []*bitcoin.Header
	for i := uint64(0); i < max; i++ {
		raw, err := w.db.Get(headerKey(start + i))
		if err != nil {
			break
		}
		h, err := decodeHeaderRecord(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// ReadPersistentData returns the last-persisted wallet snapshot, or an
// empty one if nothing has been persisted yet.
func (w *BadgerWalletDB) ReadPersistentData() (*PersistentData, error) {
	raw, err := w.db.Get([]byte(persistentStateKey))
	if err != nil {
		return NewPersistentData(), nil
	}
	var data PersistentData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("storage: decode persistent data: %w", err)
	}
	return &data, nil
}

// Persist overwrites the wallet snapshot.
func (w *BadgerWalletDB) Persist(data *PersistentData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("storage: encode persistent data: %w", err)
	}
	return w.db.Put([]byte(persistentStateKey), raw)
}

func encodeHeaderRecord(h *bitcoin.Header) ([]byte, error) {
	work := "0"
	if h.Chainwork != nil {
		work = h.Chainwork.String()
	}
	return json.Marshal(headerRecord{
		Wire:      h.Serialize(),
		Height:    h.Height,
		Chainwork: work,
	})
}

func decodeHeaderRecord(raw []byte) (*bitcoin.Header, error) {
	var rec headerRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("storage: decode header record: %w", err)
	}
	h, err := bitcoin.ParseHeader(rec.Wire)
	if err != nil {
		return nil, fmt.Errorf("storage: parse stored header: %w", err)
	}
	h.Height = rec.Height
	work, ok := new(big.Int).SetString(rec.Chainwork, 10)
	if !ok {
		work = big.NewInt(0)
	}
	h.Chainwork = work
	return h, nil
}
