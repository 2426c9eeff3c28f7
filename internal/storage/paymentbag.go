package storage

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/klingnet-wallet/internal/payment"
)

// SearchablePayment is the record AddSearchablePayment indexes, letting an
// external UI/CLI look payments up by hash without walking every
// in-flight snapshot.
type SearchablePayment struct {
	Tag            payment.FullPaymentTag `json:"tag"`
	ReceivedMsat   uint64                 `json:"received_msat"`
	SucceededAt    int64                  `json:"succeeded_at_unix"`
}

// RelayedPreimageInfo is the single record a trampoline relay writes on
// reveal.
type RelayedPreimageInfo struct {
	Tag         payment.FullPaymentTag `json:"tag"`
	Preimage    [32]byte               `json:"preimage"`
	RelayedMsat uint64                 `json:"relayed_msat"`
	EarnedMsat  uint64                 `json:"earned_msat"`
}

// PaymentBag is the bag interface Core B persists preimages, invoice
// outcomes, and relay accounting through.
type PaymentBag interface {
	SetPreimage(paymentHash, preimage [32]byte) error
	GetPreimage(paymentHash [32]byte) ([32]byte, bool, error)
	UpdOkIncoming(tag payment.FullPaymentTag, receivedMsat uint64) error
	AddSearchablePayment(tag payment.FullPaymentTag, info SearchablePayment) error
	AddRelayedPreimageInfo(tag payment.FullPaymentTag, preimage [32]byte, relayedMsat, earnedMsat uint64) error
	InvoiceSucceeded(tag payment.FullPaymentTag) (receivedMsat uint64, ok bool, err error)
	FulfillIncoming(tag payment.FullPaymentTag, paymentHash, preimage [32]byte, receivedMsat uint64, info SearchablePayment) error
}

const (
	preimageKeyPrefix = "pi/"
	invoiceKeyPrefix  = "inv/"
	searchKeyPrefix   = "search/"
	relayedKeyPrefix  = "relayed/"
)

func preimageKey(hash [32]byte) []byte {
	return []byte(preimageKeyPrefix + hex.EncodeToString(hash[:]))
}

func invoiceKey(tag payment.FullPaymentTag) []byte {
	return []byte(invoiceKeyPrefix + tag.String())
}

func searchKey(tag payment.FullPaymentTag) []byte {
	return []byte(searchKeyPrefix + tag.String())
}

func relayedKey(tag payment.FullPaymentTag) []byte {
	return []byte(relayedKeyPrefix + tag.String())
}

// invoiceRecord tracks the minimal state UpdOkIncoming needs: whether an
// invoice has been marked succeeded and for how much, mirroring the
// "matching invoice with status SUCCEEDED" fulfill trigger.
type invoiceRecord struct {
	Succeeded    bool   `json:"succeeded"`
	ReceivedMsat uint64 `json:"received_msat"`
}

// BadgerPaymentBag implements PaymentBag on top of a DB, the same
// key-prefix-per-concern approach as BadgerWalletDB.
type BadgerPaymentBag struct {
	db DB
}

// NewBadgerPaymentBag wraps db as a PaymentBag.
func NewBadgerPaymentBag(db DB) *BadgerPaymentBag {
	return &BadgerPaymentBag{db: db}
}

// SetPreimage stores preimage under paymentHash.
func (b *BadgerPaymentBag) SetPreimage(paymentHash, preimage [32]byte) error {
	if err := b.db.Put(preimageKey(paymentHash), preimage[:]); err != nil {
		return fmt.Errorf("storage: set preimage: %w", err)
	}
	return nil
}

// GetPreimage returns the preimage for paymentHash, if known.
func (b *BadgerPaymentBag) GetPreimage(paymentHash [32]byte) ([32]byte, bool, error) {
	raw, err := b.db.Get(preimageKey(paymentHash))
	if err != nil {
		return [32]byte{}, false, nil
	}
	if len(raw) != 32 {
		return [32]byte{}, false, fmt.Errorf("storage: stored preimage has wrong length %d", len(raw))
	}
	var p [32]byte
	copy(p[:], raw)
	return p, true, nil
}

// UpdOkIncoming marks tag's invoice succeeded with the given received
// amount, the record the receiver's fulfill-trigger #2 reads back.
func (b *BadgerPaymentBag) UpdOkIncoming(tag payment.FullPaymentTag, receivedMsat uint64) error {
	rec := invoiceRecord{Succeeded: true, ReceivedMsat: receivedMsat}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("storage: encode invoice record: %w", err)
	}
	return b.db.Put(invoiceKey(tag), raw)
}

// InvoiceSucceeded reports whether tag's invoice has been marked
// succeeded, and if so with what received amount — the read side of
// UpdOkIncoming, used by the receiver FSM's fulfill trigger #2.
func (b *BadgerPaymentBag) InvoiceSucceeded(tag payment.FullPaymentTag) (receivedMsat uint64, ok bool, err error) {
	raw, err := b.db.Get(invoiceKey(tag))
	if err != nil {
		return 0, false, nil
	}
	var rec invoiceRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return 0, false, fmt.Errorf("storage: decode invoice record: %w", err)
	}
	return rec.ReceivedMsat, rec.Succeeded, nil
}

// AddSearchablePayment indexes info for later lookup by tag.
func (b *BadgerPaymentBag) AddSearchablePayment(tag payment.FullPaymentTag, info SearchablePayment) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("storage: encode searchable payment: %w", err)
	}
	return b.db.Put(searchKey(tag), raw)
}

// AddRelayedPreimageInfo writes the single relay-earnings record for tag.
func (b *BadgerPaymentBag) AddRelayedPreimageInfo(tag payment.FullPaymentTag, preimage [32]byte, relayedMsat, earnedMsat uint64) error {
	rec := RelayedPreimageInfo{Tag: tag, Preimage: preimage, RelayedMsat: relayedMsat, EarnedMsat: earnedMsat}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("storage: encode relayed preimage info: %w", err)
	}
	return b.db.Put(relayedKey(tag), raw)
}

// FulfillIncoming performs the three writes a receiver's fulfill action
// needs as one atomic batch when the backing DB
// supports it, falling back to sequential puts otherwise.
func (b *BadgerPaymentBag) FulfillIncoming(tag payment.FullPaymentTag, paymentHash, preimage [32]byte, receivedMsat uint64, info SearchablePayment) error {
	invoiceRaw, err := json.Marshal(invoiceRecord{Succeeded: true, ReceivedMsat: receivedMsat})
	if err != nil {
		return fmt.Errorf("storage: encode invoice record: %w", err)
	}
	searchRaw, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("storage: encode searchable payment: %w", err)
	}

	batcher, ok := b.db.(Batcher)
	if !ok {
		if err := b.SetPreimage(paymentHash, preimage); err != nil {
			return err
		}
		if err := b.db.Put(invoiceKey(tag), invoiceRaw); err != nil {
			return fmt.Errorf("storage: fulfill incoming: %w", err)
		}
		return b.db.Put(searchKey(tag), searchRaw)
	}

	batch := batcher.NewBatch()
	if err := batch.Put(preimageKey(paymentHash), preimage[:]); err != nil {
		return fmt.Errorf("storage: fulfill incoming: %w", err)
	}
	if err := batch.Put(invoiceKey(tag), invoiceRaw); err != nil {
		return fmt.Errorf("storage: fulfill incoming: %w", err)
	}
	if err := batch.Put(searchKey(tag), searchRaw); err != nil {
		return fmt.Errorf("storage: fulfill incoming: %w", err)
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("storage: fulfill incoming: commit: %w", err)
	}
	return nil
}
