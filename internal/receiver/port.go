package receiver

import (
	"github.com/Klingon-tech/klingnet-wallet/internal/payment"
	"github.com/Klingon-tech/klingnet-wallet/internal/storage"
)

// ChannelPort is the narrow interface the receiver FSM calls outward
// through to settle an HTLC part on its channel. Channels are
// responsible for deduplicating a repeated command for the same HTLC
// part.
type ChannelPort interface {
	FulfillHTLC(part payment.IncomingPart, preimage [32]byte) error
	FailHTLC(part payment.IncomingPart, failure payment.FailureMessage) error
}

// InvoiceLookup resolves what a local invoice expects for tag and the
// preimage it was created with. Invoice parsing and storage live outside
// Core B; this is the narrow read the aggregate-amount fulfill trigger
// needs to both gate on amount and learn what to reveal.
type InvoiceLookup interface {
	AmountMsat(tag payment.FullPaymentTag) (uint64, bool)
	Preimage(tag payment.FullPaymentTag) ([32]byte, bool)
}

// PreimageStore is the read-through cache the "known preimage" fulfill
// trigger checks first; internal/preimage.Memo satisfies this directly.
type PreimageStore interface {
	GetPreimage(paymentHash [32]byte) ([32]byte, bool, error)
}

// Bag is the subset of storage.PaymentBag the receiver needs to read an
// invoice's succeeded status and to perform the atomic fulfill write.
type Bag interface {
	InvoiceSucceeded(tag payment.FullPaymentTag) (receivedMsat uint64, ok bool, err error)
	FulfillIncoming(tag payment.FullPaymentTag, paymentHash, preimage [32]byte, receivedMsat uint64, info storage.SearchablePayment) error
}
