package trampoline

import "github.com/Klingon-tech/klingnet-wallet/internal/payment"

// ChannelPort is the narrow interface the relayer calls outward through
// to settle an incoming HTLC part. Shares its shape with
// receiver.ChannelPort, kept as a separate type since the two packages
// have no dependency on each other.
type ChannelPort interface {
	FulfillHTLC(part payment.IncomingPart, preimage [32]byte) error
	FailHTLC(part payment.IncomingPart, failure payment.FailureMessage) error
}

// ChannelStatusPort reports whether a channel is currently able to carry
// traffic, for relay-validation condition "all incoming channels are
// operational".
type ChannelStatusPort interface {
	Operational(channel payment.ChannelID) bool
}

// Bag is the subset of storage.PaymentBag the relayer needs: checking
// for a pre-recorded preimage (atomicity invariant's "or was
// pre-recorded" clause) and writing the single earnings record on
// reveal.
type Bag interface {
	GetPreimage(paymentHash [32]byte) ([32]byte, bool, error)
	SetPreimage(paymentHash, preimage [32]byte) error
	AddRelayedPreimageInfo(tag payment.FullPaymentTag, preimage [32]byte, relayedMsat, earnedMsat uint64) error
}

// SenderFactory creates the outgoing sender sub-FSM's handle for tag.
// Called unconditionally on entry, even when
// RECEIVING never ends up needing to send.
type SenderFactory func(tag payment.FullPaymentTag) payment.OutgoingSenderPort
