package payment

// ChannelID identifies the channel an HTLC arrived or departs on.
type ChannelID [32]byte

// UpdateAddHtlc is the subset of a Lightning update_add_htlc message
// the relayer FSMs need: the wire-level HTLC offer a channel made to us,
// prior to onion decryption (which stays external).
type UpdateAddHtlc struct {
	ChannelID   ChannelID
	HtlcID      uint64
	AmountMsat  uint64
	PaymentHash [32]byte
	CltvExpiry  uint32
}

// OnionPayload is the decrypted per-hop payload for one HTLC part. The
// outer fields describe what this hop was told; InnerPacket carries the
// next trampoline onion to forward, present only when Tag == Trampoline.
type OnionPayload struct {
	AmountToForward uint64
	OutgoingCltv    uint32
	TotalAmount     uint64
	PaymentSecret   *[32]byte
	InvoiceFeatures []byte
	InnerPacket     []byte
}

// IncomingPart is one HTLC part of a payment still in flight, as
// InFlightPayments.In tracks it.
type IncomingPart struct {
	Htlc    UpdateAddHtlc
	Payload OnionPayload
}

// OutgoingPart is one HTLC part of a payment a trampoline relay has sent
// onward, as InFlightPayments.Out tracks it.
type OutgoingPart struct {
	ChannelID  ChannelID
	HtlcID     uint64
	AmountMsat uint64
	CltvExpiry uint32
}

// InFlightPayments is the snapshot both the receiver and trampoline FSMs
// react to on every tick: the current set of HTLC parts known for every
// tag, incoming and (for relays) outgoing.
type InFlightPayments struct {
	In  map[FullPaymentTag][]IncomingPart
	Out map[FullPaymentTag][]OutgoingPart
}

// NewInFlightPayments returns an empty snapshot.
func NewInFlightPayments() InFlightPayments {
	return InFlightPayments{
		In:  make(map[FullPaymentTag][]IncomingPart),
		Out: make(map[FullPaymentTag][]OutgoingPart),
	}
}

// TotalIncomingMsat sums the amount carried by every incoming part for tag.
func (s InFlightPayments) TotalIncomingMsat(tag FullPaymentTag) uint64 {
	var total uint64
	for _, part := range s.In[tag] {
		total += part.Htlc.AmountMsat
	}
	return total
}

// MinIncomingCltv returns the smallest CltvExpiry among tag's incoming
// parts, and false if there are none.
func (s InFlightPayments) MinIncomingCltv(tag FullPaymentTag) (uint32, bool) {
	parts := s.In[tag]
	if len(parts) == 0 {
		return 0, false
	}
	min := parts[0].Htlc.CltvExpiry
	for _, p := range parts[1:] {
		if p.Htlc.CltvExpiry < min {
			min = p.Htlc.CltvExpiry
		}
	}
	return min, true
}
