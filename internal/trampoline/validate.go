package trampoline

import "github.com/Klingon-tech/klingnet-wallet/internal/payment"

// validated is the outcome of a successful relay-validation pass: what
// to forward and under what CLTV, ready to become a SendMultiPart.
type validated struct {
	amountToForward uint64
	outgoingCltv    uint32
	nextPacket      []byte
}

// validate runs the eight relay-validation conditions in
// the table's order, returning the first failure encountered or the
// agreed forwarding parameters on success.
func (r *FSM) validate(parts []payment.IncomingPart, blockHeight uint32) (validated, payment.FailureMessage) {
	if len(parts) == 0 {
		return validated{}, payment.TemporaryNodeFailure{Reason: "no incoming parts"}
	}

	totalAmount := parts[0].Payload.TotalAmount
	amountToForward := parts[0].Payload.AmountToForward
	for _, p := range parts[1:] {
		if p.Payload.TotalAmount != totalAmount {
			return validated{}, payment.IncorrectOrUnknownPaymentDetails{AmountMsat: incomingTotal(parts), BlockHeight: blockHeight}
		}
		if p.Payload.AmountToForward != amountToForward {
			return validated{}, payment.IncorrectOrUnknownPaymentDetails{AmountMsat: incomingTotal(parts), BlockHeight: blockHeight}
		}
	}

	for _, p := range parts {
		if len(p.Payload.InvoiceFeatures) > 0 && p.Payload.PaymentSecret == nil {
			return validated{}, payment.TemporaryNodeFailure{Reason: "invoice features present without a payment secret"}
		}
	}

	incoming := incomingTotal(parts)
	required := r.feeSchedule.RequiredFeeMsat(amountToForward)
	if incoming < amountToForward || incoming-amountToForward < required {
		return validated{}, payment.TrampolineFeeInsufficient{RequiredMsat: required, OfferedMsat: incoming - amountToForward}
	}

	outgoingCltv := parts[0].Payload.OutgoingCltv
	minIncomingCltv, ok := minCltv(parts)
	if !ok || minIncomingCltv < outgoingCltv || minIncomingCltv-outgoingCltv < r.cfg.MinCltvDelta {
		return validated{}, payment.TrampolineExpiryTooSoon{CurrentHeight: blockHeight, OutgoingCltv: outgoingCltv}
	}
	if outgoingCltv <= blockHeight {
		return validated{}, payment.TrampolineExpiryTooSoon{CurrentHeight: blockHeight, OutgoingCltv: outgoingCltv}
	}

	if amountToForward < r.cfg.MinForwardMsat {
		return validated{}, payment.TemporaryNodeFailure{Reason: "forward amount below minimum"}
	}

	for _, p := range parts {
		if r.channelStatus != nil && !r.channelStatus.Operational(p.Htlc.ChannelID) {
			return validated{}, payment.TemporaryNodeFailure{Reason: "incoming channel not operational"}
		}
	}

	return validated{
		amountToForward: amountToForward,
		outgoingCltv:    outgoingCltv,
		nextPacket:      parts[0].Payload.InnerPacket,
	}, nil
}

func incomingTotal(parts []payment.IncomingPart) uint64 {
	var total uint64
	for _, p := range parts {
		total += p.Htlc.AmountMsat
	}
	return total
}

func minCltv(parts []payment.IncomingPart) (uint32, bool) {
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
