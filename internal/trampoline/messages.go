package trampoline

import "github.com/Klingon-tech/klingnet-wallet/internal/payment"

// Message is anything the trampoline relayer's mailbox can drain.
type Message interface {
	isTrampolineMessage()
}

// Snapshot delivers the current incoming and outgoing HTLC parts known
// for this FSM's tag, plus the chain tip height CLTV checks measure
// against.
type Snapshot struct {
	Incoming    []payment.IncomingPart
	Outgoing    []payment.OutgoingPart
	BlockHeight uint32
}

func (Snapshot) isTrampolineMessage() {}

// SenderUpdate is how the external outgoing multipart sender reports
// back. A non-nil Data.Preimage is the first-reveal event; a
// nil preimage with zero in-flight parts is the sender's terminal
// failure report.
type SenderUpdate struct {
	Data payment.SenderData
}

func (SenderUpdate) isTrampolineMessage() {}

// CMDTimeout fires when RECEIVING's timer elapses with nothing having
// progressed the payment since it was last armed.
type CMDTimeout struct{}

func (CMDTimeout) isTrampolineMessage() {}
