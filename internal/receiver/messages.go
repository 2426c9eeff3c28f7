// Package receiver implements the local incoming-payment receiver FSM:
// one instance per payment tag, merging multipart HTLC arrivals against
// a local invoice and fulfilling or failing every part atomically.
package receiver

import "github.com/Klingon-tech/klingnet-wallet/internal/payment"

// Message is anything the receiver's mailbox can drain.
type Message interface {
	isReceiverMessage()
}

// Snapshot delivers the current InFlightPayments view for this FSM's tag,
// plus the chain tip height the CLTV-safety checks measure against.
type Snapshot struct {
	Parts       []payment.IncomingPart
	BlockHeight uint32
}

func (Snapshot) isReceiverMessage() {}

// CMDTimeout fires when the single per-FSM timer elapses with no part
// having triggered a fulfill or abort since it was last armed.
type CMDTimeout struct{}

func (CMDTimeout) isReceiverMessage() {}
