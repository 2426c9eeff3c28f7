package trampoline

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-wallet/internal/payment"
)

// State is one of the trampoline relayer's four states.
type State int

const (
	Receiving State = iota
	Sending
	Finalizing
	Shutdown
)

func (s State) String() string {
	switch s {
	case Receiving:
		return "RECEIVING"
	case Sending:
		return "SENDING"
	case Finalizing:
		return "FINALIZING"
	case Shutdown:
		return "SHUTDOWN"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// sendingMode distinguishes SENDING's two sub-cases: actively forwarding
// a fresh send (Processing) versus draining leftover outgoing parts from
// a prior process before retrying or giving up (Stopping).
type sendingMode int

const (
	modeProcessing sendingMode = iota
	modeStoppingRetry
	modeStoppingFail
)

// outcome is the terminal fate FINALIZING acts on: a revealed preimage
// (with the sender data used for earnings accounting) or a failure,
// mutually exclusive except that a late reveal always overrides an
// earlier abort.
type outcome struct {
	preimage   *[32]byte
	senderData payment.SenderData
	failure    payment.FailureMessage
}

func revealed(preimage [32]byte, data payment.SenderData) outcome {
	return outcome{preimage: &preimage, senderData: data}
}

func aborted(failure payment.FailureMessage) outcome {
	return outcome{failure: failure}
}
