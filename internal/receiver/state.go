package receiver

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-wallet/internal/payment"
)

// State is one of the receiver FSM's three states.
type State int

const (
	Receiving State = iota
	Finalizing
	Shutdown
)

func (s State) String() string {
	switch s {
	case Receiving:
		return "RECEIVING"
	case Finalizing:
		return "FINALIZING"
	case Shutdown:
		return "SHUTDOWN"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// outcome is the terminal fate FINALIZING re-issues to every present
// part on each snapshot, until the tag drains from in-flight.
type outcome struct {
	preimage *[32]byte
	failure  payment.FailureMessage
}

func revealed(preimage [32]byte) outcome {
	return outcome{preimage: &preimage}
}

func aborted(failure payment.FailureMessage) outcome {
	return outcome{failure: failure}
}
