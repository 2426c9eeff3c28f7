package payment

import "fmt"

// FailureCode tags a FailureMessage the way a JSON-RPC error object
// tags its Code field — a stable, comparable identifier distinct from
// the human-readable message.
type FailureCode int

const (
	CodeIncorrectOrUnknownPaymentDetails FailureCode = iota + 1
	CodeTemporaryNodeFailure
	CodeTrampolineFeeInsufficient
	CodeTrampolineExpiryTooSoon
	CodePaymentTimeout
)

// FailureMessage is the closed set of failures Core B can report
// upstream per HTLC. Every implementation is comparable
// (plain value structs) so a retained FailureMessage can be compared
// against a freshly computed one to detect a "replay identical error"
// case.
type FailureMessage interface {
	Code() FailureCode
	Error() string
}

// IncorrectOrUnknownPaymentDetails is returned when a peer's HTLC amount
// or CLTV does not match what the receiver expects for the stated
// payment hash, or when no explicit reason is given for an abort.
type IncorrectOrUnknownPaymentDetails struct {
	AmountMsat  uint64
	BlockHeight uint32
}

func (f IncorrectOrUnknownPaymentDetails) Code() FailureCode { return CodeIncorrectOrUnknownPaymentDetails }
func (f IncorrectOrUnknownPaymentDetails) Error() string {
	return fmt.Sprintf("incorrect or unknown payment details: amount_msat=%d height=%d", f.AmountMsat, f.BlockHeight)
}

// TemporaryNodeFailure is a catch-all for relay-side validation failures
// that carry no more specific failure code.
type TemporaryNodeFailure struct {
	Reason string
}

func (f TemporaryNodeFailure) Code() FailureCode { return CodeTemporaryNodeFailure }
func (f TemporaryNodeFailure) Error() string     { return "temporary node failure: " + f.Reason }

// TrampolineFeeInsufficient is returned when the incoming amount does not
// cover the required trampoline fee for the requested forward, or when a
// "no routes found" local failure is translated into it.
type TrampolineFeeInsufficient struct {
	RequiredMsat uint64
	OfferedMsat  uint64
}

func (f TrampolineFeeInsufficient) Code() FailureCode { return CodeTrampolineFeeInsufficient }
func (f TrampolineFeeInsufficient) Error() string {
	return fmt.Sprintf("trampoline fee insufficient: required_msat=%d offered_msat=%d", f.RequiredMsat, f.OfferedMsat)
}

// TrampolineExpiryTooSoon is returned when the incoming/outgoing CLTV
// delta is too small, or the requested outgoing expiry has already
// passed the current block height.
type TrampolineExpiryTooSoon struct {
	CurrentHeight uint32
	OutgoingCltv  uint32
}

func (f TrampolineExpiryTooSoon) Code() FailureCode { return CodeTrampolineExpiryTooSoon }
func (f TrampolineExpiryTooSoon) Error() string {
	return fmt.Sprintf("trampoline expiry too soon: current_height=%d outgoing_cltv=%d", f.CurrentHeight, f.OutgoingCltv)
}

// PaymentTimeout is returned when a receiver's timer fires with no
// outgoing activity and no fulfill condition met.
type PaymentTimeout struct{}

func (f PaymentTimeout) Code() FailureCode { return CodePaymentTimeout }
func (f PaymentTimeout) Error() string     { return "payment timeout" }
