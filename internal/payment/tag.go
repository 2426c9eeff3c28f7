// Package payment holds the data shapes Core B's receiver and trampoline
// FSMs key their state by: the fingerprint that identifies one logical
// payment across its HTLC parts, the decrypted per-part fields those
// FSMs read, and the closed set of failures they can report upstream.
package payment

import "fmt"

// Tag distinguishes a final, locally-terminating payment from one that
// must be relayed onward through trampoline routing.
type Tag int

const (
	Local Tag = iota
	Trampoline
)

func (t Tag) String() string {
	switch t {
	case Local:
		return "LOCAL"
	case Trampoline:
		return "TRAMPOLINE"
	default:
		return fmt.Sprintf("Tag(%d)", int(t))
	}
}

// FullPaymentTag is the key into InFlightPayments: a payment hash alone
// is not unique (two invoices can share a preimage), so paymentSecret
// disambiguates concurrent payments and Tag distinguishes terminal from
// relayed handling.
type FullPaymentTag struct {
	PaymentHash   [32]byte
	PaymentSecret [32]byte
	Tag           Tag
}

func (t FullPaymentTag) String() string {
	return fmt.Sprintf("%s:%x:%x", t.Tag, t.PaymentHash[:4], t.PaymentSecret[:4])
}
