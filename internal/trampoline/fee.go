package trampoline

import (
	"math"
	"math/big"
)

// FeeSchedule is the affine-plus-exponential trampoline fee curve: a
// fixed base, a proportional cut of the forwarded amount, and a convex
// term that makes large forwards disproportionately more expensive to
// relay.
type FeeSchedule struct {
	BaseMsat uint64
	// ProportionalPPM is parts-per-million of the forwarded amount.
	ProportionalPPM uint64
	// Exponent is the exponential term's linear coefficient, in msat per
	// BTC (1e11 msat) raised to LogExponent.
	Exponent float64
	// LogExponent is the curve's exponent. <= 0 disables the term
	// entirely (a zero-amount or zero-exponent forward has no convex
	// component, avoiding an ill-defined 0^negative).
	LogExponent float64
}

// RequiredFeeMsat returns the minimum fee this schedule requires to
// relay amountMsat onward: base + proportional(amountMsat, ppm) +
// exponential(amountMsat, exponent, logExponent).
func (s FeeSchedule) RequiredFeeMsat(amountMsat uint64) uint64 {
	total := new(big.Int).SetUint64(s.BaseMsat)
	total.Add(total, proportional(amountMsat, s.ProportionalPPM))
	total.Add(total, exponential(amountMsat, s.Exponent, s.LogExponent))
	if !total.IsUint64() {
		return math.MaxUint64
	}
	return total.Uint64()
}

// proportional returns floor(amountMsat * ppm / 1_000_000), the same
// "multiply then integer-divide via big.Int" shape as a difficulty
// retarget's ratio computation.
func proportional(amountMsat, ppm uint64) *big.Int {
	a := new(big.Int).SetUint64(amountMsat)
	p := new(big.Int).SetUint64(ppm)
	result := new(big.Int).Mul(a, p)
	return result.Div(result, big.NewInt(1_000_000))
}

const btcMsat = 1e11 // 1 BTC in msat

// exponential returns the convex component of the fee, rounded down to
// the nearest msat. amountMsat is expressed in BTC units before raising
// to logExponent so the coefficient stays in a human-choosable range
// regardless of absolute msat magnitudes.
func exponential(amountMsat uint64, exponent, logExponent float64) *big.Int {
	if amountMsat == 0 || exponent <= 0 || logExponent <= 0 {
		return new(big.Int)
	}
	amountBTC := float64(amountMsat) / btcMsat
	value := exponent * math.Pow(amountBTC, logExponent)
	if value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return new(big.Int)
	}
	rounded, _ := big.NewFloat(value).Int(nil)
	return rounded
}
