package bitcoin

import "math/big"

// RetargetWindow is the number of blocks in a Bitcoin difficulty epoch.
const RetargetWindow = 2016

// TargetSpacingSeconds is the intended spacing between blocks.
const TargetSpacingSeconds = 600

// targetTimespan is the intended wall-clock duration of one retarget window.
const targetTimespan = RetargetWindow * TargetSpacingSeconds

// ExpectedTimespan clamps the observed span of a retarget window to
// [targetTimespan/4, targetTimespan*4], Bitcoin's standard retarget clamp,
// preventing a single window from moving difficulty by more than 4x.
func ExpectedTimespan(actualTimespan int64) int64 {
	min := int64(targetTimespan / 4)
	max := int64(targetTimespan * 4)
	switch {
	case actualTimespan < min:
		return min
	case actualTimespan > max:
		return max
	default:
		return actualTimespan
	}
}

// NextWorkRequired computes the retargeted "bits" for the first header of a
// new window, given the bits of the last header of the previous window and
// the wall-clock span between the first and last header of that window.
func NextWorkRequired(prevBits uint32, actualTimespan int64) uint32 {
	clamped := ExpectedTimespan(actualTimespan)

	oldTarget := BitsToTarget(prevBits)
	newTarget := new(big.Int).Mul(oldTarget, big.NewInt(clamped))
	newTarget.Div(newTarget, big.NewInt(targetTimespan))

	if newTarget.Cmp(maxTarget) > 0 {
		newTarget = maxTarget
	}
	return TargetToBits(newTarget)
}

// IsRetargetBoundary reports whether height begins a new retarget window.
func IsRetargetBoundary(height uint64) bool {
	return height%RetargetWindow == 0
}
