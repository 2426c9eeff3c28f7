package bitcoin

import "testing"

func TestExpectedTimespan_ExactTarget(t *testing.T) {
	got := ExpectedTimespan(targetTimespan)
	if got != targetTimespan {
		t.Fatalf("ExpectedTimespan(exact) = %d, want %d", got, targetTimespan)
	}
}

func TestExpectedTimespan_ClampUp(t *testing.T) {
	// Blocks arrived far too fast; clamp to targetTimespan/4.
	got := ExpectedTimespan(1)
	want := int64(targetTimespan / 4)
	if got != want {
		t.Fatalf("ExpectedTimespan(1) = %d, want %d", got, want)
	}
}

func TestExpectedTimespan_ClampDown(t *testing.T) {
	// Blocks arrived far too slowly; clamp to targetTimespan*4.
	got := ExpectedTimespan(targetTimespan * 100)
	want := int64(targetTimespan * 4)
	if got != want {
		t.Fatalf("ExpectedTimespan(100x) = %d, want %d", got, want)
	}
}

func TestNextWorkRequired_ExactTarget_Unchanged(t *testing.T) {
	prevBits := uint32(0x1c0180ab)
	got := NextWorkRequired(prevBits, targetTimespan)
	if got != prevBits {
		t.Fatalf("NextWorkRequired(exact span) = %#x, want unchanged %#x", got, prevBits)
	}
}

func TestNextWorkRequired_FasterBlocksRaiseDifficulty(t *testing.T) {
	prevBits := uint32(0x1c0180ab)
	// Blocks arrived twice as fast as intended: difficulty should increase,
	// meaning the new target is smaller (bits representation shrinks or
	// mantissa drops for the same exponent).
	newBits := NextWorkRequired(prevBits, targetTimespan/2)
	if BitsToTarget(newBits).Cmp(BitsToTarget(prevBits)) >= 0 {
		t.Fatalf("faster blocks should shrink the target: new=%#x prev=%#x", newBits, prevBits)
	}
}

func TestNextWorkRequired_SlowerBlocksLowerDifficulty(t *testing.T) {
	prevBits := uint32(0x1c0180ab)
	newBits := NextWorkRequired(prevBits, targetTimespan*2)
	if BitsToTarget(newBits).Cmp(BitsToTarget(prevBits)) <= 0 {
		t.Fatalf("slower blocks should grow the target: new=%#x prev=%#x", newBits, prevBits)
	}
}

func TestNextWorkRequired_NeverExceedsMaxTarget(t *testing.T) {
	// Starting already near the max target, with a huge clamp-down span,
	// should cap at maxTarget rather than overflow past it.
	got := NextWorkRequired(0x1d00ffff, targetTimespan*4)
	if BitsToTarget(got).Cmp(maxTarget) > 0 {
		t.Fatalf("NextWorkRequired must not exceed maxTarget, got target %s", BitsToTarget(got))
	}
}

func TestIsRetargetBoundary(t *testing.T) {
	tests := []struct {
		height uint64
		want   bool
	}{
		{0, true},
		{1, false},
		{2015, false},
		{2016, true},
		{4032, true},
		{4031, false},
	}
	for _, tt := range tests {
		if got := IsRetargetBoundary(tt.height); got != tt.want {
			t.Errorf("IsRetargetBoundary(%d) = %v, want %v", tt.height, got, tt.want)
		}
	}
}
