package trampoline

import "testing"

func TestRequiredFeeMsat_BaseAndProportional(t *testing.T) {
	s := FeeSchedule{BaseMsat: 1000, ProportionalPPM: 100}
	// 100 ppm of 1_000_000 msat = 100 msat, plus base 1000.
	got := s.RequiredFeeMsat(1_000_000)
	if got != 1100 {
		t.Fatalf("RequiredFeeMsat = %d, want 1100", got)
	}
}

func TestRequiredFeeMsat_ZeroAmountIsJustBase(t *testing.T) {
	s := FeeSchedule{BaseMsat: 500, ProportionalPPM: 1000, Exponent: 10, LogExponent: 2}
	got := s.RequiredFeeMsat(0)
	if got != 500 {
		t.Fatalf("RequiredFeeMsat(0) = %d, want 500", got)
	}
}

func TestRequiredFeeMsat_ExponentialGrowsWithAmount(t *testing.T) {
	s := FeeSchedule{Exponent: 1000, LogExponent: 2}
	small := s.RequiredFeeMsat(1e9)  // 0.01 BTC
	large := s.RequiredFeeMsat(1e10) // 0.1 BTC
	if !(large > small) {
		t.Fatalf("expected convex growth: small=%d large=%d", small, large)
	}
}

func TestRequiredFeeMsat_DisabledExponentialTerm(t *testing.T) {
	s := FeeSchedule{BaseMsat: 10, LogExponent: 0}
	got := s.RequiredFeeMsat(1e12)
	if got != 10 {
		t.Fatalf("RequiredFeeMsat with LogExponent=0 = %d, want 10 (base only)", got)
	}
}
