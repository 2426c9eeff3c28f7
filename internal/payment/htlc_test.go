package payment

import "testing"

func TestInFlightPayments_TotalIncomingMsat(t *testing.T) {
	snap := NewInFlightPayments()
	tag := FullPaymentTag{PaymentHash: [32]byte{1}, Tag: Local}
	snap.In[tag] = []IncomingPart{
		{Htlc: UpdateAddHtlc{AmountMsat: 1000}},
		{Htlc: UpdateAddHtlc{AmountMsat: 2500}},
	}
	if got := snap.TotalIncomingMsat(tag); got != 3500 {
		t.Fatalf("TotalIncomingMsat = %d, want 3500", got)
	}
}

func TestInFlightPayments_TotalIncomingMsat_UnknownTag(t *testing.T) {
	snap := NewInFlightPayments()
	if got := snap.TotalIncomingMsat(FullPaymentTag{}); got != 0 {
		t.Fatalf("TotalIncomingMsat(unknown) = %d, want 0", got)
	}
}

func TestInFlightPayments_MinIncomingCltv(t *testing.T) {
	snap := NewInFlightPayments()
	tag := FullPaymentTag{PaymentHash: [32]byte{1}, Tag: Local}
	snap.In[tag] = []IncomingPart{
		{Htlc: UpdateAddHtlc{CltvExpiry: 700}},
		{Htlc: UpdateAddHtlc{CltvExpiry: 650}},
		{Htlc: UpdateAddHtlc{CltvExpiry: 690}},
	}
	min, ok := snap.MinIncomingCltv(tag)
	if !ok || min != 650 {
		t.Fatalf("MinIncomingCltv = (%d, %v), want (650, true)", min, ok)
	}
}

func TestInFlightPayments_MinIncomingCltv_Empty(t *testing.T) {
	snap := NewInFlightPayments()
	if _, ok := snap.MinIncomingCltv(FullPaymentTag{}); ok {
		t.Fatal("MinIncomingCltv with no parts should report ok=false")
	}
}
