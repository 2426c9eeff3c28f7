package storage

import (
	"testing"

	"github.com/Klingon-tech/klingnet-wallet/internal/payment"
)

func sampleTag() payment.FullPaymentTag {
	return payment.FullPaymentTag{
		PaymentHash:   [32]byte{1, 2, 3},
		PaymentSecret: [32]byte{4, 5, 6},
		Tag:           payment.Local,
	}
}

func TestBadgerPaymentBag_SetGetPreimage(t *testing.T) {
	bag := NewBadgerPaymentBag(NewMemory())
	hash := [32]byte{1}
	preimage := [32]byte{2}

	if _, ok, _ := bag.GetPreimage(hash); ok {
		t.Fatal("GetPreimage before SetPreimage should report not found")
	}
	if err := bag.SetPreimage(hash, preimage); err != nil {
		t.Fatalf("SetPreimage: %v", err)
	}
	got, ok, err := bag.GetPreimage(hash)
	if err != nil {
		t.Fatalf("GetPreimage: %v", err)
	}
	if !ok || got != preimage {
		t.Fatalf("GetPreimage = (%x, %v), want (%x, true)", got, ok, preimage)
	}
}

func TestBadgerPaymentBag_UpdOkIncoming(t *testing.T) {
	bag := NewBadgerPaymentBag(NewMemory())
	tag := sampleTag()

	if _, ok, _ := bag.InvoiceSucceeded(tag); ok {
		t.Fatal("InvoiceSucceeded before UpdOkIncoming should report false")
	}
	if err := bag.UpdOkIncoming(tag, 50_000); err != nil {
		t.Fatalf("UpdOkIncoming: %v", err)
	}
	received, ok, err := bag.InvoiceSucceeded(tag)
	if err != nil {
		t.Fatalf("InvoiceSucceeded: %v", err)
	}
	if !ok || received != 50_000 {
		t.Fatalf("InvoiceSucceeded = (%d, %v), want (50000, true)", received, ok)
	}
}

func TestBadgerPaymentBag_AddSearchablePayment(t *testing.T) {
	bag := NewBadgerPaymentBag(NewMemory())
	tag := sampleTag()
	err := bag.AddSearchablePayment(tag, SearchablePayment{Tag: tag, ReceivedMsat: 1000, SucceededAt: 12345})
	if err != nil {
		t.Fatalf("AddSearchablePayment: %v", err)
	}
}

func TestBadgerPaymentBag_AddRelayedPreimageInfo(t *testing.T) {
	bag := NewBadgerPaymentBag(NewMemory())
	tag := sampleTag()
	preimage := [32]byte{7}
	if err := bag.AddRelayedPreimageInfo(tag, preimage, 100_000, 50); err != nil {
		t.Fatalf("AddRelayedPreimageInfo: %v", err)
	}
}

func TestBadgerPaymentBag_DistinctTagsDoNotCollide(t *testing.T) {
	bag := NewBadgerPaymentBag(NewMemory())
	a := sampleTag()
	b := a
	b.Tag = payment.Trampoline

	if err := bag.UpdOkIncoming(a, 100); err != nil {
		t.Fatalf("UpdOkIncoming a: %v", err)
	}
	if _, ok, _ := bag.InvoiceSucceeded(b); ok {
		t.Fatal("a distinct tag (different Tag field) should not see a's invoice state")
	}
}
