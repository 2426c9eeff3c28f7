package receiver

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Klingon-tech/klingnet-wallet/internal/payment"
	"github.com/Klingon-tech/klingnet-wallet/internal/storage"
)

type fakeChannel struct {
	mu        sync.Mutex
	fulfilled map[uint64][32]byte
	failed    map[uint64]payment.FailureMessage
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{fulfilled: make(map[uint64][32]byte), failed: make(map[uint64]payment.FailureMessage)}
}

func (c *fakeChannel) FulfillHTLC(part payment.IncomingPart, preimage [32]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fulfilled[part.Htlc.HtlcID] = preimage
	return nil
}

func (c *fakeChannel) FailHTLC(part payment.IncomingPart, failure payment.FailureMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed[part.Htlc.HtlcID] = failure
	return nil
}

func (c *fakeChannel) countFulfilled() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.fulfilled)
}

func (c *fakeChannel) countFailed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.failed)
}

type fakeInvoices struct {
	amount   uint64
	hasAmt   bool
	preimage [32]byte
	hasPre   bool
}

func (f *fakeInvoices) AmountMsat(payment.FullPaymentTag) (uint64, bool) { return f.amount, f.hasAmt }
func (f *fakeInvoices) Preimage(payment.FullPaymentTag) ([32]byte, bool) {
	return f.preimage, f.hasPre
}

type fakePreimages struct {
	mu    sync.Mutex
	store map[[32]byte][32]byte
}

func newFakePreimages() *fakePreimages {
	return &fakePreimages{store: make(map[[32]byte][32]byte)}
}

func (p *fakePreimages) GetPreimage(hash [32]byte) ([32]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.store[hash]
	return v, ok, nil
}

type fakeBag struct {
	mu        sync.Mutex
	succeeded map[payment.FullPaymentTag]uint64
	fulfills  int
}

func newFakeBag() *fakeBag { return &fakeBag{succeeded: make(map[payment.FullPaymentTag]uint64)} }

func (b *fakeBag) InvoiceSucceeded(tag payment.FullPaymentTag) (uint64, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.succeeded[tag]
	return v, ok, nil
}

func (b *fakeBag) FulfillIncoming(tag payment.FullPaymentTag, paymentHash, preimage [32]byte, receivedMsat uint64, info storage.SearchablePayment) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.succeeded[tag] = receivedMsat
	b.fulfills++
	return nil
}

func testTag() payment.FullPaymentTag {
	return payment.FullPaymentTag{PaymentHash: [32]byte{0x01}, PaymentSecret: [32]byte{0x02}, Tag: payment.Local}
}

func waitForState(t *testing.T, r *FSM, want State) {
	t.Helper()
	deadline := time.After(time.Second)
	for r.State() != want {
		select {
		case <-deadline:
			t.Fatalf("never reached %v, stuck at %v", want, r.State())
		case <-time.After(time.Millisecond):
		}
	}
}

func TestReceiver_FulfillsOnAggregateAmount(t *testing.T) {
	channel := newFakeChannel()
	invoices := &fakeInvoices{amount: 1000, hasAmt: true, preimage: [32]byte{0xaa}, hasPre: true}
	preimages := newFakePreimages()
	bag := newFakeBag()
	tag := testTag()

	r := New(context.Background(), tag, channel, invoices, preimages, bag, Config{CltvRejectThreshold: 10, Timeout: time.Minute}, nil)
	r.Start()
	defer r.Stop()

	part := payment.IncomingPart{Htlc: payment.UpdateAddHtlc{HtlcID: 1, AmountMsat: 1000, CltvExpiry: 200}}
	if err := r.Send(Snapshot{Parts: []payment.IncomingPart{part}, BlockHeight: 100}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	waitForState(t, r, Finalizing)
	if channel.countFulfilled() != 1 {
		t.Fatalf("fulfilled count = %d, want 1", channel.countFulfilled())
	}
	if bag.fulfills != 1 {
		t.Fatalf("bag fulfills = %d, want 1", bag.fulfills)
	}
}

func TestReceiver_AbortsOnCltvTooClose(t *testing.T) {
	channel := newFakeChannel()
	invoices := &fakeInvoices{amount: 1000, hasAmt: true}
	preimages := newFakePreimages()
	bag := newFakeBag()
	tag := testTag()

	r := New(context.Background(), tag, channel, invoices, preimages, bag, Config{CltvRejectThreshold: 50, Timeout: time.Minute}, nil)
	r.Start()
	defer r.Stop()

	part := payment.IncomingPart{Htlc: payment.UpdateAddHtlc{HtlcID: 1, AmountMsat: 500, CltvExpiry: 120}}
	if err := r.Send(Snapshot{Parts: []payment.IncomingPart{part}, BlockHeight: 100}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	waitForState(t, r, Finalizing)
	if channel.countFailed() != 1 {
		t.Fatalf("failed count = %d, want 1", channel.countFailed())
	}
}

func TestReceiver_KnownPreimageFulfillsImmediately(t *testing.T) {
	channel := newFakeChannel()
	invoices := &fakeInvoices{}
	preimages := newFakePreimages()
	bag := newFakeBag()
	tag := testTag()
	preimages.store[tag.PaymentHash] = [32]byte{0xbb}

	r := New(context.Background(), tag, channel, invoices, preimages, bag, Config{CltvRejectThreshold: 10, Timeout: time.Minute}, nil)
	r.Start()
	defer r.Stop()

	part := payment.IncomingPart{Htlc: payment.UpdateAddHtlc{HtlcID: 1, AmountMsat: 1, CltvExpiry: 500}}
	if err := r.Send(Snapshot{Parts: []payment.IncomingPart{part}, BlockHeight: 100}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	waitForState(t, r, Finalizing)
	if channel.countFulfilled() != 1 {
		t.Fatalf("fulfilled count = %d, want 1", channel.countFulfilled())
	}
}

func TestReceiver_ShutsDownWhenPartsDrain(t *testing.T) {
	channel := newFakeChannel()
	invoices := &fakeInvoices{amount: 1000, hasAmt: true, preimage: [32]byte{0xaa}, hasPre: true}
	preimages := newFakePreimages()
	bag := newFakeBag()
	tag := testTag()

	var shutdownCalled sync.WaitGroup
	shutdownCalled.Add(1)
	r := New(context.Background(), tag, channel, invoices, preimages, bag, Config{CltvRejectThreshold: 10, Timeout: time.Minute}, func() {
		shutdownCalled.Done()
	})
	r.Start()
	defer r.Stop()

	part := payment.IncomingPart{Htlc: payment.UpdateAddHtlc{HtlcID: 1, AmountMsat: 1000, CltvExpiry: 200}}
	if err := r.Send(Snapshot{Parts: []payment.IncomingPart{part}, BlockHeight: 100}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	waitForState(t, r, Finalizing)

	if err := r.Send(Snapshot{Parts: nil, BlockHeight: 101}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	waitForState(t, r, Shutdown)

	done := make(chan struct{})
	go func() {
		shutdownCalled.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("onShutdown callback never fired")
	}
}
