package receiver

import (
	"context"
	"sync"

	"github.com/Klingon-tech/klingnet-wallet/internal/payment"
)

// Factory builds the per-tag collaborators a new receiver FSM needs.
// The registry calls this exactly once per tag, on first snapshot.
type Factory func(tag payment.FullPaymentTag) (ChannelPort, InvoiceLookup, PreimageStore, Bag, Config)

// Registry owns the set of live receiver FSMs, one per FullPaymentTag,
// spawning a new one on first snapshot for a tag and dropping it once
// the FSM reports SHUTDOWN.
type Registry struct {
	parentCtx context.Context
	factory   Factory

	mu        sync.RWMutex
	receivers map[payment.FullPaymentTag]*FSM
}

// NewRegistry creates an empty Registry. factory is consulted once per
// tag to construct that receiver's collaborators and policy.
func NewRegistry(parentCtx context.Context, factory Factory) *Registry {
	return &Registry{
		parentCtx: parentCtx,
		factory:   factory,
		receivers: make(map[payment.FullPaymentTag]*FSM),
	}
}

// Dispatch routes a snapshot to tag's receiver FSM, spawning it first if
// this is the first snapshot seen for tag.
func (m *Registry) Dispatch(tag payment.FullPaymentTag, snapshot Snapshot) {
	r := m.ensure(tag)
	_ = r.Send(snapshot)
}

func (m *Registry) ensure(tag payment.FullPaymentTag) *FSM {
	m.mu.RLock()
	r, ok := m.receivers[tag]
	m.mu.RUnlock()
	if ok {
		return r
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.receivers[tag]; ok {
		return r
	}

	channel, invoices, preimages, bag, cfg := m.factory(tag)
	r = New(m.parentCtx, tag, channel, invoices, preimages, bag, cfg, func() {
		m.drop(tag)
	})
	r.Start()
	m.receivers[tag] = r
	return r
}

// drop removes tag's FSM from the registry and stops it. It is called
// from the FSM's own onShutdown callback, which runs on that FSM's
// mailbox goroutine — so the actual Stop() (which blocks on that same
// goroutine's exit) is deferred to a separate goroutine to avoid
// self-deadlock.
func (m *Registry) drop(tag payment.FullPaymentTag) {
	m.mu.Lock()
	r, ok := m.receivers[tag]
	if ok {
		delete(m.receivers, tag)
	}
	m.mu.Unlock()
	if ok {
		go r.Stop()
	}
}

// Active returns the number of currently live receiver FSMs.
func (m *Registry) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.receivers)
}

// StopAll stops every live receiver FSM, for daemon shutdown.
func (m *Registry) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for tag, r := range m.receivers {
		r.Stop()
		delete(m.receivers, tag)
	}
}
