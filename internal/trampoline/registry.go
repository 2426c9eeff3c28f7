package trampoline

import (
	"context"
	"sync"

	"github.com/Klingon-tech/klingnet-wallet/internal/payment"
)

// Factory builds the per-tag collaborators a new relayer FSM needs.
// The registry calls this exactly once per tag, on first snapshot.
type Factory func(tag payment.FullPaymentTag) (ChannelPort, ChannelStatusPort, Bag, SenderFactory, Config)

// Registry owns the set of live trampoline relayer FSMs, one per
// FullPaymentTag, spawning a new one on first snapshot for a tag and
// dropping it once the FSM reports SHUTDOWN. Mirrors
// internal/receiver.Registry; kept as a separate type since the two
// packages have no dependency on each other.
type Registry struct {
	parentCtx context.Context
	factory   Factory

	mu       sync.RWMutex
	relayers map[payment.FullPaymentTag]*FSM
}

// NewRegistry creates an empty Registry. factory is consulted once per
// tag to construct that relayer's collaborators and policy.
func NewRegistry(parentCtx context.Context, factory Factory) *Registry {
	return &Registry{
		parentCtx: parentCtx,
		factory:   factory,
		relayers:  make(map[payment.FullPaymentTag]*FSM),
	}
}

// Dispatch routes a snapshot to tag's relayer FSM, spawning it first if
// this is the first snapshot seen for tag.
func (m *Registry) Dispatch(tag payment.FullPaymentTag, snapshot Snapshot) {
	r := m.ensure(tag)
	_ = r.Send(snapshot)
}

// DispatchSenderUpdate routes an update from the outgoing sender
// sub-FSM to tag's relayer, if one is live. Unlike Dispatch, it never
// spawns a relayer: a sender update can only arrive for a tag that
// already sent something, which implies the relayer already exists.
func (m *Registry) DispatchSenderUpdate(tag payment.FullPaymentTag, update SenderUpdate) {
	m.mu.RLock()
	r, ok := m.relayers[tag]
	m.mu.RUnlock()
	if ok {
		_ = r.Send(update)
	}
}

func (m *Registry) ensure(tag payment.FullPaymentTag) *FSM {
	m.mu.RLock()
	r, ok := m.relayers[tag]
	m.mu.RUnlock()
	if ok {
		return r
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.relayers[tag]; ok {
		return r
	}

	channel, channelStatus, bag, senderFactory, cfg := m.factory(tag)
	r = New(m.parentCtx, tag, channel, channelStatus, bag, senderFactory, cfg, func() {
		m.drop(tag)
	})
	r.Start()
	m.relayers[tag] = r
	return r
}

// drop removes tag's FSM from the registry and stops it. It is called
// from the FSM's own onShutdown callback, which runs on that FSM's
// mailbox goroutine, so the actual Stop() is deferred to a separate
// goroutine to avoid self-deadlock.
func (m *Registry) drop(tag payment.FullPaymentTag) {
	m.mu.Lock()
	r, ok := m.relayers[tag]
	if ok {
		delete(m.relayers, tag)
	}
	m.mu.Unlock()
	if ok {
		go r.Stop()
	}
}

// Active returns the number of currently live relayer FSMs.
func (m *Registry) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.relayers)
}

// StopAll stops every live relayer FSM, for daemon shutdown.
func (m *Registry) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for tag, r := range m.relayers {
		r.Stop()
		delete(m.relayers, tag)
	}
}
