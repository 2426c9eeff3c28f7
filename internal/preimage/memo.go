// Package preimage caches recently-seen HTLC preimages in front of the
// persistent PaymentBag, so the hot "known preimage → fulfill" check in
// the receiver FSM doesn't hit storage on every in-flight snapshot.
package preimage

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Source is the persistence layer the memo sits in front of.
type Source interface {
	GetPreimage(paymentHash [32]byte) ([32]byte, bool, error)
	SetPreimage(paymentHash, preimage [32]byte) error
}

// Memo is a size-bounded cache over Source, invalidated explicitly on
// every write rather than on a TTL — a preimage never changes once set,
// so the only staleness risk is a miss, never a stale hit.
type Memo struct {
	mu     sync.Mutex
	cache  *lru.Cache[[32]byte, [32]byte]
	source Source
}

// New returns a Memo of the given capacity (entries) backed by source.
func New(source Source, capacity int) (*Memo, error) {
	cache, err := lru.New[[32]byte, [32]byte](capacity)
	if err != nil {
		return nil, err
	}
	return &Memo{cache: cache, source: source}, nil
}

// GetPreimage returns the preimage for paymentHash, consulting the cache
// before falling through to the backing store on a miss.
func (m *Memo) GetPreimage(paymentHash [32]byte) ([32]byte, bool, error) {
	m.mu.Lock()
	if p, ok := m.cache.Get(paymentHash); ok {
		m.mu.Unlock()
		return p, true, nil
	}
	m.mu.Unlock()

	p, ok, err := m.source.GetPreimage(paymentHash)
	if err != nil {
		return [32]byte{}, false, err
	}
	if ok {
		m.mu.Lock()
		m.cache.Add(paymentHash, p)
		m.mu.Unlock()
	}
	return p, ok, nil
}

// SetPreimage writes the preimage through to the backing store, and
// only updates the cache once the write succeeds — a failed write must
// never have been visible through the cache.
func (m *Memo) SetPreimage(paymentHash, preimage [32]byte) error {
	if err := m.source.SetPreimage(paymentHash, preimage); err != nil {
		return err
	}
	m.mu.Lock()
	m.cache.Add(paymentHash, preimage)
	m.mu.Unlock()
	return nil
}
