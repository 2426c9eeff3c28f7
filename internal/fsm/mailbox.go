// Package fsm provides the cooperative single-threaded mailbox that every
// wallet-side state machine (the wallet FSM, the local receiver FSM, the
// trampoline relayer FSM) runs on: one goroutine per instance draining a
// buffered channel of typed messages, so the state struct it closes over
// never needs its own lock.
package fsm

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Handler processes one message drained from a Mailbox. It runs on the
// mailbox's single goroutine; it must not block on anything but the state
// it is mutating.
type Handler[M any] func(msg M)

// Mailbox is a buffered, typed message queue drained by exactly one
// goroutine. It gives each FSM instance the same lifecycle shape as the
// node's background loops: a cancellable context, a WaitGroup the owner
// can block on at shutdown, and a channel that Send never blocks past
// fullness forever on (closed contexts unblock senders instead of
// deadlocking them).
type Mailbox[M any] struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger zerolog.Logger

	msgs chan M

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewMailbox creates a Mailbox with the given buffer capacity. parent is
// the context the caller wants the mailbox's lifetime tied to (typically
// the daemon's root context); capacity <= 0 is treated as unbuffered. Each
// mailbox gets a random instance ID so its log lines can be correlated
// across the lifetime of one FSM instance (a wallet has many receiver and
// trampoline FSMs running concurrently, one per in-flight payment).
func NewMailbox[M any](parent context.Context, capacity int, logger zerolog.Logger) *Mailbox[M] {
	if capacity < 0 {
		capacity = 0
	}
	ctx, cancel := context.WithCancel(parent)
	id := uuid.NewString()
	return &Mailbox[M]{
		id:     id,
		ctx:    ctx,
		cancel: cancel,
		logger: logger.With().Str("mailbox_id", id).Logger(),
		msgs:   make(chan M, capacity),
	}
}

// ID returns the mailbox's correlation ID.
func (m *Mailbox[M]) ID() string {
	return m.id
}

// Start launches the single draining goroutine. It is a no-op on a second
// call; the handler runs until Stop is called or the parent context is
// canceled, whichever comes first.
func (m *Mailbox[M]) Start(handle Handler[M]) {
	m.startOnce.Do(func() {
		m.logger.Debug().Msg("mailbox started")
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			defer m.logger.Debug().Msg("mailbox drain loop exited")
			for {
				select {
				case <-m.ctx.Done():
					return
				case msg, ok := <-m.msgs:
					if !ok {
						return
					}
					handle(msg)
				}
			}
		}()
	})
}

// Send enqueues msg for the draining goroutine. It returns an error
// without blocking indefinitely if the mailbox has already been stopped.
func (m *Mailbox[M]) Send(msg M) error {
	select {
	case <-m.ctx.Done():
		return fmt.Errorf("fsm: mailbox closed")
	default:
	}
	select {
	case m.msgs <- msg:
		return nil
	case <-m.ctx.Done():
		return fmt.Errorf("fsm: mailbox closed")
	}
}

// TrySend enqueues msg without blocking, reporting false if the mailbox's
// buffer is full or it has been stopped. Used by callers on a hot path
// that would rather drop (and log) than stall the caller's own goroutine.
func (m *Mailbox[M]) TrySend(msg M) bool {
	select {
	case <-m.ctx.Done():
		return false
	default:
	}
	select {
	case m.msgs <- msg:
		return true
	default:
		return false
	}
}

// Stop cancels the mailbox's context and blocks until the draining
// goroutine has returned. Safe to call more than once.
func (m *Mailbox[M]) Stop() {
	m.stopOnce.Do(func() {
		m.cancel()
		m.wg.Wait()
	})
}

// Done returns a channel closed when the mailbox's context is canceled,
// so an owner can select on it alongside its own shutdown signals.
func (m *Mailbox[M]) Done() <-chan struct{} {
	return m.ctx.Done()
}
