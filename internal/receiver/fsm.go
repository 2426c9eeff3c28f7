package receiver

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingnet-wallet/internal/fsm"
	"github.com/Klingon-tech/klingnet-wallet/internal/log"
	"github.com/Klingon-tech/klingnet-wallet/internal/payment"
	"github.com/Klingon-tech/klingnet-wallet/internal/storage"
)

// Config holds the per-receiver policy knobs an operator tunes.
type Config struct {
	// CltvRejectThreshold aborts a part whose CltvExpiry is within this
	// many blocks of the current tip.
	CltvRejectThreshold uint32
	// Timeout is how long the FSM waits after the last new part before
	// giving up and aborting with PaymentTimeout.
	Timeout time.Duration
}

// partKey identifies one HTLC part across snapshots, for "new part"
// detection independent of slice ordering.
type partKey struct {
	channel payment.ChannelID
	htlcID  uint64
}

// FSM is one local receiver instance, tracking a single FullPaymentTag
// from first matching HTLC through fulfill/abort to shutdown.
type FSM struct {
	mailbox *fsm.Mailbox[Message]
	logger  zerolog.Logger

	tag payment.FullPaymentTag
	cfg Config

	channel   ChannelPort
	invoices  InvoiceLookup
	preimages PreimageStore
	bag       Bag

	// onShutdown lets the owning registry drop this FSM from its map of
	// live receivers once the tag has fully drained from in-flight.
	onShutdown func()

	state           State
	out             outcome
	seenParts       map[partKey]bool
	lastParts       []payment.IncomingPart
	lastBlockHeight uint32
	timer           *time.Timer
}

// New creates a receiver FSM for tag. The caller is expected to create
// one on first matching HTLC and route every later Snapshot for the same
// tag to it.
func New(parentCtx context.Context, tag payment.FullPaymentTag, channel ChannelPort, invoices InvoiceLookup, preimages PreimageStore, bag Bag, cfg Config, onShutdown func()) *FSM {
	r := &FSM{
		tag:        tag,
		cfg:        cfg,
		channel:    channel,
		invoices:   invoices,
		preimages:  preimages,
		bag:        bag,
		onShutdown: onShutdown,
		state:      Receiving,
		seenParts:  make(map[partKey]bool),
	}
	r.logger = log.Receiver.With().Str("tag", tag.String()).Logger()
	r.mailbox = fsm.NewMailbox[Message](parentCtx, 32, r.logger)
	return r
}

// Start launches the FSM's drain loop and arms its initial timeout.
func (r *FSM) Start() {
	r.mailbox.Start(r.handle)
	r.armTimeout()
}

// Stop cancels the timer and drains the mailbox down.
func (r *FSM) Stop() {
	if r.timer != nil {
		r.timer.Stop()
	}
	r.mailbox.Stop()
}

// Send enqueues msg for processing on the FSM's own goroutine.
func (r *FSM) Send(msg Message) error {
	return r.mailbox.Send(msg)
}

// State returns the FSM's current state. Safe to call from any
// goroutine for observability; it does not synchronize with in-flight
// handling, so a caller acting on it should tolerate staleness.
func (r *FSM) State() State {
	return r.state
}

func (r *FSM) armTimeout() {
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.cfg.Timeout, func() {
		_ = r.mailbox.Send(CMDTimeout{})
	})
}

func (r *FSM) handle(msg Message) {
	switch m := msg.(type) {
	case Snapshot:
		r.onSnapshot(m)
	case CMDTimeout:
		r.onTimeout()
	}
}

func (r *FSM) onSnapshot(m Snapshot) {
	r.lastBlockHeight = m.BlockHeight
	r.lastParts = m.Parts

	newPart := false
	for _, p := range m.Parts {
		k := partKey{channel: p.Htlc.ChannelID, htlcID: p.Htlc.HtlcID}
		if !r.seenParts[k] {
			r.seenParts[k] = true
			newPart = true
		}
	}
	if newPart {
		r.armTimeout()
	}

	switch r.state {
	case Receiving:
		r.evaluateReceiving(m.Parts)
	case Finalizing:
		r.reissue(m.Parts)
	case Shutdown:
	}
}

func (r *FSM) onTimeout() {
	if r.state != Receiving {
		return
	}
	r.abort(payment.PaymentTimeout{}, r.lastParts)
}

// evaluateReceiving walks the fulfill-trigger priority order: known preimage, succeeded-invoice retry, CLTV-too-close abort,
// aggregate-amount-met fulfill, else wait.
func (r *FSM) evaluateReceiving(parts []payment.IncomingPart) {
	if preimg, ok, err := r.preimages.GetPreimage(r.tag.PaymentHash); err == nil && ok {
		r.fulfill(preimg, parts)
		return
	}

	if _, ok, err := r.bag.InvoiceSucceeded(r.tag); err == nil && ok {
		if preimg, ok2, err2 := r.preimages.GetPreimage(r.tag.PaymentHash); err2 == nil && ok2 {
			r.fulfill(preimg, parts)
			return
		}
		r.logger.Warn().Msg("invoice already marked succeeded but preimage missing from store")
	}

	for _, p := range parts {
		if p.Htlc.CltvExpiry <= r.lastBlockHeight+r.cfg.CltvRejectThreshold {
			r.abort(nil, parts)
			return
		}
	}

	var total uint64
	for _, p := range parts {
		total += p.Htlc.AmountMsat
	}
	if amount, ok := r.invoices.AmountMsat(r.tag); ok && total >= amount {
		if preimg, ok2 := r.invoices.Preimage(r.tag); ok2 {
			r.fulfill(preimg, parts)
			return
		}
		r.logger.Error().Msg("invoice amount satisfied but invoice carries no preimage")
	}
}

// fulfill performs the atomic storage write and, only on success, sends
// CMD_FULFILL_HTLC to every part's channel before moving to FINALIZING.
func (r *FSM) fulfill(preimage [32]byte, parts []payment.IncomingPart) {
	var total uint64
	for _, p := range parts {
		total += p.Htlc.AmountMsat
	}
	info := storage.SearchablePayment{Tag: r.tag, ReceivedMsat: total, SucceededAt: time.Now().Unix()}
	if err := r.bag.FulfillIncoming(r.tag, r.tag.PaymentHash, preimage, total, info); err != nil {
		r.logger.Error().Err(err).Msg("fulfill: storage write failed, will retry on next snapshot")
		return
	}
	for _, p := range parts {
		if err := r.channel.FulfillHTLC(p, preimage); err != nil {
			r.logger.Error().Err(err).Uint64("htlc_id", p.Htlc.HtlcID).Msg("fulfill: channel rejected CMD_FULFILL_HTLC")
		}
	}
	r.out = revealed(preimage)
	r.state = Finalizing
}

// abort fails every current part, with either a synthesized
// IncorrectOrUnknownPaymentDetails (failure == nil) or a retained
// FailureMessage replayed identically on later snapshots.
func (r *FSM) abort(failure payment.FailureMessage, parts []payment.IncomingPart) {
	r.out = aborted(failure)
	r.state = Finalizing
	r.reissue(parts)
}

// reissue re-sends the FSM's terminal outcome to every currently present
// part (channels dedupe repeats), and shuts down once the tag has fully
// drained from in-flight.
func (r *FSM) reissue(parts []payment.IncomingPart) {
	for _, p := range parts {
		if r.out.preimage != nil {
			if err := r.channel.FulfillHTLC(p, *r.out.preimage); err != nil {
				r.logger.Error().Err(err).Uint64("htlc_id", p.Htlc.HtlcID).Msg("reissue: fulfill failed")
			}
			continue
		}
		msg := r.out.failure
		if msg == nil {
			msg = payment.IncorrectOrUnknownPaymentDetails{AmountMsat: p.Htlc.AmountMsat, BlockHeight: r.lastBlockHeight}
		}
		if err := r.channel.FailHTLC(p, msg); err != nil {
			r.logger.Error().Err(err).Uint64("htlc_id", p.Htlc.HtlcID).Msg("reissue: fail failed")
		}
	}
	if len(parts) == 0 {
		r.state = Shutdown
		if r.onShutdown != nil {
			r.onShutdown()
		}
	}
}
