package trampoline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingnet-wallet/internal/fsm"
	"github.com/Klingon-tech/klingnet-wallet/internal/log"
	"github.com/Klingon-tech/klingnet-wallet/internal/payment"
)

// Config holds a relayer's policy knobs.
type Config struct {
	MinCltvDelta   uint32
	MinForwardMsat uint64
	Timeout        time.Duration
	FeeSchedule    FeeSchedule
}

// FSM is one trampoline relayer instance, tracking a single
// FullPaymentTag from first matching incoming HTLC through a bound
// outgoing send to fulfill/fail of every incoming part.
type FSM struct {
	mailbox *fsm.Mailbox[Message]
	logger  zerolog.Logger

	tag payment.FullPaymentTag
	cfg Config

	channel       ChannelPort
	channelStatus ChannelStatusPort
	bag           Bag
	sender        payment.OutgoingSenderPort
	feeSchedule   FeeSchedule

	onShutdown func()

	state           State
	mode            sendingMode
	out             outcome
	lastIncoming    []payment.IncomingPart
	lastOutgoing    []payment.OutgoingPart
	lastBlockHeight uint32
	timer           *time.Timer
	seenParts       map[partKey]bool
}

// partKey identifies one incoming HTLC part across snapshots, for
// "new part" timeout-reset detection independent of slice ordering.
type partKey struct {
	channel payment.ChannelID
	htlcID  uint64
}

// New creates a relayer FSM for tag, unconditionally constructing the
// outgoing sender sub-FSM handle via factory so restart-reconciliation
// with leftover outgoing parts works even if this process never ends up
// calling SendMultiPart itself.
func New(parentCtx context.Context, tag payment.FullPaymentTag, channel ChannelPort, channelStatus ChannelStatusPort, bag Bag, factory SenderFactory, cfg Config, onShutdown func()) *FSM {
	r := &FSM{
		tag:           tag,
		cfg:           cfg,
		channel:       channel,
		channelStatus: channelStatus,
		bag:           bag,
		feeSchedule:   cfg.FeeSchedule,
		onShutdown:    onShutdown,
		state:         Receiving,
		seenParts:     make(map[partKey]bool),
	}
	r.logger = log.Trampoline.With().Str("tag", tag.String()).Logger()
	r.mailbox = fsm.NewMailbox[Message](parentCtx, 32, r.logger)
	r.sender = factory(tag)
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

// State returns the FSM's current state for observability.
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
	case SenderUpdate:
		r.onSenderUpdate(m)
	case CMDTimeout:
		r.onTimeout()
	}
}

func (r *FSM) onSnapshot(m Snapshot) {
	r.lastBlockHeight = m.BlockHeight
	r.lastIncoming = m.Incoming
	r.lastOutgoing = m.Outgoing

	newPart := false
	for _, p := range m.Incoming {
		k := partKey{channel: p.Htlc.ChannelID, htlcID: p.Htlc.HtlcID}
		if !r.seenParts[k] {
			r.seenParts[k] = true
			newPart = true
		}
	}
	if newPart && r.state == Receiving {
		r.armTimeout()
	}

	switch r.state {
	case Receiving:
		r.evaluateReceiving(m.Incoming, m.Outgoing, m.BlockHeight)
	case Sending:
		// Once revealed, incoming leftovers are fulfilled as they
		// arrive even though the FSM stays SENDING until the outgoing
		// side has fully drained.
		if r.out.preimage != nil {
			r.reissue(m.Incoming)
			if r.state == Sending && len(m.Outgoing) == 0 {
				r.state = Finalizing
			}
		}
	case Finalizing:
		r.reissue(m.Incoming)
	case Shutdown:
	}
}

// evaluateReceiving implements RECEIVING's transition list in priority
// order.
func (r *FSM) evaluateReceiving(incoming []payment.IncomingPart, outgoing []payment.OutgoingPart, blockHeight uint32) {
	if preimg, ok, err := r.bag.GetPreimage(r.tag.PaymentHash); err == nil && ok {
		r.fulfillPreRecorded(preimg, incoming)
		return
	}

	incomingAmount := incomingTotal(incoming)
	var forwardAmount uint64
	if len(incoming) > 0 {
		forwardAmount = incoming[0].Payload.AmountToForward
	}
	required := r.feeSchedule.RequiredFeeMsat(forwardAmount)
	sufficient := len(incoming) > 0 && incomingAmount >= forwardAmount+required

	switch {
	case sufficient && len(outgoing) == 0:
		v, failure := r.validate(incoming, blockHeight)
		if failure != nil {
			r.abort(failure, incoming)
			return
		}
		excluded := excludeChannels(incoming)
		slack, _ := minCltv(incoming)
		maxDelta := slack - v.outgoingCltv
		r.state = Sending
		r.mode = modeProcessing
		if err := r.sender.SendMultiPart(payment.SendMultiPart{
			Tag:             r.tag,
			AmountMsat:      v.amountToForward,
			FinalCltvExpiry: v.outgoingCltv,
			MaxCltvDelta:    maxDelta,
			ExcludeChannels: excluded,
			NextNode:        v.nextPacket,
		}); err != nil {
			r.logger.Error().Err(err).Msg("SendMultiPart rejected by outgoing sender")
		}
	case sufficient && len(outgoing) > 0:
		r.state = Sending
		r.mode = modeStoppingRetry
	case !sufficient && len(outgoing) > 0:
		r.state = Sending
		r.mode = modeStoppingFail
	default:
		// otherwise wait; CMDTimeout below handles the give-up case.
	}
}

func (r *FSM) onTimeout() {
	if r.state != Receiving {
		return
	}
	if len(r.lastOutgoing) == 0 {
		r.abort(payment.PaymentTimeout{}, r.lastIncoming)
	}
}

func (r *FSM) onSenderUpdate(m SenderUpdate) {
	switch r.state {
	case Sending:
		if m.Data.Preimage != nil && r.out.preimage == nil {
			r.fulfillFromSender(*m.Data.Preimage, m.Data, r.lastIncoming)
			return
		}
		if m.Data.Preimage == nil && m.Data.InFlightParts == 0 {
			r.onSenderFinalFailure(m.Data)
		}
	case Finalizing:
		// The sender sub-FSM isn't torn down on abort, so a reveal can
		// still land after validate()/onSenderFinalFailure already
		// moved the FSM to FINALIZING with a failure outcome. Once a
		// preimage is known it must fulfill every present part despite
		// the earlier failure, so override rather than drop it.
		if m.Data.Preimage != nil && r.out.preimage == nil {
			r.fulfillFromSender(*m.Data.Preimage, m.Data, r.lastIncoming)
		}
	}
}

func (r *FSM) onSenderFinalFailure(data payment.SenderData) {
	switch r.mode {
	case modeProcessing:
		r.abort(chooseFailure(data), r.lastIncoming)
	case modeStoppingRetry:
		r.state = Receiving
		r.mode = modeProcessing
		r.evaluateReceiving(r.lastIncoming, nil, r.lastBlockHeight)
	case modeStoppingFail:
		r.abort(chooseFailure(data), r.lastIncoming)
	}
}

// chooseFailure picks the failure to report upstream from a final
// sender report, by preference order.
func chooseFailure(data payment.SenderData) payment.FailureMessage {
	if data.RemoteFailure != nil {
		return data.RemoteFailure
	}
	if data.IsNoRouteFound {
		return payment.TrampolineFeeInsufficient{}
	}
	return payment.TemporaryNodeFailure{Reason: "outgoing send failed"}
}

// fulfillPreRecorded handles RECEIVING's "preimage already known" trigger:
// no outgoing sender was ever involved, so the FSM moves straight to
// FINALIZING and earnings fall back to the nominal scheduled fee.
func (r *FSM) fulfillPreRecorded(preimage [32]byte, incoming []payment.IncomingPart) {
	r.recordEarnings(preimage, payment.SenderData{}, incoming)
	r.out = revealed(preimage, payment.SenderData{})
	r.state = Finalizing
	r.reissue(incoming)
}

// fulfillFromSender handles SENDING's first-preimage event: the FSM
// records the reveal but stays SENDING so it keeps
// fulfilling incoming leftovers as they arrive until the outgoing side
// has fully drained, at which point onSnapshot moves it to FINALIZING.
func (r *FSM) fulfillFromSender(preimage [32]byte, data payment.SenderData, incoming []payment.IncomingPart) {
	if err := r.bag.SetPreimage(r.tag.PaymentHash, preimage); err != nil {
		r.logger.Error().Err(err).Msg("fulfill: storage write failed, will retry on next event")
		return
	}
	r.recordEarnings(preimage, data, incoming)
	r.out = revealed(preimage, data)
	r.reissue(incoming)
}

// recordEarnings writes the single RelayedPreimageInfo record: earning is incoming minus the forwarded amount minus the
// sender's actual fee when the sender reported in-flight parts, else the nominal scheduled fee.
func (r *FSM) recordEarnings(preimage [32]byte, data payment.SenderData, incoming []payment.IncomingPart) {
	incomingAmount := incomingTotal(incoming)
	var forwardAmount uint64
	if len(incoming) > 0 {
		forwardAmount = incoming[0].Payload.AmountToForward
	}

	var earned uint64
	if data.InFlightParts > 0 {
		reserve := incomingAmount
		if data.UsedFeeMsat < reserve {
			earned = reserve - data.UsedFeeMsat - forwardAmount
		}
	} else {
		earned = r.feeSchedule.RequiredFeeMsat(forwardAmount)
	}

	if err := r.bag.AddRelayedPreimageInfo(r.tag, preimage, incomingAmount, earned); err != nil {
		r.logger.Error().Err(err).Msg("failed to write relayed preimage info")
	}
}

// abort fails every current incoming part with failure and moves to
// FINALIZING.
func (r *FSM) abort(failure payment.FailureMessage, incoming []payment.IncomingPart) {
	r.out = aborted(failure)
	r.state = Finalizing
	r.reissue(incoming)
}

// reissue re-sends the FSM's terminal outcome to every currently present
// incoming part. A late reveal always overrides an earlier abort: both
// onSenderUpdate call sites that reach fulfillFromSender only do so when
// r.out.preimage is still nil, so an abort never blocks a later reveal
// from overwriting r.out.
func (r *FSM) reissue(incoming []payment.IncomingPart) {
	for _, p := range incoming {
		if r.out.preimage != nil {
			if err := r.channel.FulfillHTLC(p, *r.out.preimage); err != nil {
				r.logger.Error().Err(err).Uint64("htlc_id", p.Htlc.HtlcID).Msg("reissue: fulfill failed")
			}
			continue
		}
		if err := r.channel.FailHTLC(p, r.out.failure); err != nil {
			r.logger.Error().Err(err).Uint64("htlc_id", p.Htlc.HtlcID).Msg("reissue: fail failed")
		}
	}
	if len(incoming) == 0 {
		r.state = Shutdown
		if r.onShutdown != nil {
			r.onShutdown()
		}
	}
}

// excludeChannels lists the channels an outgoing route must avoid: the
// ones that routed the incoming parts to us, so we never loop a forward
// straight back to the peer that handed it in.
func excludeChannels(incoming []payment.IncomingPart) []payment.ChannelID {
	seen := make(map[payment.ChannelID]bool, len(incoming))
	var out []payment.ChannelID
	for _, p := range incoming {
		if !seen[p.Htlc.ChannelID] {
			seen[p.Htlc.ChannelID] = true
			out = append(out, p.Htlc.ChannelID)
		}
	}
	return out
}
