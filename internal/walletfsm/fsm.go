package walletfsm

import (
	"context"
	"fmt"

	"github.com/Klingon-tech/klingnet-wallet/internal/blockchain"
	"github.com/Klingon-tech/klingnet-wallet/internal/chainparams"
	"github.com/Klingon-tech/klingnet-wallet/internal/electrum"
	"github.com/Klingon-tech/klingnet-wallet/internal/fsm"
	"github.com/Klingon-tech/klingnet-wallet/internal/keyring"
	"github.com/Klingon-tech/klingnet-wallet/internal/log"
	"github.com/Klingon-tech/klingnet-wallet/internal/storage"
	"github.com/Klingon-tech/klingnet-wallet/pkg/bitcoin"
	"github.com/rs/zerolog"
)

// Events is the set of hooks FSM calls out to when something worth
// telling the rest of the application about happens. Every hook is
// optional; a nil hook is simply skipped.
type Events struct {
	OnReady               func(ReadyMessage)
	OnTransactionReceived func(*bitcoin.Transaction)
}

// Params bundles the operator-tunable policy knobs left to configuration
// rather than protocol.
type Params struct {
	SwipeRange            int
	DustLimit             int64
	FeeRatePerKw          int64
	AllowSpendUnconfirmed bool
}

// FSM is Core A: one mailbox-driven state machine per wallet, holding
// the header chain, key ring, and in-flight server-request bookkeeping
// the connection FSM needs.
type FSM struct {
	mailbox *fsm.Mailbox[Message]
	logger  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	server electrum.ServerPort
	db     storage.WalletDB
	chain  *blockchain.Blockchain
	keys   *keyring.KeyRing
	params *chainparams.Params

	fsmState State
	state    *walletState

	swipeRange            int
	dustLimit             int64
	feeRatePerKw          int64
	allowSpendUnconfirmed bool

	events Events
}

// New constructs an FSM in the DISCONNECTED state, reloading any
// persisted header chain and wallet snapshot from db.
func New(parentCtx context.Context, server electrum.ServerPort, db storage.WalletDB, keys *keyring.KeyRing, cp *chainparams.Params, p Params, events Events) (*FSM, error) {
	chain, err := loadBlockchain(db, cp)
	if err != nil {
		return nil, err
	}

	data, err := db.ReadPersistentData()
	if err != nil {
		return nil, fmt.Errorf("walletfsm: read persisted state: %w", err)
	}
	state := newWalletState()
	state.fromPersistentData(data)

	ctx, cancel := context.WithCancel(parentCtx)
	return &FSM{
		mailbox:               fsm.NewMailbox[Message](ctx, 256, log.Wallet),
		logger:                log.Wallet,
		ctx:                   ctx,
		cancel:                cancel,
		server:                server,
		db:                    db,
		chain:                 chain,
		keys:                  keys,
		params:                cp,
		fsmState:              Disconnected,
		state:                 state,
		swipeRange:            p.SwipeRange,
		dustLimit:             p.DustLimit,
		feeRatePerKw:          p.FeeRatePerKw,
		allowSpendUnconfirmed: p.AllowSpendUnconfirmed,
		events:                events,
	}, nil
}

// Start begins draining the mailbox and pumping server notifications
// into it.
func (f *FSM) Start() {
	f.mailbox.Start(f.handle)
	go f.pumpNotifications()
}

// Stop tears down the notification pump and mailbox.
func (f *FSM) Stop() {
	f.cancel()
	f.mailbox.Stop()
}

// Send delivers a message to the FSM's mailbox.
func (f *FSM) Send(msg Message) error {
	return f.mailbox.Send(msg)
}

// State returns the FSM's current connection state.
func (f *FSM) State() State {
	return f.fsmState
}

func (f *FSM) pumpNotifications() {
	for {
		select {
		case <-f.ctx.Done():
			return
		case n, ok := <-f.server.Notifications():
			if !ok {
				return
			}
			switch v := n.(type) {
			case electrum.TipNotification:
				_ = f.Send(TipNotificationMsg{Height: v.Height, Header: v.Header})
			case electrum.ScriptHashStatusNotification:
				_ = f.Send(ScriptHashStatusMsg{ScriptHash: v.ScriptHash, Status: v.StatusString})
			}
		}
	}
}

// goRequest runs fn in its own goroutine and forwards whatever message
// it produces back into the mailbox, so a slow server round trip never
// blocks the single-threaded drain loop.
func (f *FSM) goRequest(fn func(ctx context.Context) (Message, error)) {
	go func() {
		msg, err := fn(f.ctx)
		if err != nil {
			f.logger.Warn().Err(err).Msg("server request failed")
			return
		}
		if err := f.Send(msg); err != nil {
			f.logger.Debug().Err(err).Msg("dropped response after shutdown")
		}
	}()
}

func (f *FSM) handle(msg Message) {
	switch m := msg.(type) {
	case ServerReady:
		f.onServerReady()
	case TipNotificationMsg:
		f.onTipNotification(m)
	case HeadersResponseMsg:
		f.onHeadersResponse(m)
	case ScriptHashStatusMsg:
		f.onScriptHashStatus(m)
	case HistoryResponseMsg:
		f.onHistoryResponse(m)
	case TransactionResponseMsg:
		f.onTransactionResponse(m)
	case MerkleProofMsg:
		f.onMerkleProof(m)
	case DisconnectedMsg:
		f.onDisconnected(m)
	case commitRequest:
		f.commitTransaction(m.tx)
		f.persistState()
		m.done <- nil
	default:
		f.logger.Warn().Msgf("unhandled wallet message %T", msg)
	}
}

// onServerReady: DISCONNECTED x ServerReady.
func (f *FSM) onServerReady() {
	if f.fsmState != Disconnected {
		return
	}
	f.goRequest(func(ctx context.Context) (Message, error) {
		res, err := f.server.SubscribeHeaders(ctx)
		if err != nil {
			return nil, err
		}
		return TipNotificationMsg{Height: res.Height, Header: res.Header}, nil
	})
	f.fsmState = WaitingForTip
}

// onTipNotification: WAITING_FOR_TIP and RUNNING both react to tip
// pushes, with different handling.
func (f *FSM) onTipNotification(m TipNotificationMsg) {
	switch f.fsmState {
	case WaitingForTip:
		f.onTipWaitingForTip(m)
	case Running:
		f.onTipRunning(m)
	default:
		f.logger.Debug().Str("state", f.fsmState.String()).Msg("ignoring tip notification outside WAITING_FOR_TIP/RUNNING")
	}
}

func (f *FSM) onTipWaitingForTip(m TipNotificationMsg) {
	if m.Height < f.chain.Height() {
		f.disconnect(fmt.Errorf("walletfsm: server tip height %d behind known chain height %d", m.Height, f.chain.Height()))
		return
	}

	tip, hasTip := f.chain.Tip()
	switch {
	case !hasTip:
		checkpoint, ok := f.params.LatestCheckpoint()
		if !ok {
			f.disconnect(fmt.Errorf("walletfsm: no checkpoint configured"))
			return
		}
		f.requestHeaders(checkpoint.Height, bitcoin.RetargetWindow)
		f.fsmState = Syncing

	case m.Header != nil && tip.Hash() == m.Header.Hash():
		f.subscribeAllScriptHashes()
		f.fsmState = Running
		f.maybePublishReady()

	default:
		f.requestHeaders(tip.Height+1, bitcoin.RetargetWindow)
		f.fsmState = Syncing
	}
}

func (f *FSM) onTipRunning(m TipNotificationMsg) {
	if m.Header == nil {
		return
	}
	if err := f.chain.AddHeader(m.Header); err != nil {
		f.logger.Warn().Err(err).Msg("rejected pushed tip header")
		return
	}
	f.persistSealedChunks()
	f.replayPendingProofs()
	f.persistState()
	f.maybePublishReady()
}

func (f *FSM) requestHeaders(start, count uint64) {
	r := headersRange{Start: start, Count: count}
	if f.state.pendingHeadersRequests[r] {
		return
	}
	f.state.pendingHeadersRequests[r] = true
	f.goRequest(func(ctx context.Context) (Message, error) {
		res, err := f.server.GetHeaders(ctx, electrum.GetHeadersRequest{Start: start, Count: count})
		if err != nil {
			return nil, err
		}
		return HeadersResponseMsg{Start: start, Headers: res.Headers}, nil
	})
}

// onHeadersResponse: SYNCING x HeadersResponse.
func (f *FSM) onHeadersResponse(m HeadersResponseMsg) {
	if f.fsmState != Syncing {
		return
	}
	delete(f.state.pendingHeadersRequests, headersRange{Start: m.Start, Count: bitcoin.RetargetWindow})

	if len(m.Headers) == 0 {
		f.subscribeAllScriptHashes()
		f.fsmState = Running
		f.maybePublishReady()
		return
	}

	var err error
	if _, hasTip := f.chain.Tip(); !hasTip {
		checkpoint, ok := f.params.LatestCheckpoint()
		if !ok {
			err = fmt.Errorf("walletfsm: no checkpoint configured")
		} else {
			err = f.chain.AddHeadersChunk(checkpoint.Height, m.Headers, checkpoint.Hash, checkpoint.Bits, nil)
		}
	} else {
		err = f.chain.AddHeaders(m.Headers)
	}
	if err != nil {
		f.disconnect(fmt.Errorf("walletfsm: validate header chunk: %w", err))
		return
	}

	f.persistSealedChunks()
	f.persistState()

	tip, _ := f.chain.Tip()
	f.requestHeaders(tip.Height+1, bitcoin.RetargetWindow)
}

// replayPendingProofs re-checks every buffered MerkleProofMsg against
// the working window and persisted storage, handling each one whose
// header is newly available instead of waiting for a fresh proof to
// arrive from the server. Called after persistSealedChunks seals a
// chunk to disk, since that's what can newly resolve a previously
// unavailable height.
func (f *FSM) replayPendingProofs() {
	for txid, proof := range f.state.pendingProofs {
		if _, ok := f.headerForProof(proof.Height); !ok {
			continue
		}
		delete(f.state.pendingProofs, txid)
		f.onMerkleProof(proof)
	}
}

func (f *FSM) persistSealedChunks() {
	prunable := f.chain.Optimize()
	if len(prunable) == 0 {
		return
	}
	start := prunable[0].Height
	if err := f.db.AddHeaders(start, prunable); err != nil {
		f.logger.Error().Err(err).Msg("persist sealed header chunk")
	}
}

func (f *FSM) persistState() {
	data := f.state.snapshot(uint32(len(f.keys.Keys(keyring.Receive))), uint32(len(f.keys.Keys(keyring.Change))))
	if err := f.db.Persist(data); err != nil {
		f.logger.Error().Err(err).Msg("persist wallet state")
	}
}

func (f *FSM) subscribeAllScriptHashes() {
	for _, chain := range []keyring.Chain{keyring.Receive, keyring.Change} {
		for _, k := range f.keys.Keys(chain) {
			scriptHash := k.ScriptHash()
			f.goRequest(func(ctx context.Context) (Message, error) {
				res, err := f.server.SubscribeScriptHash(ctx, electrum.ScriptHashSubscribeRequest{ScriptHash: scriptHash})
				if err != nil {
					return nil, err
				}
				return ScriptHashStatusMsg{ScriptHash: res.ScriptHash, Status: res.Status}, nil
			})
		}
	}
	if _, err := f.keys.EnsureLookahead(keyring.Receive, f.swipeRange); err != nil {
		f.logger.Error().Err(err).Msg("ensure receive lookahead")
	}
	if _, err := f.keys.EnsureLookahead(keyring.Change, f.swipeRange); err != nil {
		f.logger.Error().Err(err).Msg("ensure change lookahead")
	}
}

// onScriptHashStatus: RUNNING x ScriptHashStatus.
func (f *FSM) onScriptHashStatus(m ScriptHashStatusMsg) {
	if f.fsmState != Running {
		return
	}
	current, known := f.state.status[m.ScriptHash]
	if known && current == m.Status {
		f.requestMissingTransactions(m.ScriptHash)
		return
	}
	if _, ok := f.keys.Lookup(m.ScriptHash); !ok {
		f.logger.Debug().Str("script_hash", m.ScriptHash.String()).Msg("status for unknown script hash")
		return
	}
	if m.Status == "" {
		f.state.status[m.ScriptHash] = m.Status
		f.maybePublishReady()
		return
	}

	f.state.status[m.ScriptHash] = m.Status
	f.requestHistory(m.ScriptHash)

	// Mark used unconditionally: subscriptions fan out over goroutines
	// with no ordering guarantee, so a non-last key's status can land
	// before the actual last key's. MarkUsed is idempotent and extends
	// the lookahead on its own, independent of derivation order.
	k, err := f.keys.MarkUsed(m.ScriptHash, f.swipeRange)
	if err != nil {
		f.logger.Error().Err(err).Msg("mark key used")
		return
	}
	if k == nil {
		return
	}
	for _, nk := range f.keys.Keys(k.Chain) {
		if !nk.Used() {
			scriptHash := nk.ScriptHash()
			f.goRequest(func(ctx context.Context) (Message, error) {
				res, err := f.server.SubscribeScriptHash(ctx, electrum.ScriptHashSubscribeRequest{ScriptHash: scriptHash})
				if err != nil {
					return nil, err
				}
				return ScriptHashStatusMsg{ScriptHash: res.ScriptHash, Status: res.Status}, nil
			})
		}
	}
}

func (f *FSM) requestHistory(scriptHash bitcoin.Hash256) {
	if f.state.pendingHistoryRequests[scriptHash] {
		return
	}
	f.state.pendingHistoryRequests[scriptHash] = true
	f.goRequest(func(ctx context.Context) (Message, error) {
		res, err := f.server.GetScriptHashHistory(ctx, electrum.GetScriptHashHistoryRequest{ScriptHash: scriptHash})
		if err != nil {
			return nil, err
		}
		return HistoryResponseMsg{ScriptHash: res.ScriptHash, Items: res.Items}, nil
	})
}

func (f *FSM) requestMissingTransactions(scriptHash bitcoin.Hash256) {
	for _, item := range f.state.history[scriptHash] {
		if _, ok := f.state.transactions[item.Txid]; !ok {
			f.requestTransaction(item.Txid)
		}
	}
}

func (f *FSM) requestTransaction(txid bitcoin.Hash256) {
	if f.state.pendingTransactionRequests[txid] {
		return
	}
	f.state.pendingTransactionRequests[txid] = true
	f.goRequest(func(ctx context.Context) (Message, error) {
		res, err := f.server.GetTransaction(ctx, electrum.GetTransactionRequest{Txid: txid})
		if err != nil {
			return nil, err
		}
		return TransactionResponseMsg{Txid: res.Txid, Transaction: res.Transaction}, nil
	})
}

func (f *FSM) requestMerkleProof(txid bitcoin.Hash256, height uint64) {
	f.goRequest(func(ctx context.Context) (Message, error) {
		res, err := f.server.GetMerkle(ctx, electrum.GetMerkleRequest{Txid: txid, Height: height})
		if err != nil {
			return nil, err
		}
		return MerkleProofMsg{Txid: res.Txid, Height: res.Height, Proof: res.Proof}, nil
	})
}

// onHistoryResponse: RUNNING x HistoryResponse.
func (f *FSM) onHistoryResponse(m HistoryResponseMsg) {
	if f.fsmState != Running {
		return
	}
	delete(f.state.pendingHistoryRequests, m.ScriptHash)

	previous := f.state.history[m.ScriptHash]
	byTxid := make(map[bitcoin.Hash256]storage.HistoryEntry, len(m.Items))
	merged := make([]storage.HistoryEntry, 0, len(m.Items))
	for _, item := range m.Items {
		entry := storage.HistoryEntry{Txid: item.Txid, Height: item.Height}
		byTxid[entry.Txid] = entry
		merged = append(merged, entry)
	}
	// Shadow set: entries present before but absent from the new list
	// stay, so an unconfirmed self-sent tx is never dropped before the
	// server reflects it.
	for _, old := range previous {
		if _, stillThere := byTxid[old.Txid]; !stillThere {
			merged = append(merged, old)
		}
	}
	f.state.history[m.ScriptHash] = merged

	for _, entry := range merged {
		if _, knownTx := f.state.transactions[entry.Txid]; !knownTx {
			f.requestTransaction(entry.Txid)
			continue
		}

		prevHeight, hadHeight := f.state.heights[entry.Txid]
		heightChanged := hadHeight && prevHeight != entry.Height
		f.state.heights[entry.Txid] = entry.Height

		if entry.Height > 0 {
			if _, hasProof := f.state.proofs[entry.Txid]; !hasProof || heightChanged {
				f.requestMerkleProofForTx(entry.Txid, uint64(entry.Height))
			}
		}
	}
	f.persistState()
}

func (f *FSM) requestMerkleProofForTx(txid bitcoin.Hash256, height uint64) {
	// Whether height's header is in the working window, already sealed
	// to persisted storage, or not yet available at all is resolved by
	// onMerkleProof itself (via headerForProof / pendingProofs) once the
	// response arrives.
	f.requestMerkleProof(txid, height)
}

// onTransactionResponse: RUNNING x TransactionResponse.
func (f *FSM) onTransactionResponse(m TransactionResponseMsg) {
	if f.fsmState != Running {
		return
	}
	delete(f.state.pendingTransactionRequests, m.Txid)
	if m.Transaction == nil {
		return
	}

	if !f.parentsKnown(m.Transaction) {
		f.state.pendingTransactions = append(f.state.pendingTransactions, m.Transaction)
		return
	}

	f.acceptTransaction(m.Transaction)
	f.retryPendingTransactions()
	f.persistState()
}

func (f *FSM) parentsKnown(tx *bitcoin.Transaction) bool {
	for _, in := range tx.Inputs {
		if _, ok := f.state.transactions[in.PrevOutpoint.Hash]; !ok {
			return false
		}
	}
	return true
}

func (f *FSM) acceptTransaction(tx *bitcoin.Transaction) {
	f.state.transactions[tx.Txid()] = tx
	if f.events.OnTransactionReceived != nil {
		f.events.OnTransactionReceived(tx)
	}
	if height, ok := f.state.heights[tx.Txid()]; ok && height > 0 {
		if _, hasProof := f.state.proofs[tx.Txid()]; !hasProof {
			f.requestMerkleProofForTx(tx.Txid(), uint64(height))
		}
	}
}

func (f *FSM) retryPendingTransactions() {
	for {
		progressed := false
		remaining := f.state.pendingTransactions[:0]
		for _, tx := range f.state.pendingTransactions {
			if f.parentsKnown(tx) {
				f.acceptTransaction(tx)
				progressed = true
				continue
			}
			remaining = append(remaining, tx)
		}
		f.state.pendingTransactions = remaining
		if !progressed {
			return
		}
	}
}

// onMerkleProof: RUNNING x MerkleProof.
func (f *FSM) onMerkleProof(m MerkleProofMsg) {
	if f.fsmState != Running {
		return
	}
	header, ok := f.headerForProof(m.Height)
	if !ok {
		// Neither the working window nor persisted storage has this
		// height yet (the enclosing chunk hasn't been sealed to disk).
		// Buffer the proof and replay it once a pruned chunk lands.
		f.state.pendingProofs[m.Txid] = m
		return
	}
	delete(f.state.pendingProofs, m.Txid)
	tx, ok := f.state.transactions[m.Txid]
	if !ok {
		return
	}
	if !m.Proof.Verify(tx.Txid(), header.MerkleRoot) {
		delete(f.state.transactions, m.Txid)
		delete(f.state.heights, m.Txid)
		f.disconnect(fmt.Errorf("walletfsm: merkle proof mismatch for %s at height %d", m.Txid, m.Height))
		return
	}
	f.state.proofs[m.Txid] = storage.ProofRecord{Height: m.Height, Proof: m.Proof}
	f.persistState()
}

// headerForProof resolves height against the in-memory working window
// first, falling back to persisted storage for a height old enough to
// have already been pruned and sealed by persistSealedChunks.
func (f *FSM) headerForProof(height uint64) (*bitcoin.Header, bool) {
	if header, ok := f.chain.HeaderAt(height); ok {
		return header, true
	}
	header, err := f.db.GetHeader(height)
	if err != nil {
		return nil, false
	}
	return header, true
}

// onDisconnected: any state x Disconnected.
func (f *FSM) onDisconnected(m DisconnectedMsg) {
	f.disconnect(m.Reason)
}

func (f *FSM) disconnect(reason error) {
	if reason != nil {
		f.logger.Warn().Err(reason).Msg("wallet disconnecting")
	}
	for scriptHash := range f.state.pendingHistoryRequests {
		delete(f.state.status, scriptHash)
	}
	f.state.clearPending()
	f.fsmState = Disconnected
}

func (f *FSM) maybePublishReady() {
	if f.fsmState != Running || !f.isReady() {
		return
	}
	msg := ReadyMessage{
		Height:          f.chain.Height(),
		AccountKeyCount: len(f.keys.Keys(keyring.Receive)),
		ChangeKeyCount:  len(f.keys.Keys(keyring.Change)),
	}
	if f.state.lastReady != nil && f.state.lastReady.Equal(msg) {
		return
	}
	f.state.lastReady = &msg
	if f.events.OnReady != nil {
		f.events.OnReady(msg)
	}
}
