package walletfsm

import (
	"context"
	"fmt"

	"github.com/Klingon-tech/klingnet-wallet/internal/electrum"
	"github.com/Klingon-tech/klingnet-wallet/pkg/bitcoin"
)

// SendToOutputs selects coins, signs, and broadcasts a transaction
// paying outputs, changing to changeScriptPubKey when a change output is
// warranted.
// On success the wallet's state is optimistically updated to reflect the
// new transaction before the server confirms it.
func (f *FSM) SendToOutputs(ctx context.Context, outputs []bitcoin.Output, changeScriptPubKey []byte) (*bitcoin.Transaction, error) {
	tx, selected, err := f.completeTransaction(outputs, changeScriptPubKey)
	if err != nil {
		return nil, err
	}
	if err := f.signTransaction(tx, selected); err != nil {
		return nil, err
	}
	return f.broadcast(ctx, tx)
}

// SendAll spends every known UTXO into outputs, whose first entry's
// value is overwritten with the swept balance minus fees.
func (f *FSM) SendAll(ctx context.Context, outputs []bitcoin.Output) (*bitcoin.Transaction, error) {
	tx, selected, err := f.spendAll(outputs)
	if err != nil {
		return nil, err
	}
	if err := f.signTransaction(tx, selected); err != nil {
		return nil, err
	}
	return f.broadcast(ctx, tx)
}

func (f *FSM) broadcast(ctx context.Context, tx *bitcoin.Transaction) (*bitcoin.Transaction, error) {
	res, err := f.server.BroadcastTransaction(ctx, electrum.BroadcastTransactionRequest{Transaction: tx})
	if err != nil {
		return nil, fmt.Errorf("walletfsm: broadcast: %w", err)
	}
	if res.Txid != tx.Txid() {
		return nil, fmt.Errorf("walletfsm: server echoed unexpected txid %s for broadcast %s", res.Txid, tx.Txid())
	}
	errCh := make(chan error, 1)
	if err := f.Send(commitRequest{tx: tx, done: errCh}); err != nil {
		return nil, err
	}
	return tx, <-errCh
}

// commitRequest asks the FSM's own mailbox to run commitTransaction on
// its single goroutine, keeping wallet-state mutation confined to the
// drain loop even though broadcast() is called from an arbitrary
// caller goroutine.
type commitRequest struct {
	tx   *bitcoin.Transaction
	done chan error
}

func (commitRequest) isWalletMessage() {}
