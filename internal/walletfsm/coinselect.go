package walletfsm

import (
	"fmt"
	"sort"

	"github.com/Klingon-tech/klingnet-wallet/internal/keyring"
	"github.com/Klingon-tech/klingnet-wallet/internal/storage"
	"github.com/Klingon-tech/klingnet-wallet/pkg/bitcoin"
)

// ErrInsufficientFunds means no combination of known UTXOs covers the
// requested outputs plus fees.
var ErrInsufficientFunds = fmt.Errorf("walletfsm: insufficient funds")

// UTXO is one spendable output the wallet knows it owns: a known
// transaction's output that pays one of our script hashes and that no
// other known transaction spends.
type UTXO struct {
	Outpoint   bitcoin.Outpoint
	Value      int64
	ScriptHash bitcoin.Hash256
	Height     int64
}

func keyOutputScript(k *keyring.Key) []byte {
	return bitcoin.P2SHOutputScript(bitcoin.AddressHash(k.PubKey()))
}

// ownerKeyForScript returns the key owning scriptPubKey, if any.
func (f *FSM) ownerKeyForScript(scriptPubKey []byte) (*keyring.Key, bool) {
	for _, chain := range []keyring.Chain{keyring.Receive, keyring.Change} {
		for _, k := range f.keys.Keys(chain) {
			if string(keyOutputScript(k)) == string(scriptPubKey) {
				return k, true
			}
		}
	}
	return nil, false
}

// spentOutpoints returns every outpoint consumed by a transaction the
// wallet already knows about.
func (f *FSM) spentOutpoints() map[bitcoin.Outpoint]bool {
	spent := make(map[bitcoin.Outpoint]bool)
	for _, tx := range f.state.transactions {
		for _, in := range tx.Inputs {
			spent[in.PrevOutpoint] = true
		}
	}
	return spent
}

// gatherUTXOs collects every unspent output paying a script hash in
// history. When allowSpendUnconfirmed is false, UTXOs
// at height <= 0 (unconfirmed, by the Electrum height convention) are
// excluded.
func (f *FSM) gatherUTXOs() []UTXO {
	spent := f.spentOutpoints()
	var out []UTXO
	for scriptHash, items := range f.state.history {
		for _, item := range items {
			tx, ok := f.state.transactions[item.Txid]
			if !ok {
				continue
			}
			for i, o := range tx.Outputs {
				k, ok := f.ownerKeyForScript(o.ScriptPubKey)
				if !ok || k.ScriptHash() != scriptHash {
					continue
				}
				op := bitcoin.Outpoint{Hash: item.Txid, Index: uint32(i)}
				if spent[op] {
					continue
				}
				if !f.allowSpendUnconfirmed && item.Height <= 0 {
					continue
				}
				out = append(out, UTXO{Outpoint: op, Value: o.Value, ScriptHash: scriptHash, Height: item.Height})
			}
		}
	}
	return out
}

// estimateWeight builds a throwaway transaction from selected inputs and
// outputs, wired with dummy signatures sized exactly as real ones would
// be, and returns its BIP141 weight.
func (f *FSM) estimateWeight(selected []UTXO, outputs []bitcoin.Output) (int64, error) {
	tx := &bitcoin.Transaction{Version: 2, Outputs: outputs}
	for _, u := range selected {
		k, ok := f.keys.Lookup(u.ScriptHash)
		if !ok {
			return 0, fmt.Errorf("walletfsm: no key for script hash owning UTXO %s:%d", u.Outpoint.Hash, u.Outpoint.Index)
		}
		redeem := bitcoin.RedeemScript(k.PubKey())
		tx.Inputs = append(tx.Inputs, bitcoin.Input{
			PrevOutpoint: u.Outpoint,
			ScriptSig:    bitcoin.P2SHScriptSig(redeem),
			Sequence:     0xffffffff,
			Witness:      bitcoin.DummyWitness(),
			Value:        u.Value,
		})
	}
	return tx.Weight(), nil
}

// completeTransaction implements a six-branch coin selection: ascending-value UTXOs are added greedily until a stable
// termination condition is reached.
func (f *FSM) completeTransaction(outputs []bitcoin.Output, changeScriptPubKey []byte) (*bitcoin.Transaction, []UTXO, error) {
	if len(outputs) == 0 {
		return nil, nil, fmt.Errorf("walletfsm: a transaction needs at least one output")
	}
	var amount int64
	for _, o := range outputs {
		amount += o.Value
	}
	if amount <= f.dustLimit {
		return nil, nil, fmt.Errorf("walletfsm: total output value %d does not exceed dust limit %d", amount, f.dustLimit)
	}

	pool := f.gatherUTXOs()
	sort.Slice(pool, func(i, j int) bool { return pool[i].Value < pool[j].Value })

	var selected []UTXO
	var total int64
	idx := 0

	for {
		noChangeWeight, err := f.estimateWeight(selected, outputs)
		if err != nil {
			return nil, nil, err
		}
		feeNoChange := (noChangeWeight * f.feeRatePerKw) / 1000

		if total-feeNoChange < amount {
			if idx >= len(pool) {
				return nil, nil, ErrInsufficientFunds
			}
			selected = append(selected, pool[idx])
			total += pool[idx].Value
			idx++
			continue
		}

		if total-feeNoChange <= amount+f.dustLimit {
			return f.buildUnsigned(selected, outputs), selected, nil
		}

		withChange := append(append([]bitcoin.Output(nil), outputs...), bitcoin.Output{Value: 0, ScriptPubKey: changeScriptPubKey})
		withChangeWeight, err := f.estimateWeight(selected, withChange)
		if err != nil {
			return nil, nil, err
		}
		feeWithChange := (withChangeWeight * f.feeRatePerKw) / 1000

		if total-feeWithChange <= amount+f.dustLimit {
			if idx >= len(pool) {
				return f.buildUnsigned(selected, outputs), selected, nil
			}
			selected = append(selected, pool[idx])
			total += pool[idx].Value
			idx++
			continue
		}

		changeValue := total - amount - feeWithChange
		finalOutputs := append(append([]bitcoin.Output(nil), outputs...), bitcoin.Output{Value: changeValue, ScriptPubKey: changeScriptPubKey})
		return f.buildUnsigned(selected, finalOutputs), selected, nil
	}
}

// spendAll builds a transaction spending every known UTXO (including
// unconfirmed and otherwise-locked ones) into outputs, treating the
// first output's amount as a placeholder overwritten with
// total_balance - fee.
func (f *FSM) spendAll(outputs []bitcoin.Output) (*bitcoin.Transaction, []UTXO, error) {
	if len(outputs) == 0 {
		return nil, nil, fmt.Errorf("walletfsm: spendAll needs at least one output")
	}
	pool := f.gatherUTXOsIgnoringLocks()
	var total int64
	for _, u := range pool {
		total += u.Value
	}
	weight, err := f.estimateWeight(pool, outputs)
	if err != nil {
		return nil, nil, err
	}
	fee := (weight * f.feeRatePerKw) / 1000
	outputs[0].Value = total - fee
	if outputs[0].Value <= f.dustLimit {
		return nil, nil, ErrInsufficientFunds
	}
	return f.buildUnsigned(pool, outputs), pool, nil
}

// gatherUTXOsIgnoringLocks is gatherUTXOs without the
// allowSpendUnconfirmed filter, the wider set spendAll draws from.
func (f *FSM) gatherUTXOsIgnoringLocks() []UTXO {
	spent := f.spentOutpoints()
	var out []UTXO
	for scriptHash, items := range f.state.history {
		for _, item := range items {
			tx, ok := f.state.transactions[item.Txid]
			if !ok {
				continue
			}
			for i, o := range tx.Outputs {
				k, ok := f.ownerKeyForScript(o.ScriptPubKey)
				if !ok || k.ScriptHash() != scriptHash {
					continue
				}
				op := bitcoin.Outpoint{Hash: item.Txid, Index: uint32(i)}
				if spent[op] {
					continue
				}
				out = append(out, UTXO{Outpoint: op, Value: o.Value, ScriptHash: scriptHash, Height: item.Height})
			}
		}
	}
	return out
}

func (f *FSM) buildUnsigned(selected []UTXO, outputs []bitcoin.Output) *bitcoin.Transaction {
	tx := &bitcoin.Transaction{Version: 2, Outputs: outputs}
	for _, u := range selected {
		tx.Inputs = append(tx.Inputs, bitcoin.Input{
			PrevOutpoint: u.Outpoint,
			Sequence:     0xffffffff,
			Value:        u.Value,
		})
	}
	return tx
}

// commitTransaction optimistically mutates wallet state so a
// just-broadcast transaction is reflected in balances immediately,
// rather than waiting seconds for the server's own status push.
func (f *FSM) commitTransaction(tx *bitcoin.Transaction) {
	txid := tx.Txid()
	f.state.transactions[txid] = tx
	f.state.heights[txid] = 0

	touched := make(map[bitcoin.Hash256]bool)
	for _, in := range tx.Inputs {
		prevTx, ok := f.state.transactions[in.PrevOutpoint.Hash]
		if !ok || int(in.PrevOutpoint.Index) >= len(prevTx.Outputs) {
			continue
		}
		out := prevTx.Outputs[in.PrevOutpoint.Index]
		if k, ok := f.ownerKeyForScript(out.ScriptPubKey); ok {
			touched[k.ScriptHash()] = true
		}
	}
	for _, out := range tx.Outputs {
		if k, ok := f.ownerKeyForScript(out.ScriptPubKey); ok {
			touched[k.ScriptHash()] = true
		}
	}
	for scriptHash := range touched {
		f.state.history[scriptHash] = append(f.state.history[scriptHash], storage.HistoryEntry{Txid: txid, Height: 0})
	}
}

// isDoubleSpent reports whether some confirmed (depth >= 2) transaction
// already known to the wallet spends one of tx's inputs under a
// different txid.
func (f *FSM) isDoubleSpent(tx *bitcoin.Transaction) bool {
	tip, ok := f.chain.Tip()
	if !ok {
		return false
	}
	txid := tx.Txid()

	spentBy := make(map[bitcoin.Outpoint]bitcoin.Hash256)
	for otherTxid, other := range f.state.transactions {
		height := f.state.heights[otherTxid]
		if height <= 0 || tip.Height < height+1 {
			continue // not confirmed to depth >= 2
		}
		for _, in := range other.Inputs {
			spentBy[in.PrevOutpoint] = otherTxid
		}
	}

	for _, in := range tx.Inputs {
		if by, ok := spentBy[in.PrevOutpoint]; ok && by != txid {
			return true
		}
	}
	return false
}
