package walletfsm

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-wallet/pkg/bitcoin"
)

// signTransaction fills in each input's ScriptSig and Witness, signing
// every input SIGHASH_ALL over the BIP143 segwit v0 digest.
func (f *FSM) signTransaction(tx *bitcoin.Transaction, selected []UTXO) error {
	if len(tx.Inputs) != len(selected) {
		return fmt.Errorf("walletfsm: input count %d does not match selected UTXO count %d", len(tx.Inputs), len(selected))
	}
	for i, u := range selected {
		k, ok := f.keys.Lookup(u.ScriptHash)
		if !ok {
			return fmt.Errorf("walletfsm: no key for script hash owning input %d", i)
		}
		redeem := bitcoin.RedeemScript(k.PubKey())
		scriptCode := bitcoin.ScriptCodeForP2WPKH(bitcoin.Hash160(k.PubKey()))

		sig, err := bitcoin.SignSegwitV0Input(k.PrivateKey(), tx, i, scriptCode, u.Value)
		if err != nil {
			return fmt.Errorf("walletfsm: sign input %d: %w", i, err)
		}

		tx.Inputs[i].ScriptSig = bitcoin.P2SHScriptSig(redeem)
		tx.Inputs[i].Witness = [][]byte{sig, k.PubKey()}
	}
	return nil
}
