package bitcoin

import (
	"encoding/binary"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// SighashAll is the only sighash flag the wallet ever produces.
const SighashAll = 0x01

// dummySignatureLen is the conventional DER-encoded ECDSA signature size
// (including its sighash-type byte) used for fee estimation before a
// real signature exists.
const dummySignatureLen = 71

// DummyWitness returns a segwit witness stack sized exactly as a real
// signed P2SH-P2WPKH input's witness would be: [dummy signature,
// compressed pubkey], used only to measure a transaction's weight before
// signing.
func DummyWitness() [][]byte {
	return [][]byte{
		make([]byte, dummySignatureLen),
		make([]byte, 33),
	}
}

// SighashSegwitV0 computes the BIP143 signature hash for a single P2WPKH
// input of a transaction, the digest a private key signs to authorize
// spending that input.
func SighashSegwitV0(tx *Transaction, inputIndex int, scriptCode []byte, inputAmount int64) (Hash256, error) {
	if inputIndex < 0 || inputIndex >= len(tx.Inputs) {
		return Hash256{}, fmt.Errorf("bitcoin: input index %d out of range", inputIndex)
	}

	var hashPrevouts, hashSequence, hashOutputs Hash256
	{
		buf := make([]byte, 0, 36*len(tx.Inputs))
		for _, in := range tx.Inputs {
			buf = append(buf, in.PrevOutpoint.serialize()...)
		}
		hashPrevouts = DoubleSHA256(buf)
	}
	{
		buf := make([]byte, 0, 4*len(tx.Inputs))
		for _, in := range tx.Inputs {
			buf = append(buf, le32(in.Sequence)...)
		}
		hashSequence = DoubleSHA256(buf)
	}
	{
		var buf []byte
		for _, out := range tx.Outputs {
			buf = append(buf, out.serialize()...)
		}
		hashOutputs = DoubleSHA256(buf)
	}

	in := tx.Inputs[inputIndex]

	var buf []byte
	buf = append(buf, le32(uint32(tx.Version))...)
	buf = append(buf, hashPrevouts[:]...)
	buf = append(buf, hashSequence[:]...)
	buf = append(buf, in.PrevOutpoint.serialize()...)
	buf = append(buf, varInt(uint64(len(scriptCode)))...)
	buf = append(buf, scriptCode...)
	buf = append(buf, le64(uint64(inputAmount))...)
	buf = append(buf, le32(in.Sequence)...)
	buf = append(buf, hashOutputs[:]...)
	buf = append(buf, le32(tx.LockTime)...)
	buf = append(buf, le32(uint32(SighashAll))...)

	return DoubleSHA256(buf), nil
}

// SignSegwitV0Input produces the DER signature (with the trailing sighash
// byte) authorizing the given input, signing the BIP143 digest with the
// supplied private key.
func SignSegwitV0Input(priv *secp256k1.PrivateKey, tx *Transaction, inputIndex int, scriptCode []byte, inputAmount int64) ([]byte, error) {
	sigHash, err := SighashSegwitV0(tx, inputIndex, scriptCode, inputAmount)
	if err != nil {
		return nil, err
	}
	sig := ecdsa.Sign(priv, sigHash[:])
	der := sig.Serialize()
	return append(der, SighashAll), nil
}

// ScriptCodeForP2WPKH returns the "scriptCode" BIP143 requires for a
// P2WPKH spend: the classic P2PKH script template over the key's hash.
// Callers building a P2SH-P2WPKH input pass this as SighashSegwitV0's
// scriptCode argument.
func ScriptCodeForP2WPKH(pubKeyHash []byte) []byte {
	out := make([]byte, 0, 25)
	out = append(out, opDup, opHash160, byte(len(pubKeyHash)))
	out = append(out, pubKeyHash...)
	out = append(out, opEqualVerify, opCheckSig)
	return out
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func le64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}
