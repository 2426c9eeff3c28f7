package bitcoin

import "crypto/sha256"

// Opcodes used to assemble a P2SH-wrapped-P2WPKH ("p2sh-segwit") output
// script, the address type BIP49 key derivation targets.
const (
	opDup         = 0x76
	opHash160     = 0xa9
	opEqualVerify = 0x88
	opCheckSig    = 0xac
	opEqual       = 0x87
	op0           = 0x00
	opPushData20  = 0x14 // push next 20 bytes
)

// Hash160 computes RIPEMD160(SHA256(data)), Bitcoin's standard 20-byte
// public-key/script hash.
func Hash160(data []byte) []byte {
	sha := sha256.Sum256(data)
	return ripemd160Sum(sha[:])
}

// WitnessProgram builds the P2WPKH witness program OP_0 <20-byte pubkey
// hash> that is wrapped inside the P2SH redeem script.
func WitnessProgram(pubKeyHash []byte) []byte {
	prog := make([]byte, 0, 2+len(pubKeyHash))
	prog = append(prog, op0, byte(len(pubKeyHash)))
	prog = append(prog, pubKeyHash...)
	return prog
}

// RedeemScript returns the P2SH redeem script for a compressed public key:
// the witness program itself, since BIP49's redeemScript *is* the
// witness program for a P2WPKH-in-P2SH output.
func RedeemScript(compressedPubKey []byte) []byte {
	return WitnessProgram(Hash160(compressedPubKey))
}

// AddressHash computes the 20-byte Hash160 of the redeem script; this is
// the value embedded in the P2SH address itself (base58check-encoded
// with the network's version byte).
func AddressHash(compressedPubKey []byte) []byte {
	return Hash160(RedeemScript(compressedPubKey))
}

// P2SHOutputScript returns the scriptPubKey for paying to a P2SH address
// given its 20-byte script hash: OP_HASH160 <20 bytes> OP_EQUAL.
func P2SHOutputScript(scriptHash []byte) []byte {
	out := make([]byte, 0, 2+len(scriptHash)+1)
	out = append(out, opHash160, byte(len(scriptHash)))
	out = append(out, scriptHash...)
	out = append(out, opEqual)
	return out
}

// ScriptHash computes the Electrum-protocol "script hash" for a key: the
// byte-reversed SHA256 of the P2SH output script that pays to this key,
// used as the subscription identity a server tracks history and balance
// under.
func ScriptHash(compressedPubKey []byte) Hash256 {
	outputScript := P2SHOutputScript(AddressHash(compressedPubKey))
	digest := sha256.Sum256(outputScript)
	var reversed Hash256
	for i := 0; i < HashSize; i++ {
		reversed[i] = digest[HashSize-1-i]
	}
	return reversed
}

// P2SHScriptSig returns the unlocking scriptSig for a P2SH-P2WPKH input:
// a single push of the redeem script, with the actual signature carried
// in the witness instead of the scriptSig (BIP141/BIP49).
func P2SHScriptSig(redeemScript []byte) []byte {
	sig := make([]byte, 0, 1+len(redeemScript))
	sig = append(sig, byte(len(redeemScript)))
	sig = append(sig, redeemScript...)
	return sig
}
