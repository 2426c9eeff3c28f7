package bitcoin

import "encoding/binary"

// Outpoint identifies a single previous output being spent.
type Outpoint struct {
	Hash  Hash256
	Index uint32
}

func (o Outpoint) serialize() []byte {
	buf := make([]byte, 36)
	copy(buf[0:32], o.Hash[:])
	binary.LittleEndian.PutUint32(buf[32:36], o.Index)
	return buf
}

// Input is one spent outpoint plus its unlocking data. ScriptSig carries
// the P2SH redeem-script push; Witness carries the segwit [signature,
// pubkey] stack once signed (or the dummy stack during fee estimation).
type Input struct {
	PrevOutpoint Outpoint
	ScriptSig    []byte
	Sequence     uint32
	Witness      [][]byte

	// Value is the spent output's amount, needed for BIP143 sighash
	// computation but not part of the wire-serialized input.
	Value int64
}

// Output is a single transaction output: an amount and the locking
// script that must be satisfied to spend it.
type Output struct {
	Value        int64
	ScriptPubKey []byte
}

func (o Output) serialize() []byte {
	buf := make([]byte, 0, 8+1+len(o.ScriptPubKey))
	buf = append(buf, le64(uint64(o.Value))...)
	buf = append(buf, varInt(uint64(len(o.ScriptPubKey)))...)
	buf = append(buf, o.ScriptPubKey...)
	return buf
}

// Transaction is a Bitcoin transaction built and signed entirely
// in-process by the wallet's coin selector.
type Transaction struct {
	Version  int32
	Inputs   []Input
	Outputs  []Output
	LockTime uint32
}

func varInt(v uint64) []byte {
	switch {
	case v < 0xfd:
		return []byte{byte(v)}
	case v <= 0xffff:
		b := make([]byte, 3)
		b[0] = 0xfd
		binary.LittleEndian.PutUint16(b[1:], uint16(v))
		return b
	case v <= 0xffffffff:
		b := make([]byte, 5)
		b[0] = 0xfe
		binary.LittleEndian.PutUint32(b[1:], uint32(v))
		return b
	default:
		b := make([]byte, 9)
		b[0] = 0xff
		binary.LittleEndian.PutUint64(b[1:], v)
		return b
	}
}

// hasWitness reports whether any input carries witness data, determining
// whether the serialized transaction uses the segwit marker/flag format.
func (tx *Transaction) hasWitness() bool {
	for _, in := range tx.Inputs {
		if len(in.Witness) > 0 {
			return true
		}
	}
	return false
}

// Serialize encodes the transaction using the BIP144 extended (segwit)
// wire format when any input carries witness data, and the legacy format
// otherwise.
func (tx *Transaction) Serialize() []byte {
	segwit := tx.hasWitness()

	var buf []byte
	buf = append(buf, le32(uint32(tx.Version))...)
	if segwit {
		buf = append(buf, 0x00, 0x01) // marker, flag
	}
	buf = append(buf, varInt(uint64(len(tx.Inputs)))...)
	for _, in := range tx.Inputs {
		buf = append(buf, in.PrevOutpoint.serialize()...)
		buf = append(buf, varInt(uint64(len(in.ScriptSig)))...)
		buf = append(buf, in.ScriptSig...)
		buf = append(buf, le32(in.Sequence)...)
	}
	buf = append(buf, varInt(uint64(len(tx.Outputs)))...)
	for _, out := range tx.Outputs {
		buf = append(buf, out.serialize()...)
	}
	if segwit {
		for _, in := range tx.Inputs {
			buf = append(buf, varInt(uint64(len(in.Witness)))...)
			for _, item := range in.Witness {
				buf = append(buf, varInt(uint64(len(item)))...)
				buf = append(buf, item...)
			}
		}
	}
	buf = append(buf, le32(tx.LockTime)...)
	return buf
}

// serializeNoWitness encodes the legacy (non-segwit) form, used both for
// the legacy txid and as the base weight when computing vsize.
func (tx *Transaction) serializeNoWitness() []byte {
	var buf []byte
	buf = append(buf, le32(uint32(tx.Version))...)
	buf = append(buf, varInt(uint64(len(tx.Inputs)))...)
	for _, in := range tx.Inputs {
		buf = append(buf, in.PrevOutpoint.serialize()...)
		buf = append(buf, varInt(uint64(len(in.ScriptSig)))...)
		buf = append(buf, in.ScriptSig...)
		buf = append(buf, le32(in.Sequence)...)
	}
	buf = append(buf, varInt(uint64(len(tx.Outputs)))...)
	for _, out := range tx.Outputs {
		buf = append(buf, out.serialize()...)
	}
	buf = append(buf, le32(tx.LockTime)...)
	return buf
}

// Txid is the transaction identifier: double-SHA256 of the non-witness
// serialization, unaffected by witness data (BIP141).
func (tx *Transaction) Txid() Hash256 {
	return DoubleSHA256(tx.serializeNoWitness())
}

// Weight computes the BIP141 transaction weight:
// (non-witness bytes * 4) + witness bytes, the basis for the wallet's
// fee formula floor(weight * fee_rate_per_kw / 1000).
func (tx *Transaction) Weight() int64 {
	base := int64(len(tx.serializeNoWitness()))
	full := int64(len(tx.Serialize()))
	witnessBytes := full - base
	if !tx.hasWitness() {
		witnessBytes = 0
	}
	return base*4 + witnessBytes
}

// VSize returns the virtual size in vbytes: ceil(weight / 4).
func (tx *Transaction) VSize() int64 {
	w := tx.Weight()
	return (w + 3) / 4
}

// FeeForRate computes the absolute fee, in satoshis, for this
// transaction's current weight at feeRatePerKw satoshis per 1000 weight
// units: floor(weight * fee_rate_per_kw / 1000).
func (tx *Transaction) FeeForRate(feeRatePerKw int64) int64 {
	return (tx.Weight() * feeRatePerKw) / 1000
}
