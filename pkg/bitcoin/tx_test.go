package bitcoin

import "testing"

func sampleTx() *Transaction {
	return &Transaction{
		Version: 2,
		Inputs: []Input{
			{
				PrevOutpoint: Outpoint{Hash: Hash256{0x01}, Index: 0},
				ScriptSig:    []byte{0x16},
				Sequence:     0xfffffffd,
				Value:        100_000,
			},
		},
		Outputs: []Output{
			{Value: 90_000, ScriptPubKey: []byte{opHash160, 0x14}},
		},
		LockTime: 0,
	}
}

func TestTransaction_Txid_StableWithoutWitness(t *testing.T) {
	tx := sampleTx()
	id1 := tx.Txid()
	tx.Inputs[0].Witness = DummyWitness()
	id2 := tx.Txid()
	if id1 != id2 {
		t.Fatal("txid must not change when only witness data is added")
	}
}

func TestTransaction_Weight_WitnessDiscounted(t *testing.T) {
	tx := sampleTx()
	noWitness := tx.Weight()

	tx.Inputs[0].Witness = DummyWitness()
	withWitness := tx.Weight()

	if withWitness <= noWitness {
		t.Fatal("adding witness data should increase weight")
	}

	// Witness bytes count once, non-witness bytes count 4x: adding N
	// witness bytes must add less weight than adding N base bytes would.
	witnessBytesAdded := int64(0)
	for _, item := range DummyWitness() {
		witnessBytesAdded += int64(len(item)) + 1 // + varint length prefix (fits in one byte here)
	}
	if withWitness-noWitness >= witnessBytesAdded*4 {
		t.Fatalf("witness weight not discounted: delta=%d witnessBytes=%d", withWitness-noWitness, witnessBytesAdded)
	}
}

func TestTransaction_VSize_RoundsUp(t *testing.T) {
	tx := sampleTx()
	tx.Inputs[0].Witness = DummyWitness()
	w := tx.Weight()
	vsize := tx.VSize()
	if vsize != (w+3)/4 {
		t.Fatalf("VSize() = %d, want ceil(%d/4) = %d", vsize, w, (w+3)/4)
	}
}

func TestTransaction_FeeForRate(t *testing.T) {
	tx := sampleTx()
	tx.Inputs[0].Witness = DummyWitness()
	fee := tx.FeeForRate(1000) // 1000 sat/kw == weight in sats, roughly
	want := tx.Weight() * 1000 / 1000
	if fee != want {
		t.Fatalf("FeeForRate(1000) = %d, want %d", fee, want)
	}
}

func TestVarInt_Ranges(t *testing.T) {
	if got := varInt(0xfc); len(got) != 1 {
		t.Fatalf("varInt(0xfc) length = %d, want 1", len(got))
	}
	if got := varInt(0xfd); len(got) != 3 {
		t.Fatalf("varInt(0xfd) length = %d, want 3", len(got))
	}
	if got := varInt(0x10000); len(got) != 5 {
		t.Fatalf("varInt(0x10000) length = %d, want 5", len(got))
	}
	if got := varInt(0x100000000); len(got) != 9 {
		t.Fatalf("varInt(2^32) length = %d, want 9", len(got))
	}
}

func TestOutpoint_SerializeLength(t *testing.T) {
	o := Outpoint{Hash: Hash256{0xaa}, Index: 7}
	if got := o.serialize(); len(got) != 36 {
		t.Fatalf("outpoint serialize length = %d, want 36", len(got))
	}
}
