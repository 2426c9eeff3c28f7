package bitcoin

import "testing"

func leafHash(b byte) Hash256 {
	return DoubleSHA256([]byte{b})
}

func TestComputeMerkleRoot_SingleLeaf(t *testing.T) {
	leaf := leafHash(1)
	if got := ComputeMerkleRoot([]Hash256{leaf}); got != leaf {
		t.Fatalf("root of single leaf should be the leaf itself")
	}
}

func TestComputeMerkleRoot_Empty(t *testing.T) {
	if got := ComputeMerkleRoot(nil); !got.IsZero() {
		t.Fatal("root of zero leaves should be the zero hash")
	}
}

func TestBranchForIndex_VerifiesAgainstRoot(t *testing.T) {
	leaves := []Hash256{leafHash(1), leafHash(2), leafHash(3), leafHash(4), leafHash(5)}
	root := ComputeMerkleRoot(leaves)

	for i, leaf := range leaves {
		proof, err := BranchForIndex(leaves, i)
		if err != nil {
			t.Fatalf("BranchForIndex(%d): %v", i, err)
		}
		if !proof.Verify(leaf, root) {
			t.Errorf("proof for leaf %d did not verify against root", i)
		}
	}
}

func TestMerkleProof_Verify_RejectsTamperedLeaf(t *testing.T) {
	leaves := []Hash256{leafHash(1), leafHash(2), leafHash(3), leafHash(4)}
	root := ComputeMerkleRoot(leaves)

	proof, err := BranchForIndex(leaves, 2)
	if err != nil {
		t.Fatalf("BranchForIndex: %v", err)
	}
	wrongLeaf := leafHash(99)
	if proof.Verify(wrongLeaf, root) {
		t.Fatal("proof should not verify against an unrelated leaf")
	}
}

func TestBranchForIndex_OutOfRange(t *testing.T) {
	leaves := []Hash256{leafHash(1)}
	if _, err := BranchForIndex(leaves, 5); err == nil {
		t.Fatal("expected error for out-of-range index")
	}
}
