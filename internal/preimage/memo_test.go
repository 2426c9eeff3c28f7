package preimage

import "testing"

type fakeSource struct {
	data  map[[32]byte][32]byte
	calls int
}

func newFakeSource() *fakeSource {
	return &fakeSource{data: make(map[[32]byte][32]byte)}
}

func (f *fakeSource) GetPreimage(hash [32]byte) ([32]byte, bool, error) {
	f.calls++
	p, ok := f.data[hash]
	return p, ok, nil
}

func (f *fakeSource) SetPreimage(hash, preimage [32]byte) error {
	f.data[hash] = preimage
	return nil
}

func TestMemo_GetPreimage_FillsCacheOnMiss(t *testing.T) {
	src := newFakeSource()
	hash := [32]byte{1}
	preimage := [32]byte{2}
	src.data[hash] = preimage

	m, err := New(src, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, ok, _ := m.GetPreimage(hash); !ok {
		t.Fatal("expected cache-miss fallthrough to find the preimage")
	}
	if src.calls != 1 {
		t.Fatalf("source calls = %d, want 1", src.calls)
	}

	if _, ok, _ := m.GetPreimage(hash); !ok {
		t.Fatal("expected cache hit to find the preimage")
	}
	if src.calls != 1 {
		t.Fatalf("source calls after cache hit = %d, want still 1", src.calls)
	}
}

func TestMemo_SetPreimage_WritesThroughAndCaches(t *testing.T) {
	src := newFakeSource()
	m, err := New(src, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	hash := [32]byte{3}
	preimage := [32]byte{4}
	if err := m.SetPreimage(hash, preimage); err != nil {
		t.Fatalf("SetPreimage: %v", err)
	}

	if _, ok := src.data[hash]; !ok {
		t.Fatal("SetPreimage should write through to the source")
	}

	got, ok, _ := m.GetPreimage(hash)
	if !ok || got != preimage {
		t.Fatal("GetPreimage after SetPreimage should hit the cache with the written value")
	}
	if src.calls != 0 {
		t.Fatalf("source GetPreimage calls = %d, want 0 (should have been served from cache)", src.calls)
	}
}

func TestMemo_GetPreimage_UnknownHash(t *testing.T) {
	src := newFakeSource()
	m, err := New(src, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok, err := m.GetPreimage([32]byte{9}); ok || err != nil {
		t.Fatalf("GetPreimage(unknown) = (_, %v, %v), want (_, false, nil)", ok, err)
	}
}
