package chainparams

import "testing"

func TestMainnetParams_DerivationPath(t *testing.T) {
	p := MainnetParams()
	want := []uint32{49 | hardened, 0 | hardened, 0 | hardened}
	if len(p.AccountPath) != len(want) {
		t.Fatalf("AccountPath length = %d, want %d", len(p.AccountPath), len(want))
	}
	for i := range want {
		if p.AccountPath[i] != want[i] {
			t.Errorf("AccountPath[%d] = %#x, want %#x", i, p.AccountPath[i], want[i])
		}
	}
}

func TestTestnetParams_DerivationPath(t *testing.T) {
	p := TestnetParams()
	if p.AccountPath[1] != 1|hardened {
		t.Fatalf("testnet AccountPath coin type = %#x, want 1'", p.AccountPath[1])
	}
}

func TestForNetwork_Unknown(t *testing.T) {
	if ForNetwork(Network("nonsense")) != nil {
		t.Fatal("ForNetwork should return nil for an unrecognized network")
	}
}

func TestForNetwork_Mainnet(t *testing.T) {
	p := ForNetwork(Mainnet)
	if p == nil || p.Network != Mainnet {
		t.Fatal("ForNetwork(Mainnet) should return mainnet params")
	}
}

func TestEarliestAndLatestCheckpoint(t *testing.T) {
	p := &Params{Checkpoints: []Checkpoint{
		{Height: 500},
		{Height: 100},
		{Height: 900},
	}}
	earliest, ok := p.EarliestCheckpoint()
	if !ok || earliest.Height != 100 {
		t.Fatalf("EarliestCheckpoint = %+v, want height 100", earliest)
	}
	latest, ok := p.LatestCheckpoint()
	if !ok || latest.Height != 900 {
		t.Fatalf("LatestCheckpoint = %+v, want height 900", latest)
	}
}

func TestEarliestCheckpoint_Empty(t *testing.T) {
	p := &Params{}
	if _, ok := p.EarliestCheckpoint(); ok {
		t.Fatal("EarliestCheckpoint should report false with no checkpoints")
	}
}

func TestRegtestParams_NoCheckpoints(t *testing.T) {
	p := RegtestParams()
	if len(p.Checkpoints) != 0 {
		t.Fatal("regtest should start with no checkpoints")
	}
}
