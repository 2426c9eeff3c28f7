// Package chainparams holds the protocol-fixed constants a wallet must
// agree with the network on: checkpoints, BIP49 derivation paths, and the
// address/extended-key version bytes that distinguish mainnet from
// testnet. These never vary at runtime — unlike package config's
// operator-tunable settings, changing one of these means following a
// different chain.
package chainparams

import "github.com/Klingon-tech/klingnet-wallet/pkg/bitcoin"

// Network identifies which Bitcoin network a wallet instance follows.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
	Regtest Network = "regtest"
)

// Checkpoint anchors the header chain at a known-good height, so a fresh
// wallet never has to validate proof-of-work all the way back to genesis.
type Checkpoint struct {
	Height uint64
	Hash   bitcoin.Hash256
	Bits   uint32
}

// Params bundles everything protocol-fixed for a network.
type Params struct {
	Network Network

	// Checkpoints, ordered by ascending height. The earliest entry is the
	// floor below which incoming headers are rejected outright.
	Checkpoints []Checkpoint

	// AccountPath is the BIP49 account-level derivation path
	// (m/49'/c'/0') before the /{0|1}/i receive-or-change/index suffix.
	AccountPath []uint32

	AddressVersion bitcoin.AddressVersion
	ExtKeyVersion  bitcoin.ExtKeyVersion
}

const hardened = uint32(1) << 31

// MainnetParams returns the fixed parameters for Bitcoin mainnet.
//
// Checkpoints are a sparse, illustrative sample: production deployments
// ship a denser table refreshed at each release. Heights must fall on
// retarget boundaries so Bits is meaningful for the window that follows.
func MainnetParams() *Params {
	return &Params{
		Network: Mainnet,
		Checkpoints: []Checkpoint{
			{Height: 0, Hash: bitcoin.Hash256{}, Bits: 0x1d00ffff},
		},
		AccountPath:    []uint32{49 | hardened, 0 | hardened, 0 | hardened},
		AddressVersion: bitcoin.AddressVersionMainnet,
		ExtKeyVersion:  bitcoin.ExtKeyVersionYpub,
	}
}

// TestnetParams returns the fixed parameters for Bitcoin testnet3.
func TestnetParams() *Params {
	return &Params{
		Network: Testnet,
		Checkpoints: []Checkpoint{
			{Height: 0, Hash: bitcoin.Hash256{}, Bits: 0x1d00ffff},
		},
		AccountPath:    []uint32{49 | hardened, 1 | hardened, 0 | hardened},
		AddressVersion: bitcoin.AddressVersionTestnet,
		ExtKeyVersion:  bitcoin.ExtKeyVersionUpub,
	}
}

// RegtestParams returns the fixed parameters for a local regtest network:
// same derivation path and address scheme as testnet, but no checkpoints,
// since a regtest chain is reset per-session.
func RegtestParams() *Params {
	p := TestnetParams()
	p.Network = Regtest
	p.Checkpoints = nil
	return p
}

// ForNetwork resolves a Network value to its fixed Params, or nil if the
// network is unrecognized.
func ForNetwork(n Network) *Params {
	switch n {
	case Mainnet:
		return MainnetParams()
	case Testnet:
		return TestnetParams()
	case Regtest:
		return RegtestParams()
	default:
		return nil
	}
}

// EarliestCheckpoint returns the lowest-height checkpoint, the floor
// below which AddHeader must reject incoming headers.
func (p *Params) EarliestCheckpoint() (Checkpoint, bool) {
	if len(p.Checkpoints) == 0 {
		return Checkpoint{}, false
	}
	earliest := p.Checkpoints[0]
	for _, c := range p.Checkpoints[1:] {
		if c.Height < earliest.Height {
			earliest = c
		}
	}
	return earliest, true
}

// LatestCheckpoint returns the highest-height checkpoint, the point a
// fresh wallet starts syncing headers from.
func (p *Params) LatestCheckpoint() (Checkpoint, bool) {
	if len(p.Checkpoints) == 0 {
		return Checkpoint{}, false
	}
	latest := p.Checkpoints[0]
	for _, c := range p.Checkpoints[1:] {
		if c.Height > latest.Height {
			latest = c
		}
	}
	return latest, true
}
