package keyring

import (
	"fmt"
	"sync"

	"github.com/Klingon-tech/klingnet-wallet/internal/chainparams"
	"github.com/Klingon-tech/klingnet-wallet/pkg/bitcoin"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/tyler-smith/go-bip32"
)

// Chain distinguishes receive (external) from change (internal) keys
// within an account, the final-but-one component of the BIP49 path
// m/49'/c'/0'/{0|1}/i.
type Chain uint32

const (
	Receive Chain = 0
	Change  Chain = 1
)

// Key is a single derived BIP49 key: a P2SH-wrapped-P2WPKH signing key
// plus the bookkeeping the wallet needs to track it (its position in
// the derivation tree and whether a server has reported activity on
// it).
type Key struct {
	Chain Chain
	Index uint32

	priv    *secp256k1.PrivateKey
	pubKey  []byte // compressed, 33 bytes
	used    bool
	version bitcoin.AddressVersion
}

// PrivateKey returns the key's signing key.
func (k *Key) PrivateKey() *secp256k1.PrivateKey { return k.priv }

// PubKey returns the compressed public key.
func (k *Key) PubKey() []byte { return k.pubKey }

// ScriptHash returns the Electrum-protocol script hash a server tracks
// this key's history and balance under.
func (k *Key) ScriptHash() bitcoin.Hash256 { return bitcoin.ScriptHash(k.pubKey) }

// Address returns this key's base58check P2SH address.
func (k *Key) Address() string {
	return bitcoin.EncodeP2SHAddress(k.version, bitcoin.AddressHash(k.pubKey))
}

// Used reports whether a server has ever reported history for this key.
func (k *Key) Used() bool { return k.used }

// KeyRing derives and tracks every BIP49 key a wallet needs, growing
// each chain's derived keys lazily to keep a constant-sized unused
// look-ahead window ("swipe range") past the highest used index.
type KeyRing struct {
	mu sync.Mutex

	params     *chainparams.Params
	accountKey *bip32.Key

	keys       map[Chain][]*Key
	scriptHash map[bitcoin.Hash256]*Key
}

// NewFromSeed derives the account-level extended key at params'
// BIP49 account path from seed, and returns an empty KeyRing ready to
// derive receive/change keys from it.
func NewFromSeed(seed []byte, params *chainparams.Params) (*KeyRing, error) {
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("keyring: master key: %w", err)
	}
	account := master
	for _, idx := range params.AccountPath {
		account, err = account.NewChildKey(idx)
		if err != nil {
			return nil, fmt.Errorf("keyring: derive account path: %w", err)
		}
	}
	return &KeyRing{
		params:     params,
		accountKey: account,
		keys:       make(map[Chain][]*Key),
		scriptHash: make(map[bitcoin.Hash256]*Key),
	}, nil
}

// deriveLocked derives the key at chain/index if it doesn't already
// exist, appending it in order (keys within a chain are always derived
// contiguously from 0).
func (kr *KeyRing) deriveLocked(chain Chain, index uint32) (*Key, error) {
	existing := kr.keys[chain]
	if int(index) < len(existing) {
		return existing[index], nil
	}
	if int(index) != len(existing) {
		return nil, fmt.Errorf("keyring: non-contiguous derivation: chain %d index %d, have %d keys", chain, index, len(existing))
	}

	chainKey, err := kr.accountKey.NewChildKey(uint32(chain))
	if err != nil {
		return nil, fmt.Errorf("keyring: derive chain %d: %w", chain, err)
	}
	childKey, err := chainKey.NewChildKey(index)
	if err != nil {
		return nil, fmt.Errorf("keyring: derive index %d: %w", index, err)
	}

	priv := secp256k1.PrivKeyFromBytes(privateKeyBytes(childKey))
	pub := priv.PubKey().SerializeCompressed()

	k := &Key{
		Chain:   chain,
		Index:   index,
		priv:    priv,
		pubKey:  pub,
		version: kr.params.AddressVersion,
	}
	kr.keys[chain] = append(existing, k)
	kr.scriptHash[k.ScriptHash()] = k
	return k, nil
}

// privateKeyBytes strips go-bip32's leading 0x00 padding byte from a
// private key's 33-byte wire representation.
func privateKeyBytes(k *bip32.Key) []byte {
	if len(k.Key) == 33 && k.Key[0] == 0 {
		return k.Key[1:]
	}
	return k.Key
}

// EnsureLookahead derives whatever keys are missing so that chain has at
// least swipeRange unused keys past the highest used index, and returns
// the full ordered key list for that chain.
func (kr *KeyRing) EnsureLookahead(chain Chain, swipeRange int) ([]*Key, error) {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	return kr.ensureLookaheadLocked(chain, swipeRange)
}

func (kr *KeyRing) ensureLookaheadLocked(chain Chain, swipeRange int) ([]*Key, error) {
	for {
		keys := kr.keys[chain]
		unused := 0
		for i := len(keys) - 1; i >= 0 && !keys[i].used; i-- {
			unused++
		}
		if unused >= swipeRange {
			return keys, nil
		}
		if _, err := kr.deriveLocked(chain, uint32(len(keys))); err != nil {
			return nil, err
		}
	}
}

// MarkUsed records that a server reported history for scriptHash and
// derives additional keys in that chain as needed so the unused
// look-ahead stays at swipeRange. A no-op if the key was already marked
// used, so callers can invoke it unconditionally on every non-empty
// status update regardless of arrival order.
func (kr *KeyRing) MarkUsed(scriptHash bitcoin.Hash256, swipeRange int) (*Key, error) {
	kr.mu.Lock()
	defer kr.mu.Unlock()

	k, ok := kr.scriptHash[scriptHash]
	if !ok {
		return nil, nil
	}
	if k.used {
		return k, nil
	}
	k.used = true

	if _, err := kr.ensureLookaheadLocked(k.Chain, swipeRange); err != nil {
		return nil, err
	}
	return k, nil
}

// Lookup resolves a script hash back to the key that derived it.
func (kr *KeyRing) Lookup(scriptHash bitcoin.Hash256) (*Key, bool) {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	k, ok := kr.scriptHash[scriptHash]
	return k, ok
}

// Keys returns a snapshot of every key derived so far on chain.
func (kr *KeyRing) Keys(chain Chain) []*Key {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	keys := kr.keys[chain]
	out := make([]*Key, len(keys))
	copy(out, keys)
	return out
}

// ExportXPub returns the account-level extended public key, encoded with
// the network's ypub (mainnet) or upub (testnet) version bytes.
func (kr *KeyRing) ExportXPub() (string, error) {
	pub := kr.accountKey.PublicKey()
	return bitcoin.EncodeExtendedPublicKey(
		kr.params.ExtKeyVersion,
		pub.Depth,
		pub.FingerPrint,
		pub.ChildNumber,
		pub.ChainCode,
		pub.Key,
	)
}
