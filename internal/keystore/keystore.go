package keystore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// seedFile is the on-disk JSON format for the encrypted seed.
type seedFile struct {
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	Network       string    `json:"network"`
	EncryptedSeed []byte    `json:"encrypted_seed"`
}

const seedFileVersion = 1

// Keystore persists a single encrypted wallet seed on disk, for the
// cases (cmd/walletd startup, wallet creation/restore) where the seed
// cannot live only in memory between process restarts.
type Keystore struct {
	path string // full path to the seed file
}

// New returns a Keystore backed by a file at dir/wallet.seed. dir is
// created (mode 0700) if it does not exist.
func New(dir string) (*Keystore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("keystore: create dir: %w", err)
	}
	return &Keystore{path: filepath.Join(dir, "wallet.seed")}, nil
}

// Exists reports whether a seed file has already been created.
func (ks *Keystore) Exists() bool {
	_, err := os.Stat(ks.path)
	return err == nil
}

// Create encrypts seed under password and writes it, refusing to
// overwrite an existing seed file.
func (ks *Keystore) Create(network string, seed, password []byte, params EncryptionParams) error {
	if ks.Exists() {
		return fmt.Errorf("keystore: a seed already exists at %s", ks.path)
	}
	encrypted, err := Encrypt(seed, password, params)
	if err != nil {
		return fmt.Errorf("keystore: encrypt seed: %w", err)
	}
	sf := seedFile{
		Version:       seedFileVersion,
		CreatedAt:     time.Now().UTC(),
		Network:       network,
		EncryptedSeed: encrypted,
	}
	return ks.write(&sf)
}

// Load decrypts and returns the seed.
func (ks *Keystore) Load(password []byte) ([]byte, error) {
	sf, err := ks.read()
	if err != nil {
		return nil, err
	}
	seed, err := Decrypt(sf.EncryptedSeed, password)
	if err != nil {
		return nil, fmt.Errorf("keystore: decrypt: %w", err)
	}
	return seed, nil
}

// Network returns the network the stored seed was created for, without
// decrypting it.
func (ks *Keystore) Network() (string, error) {
	sf, err := ks.read()
	if err != nil {
		return "", err
	}
	return sf.Network, nil
}

// Delete removes the seed file.
func (ks *Keystore) Delete() error {
	if !ks.Exists() {
		return fmt.Errorf("keystore: no seed at %s", ks.path)
	}
	return os.Remove(ks.path)
}

func (ks *Keystore) write(sf *seedFile) error {
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return fmt.Errorf("keystore: marshal: %w", err)
	}
	return os.WriteFile(ks.path, data, 0600)
}

func (ks *Keystore) read() (*seedFile, error) {
	data, err := os.ReadFile(ks.path)
	if err != nil {
		return nil, fmt.Errorf("keystore: read: %w", err)
	}
	var sf seedFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("keystore: parse: %w", err)
	}
	if sf.Version != seedFileVersion {
		return nil, fmt.Errorf("keystore: unsupported seed file version %d", sf.Version)
	}
	return &sf, nil
}
