// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Protocol-fixed parameters: per-network chain parameters (checkpoints,
//     BIP49 derivation constants, address version bytes, retarget window),
//     defined in internal/chainparams, immutable once chosen.
//   - Node settings: runtime configuration, can vary per node, defined here.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// NetworkType identifies which Bitcoin network a node talks to.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
	Regtest NetworkType = "regtest"
)

// =============================================================================
// Node Configuration (runtime, per-node settings)
// =============================================================================

// Config holds node-specific runtime configuration. These settings can
// vary between nodes without changing wallet/relay semantics.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Electrum-style SPV server connection
	Electrum ElectrumConfig

	// Wallet (coin selection, fee policy)
	Wallet WalletConfig

	// Local receiver FSM
	Receiver ReceiverConfig

	// Trampoline relayer FSM
	Trampoline TrampolineConfig

	// RPC server
	RPC RPCConfig

	// Metrics server
	Metrics MetricsConfig

	// Logging
	Log LogConfig

	// Maintenance (not persisted in config file)
	RebuildIndexes bool
}

// ElectrumConfig holds the SPV server connection the wallet FSM talks
// to through electrum.ServerPort.
type ElectrumConfig struct {
	Servers        []string      `conf:"electrum.servers"`         // host:port, tried in order until one connects
	ConnectTimeout time.Duration `conf:"electrum.connect_timeout"` // dial + handshake deadline
	RequestTimeout time.Duration `conf:"electrum.request_timeout"` // per-RPC deadline once connected
}

// WalletConfig holds coin-selection and fee-policy settings for Core A.
type WalletConfig struct {
	SwipeRange            int    `conf:"wallet.swipe_range"`             // consecutive unused addresses before a gap-limit halt
	DustLimitSat          int64  `conf:"wallet.dust_limit_sat"`          // outputs below this are never created by coin selection
	AllowSpendUnconfirmed bool   `conf:"wallet.allow_spend_unconfirmed"` // include unconfirmed UTXOs as spendable inputs
	FeeRateSource         string `conf:"wallet.fee_rate_source"`         // "electrum" (server estimate) or "static"
	StaticFeeRatePerKw    int64  `conf:"wallet.static_fee_rate_per_kw"`  // used when FeeRateSource == "static"
}

// ReceiverConfig holds local-receiver FSM timing.
type ReceiverConfig struct {
	CltvRejectThreshold uint32        `conf:"receiver.cltv_reject_threshold"` // minimum blocks-to-expiry before a part is rejected outright
	Timeout             time.Duration `conf:"receiver.timeout"`               // give up waiting for the remaining parts of a multi-part payment
}

// TrampolineConfig holds the relayer FSM's fee schedule and timing.
type TrampolineConfig struct {
	Enabled            bool          `conf:"trampoline.enabled"`
	BaseFeeMsat        uint64        `conf:"trampoline.base_fee_msat"`
	FeeProportionalPPM uint64        `conf:"trampoline.fee_proportional_ppm"`
	FeeExponent        float64       `conf:"trampoline.fee_exponent"`
	FeeLogExponent     float64       `conf:"trampoline.fee_log_exponent"`
	MinCltvDelta       uint32        `conf:"trampoline.min_cltv_delta"`
	MinForwardMsat     uint64        `conf:"trampoline.min_forward_msat"`
	Timeout            time.Duration `conf:"trampoline.timeout"`
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc.enabled"`
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"`
	CORSOrigins []string `conf:"rpc.cors"` // Allowed CORS origins ("*" = all).
}

// MetricsConfig holds the prometheus exporter's listen settings.
type MetricsConfig struct {
	Enabled bool   `conf:"metrics.enabled"`
	Addr    string `conf:"metrics.addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.klingnet-wallet
//	macOS:   ~/Library/Application Support/KlingnetWallet
//	Windows: %APPDATA%\KlingnetWallet
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".klingnet-wallet"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "KlingnetWallet")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "KlingnetWallet")
		}
		return filepath.Join(home, "AppData", "Roaming", "KlingnetWallet")
	default:
		return filepath.Join(home, ".klingnet-wallet")
	}
}

// ChainDataDir returns the network-specific data directory.
func (c *Config) ChainDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// DBDir returns the directory holding the badger database that backs
// both storage.WalletDB and storage.PaymentBag (opened once, split by
// storage.NewPrefixDB — see cmd/walletd).
func (c *Config) DBDir() string {
	return filepath.Join(c.ChainDataDir(), "db")
}

// KeystoreDir returns the encrypted-seed directory.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.ChainDataDir(), "keystore")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "klingnet-wallet.conf")
}
