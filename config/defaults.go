package config

import "time"

// DefaultMainnet returns the default node configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		Electrum: ElectrumConfig{
			Servers:        []string{},
			ConnectTimeout: 10 * time.Second,
			RequestTimeout: 30 * time.Second,
		},
		Wallet: WalletConfig{
			SwipeRange:            20,
			DustLimitSat:          546,
			AllowSpendUnconfirmed: false,
			FeeRateSource:         "electrum",
			StaticFeeRatePerKw:    1000,
		},
		Receiver: ReceiverConfig{
			CltvRejectThreshold: 18, // ~3 hours at 10 min/block
			Timeout:             90 * time.Second,
		},
		Trampoline: TrampolineConfig{
			Enabled:            false,
			BaseFeeMsat:        1000,
			FeeProportionalPPM: 100,
			// Exponential term disabled by default (LogExponent <= 0);
			// operators opt in once they have earnings data to tune against.
			FeeExponent:    0,
			FeeLogExponent: 0,
			MinCltvDelta:   34, // matches LND's default cltv_expiry_delta floor
			MinForwardMsat: 1000,
			Timeout:        60 * time.Second,
		},
		RPC: RPCConfig{
			Enabled:    true,
			Addr:       "127.0.0.1",
			Port:       8545,
			AllowedIPs: []string{"127.0.0.1"},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    "127.0.0.1:9090",
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default node configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.RPC.Port = 18545
	cfg.Metrics.Addr = "127.0.0.1:19090"
	return cfg
}

// DefaultRegtest returns the default node configuration for regtest.
func DefaultRegtest() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Regtest
	cfg.RPC.Port = 28545
	cfg.Metrics.Addr = "127.0.0.1:29090"
	cfg.Receiver.CltvRejectThreshold = 2
	cfg.Trampoline.MinCltvDelta = 4
	return cfg
}

// Default returns the default node configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	case Regtest:
		return DefaultRegtest()
	default:
		return DefaultMainnet()
	}
}
