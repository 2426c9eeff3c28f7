package config

import "fmt"

// Validate checks runtime node config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet && cfg.Network != Regtest {
		return fmt.Errorf("network must be %q, %q, or %q", Mainnet, Testnet, Regtest)
	}
	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}

	if cfg.Wallet.SwipeRange <= 0 {
		return fmt.Errorf("wallet.swipe_range must be positive")
	}
	if cfg.Wallet.DustLimitSat < 0 {
		return fmt.Errorf("wallet.dust_limit_sat must not be negative")
	}
	switch cfg.Wallet.FeeRateSource {
	case "electrum", "static":
	default:
		return fmt.Errorf("wallet.fee_rate_source must be \"electrum\" or \"static\"")
	}
	if cfg.Wallet.FeeRateSource == "static" && cfg.Wallet.StaticFeeRatePerKw <= 0 {
		return fmt.Errorf("wallet.static_fee_rate_per_kw must be positive when fee_rate_source is \"static\"")
	}

	if cfg.Trampoline.Enabled {
		if cfg.Trampoline.MinCltvDelta == 0 {
			return fmt.Errorf("trampoline.min_cltv_delta must be positive when trampoline relaying is enabled")
		}
		if cfg.Trampoline.FeeLogExponent < 0 {
			return fmt.Errorf("trampoline.fee_log_exponent must not be negative")
		}
	}

	return nil
}
