package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile loads node configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a node config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(value)
	case "datadir":
		cfg.DataDir = value

	// Electrum
	case "electrum.servers":
		cfg.Electrum.Servers = parseStringList(value)
	case "electrum.connect_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.Electrum.ConnectTimeout = d
	case "electrum.request_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.Electrum.RequestTimeout = d

	// Wallet
	case "wallet.swipe_range":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Wallet.SwipeRange = n
	case "wallet.dust_limit_sat":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Wallet.DustLimitSat = n
	case "wallet.allow_spend_unconfirmed":
		cfg.Wallet.AllowSpendUnconfirmed = parseBool(value)
	case "wallet.fee_rate_source":
		cfg.Wallet.FeeRateSource = value
	case "wallet.static_fee_rate_per_kw":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Wallet.StaticFeeRatePerKw = n

	// Receiver
	case "receiver.cltv_reject_threshold":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return err
		}
		cfg.Receiver.CltvRejectThreshold = uint32(n)
	case "receiver.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.Receiver.Timeout = d

	// Trampoline
	case "trampoline.enabled":
		cfg.Trampoline.Enabled = parseBool(value)
	case "trampoline.base_fee_msat":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Trampoline.BaseFeeMsat = n
	case "trampoline.fee_proportional_ppm":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Trampoline.FeeProportionalPPM = n
	case "trampoline.fee_exponent":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		cfg.Trampoline.FeeExponent = f
	case "trampoline.fee_log_exponent":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		cfg.Trampoline.FeeLogExponent = f
	case "trampoline.min_cltv_delta":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return err
		}
		cfg.Trampoline.MinCltvDelta = uint32(n)
	case "trampoline.min_forward_msat":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Trampoline.MinForwardMsat = n
	case "trampoline.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.Trampoline.Timeout = d

	// RPC
	case "rpc.enabled", "rpc":
		cfg.RPC.Enabled = parseBool(value)
	case "rpc.addr":
		cfg.RPC.Addr = value
	case "rpc.port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.RPC.Port = port
	case "rpc.allowed":
		cfg.RPC.AllowedIPs = parseStringList(value)
	case "rpc.cors":
		cfg.RPC.CORSOrigins = parseStringList(value)

	// Metrics
	case "metrics.enabled":
		cfg.Metrics.Enabled = parseBool(value)
	case "metrics.addr":
		cfg.Metrics.Addr = value

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseStringList parses a comma-separated list.
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a default node configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	content := `# Klingnet Wallet Configuration
#
# This file contains NODE settings only. Per-network chain parameters
# (checkpoints, derivation constants) are hardcoded in internal/chainparams.

# Network: mainnet, testnet, or regtest
network = ` + string(network) + `

# Data directory (default: ~/.klingnet-wallet)
# datadir = ~/.klingnet-wallet

# ============================================================================
# Electrum server
# ============================================================================

# electrum.servers = electrum.example.com:50002
electrum.connect_timeout = 10s
electrum.request_timeout = 30s

# ============================================================================
# Wallet
# ============================================================================

wallet.swipe_range = 20
wallet.dust_limit_sat = 546
wallet.allow_spend_unconfirmed = false
wallet.fee_rate_source = electrum
wallet.static_fee_rate_per_kw = 1000

# ============================================================================
# Local receiver
# ============================================================================

receiver.cltv_reject_threshold = 18
receiver.timeout = 90s

# ============================================================================
# Trampoline relayer
# ============================================================================

trampoline.enabled = false
trampoline.base_fee_msat = 1000
trampoline.fee_proportional_ppm = 100
trampoline.fee_exponent = 0
trampoline.fee_log_exponent = 0
trampoline.min_cltv_delta = 34
trampoline.min_forward_msat = 1000
trampoline.timeout = 60s

# ============================================================================
# RPC Server
# ============================================================================

rpc.enabled = true
rpc.addr = 127.0.0.1
rpc.port = ` + defaultRPCPort(network) + `
rpc.allowed = 127.0.0.1
# rpc.cors = http://localhost:3000

# ============================================================================
# Metrics
# ============================================================================

metrics.enabled = true
metrics.addr = ` + defaultMetricsAddr(network) + `

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}

func defaultRPCPort(network NetworkType) string {
	switch network {
	case Testnet:
		return "18545"
	case Regtest:
		return "28545"
	default:
		return "8545"
	}
}

func defaultMetricsAddr(network NetworkType) string {
	switch network {
	case Testnet:
		return "127.0.0.1:19090"
	case Regtest:
		return "127.0.0.1:29090"
	default:
		return "127.0.0.1:9090"
	}
}
