package config

import "testing"

func TestDefaultMainnet_IsValid(t *testing.T) {
	cfg := DefaultMainnet()
	if err := Validate(cfg); err != nil {
		t.Errorf("default mainnet config should be valid: %v", err)
	}
}

func TestDefaultTestnet_IsValid(t *testing.T) {
	cfg := DefaultTestnet()
	if err := Validate(cfg); err != nil {
		t.Errorf("default testnet config should be valid: %v", err)
	}
	if cfg.Network != Testnet {
		t.Errorf("Network = %v, want testnet", cfg.Network)
	}
}

func TestDefaultRegtest_IsValid(t *testing.T) {
	cfg := DefaultRegtest()
	if err := Validate(cfg); err != nil {
		t.Errorf("default regtest config should be valid: %v", err)
	}
}

func TestValidate_RejectsUnknownNetwork(t *testing.T) {
	cfg := DefaultMainnet()
	cfg.Network = NetworkType("signet")
	if err := Validate(cfg); err == nil {
		t.Error("expected error for unknown network")
	}
}

func TestValidate_RejectsStaticFeeRateWithoutRate(t *testing.T) {
	cfg := DefaultMainnet()
	cfg.Wallet.FeeRateSource = "static"
	cfg.Wallet.StaticFeeRatePerKw = 0
	if err := Validate(cfg); err == nil {
		t.Error("expected error for static fee source with zero rate")
	}
}

func TestValidate_RejectsTrampolineWithoutCltvDelta(t *testing.T) {
	cfg := DefaultMainnet()
	cfg.Trampoline.Enabled = true
	cfg.Trampoline.MinCltvDelta = 0
	if err := Validate(cfg); err == nil {
		t.Error("expected error for trampoline enabled with zero min_cltv_delta")
	}
}

func TestApplyFileConfig_SetsTrampolineFields(t *testing.T) {
	cfg := DefaultMainnet()
	values := map[string]string{
		"trampoline.enabled":          "true",
		"trampoline.base_fee_msat":    "2000",
		"trampoline.min_cltv_delta":   "40",
		"electrum.servers":            "a.example.com:50002,b.example.com:50002",
		"wallet.allow_spend_unconfirmed": "yes",
	}
	if err := ApplyFileConfig(cfg, values); err != nil {
		t.Fatalf("ApplyFileConfig: %v", err)
	}
	if !cfg.Trampoline.Enabled {
		t.Error("trampoline.enabled not applied")
	}
	if cfg.Trampoline.BaseFeeMsat != 2000 {
		t.Errorf("BaseFeeMsat = %d, want 2000", cfg.Trampoline.BaseFeeMsat)
	}
	if cfg.Trampoline.MinCltvDelta != 40 {
		t.Errorf("MinCltvDelta = %d, want 40", cfg.Trampoline.MinCltvDelta)
	}
	if len(cfg.Electrum.Servers) != 2 {
		t.Errorf("Electrum.Servers = %v, want 2 entries", cfg.Electrum.Servers)
	}
	if !cfg.Wallet.AllowSpendUnconfirmed {
		t.Error("AllowSpendUnconfirmed not applied")
	}
}
