// Klingnet Wallet daemon: a non-custodial BIP49 SPV wallet with an
// optional Lightning trampoline relay.
//
// Usage:
//
//	walletd [--network=testnet] [--trampoline]   Run the wallet
//	walletd --help                                Show help
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Klingon-tech/klingnet-wallet/config"
	"github.com/Klingon-tech/klingnet-wallet/internal/chainparams"
	"github.com/Klingon-tech/klingnet-wallet/internal/electrum"
	"github.com/Klingon-tech/klingnet-wallet/internal/keyring"
	"github.com/Klingon-tech/klingnet-wallet/internal/keystore"
	klog "github.com/Klingon-tech/klingnet-wallet/internal/log"
	"github.com/Klingon-tech/klingnet-wallet/internal/metrics"
	"github.com/Klingon-tech/klingnet-wallet/internal/preimage"
	"github.com/Klingon-tech/klingnet-wallet/internal/receiver"
	"github.com/Klingon-tech/klingnet-wallet/internal/storage"
	"github.com/Klingon-tech/klingnet-wallet/internal/trampoline"
	"github.com/Klingon-tech/klingnet-wallet/internal/walletfsm"
	"github.com/Klingon-tech/klingnet-wallet/pkg/bitcoin"
)

func main() {
	// ── 1. Load config (defaults → file → flags) ────────────────────────
	cfg, flags, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// ── 2. Init logger ───────────────────────────────────────────────────
	logFile := cfg.Log.File
	if logFile == "" {
		logFile = cfg.LogsDir() + "/walletd.log"
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	logger := klog.WithComponent("daemon")

	// ── 3. Chain parameters (hardcoded per network, not loaded from file) ─
	params := chainparams.ForNetwork(chainparams.Network(cfg.Network))
	if params == nil {
		logger.Fatal().Str("network", string(cfg.Network)).Msg("Unknown network")
	}

	logger.Info().
		Str("network", string(cfg.Network)).
		Bool("trampoline", cfg.Trampoline.Enabled).
		Msg("Starting Klingnet Wallet")

	// ── 4. Open storage, split into wallet / payment namespaces ──────────
	db, err := storage.NewBadger(cfg.DBDir())
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBDir()).Msg("Failed to open database")
	}
	defer db.Close()

	walletDB := storage.NewBadgerWalletDB(storage.NewPrefixDB(db, []byte("wallet/")))
	paymentBag := storage.NewBadgerPaymentBag(storage.NewPrefixDB(db, []byte("payment/")))

	logger.Info().Str("path", cfg.DBDir()).Msg("Database opened")

	// ── 5. Keystore + key ring ────────────────────────────────────────────
	ks, err := keystore.New(cfg.KeystoreDir())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open keystore")
	}

	password, err := loadSeedPassword(flags.SeedPasswordFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to read seed password")
	}

	seed, err := bootstrapSeed(ks, string(cfg.Network), password)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load wallet seed")
	}
	defer zero(seed)

	keys, err := keyring.NewFromSeed(seed, params)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to derive key ring")
	}
	if _, err := keys.EnsureLookahead(keyring.Receive, cfg.Wallet.SwipeRange); err != nil {
		logger.Fatal().Err(err).Msg("Failed to derive receive key lookahead")
	}
	if _, err := keys.EnsureLookahead(keyring.Change, cfg.Wallet.SwipeRange); err != nil {
		logger.Fatal().Err(err).Msg("Failed to derive change key lookahead")
	}

	// ── 6. Metrics ─────────────────────────────────────────────────────────
	m := metrics.New()
	if cfg.Metrics.Enabled {
		if err := m.Serve(cfg.Metrics.Addr); err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.Metrics.Addr).Msg("Failed to start metrics server")
		}
		defer m.Stop()
		logger.Info().Str("addr", cfg.Metrics.Addr).Msg("Metrics server started")
	}

	// ── 7. Electrum server port. No wire-connected client ships in this
	// module; electrum.Fake stands in so the wallet FSM has a server to
	// talk to out of the box. A production deployment replaces this with
	// a real implementation of electrum.ServerPort behind the same
	// constructor call.
	server := electrum.NewFake()
	logger.Warn().Msg("Using in-memory Electrum fake; no real server is connected")

	// ── 8. Wallet FSM (Core A) ────────────────────────────────────────────
	walletParams := walletfsm.Params{
		SwipeRange:            cfg.Wallet.SwipeRange,
		DustLimit:             cfg.Wallet.DustLimitSat,
		FeeRatePerKw:          cfg.Wallet.StaticFeeRatePerKw,
		AllowSpendUnconfirmed: cfg.Wallet.AllowSpendUnconfirmed,
	}
	events := walletfsm.Events{
		OnReady: func(msg walletfsm.ReadyMessage) {
			m.SetWalletFSMState(int(walletfsm.Running))
			m.ChainTipHeight.Set(float64(msg.Height))
			logger.Info().
				Uint64("height", msg.Height).
				Int("account_keys", msg.AccountKeyCount).
				Int("change_keys", msg.ChangeKeyCount).
				Msg("Wallet ready")
		},
		OnTransactionReceived: func(tx *bitcoin.Transaction) {
			logger.Info().Str("txid", tx.Txid().String()).Msg("Transaction received")
		},
	}

	wallet, err := walletfsm.New(context.Background(), server, walletDB, keys, params, walletParams, events)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create wallet FSM")
	}
	wallet.Start()
	defer wallet.Stop()

	logger.Info().Msg("Wallet FSM started")

	// ── 9. Local receiver registry (Core B, local payments) ──────────────
	preimages, err := preimage.New(paymentBag, 1024)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create preimage cache")
	}

	receiverCfg := receiver.Config{
		CltvRejectThreshold: cfg.Receiver.CltvRejectThreshold,
		Timeout:             cfg.Receiver.Timeout,
	}
	receivers := receiver.NewRegistry(context.Background(), receiverFactory(preimages, paymentBag, receiverCfg))
	defer receivers.StopAll()

	logger.Info().Int("active", receivers.Active()).Msg("Receiver registry ready")

	// ── 10. Trampoline relayer registry (Core B, relayed payments) ───────
	if cfg.Trampoline.Enabled {
		trampolineCfg := trampoline.Config{
			MinCltvDelta:   cfg.Trampoline.MinCltvDelta,
			MinForwardMsat: cfg.Trampoline.MinForwardMsat,
			Timeout:        cfg.Trampoline.Timeout,
			FeeSchedule: trampoline.FeeSchedule{
				BaseMsat:        cfg.Trampoline.BaseFeeMsat,
				ProportionalPPM: cfg.Trampoline.FeeProportionalPPM,
				Exponent:        cfg.Trampoline.FeeExponent,
				LogExponent:     cfg.Trampoline.FeeLogExponent,
			},
		}
		relayers := trampoline.NewRegistry(context.Background(), trampolineFactory(paymentBag, trampolineCfg))
		defer relayers.StopAll()
		logger.Info().Msg("Trampoline relaying enabled")
	}

	// ── 11. Wait for shutdown ──────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
}

// bootstrapSeed loads the keystore's seed, creating a fresh one from a
// freshly generated mnemonic on first run.
func bootstrapSeed(ks *keystore.Keystore, network string, password []byte) ([]byte, error) {
	if ks.Exists() {
		return ks.Load(password)
	}

	mnemonic, err := keyring.GenerateMnemonic()
	if err != nil {
		return nil, fmt.Errorf("generate mnemonic: %w", err)
	}
	seed, err := keyring.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("derive seed: %w", err)
	}
	if err := ks.Create(network, seed, password, keystore.DefaultParams()); err != nil {
		return nil, fmt.Errorf("create keystore: %w", err)
	}

	fmt.Fprintln(os.Stderr, "A new wallet seed was generated. Write down this recovery phrase and keep it offline:")
	fmt.Fprintln(os.Stderr, mnemonic)

	return seed, nil
}

// loadSeedPassword reads the keystore password from path, or returns an
// empty password if no path was given (an empty password is only
// appropriate for local/dev use; operators protecting real funds should
// always pass --seed-password-file).
func loadSeedPassword(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read password file: %w", err)
	}
	return bytes.TrimSpace(data), nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
