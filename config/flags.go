package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// Flags holds parsed command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	Network          string
	DataDir          string
	Config           string
	SeedPasswordFile string

	// Electrum
	ElectrumServers string

	// Wallet
	SwipeRange            int
	AllowSpendUnconfirmed bool

	// Trampoline
	Trampoline bool

	// RPC
	RPC        bool
	RPCAddr    string
	RPCPort    int
	RPCAllowed string
	RPCCORS    string

	// Metrics
	Metrics     bool
	MetricsAddr string

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args
	Args []string

	// Explicitly-set bool flags (for true/false overrides).
	SetAllowSpendUnconfirmed bool
	SetTrampoline            bool
	SetRPC                   bool
	SetMetrics               bool
	SetLogJSON               bool
}

// ParseFlags parses command-line flags.
func ParseFlags() *Flags {
	f := &Flags{}
	fs := flag.NewFlagSet("klingnet-wallet", flag.ContinueOnError)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")
	fs.BoolVar(&f.Version, "v", false, "Show version (shorthand)")

	// Core
	fs.StringVar(&f.Network, "network", "", "Network type (mainnet, testnet, or regtest)")
	testnet := fs.Bool("testnet", false, "Use testnet (shorthand for --network=testnet)")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")
	fs.StringVar(&f.SeedPasswordFile, "seed-password-file", "", "Path to a file holding the keystore seed password")

	// Electrum
	fs.StringVar(&f.ElectrumServers, "electrum-servers", "", "Electrum server(s), comma-separated host:port")

	// Wallet
	fs.IntVar(&f.SwipeRange, "swipe-range", 0, "Consecutive unused addresses before a gap-limit halt")
	fs.BoolVar(&f.AllowSpendUnconfirmed, "allow-spend-unconfirmed", false, "Allow spending unconfirmed UTXOs")

	// Trampoline
	fs.BoolVar(&f.Trampoline, "trampoline", false, "Enable the trampoline relayer")

	// RPC
	fs.BoolVar(&f.RPC, "rpc", true, "Enable RPC server")
	fs.StringVar(&f.RPCAddr, "rpc-addr", "", "RPC listen address")
	fs.IntVar(&f.RPCPort, "rpc-port", 0, "RPC listen port")
	fs.StringVar(&f.RPCAllowed, "rpc-allowed", "", "Allowed IPs for RPC")
	fs.StringVar(&f.RPCCORS, "rpc-cors", "", "Allowed CORS origins for RPC (comma-separated)")

	// Metrics
	fs.BoolVar(&f.Metrics, "metrics", true, "Enable prometheus metrics server")
	fs.StringVar(&f.MetricsAddr, "metrics-addr", "", "Metrics listen address")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	fs.Usage = func() {
		printUsage()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if *testnet {
		f.Network = "testnet"
	}
	f.SetAllowSpendUnconfirmed = isFlagSet(fs, "allow-spend-unconfirmed")
	f.SetTrampoline = isFlagSet(fs, "trampoline")
	f.SetRPC = isFlagSet(fs, "rpc")
	f.SetMetrics = isFlagSet(fs, "metrics")
	f.SetLogJSON = isFlagSet(fs, "log-json")

	f.Args = fs.Args()

	for _, arg := range f.Args {
		if strings.HasPrefix(arg, "-") {
			fmt.Fprintf(os.Stderr, "Error: flag %q was not parsed (positional argument stopped parsing)\n", arg)
			fmt.Fprintf(os.Stderr, "Hint: --trampoline is a boolean flag. Use --trampoline (not --trampoline <value>)\n")
			os.Exit(1)
		}
	}

	return f
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	// Core
	if f.Network != "" {
		cfg.Network = NetworkType(f.Network)
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	// Electrum
	if f.ElectrumServers != "" {
		cfg.Electrum.Servers = parseStringList(f.ElectrumServers)
	}

	// Wallet
	if f.SwipeRange != 0 {
		cfg.Wallet.SwipeRange = f.SwipeRange
	}
	if f.SetAllowSpendUnconfirmed {
		cfg.Wallet.AllowSpendUnconfirmed = f.AllowSpendUnconfirmed
	}

	// Trampoline
	if f.SetTrampoline {
		cfg.Trampoline.Enabled = f.Trampoline
	}

	// RPC
	if f.SetRPC {
		cfg.RPC.Enabled = f.RPC
	}
	if f.RPCAddr != "" {
		cfg.RPC.Addr = f.RPCAddr
	}
	if f.RPCPort != 0 {
		cfg.RPC.Port = f.RPCPort
	}
	if f.RPCAllowed != "" {
		cfg.RPC.AllowedIPs = parseStringList(f.RPCAllowed)
	}
	if f.RPCCORS != "" {
		cfg.RPC.CORSOrigins = parseStringList(f.RPCCORS)
	}

	// Metrics
	if f.SetMetrics {
		cfg.Metrics.Enabled = f.Metrics
	}
	if f.MetricsAddr != "" {
		cfg.Metrics.Addr = f.MetricsAddr
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func printUsage() {
	usage := `Klingnet Wallet - non-custodial BIP49 SPV wallet with Lightning trampoline relay

Usage:
  walletd [options]
  walletd --help

Commands:
  --help, -h      Show this help message
  --version, -v   Show version information

Core Options:
  --network             Network type: mainnet (default), testnet, or regtest
  --testnet             Shorthand for --network=testnet
  --datadir             Data directory (default: ~/.klingnet-wallet)
  --config, -c          Config file path (default: <datadir>/klingnet-wallet.conf)
  --seed-password-file  Path to a file holding the keystore seed password

Electrum Options:
  --electrum-servers    Electrum server(s), comma-separated host:port

Wallet Options:
  --swipe-range             Consecutive unused addresses before a gap-limit halt
  --allow-spend-unconfirmed Allow spending unconfirmed UTXOs

Trampoline Options:
  --trampoline    Enable the trampoline relayer

RPC Options:
  --rpc           Enable RPC server (default: true)
  --rpc-addr      RPC listen address (default: 127.0.0.1)
  --rpc-port      RPC port (default: 8545)
  --rpc-allowed   Allowed IPs for RPC (comma-separated)
  --rpc-cors      Allowed CORS origins for RPC (comma-separated)

Metrics Options:
  --metrics       Enable prometheus metrics server (default: true)
  --metrics-addr  Metrics listen address (default: 127.0.0.1:9090)

Logging Options:
  --log-level     Log level: debug, info, warn, error (default: info)
  --log-file      Log file path (default: <datadir>/logs/walletd.log; logs also go to stdout)
  --log-json      Output logs as JSON

Examples:
  # Start mainnet wallet
  walletd --electrum-servers=electrum.example.com:50002

  # Start testnet wallet with trampoline relaying enabled
  walletd --network=testnet --trampoline --electrum-servers=testnet.example.com:51002
`
	fmt.Print(usage)
}

// Load loads configuration with the following precedence:
// 1. Default values
// 2. Auto-create data dirs + default config (idempotent)
// 3. Config file
// 4. Command-line flags
func Load() (*Config, *Flags, error) {
	flags := ParseFlags()

	if flags.Help {
		printUsage()
		os.Exit(0)
	}
	if flags.Version {
		fmt.Println("walletd version 0.1.0")
		os.Exit(0)
	}

	network := Mainnet
	switch strings.ToLower(flags.Network) {
	case "testnet":
		network = Testnet
	case "regtest":
		network = Regtest
	}

	cfg := Default(network)

	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	if err := EnsureDataDirs(cfg); err != nil {
		return nil, nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}

	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}

	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}

	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, flags, nil
}

// EnsureDataDirs creates the data directory structure and a default
// config file if they don't already exist. Idempotent.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.ChainDataDir(),
		cfg.DBDir(),
		cfg.KeystoreDir(),
		cfg.LogsDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}

	return nil
}
