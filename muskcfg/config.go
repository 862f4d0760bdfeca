package muskcfg

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/jessevdk/go-flags"
	"github.com/vulpemventures/go-elements/network"
)

const (
	// NetworkRegtest is the name of the Elements regtest network.
	NetworkRegtest = "regtest"

	// NetworkTestnet is the name of the Liquid testnet.
	NetworkTestnet = "testnet"

	// NetworkLiquid is the name of the Liquid main network.
	NetworkLiquid = "liquidv1"

	defaultConfigFileName = "musk.conf"
	defaultLogLevel       = "info"
	defaultWallet         = "musk"
	defaultRPCUser        = "user"
	defaultRPCPassword    = "password"
	defaultRPCHost        = "127.0.0.1"
)

var (
	// ErrMissingGenesisHash is returned when the genesis hash is requested
	// but not configured.
	ErrMissingGenesisHash = errors.New("genesis hash not configured")

	// ErrInvalidGenesisHash is returned when the configured genesis hash
	// can't be parsed.
	ErrInvalidGenesisHash = errors.New("invalid genesis hash")

	// DefaultMuskDir is the default directory where musk looks for its
	// configuration file, for example ~/.musk on Linux.
	DefaultMuskDir = btcutil.AppDataDir("musk", false)

	// DefaultConfigFile is the default full path of musk's configuration
	// file.
	DefaultConfigFile = filepath.Join(DefaultMuskDir, defaultConfigFileName)

	// defaultRPCPorts are the default RPC ports of elementsd per network.
	defaultRPCPorts = map[string]uint16{
		NetworkRegtest: 18884,
		NetworkTestnet: 18892,
		NetworkLiquid:  7041,
	}
)

// ChainConfig houses the configuration options that govern which network we
// operate on.
type ChainConfig struct {
	Network string `long:"network" description:"The network the node runs on" choice:"regtest" choice:"testnet" choice:"liquidv1"`

	GenesisHash string `long:"genesishash" description:"The genesis block hash of the network in hex, queried from the node if empty"`
}

// RpcConfig houses the options used to connect to the elementsd JSON-RPC
// interface.
type RpcConfig struct {
	URL      string `long:"url" description:"The URL of the elementsd RPC interface"`
	User     string `long:"user" description:"The RPC user name"`
	Password string `long:"password" description:"The RPC password"`
	Wallet   string `long:"wallet" description:"The name of the node wallet used for wallet calls"`
}

// Config is the main config of the musk tools.
type Config struct {
	MuskDir    string `long:"muskdir" description:"The base directory that contains musk's configuration file"`
	ConfigFile string `long:"configfile" description:"Path to configuration file"`

	DebugLevel string `long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <global-level>,<subsystem>=<level>,<subsystem2>=<level>,..."`

	Chain *ChainConfig `group:"chain" namespace:"chain"`
	Rpc   *RpcConfig   `group:"rpc" namespace:"rpc"`
}

// DefaultRPCPort returns the default RPC port of elementsd on the network.
func DefaultRPCPort(net string) (uint16, error) {
	port, ok := defaultRPCPorts[net]
	if !ok {
		return 0, fmt.Errorf("unknown network: %v", net)
	}

	return port, nil
}

// DefaultConfig returns the default config, which connects to a local
// regtest node.
func DefaultConfig() Config {
	cfg, _ := ForNetwork(NetworkRegtest)
	return cfg
}

// ForNetwork returns the default config for the given network.
func ForNetwork(net string) (Config, error) {
	port, err := DefaultRPCPort(net)
	if err != nil {
		return Config{}, err
	}

	return Config{
		MuskDir:    DefaultMuskDir,
		ConfigFile: DefaultConfigFile,
		DebugLevel: defaultLogLevel,
		Chain: &ChainConfig{
			Network: net,
		},
		Rpc: &RpcConfig{
			URL:      fmt.Sprintf("http://%s:%d", defaultRPCHost, port),
			User:     defaultRPCUser,
			Password: defaultRPCPassword,
			Wallet:   defaultWallet,
		},
	}, nil
}

// LoadConfig reads the config file at the given path on top of the default
// config and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	path = CleanAndExpandPath(path)
	parser := flags.NewParser(&cfg, flags.IgnoreUnknown)
	if err := flags.NewIniParser(parser).ParseFile(path); err != nil {
		return nil, fmt.Errorf("unable to parse config file %s: %w",
			path, err)
	}
	cfg.ConfigFile = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the config to the given path in the format LoadConfig reads.
func (c *Config) Save(path string) error {
	path = CleanAndExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("unable to create config dir: %w", err)
	}

	parser := flags.NewParser(c, flags.None)
	err := flags.NewIniParser(parser).WriteFile(
		path, flags.IniIncludeDefaults,
	)
	if err != nil {
		return fmt.Errorf("unable to write config file %s: %w", path,
			err)
	}

	return nil
}

// Validate makes sure the config is sane.
func (c *Config) Validate() error {
	if c.Chain == nil || c.Rpc == nil {
		return errors.New("chain and rpc config must be set")
	}

	if _, ok := defaultRPCPorts[c.Chain.Network]; !ok {
		return fmt.Errorf("invalid network: %v", c.Chain.Network)
	}

	rpcURL, err := url.Parse(c.Rpc.URL)
	if err != nil {
		return fmt.Errorf("invalid rpc url: %w", err)
	}
	if rpcURL.Host == "" {
		return fmt.Errorf("rpc url %v has no host", c.Rpc.URL)
	}

	if c.Rpc.Wallet == "" {
		return errors.New("rpc wallet name must not be empty")
	}

	if c.Chain.GenesisHash != "" {
		if _, err := c.GenesisHash(); err != nil {
			return err
		}
	}

	return nil
}

// NetworkParams returns the address parameters of the configured network.
func (c *Config) NetworkParams() (*network.Network, error) {
	switch c.Chain.Network {
	case NetworkRegtest:
		return &network.Regtest, nil

	case NetworkTestnet:
		return &network.Testnet, nil

	case NetworkLiquid:
		return &network.Liquid, nil

	default:
		return nil, fmt.Errorf("invalid network: %v", c.Chain.Network)
	}
}

// GenesisHash returns the configured genesis block hash.
func (c *Config) GenesisHash() (chainhash.Hash, error) {
	if c.Chain.GenesisHash == "" {
		return chainhash.Hash{}, ErrMissingGenesisHash
	}

	hash, err := chainhash.NewHashFromStr(c.Chain.GenesisHash)
	if err != nil || len(c.Chain.GenesisHash) != 2*chainhash.HashSize {
		return chainhash.Hash{}, fmt.Errorf("%w: %v",
			ErrInvalidGenesisHash, c.Chain.GenesisHash)
	}

	return *hash, nil
}

// WalletURL returns the RPC URL of the configured wallet.
func (c *Config) WalletURL() string {
	return fmt.Sprintf("%s/wallet/%s", strings.TrimRight(c.Rpc.URL, "/"),
		c.Rpc.Wallet)
}

// CleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func CleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}
