package commands

import (
	"fmt"
	"os"
	"syscall"

	"github.com/musk-sdk/musk/client"
	"github.com/musk-sdk/musk/muskcfg"
	"github.com/urfave/cli"
	"golang.org/x/term"
)

// promptPassword is the rpcpass value that asks for the password on the
// terminal instead.
const promptPassword = "-"

// readConfig reads the config file if it exists, or starts from the defaults
// of the selected network otherwise. Global flags override both.
func readConfig(ctx *cli.Context) (*muskcfg.Config, error) {
	path := muskcfg.CleanAndExpandPath(ctx.GlobalString(configFileName))

	var cfg *muskcfg.Config
	if fileExists(path) {
		fileCfg, err := muskcfg.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	} else {
		net := ctx.GlobalString(networkName)
		if net == "" {
			net = muskcfg.NetworkRegtest
		}

		netCfg, err := muskcfg.ForNetwork(net)
		if err != nil {
			return nil, err
		}
		netCfg.ConfigFile = path
		cfg = &netCfg
	}

	overrides := []struct {
		flag string
		dst  *string
	}{
		{networkName, &cfg.Chain.Network},
		{rpcURLName, &cfg.Rpc.URL},
		{rpcUserName, &cfg.Rpc.User},
		{rpcPassName, &cfg.Rpc.Password},
		{walletName, &cfg.Rpc.Wallet},
		{debugLevelName, &cfg.DebugLevel},
	}
	for _, o := range overrides {
		if value := ctx.GlobalString(o.flag); value != "" {
			*o.dst = value
		}
	}

	return cfg, nil
}

// loadConfig reads the config, prompts for the RPC password if requested and
// validates the result.
func loadConfig(ctx *cli.Context) (*muskcfg.Config, error) {
	cfg, err := readConfig(ctx)
	if err != nil {
		return nil, err
	}

	if cfg.Rpc.Password == promptPassword {
		pw, err := readPassword("RPC password: ")
		if err != nil {
			return nil, fmt.Errorf("unable to read password: %w", err)
		}
		cfg.Rpc.Password = string(pw)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// getClient connects to the node described by the config.
func getClient(cfg *muskcfg.Config) (client.Client, func(), error) {
	c, err := client.NewRpcClient(cfg)
	if err != nil {
		return nil, nil, err
	}

	return c, c.Close, nil
}

// fileExists reports whether the named file or directory exists.
func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// readPassword reads a password from the terminal. This requires there to be an
// actual TTY so passing in a password from stdin won't work.
func readPassword(text string) ([]byte, error) {
	fmt.Fprint(os.Stderr, text)

	// The variable syscall.Stdin is of a different type in the Windows API
	// that's why we need the explicit cast. And of course the linter
	// doesn't like it either.
	pw, err := term.ReadPassword(int(syscall.Stdin)) // nolint:unconvert
	fmt.Fprintln(os.Stderr)
	return pw, err
}
