package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/lightningnetwork/lnd/build"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/musk-sdk/musk"
	"github.com/musk-sdk/musk/client"
	"github.com/musk-sdk/musk/muskcfg"
	"github.com/urfave/cli"
)

const (
	// Environment variables names that can be used to set the global flags.
	envVarConfigFile = "MUSKCLI_CONFIGFILE"
	envVarNetwork    = "MUSKCLI_NETWORK"
	envVarRPCURL     = "MUSKCLI_RPCURL"
	envVarRPCUser    = "MUSKCLI_RPCUSER"
	envVarRPCPass    = "MUSKCLI_RPCPASS"
	envVarWallet     = "MUSKCLI_WALLET"
	envVarDebugLevel = "MUSKCLI_DEBUGLEVEL"
)

const (
	configFileName = "configfile"
	networkName    = "network"
	rpcURLName     = "rpcurl"
	rpcUserName    = "rpcuser"
	rpcPassName    = "rpcpass"
	walletName     = "wallet"
	debugLevelName = "debuglevel"
)

// NewApp creates a new muskcli app with all the available commands.
func NewApp(actionOpts ...ActionOption) cli.App {
	app := cli.NewApp()
	app.Name = "muskcli"
	app.Version = musk.Version()
	app.Usage = "fund, inspect and spend Simplicity programs on Elements"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:      configFileName,
			Value:     muskcfg.DefaultConfigFile,
			Usage:     "The path to the config file.",
			TakesFile: true,
			EnvVar:    envVarConfigFile,
		},
		cli.StringFlag{
			Name: "network, n",
			Usage: "The network the node is running on, one of " +
				"regtest, testnet or liquidv1.",
			EnvVar: envVarNetwork,
		},
		cli.StringFlag{
			Name:   rpcURLName,
			Usage:  "The URL of the elementsd RPC interface.",
			EnvVar: envVarRPCURL,
		},
		cli.StringFlag{
			Name:   rpcUserName,
			Usage:  "The elementsd RPC user.",
			EnvVar: envVarRPCUser,
		},
		cli.StringFlag{
			Name: rpcPassName,
			Usage: "The elementsd RPC password, or - to be " +
				"prompted for it.",
			EnvVar: envVarRPCPass,
		},
		cli.StringFlag{
			Name:   walletName,
			Usage:  "The name of the elementsd wallet to use.",
			EnvVar: envVarWallet,
		},
		cli.StringFlag{
			Name: debugLevelName,
			Usage: "Logging level for all subsystems {trace, " +
				"debug, info, warn, error, critical, off}, " +
				"optionally followed by <subsystem>=<level> " +
				"pairs.",
			EnvVar: envVarDebugLevel,
		},
	}
	app.Before = setupLogging

	// Add all the available commands.
	app.Commands = append(app.Commands, nodeCommands(actionOpts...)...)
	app.Commands = append(
		app.Commands, programCommands(actionOpts...)...,
	)
	app.Commands = append(app.Commands, configCommands...)

	return *app
}

// setupLogging registers the loggers of all subsystems and sets them to the
// requested level.
func setupLogging(ctx *cli.Context) error {
	cfg, err := readConfig(ctx)
	if err != nil {
		return err
	}

	root := build.NewRotatingLogWriter()
	musk.SetupLoggers(root, nil)

	return build.ParseAndSetDebugLevels(cfg.DebugLevel, root)
}

// actionOpts contains the options for an action.
type actionOpts struct {
	client       client.Client
	silencePrint bool
	out          io.Writer
	respChan     chan<- fn.Result[interface{}]
}

// ActionOption is a function type that can be used to set options for an
// action.
type ActionOption func(*actionOpts)

// defaultActionOpts returns the default action options.
func defaultActionOpts() *actionOpts {
	return &actionOpts{
		out: os.Stdout,
	}
}

// ActionWithClient is an option modifier function that sets the client for an
// action.
func ActionWithClient(c client.Client) ActionOption {
	return func(opts *actionOpts) {
		opts.client = c
	}
}

// ActionWithSilencePrint is an option modifier function that sets the silence
// print option for an action.
func ActionWithSilencePrint(silencePrint bool) ActionOption {
	return func(opts *actionOpts) {
		opts.silencePrint = silencePrint
	}
}

// ActionWithOutput is an option modifier function that sets the writer the
// responses are printed to.
func ActionWithOutput(w io.Writer) ActionOption {
	return func(opts *actionOpts) {
		opts.out = w
	}
}

// ActionRespChan is an option modifier function that sets the response channel
// for an action.
func ActionRespChan(respChan chan<- fn.Result[interface{}]) ActionOption {
	return func(opts *actionOpts) {
		opts.respChan = respChan
	}
}

// UnwrappedAction is a function signatures for unwrapped actions that are
// executed by the wrapped action.
type UnwrappedAction func(cliCtx *cli.Context, cfg *muskcfg.Config,
	c client.Client) (interface{}, error)

// WrappedAction is a function signature for wrapped actions that are executed
// by cli.
type WrappedAction = func(*cli.Context) error

// NewWrappedAction creates a new WrappedAction that wraps an UnwrappedAction.
func NewWrappedAction(action UnwrappedAction,
	actionOpts ...ActionOption) WrappedAction {

	// Formulate the action options struct from the provided option
	// modifier functions.
	opts := defaultActionOpts()
	for _, actionOpt := range actionOpts {
		actionOpt(opts)
	}

	return func(cliCtx *cli.Context) error {
		cfg, err := loadConfig(cliCtx)
		if err != nil {
			return err
		}

		// By default, a no-operation client cleanup function is
		// specified because the caller is expected to handle the
		// cleanup for any client provided as an option.
		c, cleanUp := opts.client, func() {}
		if c == nil {
			c, cleanUp, err = getClient(cfg)
			if err != nil {
				return err
			}
		}
		defer cleanUp()

		resp, err := action(cliCtx, cfg, c)
		if err != nil {
			// If a response channel is provided, send the error to
			// the response channel.
			if opts.respChan != nil {
				opts.respChan <- fn.Err[interface{}](err)
			}

			return err
		}

		if !opts.silencePrint {
			printJSON(opts.out, resp)
		}

		// If a response channel is provided, send the response to the
		// response channel.
		if opts.respChan != nil {
			opts.respChan <- fn.Ok[interface{}](resp)
		}

		return nil
	}
}

// Fatal prints the error and exits.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "[muskcli] %v\n", err)
	os.Exit(1)
}

func printJSON(w io.Writer, resp interface{}) {
	b, err := json.Marshal(resp)
	if err != nil {
		Fatal(err)
	}

	var out bytes.Buffer
	_ = json.Indent(&out, b, "", "\t")
	out.WriteString("\n")
	_, _ = out.WriteTo(w)
}
