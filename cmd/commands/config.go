package commands

import (
	"github.com/urfave/cli"
)

const pathName = "path"

var configCommands = []cli.Command{
	{
		Name:      "config",
		ShortName: "c",
		Usage:     "Manage the config file.",
		Category:  "Config",
		Subcommands: []cli.Command{
			saveConfigCommand,
			showConfigCommand,
		},
	},
}

var saveConfigCommand = cli.Command{
	Name:      "save",
	ShortName: "s",
	Usage:     "Write the effective config to a file.",
	Description: "Write the config resulting from the config file and " +
		"the global flags to the given path, or the config file " +
		"path if none is given.",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:      pathName,
			Usage:     "optional, the file to write",
			TakesFile: true,
		},
	},
	Action: saveConfig,
}

func saveConfig(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	path := ctx.String(pathName)
	if path == "" {
		path = cfg.ConfigFile
	}

	return cfg.Save(path)
}

var showConfigCommand = cli.Command{
	Name:   "show",
	Usage:  "Show the effective config.",
	Action: showConfig,
}

func showConfig(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	// Don't leak the password to the terminal.
	if cfg.Rpc.Password != "" {
		cfg.Rpc.Password = "********"
	}

	printJSON(ctx.App.Writer, cfg)

	return nil
}
