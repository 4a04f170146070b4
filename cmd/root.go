package cmd

import (
	"context"

	"github.com/olimci/sleepsync/pkg/version"
	"github.com/urfave/cli/v3"
)

// Commands:
// init
//   creates the state directory and a default config.toml
//
// run
//   one synchronization: list and download the required card files, check
//   them, upload new data to SleepHQ and the cloud store, sweep old data and
//   email a report. Exits non-zero on failure outcomes.
//
// clean
//   only the three retention sweeps (local, card, cloud)
//
// status
//   ledger contents, journal sizes and configured destinations
//
// validate
//   loads and checks the layered configuration
//
// uninstall
//   removes the state directory

func Execute(ctx context.Context, args []string) error {
	app := &cli.Command{
		Name:    "sleepsync",
		Usage:   "sync CPAP data from a FlashAir card to SleepHQ",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "debug logging and extra output",
			},
			&cli.StringFlag{
				Name:    "home",
				Usage:   "state directory (default: <user config dir>/sleepsync)",
				Sources: cli.EnvVars("SLEEPSYNC_HOME"),
			},
		},
		Commands: []*cli.Command{
			initCommand(),
			runCommand(),
			cleanCommand(),
			statusCommand(),
			validateCommand(),
			uninstallCommand(),
			versionCommand(),
		},
	}

	return app.Run(ctx, args)
}
