package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func uninstallCommand() *cli.Command {
	return &cli.Command{
		Name:  "uninstall",
		Usage: "remove the state directory, including the ledger and downloads",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "confirm removal",
			},
		},
		Action: uninstallAction,
	}
}

func uninstallAction(_ context.Context, cmd *cli.Command) error {
	if err := noArgs(cmd); err != nil {
		return err
	}

	s, err := openInstalledStore(cmd)
	if err != nil {
		return err
	}

	if !cmd.Bool("force") {
		return fmt.Errorf("uninstall removes %s and forgets uploaded hashes; pass --force to confirm", s.Root)
	}

	if err := s.Uninstall(); err != nil {
		return err
	}
	printChangedPaths(isVerbose(cmd), "removed", []string{s.Root})

	fmt.Printf("removed sleepsync state from %s\n", s.Root)
	return nil
}
