package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func initCommand() *cli.Command {
	return &cli.Command{
		Name:   "init",
		Usage:  "initialize the sleepsync state directory",
		Action: initAction,
	}
}

func initAction(_ context.Context, cmd *cli.Command) error {
	if err := noArgs(cmd); err != nil {
		return err
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}

	if store.IsInstalled() {
		return fmt.Errorf("sleepsync is already initialized in %s", store.Root)
	}

	if err := store.Install(); err != nil {
		return err
	}

	fmt.Printf("initialized sleepsync in %s\n", store.Root)
	fmt.Printf("edit %s or set the environment variables before the first run\n", store.ConfigPath())
	return nil
}
