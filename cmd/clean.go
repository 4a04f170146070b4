package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func cleanCommand() *cli.Command {
	return &cli.Command{
		Name:   "clean",
		Usage:  "delete expired local files, card folders and cloud folders",
		Action: cleanAction,
	}
}

func cleanAction(ctx context.Context, cmd *cli.Command) error {
	if err := noArgs(cmd); err != nil {
		return err
	}

	rt, err := buildRuntime(ctx, cmd, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	res := rt.pipeline.Clean(ctx)

	printHeading("sleepsync clean")
	printCleanup(isVerbose(cmd), res)

	if res.Failed > 0 {
		return fmt.Errorf("%d cleanup operation(s) failed, see %s", res.Failed, rt.journal.Dir())
	}
	return nil
}
