package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/olimci/sleepsync/pkg/pipeline"
	"github.com/urfave/cli/v3"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "download new card data, upload it and email a report",
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	if err := noArgs(cmd); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := buildRuntime(ctx, cmd, runtimeOptions{analytics: true, mail: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.log.Info(ctx, "run started", "card", rt.cfg.FlashAir.Host)
	res := rt.pipeline.Run(ctx)
	rt.log.Info(ctx, "run finished", "outcome", res.Outcome.String(), "errors", rt.journal.ErrorCount())

	printRunResult(isVerbose(cmd), res)

	if res.Outcome.Failed() {
		if res.Err != nil {
			return fmt.Errorf("%s: %w", res.Outcome, res.Err)
		}
		return fmt.Errorf("%s", res.Outcome)
	}
	return nil
}

func printRunResult(verbose bool, res pipeline.Result) {
	printHeading("sleepsync run")
	printField("outcome", renderOutcome(res.Outcome))
	printField("required", res.Required)
	printField("uploaded", len(res.Uploaded))
	printField("skipped", len(res.Skipped))
	if len(res.Missing) > 0 {
		printField("missing", len(res.Missing))
		printList(res.Missing)
	}
	printCleanup(verbose, res.Cleanup)

	printChangedPaths(verbose, "uploaded", res.Uploaded)
	printChangedPaths(verbose, "skipped", res.Skipped)
}

func printCleanup(verbose bool, res pipeline.CleanupResult) {
	printField("deleted", fmt.Sprintf("%d local, %d card, %d cloud", len(res.Local), len(res.Device), len(res.Cloud)))
	if res.Failed > 0 {
		printField("failed", warnStyle.Render(fmt.Sprint(res.Failed)))
	}

	printChangedPaths(verbose, "deleted local", res.Local)
	printChangedPaths(verbose, "deleted from card", res.Device)
	printChangedPaths(verbose, "deleted from cloud", res.Cloud)
}
