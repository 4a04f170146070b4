package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/olimci/sleepsync/pkg/store/ledger"
	"github.com/urfave/cli/v3"
)

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "show ledger, logs and destinations",
		Action: statusAction,
	}
}

func statusAction(_ context.Context, cmd *cli.Command) error {
	if err := noArgs(cmd); err != nil {
		return err
	}

	s, err := openInstalledStore(cmd)
	if err != nil {
		return err
	}

	snap, err := s.Status(time.Now())
	if err != nil {
		return err
	}
	cfg := snap.Config

	printHeading("sleepsync status")
	printField("home", snap.Root)
	printField("config", snap.ConfigPath)
	printField("card", orNone(cfg.FlashAir.Host))
	printField("team", orNone(cfg.SleepHQ.TeamID))
	printField("cloud", cfg.Cloud.Backend)
	printField("mail", cfg.Mail.Transport)
	printField("retention", fmt.Sprintf("local %dd, card/cloud %dd", cfg.Retention.LocalDays, cfg.Retention.RemoteDays))
	fmt.Println()

	printHeading("ledger")
	printField("path", snap.LedgerPath)
	printField("entries", snap.LedgerTotal)
	if snap.Expired > 0 {
		printField("expired", warnStyle.Render(fmt.Sprint(snap.Expired)))
	}
	for _, day := range snap.LedgerDays {
		printField(day.Date.Format(ledger.DateLayout), day.Count)
	}
	fmt.Println()

	printHeading("logs")
	for _, l := range snap.Logs {
		if !l.Present {
			printField(l.Name, labelStyle.Render("absent"))
			continue
		}
		if isVerbose(cmd) {
			printField(l.Name, fmt.Sprintf("%s (%s)", humanBytes(l.Size), l.Path))
			continue
		}
		printField(l.Name, humanBytes(l.Size))
	}
	return nil
}
