package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:   "validate",
		Usage:  "check the config file and environment",
		Action: validateAction,
	}
}

func validateAction(_ context.Context, cmd *cli.Command) error {
	if err := noArgs(cmd); err != nil {
		return err
	}

	s, err := openInstalledStore(cmd)
	if err != nil {
		return err
	}

	res, err := s.Validate()
	if err != nil {
		return fmt.Errorf("invalid config %s:\n%w", s.ConfigPath(), err)
	}

	fmt.Printf("%s %s\n", okStyle.Render("valid"), res.ConfigPath)
	if isVerbose(cmd) {
		printField("card", res.Config.FlashAir.Host)
		printField("team", res.Config.SleepHQ.TeamID)
		printField("cloud", res.CloudBackend)
		printField("mail", res.MailTransport)
	}
	return nil
}
