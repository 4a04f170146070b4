package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/olimci/sleepsync/pkg/logging"
	storepkg "github.com/olimci/sleepsync/pkg/store"
	"github.com/urfave/cli/v3"
)

func isVerbose(cmd *cli.Command) bool {
	if cmd == nil {
		return false
	}
	if cmd.Bool("verbose") {
		return true
	}
	root := cmd.Root()
	return root != nil && root.Bool("verbose")
}

func homeFlag(cmd *cli.Command) string {
	if cmd == nil {
		return ""
	}
	if home := strings.TrimSpace(cmd.String("home")); home != "" {
		return home
	}
	if root := cmd.Root(); root != nil {
		return strings.TrimSpace(root.String("home"))
	}
	return ""
}

func openStore(cmd *cli.Command) (storepkg.Store, error) {
	if home := homeFlag(cmd); home != "" {
		return storepkg.At(home)
	}
	return storepkg.DefaultStore()
}

// openInstalledStore is openStore for commands that need an existing config.
func openInstalledStore(cmd *cli.Command) (storepkg.Store, error) {
	s, err := openStore(cmd)
	if err != nil {
		return storepkg.Store{}, err
	}
	if !s.IsInstalled() {
		return storepkg.Store{}, fmt.Errorf("sleepsync is not initialized in %s (run `sleepsync init`)", s.Root)
	}
	return s, nil
}

func newLogger(cmd *cli.Command) logging.Logger {
	return logging.NewText(os.Stderr, isVerbose(cmd))
}

func noArgs(cmd *cli.Command) error {
	if cmd.Args().Len() > 0 {
		return fmt.Errorf("%s does not accept arguments", cmd.Name)
	}
	return nil
}
