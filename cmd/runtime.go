package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/olimci/sleepsync/pkg/cloud"
	"github.com/olimci/sleepsync/pkg/flashair"
	"github.com/olimci/sleepsync/pkg/logging"
	"github.com/olimci/sleepsync/pkg/notify"
	"github.com/olimci/sleepsync/pkg/pipeline"
	"github.com/olimci/sleepsync/pkg/runlog"
	"github.com/olimci/sleepsync/pkg/sleephq"
	storepkg "github.com/olimci/sleepsync/pkg/store"
	"github.com/olimci/sleepsync/pkg/store/config"
	"github.com/urfave/cli/v3"
)

// runtime holds the collaborators built from a validated config.
type runtime struct {
	cfg      config.Config
	log      logging.Logger
	journal  *runlog.Journal
	pipeline *pipeline.Pipeline
	cloud    cloud.Store
}

func (r *runtime) Close() {
	if r.cloud != nil {
		_ = r.cloud.Close()
	}
}

type runtimeOptions struct {
	analytics bool
	mail      bool
}

func buildRuntime(ctx context.Context, cmd *cli.Command, opts runtimeOptions) (*runtime, error) {
	s, err := openInstalledStore(cmd)
	if err != nil {
		return nil, err
	}

	cfg, err := s.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s:\n%w", s.ConfigPath(), err)
	}

	log := newLogger(cmd).With("run_id", uuid.NewString())

	journal, err := runlog.Open(cfg.Paths.LogDir, cfg.Logs.MaxBytes, log)
	if err != nil {
		return nil, err
	}

	card, err := flashair.New(cfg.FlashAir)
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, log: log, journal: journal}
	deps := pipeline.Deps{
		Remote:  card,
		Ledger:  storepkg.Ledger(cfg),
		Journal: journal,
		Logger:  log,
	}

	if opts.analytics {
		deps.Analytics = sleephq.New(cfg.SleepHQ)
	}

	store, err := cloud.New(ctx, cfg.Cloud)
	switch {
	case errors.Is(err, cloud.ErrDisabled):
		log.Debug(ctx, "cloud copy disabled")
	case err != nil:
		journal.Error(ctx, "Cloud", "Failed to connect to cloud storage: "+err.Error())
	default:
		rt.cloud = store
		deps.Cloud = store
	}

	if opts.mail {
		sender, err := notify.NewSender(ctx, cfg.Mail)
		switch {
		case errors.Is(err, notify.ErrDisabled):
			log.Debug(ctx, "email report disabled")
		case err != nil:
			journal.Error(ctx, "Notification", "Failed to set up email: "+err.Error())
		default:
			deps.Notifier = sender
		}
	}

	rt.pipeline = pipeline.New(pipeline.Options{
		DownloadDir:   cfg.Paths.DownloadDir,
		DatalogDir:    cfg.FlashAir.DatalogDir,
		SettingsDir:   cfg.FlashAir.SettingsDir,
		CriticalFiles: cfg.FlashAir.CriticalFiles,
		LocalDays:     cfg.Retention.LocalDays,
		RemoteDays:    cfg.Retention.RemoteDays,
		ReportTimeout: cfg.Mail.Timeout.Duration,
	}, deps)

	return rt, nil
}
