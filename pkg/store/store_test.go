package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/olimci/sleepsync/pkg/digest"
	"github.com/olimci/sleepsync/pkg/store/config"
	"github.com/olimci/sleepsync/pkg/store/ledger"
	"github.com/olimci/sleepsync/pkg/version"
)

func noEnv(string) (string, bool) { return "", false }

func TestInstallCreatesLayout(t *testing.T) {
	t.Parallel()

	s := Store{Root: t.TempDir()}
	if s.IsInstalled() {
		t.Fatalf("fresh store reports installed")
	}
	if err := s.Install(); err != nil {
		t.Fatalf("Install: %v", err)
	}

	for _, p := range []string{s.ConfigPath(), s.DefaultLogDir(), s.DefaultDownloadDir()} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s: %v", p, err)
		}
	}
	info, err := os.Stat(s.ConfigPath())
	if err != nil {
		t.Fatalf("stat config: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("config mode = %v, want 0600", info.Mode().Perm())
	}

	if err := s.Install(); !errors.Is(err, ErrAlreadyInstalled) {
		t.Fatalf("second Install error = %v, want ErrAlreadyInstalled", err)
	}
	if err := s.EnsureInstalled(); err != nil {
		t.Fatalf("EnsureInstalled on existing store: %v", err)
	}
}

func TestLoadConfigRoundTrip(t *testing.T) {
	t.Parallel()

	s := Store{Root: t.TempDir()}
	if err := s.Install(); err != nil {
		t.Fatalf("Install: %v", err)
	}

	cfg, err := s.LoadConfigWithEnv(noEnv)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	cfg.FlashAir.Host = "192.168.0.9"
	cfg.Cloud.Backend = config.BackendS3
	cfg.Cloud.S3.Bucket = "therapy"
	cfg.FlashAir.Timeout = config.Duration{Duration: 5 * time.Second}
	if err := s.SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	got, err := s.LoadConfigWithEnv(noEnv)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.FlashAir.Host != "192.168.0.9" || got.Cloud.S3.Bucket != "therapy" {
		t.Fatalf("reloaded config lost values: %+v", got)
	}
	if got.FlashAir.Timeout.Duration != 5*time.Second {
		t.Fatalf("timeout = %v, want 5s", got.FlashAir.Timeout)
	}
	if got.Sleepsync.Version != version.Version {
		t.Fatalf("version = %q, want %q", got.Sleepsync.Version, version.Version)
	}
}

func TestLoadConfigWithoutFileUsesDefaults(t *testing.T) {
	t.Parallel()

	s := Store{Root: t.TempDir()}
	cfg, err := s.LoadConfigWithEnv(noEnv)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Paths.LogDir != s.DefaultLogDir() {
		t.Fatalf("log dir = %q, want %q", cfg.Paths.LogDir, s.DefaultLogDir())
	}
	if cfg.Retention.LocalDays != 9 || cfg.Retention.RemoteDays != 7 {
		t.Fatalf("retention = %+v", cfg.Retention)
	}
}

func TestLoadConfigEnvironmentWins(t *testing.T) {
	t.Parallel()

	s := Store{Root: t.TempDir()}
	writeConfig(t, s, `
[flashair]
host = "10.0.0.1"

[paths]
download_dir = "card"
`)

	env := map[string]string{
		"FLASHAIR_IP": "10.0.0.2",
		"LOG_DIR":     "journal",
	}
	cfg, err := s.LoadConfigWithEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.FlashAir.Host != "10.0.0.2" {
		t.Fatalf("host = %q, want env override", cfg.FlashAir.Host)
	}
	if want := filepath.Join(s.Root, "card"); cfg.Paths.DownloadDir != want {
		t.Fatalf("download dir = %q, want %q", cfg.Paths.DownloadDir, want)
	}
	if want := filepath.Join(s.Root, "journal"); cfg.Paths.LogDir != want {
		t.Fatalf("log dir = %q, want %q", cfg.Paths.LogDir, want)
	}
	if cfg.FlashAir.DatalogDir != "/DATALOG" {
		t.Fatalf("datalog dir default lost: %q", cfg.FlashAir.DatalogDir)
	}
}

func TestLoadConfigRejectsNewerVersion(t *testing.T) {
	t.Parallel()

	s := Store{Root: t.TempDir()}
	writeConfig(t, s, `
[sleepsync]
version = "99.0.0"
`)

	_, err := s.LoadConfigWithEnv(noEnv)
	if err == nil || !strings.Contains(err.Error(), "unsupported config version") {
		t.Fatalf("expected version error, got %v", err)
	}
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	t.Parallel()

	s := Store{Root: t.TempDir()}
	writeConfig(t, s, `
[flashair]
timeout = "eventually"
`)

	if _, err := s.LoadConfigWithEnv(noEnv); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestStatusGroupsLedgerByDay(t *testing.T) {
	t.Parallel()

	s := Store{Root: t.TempDir()}
	if err := s.Install(); err != nil {
		t.Fatalf("Install: %v", err)
	}
	cfg, err := s.LoadConfigWithEnv(noEnv)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	sum := func(b byte) digest.Sum {
		return digest.Sum(strings.Repeat(string('a'+b), 64))
	}
	record := func(day time.Time, b byte) {
		l := Ledger(cfg, ledger.WithClock(func() time.Time { return day }))
		if err := l.Record(sum(b)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	record(now, 0)
	record(now, 1)
	record(now.AddDate(0, 0, -2), 2)
	record(now.AddDate(0, 0, -30), 3)

	snap, err := s.Status(now)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if snap.LedgerTotal != 3 || snap.Expired != 1 {
		t.Fatalf("total=%d expired=%d, want 3 and 1", snap.LedgerTotal, snap.Expired)
	}
	if len(snap.LedgerDays) != 2 || snap.LedgerDays[0].Count != 2 {
		t.Fatalf("days = %+v", snap.LedgerDays)
	}

	var ledgerLog LogStatus
	for _, item := range snap.Logs {
		if item.Name == "uploaded_hashes.log" {
			ledgerLog = item
		}
	}
	if !ledgerLog.Present || ledgerLog.Size == 0 {
		t.Fatalf("ledger log status = %+v", ledgerLog)
	}
}

func TestStatusRequiresInstall(t *testing.T) {
	t.Parallel()

	s := Store{Root: t.TempDir()}
	if _, err := s.Status(time.Now()); !errors.Is(err, ErrNotInstalled) {
		t.Fatalf("Status error = %v, want ErrNotInstalled", err)
	}
}

func TestValidateReportsMissingCredentials(t *testing.T) {
	t.Parallel()

	s := Store{Root: t.TempDir()}
	if err := s.Install(); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if _, err := s.Validate(); err == nil || !strings.Contains(err.Error(), "flashair.host") {
		t.Fatalf("expected missing host error, got %v", err)
	}
}

func writeConfig(t *testing.T, s Store, body string) {
	t.Helper()

	if err := os.MkdirAll(s.Root, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(s.ConfigPath(), []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestUninstallRemovesRoot(t *testing.T) {
	t.Parallel()

	s := Store{Root: filepath.Join(t.TempDir(), "state")}
	if err := s.Uninstall(); !errors.Is(err, ErrNotInstalled) {
		t.Fatalf("Uninstall before Install = %v, want ErrNotInstalled", err)
	}
	if err := s.Install(); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if err := s.Uninstall(); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if _, err := os.Stat(s.Root); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("root still present: %v", err)
	}
}
