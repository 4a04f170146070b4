package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/olimci/sleepsync/pkg/store/config"
	"github.com/olimci/sleepsync/pkg/store/ledger"
	"github.com/olimci/sleepsync/pkg/utils/fileutils"
	"github.com/olimci/sleepsync/pkg/version"
)

const (
	dirName     = "sleepsync"
	configFile  = "config.toml"
	logsDir     = "logs"
	downloadDir = "download"
	ledgerFile  = "uploaded_hashes.log"
	envStoreDir = "SLEEPSYNC_HOME"
)

var (
	ErrAlreadyInstalled = errors.New("sleepsync is already initialized")
	ErrNotInstalled     = errors.New("sleepsync is not initialized")
)

// Store points to the sleepsync state directory.
type Store struct {
	Root string
}

func DefaultStore() (Store, error) {
	if customRoot := strings.TrimSpace(os.Getenv(envStoreDir)); customRoot != "" {
		return At(customRoot)
	}

	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return Store{}, fmt.Errorf("resolve user config directory: %w", err)
	}

	return Store{Root: filepath.Join(cfgDir, dirName)}, nil
}

// At returns a store rooted at dir.
func At(dir string) (Store, error) {
	absRoot, err := fileutils.AbsPath(dir)
	if err != nil {
		return Store{}, fmt.Errorf("resolve store directory: %w", err)
	}
	return Store{Root: absRoot}, nil
}

func (s Store) ConfigPath() string {
	return filepath.Join(s.Root, configFile)
}

func (s Store) DefaultLogDir() string {
	return filepath.Join(s.Root, logsDir)
}

func (s Store) DefaultDownloadDir() string {
	return filepath.Join(s.Root, downloadDir)
}

// LedgerPath returns the hash ledger location for cfg.
func LedgerPath(cfg config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, ledgerFile)
}

// Ledger opens the hash ledger configured by cfg.
func Ledger(cfg config.Config, opts ...ledger.Option) *ledger.Ledger {
	return ledger.Open(LedgerPath(cfg), opts...)
}

func (s Store) IsInstalled() bool {
	_, err := os.Stat(s.ConfigPath())
	return err == nil
}

func (s Store) DefaultConfig() config.Config {
	cfg := config.Default()
	cfg.Sleepsync.Version = version.Version
	cfg.Paths = config.Paths{
		DownloadDir: s.DefaultDownloadDir(),
		LogDir:      s.DefaultLogDir(),
	}
	return cfg
}

// Install initializes the store and fails if it already exists.
func (s Store) Install() error {
	if s.IsInstalled() {
		return ErrAlreadyInstalled
	}

	_, err := s.installMissing()
	return err
}

// EnsureInstalled initializes the store if missing.
func (s Store) EnsureInstalled() error {
	_, err := s.installMissing()
	return err
}

// Uninstall removes the whole state directory: config, journals, ledger and
// downloaded card data.
func (s Store) Uninstall() error {
	if !s.IsInstalled() {
		return ErrNotInstalled
	}
	if err := fileutils.RemoveTree(s.Root); err != nil {
		return fmt.Errorf("remove %s: %w", s.Root, err)
	}
	return nil
}

// installMissing creates the store directories and a default config file.
func (s Store) installMissing() (bool, error) {
	for _, dir := range []string{s.DefaultLogDir(), s.DefaultDownloadDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("create store directories: %w", err)
		}
	}

	return ensureDefaultConfig(s)
}

// LoadConfig layers defaults, the config file and the process environment.
func (s Store) LoadConfig() (config.Config, error) {
	return s.LoadConfigWithEnv(os.LookupEnv)
}

func (s Store) LoadConfigWithEnv(lookup config.LookupFunc) (config.Config, error) {
	cfg := s.DefaultConfig()
	if _, err := os.Stat(s.ConfigPath()); err == nil {
		if _, err := toml.DecodeFile(s.ConfigPath(), &cfg); err != nil {
			return config.Config{}, fmt.Errorf("decode %s: %w", s.ConfigPath(), err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return config.Config{}, fmt.Errorf("stat %s: %w", s.ConfigPath(), err)
	}

	if cfg.Sleepsync.Version == "" {
		cfg.Sleepsync.Version = version.Version
	}
	if err := version.EnsureCompatible(cfg.Sleepsync.Version); err != nil {
		return config.Config{}, fmt.Errorf("unsupported config version %q: %w", cfg.Sleepsync.Version, err)
	}

	if lookup != nil {
		if err := cfg.ApplyEnv(lookup); err != nil {
			return config.Config{}, fmt.Errorf("apply environment: %w", err)
		}
	}

	if err := s.resolvePaths(&cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (s Store) SaveConfig(cfg config.Config) error {
	if cfg.Sleepsync.Version == "" {
		cfg.Sleepsync.Version = version.Version
	}
	return writeTOML(s.ConfigPath(), cfg)
}

// resolvePaths makes configured directories absolute; relative entries are
// taken relative to the store root.
func (s Store) resolvePaths(cfg *config.Config) error {
	resolve := func(p *string, fallback string) error {
		value := strings.TrimSpace(*p)
		if value == "" {
			*p = fallback
			return nil
		}
		value = fileutils.ExpandPath(value)
		if !filepath.IsAbs(value) {
			value = filepath.Join(s.Root, value)
		}
		abs, err := fileutils.AbsPath(value)
		if err != nil {
			return err
		}
		*p = abs
		return nil
	}

	if err := resolve(&cfg.Paths.DownloadDir, s.DefaultDownloadDir()); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if err := resolve(&cfg.Paths.LogDir, s.DefaultLogDir()); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}
