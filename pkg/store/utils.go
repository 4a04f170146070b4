package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

func ensureDefaultConfig(s Store) (bool, error) {
	if _, err := os.Stat(s.ConfigPath()); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", s.ConfigPath(), err)
	}

	if err := writeTOML(s.ConfigPath(), s.DefaultConfig()); err != nil {
		return false, err
	}
	return true, nil
}

func writeTOML(path string, value any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}

	tp := path + ".tmp"

	// config holds credentials
	f, err := os.OpenFile(tp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", tp, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(value); err != nil {
		_ = os.Remove(tp)
		return fmt.Errorf("encode: %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tp)
		return fmt.Errorf("close %s: %w", path, err)
	}

	if err := os.Rename(tp, path); err != nil {
		_ = os.Remove(tp)
		return fmt.Errorf("replace %s: %w", path, err)
	}

	return nil
}
