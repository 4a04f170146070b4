package fileutils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands a leading "~" and $VAR references in a configured
// path. Unset variables expand to the empty string.
func ExpandPath(path string) string {
	path = os.ExpandEnv(path)
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}

// AbsPath expands and cleans path into an absolute path.
func AbsPath(path string) (string, error) {
	expanded := ExpandPath(strings.TrimSpace(path))
	if expanded == "" {
		return "", fmt.Errorf("path is empty")
	}

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", path, err)
	}
	return abs, nil
}

// WriteFileAtomic streams r into dest through a sibling temporary file, so dest
// is either left untouched or fully replaced.
func WriteFileAtomic(dest string, r io.Reader, perm os.FileMode) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("create parent directory for %s: %w", dest, err)
	}

	tmpDest := dest + ".tmp"
	dstFile, err := os.OpenFile(tmpDest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return 0, fmt.Errorf("create temporary file %s: %w", tmpDest, err)
	}

	n, copyErr := io.Copy(dstFile, r)
	closeErr := dstFile.Close()
	if copyErr != nil {
		_ = os.Remove(tmpDest)
		return n, fmt.Errorf("write %s: %w", tmpDest, copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(tmpDest)
		return n, fmt.Errorf("close temporary file %s: %w", tmpDest, closeErr)
	}

	if err := os.Rename(tmpDest, dest); err != nil {
		_ = os.Remove(tmpDest)
		return n, fmt.Errorf("replace %s with %s: %w", dest, tmpDest, err)
	}

	return n, nil
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// RemoveTree deletes dir and everything below it. A missing dir is not an
// error. The filesystem root and the user's home directory are refused, as are
// symlinks.
func RemoveTree(dir string) error {
	clean := filepath.Clean(dir)
	if clean == "." || clean == filepath.VolumeName(clean)+string(filepath.Separator) {
		return fmt.Errorf("refusing to remove %s", dir)
	}
	if home, err := os.UserHomeDir(); err == nil && filepath.Clean(home) == clean {
		return fmt.Errorf("refusing to remove home directory %s", dir)
	}

	info, err := os.Lstat(clean)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return os.RemoveAll(clean)
}
