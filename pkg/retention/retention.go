// Package retention decides which local files and dated folders are old
// enough to delete.
package retention

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FolderLayout is the YYYYMMDD name of datalog and cloud day folders.
const FolderLayout = "20060102"

const day = 24 * time.Hour

// FolderName returns the dated folder name for t in t's location.
func FolderName(t time.Time) string {
	return t.Format(FolderLayout)
}

// ParseFolderDate parses an exact YYYYMMDD name.
func ParseFolderDate(name string) (time.Time, bool) {
	if len(name) != len(FolderLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(FolderLayout, name)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// AgeDays is the number of calendar days from date to now.
func AgeDays(date, now time.Time) int {
	a := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / day)
}

// FolderExpired reports whether name is a dated folder strictly older than
// days. ok is false for names that are not dates.
func FolderExpired(name string, now time.Time, days int) (expired, ok bool) {
	date, ok := ParseFolderDate(name)
	if !ok {
		return false, false
	}
	return AgeDays(date, now) > days, true
}

// ExpiredFolders filters names down to the expired dated folders, keeping
// their order.
func ExpiredFolders(names []string, now time.Time, days int) []string {
	var out []string
	for _, name := range names {
		if expired, ok := FolderExpired(name, now, days); ok && expired {
			out = append(out, name)
		}
	}
	return out
}

// FileExpired compares modification age against days*24h, strictly.
func FileExpired(modTime, now time.Time, days int) bool {
	return now.Sub(modTime) > time.Duration(days)*day
}

// PathError is a per-file failure during a local sweep.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("delete %s: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// LocalResult lists what a local sweep did.
type LocalResult struct {
	Deleted []string
	Failed  []*PathError
}

// SweepLocal removes regular files under root whose modification age is
// strictly greater than days. Per-file failures are collected and the sweep
// continues. A missing root is not an error.
func SweepLocal(ctx context.Context, root string, days int, now time.Time) (LocalResult, error) {
	var res LocalResult

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			res.Failed = append(res.Failed, &PathError{Path: path, Err: walkErr})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			res.Failed = append(res.Failed, &PathError{Path: path, Err: err})
			return nil
		}
		if !FileExpired(info.ModTime(), now, days) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			res.Failed = append(res.Failed, &PathError{Path: path, Err: err})
			return nil
		}
		res.Deleted = append(res.Deleted, path)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("sweep %s: %w", root, err)
	}
	return res, nil
}
