package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/olimci/sleepsync/pkg/flashair"
	"github.com/olimci/sleepsync/pkg/retention"
)

type Category int

const (
	CategoryDatalog Category = iota
	CategorySettings
	CategoryCritical
)

func (c Category) String() string {
	switch c {
	case CategoryDatalog:
		return "datalog"
	case CategorySettings:
		return "settings"
	case CategoryCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// RequiredFile is a card path the run must download.
type RequiredFile struct {
	Remote   string
	Category Category
}

// Select computes the required-file set for now: the datalog folders of today
// and yesterday, everything under the settings folder, then the critical
// files. Card listing order is kept within each group.
func (p *Pipeline) Select(ctx context.Context, now time.Time) ([]RequiredFile, error) {
	var out []RequiredFile
	add := func(paths []string, cat Category) {
		for _, path := range paths {
			out = append(out, RequiredFile{Remote: path, Category: cat})
		}
	}
	onError := func(dir string, err error) {
		terr := &TransientError{Op: "list", Path: dir, Err: err}
		p.journal.Error(ctx, stepListing, "Failed to "+terr.Error())
	}

	for _, day := range []time.Time{now, now.AddDate(0, 0, -1)} {
		dir := flashair.JoinPath(p.opts.DatalogDir, retention.FolderName(day))
		files, err := flashair.Walk(ctx, p.remote, dir, onError)
		if err != nil {
			onError(dir, err)
			continue
		}
		add(files, CategoryDatalog)
	}

	settings, err := flashair.Walk(ctx, p.remote, p.opts.SettingsDir, onError)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrSettingsUnavailable, p.opts.SettingsDir, err)
	}
	add(settings, CategorySettings)
	add(p.opts.CriticalFiles, CategoryCritical)

	return out, nil
}
