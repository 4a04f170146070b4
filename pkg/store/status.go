package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/olimci/sleepsync/pkg/runlog"
	"github.com/olimci/sleepsync/pkg/store/config"
	"github.com/olimci/sleepsync/pkg/store/ledger"
)

type StatusSnapshot struct {
	Root        string
	ConfigPath  string
	Config      config.Config
	LedgerPath  string
	LedgerDays  []LedgerDayStatus
	LedgerTotal int
	Expired     int // entries the next run will drop
	Logs        []LogStatus
}

type LedgerDayStatus struct {
	Date  time.Time
	Count int
}

type LogStatus struct {
	Name    string
	Path    string
	Size    int64
	Present bool
}

// Status summarizes the store without modifying anything.
func (s Store) Status(now time.Time) (StatusSnapshot, error) {
	if !s.IsInstalled() {
		return StatusSnapshot{}, ErrNotInstalled
	}

	cfg, err := s.LoadConfig()
	if err != nil {
		return StatusSnapshot{}, err
	}

	snapshot := StatusSnapshot{
		Root:       s.Root,
		ConfigPath: s.ConfigPath(),
		Config:     cfg,
		LedgerPath: LedgerPath(cfg),
	}

	entries, err := ledger.Open(snapshot.LedgerPath).Entries()
	if err != nil {
		return StatusSnapshot{}, err
	}

	counts := make(map[time.Time]int, len(entries))
	for _, e := range entries {
		if ledger.Expired(e.Date, now) {
			snapshot.Expired++
			continue
		}
		counts[e.Date]++
	}
	for date, count := range counts {
		snapshot.LedgerDays = append(snapshot.LedgerDays, LedgerDayStatus{Date: date, Count: count})
		snapshot.LedgerTotal += count
	}
	sort.Slice(snapshot.LedgerDays, func(i, j int) bool {
		return snapshot.LedgerDays[i].Date.After(snapshot.LedgerDays[j].Date)
	})

	for _, name := range []string{runlog.SuccessFile, runlog.ErrorFile, filepath.Base(snapshot.LedgerPath)} {
		path := filepath.Join(cfg.Paths.LogDir, name)
		item := LogStatus{Name: name, Path: path}

		info, err := os.Stat(path)
		switch {
		case err == nil:
			item.Present = true
			item.Size = info.Size()
		case errors.Is(err, os.ErrNotExist):
		default:
			return StatusSnapshot{}, fmt.Errorf("stat %s: %w", path, err)
		}
		snapshot.Logs = append(snapshot.Logs, item)
	}

	return snapshot, nil
}
