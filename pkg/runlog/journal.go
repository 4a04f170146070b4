// Package runlog writes the success and error journals of a sync run.
package runlog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/olimci/sleepsync/pkg/logging"
)

const (
	SuccessFile = "success.log"
	ErrorFile   = "errors.log"

	TimeLayout = "2006-01-02 15:04:05.000000"
)

type Level string

const (
	LevelSuccess Level = "SUCCESS"
	LevelError   Level = "ERROR"
)

// Line is one journal record.
type Line struct {
	Time    time.Time
	Level   Level
	Step    string
	Message string
}

func (l Line) String() string {
	var b strings.Builder
	b.WriteString(l.Time.Format(TimeLayout))
	b.WriteString(" - ")
	b.WriteString(string(l.Level))
	if l.Step != "" {
		b.WriteString(" [")
		b.WriteString(l.Step)
		b.WriteString("]")
	}
	b.WriteString(": ")
	b.WriteString(l.Message)
	return b.String()
}

// Journal appends to success.log and errors.log and remembers the lines of
// the current run.
type Journal struct {
	dir    string
	log    logging.Logger
	now    func() time.Time
	lines  []Line
	errors int
}

type Option func(*Journal)

func WithClock(now func() time.Time) Option {
	return func(j *Journal) {
		j.now = now
	}
}

// Open prepares the journal in dir. Files larger than maxBytes are truncated
// to empty first.
func Open(dir string, maxBytes int64, log logging.Logger, opts ...Option) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory %s: %w", dir, err)
	}

	j := &Journal{
		dir: dir,
		log: log,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}

	for _, name := range []string{SuccessFile, ErrorFile} {
		if err := truncateOversized(filepath.Join(dir, name), maxBytes); err != nil {
			return nil, err
		}
	}
	return j, nil
}

func (j *Journal) Dir() string {
	return j.dir
}

func (j *Journal) Success(ctx context.Context, step, msg string) {
	line := j.append(ctx, LevelSuccess, step, msg)
	j.log.Info(ctx, msg, "step", step, "journal", line.Level)
}

func (j *Journal) Error(ctx context.Context, step, msg string) {
	line := j.append(ctx, LevelError, step, msg)
	j.errors++
	j.log.Error(ctx, msg, "step", step, "journal", line.Level)
}

// ErrorCount is the number of errors journaled during this run.
func (j *Journal) ErrorCount() int {
	return j.errors
}

// Lines returns this run's lines of the given level in write order.
func (j *Journal) Lines(level Level) []string {
	var out []string
	for _, l := range j.lines {
		if l.Level == level {
			out = append(out, l.String())
		}
	}
	return out
}

func (j *Journal) append(ctx context.Context, level Level, step, msg string) Line {
	line := Line{
		Time:    j.now(),
		Level:   level,
		Step:    step,
		Message: msg,
	}
	j.lines = append(j.lines, line)

	name := SuccessFile
	if level == LevelError {
		name = ErrorFile
	}
	if err := appendLine(filepath.Join(j.dir, name), line.String()); err != nil {
		j.log.Warn(ctx, "journal write failed", "file", name, "err", err)
	}
	return line
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("append %s: %w", path, err)
	}
	return f.Close()
}

func truncateOversized(path string, maxBytes int64) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if maxBytes <= 0 || info.Size() <= maxBytes {
		return nil
	}
	if err := os.Truncate(path, 0); err != nil {
		return fmt.Errorf("truncate %s: %w", path, err)
	}
	return nil
}
