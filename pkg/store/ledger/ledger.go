// Package ledger persists the content hashes already accepted by the analytics
// service, one "hash,YYYY-MM-DD" line per upload.
package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/olimci/sleepsync/pkg/digest"
)

const (
	DateLayout = "2006-01-02"

	// MaxAgeDays is how long a recorded hash suppresses a re-upload. It is not
	// tied to the retention settings.
	MaxAgeDays = 7
)

// Entry is one recorded upload.
type Entry struct {
	Sum  digest.Sum
	Date time.Time // calendar date, UTC midnight
}

func (e Entry) String() string {
	return e.Sum.String() + "," + e.Date.Format(DateLayout)
}

// Set is the deduplicated view of the ledger.
type Set map[digest.Sum]struct{}

func (s Set) Has(sum digest.Sum) bool {
	_, ok := s[sum]
	return ok
}

type Ledger struct {
	path string
	now  func() time.Time
}

type Option func(*Ledger)

// WithClock overrides the clock used for expiry and recording dates.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

func Open(path string, opts ...Option) *Ledger {
	l := &Ledger{
		path: path,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) Path() string {
	return l.path
}

// Load returns the hashes recorded within the last MaxAgeDays days and
// rewrites the file without expired or malformed lines. Calling it twice in a
// row returns the same set and leaves the file unchanged.
func (l *Ledger) Load() (Set, error) {
	entries, malformed, err := l.read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Set{}, nil
		}
		return nil, err
	}

	now := l.now()

	kept := make([]Entry, 0, len(entries))
	set := make(Set, len(entries))
	for _, e := range entries {
		if Expired(e.Date, now) {
			continue
		}
		kept = append(kept, e)
		set[e.Sum] = struct{}{}
	}

	if malformed > 0 || len(kept) != len(entries) {
		if err := l.rewrite(kept); err != nil {
			return nil, err
		}
	}

	return set, nil
}

// Record appends sum with today's date. Repeated hashes are kept; Load
// collapses them.
func (l *Ledger) Record(sum digest.Sum) error {
	if sum.IsZero() {
		return fmt.Errorf("record empty digest")
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", l.path, err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", l.path, err)
	}
	defer f.Close()

	line := Entry{Sum: sum, Date: CalendarDate(l.now())}.String() + "\n"
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("append %s: %w", l.path, err)
	}
	return f.Close()
}

// Entries returns every well-formed entry without expiring anything.
func (l *Ledger) Entries() ([]Entry, error) {
	entries, _, err := l.read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return entries, nil
}

func (l *Ledger) read() ([]Entry, int, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	var (
		entries   []Entry
		malformed int
	)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		e, err := parseLine(line)
		if err != nil {
			malformed++
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", l.path, err)
	}

	return entries, malformed, nil
}

func (l *Ledger) rewrite(entries []Entry) error {
	tp := l.path + ".tmp"

	f, err := os.OpenFile(tp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", tp, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, e := range entries {
		if _, err := w.WriteString(e.String() + "\n"); err != nil {
			_ = os.Remove(tp)
			return fmt.Errorf("write %s: %w", tp, err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = os.Remove(tp)
		return fmt.Errorf("write %s: %w", tp, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tp)
		return fmt.Errorf("close %s: %w", tp, err)
	}

	if err := os.Rename(tp, l.path); err != nil {
		_ = os.Remove(tp)
		return fmt.Errorf("replace %s: %w", l.path, err)
	}
	return nil
}

func parseLine(line string) (Entry, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 2 {
		return Entry{}, fmt.Errorf("invalid ledger line %q (expected hash,date)", line)
	}

	sum, err := digest.ParseSum(parts[0])
	if err != nil {
		return Entry{}, err
	}
	date, err := time.Parse(DateLayout, strings.TrimSpace(parts[1]))
	if err != nil {
		return Entry{}, fmt.Errorf("invalid ledger date %q: %w", parts[1], err)
	}

	return Entry{Sum: sum, Date: date}, nil
}

// Expired reports whether an entry recorded on date is older than
// MaxAgeDays at now. The date counts as local midnight, so an entry from
// exactly MaxAgeDays calendar days ago has expired once that midnight has
// passed.
func Expired(date, now time.Time) bool {
	y, m, d := date.Date()
	recorded := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return recorded.Before(now.AddDate(0, 0, -MaxAgeDays))
}

// CalendarDate drops the clock part of t, keeping its local calendar date.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
