// Package version tracks the sleepsync release and decides which config files
// this build may read.
package version

import (
	"cmp"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Version is written into new config files as [sleepsync] version.
const Version = "0.3.0"

var (
	ErrNewerConfig    = errors.New("config was written by a newer sleepsync")
	ErrMajorMismatch  = errors.New("config major version differs")
	errInvalidVersion = errors.New("invalid version")
)

type SemVer struct {
	Major, Minor, Patch int
}

func (v SemVer) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ParseSemVer accepts MAJOR.MINOR.PATCH with an optional leading "v".
// Pre-release and build suffixes are rejected.
func ParseSemVer(raw string) (SemVer, error) {
	rest := strings.TrimPrefix(strings.TrimSpace(raw), "v")

	var nums [3]int
	for i := range nums {
		field := rest
		if i < len(nums)-1 {
			var ok bool
			field, rest, ok = strings.Cut(rest, ".")
			if !ok {
				return SemVer{}, fmt.Errorf("%w %q: expected MAJOR.MINOR.PATCH", errInvalidVersion, raw)
			}
		}
		n, err := strconv.Atoi(field)
		if err != nil || n < 0 || strings.HasPrefix(field, "+") {
			return SemVer{}, fmt.Errorf("%w %q: bad component %q", errInvalidVersion, raw, field)
		}
		nums[i] = n
	}

	return SemVer{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

func Current() SemVer {
	v, err := ParseSemVer(Version)
	if err != nil {
		panic(err)
	}
	return v
}

// EnsureCompatible accepts config versions of the same major that are not
// newer than this build. An empty version predates versioned configs and is
// accepted.
func EnsureCompatible(configVersion string) error {
	if strings.TrimSpace(configVersion) == "" {
		return nil
	}

	want, err := ParseSemVer(configVersion)
	if err != nil {
		return err
	}

	have := Current()
	switch {
	case want.Major != have.Major:
		return fmt.Errorf("%w: config %s, sleepsync %s", ErrMajorMismatch, want, have)
	case Compare(want, have) > 0:
		return fmt.Errorf("%w: config %s, sleepsync %s", ErrNewerConfig, want, have)
	}
	return nil
}

// Compare orders versions by major, minor, then patch.
func Compare(a, b SemVer) int {
	if c := cmp.Compare(a.Major, b.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Minor, b.Minor); c != 0 {
		return c
	}
	return cmp.Compare(a.Patch, b.Patch)
}
