package digest

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	AlgorithmSHA256 = "sha256"

	// sumLength is the hex length of a sha256 sum.
	sumLength = 64
)

// Sum is a lowercase hex encoded sha256 content hash.
type Sum string

func (s Sum) String() string {
	return string(s)
}

func (s Sum) IsZero() bool {
	return s == ""
}

// Short returns the first 12 characters of the sum for log lines.
func (s Sum) Short() string {
	if len(s) <= 12 {
		return string(s)
	}
	return string(s[:12])
}

// ParseSum validates raw as a hex encoded sha256 sum.
func ParseSum(raw string) (Sum, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return "", fmt.Errorf("digest sum is required")
	}
	if len(value) != sumLength {
		return "", fmt.Errorf("invalid %s sum %q (expected %d hex characters)", AlgorithmSHA256, raw, sumLength)
	}
	if _, err := hex.DecodeString(value); err != nil {
		return "", fmt.Errorf("invalid %s sum %q: %w", AlgorithmSHA256, raw, err)
	}

	return Sum(value), nil
}
