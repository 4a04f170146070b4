package digest

import (
	"strings"
	"testing"
)

func TestParseSumNormalizesCase(t *testing.T) {
	t.Parallel()

	raw := strings.Repeat("AB", 32)

	v, err := ParseSum(raw)
	if err != nil {
		t.Fatalf("ParseSum returned error: %v", err)
	}
	if got, want := v.String(), strings.Repeat("ab", 32); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestParseSumRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	invalid := []string{
		"",
		"abcd",
		strings.Repeat("a", 63),
		strings.Repeat("a", 65),
		strings.Repeat("g", 64),
	}

	for _, raw := range invalid {
		if _, err := ParseSum(raw); err == nil {
			t.Fatalf("expected parse error for %q", raw)
		}
	}
}

func TestShort(t *testing.T) {
	t.Parallel()

	sum := Sum(strings.Repeat("0123456789", 6) + "abcd")
	if got := sum.Short(); got != "012345678901" {
		t.Fatalf("Short() = %q", got)
	}
	if got := Sum("abc").Short(); got != "abc" {
		t.Fatalf("Short() on short sum = %q", got)
	}
}
