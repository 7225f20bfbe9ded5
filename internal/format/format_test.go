package format_test

import (
	"testing"
	"time"

	"lukechampine.com/uint128"

	"github.com/sinclairtarget/git-loc/internal/format"
)

func TestNumber(t *testing.T) {
	tests := map[string]struct {
		n        uint128.Uint128
		expected string
	}{
		"zero":     {uint128.Zero, "0"},
		"small":    {uint128.From64(999), "999"},
		"thousand": {uint128.From64(1234567), "1,234,567"},
		"128-bit":  {uint128.New(0, 1), "18,446,744,073,709,551,616"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got := format.Number(test.n)
			if got != test.expected {
				t.Errorf("expected %q but got %q", test.expected, got)
			}
		})
	}
}

func TestAbbrev(t *testing.T) {
	if got := format.Abbrev("Alice", 10); got != "Alice" {
		t.Errorf("short string changed: %q", got)
	}

	if got := format.Abbrev("Bartholomew", 5); got != "Bart…" {
		t.Errorf("expected \"Bart…\" but got %q", got)
	}

	if got := format.Abbrev("Zoë Åberg-Ødegård", 4); got != "Zoë…" {
		t.Errorf("expected rune-aware truncation but got %q", got)
	}
}

func TestPercent(t *testing.T) {
	if got := format.Percent(uint128.From64(1), uint128.From64(4)); got != "25.0%" {
		t.Errorf("expected 25.0%% but got %q", got)
	}

	if got := format.Percent(uint128.Zero, uint128.Zero); got != "0.0%" {
		t.Errorf("expected 0.0%% but got %q", got)
	}
}

func TestDuration(t *testing.T) {
	if got := format.Duration(1234567 * time.Microsecond); got != "1.23s" {
		t.Errorf("expected 1.23s but got %q", got)
	}
}
