/*
* Utility functions for formatting output.
 */
package format

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"lukechampine.com/uint128"
)

// Print string with max length, truncating with ellipsis.
func Abbrev(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	return string(runes[:max-1]) + "…"
}

// Line count with thousands separators, e.g. 1,234,567.
func Number(n uint128.Uint128) string {
	return humanize.BigComma(n.Big())
}

// Share of total as a percentage with one decimal place.
func Percent(n uint128.Uint128, total uint128.Uint128) string {
	if total == uint128.Zero {
		return "0.0%"
	}

	num, _ := n.Big().Float64()
	denom, _ := total.Big().Float64()
	return fmt.Sprintf("%.1f%%", num/denom*100)
}

// Elapsed time rounded for display.
func Duration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}

	return d.Round(10 * time.Millisecond).String()
}
