// Handles summations of attributed lines per author.
package tally

import (
	"maps"
	"slices"
	"strings"

	"lukechampine.com/uint128"
)

// Number of attributed lines per canonical author name.
//
// A Counts value produced for one file is never mutated after it is returned;
// combining tallies always allocates a new map.
type Counts map[string]uint128.Uint128

func (c Counts) inc(author string) {
	c[author] = c[author].Add64(1)
}

// Sum of all counts in the tally.
func (c Counts) Total() uint128.Uint128 {
	total := uint128.Zero
	for _, n := range c {
		total = total.Add(n)
	}

	return total
}

func (c Counts) Clone() Counts {
	return maps.Clone(c)
}

// Point-wise sum of two tallies. Neither input is modified.
//
// An author missing from one side contributes zero from that side, so the
// operation is commutative and associative with the empty tally as identity.
func (a Counts) Combine(b Counts) Counts {
	out := make(Counts, max(len(a), len(b)))
	for author, n := range a {
		out[author] = n
	}

	for author, n := range b {
		out[author] = out[author].Add(n)
	}

	return out
}

// Point-wise sum of any number of tallies. Returns an empty (non-nil) tally
// when given none.
func Sum(tallies ...Counts) Counts {
	out := Counts{}
	for _, t := range tallies {
		out = out.Combine(t)
	}

	return out
}

// Diagnostic counters describing how the lines of attribution output were
// handled.
type Stats struct {
	Lines     int // Raw lines seen
	Counted   int // Lines attributed to an author
	Blank     int // Well-formed lines with whitespace-only content
	Unmatched int // Lines that did not look like blame output at all
}

func (a Stats) Combine(b Stats) Stats {
	return Stats{
		Lines:     a.Lines + b.Lines,
		Counted:   a.Counted + b.Counted,
		Blank:     a.Blank + b.Blank,
		Unmatched: a.Unmatched + b.Unmatched,
	}
}

// Line count for one author, ready for display.
type FinalTally struct {
	Author string
	Lines  uint128.Uint128
}

// Orders by line count, breaking ties by author name in reverse so that a
// descending sort lists names alphabetically.
func (a FinalTally) Compare(b FinalTally) int {
	if c := a.Lines.Cmp(b.Lines); c != 0 {
		return c
	}

	return -strings.Compare(a.Author, b.Author)
}

// Returns the tallies sorted by line count, most lines first.
func Rank(counts Counts) []FinalTally {
	final := make([]FinalTally, 0, len(counts))
	for author, n := range counts {
		final = append(final, FinalTally{Author: author, Lines: n})
	}

	slices.SortFunc(final, func(a, b FinalTally) int {
		return -a.Compare(b)
	})
	return final
}
