package config

import (
	"fmt"
	"hash/fnv"
	"io"

	"github.com/sinclairtarget/git-loc/internal/authors"
	"github.com/sinclairtarget/git-loc/internal/blame"
)

// The parts of a configuration that change analysis results. Two runs with
// equal variants over the same commit produce the same tallies.
type Variant struct {
	Blacklist        []string
	Aliases          []authors.Alias
	IgnoreWhitespace bool
	UseIgnoreRevs    bool
}

func (c *Config) Variant() Variant {
	return Variant{
		Blacklist:        c.ProjectFiles.Blacklist,
		Aliases:          c.AuthorMapping,
		IgnoreWhitespace: c.Blame.IgnoreWhitespace,
		UseIgnoreRevs:    c.Blame.UseIgnoreRevs,
	}
}

// Hex FNV-64a digest of the variant, the blame grammar version and any extra
// inputs (e.g. the cache format version or mailmap contents).
func (v Variant) Hash(extra ...string) string {
	h := fnv.New64a()

	// Length prefixes keep ["ab", "c"] and ["a", "bc"] apart.
	field := func(w io.Writer, label string, value string) {
		fmt.Fprintf(w, "%s:%d:%s;", label, len(value), value)
	}

	field(h, "grammar", fmt.Sprint(blame.GrammarVersion))

	for _, pattern := range v.Blacklist {
		field(h, "blacklist", pattern)
	}

	for _, alias := range v.Aliases {
		field(h, "author", alias.Author)
		field(h, "map_to", alias.MapTo)
	}

	field(h, "ignore_whitespace", fmt.Sprint(v.IgnoreWhitespace))
	field(h, "use_ignore_revs", fmt.Sprint(v.UseIgnoreRevs))

	for _, e := range extra {
		field(h, "extra", e)
	}

	return fmt.Sprintf("%016x", h.Sum64())
}
