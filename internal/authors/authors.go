// Maps raw author names from git blame to canonical names.
package authors

import "fmt"

// An entry in the alias table. Blame lines whose author token equals Author
// are counted under MapTo instead.
type Alias struct {
	Author string `mapstructure:"author" yaml:"author"`
	MapTo  string `mapstructure:"map_to" yaml:"map_to"`
}

func (a Alias) String() string {
	return fmt.Sprintf("%q -> %q", a.Author, a.MapTo)
}

// Ordered alias table. When an author appears more than once the first entry
// wins.
type Table []Alias

// Returns the canonical name for the given author token.
//
// Matching is byte-exact and case-sensitive. Unmatched tokens pass through
// unchanged.
func (t Table) Normalize(author string) string {
	for _, alias := range t {
		if alias.Author == author {
			return alias.MapTo
		}
	}

	return author
}

// Returns the author keys that appear more than once, in table order.
//
// Only the first occurrence of a duplicated key is ever used by Normalize.
func (t Table) Duplicates() []string {
	seen := map[string]int{}
	dups := []string{}

	for _, alias := range t {
		seen[alias.Author] += 1
		if seen[alias.Author] == 2 {
			dups = append(dups, alias.Author)
		}
	}

	return dups
}
