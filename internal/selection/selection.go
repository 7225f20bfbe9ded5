// Chooses which tracked files get analyzed.
package selection

import (
	"fmt"
	"regexp"
)

// Patterns that exclude paths from analysis.
type Blacklist []*regexp.Regexp

// Compiles the given patterns. Patterns use Go regexp syntax and are matched
// anywhere in the path unless anchored.
func Compile(patterns []string) (Blacklist, error) {
	blacklist := make(Blacklist, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("bad blacklist pattern %q: %w", p, err)
		}

		blacklist = append(blacklist, re)
	}

	return blacklist, nil
}

// Whether the path matches any pattern in the blacklist.
func (b Blacklist) Excludes(path string) bool {
	for _, re := range b {
		if re.MatchString(path) {
			return true
		}
	}

	return false
}

func (b Blacklist) Patterns() []string {
	patterns := make([]string, 0, len(b))
	for _, re := range b {
		patterns = append(patterns, re.String())
	}

	return patterns
}

// Returns the paths not excluded by the blacklist, in their original order.
func Select(paths []string, blacklist Blacklist) []string {
	selected := make([]string, 0, len(paths))
	for _, path := range paths {
		if !blacklist.Excludes(path) {
			selected = append(selected, path)
		}
	}

	return selected
}
