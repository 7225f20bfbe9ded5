package revision

import (
	"regexp"
)

// Length of the abbreviated hashes we print.
const ShortLen = 8

var commitHashRegexp *regexp.Regexp

func init() {
	commitHashRegexp = regexp.MustCompile(`^\^?[a-f0-9]+$`)
}

// Returns true if this is a (full-length) Git revision hash, false otherwise.
//
// We also need to handle a hash with "^" in front, as printed for boundary
// commits.
func IsFullHash(s string) bool {
	matched := commitHashRegexp.MatchString(s)
	return matched && (len(s) == 40 || len(s) == 41)
}

// Abbreviates a full hash for display.
func Short(hash string) string {
	if len(hash) <= ShortLen {
		return hash
	}

	return hash[:ShortLen]
}
