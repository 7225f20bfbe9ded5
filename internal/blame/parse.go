/*
* Parses the output of `git blame -f`.
*
* Each line of output looks like this:
*
*	1a2b3c4d path/to/file.go (Jane Doe 2024-03-01 12:30:45 +0100 17) content
*
* Boundary commits are marked with a leading "^" in place of the last hash
* character. We only support this one shape of the output; lines that don't
* fit it are skipped rather than treated as errors.
 */
package blame

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Revision of the line grammar below. Bump whenever blameLineRegexp changes
// so that cached results computed with the old grammar are not reused.
const GrammarVersion = 2

const timestampLayout = "2006-01-02 15:04:05 -0700"

var blameLineRegexp *regexp.Regexp

func init() {
	blameLineRegexp = regexp.MustCompile(
		`^(\^?[0-9a-f]{7,40})\s+(\S*)\s*\((.+?)\s+(\d{4}-\d{2}-\d{2})\s+` +
			`(\d{2}:\d{2}:\d{2})\s+([+-]\d{4})\s+(\d+)\)\s(.*)$`,
	)
}

// A single line of attribution output.
type Line struct {
	Commit   string // Abbreviated, without the boundary marker
	Boundary bool
	Filename string
	Author   string // Trimmed, not yet normalized
	Time     time.Time
	LineNo   int
	Content  string // Verbatim
}

// Whether the attributed source line has no content once whitespace is
// trimmed. Blank lines are not counted toward any author.
func (l Line) IsBlank() bool {
	return strings.TrimSpace(l.Content) == ""
}

func (l Line) String() string {
	return fmt.Sprintf(
		"{ commit:%s author:%q line:%d blank:%v }",
		l.Commit,
		l.Author,
		l.LineNo,
		l.IsBlank(),
	)
}

// Parses one raw line of git blame output.
//
// Returns false if the line does not have the expected shape.
func ParseLine(raw string) (Line, bool) {
	raw = strings.TrimSuffix(raw, "\r")

	matches := blameLineRegexp.FindStringSubmatch(raw)
	if matches == nil {
		return Line{}, false
	}

	commit := matches[1]
	boundary := strings.HasPrefix(commit, "^")

	// The timestamp and line number are informational. A line that has the
	// right shape is attributed even if they don't parse.
	ts, err := time.Parse(
		timestampLayout,
		fmt.Sprintf("%s %s %s", matches[4], matches[5], matches[6]),
	)
	if err != nil {
		logger().Debug("bad timestamp in blame line", "line", raw, "err", err)
		ts = time.Time{}
	}

	lineNo, err := strconv.Atoi(matches[7])
	if err != nil {
		logger().Debug("bad line number in blame line", "line", raw, "err", err)
		lineNo = 0
	}

	return Line{
		Commit:   strings.TrimPrefix(commit, "^"),
		Boundary: boundary,
		Filename: matches[2],
		Author:   strings.TrimSpace(matches[3]),
		Time:     ts,
		LineNo:   lineNo,
		Content:  matches[8],
	}, true
}
