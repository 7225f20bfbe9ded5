package tally

import (
	"iter"

	"github.com/sinclairtarget/git-loc/internal/authors"
	"github.com/sinclairtarget/git-loc/internal/blame"
)

// Tallies the attribution output for a single file.
//
// Every well-formed, non-blank line adds one to the count of its normalized
// author. Lines that don't parse are skipped and only show up in Stats.
func TallyFile(
	lines iter.Seq[string],
	aliases authors.Table,
) (Counts, Stats) {
	counts := Counts{}
	var stats Stats

	for raw := range lines {
		stats.Lines += 1

		line, ok := blame.ParseLine(raw)
		if !ok {
			stats.Unmatched += 1
			continue
		}

		if line.IsBlank() {
			stats.Blank += 1
			continue
		}

		counts.inc(aliases.Normalize(line.Author))
		stats.Counted += 1
	}

	return counts, stats
}
