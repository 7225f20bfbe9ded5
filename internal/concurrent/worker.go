package concurrent

import (
	"context"
	"slices"

	"github.com/sinclairtarget/git-loc/internal/authors"
	"github.com/sinclairtarget/git-loc/internal/tally"
)

func tallyFile(
	ctx context.Context,
	src Source,
	path string,
	aliases authors.Table,
) (tally.Counts, tally.Stats, error) {
	lines, err := src.BlameFile(ctx, path)
	if err != nil {
		return nil, tally.Stats{}, err
	}

	counts, stats := tally.TallyFile(slices.Values(lines), aliases)

	if stats.Unmatched > 0 {
		logger().Warn(
			"some blame output could not be parsed and was skipped",
			"path",
			path,
			"lines",
			stats.Unmatched,
		)
	}

	logger().Debug(
		"tallied file",
		"path",
		path,
		"counted",
		stats.Counted,
		"blank",
		stats.Blank,
	)

	return counts, stats, nil
}
