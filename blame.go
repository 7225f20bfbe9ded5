package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/sinclairtarget/git-loc/internal/blame"
	"github.com/sinclairtarget/git-loc/internal/pretty"
	"github.com/sinclairtarget/git-loc/internal/tally"
)

// Prints each line of attribution output for a file as the parser sees it,
// followed by the per-author totals for that file. For debugging.
func blameFile(ctx context.Context, configPath string, path string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error running \"blame\": %w", err)
		}
	}()

	logger().Debug("called blameFile()", "configPath", configPath, "path", path)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	repo, err := openRepo(ctx, cfg)
	if err != nil {
		return err
	}

	lines, err := repo.BlameFile(ctx, path)
	if err != nil {
		return err
	}

	for _, raw := range lines {
		line, ok := blame.ParseLine(raw)
		if !ok {
			fmt.Println(pretty.Dim(fmt.Sprintf("(unmatched) %q", raw)))
			continue
		}

		fmt.Printf("%s -> %s\n", line, cfg.AuthorMapping.Normalize(line.Author))
	}

	counts, stats := tally.TallyFile(slices.Values(lines), cfg.AuthorMapping)

	fmt.Println()
	for _, t := range tally.Rank(counts) {
		fmt.Printf("%s: %s\n", pretty.Bold(t.Author), t.Lines)
	}
	fmt.Println(pretty.Dim(fmt.Sprintf(
		"lines: %d counted: %d blank: %d unmatched: %d",
		stats.Lines,
		stats.Counted,
		stats.Blank,
		stats.Unmatched,
	)))

	return nil
}
