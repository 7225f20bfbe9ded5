package main

import (
	"context"
	"fmt"

	"github.com/sinclairtarget/git-loc/internal/selection"
)

// Prints the tracked files at HEAD that survive the blacklist, one per line.
func files(ctx context.Context, configPath string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error running \"files\": %w", err)
		}
	}()

	logger().Debug("called files()", "configPath", configPath)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	repo, err := openRepo(ctx, cfg)
	if err != nil {
		return err
	}

	tracked, err := repo.TrackedFiles(ctx, repo.Head())
	if err != nil {
		return err
	}

	for _, path := range selection.Select(tracked, cfg.Blacklist()) {
		fmt.Println(path)
	}

	return nil
}
