/*
* Handles invoking Git as a subprocess.
*
* Every command takes the directory to run in. An empty dir means the current
* working directory.
 */
package cmd

import (
	"context"
	"fmt"
	"slices"
)

type BlameOpts struct {
	IgnoreWhitespace bool
	IgnoreRevsFile   string // Empty means don't pass --ignore-revs-file
}

func (o BlameOpts) ToArgs() []string {
	args := []string{}

	if o.IgnoreWhitespace {
		args = append(args, "-w")
	}

	if o.IgnoreRevsFile != "" {
		args = append(args, "--ignore-revs-file", o.IgnoreRevsFile)
	}

	return args
}

// Runs git blame on a single file at the given revision.
//
// The -f flag puts the filename on every line, which is the shape the blame
// package parses. User settings that would change that shape are overridden.
func RunBlame(
	ctx context.Context,
	dir string,
	rev string,
	path string,
	opts BlameOpts,
) (*Subprocess, error) {
	args := slices.Concat(
		[]string{
			"-c", "blame.showEmail=false",
			"-c", "blame.blankBoundary=false",
			"-c", "blame.date=iso",
			"-c", "blame.markIgnoredLines=false",
			"-c", "blame.markUnblamableLines=false",
			"blame",
			"-f",
		},
		opts.ToArgs(),
		[]string{rev, "--", path},
	)

	subprocess, err := run(ctx, dir, args)
	if err != nil {
		return nil, fmt.Errorf("failed to run git blame: %w", err)
	}

	return subprocess, nil
}

// Runs git ls-tree over the full tree of the given revision, NULL-delimited.
func RunLsTree(ctx context.Context, dir string, rev string) (*Subprocess, error) {
	args := []string{"ls-tree", "--full-tree", "-r", "-z", rev}

	subprocess, err := run(ctx, dir, args)
	if err != nil {
		return nil, fmt.Errorf("failed to run git ls-tree: %w", err)
	}

	return subprocess, nil
}

// Runs git rev-parse
func RunRevParse(ctx context.Context, dir string, args []string) (*Subprocess, error) {
	subprocess, err := run(ctx, dir, slices.Concat([]string{"rev-parse"}, args))
	if err != nil {
		return nil, fmt.Errorf("failed to run git rev-parse: %w", err)
	}

	return subprocess, nil
}

func RunRevParseTopLevel(ctx context.Context, dir string) (*Subprocess, error) {
	var args = []string{"rev-parse", "--show-toplevel"}

	subprocess, err := run(ctx, dir, args)
	if err != nil {
		return nil, fmt.Errorf("failed to run git rev-parse: %w", err)
	}

	return subprocess, nil
}

// Lists the root commits (commits without parents) reachable from rev.
func RunRevListRoots(ctx context.Context, dir string, rev string) (*Subprocess, error) {
	args := []string{"rev-list", "--max-parents=0", rev}

	subprocess, err := run(ctx, dir, args)
	if err != nil {
		return nil, fmt.Errorf("failed to run git rev-list: %w", err)
	}

	return subprocess, nil
}

// Lists every path touched by any commit reachable from to but not from
// from, NULL-delimited. Merge commits are diffed against each parent so that
// changes made while resolving a merge are listed too.
//
// Renames show up as a deletion plus an addition.
func RunLogNames(
	ctx context.Context,
	dir string,
	from string,
	to string,
) (*Subprocess, error) {
	args := []string{
		"log",
		"--format=",
		"--name-only",
		"--no-renames",
		"-m",
		"-z",
		fmt.Sprintf("%s..%s", from, to),
		"--",
	}

	subprocess, err := run(ctx, dir, args)
	if err != nil {
		return nil, fmt.Errorf("failed to run git log: %w", err)
	}

	return subprocess, nil
}

// Exits 0 when ancestor is an ancestor of (or equal to) rev, 1 when it is not.
func RunMergeBaseIsAncestor(
	ctx context.Context,
	dir string,
	ancestor string,
	rev string,
) (*Subprocess, error) {
	args := []string{"merge-base", "--is-ancestor", ancestor, rev}

	subprocess, err := run(ctx, dir, args)
	if err != nil {
		return nil, fmt.Errorf("failed to run git merge-base: %w", err)
	}

	return subprocess, nil
}

func RunConfigGet(ctx context.Context, dir string, args []string) (*Subprocess, error) {
	subprocess, err := run(
		ctx,
		dir,
		slices.Concat([]string{"config", "--get"}, args),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to run git config: %w", err)
	}

	return subprocess, nil
}
