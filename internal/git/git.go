/*
* Wraps access to data needed from Git.
*
* We invoke Git directly as a subprocess and parse the output rather than using
* git2go/libgit2.
 */
package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/sinclairtarget/git-loc/internal/git/cmd"
	"github.com/sinclairtarget/git-loc/internal/git/config"
	"github.com/sinclairtarget/git-loc/internal/git/revision"
)

var (
	ErrNoProjectDir  = errors.New("project directory does not exist")
	ErrNotRepository = errors.New("not a git repository")
	ErrNoCommits     = errors.New("repository has no commits")
)

type Options struct {
	IgnoreWhitespace bool
	UseIgnoreRevs    bool
}

// Opens the repository containing dir, pinned to the commit HEAD points at.
//
// Everything read through the returned Repository reflects that commit, even
// if HEAD moves while we work.
func Open(ctx context.Context, dir string, opts Options) (_ *Repository, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("could not open repository at %q: %w", dir, err)
		}
	}()

	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoProjectDir
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: not a directory", ErrNoProjectDir)
	}

	root, err := topLevel(ctx, dir)
	if err != nil {
		return nil, err
	}

	head, err := resolveHead(ctx, root)
	if err != nil {
		return nil, err
	}

	id, err := rootCommit(ctx, root, head)
	if err != nil {
		return nil, err
	}

	files, err := config.DetectSupplementalFiles(ctx, root)
	if err != nil {
		return nil, err
	}

	blameOpts := cmd.BlameOpts{IgnoreWhitespace: opts.IgnoreWhitespace}
	if opts.UseIgnoreRevs {
		if files.HasIgnoreRevs() {
			blameOpts.IgnoreRevsFile = files.IgnoreRevsPath
		} else {
			logger().Debug("use_ignore_revs set but no ignore revs file found")
		}
	}

	logger().Debug("opened repository", "root", root, "id", id, "head", head)

	return &Repository{
		Root:      root,
		id:        id,
		head:      head,
		files:     files,
		blameOpts: blameOpts,
	}, nil
}

func topLevel(ctx context.Context, dir string) (string, error) {
	subprocess, err := cmd.RunRevParseTopLevel(ctx, dir)
	if err != nil {
		return "", err
	}

	root, err := subprocess.StdoutText()
	if err != nil {
		return "", err
	}

	err = subprocess.Wait()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotRepository, err)
	}

	return root, nil
}

func resolveHead(ctx context.Context, root string) (string, error) {
	subprocess, err := cmd.RunRevParse(
		ctx,
		root,
		[]string{"--verify", "--quiet", "HEAD^{commit}"},
	)
	if err != nil {
		return "", err
	}

	head, err := subprocess.StdoutText()
	if err != nil {
		return "", err
	}

	err = subprocess.Wait()
	if err != nil {
		return "", ErrNoCommits
	}

	if !revision.IsFullHash(head) {
		return "", fmt.Errorf("unexpected output from git rev-parse: %q", head)
	}

	return head, nil
}

// The project identity: the root commit of history. When history has more
// than one root (e.g. unrelated histories were merged) we take the smallest
// hash so the choice is stable.
func rootCommit(ctx context.Context, root string, head string) (string, error) {
	subprocess, err := cmd.RunRevListRoots(ctx, root, head)
	if err != nil {
		return "", err
	}

	lines, finish := subprocess.StdoutLines()

	var roots []string
	for line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			roots = append(roots, line)
		}
	}

	err = finish()
	if err != nil {
		return "", err
	}

	err = subprocess.Wait()
	if err != nil {
		return "", err
	}

	if len(roots) == 0 {
		return "", ErrNoCommits
	}

	if len(roots) > 1 {
		logger().Debug("history has multiple roots", "count", len(roots))
	}

	return slices.Min(roots), nil
}
