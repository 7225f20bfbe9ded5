package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sinclairtarget/git-loc/internal/git/cmd"
	"github.com/sinclairtarget/git-loc/internal/git/config"
	"github.com/sinclairtarget/git-loc/internal/git/revision"
)

type Repository struct {
	Root string

	id        string
	head      string
	files     config.SupplementalFiles
	blameOpts cmd.BlameOpts
}

// Hash of the root commit. Stays the same as the project gains commits.
func (r *Repository) ID() string {
	return r.id
}

// Full hash of the commit being analyzed.
func (r *Repository) Head() string {
	return r.head
}

func (r *Repository) SupplementalFiles() config.SupplementalFiles {
	return r.files
}

// Paths of all files tracked at rev, relative to the repository root.
//
// Only blobs are returned; submodules have nothing to blame.
func (r *Repository) TrackedFiles(ctx context.Context, rev string) (_ []string, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error listing tracked files: %w", err)
		}
	}()

	subprocess, err := cmd.RunLsTree(ctx, r.Root, rev)
	if err != nil {
		return nil, err
	}

	records, finish := subprocess.StdoutNullDelimitedLines()

	paths := []string{}
	for record := range records {
		objType, path, ok := parseLsTreeRecord(record)
		if !ok {
			logger().Warn("skipping unexpected ls-tree output", "record", record)
			continue
		}

		if objType == "blob" {
			paths = append(paths, path)
		}
	}

	err = finish()
	if err != nil {
		return nil, err
	}

	err = subprocess.Wait()
	if err != nil {
		return nil, err
	}

	return paths, nil
}

// Records look like "<mode> SP <type> SP <object> TAB <path>".
func parseLsTreeRecord(record string) (objType string, path string, ok bool) {
	meta, path, found := strings.Cut(record, "\t")
	if !found {
		return "", "", false
	}

	fields := strings.Fields(meta)
	if len(fields) != 3 {
		return "", "", false
	}

	return fields[1], path, true
}

// Raw git blame output for one file at the analyzed commit.
func (r *Repository) BlameFile(ctx context.Context, path string) (_ []string, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error blaming %q: %w", path, err)
		}
	}()

	subprocess, err := cmd.RunBlame(ctx, r.Root, r.head, path, r.blameOpts)
	if err != nil {
		return nil, err
	}

	lines, finish := subprocess.StdoutLines()

	var out []string
	for line := range lines {
		out = append(out, line)
	}

	err = finish()
	if err != nil {
		return nil, err
	}

	err = subprocess.Wait()
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Whether ancestor is reachable from rev. A commit counts as its own ancestor.
func (r *Repository) IsAncestor(
	ctx context.Context,
	ancestor string,
	rev string,
) (_ bool, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf(
				"error checking ancestry of %s: %w",
				revision.Short(ancestor),
				err,
			)
		}
	}()

	subprocess, err := cmd.RunMergeBaseIsAncestor(ctx, r.Root, ancestor, rev)
	if err != nil {
		return false, err
	}

	err = subprocess.Wait()
	if err == nil {
		return true, nil
	}

	var subprocessErr cmd.SubprocessErr
	if errors.As(err, &subprocessErr) && subprocessErr.ExitCode == 1 {
		return false, nil
	}

	return false, err
}

// Paths touched by any commit between from (exclusive) and to (inclusive).
// Deleted, added and modified files are all included, as are files that were
// changed and then changed back.
//
// from should be an ancestor of to; commits only reachable from from are not
// considered.
func (r *Repository) ChangedFiles(
	ctx context.Context,
	from string,
	to string,
) (_ []string, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf(
				"error listing changes in %s..%s: %w",
				revision.Short(from),
				revision.Short(to),
				err,
			)
		}
	}()

	subprocess, err := cmd.RunLogNames(ctx, r.Root, from, to)
	if err != nil {
		return nil, err
	}

	names, finish := subprocess.StdoutNullDelimitedLines()

	seen := map[string]bool{}
	paths := []string{}
	for name := range names {
		// Each commit's (empty) header is separated from its file list by
		// a newline.
		name = strings.TrimLeft(name, "\n")
		if name == "" || seen[name] {
			continue
		}

		seen[name] = true
		paths = append(paths, name)
	}

	err = finish()
	if err != nil {
		return nil, err
	}

	err = subprocess.Wait()
	if err != nil {
		return nil, err
	}

	return paths, nil
}
