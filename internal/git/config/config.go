/*
* Finds the files outside .gitconfig that change what git blame reports.
 */
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sinclairtarget/git-loc/internal/git/cmd"
)

func repoMailmapPath(gitRootPath string) string {
	return filepath.Join(gitRootPath, ".mailmap")
}

// Looks up a file pointed to by the mailmap.file setting in the git config.
func globalMailmapPath(ctx context.Context, gitRootPath string) (string, error) {
	subprocess, err := cmd.RunConfigGet(
		ctx,
		gitRootPath,
		[]string{"--type=path", "mailmap.file"},
	)
	if err != nil {
		return "", err
	}

	p, err := subprocess.StdoutText()
	if err != nil {
		return "", err
	}

	err = subprocess.Wait()
	if err != nil {
		var subprocessErr cmd.SubprocessErr
		if errors.As(err, &subprocessErr) {
			// git config exits 1 when the key is unset
			logger().Debug(
				"mailmap.file not set in git config",
				"exitcode",
				subprocessErr.ExitCode,
			)
			return "", nil
		}

		return "", err
	}

	return p, nil
}

// We assume the conventional location of the ignore revs file rather than
// reading blame.ignoreRevsFile, which may be given more than once.
func ignoreRevsPath(gitRootPath string) string {
	return filepath.Join(gitRootPath, ".git-blame-ignore-revs")
}

// Checks which supplemental files exist on disk.
func DetectSupplementalFiles(
	ctx context.Context,
	gitRootPath string,
) (_ SupplementalFiles, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf(
				"error while checking for supplemental configuration files: %w",
				err,
			)
		}
	}()

	var files SupplementalFiles

	files.RepoMailmapPath, err = existing(repoMailmapPath(gitRootPath))
	if err != nil {
		return files, err
	}

	mailmapPath, err := globalMailmapPath(ctx, gitRootPath)
	if err != nil {
		return files, err
	}

	if len(mailmapPath) > 0 {
		files.GlobalMailmapPath, err = existing(mailmapPath)
		if err != nil {
			return files, err
		}
	}

	files.IgnoreRevsPath, err = existing(ignoreRevsPath(gitRootPath))
	if err != nil {
		return files, err
	}

	logger().Debug(
		"detected supplemental files",
		"repo_mailmap",
		files.RepoMailmapPath,
		"global_mailmap",
		files.GlobalMailmapPath,
		"ignore_revs",
		files.IgnoreRevsPath,
	)

	return files, nil
}

// Returns path if it exists, empty string if it doesn't.
func existing(path string) (string, error) {
	_, err := os.Stat(path)
	if err == nil {
		return path, nil
	} else if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}

	return "", err
}
