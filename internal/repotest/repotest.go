// Helpers for tests that need a real git repository.
package repotest

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// A throwaway repository in a temporary directory.
type Repo struct {
	t   *testing.T
	Dir string
}

// Creates an empty repository. Skips the test if git is not installed.
func New(t *testing.T) *Repo {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found on PATH")
	}

	r := &Repo{t: t, Dir: t.TempDir()}
	r.Git("init", "-q")
	r.Git("config", "commit.gpgsign", "false")
	return r
}

// Runs git in the repository and returns trimmed stdout. Fails the test on
// error.
func (r *Repo) Git(args ...string) string {
	r.t.Helper()

	out, err := r.run("Test", args...)
	if err != nil {
		r.t.Fatalf("%v", err)
	}

	return out
}

func (r *Repo) run(author string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir

	// Isolate from the user's and system git config.
	cmd.Env = append(
		os.Environ(),
		"GIT_CONFIG_NOSYSTEM=1",
		"GIT_CONFIG_GLOBAL="+os.DevNull,
		"HOME="+r.Dir,
		"GIT_AUTHOR_NAME="+author,
		"GIT_AUTHOR_EMAIL="+strings.ToLower(strings.ReplaceAll(author, " ", "."))+"@example.com",
		"GIT_COMMITTER_NAME="+author,
		"GIT_COMMITTER_EMAIL=committer@example.com",
		"GIT_AUTHOR_DATE=2024-01-02T03:04:05Z",
		"GIT_COMMITTER_DATE=2024-01-02T03:04:05Z",
	)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w\n%s", strings.Join(args, " "), err, out)
	}

	return strings.TrimSpace(string(out)), nil
}

// Writes the given files (path to contents) and commits them all as author.
// Returns the new commit's hash.
func (r *Repo) Commit(author string, files map[string]string) string {
	r.t.Helper()

	for path, contents := range files {
		full := filepath.Join(r.Dir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			r.t.Fatalf("could not create dir for %s: %v", path, err)
		}

		if err := os.WriteFile(full, []byte(contents), 0o644); err != nil {
			r.t.Fatalf("could not write %s: %v", path, err)
		}
	}

	if _, err := r.run(author, "add", "-A"); err != nil {
		r.t.Fatalf("%v", err)
	}

	if _, err := r.run(author, "commit", "-q", "-m", "commit by "+author); err != nil {
		r.t.Fatalf("%v", err)
	}

	return r.Git("rev-parse", "HEAD")
}

// Removes the given paths and commits as author.
func (r *Repo) Remove(author string, paths ...string) string {
	r.t.Helper()

	args := append([]string{"rm", "-q"}, paths...)
	if _, err := r.run(author, args...); err != nil {
		r.t.Fatalf("%v", err)
	}

	if _, err := r.run(author, "commit", "-q", "-m", "remove files"); err != nil {
		r.t.Fatalf("%v", err)
	}

	return r.Git("rev-parse", "HEAD")
}

// Rewrites the last commit so that author is its author. The tree is left
// as it is. Returns the new commit's hash.
func (r *Repo) Amend(author string) string {
	r.t.Helper()

	_, err := r.run(author, "commit", "-q", "--amend", "--no-edit", "--reset-author")
	if err != nil {
		r.t.Fatalf("%v", err)
	}

	return r.Git("rev-parse", "HEAD")
}
