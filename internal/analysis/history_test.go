package analysis_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinclairtarget/git-loc/internal/analysis"
	"github.com/sinclairtarget/git-loc/internal/cache"
	"github.com/sinclairtarget/git-loc/internal/git"
	"github.com/sinclairtarget/git-loc/internal/repotest"
)

// Runs the analysis at the repository's current HEAD.
func analyze(t *testing.T, dir string, c cache.Cache) analysis.Report {
	t.Helper()

	repo, err := git.Open(context.Background(), dir, git.Options{})
	require.NoError(t, err)

	a := analysis.Analyzer{
		Repo:       repo,
		Cache:      c,
		ConfigHash: "variant",
		Workers:    2,
	}

	report, err := a.Run(context.Background())
	require.NoError(t, err)
	return report
}

// The cached result must always match what a run without a cache finds.
func assertMatchesFullRun(t *testing.T, dir string, c cache.Cache) analysis.Report {
	t.Helper()

	cached := analyze(t, dir, c)
	full := analyze(t, dir, noCache())
	assert.Equal(t, totals(full.Counts), totals(cached.Counts))
	return cached
}

func TestIncrementalMatchesFullRun(t *testing.T) {
	tests := map[string]struct {
		after    func(repo *repotest.Repo)
		expected map[string]string
	}{
		"file changed": {
			after: func(repo *repotest.Repo) {
				repo.Commit("Bob", map[string]string{"a.txt": "hello\nthere\n"})
			},
			expected: map[string]string{"Alice": "2", "Bob": "1"},
		},
		"file changed and reverted": {
			after: func(repo *repotest.Repo) {
				repo.Commit("Bob", map[string]string{"a.txt": "bye\n"})
				repo.Commit("Carol", map[string]string{"a.txt": "hello\n"})
			},
			expected: map[string]string{"Alice": "1", "Carol": "1"},
		},
		"head amended": {
			after: func(repo *repotest.Repo) {
				repo.Amend("Dave")
			},
			expected: map[string]string{"Alice": "1", "Dave": "1"},
		},
		"head reset": {
			after: func(repo *repotest.Repo) {
				repo.Git("reset", "-q", "--hard", "HEAD~1")
				repo.Commit("Erin", map[string]string{"b.txt": "other\n"})
			},
			expected: map[string]string{"Alice": "1", "Erin": "1"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			repo := repotest.New(t)
			repo.Commit("Alice", map[string]string{"a.txt": "hello\n"})
			repo.Commit("Alice", map[string]string{"b.txt": "world\n"})

			c := jsonCache(t)
			first := analyze(t, repo.Dir, c)
			require.Equal(t, map[string]string{"Alice": "2"}, totals(first.Counts))

			test.after(repo)

			report := assertMatchesFullRun(t, repo.Dir, c)
			assert.Equal(t, test.expected, totals(report.Counts))
		})
	}
}

func TestIncrementalReusesUntouchedFiles(t *testing.T) {
	repo := repotest.New(t)
	repo.Commit("Alice", map[string]string{"a.txt": "hello\n", "b.txt": "world\n"})

	c := jsonCache(t)
	analyze(t, repo.Dir, c)

	repo.Commit("Bob", map[string]string{"b.txt": "world\nagain\n"})

	report := assertMatchesFullRun(t, repo.Dir, c)
	assert.Equal(t, 1, report.Reused)
	assert.Equal(t, 1, report.Blamed)
}
