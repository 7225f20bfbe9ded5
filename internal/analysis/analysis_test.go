package analysis_test

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinclairtarget/git-loc/internal/analysis"
	"github.com/sinclairtarget/git-loc/internal/authors"
	"github.com/sinclairtarget/git-loc/internal/cache"
	"github.com/sinclairtarget/git-loc/internal/cache/backends"
	"github.com/sinclairtarget/git-loc/internal/selection"
	"github.com/sinclairtarget/git-loc/internal/tally"
)

type fakeRepo struct {
	head      string
	files     map[string][]string
	changed   []string
	diffErr   error
	rewritten bool
	failing   map[string]bool

	mu     sync.Mutex
	blamed []string
}

func (r *fakeRepo) ID() string   { return "root" }
func (r *fakeRepo) Head() string { return r.head }

func (r *fakeRepo) TrackedFiles(ctx context.Context, rev string) ([]string, error) {
	paths := slices.Collect(maps.Keys(r.files))
	slices.Sort(paths)
	return paths, nil
}

func (r *fakeRepo) IsAncestor(ctx context.Context, ancestor string, rev string) (bool, error) {
	return !r.rewritten, nil
}

func (r *fakeRepo) ChangedFiles(ctx context.Context, from string, to string) ([]string, error) {
	if r.diffErr != nil {
		return nil, r.diffErr
	}
	return r.changed, nil
}

func (r *fakeRepo) BlameFile(ctx context.Context, path string) ([]string, error) {
	r.mu.Lock()
	r.blamed = append(r.blamed, path)
	r.mu.Unlock()

	if r.failing[path] {
		return nil, fmt.Errorf("blame failed for %s", path)
	}

	return r.files[path], nil
}

func (r *fakeRepo) takeBlamed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	blamed := r.blamed
	r.blamed = nil
	slices.Sort(blamed)
	return blamed
}

func line(author string, content string) string {
	return fmt.Sprintf(
		"1a2b3c4d f.txt (%s 2024-03-01 12:30:45 +0100 1) %s",
		author,
		content,
	)
}

// Scenario A
func scenarioRepo() *fakeRepo {
	return &fakeRepo{
		head: "c1",
		files: map[string][]string{
			"a.txt": {line("Alice", "one"), line("Alice", ""), line("Alice", "two")},
			"b.txt": {line("Alice", "x"), line("Bob", "y")},
		},
	}
}

var aliases = authors.Table{{Author: "Bob", MapTo: "Robert"}}

func analyzer(repo *fakeRepo, c cache.Cache) *analysis.Analyzer {
	return &analysis.Analyzer{
		Repo:       repo,
		Cache:      c,
		ConfigHash: "variant",
		Aliases:    aliases,
		Workers:    2,
	}
}

func noCache() cache.Cache {
	return cache.NewCache(backends.NoopBackend{})
}

func jsonCache(t *testing.T) cache.Cache {
	return cache.NewCache(&backends.JSONBackend{Dir: t.TempDir(), MaxVariants: 2})
}

func totals(counts tally.Counts) map[string]string {
	out := map[string]string{}
	for author, n := range counts {
		out[author] = n.String()
	}
	return out
}

func TestRunScenarioA(t *testing.T) {
	repo := scenarioRepo()

	var started int
	var done []string
	a := analyzer(repo, noCache())
	a.OnStart = func(total int) { started = total }
	a.OnFileDone = func(path string) { done = append(done, path) }

	report, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"Alice": "3", "Robert": "1"}, totals(report.Counts))
	assert.Equal(t, 2, report.Files)
	assert.Equal(t, 2, report.Blamed)
	assert.Equal(t, 0, report.Reused)
	assert.Equal(t, 1, report.Stats.Blank)
	assert.Equal(t, "c1", report.Commit)
	assert.Equal(t, 2, started)
	assert.Len(t, done, 2)
}

func TestRunEmptyProject(t *testing.T) {
	repo := &fakeRepo{head: "c1", files: map[string][]string{}}

	report, err := analyzer(repo, noCache()).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, report.Counts)
	assert.Equal(t, 0, report.Files)
}

func TestRunBlacklist(t *testing.T) {
	repo := &fakeRepo{
		head: "c1",
		files: map[string][]string{
			"generated/x.go": {line("Mallory", "x")},
			"src/y.go":       {line("Alice", "y")},
		},
	}

	blacklist, err := selection.Compile([]string{"^generated/"})
	require.NoError(t, err)

	a := analyzer(repo, noCache())
	a.Blacklist = blacklist

	report, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"Alice": "1"}, totals(report.Counts))
	assert.Equal(t, []string{"src/y.go"}, repo.takeBlamed())
}

func TestRunIncremental(t *testing.T) {
	repo := scenarioRepo()
	c := jsonCache(t)

	// -- Cold --
	first, err := analyzer(repo, c).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, repo.takeBlamed())

	// -- Same commit: nothing blamed --
	second, err := analyzer(repo, c).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, repo.takeBlamed())
	assert.Equal(t, 2, second.Reused)
	assert.Equal(t, totals(first.Counts), totals(second.Counts))

	// -- New commit: b.txt changed, c.txt added, a.txt deleted --
	repo.head = "c2"
	delete(repo.files, "a.txt")
	repo.files["b.txt"] = []string{line("Bob", "y"), line("Bob", "z")}
	repo.files["c.txt"] = []string{line("Carol", "c")}
	repo.changed = []string{"a.txt", "b.txt", "c.txt"}

	third, err := analyzer(repo, c).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b.txt", "c.txt"}, repo.takeBlamed())
	assert.Equal(
		t,
		map[string]string{"Robert": "2", "Carol": "1"},
		totals(third.Counts),
	)

	// The snapshot now reflects c2 and no longer has a.txt.
	snapshot, ok, err := c.Get(cache.Key{ProjectID: "root", ConfigHash: "variant"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "c2", snapshot.Commit)
	assert.NotContains(t, snapshot.Files, "a.txt")
	assert.Len(t, snapshot.Files, 2)
}

func TestRunVariantsAreSeparate(t *testing.T) {
	repo := scenarioRepo()
	c := jsonCache(t)

	_, err := analyzer(repo, c).Run(context.Background())
	require.NoError(t, err)
	repo.takeBlamed()

	a := analyzer(repo, c)
	a.ConfigHash = "other"
	a.Aliases = nil

	report, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, repo.takeBlamed())
	assert.Equal(t, map[string]string{"Alice": "3", "Bob": "1"}, totals(report.Counts))
}

func TestRunDiffFailureFallsBack(t *testing.T) {
	repo := scenarioRepo()
	c := jsonCache(t)

	_, err := analyzer(repo, c).Run(context.Background())
	require.NoError(t, err)
	repo.takeBlamed()

	repo.head = "c2"
	repo.diffErr = errors.New("bad object")

	report, err := analyzer(repo, c).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, repo.takeBlamed())
	assert.Equal(t, map[string]string{"Alice": "3", "Robert": "1"}, totals(report.Counts))
}

func TestRunRewrittenHistoryFallsBack(t *testing.T) {
	repo := scenarioRepo()
	c := jsonCache(t)

	_, err := analyzer(repo, c).Run(context.Background())
	require.NoError(t, err)
	repo.takeBlamed()

	repo.head = "c1-amended"
	repo.rewritten = true

	report, err := analyzer(repo, c).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, repo.takeBlamed())
	assert.Equal(t, 0, report.Reused)
}

type brokenBackend struct {
	backends.NoopBackend
}

func (b brokenBackend) Get(key cache.Key) (cache.Snapshot, bool, error) {
	return cache.Snapshot{}, false, cache.ErrCorrupt
}

func (b brokenBackend) Put(snapshot cache.Snapshot) error {
	return errors.New("disk full")
}

func TestRunCacheErrorsAreNotFatal(t *testing.T) {
	repo := scenarioRepo()

	report, err := analyzer(repo, cache.NewCache(brokenBackend{})).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Alice": "3", "Robert": "1"}, totals(report.Counts))
}

func TestRunBlameFailureIsFatal(t *testing.T) {
	repo := scenarioRepo()
	repo.failing = map[string]bool{"b.txt": true}

	_, err := analyzer(repo, noCache()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b.txt")
}
