package backends_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"lukechampine.com/uint128"

	"github.com/sinclairtarget/git-loc/internal/cache"
	"github.com/sinclairtarget/git-loc/internal/cache/backends"
	"github.com/sinclairtarget/git-loc/internal/tally"
)

const projectID = "9e9ea7662b1001d860471a4cece5e2f1de8062fb"

var allBackends = []string{
	backends.BoltBackendName,
	backends.SQLiteBackendName,
	backends.GobBackendName,
	backends.JSONBackendName,
}

func openBackend(t *testing.T, name string, maxVariants int) cache.Backend {
	t.Helper()

	b, err := backends.New(
		name,
		backends.Options{Dir: t.TempDir(), MaxVariants: maxVariants},
	)
	if err != nil {
		t.Fatalf("could not create backend: %v", err)
	}

	err = b.Open()
	if err != nil {
		t.Fatalf("could not open cache: %v", err)
	}
	t.Cleanup(func() {
		if err := b.Close(); err != nil {
			t.Errorf("could not close cache: %v", err)
		}
	})

	return b
}

func snapshot(configHash string, commit string, updated time.Time) cache.Snapshot {
	return cache.Snapshot{
		FormatVersion: cache.FormatVersion,
		ProjectID:     projectID,
		ConfigHash:    configHash,
		Commit:        commit,
		LastUpdated:   updated,
		Files: map[string]tally.Counts{
			"a.txt": {
				"Alice":  uint128.From64(2),
				"Robert": uint128.From64(1),
			},
			"big.txt": {
				"Carol": uint128.New(7, 1), // Beyond 64 bits
			},
			"blank.txt": {},
		},
	}
}

var snapshotOpts = cmp.Options{
	cmpopts.EquateEmpty(),
}

func TestPutGetClear(t *testing.T) {
	for _, name := range allBackends {
		t.Run(name, func(t *testing.T) {
			b := openBackend(t, name, 4)

			s := snapshot("aaaa", "c1", time.Date(2025, 1, 31, 16, 35, 26, 0, time.UTC))

			// -- Miss --
			_, ok, err := b.Get(s.Key())
			if err != nil {
				t.Fatalf("get on empty cache failed: %v", err)
			}
			if ok {
				t.Fatal("expected miss on empty cache")
			}

			// -- Put / Get --
			if err := b.Put(s); err != nil {
				t.Fatalf("put failed: %v", err)
			}

			got, ok, err := b.Get(s.Key())
			if err != nil {
				t.Fatalf("get failed: %v", err)
			}
			if !ok {
				t.Fatal("expected hit after put")
			}

			if diff := cmp.Diff(s, got, snapshotOpts); diff != "" {
				t.Errorf("snapshot is wrong:\n%s", diff)
			}

			// -- Other variant misses --
			_, ok, err = b.Get(cache.Key{ProjectID: projectID, ConfigHash: "bbbb"})
			if err != nil {
				t.Fatalf("get failed: %v", err)
			}
			if ok {
				t.Error("expected miss for a different variant")
			}

			// -- Clear --
			if err := b.Clear(projectID); err != nil {
				t.Fatalf("clear failed: %v", err)
			}

			_, ok, err = b.Get(s.Key())
			if err != nil {
				t.Fatalf("get after clear failed: %v", err)
			}
			if ok {
				t.Error("expected miss after clear")
			}

			// Clearing twice is fine
			if err := b.Clear(projectID); err != nil {
				t.Errorf("second clear failed: %v", err)
			}
		})
	}
}

func TestPutReplaces(t *testing.T) {
	for _, name := range allBackends {
		t.Run(name, func(t *testing.T) {
			b := openBackend(t, name, 4)

			start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
			first := snapshot("aaaa", "c1", start)
			second := snapshot("aaaa", "c2", start.Add(time.Hour))
			delete(second.Files, "a.txt")

			if err := b.Put(first); err != nil {
				t.Fatal(err)
			}
			if err := b.Put(second); err != nil {
				t.Fatal(err)
			}

			got, ok, err := b.Get(second.Key())
			if err != nil || !ok {
				t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
			}

			if diff := cmp.Diff(second, got, snapshotOpts); diff != "" {
				t.Errorf("snapshot is wrong:\n%s", diff)
			}
		})
	}
}

func TestEviction(t *testing.T) {
	for _, name := range allBackends {
		t.Run(name, func(t *testing.T) {
			b := openBackend(t, name, 2)

			start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
			hashes := []string{"cccc", "aaaa", "bbbb"}
			for i, hash := range hashes {
				s := snapshot(hash, "c1", start.Add(time.Duration(i)*time.Hour))
				if err := b.Put(s); err != nil {
					t.Fatalf("put %s failed: %v", hash, err)
				}
			}

			expected := map[string]bool{"cccc": false, "aaaa": true, "bbbb": true}
			for hash, present := range expected {
				_, ok, err := b.Get(cache.Key{ProjectID: projectID, ConfigHash: hash})
				if err != nil {
					t.Fatalf("get %s failed: %v", hash, err)
				}
				if ok != present {
					t.Errorf("variant %s: expected present=%v, got %v", hash, present, ok)
				}
			}
		})
	}
}

func TestProjectsAreSeparate(t *testing.T) {
	for _, name := range allBackends {
		t.Run(name, func(t *testing.T) {
			b := openBackend(t, name, 1)

			s := snapshot("aaaa", "c1", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
			other := s
			other.ProjectID = "0000000000000000000000000000000000000000"

			if err := b.Put(s); err != nil {
				t.Fatal(err)
			}
			if err := b.Put(other); err != nil {
				t.Fatal(err)
			}

			if err := b.Clear(other.ProjectID); err != nil {
				t.Fatal(err)
			}

			_, ok, err := b.Get(s.Key())
			if err != nil || !ok {
				t.Errorf("expected first project to survive, got ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestNoopBackend(t *testing.T) {
	b := openBackend(t, backends.NoopBackendName, 1)

	s := snapshot("aaaa", "c1", time.Now())
	if err := b.Put(s); err != nil {
		t.Fatal(err)
	}

	_, ok, err := b.Get(s.Key())
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("noop backend should never hit")
	}
}

func TestUnknownBackend(t *testing.T) {
	_, err := backends.New("redis", backends.Options{Dir: t.TempDir(), MaxVariants: 1})
	if err == nil {
		t.Error("expected error for unknown backend")
	}
}
