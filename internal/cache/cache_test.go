package cache_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"github.com/sinclairtarget/git-loc/internal/cache"
	"github.com/sinclairtarget/git-loc/internal/tally"
)

// In-memory backend that stores whatever it's given, unvalidated.
type memBackend struct {
	snapshots map[cache.Key]cache.Snapshot
	getErr    error
}

func (b *memBackend) Name() string { return "mem" }
func (b *memBackend) Open() error  { return nil }
func (b *memBackend) Close() error { return nil }

func (b *memBackend) Get(key cache.Key) (cache.Snapshot, bool, error) {
	if b.getErr != nil {
		return cache.Snapshot{}, false, b.getErr
	}
	s, ok := b.snapshots[key]
	return s, ok, nil
}

func (b *memBackend) Put(s cache.Snapshot) error {
	b.snapshots[s.Key()] = s
	return nil
}

func (b *memBackend) Clear(projectID string) error {
	for key := range b.snapshots {
		if key.ProjectID == projectID {
			delete(b.snapshots, key)
		}
	}
	return nil
}

func newMem() *memBackend {
	return &memBackend{snapshots: map[cache.Key]cache.Snapshot{}}
}

var key = cache.Key{ProjectID: "root", ConfigHash: "variant"}

func TestNewSnapshotCopiesFiles(t *testing.T) {
	files := map[string]tally.Counts{"a": {"Alice": uint128.From64(1)}}
	s := cache.NewSnapshot(key, "c1", files)
	files["b"] = tally.Counts{}

	assert.Equal(t, cache.FormatVersion, s.FormatVersion)
	assert.Equal(t, key, s.Key())
	assert.Len(t, s.Files, 1)
	assert.False(t, s.LastUpdated.IsZero())
}

func TestCacheRoundTrip(t *testing.T) {
	c := cache.NewCache(newMem())

	_, ok, err := c.Get(key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(cache.NewSnapshot(key, "c1", nil)))

	s, ok, err := c.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "c1", s.Commit)
	assert.NotNil(t, s.Files)

	require.NoError(t, c.Clear(key.ProjectID))
	_, ok, err = c.Get(key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheRejectsBadSnapshots(t *testing.T) {
	tests := map[string]struct {
		mutate   func(s *cache.Snapshot)
		expected error
	}{
		"old format": {
			mutate:   func(s *cache.Snapshot) { s.FormatVersion = cache.FormatVersion - 1 },
			expected: cache.ErrFormatVersion,
		},
		"wrong key": {
			mutate:   func(s *cache.Snapshot) { s.ConfigHash = "other" },
			expected: cache.ErrCorrupt,
		},
		"no commit": {
			mutate:   func(s *cache.Snapshot) { s.Commit = "" },
			expected: cache.ErrCorrupt,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			mem := newMem()
			s := cache.NewSnapshot(key, "c1", nil)
			test.mutate(&s)
			mem.snapshots[key] = s

			_, ok, err := cache.NewCache(mem).Get(key)
			assert.False(t, ok)
			assert.ErrorIs(t, err, test.expected)
		})
	}
}

func TestCacheWrapsBackendErrors(t *testing.T) {
	boom := errors.New("boom")
	mem := newMem()
	mem.getErr = boom

	_, _, err := cache.NewCache(mem).Get(key)
	assert.ErrorIs(t, err, boom)
}

func TestStorageDir(t *testing.T) {
	dir, err := cache.StorageDir(t.TempDir(), "bolt")
	require.NoError(t, err)
	assert.DirExists(t, dir)
}
