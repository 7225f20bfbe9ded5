/*
* Persists per-file tallies between runs so that unchanged files need not be
* blamed again.
*
* A snapshot is stored per (project, configuration variant). The project is
* identified by its root commit, so the same repository checked out in two
* places shares a cache.
 */
package cache

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/sinclairtarget/git-loc/internal/tally"
)

// Revision of the Snapshot layout. Bump when Snapshot or tally.Counts change
// shape; old snapshots are then ignored.
const FormatVersion = 1

var (
	ErrFormatVersion = errors.New("cache snapshot has unsupported format version")
	ErrCorrupt       = errors.New("cache snapshot is corrupt")
)

type Key struct {
	ProjectID  string
	ConfigHash string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.ProjectID, k.ConfigHash)
}

// Per-file tallies for one project at one commit, under one configuration
// variant.
type Snapshot struct {
	FormatVersion int
	ProjectID     string
	ConfigHash    string
	Commit        string
	LastUpdated   time.Time
	Files         map[string]tally.Counts
}

func NewSnapshot(
	key Key,
	commit string,
	files map[string]tally.Counts,
) Snapshot {
	return Snapshot{
		FormatVersion: FormatVersion,
		ProjectID:     key.ProjectID,
		ConfigHash:    key.ConfigHash,
		Commit:        commit,
		LastUpdated:   time.Now().UTC(),
		Files:         maps.Clone(files),
	}
}

func (s Snapshot) Key() Key {
	return Key{ProjectID: s.ProjectID, ConfigHash: s.ConfigHash}
}

// Checks that a snapshot read back from storage is usable for key.
func (s Snapshot) Validate(key Key) error {
	if s.FormatVersion != FormatVersion {
		return fmt.Errorf(
			"%w: got %d, want %d",
			ErrFormatVersion,
			s.FormatVersion,
			FormatVersion,
		)
	}

	if s.Key() != key {
		return fmt.Errorf("%w: stored under %s but claims %s", ErrCorrupt, key, s.Key())
	}

	if s.Commit == "" {
		return fmt.Errorf("%w: no commit recorded", ErrCorrupt)
	}

	return nil
}

type Backend interface {
	Name() string
	Open() error
	Close() error

	// Returns false if nothing is stored for the key.
	Get(key Key) (Snapshot, bool, error)

	// Replaces whatever is stored for the snapshot's key.
	Put(snapshot Snapshot) error

	// Removes everything stored for the project.
	Clear(projectID string) error
}

type Cache struct {
	backend Backend
}

func NewCache(backend Backend) Cache {
	logger().Debug(fmt.Sprintf("using backend %s", backend.Name()))
	return Cache{backend: backend}
}

func (c Cache) Name() string {
	return c.backend.Name()
}

func (c Cache) Open() error {
	return c.backend.Open()
}

func (c Cache) Close() error {
	return c.backend.Close()
}

func (c Cache) Get(key Key) (_ Snapshot, _ bool, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error reading cache for %s: %w", key, err)
		}
	}()

	start := time.Now()

	snapshot, ok, err := c.backend.Get(key)
	if err != nil {
		return Snapshot{}, false, err
	}

	logger().Debug(
		"cache get",
		"duration_ms",
		time.Since(start).Milliseconds(),
		"hit",
		ok,
	)

	if !ok {
		return Snapshot{}, false, nil
	}

	err = snapshot.Validate(key)
	if err != nil {
		return Snapshot{}, false, err
	}

	if snapshot.Files == nil {
		snapshot.Files = map[string]tally.Counts{}
	}

	return snapshot, true, nil
}

func (c Cache) Put(snapshot Snapshot) error {
	start := time.Now()

	err := c.backend.Put(snapshot)
	if err != nil {
		return fmt.Errorf("error writing cache for %s: %w", snapshot.Key(), err)
	}

	logger().Debug(
		"cache put",
		"duration_ms",
		time.Since(start).Milliseconds(),
		"files",
		len(snapshot.Files),
	)

	return nil
}

func (c Cache) Clear(projectID string) error {
	err := c.backend.Clear(projectID)
	if err != nil {
		return fmt.Errorf("error clearing cache: %w", err)
	}

	return nil
}
