package backends

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/sinclairtarget/git-loc/internal/cache"
)

const JSONBackendName = "json"

// Stores snapshots on disk as newline-delimited JSON, one file per project.
//
// When a key appears more than once the last record wins. Every Put rewrites
// the file with one record per key, so the file holds at most MaxVariants
// records after a write.
type JSONBackend struct {
	Dir         string
	MaxVariants int
}

func (b *JSONBackend) Name() string {
	return JSONBackendName
}

func (b *JSONBackend) Open() error {
	return nil
}

func (b *JSONBackend) Close() error {
	return nil
}

func (b *JSONBackend) path(projectID string) string {
	return filepath.Join(b.Dir, fmt.Sprintf("%s.ndjson", projectID))
}

// Reads every record for the project. Later records replace earlier ones with
// the same config hash; order of first appearance is kept.
func (b *JSONBackend) readAll(projectID string) (_ []cache.Snapshot, err error) {
	f, err := os.Open(b.path(projectID))
	if errors.Is(err, fs.ErrNotExist) {
		// If file doesn't exist, don't treat as an error
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	defer f.Close() // Don't care about error closing when reading

	dec := json.NewDecoder(f)

	var snapshots []cache.Snapshot
	index := map[string]int{}

	for {
		var s cache.Snapshot

		err = dec.Decode(&s)
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("%w: %w", cache.ErrCorrupt, err)
		}

		if i, ok := index[s.ConfigHash]; ok {
			snapshots[i] = s
		} else {
			index[s.ConfigHash] = len(snapshots)
			snapshots = append(snapshots, s)
		}
	}

	return snapshots, nil
}

func (b *JSONBackend) Get(key cache.Key) (cache.Snapshot, bool, error) {
	snapshots, err := b.readAll(key.ProjectID)
	if err != nil {
		return cache.Snapshot{}, false, err
	}

	for _, s := range snapshots {
		if s.ConfigHash == key.ConfigHash {
			return s, true, nil
		}
	}

	return cache.Snapshot{}, false, nil
}

func (b *JSONBackend) Put(snapshot cache.Snapshot) (err error) {
	existing, err := b.readAll(snapshot.ProjectID)
	if err != nil {
		logger().Warn("discarding unreadable json cache file", "err", err)
		existing = nil
	}

	var ages []variantAge
	for _, s := range existing {
		ages = append(ages, variantAge{s.ConfigHash, s.LastUpdated})
	}
	evict := evictions(ages, b.MaxVariants, snapshot.ConfigHash)

	err = os.MkdirAll(b.Dir, 0o700)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(b.Dir, "*.ndjson.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	enc := json.NewEncoder(f)

	for _, s := range existing {
		if s.ConfigHash == snapshot.ConfigHash || slices.Contains(evict, s.ConfigHash) {
			continue
		}

		err = enc.Encode(&s)
		if err != nil {
			return err
		}
	}

	err = enc.Encode(&snapshot)
	if err != nil {
		return err
	}

	err = f.Close()
	if err != nil {
		return err
	}

	return os.Rename(f.Name(), b.path(snapshot.ProjectID))
}

func (b *JSONBackend) Clear(projectID string) error {
	err := os.Remove(b.path(projectID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}
