package backends

import (
	"bufio"
	"compress/gzip"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sinclairtarget/git-loc/internal/cache"
)

const GobBackendName = "gob"

const gobExt = ".gob.gz"

// Stores each snapshot in its own gzipped Gob file, in a directory per
// project.
//
// Gob is considerably faster to decode than JSON for the large per-file maps a
// snapshot holds. Files for variants beyond MaxVariants are deleted oldest
// first; each file's modification time is set to its snapshot's LastUpdated.
type GobBackend struct {
	Dir         string
	MaxVariants int
}

func (b *GobBackend) Name() string {
	return GobBackendName
}

func (b *GobBackend) Open() error {
	return nil
}

func (b *GobBackend) Close() error {
	return nil
}

func (b *GobBackend) projectDir(projectID string) string {
	return filepath.Join(b.Dir, projectID)
}

func (b *GobBackend) path(key cache.Key) string {
	return filepath.Join(b.projectDir(key.ProjectID), key.ConfigHash+gobExt)
}

func (b *GobBackend) Get(key cache.Key) (_ cache.Snapshot, _ bool, err error) {
	f, err := os.Open(b.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return cache.Snapshot{}, false, nil
	} else if err != nil {
		return cache.Snapshot{}, false, err
	}
	defer f.Close() // Don't care about error closing when reading

	zr, err := gzip.NewReader(bufio.NewReader(f))
	if err != nil {
		return cache.Snapshot{}, false, fmt.Errorf("%w: %w", cache.ErrCorrupt, err)
	}
	defer zr.Close()

	var snapshot cache.Snapshot
	err = gob.NewDecoder(zr).Decode(&snapshot)
	if err != nil {
		return cache.Snapshot{}, false, fmt.Errorf("%w: %w", cache.ErrCorrupt, err)
	}

	return snapshot, true, nil
}

func (b *GobBackend) Put(snapshot cache.Snapshot) (err error) {
	dir := b.projectDir(snapshot.ProjectID)

	err = os.MkdirAll(dir, 0o700)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, "*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	zw, err := gzip.NewWriterLevel(f, gzip.BestSpeed)
	if err != nil {
		return err
	}

	err = gob.NewEncoder(zw).Encode(&snapshot)
	if err != nil {
		return err
	}

	err = zw.Close()
	if err != nil {
		return err
	}

	err = f.Close()
	if err != nil {
		return err
	}

	path := b.path(snapshot.Key())
	err = os.Rename(f.Name(), path)
	if err != nil {
		return err
	}

	// Eviction goes by modification time, so make it match the snapshot.
	err = os.Chtimes(path, snapshot.LastUpdated, snapshot.LastUpdated)
	if err != nil {
		return err
	}

	b.prune(dir, snapshot.ConfigHash)
	return nil
}

// Deletes the oldest variant files beyond MaxVariants. Failures only warn.
func (b *GobBackend) prune(dir string, keep string) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+gobExt))
	if err != nil {
		panic(err) // Bad pattern
	}

	var ages []variantAge
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			continue
		}

		hash := strings.TrimSuffix(filepath.Base(match), gobExt)
		ages = append(ages, variantAge{hash, info.ModTime()})
	}

	for _, hash := range evictions(ages, b.MaxVariants, keep) {
		p := filepath.Join(dir, hash+gobExt)
		err := os.Remove(p)
		if err != nil {
			logger().Warn(
				fmt.Sprintf("failed to delete old cache file: %v", err),
			)
		} else {
			logger().Debug("evicted cache variant", "path", p)
		}
	}
}

func (b *GobBackend) Clear(projectID string) error {
	return os.RemoveAll(b.projectDir(projectID))
}
