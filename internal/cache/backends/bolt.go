package backends

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/sinclairtarget/git-loc/internal/cache"
)

const BoltBackendName = "bolt"

var (
	snapshotsBucket = []byte("snapshots")
	updatedBucket   = []byte("updated")
)

// Stores snapshots in a single bbolt database shared by all projects.
//
// Each project gets a top-level bucket named by its ID, holding two nested
// buckets keyed by config hash: the JSON-encoded snapshots, and the time each
// was last written (used for eviction without decoding snapshots).
type BoltBackend struct {
	Path        string
	MaxVariants int

	db *bolt.DB
}

func NewBoltBackend(dir string, maxVariants int) *BoltBackend {
	return &BoltBackend{
		Path:        filepath.Join(dir, "git-loc.db"),
		MaxVariants: maxVariants,
	}
}

func (b *BoltBackend) Name() string {
	return BoltBackendName
}

func (b *BoltBackend) Open() error {
	err := os.MkdirAll(filepath.Dir(b.Path), 0o700)
	if err != nil {
		return err
	}

	// Another git-loc process may hold the lock; don't wait forever.
	db, err := bolt.Open(b.Path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("could not open bolt database: %w", err)
	}

	b.db = db
	return nil
}

func (b *BoltBackend) Close() error {
	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	return err
}

func (b *BoltBackend) Get(key cache.Key) (cache.Snapshot, bool, error) {
	if b.db == nil {
		panic("cache not yet open. Did you forget to call Open()?")
	}

	var snapshot cache.Snapshot
	found := false

	err := b.db.View(func(tx *bolt.Tx) error {
		project := tx.Bucket([]byte(key.ProjectID))
		if project == nil {
			return nil
		}

		snapshots := project.Bucket(snapshotsBucket)
		if snapshots == nil {
			return nil
		}

		data := snapshots.Get([]byte(key.ConfigHash))
		if data == nil {
			return nil
		}

		err := json.Unmarshal(data, &snapshot)
		if err != nil {
			return fmt.Errorf("%w: %w", cache.ErrCorrupt, err)
		}

		found = true
		return nil
	})
	if err != nil {
		return cache.Snapshot{}, false, err
	}

	return snapshot, found, nil
}

func (b *BoltBackend) Put(snapshot cache.Snapshot) error {
	if b.db == nil {
		panic("cache not yet open. Did you forget to call Open()?")
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	updated, err := snapshot.LastUpdated.MarshalText()
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		project, err := tx.CreateBucketIfNotExists([]byte(snapshot.ProjectID))
		if err != nil {
			return err
		}

		snapshots, err := project.CreateBucketIfNotExists(snapshotsBucket)
		if err != nil {
			return err
		}

		times, err := project.CreateBucketIfNotExists(updatedBucket)
		if err != nil {
			return err
		}

		hash := []byte(snapshot.ConfigHash)
		if err := snapshots.Put(hash, data); err != nil {
			return err
		}
		if err := times.Put(hash, updated); err != nil {
			return err
		}

		var ages []variantAge
		err = times.ForEach(func(k, v []byte) error {
			var t time.Time
			if err := t.UnmarshalText(v); err != nil {
				// Unknown age sorts as oldest.
				t = time.Time{}
			}

			ages = append(ages, variantAge{string(k), t})
			return nil
		})
		if err != nil {
			return err
		}

		for _, evicted := range evictions(ages, b.MaxVariants, snapshot.ConfigHash) {
			if err := snapshots.Delete([]byte(evicted)); err != nil {
				return err
			}
			if err := times.Delete([]byte(evicted)); err != nil {
				return err
			}

			logger().Debug("evicted cache variant", "hash", evicted)
		}

		return nil
	})
}

func (b *BoltBackend) Clear(projectID string) error {
	if b.db == nil {
		panic("cache not yet open. Did you forget to call Open()?")
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		err := tx.DeleteBucket([]byte(projectID))
		if errors.Is(err, bolt.ErrBucketNotFound) {
			return nil
		}

		return err
	})
}
