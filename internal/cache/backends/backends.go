/*
* Storage implementations for the analysis cache.
 */
package backends

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/sinclairtarget/git-loc/internal/cache"
)

type Options struct {
	Dir         string // Base cache directory
	MaxVariants int    // Snapshots kept per project
}

// Constructs the named backend. The backend still needs to be opened.
func New(name string, opts Options) (cache.Backend, error) {
	if name == NoopBackendName {
		return NoopBackend{}, nil
	}

	dir, err := cache.StorageDir(opts.Dir, name)
	if err != nil {
		return nil, err
	}

	switch name {
	case BoltBackendName:
		return NewBoltBackend(dir, opts.MaxVariants), nil
	case SQLiteBackendName:
		return NewSQLiteBackend(dir, opts.MaxVariants), nil
	case GobBackendName:
		return &GobBackend{Dir: dir, MaxVariants: opts.MaxVariants}, nil
	case JSONBackendName:
		return &JSONBackend{Dir: dir, MaxVariants: opts.MaxVariants}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", name)
	}
}

type variantAge struct {
	configHash  string
	lastUpdated time.Time
}

// Config hashes that fall outside the newest max variants and should be
// evicted. The variant named by keep was just written and always survives.
func evictions(variants []variantAge, maxVariants int, keep string) []string {
	others := slices.DeleteFunc(
		slices.Clone(variants),
		func(v variantAge) bool { return v.configHash == keep },
	)

	slices.SortFunc(others, func(a, b variantAge) int {
		if c := b.lastUpdated.Compare(a.lastUpdated); c != 0 {
			return c
		}
		return cmp.Compare(a.configHash, b.configHash)
	})

	slots := max(maxVariants-1, 0)
	if len(others) <= slots {
		return nil
	}

	evict := make([]string, 0, len(others)-slots)
	for _, v := range others[slots:] {
		evict = append(evict, v.configHash)
	}

	return evict
}
