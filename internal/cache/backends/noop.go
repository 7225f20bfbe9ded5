package backends

import (
	"github.com/sinclairtarget/git-loc/internal/cache"
)

const NoopBackendName = "none"

// Stores nothing. Used when caching is disabled or could not be set up.
type NoopBackend struct{}

func (b NoopBackend) Name() string {
	return NoopBackendName
}

func (b NoopBackend) Open() error {
	return nil
}

func (b NoopBackend) Close() error {
	return nil
}

func (b NoopBackend) Get(key cache.Key) (cache.Snapshot, bool, error) {
	return cache.Snapshot{}, false, nil
}

func (b NoopBackend) Put(snapshot cache.Snapshot) error {
	return nil
}

func (b NoopBackend) Clear(projectID string) error {
	return nil
}
