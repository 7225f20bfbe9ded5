package cache

import (
	"fmt"
	"os"
	"path/filepath"
)

// Directory for the given backend under the configured cache directory,
// created if missing.
func StorageDir(base string, backendName string) (string, error) {
	dir := filepath.Join(base, backendName)

	err := os.MkdirAll(dir, 0o700)
	if err != nil {
		return "", fmt.Errorf("could not create cache directory: %w", err)
	}

	return dir, nil
}
