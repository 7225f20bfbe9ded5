package analysis

import (
	"fmt"

	"github.com/sinclairtarget/git-loc/internal/cache"
	"github.com/sinclairtarget/git-loc/internal/config"
	gitconfig "github.com/sinclairtarget/git-loc/internal/git/config"
)

// Cache variant hash for a configuration analyzing a repository with the given
// supplemental files.
func ConfigHash(cfg *config.Config, files gitconfig.SupplementalFiles) (string, error) {
	fingerprint, err := files.Fingerprint(cfg.Blame.UseIgnoreRevs)
	if err != nil {
		return "", err
	}

	return cfg.Variant().Hash(
		fmt.Sprintf("format=%d", cache.FormatVersion),
		fingerprint,
	), nil
}
