package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	rev "github.com/sinclairtarget/git-loc/internal/git/revision"
)

// Not .gitconfig files, but still configure Git behavior
type SupplementalFiles struct {
	RepoMailmapPath   string
	GlobalMailmapPath string
	IgnoreRevsPath    string
}

func (sf SupplementalFiles) HasMailmap() bool {
	return len(sf.RepoMailmapPath) > 0 || len(sf.GlobalMailmapPath) > 0
}

func (sf SupplementalFiles) HasIgnoreRevs() bool {
	return len(sf.IgnoreRevsPath) > 0
}

// Writes the contents of every mailmap to w. Mailmaps rename authors in blame
// output, so they belong in anything that identifies an analysis result.
func (sf SupplementalFiles) WriteMailmaps(w io.Writer) error {
	for _, p := range []string{sf.RepoMailmapPath, sf.GlobalMailmapPath} {
		if len(p) == 0 {
			continue
		}

		err := copyFile(w, p)
		if err != nil {
			return fmt.Errorf("error hashing mailmap file: %w", err)
		}
	}

	return nil
}

func copyFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	} else if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}

// Get git blame ignored revisions
func (sf SupplementalFiles) IgnoreRevs() (_ []string, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error reading git blame ignore revs: %w", err)
		}
	}()

	var revs []string

	if !sf.HasIgnoreRevs() {
		return revs, nil
	}

	f, err := os.Open(sf.IgnoreRevsPath)
	if err != nil {
		return revs, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Comments starting with "#" are allowed in the ignore revs file
		if rev.IsFullHash(line) {
			revs = append(revs, line)
		}
	}

	err = scanner.Err()
	if err != nil {
		return revs, err
	}

	return revs, nil
}

// Summarizes the supplemental files for inclusion in a cache key.
func (sf SupplementalFiles) Fingerprint(useIgnoreRevs bool) (string, error) {
	var b strings.Builder

	err := sf.WriteMailmaps(&b)
	if err != nil {
		return "", err
	}

	if useIgnoreRevs {
		revs, err := sf.IgnoreRevs()
		if err != nil {
			return "", err
		}

		b.WriteString("\x00ignore-revs\x00")
		b.WriteString(strings.Join(revs, "\n"))
	}

	return b.String(), nil
}
