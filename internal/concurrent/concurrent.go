// Blames files in parallel and tallies each one.
package concurrent

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sinclairtarget/git-loc/internal/authors"
	"github.com/sinclairtarget/git-loc/internal/tally"
)

// Something that can produce raw attribution output for a file.
type Source interface {
	BlameFile(ctx context.Context, path string) ([]string, error)
}

type Options struct {
	Workers int // Files blamed at once; GOMAXPROCS when zero
	Aliases authors.Table

	// Called once per finished file. Calls never overlap.
	OnFileDone func(path string)
}

// Per-file tallies for a set of files.
type Result struct {
	Files map[string]tally.Counts
	Stats tally.Stats
}

// Sum over every file.
func (r Result) Total() tally.Counts {
	counts := make([]tally.Counts, 0, len(r.Files))
	for _, c := range r.Files {
		counts = append(counts, c)
	}

	return tally.Sum(counts...)
}

// Blames and tallies each path. The first failure cancels outstanding work
// and is returned; no partial result is returned with it.
func TallyFiles(
	ctx context.Context,
	src Source,
	paths []string,
	opts Options,
) (_ Result, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error running concurrent tally: %w", err)
		}
	}()

	nWorkers := opts.Workers
	if nWorkers <= 0 {
		nWorkers = runtime.GOMAXPROCS(0)
	}
	logger().Debug(
		"tallying files",
		"files",
		len(paths),
		"workers",
		nWorkers,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(nWorkers)

	var mu sync.Mutex
	result := Result{Files: make(map[string]tally.Counts, len(paths))}
	done := 0

	for _, path := range paths {
		if gctx.Err() != nil {
			break // Something already failed
		}

		g.Go(func() error {
			counts, stats, err := tallyFile(gctx, src, path, opts.Aliases)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()

			done += 1
			result.Files[path] = counts
			result.Stats = result.Stats.Combine(stats)
			if opts.OnFileDone != nil {
				opts.OnFileDone(path)
			}

			return nil
		})
	}

	err = g.Wait()
	if err != nil {
		return Result{}, err
	}

	// The loop also stops early if the caller cancelled.
	if done < len(paths) {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("tallied %d of %d files", done, len(paths))
	}

	return result, nil
}
