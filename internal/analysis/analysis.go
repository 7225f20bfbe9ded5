/*
* Runs a full or incremental analysis of a project.
*
* The analyzed commit is the one HEAD pointed to when the repository was
* opened. A cached snapshot for the same project and configuration variant is
* used to avoid blaming files that no commit since the snapshot's commit has
* touched. The snapshot is only used when its commit is an ancestor of HEAD.
* Any problem with the cache downgrades to a full analysis.
 */
package analysis

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/sinclairtarget/git-loc/internal/authors"
	"github.com/sinclairtarget/git-loc/internal/cache"
	"github.com/sinclairtarget/git-loc/internal/concurrent"
	"github.com/sinclairtarget/git-loc/internal/selection"
	"github.com/sinclairtarget/git-loc/internal/tally"
)

// What the analyzer needs from git.
type Repository interface {
	concurrent.Source
	ID() string
	Head() string
	TrackedFiles(ctx context.Context, rev string) ([]string, error)
	IsAncestor(ctx context.Context, ancestor string, rev string) (bool, error)
	ChangedFiles(ctx context.Context, from string, to string) ([]string, error)
}

type Analyzer struct {
	Repo       Repository
	Cache      cache.Cache
	ConfigHash string
	Blacklist  selection.Blacklist
	Aliases    authors.Table
	Workers    int

	// Called with the number of files that will be blamed, before blaming.
	OnStart func(total int)

	// Called after each file is blamed. Calls never overlap.
	OnFileDone func(path string)
}

type Report struct {
	Commit   string
	Counts   tally.Counts
	Files    int // Selected files
	Blamed   int
	Reused   int
	Stats    tally.Stats // Only covers blamed files
	Duration time.Duration
}

// Tracked files at the analyzed commit that are not blacklisted.
func (a *Analyzer) SelectedFiles(ctx context.Context) ([]string, error) {
	tracked, err := a.Repo.TrackedFiles(ctx, a.Repo.Head())
	if err != nil {
		return nil, err
	}

	selected := selection.Select(tracked, a.Blacklist)
	logger().Debug(
		"selected files",
		"tracked",
		len(tracked),
		"selected",
		len(selected),
	)

	return selected, nil
}

func (a *Analyzer) key() cache.Key {
	return cache.Key{ProjectID: a.Repo.ID(), ConfigHash: a.ConfigHash}
}

func (a *Analyzer) Run(ctx context.Context) (_ Report, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error analyzing project: %w", err)
		}
	}()

	start := time.Now()

	selected, err := a.SelectedFiles(ctx)
	if err != nil {
		return Report{}, err
	}

	plan := a.plan(ctx, selected)
	logger().Debug(
		"planned analysis",
		"reuse",
		len(plan.Reuse),
		"blame",
		len(plan.Blame),
		"dropped",
		plan.Dropped,
	)

	if a.OnStart != nil {
		a.OnStart(len(plan.Blame))
	}

	result, err := concurrent.TallyFiles(
		ctx,
		a.Repo,
		plan.Blame,
		concurrent.Options{
			Workers:    a.Workers,
			Aliases:    a.Aliases,
			OnFileDone: a.OnFileDone,
		},
	)
	if err != nil {
		return Report{}, err
	}

	files := maps.Clone(plan.Reuse)
	maps.Copy(files, result.Files)

	if !plan.Unchanged() {
		a.store(files)
	}

	return Report{
		Commit:   a.Repo.Head(),
		Counts:   tally.Sum(slices.Collect(maps.Values(files))...),
		Files:    len(selected),
		Blamed:   len(plan.Blame),
		Reused:   len(plan.Reuse),
		Stats:    result.Stats,
		Duration: time.Since(start),
	}, nil
}

// Decides what to reuse from the cache. Never fails; cache trouble means
// blaming everything.
func (a *Analyzer) plan(ctx context.Context, selected []string) Plan {
	snapshot, ok, err := a.Cache.Get(a.key())
	if err != nil {
		logger().Warn(
			fmt.Sprintf("could not read cache, analyzing everything: %v", err),
		)
		return FullPlan(selected)
	}

	if !ok {
		logger().Debug("no cached snapshot")
		return FullPlan(selected)
	}

	head := a.Repo.Head()
	if snapshot.Commit == head {
		return PlanIncremental(selected, snapshot, nil)
	}

	// Blame follows history, so a rewritten history (amend, rebase, reset)
	// can change attribution without changing any file.
	isAncestor, err := a.Repo.IsAncestor(ctx, snapshot.Commit, head)
	if err != nil {
		logger().Warn(
			fmt.Sprintf(
				"could not check cached commit, analyzing everything: %v",
				err,
			),
		)
		return FullPlan(selected)
	}

	if !isAncestor {
		logger().Info(
			"cached commit is not an ancestor of HEAD, analyzing everything",
			"commit",
			snapshot.Commit,
		)
		return FullPlan(selected)
	}

	changed, err := a.Repo.ChangedFiles(ctx, snapshot.Commit, head)
	if err != nil {
		logger().Warn(
			fmt.Sprintf(
				"could not list changes since cached commit, analyzing everything: %v",
				err,
			),
		)
		return FullPlan(selected)
	}

	logger().Debug(
		"listed changes since cached commit",
		"commit",
		snapshot.Commit,
		"changed",
		len(changed),
	)
	return PlanIncremental(selected, snapshot, changed)
}

func (a *Analyzer) store(files map[string]tally.Counts) {
	snapshot := cache.NewSnapshot(a.key(), a.Repo.Head(), files)

	err := a.Cache.Put(snapshot)
	if err != nil {
		logger().Warn(fmt.Sprintf("could not write cache: %v", err))
	}
}
