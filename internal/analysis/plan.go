package analysis

import (
	"github.com/sinclairtarget/git-loc/internal/cache"
	"github.com/sinclairtarget/git-loc/internal/tally"
)

// Which selected files can take their tally from a snapshot and which must be
// blamed again.
type Plan struct {
	Reuse   map[string]tally.Counts
	Blame   []string // In selection order
	Dropped int      // Snapshot files no longer selected
}

// Whether carrying out the plan would reproduce the snapshot exactly.
func (p Plan) Unchanged() bool {
	return len(p.Blame) == 0 && p.Dropped == 0
}

// A plan with nothing to reuse.
func FullPlan(selected []string) Plan {
	return Plan{
		Reuse: map[string]tally.Counts{},
		Blame: selected,
	}
}

// Plans an incremental run from a snapshot.
//
// changed lists paths whose content differs between the snapshot's commit and
// the commit being analyzed; it is empty when those are the same commit.
// Selected files that changed or that the snapshot lacks are blamed. Snapshot
// files that are no longer selected are dropped.
func PlanIncremental(
	selected []string,
	snapshot cache.Snapshot,
	changed []string,
) Plan {
	isChanged := make(map[string]bool, len(changed))
	for _, path := range changed {
		isChanged[path] = true
	}

	plan := Plan{
		Reuse: map[string]tally.Counts{},
		Blame: []string{},
	}

	isSelected := make(map[string]bool, len(selected))
	for _, path := range selected {
		isSelected[path] = true

		counts, ok := snapshot.Files[path]
		if ok && !isChanged[path] {
			plan.Reuse[path] = counts
		} else {
			plan.Blame = append(plan.Blame, path)
		}
	}

	for path := range snapshot.Files {
		if !isSelected[path] {
			plan.Dropped += 1
		}
	}

	return plan
}
