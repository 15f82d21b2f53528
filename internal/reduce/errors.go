package reduce

import "go.uber.org/multierr"

// ProcessResult pairs one rank's contribution with whatever error that
// rank's collection step produced (e.g. NoShmem for a process that detached
// mid-run): the shape an MPI collaborator hands back per rank.
type ProcessResult struct {
	Metrics BaseMetrics
	Err     error
}

// ReduceResults folds every successful contribution with Merge while
// accumulating every error, succeeded or not, into a single combined error
// via multierr -- so one rank's failure never silently hides another's, and
// never aborts the reduction of the ranks that did succeed.
func ReduceResults(results []ProcessResult) (BaseMetrics, error) {
	var (
		contributions []BaseMetrics
		err           error
	)
	for _, r := range results {
		if r.Err != nil {
			err = multierr.Append(err, r.Err)
			continue
		}
		contributions = append(contributions, r.Metrics)
	}
	return Reduce(contributions), err
}
