package pipeline

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/gop"
	"github.com/banshee-data/roiqp/internal/monitoring"
)

// Job is one unit of sweep work.
type Job struct {
	Source    Source
	Method    Method
	Structure gop.Structure
	QPs       []int
}

// Jobs expands the cross product of sources, methods and structures.
func Jobs(sources []Source, methods []Method, structures []gop.Structure, qps []int) []Job {
	out := make([]Job, 0, len(sources)*len(methods)*len(structures))
	for _, src := range sources {
		for _, st := range structures {
			for _, m := range methods {
				out = append(out, Job{Source: src, Method: m, Structure: st, QPs: qps})
			}
		}
	}
	return out
}

// Sweep runs jobs on up to workers goroutines (GOMAXPROCS when workers is
// not positive). A failed sequence is reported in its SequenceResult and
// does not stop the sweep. Cancelling ctx stops new sequences from
// starting; Sweep then returns the results gathered so far along with the
// context error. Results are in job order; unstarted jobs are nil.
func (r *Runner) Sweep(ctx context.Context, jobs []Job, workers int) ([]*SequenceResult, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]*SequenceResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			name := job.Source.Name()
			monitoring.Logf("sweep: start %s %s %s", name, job.Method.Name, job.Structure)
			res, err := r.RunSequence(gctx, job.Source, job.Method, job.Structure, job.QPs)
			switch {
			case err == nil:
				monitoring.Logf("sweep: done %s %s %s (%d rows)", name, job.Method.Name, job.Structure, len(res.Rows))
			case errors.IsAny(err, context.Canceled, context.DeadlineExceeded) && gctx.Err() != nil:
				return err
			default:
				monitoring.Logf("sweep: %s %s %s failed: %v", name, job.Method.Name, job.Structure, err)
				if res == nil {
					res = &SequenceResult{
						Sequence:  name,
						Method:    job.Method,
						Structure: job.Structure.String(),
						Err:       err,
						Error:     err.Error(),
					}
				}
			}
			results[i] = res
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return results, err
}

// Rows flattens the rate-distortion rows of every successful result.
func Rows(results []*SequenceResult) []RDRow {
	var out []RDRow
	for _, r := range results {
		if r == nil || r.Failed() {
			continue
		}
		out = append(out, r.Rows...)
	}
	return out
}
