package timetable

import (
	"context"
	"fmt"
	"slices"

	"github.com/sourcegraph/conc/pool"
)

// GridJob names one stop timetable to render.
type GridJob struct {
	SubrouteID string
	StopID     string
	Departures []Departure
}

// GridResult is the rendered GridSet of a job.
type GridResult struct {
	SubrouteID string  `json:"subrouteId"`
	StopID     string  `json:"stopId"`
	Grids      GridSet `json:"grids"`

	order int
}

// BuildAll renders every job on a bounded worker pool. Results come back in
// job order; the first failure cancels the remaining work.
func (gb *GridBuilder) BuildAll(ctx context.Context, jobs []GridJob, workers int) ([]GridResult, error) {
	if workers <= 0 {
		workers = 1
	}
	p := pool.NewWithResults[GridResult]().
		WithContext(ctx).
		WithCancelOnError().
		WithMaxGoroutines(workers)

	for i, job := range jobs {
		p.Go(func(ctx context.Context) (GridResult, error) {
			if err := ctx.Err(); err != nil {
				return GridResult{}, err
			}
			set, err := gb.BuildGrids(job.Departures)
			if err != nil {
				return GridResult{}, fmt.Errorf("subroute %s stop %s: %w", job.SubrouteID, job.StopID, err)
			}
			return GridResult{SubrouteID: job.SubrouteID, StopID: job.StopID, Grids: set, order: i}, nil
		})
	}

	results, err := p.Wait()
	if err != nil {
		return nil, err
	}
	slices.SortFunc(results, func(a, b GridResult) int { return a.order - b.order })
	return results, nil
}
