package matrixctl

import "fmt"

// MaxPageSize is the largest page the Synapse admin list endpoints return.
const MaxPageSize = 100

// Plan lays out a paginated fetch of Limit items as ConcurrentLimit parallel
// requests repeated Iterations times, each asking for StepSize items.
// StepSize·ConcurrentLimit·Iterations is never less than Limit; Offset is the
// overshoot.
type Plan struct {
	Limit           int
	StepSize        int
	ConcurrentLimit int
	Offset          int
	Iterations      int
}

// NewPlan computes the request layout for fetching limit items with at
// most concurrentLimit requests in flight. The step is rebalanced so the
// workers share the load evenly and the overshoot stays minimal.
func NewPlan(limit, concurrentLimit int) (Plan, error) {
	if limit < 1 {
		return Plan{}, Errorf(EINVALID, "limit must be at least 1, got %d", limit)
	}
	if concurrentLimit < 1 {
		return Plan{}, Errorf(EINVALID, "concurrent limit must be at least 1, got %d", concurrentLimit)
	}

	maxStep := min(limit, MaxPageSize)
	step := limit
	if limit > maxStep {
		step = maxStep
	}

	// workersF·step equals limit exactly whenever limit/step fits within
	// the concurrent limit, so only the capped case needs a division.
	iterations := 1
	if limit > concurrentLimit*step {
		iterations = ceilDiv(limit, concurrentLimit*step)
	}
	workers := min(ceilDiv(limit, step*iterations), concurrentLimit)
	newStep := ceilDiv(limit, workers*iterations)
	newLimit := newStep * workers * iterations
	offset := newLimit - limit

	if offset < 0 {
		return Plan{}, Errorf(EINTERNAL,
			"request plan undershoots: limit=%d step=%d workers=%d iterations=%d",
			limit, newStep, workers, iterations)
	}

	return Plan{
		Limit:           limit,
		StepSize:        newStep,
		ConcurrentLimit: workers,
		Offset:          offset,
		Iterations:      iterations,
	}, nil
}

// Aligned returns the plan with StepSize widened to the server page size so
// cursors land on page boundaries. Workers and iterations are unchanged;
// the offset grows accordingly.
func (p Plan) Aligned(pageSize int) Plan {
	step := min(pageSize, MaxPageSize)
	if step < p.StepSize {
		return p
	}
	p.StepSize = step
	p.Offset = step*p.ConcurrentLimit*p.Iterations - p.Limit
	return p
}

// Requests returns the number of subrequests the plan issues.
func (p Plan) Requests() int {
	return p.ConcurrentLimit * p.Iterations
}

// Cursors returns the `from` value of every subrequest, starting at start.
func (p Plan) Cursors(start int) []int {
	n := p.Requests()
	cursors := make([]int, 0, n)
	for i := 0; i < n; i++ {
		cursors = append(cursors, start+i*p.StepSize)
	}
	return cursors
}

func (p Plan) String() string {
	return fmt.Sprintf("Plan(limit=%d, step_size=%d, concurrent_limit=%d, offset=%d, iterations=%d)",
		p.Limit, p.StepSize, p.ConcurrentLimit, p.Offset, p.Iterations)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
