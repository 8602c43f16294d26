package engine

// Worker planning for multi-symbol runs

import "runtime"

type Planner struct {
	MaxWorkers int
}

// NewPlanner bounds workers by maxWorkers, or by the CPU count when
// maxWorkers is not positive.
func NewPlanner(maxWorkers int) *Planner {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	return &Planner{MaxWorkers: maxWorkers}
}

// Workers returns how many workers to start for jobs units of work.
func (p *Planner) Workers(jobs int) int {
	w := p.MaxWorkers
	if jobs < w {
		w = jobs
	}
	if w < 1 {
		w = 1
	}
	return w
}
