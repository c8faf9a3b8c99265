package scheduler

import (
	"context"
	"time"

	"github.com/aristath/frontier/internal/modules/runs"
)

// RunUniverseJob re-runs the simulation and optimization for the configured
// universe on a schedule, so the stored optimal allocation tracks fresh
// price history.
type RunUniverseJob struct {
	Service *runs.Service
	Params  runs.Params
	Timeout time.Duration
}

// Name returns the job name for logging.
func (j *RunUniverseJob) Name() string { return "run_universe" }

// Run executes one scheduled run. Scheduled runs never reuse a fixed seed;
// each run generates and records its own.
func (j *RunUniverseJob) Run(ctx context.Context) error {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	params := j.Params
	params.Seed = nil

	_, err := j.Service.Execute(ctx, params)
	return err
}
