package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Jobs is the set of scheduled entry points the runner drives.
type Jobs interface {
	GenerateExpiryAlerts(ctx context.Context) (int, error)
	ProcessEscalations(ctx context.Context) (int, error)
}

// Runner drives the periodic sweeps on cron schedules. Overlap with manual
// API triggers is safe: deduplication and guarded updates live in storage.
type Runner struct {
	cron   *cron.Cron
	jobs   Jobs
	logger *zap.Logger
}

// New builds a runner with the given cron expressions. Supports the standard
// five-field syntax plus descriptors like "@every 30m".
func New(jobs Jobs, generateSchedule, escalationSchedule string, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		cron:   cron.New(),
		jobs:   jobs,
		logger: logger,
	}

	if _, err := r.cron.AddFunc(generateSchedule, r.runGenerate); err != nil {
		return nil, err
	}
	if _, err := r.cron.AddFunc(escalationSchedule, r.runEscalations); err != nil {
		return nil, err
	}
	return r, nil
}

// Start launches the cron loop in its own goroutine.
func (r *Runner) Start() {
	r.cron.Start()
	r.logger.Info("scheduler runner started")
}

// Stop halts scheduling and waits for in-flight jobs to finish.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("scheduler runner stopped")
}

func (r *Runner) runGenerate() {
	created, err := r.jobs.GenerateExpiryAlerts(context.Background())
	if err != nil {
		r.logger.Error("scheduled expiry sweep failed", zap.Error(err))
		return
	}
	r.logger.Info("scheduled expiry sweep finished", zap.Int("created", created))
}

func (r *Runner) runEscalations() {
	escalated, err := r.jobs.ProcessEscalations(context.Background())
	if err != nil {
		r.logger.Error("scheduled escalation sweep failed", zap.Error(err))
		return
	}
	r.logger.Info("scheduled escalation sweep finished", zap.Int("escalated", escalated))
}
