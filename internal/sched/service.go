package sched

import (
	"context"
	"fmt"
	"time"

	"github.com/fabworks/fabshop-backend/pkg/logger"
	"github.com/fabworks/fabshop-backend/pkg/metrics"
)

const (
	defaultInterval     = 4 * time.Hour
	defaultInitialDelay = 30 * time.Second
	defaultErrorBackoff = time.Minute
)

// ServiceParams configure the scheduler.
type ServiceParams struct {
	Logger       *logger.Logger
	Registry     *Registry
	Metrics      *metrics.JobMetrics
	Interval     time.Duration
	InitialDelay time.Duration
	ErrorBackoff time.Duration
}

// Service executes registered jobs on a fixed cadence. The first cycle waits
// out a short initial delay so the process finishes booting; a failed cycle
// reschedules after the error backoff instead of the full interval.
type Service struct {
	logg         *logger.Logger
	registry     *Registry
	metrics      *metrics.JobMetrics
	interval     time.Duration
	initialDelay time.Duration
	errorBackoff time.Duration
}

// NewService builds a scheduler.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	initialDelay := params.InitialDelay
	if initialDelay < 0 {
		initialDelay = defaultInitialDelay
	}
	errorBackoff := params.ErrorBackoff
	if errorBackoff <= 0 {
		errorBackoff = defaultErrorBackoff
	}
	return &Service{
		logg:         params.Logger,
		registry:     registry,
		metrics:      params.Metrics,
		interval:     interval,
		initialDelay: initialDelay,
		errorBackoff: errorBackoff,
	}, nil
}

// Run drives the scheduler loop until the context is canceled. The running
// cycle is allowed to finish before Run returns.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	timer := time.NewTimer(s.initialDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "scheduler context canceled")
			return ctx.Err()
		case <-timer.C:
			next := s.interval
			if failed := s.runCycle(ctx); failed {
				next = s.errorBackoff
			}
			timer.Reset(next)
		}
	}
}

// runCycle runs every registered job once and reports whether any failed.
func (s *Service) runCycle(ctx context.Context) bool {
	s.logg.Info(ctx, "scheduled run starting")
	failed := false
	for _, job := range s.registry.Jobs() {
		if err := s.runJob(ctx, job); err != nil {
			failed = true
		}
	}
	s.logg.Info(ctx, "scheduled run complete")
	return failed
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx := s.logg.WithJob(ctx, job.Name())
	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	s.observeDuration(job.Name(), duration)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.recordFailure(job.Name())
		return err
	}
	s.logg.Info(jobCtx, "job completed")
	s.recordSuccess(job.Name())
	return nil
}

func (s *Service) observeDuration(job string, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(job, duration)
}

func (s *Service) recordSuccess(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncSuccess(job)
}

func (s *Service) recordFailure(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncFailure(job)
}
