// Package scheduler keeps pricing catalogs fresh in the background. It never
// touches listing state.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/autobazaar/internal/catalog"
	"github.com/smallbiznis/autobazaar/internal/clock"
	obsmetrics "github.com/smallbiznis/autobazaar/internal/observability/metrics"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const JobCatalogRefresh = "catalog_refresh"

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Catalogs *catalog.Registry
	Config   Config                       `optional:"true"`
	Metrics  *obsmetrics.SchedulerMetrics `optional:"true"`
	// ObsMetrics mirrors refreshes into the OTel catalog refresh counter.
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	catalogs   *catalog.Registry
	metrics    *obsmetrics.SchedulerMetrics
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Catalogs == nil {
		return nil, ErrInvalidConfig
	}
	metrics := p.Metrics
	if metrics == nil {
		metrics = obsmetrics.Scheduler()
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		clock:      p.Clock,
		catalogs:   p.Catalogs,
		metrics:    metrics,
		obsMetrics: p.ObsMetrics,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name)
	if owner {
		s.logJobStart(ctx, run)
	}
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, time.Since(start))
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	s.metrics.IncJobError(name, err)
	// A deadline is a soft timeout: the next tick picks up where this one stopped.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{JobCatalogRefresh, s.RefreshCatalogsJob},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, s.cfg.JobTimeout, job.Run))
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now()

	for {
		if lag := s.clock.Now().Sub(nextRun); lag > 0 {
			s.metrics.ObserveRunLoopLag(lag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// RefreshCatalogsJob refreshes every registered catalog whose snapshot has
// outlived the refresh interval. The generic catalog is always registered so
// it stays warm even before the first request.
func (s *Scheduler) RefreshCatalogsJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobCatalogRefresh)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	now := s.clock.Now()
	s.catalogs.For(vipdomain.UserContext{})

	var jobErr error
	for _, c := range s.catalogs.Catalogs() {
		if err := ctx.Err(); err != nil {
			return errors.Join(jobErr, err)
		}
		if !c.StaleAfter(now) {
			run.AddSkipped(1)
			s.metrics.IncCatalogSkipped(JobCatalogRefresh)
			continue
		}

		snap, err := c.Refresh(ctx)
		if snap != nil {
			s.metrics.IncCatalogRefreshed(string(snap.Origin))
			s.obsMetrics.RecordCatalogRefresh(ctx, c.Role(), string(snap.Origin))
		}
		if err != nil {
			jobErr = errors.Join(jobErr, fmt.Errorf("catalog %q: %w", c.Role(), err))
			s.logSchedulerError(ctx, run, "scheduler.catalog.refresh.failed", JobCatalogRefresh, err,
				zap.String("catalog_role", c.Role()),
			)
			continue
		}
		run.AddProcessed(1)
	}
	return jobErr
}
