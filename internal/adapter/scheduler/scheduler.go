package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"taskmanager/pkg/logger"
	"taskmanager/pkg/tracing"
)

// OverdueCounter is the slice of the task service the overdue job needs.
type OverdueCounter interface {
	CountOverdue(ctx context.Context, now time.Time) (int, error)
}

// OverdueGauge receives the latest overdue count.
type OverdueGauge interface {
	SetOverdueTasks(n int)
}

type Scheduler struct {
	cron *cron.Cron
	log  *logger.Logger
}

func New(log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC), cron.WithSeconds()),
		log:  log,
	}
}

// ScheduleInterval registers job to run every interval, rounded down to whole seconds.
func (s *Scheduler) ScheduleInterval(interval time.Duration, job func()) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return s.cron.AddFunc(fmt.Sprintf("@every %ds", seconds), job)
}

// ScheduleOverdueRefresh keeps gauge in sync with the number of overdue tasks.
func (s *Scheduler) ScheduleOverdueRefresh(interval time.Duration, counter OverdueCounter, gauge OverdueGauge) (cron.EntryID, error) {
	job := OverdueJob(counter, gauge, s.log)
	return s.ScheduleInterval(interval, func() { job(context.Background()) })
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func OverdueJob(counter OverdueCounter, gauge OverdueGauge, log *logger.Logger) func(context.Context) {
	return func(ctx context.Context) {
		err := tracing.Run(ctx, "job.overdue_refresh", func(ctx context.Context) error {
			n, err := counter.CountOverdue(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			gauge.SetOverdueTasks(n)
			if log != nil {
				log.InfoWithTrace(ctx, "Overdue tasks refreshed", zap.Int("overdue", n))
			}
			return nil
		}, attribute.String("job.name", "overdue_refresh"))

		if err != nil && log != nil {
			log.ErrorWithTrace(ctx, "Overdue refresh failed", zap.Error(err))
		}
	}
}
