// Package schedule triggers periodic dashboard refreshes from a cron spec.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "inkdash/internal/log"
)

// Job is one refresh.
type Job func(ctx context.Context) error

// Scheduler runs a Job on a cron schedule in the display zone. Overlapping
// runs are skipped and panics are recovered.
type Scheduler struct {
	cron *cron.Cron
	spec string
	loc  *time.Location
}

// New registers job under spec. ctx is handed to every run.
func New(ctx context.Context, spec string, loc *time.Location, job Job) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if _, err := c.AddFunc(spec, func() {
		if err := job(ctx); err != nil {
			appLog.Error("scheduled refresh failed", err, "schedule", spec)
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule: add %q: %w", spec, err)
	}

	return &Scheduler{cron: c, spec: spec, loc: loc}, nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	appLog.Info("scheduler started", "schedule", s.spec, "timezone", s.loc.String(), "next", s.Next())
}

// Stop halts the scheduler and waits for a running job to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	appLog.Info("scheduler stopped")
}

// Next reports the next activation, zero if none is scheduled.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	if !entries[0].Next.IsZero() {
		return entries[0].Next
	}
	return entries[0].Schedule.Next(time.Now().In(s.loc))
}

// cronLogger routes cron's own messages into the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
