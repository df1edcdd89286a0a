// Package cleanup drops live games that have been idle for too long.
package cleanup

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Reapable removes sessions idle since before now-ttl and reports how many went.
type Reapable interface {
	ReapIdle(now time.Time, ttl time.Duration) int
}

// Reaper runs Reapable on a cron schedule.
type Reaper struct {
	games    Reapable
	schedule string
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time

	cron *cron.Cron
}

func NewReaper(games Reapable, schedule string, ttl time.Duration, logger *slog.Logger) *Reaper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reaper{
		games:    games,
		schedule: schedule,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		cron:     cron.New(),
	}
}

// Start registers the job and starts the scheduler in its own goroutine.
func (r *Reaper) Start() error {
	if _, err := r.cron.AddFunc(r.schedule, func() { r.RunOnce() }); err != nil {
		return fmt.Errorf("schedule reaper %q: %w", r.schedule, err)
	}
	r.cron.Start()
	r.logger.Info("idle game reaper started", "schedule", r.schedule, "idle_ttl", r.ttl.String())
	return nil
}

// Stop halts the scheduler and waits for a running job.
func (r *Reaper) Stop() {
	<-r.cron.Stop().Done()
}

// RunOnce reaps immediately and returns the number of dropped sessions.
func (r *Reaper) RunOnce() int {
	n := r.games.ReapIdle(r.now(), r.ttl)
	if n > 0 {
		r.logger.Info("idle games reaped", "count", n)
	}
	return n
}
