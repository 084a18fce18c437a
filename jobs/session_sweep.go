// Package jobs runs the console's periodic background work.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/edutracks/console/core"
	"github.com/edutracks/console/core/session"
	"github.com/edutracks/console/services/metrics"
)

// SessionSweeper forgets tab sessions that have been idle for too long. A forgotten tab
// restarts from durable storage on its next request, so tokens that were not remembered are gone.
type SessionSweeper struct {
	registry *session.Registry
	idle     time.Duration
	metrics  *metricsvc.Metrics
	logger   core.Logger
}

func NewSessionSweeper(registry *session.Registry, idle time.Duration, metrics *metricsvc.Metrics, logger core.Logger) *SessionSweeper {
	return &SessionSweeper{registry: registry, idle: idle, metrics: metrics, logger: logger}
}

// Run sweeps once and returns the number of tabs dropped.
func (s *SessionSweeper) Run() int {
	n := s.registry.Sweep(s.idle)
	s.metrics.SweptTabs.Add(float64(n))
	s.metrics.TabSessions.Set(float64(s.registry.Len()))
	if n > 0 {
		s.logger.Info(fmt.Sprintf("session sweep: dropped %d idle tab(s)", n))
	}
	return n
}

// Scheduler wraps a cron instance.
type Scheduler struct {
	cron *cron.Cron
}

func NewScheduler() *Scheduler {
	return &Scheduler{cron: cron.New()}
}

// Schedule registers fn on a cron spec such as "@every 10m".
func (s *Scheduler) Schedule(spec string, fn func()) error {
	if _, err := s.cron.AddFunc(spec, fn); err != nil {
		return errors.Wrapf(err, "scheduling %q", spec)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
