// Package scheduler runs the report pipeline on a cron schedule for
// daemon deployments. One-shot runs (the normal cron-invoked mode) do not
// go through here.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler triggers report runs at the configured times. Runs are
// serialized: a tick that fires while a run is still in progress waits
// for it rather than overlapping.
type Scheduler struct {
	cron     *cron.Cron
	logger   *logrus.Logger
	run      func(context.Context) error
	jobMutex sync.Mutex
}

// New builds a scheduler that invokes run according to spec (standard
// five-field cron syntax, e.g. "0 13 * * *" for 13:00 daily).
func New(spec string, run func(context.Context) error, logger *logrus.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	s := &Scheduler{
		cron:   cron.New(),
		logger: logger,
		run:    run,
	}

	if _, err := s.cron.AddFunc(spec, s.runJob); err != nil {
		return nil, fmt.Errorf("invalid report schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) runJob() {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	s.logger.Info("Starting scheduled report run")
	if err := s.run(context.Background()); err != nil {
		s.logger.WithError(err).Error("Scheduled report run failed")
		return
	}
	s.logger.Info("Scheduled report run completed")
}

// Start begins the schedule in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
