package syncjob

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// Runner is one unit of scheduled work.
type Runner interface {
	Run(ctx context.Context) error
}

// Scheduler runs a Runner immediately and then once per interval until
// stopped. Runs never overlap: ticks that fire during a run are dropped.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *logrus.Logger

	runs     atomic.Int64
	failures atomic.Int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(runner Runner, interval time.Duration, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{runner: runner, interval: interval, logger: logger}
}

// Start launches the scheduling goroutine. It is not safe to call twice.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop cancels any run in flight and waits for the goroutine to exit.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.WithField("interval", s.interval.String()).Info("scheduler started")
	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	s.runs.Inc()
	if err := s.runner.Run(ctx); err != nil {
		s.failures.Inc()
	}
	s.logger.WithFields(logrus.Fields{
		"runs":     s.runs.Load(),
		"failures": s.failures.Load(),
	}).Debug("scheduled run finished")
}

func (s *Scheduler) Runs() int64 {
	return s.runs.Load()
}

func (s *Scheduler) Failures() int64 {
	return s.failures.Load()
}
