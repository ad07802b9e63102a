package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Job is one periodic unit of work. ctx is cancelled by Stop.
type Job func(ctx context.Context) error

// Scheduler runs a single job every interval, starting immediately. A run
// that is still going when the next tick arrives makes that tick a no-op.
type Scheduler struct {
	scheduler *gocron.Scheduler
	name      string
	interval  time.Duration
	job       Job
	log       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Scheduler.
func New(name string, interval time.Duration, job Job, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: s,
		name:      name,
		interval:  interval,
		job:       job,
		log:       logger.With(slog.String("job", name)),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		return errors.New("scheduler: interval must be positive")
	}
	_, err := s.scheduler.Every(s.interval).Do(s.run)
	if err != nil {
		return err
	}
	s.scheduler.StartAsync()
	s.log.Info("scheduler started", slog.Duration("interval", s.interval))
	return nil
}

func (s *Scheduler) run() {
	if s.ctx.Err() != nil {
		return
	}
	start := time.Now()
	s.log.Debug("job starting")
	if err := s.job(s.ctx); err != nil {
		s.log.Error("job failed", slog.Duration("took", time.Since(start)), slog.Any("err", err))
		return
	}
	s.log.Debug("job finished", slog.Duration("took", time.Since(start)))
}

// Stop cancels the running job's context and stops future runs.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
