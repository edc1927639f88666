// Package scheduler runs named periodic jobs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var (
	ErrJobExists   = errors.New("job already exists")
	ErrJobNotFound = errors.New("job not found")
)

// JobFunc is one run of a job. The context is cancelled when the scheduler
// stops.
type JobFunc func(ctx context.Context) error

type Scheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	jobs   map[string]cron.EntryID
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{log}),
			cron.SkipIfStillRunning(cronLogger{log}),
		)),
		jobs:   make(map[string]cron.EntryID),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob registers fn under name. spec is a standard five field cron
// expression or a descriptor like "@hourly" or "@every 10m".
func (s *Scheduler) AddJob(name, spec string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("%w: %s", ErrJobExists, name)
	}

	id, err := s.cron.AddFunc(spec, func() { s.run(name, fn) })
	if err != nil {
		return fmt.Errorf("failed to schedule job %s, %w", name, err)
	}

	s.jobs[name] = id
	s.log.Debug("Job scheduled", zap.String("job", name), zap.String("schedule", spec))

	return nil
}

func (s *Scheduler) run(name string, fn JobFunc) {
	start := time.Now()

	if err := fn(s.ctx); err != nil {
		s.log.Error("Job failed", zap.String("job", name), zap.Error(err))
		return
	}

	s.log.Debug("Job finished", zap.String("job", name), zap.Duration("took", time.Since(start)))
}

// RunNow runs the named job once on the calling goroutine.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	id, ok := s.jobs[name]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	s.cron.Entry(id).WrappedJob.Run()
	return nil
}

// StopJob removes a job. A run that is already in progress finishes.
func (s *Scheduler) StopJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	s.cron.Remove(id)
	delete(s.jobs, name)

	return nil
}

func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for n := range s.jobs {
		names = append(names, n)
	}

	return names
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling new runs and waits for running ones to return, or
// for ctx to be done, whichever happens first. Running jobs see their
// context cancelled once ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()

	select {
	case <-done.Done():
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Sugar().Debugw(msg, kv...)
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Sugar().Errorw(msg, append(kv, "error", err)...)
}
