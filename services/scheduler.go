package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// AudienceRunner runs one campaign pass for an audience.
type AudienceRunner interface {
	Run(ctx context.Context, audience string) (*RunResult, error)
}

// Scheduler triggers campaign runs in-process on cron schedules. It is the
// alternative to hitting the cron endpoints from an external scheduler.
type Scheduler struct {
	cron   *cron.Cron
	runner AudienceRunner
	log    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(runner AudienceRunner, log *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	cl := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cl),
			cron.SkipIfStillRunning(cl),
		)),
		runner: runner,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add schedules an audience. spec accepts the standard five-field syntax
// and descriptors such as "@every 1h"; an empty spec disables the job.
func (s *Scheduler) Add(spec, audience string) error {
	if spec == "" {
		s.log.Info("Campaign schedule disabled", zap.String("audience", audience))
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() { s.trigger(audience) })
	if err != nil {
		return fmt.Errorf("schedule %s campaign %q: %w", audience, spec, err)
	}
	s.log.Info("Campaign scheduled", zap.String("audience", audience), zap.String("spec", spec))
	return nil
}

func (s *Scheduler) trigger(audience string) {
	if s.ctx.Err() != nil {
		return
	}

	res, err := s.runner.Run(s.ctx, audience)
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.log.Info("Scheduled run skipped, another run in progress", zap.String("audience", audience))
	case err != nil:
		s.log.Error("Scheduled campaign run failed", zap.String("audience", audience), zap.Error(err))
	default:
		s.log.Info("Scheduled campaign run",
			zap.String("audience", audience),
			zap.Int("sent", res.Sent),
			zap.Int("failed", res.Failed))
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels in-flight runs and waits for them, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
