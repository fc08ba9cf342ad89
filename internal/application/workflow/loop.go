package workflow

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/hucksarn/movieflixdash/internal/shared/goroutine"
	"github.com/hucksarn/movieflixdash/internal/shared/logger"
)

// Loop drives the notification sweep: one pass at startup, a periodic tick,
// and a pass after each debounced document change signal.
type Loop struct {
	engine   *Engine
	signals  <-chan struct{}
	interval time.Duration
	log      logger.Interface

	trigger chan struct{}
}

func NewLoop(e *Engine, signals <-chan struct{}, interval time.Duration, log logger.Interface) *Loop {
	return &Loop{
		engine:   e,
		signals:  signals,
		interval: interval,
		log:      log.Named("workflow-loop"),
		trigger:  make(chan struct{}, 1),
	}
}

// Run blocks until the context is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(l.interval),
		gocron.NewTask(l.requestSweep),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("notification-sweep"),
	)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			l.log.Errorw("scheduler shutdown failed", "error", err)
		}
	}()

	goroutine.SafeGo(l.log, "watch-documents", func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-l.signals:
				l.log.Debug("document change signal")
				l.requestSweep()
			}
		}
	})

	l.sweepOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			l.log.Info("workflow loop stopped")
			return nil
		case <-l.trigger:
			l.sweepOnce(ctx)
		}
	}
}

func (l *Loop) requestSweep() {
	select {
	case l.trigger <- struct{}{}:
	default:
	}
}

func (l *Loop) sweepOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := l.engine.Sweep(sweepCtx); err != nil {
		if ctx.Err() != nil {
			return
		}
		l.log.Errorw("notification sweep failed", "error", err)
	}
}
