package reconciler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/hucksarn/movieflixdash/internal/shared/goroutine"
	"github.com/hucksarn/movieflixdash/internal/shared/logger"
)

// Loop drives the reconciler from its three triggers: one run at startup, a
// periodic tick as a catch-all, and the document watcher's debounced change
// signal. All triggers funnel into one channel, so cycles never overlap.
type Loop struct {
	reconciler *Reconciler
	signals    <-chan struct{}
	interval   time.Duration
	log        logger.Interface

	trigger chan struct{}
}

func NewLoop(r *Reconciler, signals <-chan struct{}, interval time.Duration, log logger.Interface) *Loop {
	return &Loop{
		reconciler: r,
		signals:    signals,
		interval:   interval,
		log:        log.Named("reconciler-loop"),
		trigger:    make(chan struct{}, 1),
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
		gocron.NewTask(l.requestRun),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("reconcile-tick"),
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
				l.requestRun()
			}
		}
	})

	// startup run before any trigger fires
	l.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			l.log.Info("reconciler loop stopped")
			return nil
		case <-l.trigger:
			l.runOnce(ctx)
		}
	}
}

// requestRun marks a run as pending. Coalesces when one is already queued.
func (l *Loop) requestRun() {
	select {
	case l.trigger <- struct{}{}:
	default:
	}
}

func (l *Loop) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	if err := l.reconciler.Run(runCtx); err != nil {
		if ctx.Err() != nil {
			return
		}
		l.log.Errorw("reconcile cycle failed", "error", err)
	}
}
