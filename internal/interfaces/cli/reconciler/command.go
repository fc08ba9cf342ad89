// Package reconciler wires up and runs the access policy reconciler process.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	appReconciler "github.com/hucksarn/movieflixdash/internal/application/reconciler"
	"github.com/hucksarn/movieflixdash/internal/infrastructure/config"
	"github.com/hucksarn/movieflixdash/internal/infrastructure/mediaserver"
	"github.com/hucksarn/movieflixdash/internal/infrastructure/store"
	"github.com/hucksarn/movieflixdash/internal/shared/lock"
	"github.com/hucksarn/movieflixdash/internal/shared/logger"
)

var env string

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconciler",
		Short: "Run the access policy reconciler",
		Long:  `Continuously reconcile media-server access policies against the subscription documents.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "production", "Environment (development, production)")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	log := logger.NewLogger().Named("reconciler")
	log.Infow("starting reconciler", "environment", env, "store_dir", cfg.Store.Dir)

	fileStore, err := store.NewFileStore(cfg.Store.Dir)
	if err != nil {
		return fmt.Errorf("failed to open document store: %w", err)
	}
	docs := store.NewDocuments(fileStore)

	settingsDoc, err := docs.Settings()
	if err != nil {
		return fmt.Errorf("failed to load settings document: %w", err)
	}

	// two reconcilers would interleave document and policy writes; refuse to start
	instanceLock, err := lock.Acquire(fileStore.Dir(), "reconciler.lock")
	if err != nil {
		if errors.Is(err, lock.ErrAlreadyRunning) {
			log.Warn("another reconciler instance is already running, exiting")
			return nil
		}
		return fmt.Errorf("failed to acquire instance lock: %w", err)
	}
	defer instanceLock.Release()

	media := mediaserver.NewClient(settingsDoc.MediaServerURL, settingsDoc.MediaServerKey, log)

	watcher, err := store.NewWatcher(fileStore.Dir(), []string{
		store.DocSubscriptions,
		store.DocUnlimitedUsers,
		store.DocSettings,
	}, cfg.Reconciler.Debounce, log)
	if err != nil {
		return fmt.Errorf("failed to watch document store: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go watcher.Run(ctx)

	rec := appReconciler.New(docs, media, log)
	loop := appReconciler.NewLoop(rec, watcher.Signals(), cfg.Reconciler.Interval, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- loop.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Infow("shutting down", "signal", sig.String())
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("reconciler exited")
	return nil
}
