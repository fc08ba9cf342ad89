// Package bot wires up and runs the approval workflow engine process.
package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hucksarn/movieflixdash/internal/application/workflow"
	"github.com/hucksarn/movieflixdash/internal/infrastructure/config"
	"github.com/hucksarn/movieflixdash/internal/infrastructure/downloadmanager"
	"github.com/hucksarn/movieflixdash/internal/infrastructure/mediaserver"
	"github.com/hucksarn/movieflixdash/internal/infrastructure/requestmanager"
	"github.com/hucksarn/movieflixdash/internal/infrastructure/store"
	"github.com/hucksarn/movieflixdash/internal/infrastructure/telegram"
	"github.com/hucksarn/movieflixdash/internal/shared/lock"
	"github.com/hucksarn/movieflixdash/internal/shared/logger"
)

var env string

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run the approval workflow bot",
		Long:  `Run the Telegram approval bot: admin notifications for pending payments and media requests, and inline approve/reject handling.`,
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

	log := logger.NewLogger().Named("bot")
	log.Infow("starting workflow bot", "environment", env, "store_dir", cfg.Store.Dir)

	fileStore, err := store.NewFileStore(cfg.Store.Dir)
	if err != nil {
		return fmt.Errorf("failed to open document store: %w", err)
	}
	docs := store.NewDocuments(fileStore)

	settingsDoc, err := docs.Settings()
	if err != nil {
		return fmt.Errorf("failed to load settings document: %w", err)
	}

	botToken := settingsDoc.BotToken
	if botToken == "" {
		botToken = cfg.Telegram.BotToken
	}
	if botToken == "" {
		return fmt.Errorf("no bot token in settings document or configuration")
	}

	// a second bot instance would double every notification; refuse to start
	instanceLock, err := lock.Acquire(fileStore.Dir(), "bot.lock")
	if err != nil {
		if errors.Is(err, lock.ErrAlreadyRunning) {
			log.Warn("another bot instance is already running, exiting")
			return nil
		}
		return fmt.Errorf("failed to acquire instance lock: %w", err)
	}
	defer instanceLock.Release()

	chat := telegram.NewBotService(botToken)
	media := mediaserver.NewClient(settingsDoc.MediaServerURL, settingsDoc.MediaServerKey, log)
	reqmgr := requestmanager.NewClient(settingsDoc.RequestManagerURL, settingsDoc.RequestManagerKey, settingsDoc.RequestManagerServerID, log)
	movies := downloadmanager.NewClient(settingsDoc.MovieManagerURL, settingsDoc.MovieManagerKey, log.Named("movies"))
	series := downloadmanager.NewClient(settingsDoc.SeriesManagerURL, settingsDoc.SeriesManagerKey, log.Named("series"))

	engine := workflow.NewEngine(docs, chat, media, reqmgr, movies, series, log)

	watcher, err := store.NewWatcher(fileStore.Dir(), []string{
		store.DocSubscriptions,
		store.DocMediaRequests,
		store.DocSettings,
	}, cfg.Bot.Debounce, log)
	if err != nil {
		return fmt.Errorf("failed to watch document store: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go watcher.Run(ctx)

	polling := telegram.NewPollingService(chat, engine, engine, cfg.Telegram.PollTimeout, log)
	go polling.Run(ctx)

	loop := workflow.NewLoop(engine, watcher.Signals(), cfg.Bot.SweepInterval, log)

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

	log.Info("workflow bot exited")
	return nil
}
