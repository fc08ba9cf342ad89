package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hucksarn/movieflixdash/internal/shared/logger"
)

func TestWatcherCoalescesBurst(t *testing.T) {
	dir := t.TempDir()
	log := logger.NewLogger()

	w, err := NewWatcher(dir, []string{"subscriptions.json"}, 50*time.Millisecond, log)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	path := filepath.Join(dir, "subscriptions.json")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-w.Signals():
	case <-time.After(2 * time.Second):
		t.Fatal("no signal after write burst")
	}

	// the burst settled into exactly one signal
	select {
	case <-w.Signals():
		t.Fatal("burst produced a second signal")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	log := logger.NewLogger()

	w, err := NewWatcher(dir, []string{"subscriptions.json"}, 20*time.Millisecond, log)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644))

	select {
	case <-w.Signals():
		t.Fatal("unwatched file produced a signal")
	case <-time.After(200 * time.Millisecond):
	}
}
