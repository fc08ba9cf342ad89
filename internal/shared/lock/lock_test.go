package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()

	l, err := Acquire(dir, "bot.pid")
	require.NoError(t, err)
	require.NotNil(t, l)

	data, err := os.ReadFile(filepath.Join(dir, "bot.pid"))
	require.NoError(t, err)
	assert.Contains(t, string(data), fmt.Sprintf("%d", os.Getpid()))

	l.Release()

	_, err = os.Stat(filepath.Join(dir, "bot.pid"))
	assert.True(t, os.IsNotExist(err))
}

func TestSecondAcquireFails(t *testing.T) {
	dir := t.TempDir()

	l, err := Acquire(dir, "bot.pid")
	require.NoError(t, err)
	defer l.Release()

	_, err = Acquire(dir, "bot.pid")
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestStaleLockIsStolen(t *testing.T) {
	dir := t.TempDir()

	// A pid that cannot belong to a live process on any reasonable system.
	path := filepath.Join(dir, "bot.pid")
	require.NoError(t, os.WriteFile(path, []byte("99999999\n"), 0o644))

	l, err := Acquire(dir, "bot.pid")
	require.NoError(t, err)
	defer l.Release()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), fmt.Sprintf("%d", os.Getpid()))
}
