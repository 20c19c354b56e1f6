package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dshills/statebus/internal/event"
)

func writeConfig(t *testing.T, path, level string) {
	t.Helper()
	data := "log:\n  level: " + level + "\nbus:\n  name: holder\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
}

type levels struct {
	mu  sync.Mutex
	got []string
}

func (l *levels) add(v string) {
	l.mu.Lock()
	l.got = append(l.got, v)
	l.mu.Unlock()
}

func (l *levels) values() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.got...)
}

func TestHolder_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statebus.yaml")
	writeConfig(t, path, "info")

	initial, err := Load(path)
	require.NoError(t, err)

	b := event.NewBus("holder-reload")
	h := NewHolder(initial, path, b)

	var seen levels
	LogLevel.Subscribe(b, seen.add)

	var reloads int
	Reloaded.Subscribe(b, func(Config) { reloads++ })

	// Same level: reload is announced, the level state stays quiet.
	require.NoError(t, h.Reload(context.Background()))

	writeConfig(t, path, "debug")
	require.NoError(t, h.Reload(context.Background()))

	assert.Equal(t, "debug", h.Get().Log.Level)
	assert.Equal(t, 2, reloads)
	assert.Equal(t, []string{"info", "debug"}, seen.values())
}

func TestHolder_ReloadKeepsPreviousOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statebus.yaml")
	writeConfig(t, path, "info")

	initial, err := Load(path)
	require.NoError(t, err)

	b := event.NewBus("holder-invalid")
	h := NewHolder(initial, path, b)

	var reloads int
	Reloaded.Subscribe(b, func(Config) { reloads++ })

	writeConfig(t, path, "loud")
	err = h.Reload(context.Background())
	require.ErrorIs(t, err, ErrInvalid)

	assert.Equal(t, "info", h.Get().Log.Level)
	assert.Equal(t, 0, reloads)
}

func TestHolder_Watch(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := filepath.Join(t.TempDir(), "statebus.yaml")
	writeConfig(t, path, "info")

	initial, err := Load(path)
	require.NoError(t, err)

	b := event.NewBus("holder-watch")
	h := NewHolder(initial, path, b, WithDebounce(10*time.Millisecond))

	var seen levels
	LogLevel.Subscribe(b, seen.add)

	require.NoError(t, h.Watch(context.Background()))
	assert.Error(t, h.Watch(context.Background()), "second watch is rejected")

	writeConfig(t, path, "warn")

	assert.Eventually(t, func() bool {
		return len(seen.values()) == 2
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"info", "warn"}, seen.values())
	assert.Equal(t, "warn", h.Get().Log.Level)

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
}

func TestHolder_WatchWithoutPath(t *testing.T) {
	h := NewHolder(Default(), "", event.NewBus("holder-nopath"))
	require.NoError(t, h.Watch(context.Background()))
	require.NoError(t, h.Close())
}

func TestHolder_ReloadKeepsOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statebus.yaml")
	writeConfig(t, path, "info")

	force := func(cfg *Config) { cfg.Log.Level = "error" }
	initial, err := Load(path)
	require.NoError(t, err)
	force(&initial)

	b := event.NewBus("holder-overrides")
	h := NewHolder(initial, path, b, WithOverrides(force))

	var seen levels
	LogLevel.Subscribe(b, seen.add)

	writeConfig(t, path, "debug")
	require.NoError(t, h.Reload(context.Background()))

	assert.Equal(t, "error", h.Get().Log.Level)
	assert.Equal(t, []string{"error"}, seen.values())
}

func TestHolder_ReloadRejectsInvalidOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statebus.yaml")
	writeConfig(t, path, "info")

	initial, err := Load(path)
	require.NoError(t, err)

	h := NewHolder(initial, path, event.NewBus("holder-bad-override"), WithOverrides(func(cfg *Config) {
		cfg.Log.Level = "loud"
	}))

	err = h.Reload(context.Background())
	require.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, "info", h.Get().Log.Level)
}

func TestHolder_WatchAgainAfterCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := filepath.Join(t.TempDir(), "statebus.yaml")
	writeConfig(t, path, "info")

	initial, err := Load(path)
	require.NoError(t, err)

	h := NewHolder(initial, path, event.NewBus("holder-rewatch"), WithDebounce(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, h.Watch(ctx))
	cancel()

	assert.Eventually(t, func() bool {
		return h.Watch(context.Background()) == nil
	}, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, h.Close())
}
