package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/dshills/statebus/internal/event"
	"github.com/dshills/statebus/internal/log"
)

// Reloaded is published on the holder's bus after every successful reload.
var Reloaded = event.NewEvent[Config]("config.reloaded")

// LogLevel carries the configured log level. Subscribers see it once on
// subscribe and again only when a reload changes it.
var LogLevel = event.NewState[string]("config.log_level")

// defaultDebounce coalesces the burst of events editors produce on save.
const defaultDebounce = 250 * time.Millisecond

// Holder holds the current configuration and reloads it from its file.
// A reload that fails to load or validate keeps the previous configuration.
type Holder struct {
	mu      sync.RWMutex
	current Config

	path     string
	bus      *event.Bus
	debounce time.Duration
	override func(*Config)
	logger   zerolog.Logger

	watchMu sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// HolderOption configures a Holder.
type HolderOption func(*Holder)

// WithDebounce sets how long the watcher waits for file events to settle.
func WithDebounce(d time.Duration) HolderOption {
	return func(h *Holder) {
		if d > 0 {
			h.debounce = d
		}
	}
}

// WithOverrides sets a function applied to every reloaded configuration
// before it is validated, so settings given on the command line survive
// reloads. It should already have been applied to the initial configuration.
func WithOverrides(fn func(*Config)) HolderOption {
	return func(h *Holder) {
		h.override = fn
	}
}

// NewHolder creates a holder for the configuration at path, announcing
// changes on b. A nil bus addresses event.Default.
func NewHolder(initial Config, path string, b *event.Bus, opts ...HolderOption) *Holder {
	if b == nil {
		b = event.Default()
	}
	h := &Holder{
		current:  initial,
		path:     path,
		bus:      b,
		debounce: defaultDebounce,
		logger:   log.WithComponent("config"),
	}
	for _, opt := range opts {
		opt(h)
	}
	LogLevel.Set(b, initial.Log.Level)
	return h
}

// Get returns the current configuration.
func (h *Holder) Get() Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload reads the file again. On success the new configuration replaces
// the current one, Reloaded is published and LogLevel is updated.
func (h *Holder) Reload(ctx context.Context) error {
	cfg, err := h.load()
	if err != nil {
		h.logger.Error().Err(err).Str("path", h.path).Msg("config reload failed, keeping previous configuration")
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	h.current = cfg
	h.mu.Unlock()

	opt := event.WithContext(ctx)
	Reloaded.Publish(h.bus, cfg, opt)
	LogLevel.Set(h.bus, cfg.Log.Level, opt)

	h.logger.Info().Str("path", h.path).Msg("configuration reloaded")
	return nil
}

func (h *Holder) load() (Config, error) {
	cfg, err := Load(h.path)
	if err != nil {
		return Config{}, err
	}
	if h.override == nil {
		return cfg, nil
	}
	h.override(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Watch reloads the configuration whenever its file changes, until ctx is
// cancelled or Close is called. Once the watcher has stopped, Watch may be
// called again. The parent directory is watched so that
// editors replacing the file by rename are noticed.
func (h *Holder) Watch(ctx context.Context) error {
	if h.path == "" {
		h.logger.Info().Msg("no config file, watcher disabled")
		return nil
	}

	h.watchMu.Lock()
	defer h.watchMu.Unlock()
	if h.watcher != nil {
		return fmt.Errorf("config watcher already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	h.watcher = watcher
	h.done = make(chan struct{})
	go h.watchLoop(ctx, watcher, h.done)

	h.logger.Info().Str("path", h.path).Msg("watching config file for changes")
	return nil
}

// Close stops the watcher and waits for its loop to exit.
func (h *Holder) Close() error {
	h.watchMu.Lock()
	watcher, done := h.watcher, h.done
	h.watcher, h.done = nil, nil
	h.watchMu.Unlock()

	if watcher == nil {
		return nil
	}
	err := watcher.Close()
	<-done
	return err
}

func (h *Holder) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	defer func() {
		h.watchMu.Lock()
		if h.watcher == watcher {
			h.watcher, h.done = nil, nil
		}
		h.watchMu.Unlock()
	}()

	target := filepath.Clean(h.path)
	timer := time.NewTimer(h.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = watcher.Close()
			return

		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				h.logger.Debug().Str("op", ev.Op.String()).Msg("config file changed")
				timer.Reset(h.debounce)
			}

		case <-timer.C:
			_ = h.Reload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("config watcher error")
		}
	}
}
