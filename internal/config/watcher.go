package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher hot-reloads the configuration file in development so an embedding
// app can iterate on settings without restarting. Outside development it is
// inert and only serves the initial config.
type Watcher struct {
	mu        sync.RWMutex
	config    *Config
	path      string
	callbacks []func(*Config)
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
}

// NewWatcher creates a watcher over the config file at path.
func NewWatcher(initial *Config, path string, logger *zap.Logger) (*Watcher, error) {
	w := &Watcher{
		config: initial,
		path:   path,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	if !initial.IsDevelopment() || path == "" {
		logger.Info("configuration hot reload disabled",
			zap.String("environment", string(initial.Environment)),
		)
		return w, nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := fsWatcher.Add(path); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("watch config file: %w", err)
	}
	w.watcher = fsWatcher
	go w.watchLoop()

	logger.Info("configuration hot reload enabled", zap.String("file", path))
	return w, nil
}

func (w *Watcher) watchLoop() {
	defer w.watcher.Close()

	// Debounce rapid write bursts from editors into one reload.
	var debounce *time.Timer
	const debounceDelay = 500 * time.Millisecond

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", zap.Error(err))

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) reload() {
	next, err := Load(w.path)
	if err != nil {
		w.logger.Error("invalid configuration after reload", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.config = next
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	for _, cb := range callbacks {
		cb(next)
	}
	w.logger.Info("configuration reloaded",
		zap.String("file", w.path),
		zap.Int("callbacks_notified", len(callbacks)),
	)
}

// OnChange registers a callback invoked after each successful reload.
func (w *Watcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Config returns the current configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Stop ends watching. Safe when hot reload was never enabled.
func (w *Watcher) Stop() {
	if w.watcher != nil {
		close(w.stopCh)
	}
}
