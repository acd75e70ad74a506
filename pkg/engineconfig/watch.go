package engineconfig

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/vfscore/engine/internal/telemetry/logger"
)

// Watcher holds a live viper instance and the most recently applied,
// validated Config, updated as the underlying file changes on disk.
// Only FreePagePoolBound and MaxOpenChannels are meant to be changed at
// runtime; PageSize, DefaultFileMode and the snapshot backend selection
// are fixed for the lifetime of an engine instance, so callers should
// treat a reload as advisory for those fields.
type Watcher struct {
	v *viper.Viper

	mu      sync.RWMutex
	current *Config
}

// Watch loads configPath (which must exist; unlike Load, Watch cannot
// silently proceed with pure defaults since there is nothing to watch)
// and starts watching it for changes via fsnotify, delivered through
// viper.WatchConfig. onChange, if non-nil, is invoked with the newly
// validated Config after each successful reload; a reload that fails
// validation is logged and the previous Config is kept current.
func Watch(configPath string, onChange func(*Config)) (*Watcher, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	w := &Watcher{v: v}
	if err := w.reload(); err != nil {
		return nil, fmt.Errorf("initial config load failed: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if err := w.reload(); err != nil {
			logger.Warn("config reload from %s failed, keeping previous config: %v", e.Name, err)
			return
		}
		logger.Info("config reloaded from %s", e.Name)
		if onChange != nil {
			onChange(w.Current())
		}
	})
	v.WatchConfig()

	return w, nil
}

func (w *Watcher) reload() error {
	var cfg Config
	if err := w.v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return err
	}

	w.mu.Lock()
	w.current = &cfg
	w.mu.Unlock()
	return nil
}

// Current returns the most recently, successfully validated Config.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}
