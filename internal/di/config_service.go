package di

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/omarluq/playground-relay/internal/config"
)

// ConfigService holds the live configuration. Reads go through an atomic
// runtime so in-flight requests keep the snapshot they started with.
type ConfigService struct {
	runtime   *config.Runtime
	watcher   *config.Watcher
	path      string
	callbacks []config.ReloadCallback
	mu        sync.Mutex
}

// Get returns the current configuration.
func (c *ConfigService) Get() *config.Config {
	return c.runtime.Get()
}

// Path returns the loaded config file path.
func (c *ConfigService) Path() string {
	return c.path
}

// OnReload registers a callback run after each accepted reload, once the new
// configuration is visible through Get.
func (c *ConfigService) OnReload(cb config.ReloadCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, cb)
}

// apply publishes cfg and notifies the registered services.
func (c *ConfigService) apply(cfg *config.Config) error {
	c.runtime.Store(cfg)

	c.mu.Lock()
	callbacks := make([]config.ReloadCallback, len(c.callbacks))
	copy(callbacks, c.callbacks)
	c.mu.Unlock()

	for _, cb := range callbacks {
		if err := cb(cfg); err != nil {
			log.Error().Err(err).Msg("config reload callback error")
		}
	}
	return nil
}

// StartWatching begins watching the config file for changes.
// This should be called after the DI container is fully initialized.
// The context controls the watcher lifecycle - cancel to stop watching.
func (c *ConfigService) StartWatching(ctx context.Context) {
	if c.watcher == nil {
		return
	}

	go func() {
		if err := c.watcher.Watch(ctx); err != nil {
			log.Error().Err(err).Msg("config watcher error")
		}
	}()

	log.Info().Str("path", c.path).Msg("config file watcher started")
}

// Shutdown implements do.Shutdowner for graceful watcher cleanup.
func (c *ConfigService) Shutdown() error {
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

// NewConfig loads and validates the configuration and creates its watcher.
// The watcher is created but not started - call StartWatching() after container init.
func NewConfig(i do.Injector) (*ConfigService, error) {
	path := do.MustInvokeNamed[string](i, ConfigPathKey)

	cfg, err := config.LoadAndValidate(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	svc := newConfigService(cfg, path)

	// Hot reload is optional; a missing watcher only disables it.
	watcher, err := config.NewWatcher(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("config watcher creation failed, hot-reload disabled")
		return svc, nil
	}
	watcher.OnReload(svc.apply)
	svc.watcher = watcher

	return svc, nil
}

func newConfigService(cfg *config.Config, path string) *ConfigService {
	return &ConfigService{
		runtime: config.NewRuntime(cfg),
		path:    path,
	}
}
