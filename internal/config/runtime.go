package config

import "sync/atomic"

// Runtime holds the live configuration. Reads are lock-free; the watcher
// replaces the whole value on reload so a reader never sees a half-applied
// change, and requests already running keep the value they started with.
type Runtime struct {
	ptr atomic.Pointer[Config]
}

// NewRuntime creates a Runtime holding initial.
func NewRuntime(initial *Config) *Runtime {
	r := &Runtime{}
	r.ptr.Store(initial)
	return r
}

// Get returns the current configuration.
func (r *Runtime) Get() *Config {
	return r.ptr.Load()
}

// Store replaces the configuration and returns the previous one.
func (r *Runtime) Store(cfg *Config) *Config {
	return r.ptr.Swap(cfg)
}

var _ RuntimeConfig = (*Runtime)(nil)
