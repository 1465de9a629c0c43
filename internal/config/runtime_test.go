package config

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuntimeStoreSwapsWholeConfig(t *testing.T) {
	t.Parallel()

	first := &Config{Server: ServerConfig{Listen: "127.0.0.1:1"}}
	second := &Config{Server: ServerConfig{Listen: "127.0.0.1:2"}}

	rt := NewRuntime(first)
	assert.Same(t, first, rt.Get())

	prev := rt.Store(second)
	assert.Same(t, first, prev)
	assert.Same(t, second, rt.Get())
	assert.Equal(t, "127.0.0.1:1", first.Server.Listen, "previous snapshot must stay intact")
}

func TestRuntimeConcurrentReadersSeeCompleteValues(t *testing.T) {
	t.Parallel()

	a := &Config{Server: ServerConfig{Listen: "127.0.0.1:1"}}
	b := &Config{Server: ServerConfig{Listen: "127.0.0.1:2"}}
	rt := NewRuntime(a)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				cfg := rt.Get()
				if cfg != a && cfg != b {
					t.Errorf("unexpected config pointer %p", cfg)
					return
				}
			}
		}()
	}
	for j := 0; j < 100; j++ {
		if j%2 == 0 {
			rt.Store(b)
		} else {
			rt.Store(a)
		}
	}
	wg.Wait()
}
