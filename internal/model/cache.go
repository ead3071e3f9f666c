package model

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	whispercpp "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/voxworks/whisperd/internal/device"
)

// Handle is one loaded inference model. At most one Handle exists per model
// name per process; handles live until process exit.
type Handle struct {
	Name      string
	Path      string
	Device    device.Kind
	Precision device.Precision
	Model     whispercpp.Model
}

// LoadFunc materializes a Handle for a model name. It is invoked at most
// once per name at a time; a failed invocation may be retried by a later
// Acquire.
type LoadFunc func(ctx context.Context, name string) (*Handle, error)

// Cache is the process-wide model cache. Lookups for already-loaded models
// are lock-free; each name loads under its own arbitration so unrelated
// loads never serialize on each other. Nothing is ever evicted: reload
// latency is the dominant controllable cost in interactive transcription.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	load    LoadFunc
}

type cacheEntry struct {
	mu     sync.Mutex
	handle atomic.Pointer[Handle]
}

func NewCache(load LoadFunc) *Cache {
	return &Cache{
		entries: make(map[string]*cacheEntry),
		load:    load,
	}
}

// Acquire returns the handle for name, loading it on first use. Concurrent
// callers for the same name block until the single winning load completes
// and then share its handle. A failed load leaves no entry state behind, so
// the next Acquire retries from scratch.
func (c *Cache) Acquire(ctx context.Context, name string) (*Handle, error) {
	c.mu.Lock()
	entry, ok := c.entries[name]
	if !ok {
		entry = &cacheEntry{}
		c.entries[name] = entry
	}
	c.mu.Unlock()

	if handle := entry.handle.Load(); handle != nil {
		return handle, nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if handle := entry.handle.Load(); handle != nil {
		return handle, nil
	}

	handle, err := c.load(ctx, name)
	if err != nil {
		return nil, err
	}

	entry.handle.Store(handle)
	return handle, nil
}

// Loaded reports the names with a fully loaded handle, sorted.
func (c *Cache) Loaded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var names []string
	for name, entry := range c.entries {
		if entry.handle.Load() != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
