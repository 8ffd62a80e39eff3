package pipeline

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Factory compiles a render pipeline for a state key. The graphics device
// satisfies this using the static shader pair; tests inject a fake.
type Factory interface {
	// CreatePipeline compiles a pipeline matching the key's fixed-function
	// state.
	//
	// Parameters:
	//   - key: the structural pipeline state
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the compiled pipeline
	//   - error: an error if compilation fails
	CreatePipeline(key StateKey) (*wgpu.RenderPipeline, error)
}

// Cache memoizes compiled pipelines by structural key with exactly-once
// creation per key.
//
// Accessed from the single rendering path; not safe for concurrent use.
type Cache interface {
	// GetOrCreate returns the pipeline for the key, compiling and inserting
	// it on first use. Equal keys always resolve to the identical pipeline
	// object.
	//
	// Parameters:
	//   - key: the structural pipeline state
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the cached or newly compiled pipeline
	//   - error: an error if compilation fails
	GetOrCreate(key StateKey) (*wgpu.RenderPipeline, error)

	// Len returns the number of cached pipelines.
	//
	// Returns:
	//   - int: the entry count
	Len() int

	// DropAll destroys every cached pipeline and empties the cache. Used
	// when the owning device context is torn down.
	DropAll()
}

// cache is the implementation of the Cache interface.
type cache struct {
	factory Factory
	entries map[StateKey]*wgpu.RenderPipeline
	release func(*wgpu.RenderPipeline)
}

var _ Cache = &cache{}

// NewCache creates an empty pipeline cache.
// Panics if the factory is nil.
//
// Parameters:
//   - factory: the pipeline compiler (must not be nil)
//   - options: variadic list of CacheBuilderOption functions to configure the cache
//
// Returns:
//   - Cache: a new empty cache
func NewCache(factory Factory, options ...CacheBuilderOption) Cache {
	if factory == nil {
		panic("pipeline: NewCache requires a non-nil Factory")
	}
	c := &cache{
		factory: factory,
		entries: make(map[StateKey]*wgpu.RenderPipeline),
		release: func(p *wgpu.RenderPipeline) { p.Release() },
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *cache) GetOrCreate(key StateKey) (*wgpu.RenderPipeline, error) {
	if p, ok := c.entries[key]; ok {
		return p, nil
	}
	p, err := c.factory.CreatePipeline(key)
	if err != nil {
		return nil, fmt.Errorf("pipeline: failed to compile pipeline for key {%s}: %w", key, err)
	}
	c.entries[key] = p
	return p, nil
}

func (c *cache) Len() int {
	return len(c.entries)
}

func (c *cache) DropAll() {
	for key, p := range c.entries {
		if p != nil {
			c.release(p)
		}
		delete(c.entries, key)
	}
}
