// Package render_target caches the per-(image index, array slice) attachment
// bundle used to open a render pass against a swapchain image: a color slice
// view plus a depth slice view, created on first use and reused by identity
// afterwards.
package render_target

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/swapchain"
)

// RenderTarget is one cached attachment bundle. Views are owned by the cache
// and released on Reset; the underlying images belong to the swapchain
// tracker.
type RenderTarget struct {
	Index uint32
	Slice uint32

	ColorView *wgpu.TextureView
	DepthView *wgpu.TextureView

	ColorFormat wgpu.TextureFormat
	DepthFormat wgpu.TextureFormat
	Width       uint32
	Height      uint32
	SampleCount uint32
}

// ViewFactory abstracts the single-slice view creation the cache needs. The
// graphics device satisfies this; tests inject a fake.
type ViewFactory interface {
	// CreateSliceView creates a 2D view over one array layer of a texture.
	//
	// Parameters:
	//   - texture: the texture to view
	//   - format: the view format
	//   - slice: the array layer to expose
	//   - aspect: the texture aspect to expose
	//   - label: debug label for the view
	//
	// Returns:
	//   - *wgpu.TextureView: the new view
	//   - error: an error if view creation fails
	CreateSliceView(texture *wgpu.Texture, format wgpu.TextureFormat, slice uint32, aspect wgpu.TextureAspect, label string) (*wgpu.TextureView, error)
}

// Cache lazily builds and memoizes render targets per (index, slice).
//
// Accessed from the single rendering path; not safe for concurrent use.
type Cache interface {
	// BindRenderTarget returns the render target for (index, slice),
	// creating it on first use from the tracker's color image and its
	// (possibly fallback) depth image. Repeated calls return the same
	// *RenderTarget.
	//
	// Parameters:
	//   - index: the swapchain image index
	//   - slice: the array slice to render into
	//
	// Returns:
	//   - *RenderTarget: the cached or newly created target
	//   - error: an error if the index is invalid or view creation fails
	BindRenderTarget(index int, slice uint32) (*RenderTarget, error)

	// Len returns the number of cached targets.
	//
	// Returns:
	//   - int: the entry count
	Len() int

	// Reset releases all cached views and empties the cache. Called when
	// the swapchain resource set is reset.
	Reset()
}

// slotKey identifies one cached target.
type slotKey struct {
	index int
	slice uint32
}

// cache is the implementation of the Cache interface.
type cache struct {
	tracker swapchain.Tracker
	views   ViewFactory
	label   string

	slots   map[slotKey]*RenderTarget
	release func(*wgpu.TextureView)
}

var _ Cache = &cache{}

// NewCache creates an empty render target cache over a swapchain tracker.
// Panics if the tracker or view factory is nil.
//
// Parameters:
//   - tracker: the swapchain tracker supplying images (must not be nil)
//   - views: the slice view factory (must not be nil)
//   - options: variadic list of CacheBuilderOption functions to configure the cache
//
// Returns:
//   - Cache: a new empty cache
func NewCache(tracker swapchain.Tracker, views ViewFactory, options ...CacheBuilderOption) Cache {
	if tracker == nil {
		panic("render_target: NewCache requires a non-nil swapchain.Tracker")
	}
	if views == nil {
		panic("render_target: NewCache requires a non-nil ViewFactory")
	}
	c := &cache{
		tracker: tracker,
		views:   views,
		label:   "Render Target",
		slots:   make(map[slotKey]*RenderTarget),
		release: func(v *wgpu.TextureView) { v.Release() },
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *cache) BindRenderTarget(index int, slice uint32) (*RenderTarget, error) {
	key := slotKey{index: index, slice: slice}
	if rt, ok := c.slots[key]; ok {
		return rt, nil
	}

	record, err := c.tracker.Record(index)
	if err != nil {
		return nil, err
	}
	if record.Color == nil {
		return nil, fmt.Errorf("render_target: %s: no color image attached at index %d", c.label, index)
	}
	desc := c.tracker.Descriptor()
	if slice >= desc.ArrayLayers {
		return nil, fmt.Errorf("render_target: %s: slice %d out of range (%d layers)", c.label, slice, desc.ArrayLayers)
	}

	depth, err := c.tracker.GetOrCreateFallbackDepth(index)
	if err != nil {
		return nil, err
	}

	colorView, err := c.views.CreateSliceView(
		record.Color, desc.Format, slice, wgpu.TextureAspectAll,
		fmt.Sprintf("%s Color %d/%d", c.label, index, slice),
	)
	if err != nil {
		return nil, fmt.Errorf("render_target: %s: failed to create color view for (%d,%d): %w", c.label, index, slice, err)
	}
	depthView, err := c.views.CreateSliceView(
		depth, c.tracker.DepthFormat(), slice, wgpu.TextureAspectDepthOnly,
		fmt.Sprintf("%s Depth %d/%d", c.label, index, slice),
	)
	if err != nil {
		c.release(colorView)
		return nil, fmt.Errorf("render_target: %s: failed to create depth view for (%d,%d): %w", c.label, index, slice, err)
	}

	rt := &RenderTarget{
		Index:       uint32(index),
		Slice:       slice,
		ColorView:   colorView,
		DepthView:   depthView,
		ColorFormat: desc.Format,
		DepthFormat: c.tracker.DepthFormat(),
		Width:       desc.Width,
		Height:      desc.Height,
		SampleCount: desc.SampleCount,
	}
	c.slots[key] = rt
	return rt, nil
}

func (c *cache) Len() int {
	return len(c.slots)
}

func (c *cache) Reset() {
	for key, rt := range c.slots {
		if rt.ColorView != nil {
			c.release(rt.ColorView)
		}
		if rt.DepthView != nil {
			c.release(rt.DepthView)
		}
		delete(c.slots, key)
	}
}
