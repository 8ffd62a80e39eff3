// Package texture memoizes GPU texture uploads. Solid-color textures are
// keyed by packed RGBA plus color space; decoded image textures by source
// identity. Entries are shared, reference-counted bundles so the cache and
// every material holding one keep the GPU objects alive until the last
// holder releases.
package texture

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/KhronosGroup/OpenXR-CTS-sub001/common"
)

// Uploader abstracts the device upload path the cache needs. The graphics
// device satisfies this; tests inject a fake.
type Uploader interface {
	// UploadRGBA creates a 2D texture from RGBA pixel data, uploads the
	// pixels, and creates a default view plus a sampler.
	//
	// Parameters:
	//   - data: the staged RGBA pixels and dimensions
	//   - srgb: true to store in an sRGB format
	//   - sampler: sampler configuration, nil for linear/repeat defaults
	//   - label: debug label for the texture
	//
	// Returns:
	//   - *wgpu.Texture: the uploaded texture
	//   - *wgpu.TextureView: a full view over it
	//   - *wgpu.Sampler: the configured sampler
	//   - error: an error if any GPU call fails
	UploadRGBA(data common.TextureStagingData, srgb bool, sampler *common.SamplerStagingData, label string) (*wgpu.Texture, *wgpu.TextureView, *wgpu.Sampler, error)
}

// Shared is a reference-counted texture bundle. The cache holds one
// reference; each material slot holding the bundle holds another. GPU
// objects are destroyed when the count reaches zero.
type Shared struct {
	Texture *wgpu.Texture
	View    *wgpu.TextureView
	Sampler *wgpu.Sampler

	mu      sync.Mutex
	refs    int
	release func(*Shared)
}

// Retain increments the reference count.
//
// Returns:
//   - *Shared: the bundle, for chaining
func (s *Shared) Retain() *Shared {
	s.mu.Lock()
	s.refs++
	s.mu.Unlock()
	return s
}

// Release decrements the reference count and destroys the GPU objects when
// the last reference drops.
func (s *Shared) Release() {
	s.mu.Lock()
	s.refs--
	last := s.refs == 0
	s.mu.Unlock()
	if last && s.release != nil {
		s.release(s)
	}
}

// solidKey identifies a solid-color entry: packed 0xRRGGBBAA plus color
// space.
type solidKey struct {
	packed uint32
	srgb   bool
}

// imageKey identifies a decoded image entry by source identity.
type imageKey struct {
	source *common.ImportedTexture
	srgb   bool
}

// Cache memoizes solid-color and image texture uploads.
//
// Safe for concurrent use: multiple helper objects may race to create the
// same solid-color texture, so lookups and inserts are mutex-guarded.
type Cache interface {
	// SolidColor returns the shared 1x1 texture for an RGBA color,
	// uploading it exactly once per distinct (color, color space) pair.
	// The returned bundle is retained for the caller.
	//
	// Parameters:
	//   - rgba: the color, each channel in [0, 1]
	//   - srgb: true to store in an sRGB format
	//
	// Returns:
	//   - *Shared: the retained shared texture bundle
	//   - error: an error if the upload fails
	SolidColor(rgba [4]float32, srgb bool) (*Shared, error)

	// FromImage decodes an imported texture and uploads it, memoized by the
	// source's identity. The returned bundle is retained for the caller.
	//
	// Parameters:
	//   - source: the imported texture to decode (must not be nil)
	//   - srgb: true to store in an sRGB format
	//
	// Returns:
	//   - *Shared: the retained shared texture bundle
	//   - error: an error if decoding or the upload fails
	FromImage(source *common.ImportedTexture, srgb bool) (*Shared, error)

	// Len returns the number of cached entries.
	//
	// Returns:
	//   - int: the entry count
	Len() int

	// DropAll releases the cache's own reference to every entry and forgets
	// them. Bundles still retained elsewhere survive until their holders
	// release.
	DropAll()
}

// cache is the implementation of the Cache interface.
type cache struct {
	uploader Uploader
	label    string

	mu     sync.Mutex
	solids map[solidKey]*Shared
	images map[imageKey]*Shared

	releaseTexture func(*wgpu.Texture)
	releaseView    func(*wgpu.TextureView)
	releaseSampler func(*wgpu.Sampler)
}

var _ Cache = &cache{}

// NewCache creates an empty texture cache.
// Panics if the uploader is nil.
//
// Parameters:
//   - uploader: the device upload path (must not be nil)
//   - options: variadic list of CacheBuilderOption functions to configure the cache
//
// Returns:
//   - Cache: a new empty cache
func NewCache(uploader Uploader, options ...CacheBuilderOption) Cache {
	if uploader == nil {
		panic("texture: NewCache requires a non-nil Uploader")
	}
	c := &cache{
		uploader:       uploader,
		label:          "Texture Cache",
		solids:         make(map[solidKey]*Shared),
		images:         make(map[imageKey]*Shared),
		releaseTexture: func(t *wgpu.Texture) { t.Release() },
		releaseView:    func(v *wgpu.TextureView) { v.Release() },
		releaseSampler: func(s *wgpu.Sampler) { s.Release() },
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// packRGBA packs a float color into 0xRRGGBBAA with per-channel clamping.
func packRGBA(rgba [4]float32) uint32 {
	var packed uint32
	for _, ch := range rgba {
		if ch < 0 {
			ch = 0
		} else if ch > 1 {
			ch = 1
		}
		packed = packed<<8 | uint32(ch*255+0.5)
	}
	return packed
}

func (c *cache) SolidColor(rgba [4]float32, srgb bool) (*Shared, error) {
	key := solidKey{packed: packRGBA(rgba), srgb: srgb}

	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.solids[key]; ok {
		return s.Retain(), nil
	}

	data := common.TextureStagingData{
		Pixels: []byte{
			byte(key.packed >> 24),
			byte(key.packed >> 16),
			byte(key.packed >> 8),
			byte(key.packed),
		},
		Width:  1,
		Height: 1,
	}
	s, err := c.upload(data, srgb, nil, fmt.Sprintf("%s Solid %08X", c.label, key.packed))
	if err != nil {
		return nil, err
	}
	c.solids[key] = s
	return s.Retain(), nil
}

func (c *cache) FromImage(source *common.ImportedTexture, srgb bool) (*Shared, error) {
	if source == nil {
		return nil, fmt.Errorf("texture: %s: nil image source", c.label)
	}
	key := imageKey{source: source, srgb: srgb}

	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.images[key]; ok {
		return s.Retain(), nil
	}

	data, err := source.Decode()
	if err != nil {
		return nil, fmt.Errorf("texture: %s: failed to decode %q: %w", c.label, source.Name, err)
	}
	s, err := c.upload(data, srgb, source.SamplerData, fmt.Sprintf("%s Image %s", c.label, source.Name))
	if err != nil {
		return nil, err
	}
	c.images[key] = s
	return s.Retain(), nil
}

// upload runs the device upload and wraps the result in a bundle holding the
// cache's own reference. Callers hold c.mu.
func (c *cache) upload(data common.TextureStagingData, srgb bool, sampler *common.SamplerStagingData, label string) (*Shared, error) {
	tex, view, samp, err := c.uploader.UploadRGBA(data, srgb, sampler, label)
	if err != nil {
		return nil, fmt.Errorf("texture: %s: upload failed for %q: %w", c.label, label, err)
	}
	s := &Shared{
		Texture: tex,
		View:    view,
		Sampler: samp,
		refs:    1,
	}
	s.release = func(dead *Shared) {
		if dead.View != nil {
			c.releaseView(dead.View)
		}
		if dead.Sampler != nil {
			c.releaseSampler(dead.Sampler)
		}
		if dead.Texture != nil {
			c.releaseTexture(dead.Texture)
		}
	}
	return s, nil
}

func (c *cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.solids) + len(c.images)
}

func (c *cache) DropAll() {
	c.mu.Lock()
	solids := c.solids
	images := c.images
	c.solids = make(map[solidKey]*Shared)
	c.images = make(map[imageKey]*Shared)
	c.mu.Unlock()

	for _, s := range solids {
		s.Release()
	}
	for _, s := range images {
		s.Release()
	}
}
