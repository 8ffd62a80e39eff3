package texture

import "github.com/cogentcore/webgpu/wgpu"

// CacheBuilderOption is a function that modifies the cache configuration
// during construction.
type CacheBuilderOption func(*cache)

// WithLabel sets the debug label prefix used for uploaded textures.
//
// Parameters:
//   - label: the debug label prefix
//
// Returns:
//   - CacheBuilderOption: a function that applies the label
func WithLabel(label string) CacheBuilderOption {
	return func(c *cache) {
		if label != "" {
			c.label = label
		}
	}
}

// WithReleasers overrides how GPU objects are destroyed when the last
// reference to a bundle drops. Nil functions keep their defaults.
//
// Parameters:
//   - tex: disposal for textures, or nil
//   - view: disposal for views, or nil
//   - sampler: disposal for samplers, or nil
//
// Returns:
//   - CacheBuilderOption: a function that applies the releasers
func WithReleasers(tex func(*wgpu.Texture), view func(*wgpu.TextureView), sampler func(*wgpu.Sampler)) CacheBuilderOption {
	return func(c *cache) {
		if tex != nil {
			c.releaseTexture = tex
		}
		if view != nil {
			c.releaseView = view
		}
		if sampler != nil {
			c.releaseSampler = sampler
		}
	}
}
