package render_target

import "github.com/cogentcore/webgpu/wgpu"

// CacheBuilderOption is a function that modifies the cache configuration
// during construction.
type CacheBuilderOption func(*cache)

// WithLabel sets the debug label used for view labels and diagnostics.
//
// Parameters:
//   - label: the debug label
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

// WithReleaser overrides how dropped texture views are destroyed.
//
// Parameters:
//   - release: the disposal function invoked per dropped view
//
// Returns:
//   - CacheBuilderOption: a function that applies the releaser
func WithReleaser(release func(*wgpu.TextureView)) CacheBuilderOption {
	return func(c *cache) {
		if release != nil {
			c.release = release
		}
	}
}
