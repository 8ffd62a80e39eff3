package pipeline

import "github.com/cogentcore/webgpu/wgpu"

// CacheBuilderOption is a function that modifies the cache configuration
// during construction.
type CacheBuilderOption func(*cache)

// WithReleaser overrides how dropped pipelines are destroyed. The default
// releases the native pipeline object immediately; callers that defer
// destruction can substitute their own disposal.
//
// Parameters:
//   - release: the disposal function invoked per dropped pipeline
//
// Returns:
//   - CacheBuilderOption: a function that applies the releaser
func WithReleaser(release func(*wgpu.RenderPipeline)) CacheBuilderOption {
	return func(c *cache) {
		if release != nil {
			c.release = release
		}
	}
}
