package gfx

import "github.com/cogentcore/webgpu/wgpu"

// pluginConfig carries construction options.
type pluginConfig struct {
	label       string
	depthFormat wgpu.TextureFormat
	workers     int
}

// PluginBuilderOption is a function that modifies the plugin configuration
// during construction.
type PluginBuilderOption func(*pluginConfig)

// WithLabel sets the debug label used for the plugin's context, caches, and
// resources.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - PluginBuilderOption: a function that applies the label
func WithLabel(label string) PluginBuilderOption {
	return func(cfg *pluginConfig) {
		if label != "" {
			cfg.label = label
		}
	}
}

// WithDepthFormat sets the format used for lazily allocated fallback depth
// images.
//
// Parameters:
//   - format: the depth format
//
// Returns:
//   - PluginBuilderOption: a function that applies the format
func WithDepthFormat(format wgpu.TextureFormat) PluginBuilderOption {
	return func(cfg *pluginConfig) {
		if format != wgpu.TextureFormatUndefined {
			cfg.depthFormat = format
		}
	}
}

// WithWorkers sets the worker count for the parallel transform prep phase.
//
// Parameters:
//   - workers: the worker count, must be positive
//
// Returns:
//   - PluginBuilderOption: a function that applies the count
func WithWorkers(workers int) PluginBuilderOption {
	return func(cfg *pluginConfig) {
		if workers > 0 {
			cfg.workers = workers
		}
	}
}
