package swapchain

import "github.com/cogentcore/webgpu/wgpu"

// TrackerBuilderOption is a function that modifies the tracker configuration
// during construction.
type TrackerBuilderOption func(*tracker)

// WithLabel sets the debug label used in diagnostics and for fallback depth
// texture labels.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - TrackerBuilderOption: a function that applies the label
func WithLabel(label string) TrackerBuilderOption {
	return func(t *tracker) {
		if label != "" {
			t.label = label
		}
	}
}

// WithDepthFormat sets the format used when allocating fallback depth images.
//
// Parameters:
//   - format: the depth texture format
//
// Returns:
//   - TrackerBuilderOption: a function that applies the format
func WithDepthFormat(format wgpu.TextureFormat) TrackerBuilderOption {
	return func(t *tracker) {
		if format != wgpu.TextureFormatUndefined {
			t.depthFormat = format
		}
	}
}
