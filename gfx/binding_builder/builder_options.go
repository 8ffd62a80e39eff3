package binding_builder

import "github.com/cogentcore/webgpu/wgpu"

// BuilderOption is a function that modifies the builder configuration during
// construction.
type BuilderOption func(*builder)

// WithLabel sets the debug label used for the bind group and diagnostics.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - BuilderOption: a function that applies the label
func WithLabel(label string) BuilderOption {
	return func(b *builder) {
		if label != "" {
			b.label = label
		}
	}
}

// WithReleaser overrides how the built bind group is destroyed when the
// binding set is released.
//
// Parameters:
//   - release: the disposal function
//
// Returns:
//   - BuilderOption: a function that applies the releaser
func WithReleaser(release func(*wgpu.BindGroup)) BuilderOption {
	return func(b *builder) {
		if release != nil {
			b.release = release
		}
	}
}
