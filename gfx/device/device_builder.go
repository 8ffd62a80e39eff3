package device

import "github.com/cogentcore/webgpu/wgpu"

// deviceConfig carries construction options.
type deviceConfig struct {
	label                string
	surfaceDescriptor    *wgpu.SurfaceDescriptor
	forceFallbackAdapter bool
}

// DeviceBuilderOption is a function that modifies the device configuration
// during construction.
type DeviceBuilderOption func(*deviceConfig)

// WithLabel sets the debug label used for the device and everything created
// at init.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - DeviceBuilderOption: a function that applies the label
func WithLabel(label string) DeviceBuilderOption {
	return func(cfg *deviceConfig) {
		if label != "" {
			cfg.label = label
		}
	}
}

// WithSurfaceDescriptor attaches a window surface, used by the debug mirror
// window. Headless rendering needs no surface.
//
// Parameters:
//   - descriptor: the surface descriptor from the windowing layer
//
// Returns:
//   - DeviceBuilderOption: a function that applies the surface
func WithSurfaceDescriptor(descriptor *wgpu.SurfaceDescriptor) DeviceBuilderOption {
	return func(cfg *deviceConfig) {
		cfg.surfaceDescriptor = descriptor
	}
}

// WithForceFallbackAdapter requests the software fallback adapter, useful on
// hosts without a GPU.
//
// Returns:
//   - DeviceBuilderOption: a function that sets the fallback flag
func WithForceFallbackAdapter() DeviceBuilderOption {
	return func(cfg *deviceConfig) {
		cfg.forceFallbackAdapter = true
	}
}
