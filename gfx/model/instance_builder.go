package model

// InstanceBuilderOption is a function that modifies the instance
// configuration during construction.
type InstanceBuilderOption func(*Instance)

// WithLabel sets the debug label used for the instance's buffers and
// diagnostics.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - InstanceBuilderOption: a function that applies the label
func WithLabel(label string) InstanceBuilderOption {
	return func(inst *Instance) {
		if label != "" {
			inst.label = label
		}
	}
}

// WithRootTransform sets the initial root transform.
//
// Parameters:
//   - transform: 4x4 column-major root transform
//
// Returns:
//   - InstanceBuilderOption: a function that applies the transform
func WithRootTransform(transform []float32) InstanceBuilderOption {
	return func(inst *Instance) {
		if len(transform) == 16 {
			copy(inst.root, transform)
		}
	}
}
