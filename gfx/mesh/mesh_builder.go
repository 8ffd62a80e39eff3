package mesh

// meshConfig carries construction options.
type meshConfig struct {
	label string
}

// MeshBuilderOption is a function that modifies the mesh configuration
// during construction.
type MeshBuilderOption func(*meshConfig)

// WithLabel sets the debug label used for the mesh's buffers.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - MeshBuilderOption: a function that applies the label
func WithLabel(label string) MeshBuilderOption {
	return func(cfg *meshConfig) {
		if label != "" {
			cfg.label = label
		}
	}
}
