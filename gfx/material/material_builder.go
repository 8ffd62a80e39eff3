package material

import "github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/pipeline"

// MaterialBuilderOption is a function that modifies the material
// configuration during construction.
type MaterialBuilderOption func(*material)

// WithName sets the material's identifier.
//
// Parameters:
//   - name: the material name
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		if name != "" {
			m.name = name
		}
	}
}

// WithBaseColor sets the RGBA base color factor.
//
// Parameters:
//   - rgba: the base color factor
//
// Returns:
//   - MaterialBuilderOption: a function that applies the base color
func WithBaseColor(rgba [4]float32) MaterialBuilderOption {
	return func(m *material) {
		m.baseColor = rgba
	}
}

// WithMetallicRoughness sets the metallic and roughness factors.
//
// Parameters:
//   - metallic: the metallic factor in [0, 1]
//   - roughness: the roughness factor in [0, 1]
//
// Returns:
//   - MaterialBuilderOption: a function that applies both factors
func WithMetallicRoughness(metallic, roughness float32) MaterialBuilderOption {
	return func(m *material) {
		m.metallic = metallic
		m.roughness = roughness
	}
}

// WithEmissive sets the RGB emissive factor.
//
// Parameters:
//   - rgb: the emissive factor
//
// Returns:
//   - MaterialBuilderOption: a function that applies the emissive factor
func WithEmissive(rgb [3]float32) MaterialBuilderOption {
	return func(m *material) {
		m.emissive = rgb
	}
}

// WithBlendMode sets the blend mode used to key the primitive's pipeline.
//
// Parameters:
//   - mode: the blend mode
//
// Returns:
//   - MaterialBuilderOption: a function that applies the blend mode
func WithBlendMode(mode pipeline.BlendMode) MaterialBuilderOption {
	return func(m *material) {
		m.blendMode = mode
	}
}

// WithDoubleSided disables back-face culling for the material.
//
// Returns:
//   - MaterialBuilderOption: a function that sets the double-sided flag
func WithDoubleSided() MaterialBuilderOption {
	return func(m *material) {
		m.doubleSided = true
	}
}

// WithOcclusionStrength sets the occlusion texture strength.
//
// Parameters:
//   - strength: the occlusion strength in [0, 1]
//
// Returns:
//   - MaterialBuilderOption: a function that applies the strength
func WithOcclusionStrength(strength float32) MaterialBuilderOption {
	return func(m *material) {
		m.occlusionStrength = strength
	}
}

// WithNormalScale sets the normal map scale.
//
// Parameters:
//   - scale: the normal scale factor
//
// Returns:
//   - MaterialBuilderOption: a function that applies the scale
func WithNormalScale(scale float32) MaterialBuilderOption {
	return func(m *material) {
		m.normalScale = scale
	}
}
