// Package material holds the mutable PBR shading state attached to
// primitives: color factors, metallic-roughness parameters, blend and
// sidedness flags, and the shared texture bundle per material slot.
package material

import (
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/pipeline"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/texture"
)

// Slot identifies one texture attachment point on a material.
type Slot int

const (
	// SlotBaseColor is the albedo texture.
	SlotBaseColor Slot = iota

	// SlotMetallicRoughness packs metallic in blue and roughness in green.
	SlotMetallicRoughness

	// SlotOcclusion is the ambient occlusion texture.
	SlotOcclusion

	// SlotNormal is the tangent-space normal map.
	SlotNormal

	// SlotEmissive is the emissive color texture.
	SlotEmissive

	// SlotCount is the number of texture slots.
	SlotCount
)

// Material is the PBR shading state for a primitive. Mutable via setters;
// cloned copies are fully independent. Destroyed when its owning arena entry
// is recycled.
type Material interface {
	// Name returns the material's identifier.
	//
	// Returns:
	//   - string: the material name
	Name() string

	// BaseColor returns the RGBA base color factor.
	//
	// Returns:
	//   - [4]float32: the base color factor
	BaseColor() [4]float32

	// SetBaseColor sets the RGBA base color factor.
	//
	// Parameters:
	//   - rgba: the base color factor
	SetBaseColor(rgba [4]float32)

	// Metallic returns the metallic factor.
	//
	// Returns:
	//   - float32: the metallic factor
	Metallic() float32

	// SetMetallic sets the metallic factor.
	//
	// Parameters:
	//   - metallic: the metallic factor in [0, 1]
	SetMetallic(metallic float32)

	// Roughness returns the roughness factor.
	//
	// Returns:
	//   - float32: the roughness factor
	Roughness() float32

	// SetRoughness sets the roughness factor.
	//
	// Parameters:
	//   - roughness: the roughness factor in [0, 1]
	SetRoughness(roughness float32)

	// Emissive returns the RGB emissive factor.
	//
	// Returns:
	//   - [3]float32: the emissive factor
	Emissive() [3]float32

	// SetEmissive sets the RGB emissive factor.
	//
	// Parameters:
	//   - rgb: the emissive factor
	SetEmissive(rgb [3]float32)

	// BlendMode returns the blend mode used to key the primitive's pipeline.
	//
	// Returns:
	//   - pipeline.BlendMode: the blend mode
	BlendMode() pipeline.BlendMode

	// SetBlendMode sets the blend mode.
	//
	// Parameters:
	//   - mode: the blend mode
	SetBlendMode(mode pipeline.BlendMode)

	// DoubleSided reports whether back-face culling is disabled.
	//
	// Returns:
	//   - bool: true if the material renders both faces
	DoubleSided() bool

	// SetDoubleSided sets the double-sided flag.
	//
	// Parameters:
	//   - doubleSided: true to render both faces
	SetDoubleSided(doubleSided bool)

	// Hidden reports whether primitives using this material are skipped
	// during rendering.
	//
	// Returns:
	//   - bool: true if hidden
	Hidden() bool

	// SetHidden sets the hidden flag.
	//
	// Parameters:
	//   - hidden: true to skip primitives using this material
	SetHidden(hidden bool)

	// Texture returns the shared texture bundle in a slot, or nil.
	//
	// Parameters:
	//   - slot: the texture slot
	//
	// Returns:
	//   - *texture.Shared: the bundle or nil
	Texture(slot Slot) *texture.Shared

	// SetTexture attaches a shared texture bundle to a slot, taking over the
	// caller's reference. Any previous bundle in the slot is released.
	//
	// Parameters:
	//   - slot: the texture slot
	//   - shared: the bundle to attach, or nil to clear the slot
	SetTexture(slot Slot, shared *texture.Shared)

	// GPUParams packs the shading factors into the shader's uniform layout.
	//
	// Returns:
	//   - GPUMaterialParams: the packed uniform data
	GPUParams() GPUMaterialParams

	// Clone creates an independent copy sharing the same texture bundles
	// (each slot's reference count is incremented).
	//
	// Returns:
	//   - Material: the cloned material
	Clone() Material

	// Release drops the material's texture references.
	Release()
}

// material is the implementation of the Material interface.
type material struct {
	name string

	baseColor         [4]float32
	metallic          float32
	roughness         float32
	emissive          [3]float32
	occlusionStrength float32
	normalScale       float32

	blendMode   pipeline.BlendMode
	doubleSided bool
	hidden      bool

	textures [SlotCount]*texture.Shared
}

var _ Material = &material{}

// NewMaterial creates a material with neutral defaults: white base color,
// dielectric, fully rough, opaque, single-sided, visible.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: the new material
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		name:              "Material",
		baseColor:         [4]float32{1, 1, 1, 1},
		metallic:          0,
		roughness:         1,
		occlusionStrength: 1,
		normalScale:       1,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) BaseColor() [4]float32 {
	return m.baseColor
}

func (m *material) SetBaseColor(rgba [4]float32) {
	m.baseColor = rgba
}

func (m *material) Metallic() float32 {
	return m.metallic
}

func (m *material) SetMetallic(metallic float32) {
	m.metallic = metallic
}

func (m *material) Roughness() float32 {
	return m.roughness
}

func (m *material) SetRoughness(roughness float32) {
	m.roughness = roughness
}

func (m *material) Emissive() [3]float32 {
	return m.emissive
}

func (m *material) SetEmissive(rgb [3]float32) {
	m.emissive = rgb
}

func (m *material) BlendMode() pipeline.BlendMode {
	return m.blendMode
}

func (m *material) SetBlendMode(mode pipeline.BlendMode) {
	m.blendMode = mode
}

func (m *material) DoubleSided() bool {
	return m.doubleSided
}

func (m *material) SetDoubleSided(doubleSided bool) {
	m.doubleSided = doubleSided
}

func (m *material) Hidden() bool {
	return m.hidden
}

func (m *material) SetHidden(hidden bool) {
	m.hidden = hidden
}

func (m *material) Texture(slot Slot) *texture.Shared {
	return m.textures[slot]
}

func (m *material) SetTexture(slot Slot, shared *texture.Shared) {
	if prev := m.textures[slot]; prev != nil {
		prev.Release()
	}
	m.textures[slot] = shared
}

func (m *material) GPUParams() GPUMaterialParams {
	return GPUMaterialParams{
		BaseColor:         m.baseColor,
		Emissive:          [4]float32{m.emissive[0], m.emissive[1], m.emissive[2], 0},
		Metallic:          m.metallic,
		Roughness:         m.roughness,
		OcclusionStrength: m.occlusionStrength,
		NormalScale:       m.normalScale,
	}
}

func (m *material) Clone() Material {
	clone := *m
	for slot, shared := range m.textures {
		if shared != nil {
			clone.textures[slot] = shared.Retain()
		}
	}
	return &clone
}

func (m *material) Release() {
	for slot, shared := range m.textures {
		if shared != nil {
			shared.Release()
			m.textures[slot] = nil
		}
	}
}
