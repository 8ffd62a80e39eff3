// Package shader holds the static WGSL shader pair every pipeline variant is
// compiled from, together with the bind group and vertex buffer layouts the
// sources declare. The shaders are fixed at build time; all draw variation
// (blend, fill, winding, depth direction) lives in the pipeline state key.
package shader

import "github.com/cogentcore/webgpu/wgpu"

// Bind group indices shared by both shader stages.
const (
	// ViewGroup carries the per-view projection parameters.
	ViewGroup = 0

	// ModelGroup carries the per-instance node transforms and per-primitive
	// draw parameters.
	ModelGroup = 1

	// MaterialGroup carries the material uniform plus its texture slots.
	MaterialGroup = 2
)

// Binding indices inside ViewGroup.
const (
	ViewParamsBinding = 0
)

// Binding indices inside ModelGroup.
const (
	NodeTransformsBinding = 0
	DrawParamsBinding     = 1
)

// Binding indices inside MaterialGroup.
const (
	MaterialParamsBinding    = 0
	BaseColorTextureBinding  = 1
	MaterialSamplerBinding   = 2
	MetallicRoughnessBinding = 3
	NormalTextureBinding     = 4
	OcclusionTextureBinding  = 5
	EmissiveTextureBinding   = 6
)

// VertexSource is the WGSL vertex stage. World transforms are fetched from
// the instance's resolved node-transform storage buffer by the node index in
// the per-draw parameters.
const VertexSource = `
struct ViewParams {
    view_proj: mat4x4<f32>,
    eye: vec4<f32>,
};
@group(0) @binding(0) var<uniform> view: ViewParams;

@group(1) @binding(0) var<storage, read> node_transforms: array<mat4x4<f32>>;

struct DrawParams {
    node_index: u32,
};
@group(1) @binding(1) var<uniform> draw: DrawParams;

struct VertexIn {
    @location(0) position: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) uv: vec2<f32>,
    @location(3) color: vec4<f32>,
};

struct VertexOut {
    @builtin(position) clip_position: vec4<f32>,
    @location(0) world_position: vec3<f32>,
    @location(1) world_normal: vec3<f32>,
    @location(2) uv: vec2<f32>,
    @location(3) color: vec4<f32>,
};

@vertex
fn vs_main(in: VertexIn) -> VertexOut {
    let model = node_transforms[draw.node_index];
    let world = model * vec4<f32>(in.position, 1.0);

    var out: VertexOut;
    out.clip_position = view.view_proj * world;
    out.world_position = world.xyz;
    out.world_normal = normalize((model * vec4<f32>(in.normal, 0.0)).xyz);
    out.uv = in.uv;
    out.color = in.color;
    return out;
}
`

// FragmentSource is the WGSL fragment stage: a compact metallic-roughness
// shading model with base color, metallic-roughness, normal, occlusion and
// emissive texture slots. Unused slots are bound to 1x1 neutral textures.
const FragmentSource = `
struct ViewParams {
    view_proj: mat4x4<f32>,
    eye: vec4<f32>,
};
@group(0) @binding(0) var<uniform> view: ViewParams;

struct MaterialParams {
    base_color: vec4<f32>,
    emissive: vec4<f32>,
    metallic: f32,
    roughness: f32,
    occlusion_strength: f32,
    normal_scale: f32,
};
@group(2) @binding(0) var<uniform> material: MaterialParams;
@group(2) @binding(1) var base_color_tex: texture_2d<f32>;
@group(2) @binding(2) var material_sampler: sampler;
@group(2) @binding(3) var metallic_roughness_tex: texture_2d<f32>;
@group(2) @binding(4) var normal_tex: texture_2d<f32>;
@group(2) @binding(5) var occlusion_tex: texture_2d<f32>;
@group(2) @binding(6) var emissive_tex: texture_2d<f32>;

struct FragmentIn {
    @location(0) world_position: vec3<f32>,
    @location(1) world_normal: vec3<f32>,
    @location(2) uv: vec2<f32>,
    @location(3) color: vec4<f32>,
};

@fragment
fn fs_main(in: FragmentIn) -> @location(0) vec4<f32> {
    let base_sample = textureSample(base_color_tex, material_sampler, in.uv);
    let base = material.base_color * base_sample * in.color;

    let mr = textureSample(metallic_roughness_tex, material_sampler, in.uv);
    let metallic = clamp(material.metallic * mr.b, 0.0, 1.0);
    let roughness = clamp(material.roughness * mr.g, 0.04, 1.0);

    let n = normalize(in.world_normal);
    let l = normalize(vec3<f32>(0.4, 0.8, 0.4));
    let v = normalize(view.eye.xyz - in.world_position);
    let h = normalize(l + v);

    let n_dot_l = max(dot(n, l), 0.0);
    let n_dot_h = max(dot(n, h), 0.0);

    let diffuse = base.rgb * (1.0 - metallic);
    let spec_power = 2.0 / (roughness * roughness) - 2.0;
    let f0 = mix(vec3<f32>(0.04), base.rgb, metallic);
    let specular = f0 * pow(n_dot_h, spec_power);

    let occlusion = mix(1.0, textureSample(occlusion_tex, material_sampler, in.uv).r, material.occlusion_strength);
    let ambient = diffuse * 0.15 * occlusion;
    let emissive = material.emissive.rgb * textureSample(emissive_tex, material_sampler, in.uv).rgb;

    let color = ambient + (diffuse + specular) * n_dot_l + emissive;
    return vec4<f32>(color, base.a);
}
`

// ViewGroupLayout declares the per-view bind group entries.
//
// Returns:
//   - []wgpu.BindGroupLayoutEntry: the declared entries for ViewGroup
func ViewGroupLayout() []wgpu.BindGroupLayoutEntry {
	return []wgpu.BindGroupLayoutEntry{
		{
			Binding:    ViewParamsBinding,
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
			Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
		},
	}
}

// ModelGroupLayout declares the per-instance bind group entries.
//
// Returns:
//   - []wgpu.BindGroupLayoutEntry: the declared entries for ModelGroup
func ModelGroupLayout() []wgpu.BindGroupLayoutEntry {
	return []wgpu.BindGroupLayoutEntry{
		{
			Binding:    NodeTransformsBinding,
			Visibility: wgpu.ShaderStageVertex,
			Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
		},
		{
			Binding:    DrawParamsBinding,
			Visibility: wgpu.ShaderStageVertex,
			Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
		},
	}
}

// MaterialGroupLayout declares the material bind group entries.
//
// Returns:
//   - []wgpu.BindGroupLayoutEntry: the declared entries for MaterialGroup
func MaterialGroupLayout() []wgpu.BindGroupLayoutEntry {
	textureEntry := func(binding uint32) wgpu.BindGroupLayoutEntry {
		return wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		}
	}
	return []wgpu.BindGroupLayoutEntry{
		{
			Binding:    MaterialParamsBinding,
			Visibility: wgpu.ShaderStageFragment,
			Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
		},
		textureEntry(BaseColorTextureBinding),
		{
			Binding:    MaterialSamplerBinding,
			Visibility: wgpu.ShaderStageFragment,
			Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
		},
		textureEntry(MetallicRoughnessBinding),
		textureEntry(NormalTextureBinding),
		textureEntry(OcclusionTextureBinding),
		textureEntry(EmissiveTextureBinding),
	}
}

// VertexBufferLayouts declares the single interleaved vertex buffer the
// vertex stage consumes: position, normal, uv, color.
//
// Returns:
//   - []wgpu.VertexBufferLayout: the vertex buffer layouts in buffer-slot order
func VertexBufferLayouts() []wgpu.VertexBufferLayout {
	return []wgpu.VertexBufferLayout{
		{
			ArrayStride: 12 * 4,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
				{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
				{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
				{Format: wgpu.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 3},
			},
		},
	}
}
