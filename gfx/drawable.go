// Package gfx is the conformance-layer facade over the rendering subsystem.
// A Plugin owns the device, the execution context, the swapchain tracker, the
// render-target / pipeline / texture caches, and the handle registries for
// meshes, materials, models, and model instances, and exposes the operations
// the test layer drives: allocating swapchain image data, clearing image
// slices, and rendering views of cubes, meshes, and model instances.
package gfx

import (
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/material"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/mesh"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/model"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/pipeline"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/registry"
)

// Handle aliases for the plugin's four arenas. The test layer holds these
// instead of pointers; a recycled slot invalidates old handles by generation.
type (
	MeshHandle     = registry.Handle[*mesh.Mesh]
	MaterialHandle = registry.Handle[material.Material]
	ModelHandle    = registry.Handle[*model.Model]
	InstanceHandle = registry.Handle[*model.Instance]
)

// Viewport is the screen-space rectangle a view renders into.
type Viewport struct {
	X      float32
	Y      float32
	Width  float32
	Height float32
}

// ViewParameters describes one rendered view: camera matrices, the viewport,
// and the fixed-function dimensions that feed the pipeline key.
type ViewParameters struct {
	// View is the 4x4 column-major world-to-camera matrix.
	View []float32
	// Projection is the 4x4 column-major camera-to-clip matrix.
	Projection []float32
	// Eye is the camera position in world space, fed to the shader for
	// specular shading.
	Eye [3]float32
	// Viewport bounds the rendered region. A zero-value viewport means the
	// full render target.
	Viewport Viewport
	// FillMode selects solid or wireframe rendering.
	FillMode pipeline.FillMode
	// DepthDirection selects forward or reversed depth testing.
	DepthDirection pipeline.DepthDirection
	// ClearColor fills the color attachment before drawing.
	ClearColor [4]float32
}

// CubeDrawable is a solid-color unit cube placed by a world transform. The
// plugin owns a shared cube mesh and memoizes one material per distinct
// color.
type CubeDrawable struct {
	// Color is the cube's base color (linear RGBA).
	Color [4]float32
	// Transform is the 4x4 column-major world transform; nil means identity.
	Transform []float32
}

// MeshDrawable draws a registered mesh with a registered material at a world
// transform.
type MeshDrawable struct {
	Mesh     MeshHandle
	Material MaterialHandle
	// Transform is the 4x4 column-major world transform; nil means identity.
	Transform []float32
}

// InstanceDrawable draws one model instance. The instance's own root and
// node transforms position it; dirty transforms are resolved before
// recording starts.
type InstanceDrawable struct {
	Instance InstanceHandle
}

// DrawableList is everything one RenderView call draws.
type DrawableList struct {
	Cubes     []CubeDrawable
	Meshes    []MeshDrawable
	Instances []InstanceDrawable
}
