package gfx

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/device"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/exec"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/material"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/mesh"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/model"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/pipeline"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/registry"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/render_target"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/swapchain"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/texture"
)

// Plugin is the interface for the conformance-layer rendering facade.
type Plugin interface {
	// AllocateSwapchainImageData sizes the swapchain tracker and attaches the
	// runtime's color images. When colorImages is nil the plugin allocates
	// and owns its own color images instead.
	//
	// Parameters:
	//   - capacity: number of swapchain images
	//   - desc: the shared image descriptor (size, layers, format, samples)
	//   - colorImages: runtime-owned color images, one per index, or nil
	//
	// Returns:
	//   - []*wgpu.Texture: the attached color images, one per index
	//   - error: an error if the tracker is already allocated or any
	//     allocation fails
	AllocateSwapchainImageData(capacity int, desc swapchain.ImageDescriptor, colorImages []*wgpu.Texture) ([]*wgpu.Texture, error)

	// AttachDepthImage attaches a runtime-owned depth image to a swapchain
	// index, suppressing the lazy fallback depth for that index.
	//
	// Parameters:
	//   - index: the swapchain image index
	//   - depth: the runtime-owned depth image
	//
	// Returns:
	//   - error: an error if the index is out of range
	AttachDepthImage(index int, depth *wgpu.Texture) error

	// ReleaseSwapchainImageData drops all per-image state: render target
	// views, owned fallback depth images, and any self-allocated color
	// images. Runtime-owned images are untouched. The tracker can be
	// re-allocated afterwards.
	ReleaseSwapchainImageData()

	// ClearImageSlice clears one array slice of a swapchain image to a solid
	// color, running a full record/submit/wait cycle.
	//
	// Parameters:
	//   - image: the runtime color image to clear
	//   - slice: the array slice
	//   - color: the clear color (linear RGBA)
	//
	// Returns:
	//   - error: an error if the image is unknown or any device call fails
	ClearImageSlice(image *wgpu.Texture, slice uint32, color [4]float32) error

	// RenderView renders a list of drawables into one array slice of a
	// swapchain image, running a full record/submit/wait cycle. Dirty model
	// instance transforms are resolved on the worker pool before recording.
	//
	// Parameters:
	//   - params: camera matrices, viewport, and fixed-function state
	//   - image: the runtime color image to render into
	//   - slice: the array slice
	//   - drawables: the cubes, meshes, and instances to draw
	//
	// Returns:
	//   - error: an error if any handle is stale or any device call fails
	RenderView(params ViewParameters, image *wgpu.Texture, slice uint32, drawables DrawableList) error

	// MakeSimpleMesh uploads immutable geometry and registers it.
	//
	// Parameters:
	//   - vertices: the vertex data
	//   - indices: the triangle-list indices
	//
	// Returns:
	//   - MeshHandle: a generation-checked handle to the mesh
	//   - error: an error if the geometry is invalid or the upload fails
	MakeSimpleMesh(vertices []mesh.Vertex, indices []uint32) (MeshHandle, error)

	// Mesh resolves a mesh handle.
	//
	// Parameters:
	//   - h: the mesh handle
	//
	// Returns:
	//   - *mesh.Mesh: the mesh
	//   - error: an error if the handle is stale
	Mesh(h MeshHandle) (*mesh.Mesh, error)

	// DestroyMesh releases a mesh and recycles its arena slot, invalidating
	// the handle.
	//
	// Parameters:
	//   - h: the mesh handle
	//
	// Returns:
	//   - error: an error if the handle is stale
	DestroyMesh(h MeshHandle) error

	// CreateMaterial creates a material and registers it.
	//
	// Parameters:
	//   - options: variadic list of MaterialBuilderOption functions
	//
	// Returns:
	//   - MaterialHandle: a generation-checked handle to the material
	CreateMaterial(options ...material.MaterialBuilderOption) MaterialHandle

	// Material resolves a material handle for mutation via its setters.
	//
	// Parameters:
	//   - h: the material handle
	//
	// Returns:
	//   - material.Material: the material
	//   - error: an error if the handle is stale
	Material(h MaterialHandle) (material.Material, error)

	// DestroyMaterial releases a material and recycles its arena slot.
	//
	// Parameters:
	//   - h: the material handle
	//
	// Returns:
	//   - error: an error if the handle is stale
	DestroyMaterial(h MaterialHandle) error

	// LoadModel uploads a loaded model description (geometry, materials,
	// textures, node hierarchy) and registers the result.
	//
	// Parameters:
	//   - ctx: context bounding the texture decode fan-out
	//   - desc: the model description from the GLTF-loading collaborator
	//
	// Returns:
	//   - ModelHandle: a generation-checked handle to the model
	//   - error: an error if the description is invalid or any upload fails
	LoadModel(ctx context.Context, desc *model.Description) (ModelHandle, error)

	// CreateModelInstance creates an independently posed instance of a
	// loaded model.
	//
	// Parameters:
	//   - h: the model handle
	//
	// Returns:
	//   - InstanceHandle: a generation-checked handle to the instance
	//   - error: an error if the model handle is stale or the transform
	//     buffer cannot be created
	CreateModelInstance(h ModelHandle) (InstanceHandle, error)

	// Instance resolves an instance handle for posing and visibility.
	//
	// Parameters:
	//   - h: the instance handle
	//
	// Returns:
	//   - *model.Instance: the instance
	//   - error: an error if the handle is stale
	Instance(h InstanceHandle) (*model.Instance, error)

	// DestroyModelInstance releases an instance and recycles its arena slot.
	//
	// Parameters:
	//   - h: the instance handle
	//
	// Returns:
	//   - error: an error if the handle is stale
	DestroyModelInstance(h InstanceHandle) error

	// DestroyModel releases a model's geometry and recycles its arena slot.
	// Instances of the model must be destroyed first.
	//
	// Parameters:
	//   - h: the model handle
	//
	// Returns:
	//   - error: an error if the handle is stale
	DestroyModel(h ModelHandle) error

	// Shutdown tears down everything the plugin owns: registered resources,
	// all caches, swapchain state, and the device.
	Shutdown()
}

// plugin is the implementation of the Plugin interface.
type plugin struct {
	label string
	dev   device.Device
	ctx   exec.Context

	tracker   swapchain.Tracker
	targets   render_target.Cache
	pipelines pipeline.Cache
	textures  texture.Cache

	meshes    *registry.Registry[*mesh.Mesh]
	materials *registry.Registry[material.Material]
	models    *registry.Registry[*model.Model]
	instances *registry.Registry[*model.Instance]

	// pool runs the parallel CPU prep phase of RenderView. Workers persist
	// across frames, avoiding per-frame goroutine spawn/teardown overhead.
	pool       worker.DynamicWorkerPool
	poolOnce   sync.Once
	workers    int
	nextTaskID int

	// cubeMesh and cubeMaterials back CubeDrawable draws: one shared unit
	// cube plus one memoized material per distinct color.
	cubeMesh      *mesh.Mesh
	cubeMaterials map[[4]float32]MaterialHandle

	// whiteFallback fills material texture slots that have no texture so
	// every declared binding can be populated.
	whiteFallback *texture.Shared

	// ownedColors are self-allocated color images, released on reset. The
	// tracker itself never releases color images.
	ownedColors []*wgpu.Texture
}

var _ Plugin = &plugin{}

// NewPlugin creates the rendering facade over a device. The execution
// context, swapchain tracker, and all caches are constructed here and torn
// down by Shutdown.
// Panics if the device is nil.
//
// Parameters:
//   - dev: the graphics device (must not be nil)
//   - options: variadic list of PluginBuilderOption functions to configure the plugin
//
// Returns:
//   - Plugin: the new plugin
func NewPlugin(dev device.Device, options ...PluginBuilderOption) Plugin {
	if dev == nil {
		panic("gfx: NewPlugin requires a non-nil Device")
	}
	cfg := pluginConfig{
		label:       "Conformance Plugin",
		depthFormat: wgpu.TextureFormatDepth32Float,
		workers:     max(runtime.NumCPU()-1, 1),
	}
	for _, opt := range options {
		opt(&cfg)
	}

	p := &plugin{
		label:         cfg.label,
		dev:           dev,
		ctx:           exec.NewContext(dev, exec.WithLabel(cfg.label+" Context")),
		pipelines:     pipeline.NewCache(dev),
		textures:      texture.NewCache(dev),
		meshes:        registry.New[*mesh.Mesh](),
		materials:     registry.New[material.Material](),
		models:        registry.New[*model.Model](),
		instances:     registry.New[*model.Instance](),
		workers:       cfg.workers,
		cubeMaterials: make(map[[4]float32]MaterialHandle),
	}
	p.tracker = swapchain.NewTracker(dev, swapchain.WithDepthFormat(cfg.depthFormat), swapchain.WithLabel(cfg.label))
	p.targets = render_target.NewCache(p.tracker, dev, render_target.WithLabel(cfg.label))
	return p
}

// workerPool lazily starts the prep pool so plugins that never render skip
// it entirely.
func (p *plugin) workerPool() worker.DynamicWorkerPool {
	p.poolOnce.Do(func() {
		p.pool = worker.NewDynamicWorkerPool(p.workers, 256, 1*time.Second)
	})
	return p.pool
}

func (p *plugin) AllocateSwapchainImageData(capacity int, desc swapchain.ImageDescriptor, colorImages []*wgpu.Texture) ([]*wgpu.Texture, error) {
	if colorImages != nil && len(colorImages) != capacity {
		return nil, fmt.Errorf("gfx: %s: got %d color images for capacity %d", p.label, len(colorImages), capacity)
	}
	if err := p.tracker.Allocate(capacity, desc); err != nil {
		return nil, err
	}
	layers := desc.ArrayLayers
	if layers == 0 {
		layers = 1
	}
	samples := desc.SampleCount
	if samples == 0 {
		samples = 1
	}
	attached := make([]*wgpu.Texture, capacity)
	for i := 0; i < capacity; i++ {
		if colorImages != nil {
			attached[i] = colorImages[i]
		} else {
			owned, err := p.dev.CreateColorTexture(desc.Width, desc.Height, layers, desc.Format, samples,
				fmt.Sprintf("%s Color Image %d", p.label, i))
			if err != nil {
				p.ReleaseSwapchainImageData()
				return nil, err
			}
			p.ownedColors = append(p.ownedColors, owned)
			attached[i] = owned
		}
		if err := p.tracker.AttachColorImage(i, attached[i]); err != nil {
			p.ReleaseSwapchainImageData()
			return nil, err
		}
	}
	return attached, nil
}

func (p *plugin) AttachDepthImage(index int, depth *wgpu.Texture) error {
	return p.tracker.AttachDepthImage(index, depth)
}

func (p *plugin) ReleaseSwapchainImageData() {
	p.targets.Reset()
	p.tracker.Reset()
	for i, tex := range p.ownedColors {
		tex.Release()
		p.ownedColors[i] = nil
	}
	p.ownedColors = nil
}

func (p *plugin) MakeSimpleMesh(vertices []mesh.Vertex, indices []uint32) (MeshHandle, error) {
	m, err := mesh.NewMesh(p.dev, vertices, indices, mesh.WithLabel(p.label+" Mesh"))
	if err != nil {
		return MeshHandle{}, err
	}
	return p.meshes.Emplace(m), nil
}

func (p *plugin) Mesh(h MeshHandle) (*mesh.Mesh, error) {
	m, err := p.meshes.Get(h)
	if err != nil {
		return nil, err
	}
	return *m, nil
}

func (p *plugin) DestroyMesh(h MeshHandle) error {
	m, err := p.meshes.Get(h)
	if err != nil {
		return err
	}
	(*m).Release()
	return p.meshes.Remove(h)
}

func (p *plugin) CreateMaterial(options ...material.MaterialBuilderOption) MaterialHandle {
	return p.materials.Emplace(material.NewMaterial(options...))
}

func (p *plugin) Material(h MaterialHandle) (material.Material, error) {
	m, err := p.materials.Get(h)
	if err != nil {
		return nil, err
	}
	return *m, nil
}

func (p *plugin) DestroyMaterial(h MaterialHandle) error {
	m, err := p.materials.Get(h)
	if err != nil {
		return err
	}
	(*m).Release()
	return p.materials.Remove(h)
}

func (p *plugin) LoadModel(ctx context.Context, desc *model.Description) (ModelHandle, error) {
	loaded, err := model.LoadModel(ctx, p.dev, p.textures, p.materials.Emplace, desc)
	if err != nil {
		return ModelHandle{}, err
	}
	return p.models.Emplace(loaded), nil
}

func (p *plugin) CreateModelInstance(h ModelHandle) (InstanceHandle, error) {
	m, err := p.models.Get(h)
	if err != nil {
		return InstanceHandle{}, err
	}
	inst, err := model.NewInstance(*m, p.dev)
	if err != nil {
		return InstanceHandle{}, err
	}
	return p.instances.Emplace(inst), nil
}

func (p *plugin) Instance(h InstanceHandle) (*model.Instance, error) {
	inst, err := p.instances.Get(h)
	if err != nil {
		return nil, err
	}
	return *inst, nil
}

func (p *plugin) DestroyModelInstance(h InstanceHandle) error {
	inst, err := p.instances.Get(h)
	if err != nil {
		return err
	}
	(*inst).Release()
	return p.instances.Remove(h)
}

func (p *plugin) DestroyModel(h ModelHandle) error {
	m, err := p.models.Get(h)
	if err != nil {
		return err
	}
	for _, prim := range (*m).Primitives {
		if mat, err := p.materials.Get(prim.Material); err == nil {
			(*mat).Release()
			_ = p.materials.Remove(prim.Material)
		}
	}
	(*m).Release()
	return p.models.Remove(h)
}

func (p *plugin) Shutdown() {
	p.instances.Each(func(inst **model.Instance) { (*inst).Release() })
	p.instances.Clear()
	p.models.Each(func(m **model.Model) { (*m).Release() })
	p.models.Clear()
	p.materials.Each(func(m *material.Material) { (*m).Release() })
	p.materials.Clear()
	p.meshes.Each(func(m **mesh.Mesh) { (*m).Release() })
	p.meshes.Clear()
	p.cubeMaterials = make(map[[4]float32]MaterialHandle)

	if p.cubeMesh != nil {
		p.cubeMesh.Release()
		p.cubeMesh = nil
	}
	if p.whiteFallback != nil {
		p.whiteFallback.Release()
		p.whiteFallback = nil
	}

	p.ReleaseSwapchainImageData()
	p.pipelines.DropAll()
	p.textures.DropAll()
	p.dev.Release()
}
