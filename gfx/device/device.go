// Package device wraps the native WebGPU device and queue behind the single
// capability surface the caches and builders consume: command submission,
// texture/buffer/view creation, pipeline compilation from the static shader
// pair, and bind group assembly. All other packages depend on the narrow
// interfaces this type satisfies, never on wgpu device handles directly.
package device

import (
	"fmt"
	"runtime"
	"time"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/KhronosGroup/OpenXR-CTS-sub001/common"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/pipeline"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/shader"
)

// Device is the full capability set exposed to the graphics plugin. It
// structurally satisfies the narrow per-package interfaces (exec.Submitter,
// swapchain.DepthAllocator, render_target.ViewFactory, pipeline.Factory,
// texture.Uploader, binding_builder.Factory, mesh.BufferUploader,
// model.TransformUploader).
type Device interface {
	// CreateCommandEncoder creates a fresh command encoder.
	//
	// Parameters:
	//   - label: debug label for the encoder
	//
	// Returns:
	//   - *wgpu.CommandEncoder: the new encoder
	//   - error: an error if creation fails
	CreateCommandEncoder(label string) (*wgpu.CommandEncoder, error)

	// Finish closes an encoder into a submittable command buffer.
	//
	// Parameters:
	//   - encoder: the encoder to finish
	//
	// Returns:
	//   - *wgpu.CommandBuffer: the finished buffer
	//   - error: an error if finishing fails
	Finish(encoder *wgpu.CommandEncoder) (*wgpu.CommandBuffer, error)

	// Submit enqueues a command buffer on the queue.
	//
	// Parameters:
	//   - buffer: the command buffer to submit
	Submit(buffer *wgpu.CommandBuffer)

	// Wait polls the device until submitted work completes or the timeout
	// elapses.
	//
	// Parameters:
	//   - timeout: maximum time to poll
	//
	// Returns:
	//   - bool: true if the queue drained, false on timeout
	Wait(timeout time.Duration) bool

	// CreateDepthTexture creates a depth render attachment.
	//
	// Parameters:
	//   - width: texture width in pixels
	//   - height: texture height in pixels
	//   - layers: number of array layers
	//   - format: the depth format
	//   - sampleCount: MSAA sample count
	//   - label: debug label
	//
	// Returns:
	//   - *wgpu.Texture: the new texture
	//   - error: an error if creation fails
	CreateDepthTexture(width, height, layers uint32, format wgpu.TextureFormat, sampleCount uint32, label string) (*wgpu.Texture, error)

	// CreateColorTexture creates a color render attachment that can also be
	// sampled and copied out for readback.
	//
	// Parameters:
	//   - width: texture width in pixels
	//   - height: texture height in pixels
	//   - layers: number of array layers
	//   - format: the color format
	//   - sampleCount: MSAA sample count
	//   - label: debug label
	//
	// Returns:
	//   - *wgpu.Texture: the new texture
	//   - error: an error if creation fails
	CreateColorTexture(width, height, layers uint32, format wgpu.TextureFormat, sampleCount uint32, label string) (*wgpu.Texture, error)

	// CreateSliceView creates a 2D view over one array layer of a texture.
	//
	// Parameters:
	//   - texture: the texture to view
	//   - format: the view format
	//   - slice: the array layer to expose
	//   - aspect: the texture aspect to expose
	//   - label: debug label
	//
	// Returns:
	//   - *wgpu.TextureView: the new view
	//   - error: an error if creation fails
	CreateSliceView(texture *wgpu.Texture, format wgpu.TextureFormat, slice uint32, aspect wgpu.TextureAspect, label string) (*wgpu.TextureView, error)

	// CreatePipeline compiles a render pipeline for a state key from the
	// static shader pair.
	//
	// Parameters:
	//   - key: the structural pipeline state
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the compiled pipeline
	//   - error: an error if compilation fails
	CreatePipeline(key pipeline.StateKey) (*wgpu.RenderPipeline, error)

	// UploadRGBA creates a 2D texture from staged RGBA pixels with a view
	// and sampler.
	//
	// Parameters:
	//   - data: the staged pixels and dimensions
	//   - srgb: true to store in an sRGB format
	//   - sampler: sampler configuration, nil for linear/repeat defaults
	//   - label: debug label
	//
	// Returns:
	//   - *wgpu.Texture: the uploaded texture
	//   - *wgpu.TextureView: a full view over it
	//   - *wgpu.Sampler: the configured sampler
	//   - error: an error if any call fails
	UploadRGBA(data common.TextureStagingData, srgb bool, sampler *common.SamplerStagingData, label string) (*wgpu.Texture, *wgpu.TextureView, *wgpu.Sampler, error)

	// CreateBindGroup creates a bind group against a layout.
	//
	// Parameters:
	//   - layout: the bind group layout
	//   - entries: the populated binding entries
	//   - label: debug label
	//
	// Returns:
	//   - *wgpu.BindGroup: the new bind group
	//   - error: an error if creation fails
	CreateBindGroup(layout *wgpu.BindGroupLayout, entries []wgpu.BindGroupEntry, label string) (*wgpu.BindGroup, error)

	// CreateVertexBuffer creates a vertex buffer initialized with data.
	//
	// Parameters:
	//   - data: the raw vertex bytes
	//   - label: debug label
	//
	// Returns:
	//   - *wgpu.Buffer: the new buffer
	//   - error: an error if creation fails
	CreateVertexBuffer(data []byte, label string) (*wgpu.Buffer, error)

	// CreateIndexBuffer creates an index buffer initialized with data.
	//
	// Parameters:
	//   - data: the raw index bytes
	//   - label: debug label
	//
	// Returns:
	//   - *wgpu.Buffer: the new buffer
	//   - error: an error if creation fails
	CreateIndexBuffer(data []byte, label string) (*wgpu.Buffer, error)

	// CreateUniformBuffer creates a uniform buffer initialized with data.
	//
	// Parameters:
	//   - data: the initial contents
	//   - label: debug label
	//
	// Returns:
	//   - *wgpu.Buffer: the new buffer
	//   - error: an error if creation fails
	CreateUniformBuffer(data []byte, label string) (*wgpu.Buffer, error)

	// CreateStorageBuffer creates an empty shader-readable storage buffer.
	//
	// Parameters:
	//   - size: buffer size in bytes
	//   - label: debug label
	//
	// Returns:
	//   - *wgpu.Buffer: the new buffer
	//   - error: an error if creation fails
	CreateStorageBuffer(size uint64, label string) (*wgpu.Buffer, error)

	// WriteBuffer writes data into a buffer through the queue.
	//
	// Parameters:
	//   - buffer: the destination buffer
	//   - offset: byte offset into the buffer
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if the write fails
	WriteBuffer(buffer *wgpu.Buffer, offset uint64, data []byte) error

	// BindGroupLayout returns the static layout for a shader bind group
	// index (shader.ViewGroup, shader.ModelGroup, shader.MaterialGroup).
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout, or nil for an unknown group
	BindGroupLayout(group int) *wgpu.BindGroupLayout

	// Release destroys the device context and everything created at init.
	Release()
}

// device is the implementation of the Device interface.
type device struct {
	label string

	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	wgpu     *wgpu.Device
	queue    *wgpu.Queue

	vertexModule   *wgpu.ShaderModule
	fragmentModule *wgpu.ShaderModule
	groupLayouts   []*wgpu.BindGroupLayout
	pipelineLayout *wgpu.PipelineLayout
}

var _ Device = &device{}

// NewDevice initializes the WebGPU instance, adapter, device, and queue,
// compiles the static shader pair, and creates the shader's bind group and
// pipeline layouts.
//
// Parameters:
//   - options: variadic list of DeviceBuilderOption functions to configure the device
//
// Returns:
//   - Device: the initialized device
//   - error: an error if any init step fails
func NewDevice(options ...DeviceBuilderOption) (Device, error) {
	runtime.LockOSThread()

	cfg := deviceConfig{label: "Main Device"}
	for _, opt := range options {
		opt(&cfg)
	}

	d := &device{
		label:    cfg.label,
		instance: wgpu.CreateInstance(nil),
	}
	if cfg.surfaceDescriptor != nil {
		d.surface = d.instance.CreateSurface(cfg.surfaceDescriptor)
	}

	adapter, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: cfg.forceFallbackAdapter,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("device: %s: failed to request adapter: %w", cfg.label, err)
	}
	d.adapter = adapter

	limits := wgpu.DefaultLimits()

	native, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: cfg.label,
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("device: %s: failed to request device: %w", cfg.label, err)
	}
	d.wgpu = native
	d.queue = native.GetQueue()

	if err := d.initShaders(); err != nil {
		d.Release()
		return nil, err
	}
	return d, nil
}

// initShaders compiles the static WGSL pair and creates the bind group and
// pipeline layouts every pipeline variant shares.
func (d *device) initShaders() error {
	vs, err := d.wgpu.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: d.label + " Vertex Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: shader.VertexSource,
		},
	})
	if err != nil {
		return fmt.Errorf("device: %s: failed to compile vertex shader: %w", d.label, err)
	}
	d.vertexModule = vs

	fs, err := d.wgpu.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: d.label + " Fragment Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: shader.FragmentSource,
		},
	})
	if err != nil {
		return fmt.Errorf("device: %s: failed to compile fragment shader: %w", d.label, err)
	}
	d.fragmentModule = fs

	groups := [][]wgpu.BindGroupLayoutEntry{
		shader.ViewGroupLayout(),
		shader.ModelGroupLayout(),
		shader.MaterialGroupLayout(),
	}
	d.groupLayouts = make([]*wgpu.BindGroupLayout, len(groups))
	for g, entries := range groups {
		layout, err := d.wgpu.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s Group %d Layout", d.label, g),
			Entries: entries,
		})
		if err != nil {
			return fmt.Errorf("device: %s: failed to create bind group layout %d: %w", d.label, g, err)
		}
		d.groupLayouts[g] = layout
	}

	pipelineLayout, err := d.wgpu.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            d.label + " Pipeline Layout",
		BindGroupLayouts: d.groupLayouts,
	})
	if err != nil {
		return fmt.Errorf("device: %s: failed to create pipeline layout: %w", d.label, err)
	}
	d.pipelineLayout = pipelineLayout
	return nil
}

func (d *device) CreateCommandEncoder(label string) (*wgpu.CommandEncoder, error) {
	encoder, err := d.wgpu.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("device: %s: failed to create command encoder: %w", d.label, err)
	}
	return encoder, nil
}

func (d *device) Finish(encoder *wgpu.CommandEncoder) (*wgpu.CommandBuffer, error) {
	buffer, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("device: %s: failed to finish command encoder: %w", d.label, err)
	}
	return buffer, nil
}

func (d *device) Submit(buffer *wgpu.CommandBuffer) {
	d.queue.Submit(buffer)
}

func (d *device) Wait(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if d.wgpu.Poll(false, nil) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}

func (d *device) CreateDepthTexture(width, height, layers uint32, format wgpu.TextureFormat, sampleCount uint32, label string) (*wgpu.Texture, error) {
	return d.createTexture(&wgpu.TextureDescriptor{
		Label: label,
		Usage: wgpu.TextureUsageRenderAttachment,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: layers,
		},
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   sampleCount,
	})
}

func (d *device) CreateColorTexture(width, height, layers uint32, format wgpu.TextureFormat, sampleCount uint32, label string) (*wgpu.Texture, error) {
	return d.createTexture(&wgpu.TextureDescriptor{
		Label: label,
		Usage: wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopySrc,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: layers,
		},
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   sampleCount,
	})
}

func (d *device) createTexture(desc *wgpu.TextureDescriptor) (*wgpu.Texture, error) {
	tex, err := d.wgpu.CreateTexture(desc)
	if err != nil {
		return nil, fmt.Errorf("device: %s: failed to create texture %q: %w", d.label, desc.Label, err)
	}
	return tex, nil
}

func (d *device) CreateSliceView(texture *wgpu.Texture, format wgpu.TextureFormat, slice uint32, aspect wgpu.TextureAspect, label string) (*wgpu.TextureView, error) {
	view, err := texture.CreateView(&wgpu.TextureViewDescriptor{
		Label:           label,
		Format:          format,
		Dimension:       wgpu.TextureViewDimension2D,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  slice,
		ArrayLayerCount: 1,
		Aspect:          aspect,
	})
	if err != nil {
		return nil, fmt.Errorf("device: %s: failed to create view %q: %w", d.label, label, err)
	}
	return view, nil
}

func (d *device) CreatePipeline(key pipeline.StateKey) (*wgpu.RenderPipeline, error) {
	created, err := d.wgpu.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  key.String() + " Render Pipeline",
		Layout: d.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     d.vertexModule,
			EntryPoint: "vs_main",
			Buffers:    shader.VertexBufferLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     d.fragmentModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    key.ColorFormat,
					Blend:     key.BlendState(),
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  key.Topology(),
			FrontFace: key.FrontFace,
			CullMode:  key.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: key.SampleCount,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            key.DepthFormat,
			DepthWriteEnabled: key.BlendMode == pipeline.BlendOpaque,
			DepthCompare:      key.DepthCompare(),
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("device: %s: failed to create render pipeline {%s}: %w", d.label, key, err)
	}
	return created, nil
}

func (d *device) UploadRGBA(data common.TextureStagingData, srgb bool, sampler *common.SamplerStagingData, label string) (*wgpu.Texture, *wgpu.TextureView, *wgpu.Sampler, error) {
	format := wgpu.TextureFormatRGBA8Unorm
	if srgb {
		format = wgpu.TextureFormatRGBA8UnormSrgb
	}
	tex, err := d.createTexture(&wgpu.TextureDescriptor{
		Label: label,
		Usage: wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Size: wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  data.Width * 4,
			RowsPerImage: data.Height,
		},
		&wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, nil, fmt.Errorf("device: %s: failed to create view for %q: %w", d.label, label, err)
	}

	if sampler == nil {
		sampler = &common.SamplerStagingData{}
	}
	samp, err := d.wgpu.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label + " Sampler",
		AddressModeU:  common.Coalesce(sampler.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(sampler.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(sampler.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(sampler.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(sampler.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(sampler.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   common.Coalesce(sampler.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(sampler.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(sampler.MaxAnisotropy, 1),
		Compare:       sampler.Compare,
	})
	if err != nil {
		view.Release()
		tex.Release()
		return nil, nil, nil, fmt.Errorf("device: %s: failed to create sampler for %q: %w", d.label, label, err)
	}
	return tex, view, samp, nil
}

func (d *device) CreateBindGroup(layout *wgpu.BindGroupLayout, entries []wgpu.BindGroupEntry, label string) (*wgpu.BindGroup, error) {
	group, err := d.wgpu.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("device: %s: failed to create bind group %q: %w", d.label, label, err)
	}
	return group, nil
}

func (d *device) CreateVertexBuffer(data []byte, label string) (*wgpu.Buffer, error) {
	return d.createInitializedBuffer(data, wgpu.BufferUsageVertex|wgpu.BufferUsageCopyDst, label)
}

func (d *device) CreateIndexBuffer(data []byte, label string) (*wgpu.Buffer, error) {
	return d.createInitializedBuffer(data, wgpu.BufferUsageIndex|wgpu.BufferUsageCopyDst, label)
}

func (d *device) CreateUniformBuffer(data []byte, label string) (*wgpu.Buffer, error) {
	return d.createInitializedBuffer(data, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst, label)
}

func (d *device) createInitializedBuffer(data []byte, usage wgpu.BufferUsage, label string) (*wgpu.Buffer, error) {
	buf, err := d.wgpu.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             uint64(len(data)),
		Usage:            usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("device: %s: failed to create buffer %q: %w", d.label, label, err)
	}
	d.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

func (d *device) CreateStorageBuffer(size uint64, label string) (*wgpu.Buffer, error) {
	buf, err := d.wgpu.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             size,
		Usage:            wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("device: %s: failed to create storage buffer %q: %w", d.label, label, err)
	}
	return buf, nil
}

func (d *device) WriteBuffer(buffer *wgpu.Buffer, offset uint64, data []byte) error {
	d.queue.WriteBuffer(buffer, offset, data)
	return nil
}

func (d *device) BindGroupLayout(group int) *wgpu.BindGroupLayout {
	if group < 0 || group >= len(d.groupLayouts) {
		return nil
	}
	return d.groupLayouts[group]
}

func (d *device) Release() {
	if d.pipelineLayout != nil {
		d.pipelineLayout.Release()
		d.pipelineLayout = nil
	}
	for i, layout := range d.groupLayouts {
		if layout != nil {
			layout.Release()
			d.groupLayouts[i] = nil
		}
	}
	if d.fragmentModule != nil {
		d.fragmentModule.Release()
		d.fragmentModule = nil
	}
	if d.vertexModule != nil {
		d.vertexModule.Release()
		d.vertexModule = nil
	}
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.wgpu != nil {
		d.wgpu.Release()
		d.wgpu = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}
