package gfx

import (
	"fmt"
	"math"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/KhronosGroup/OpenXR-CTS-sub001/common"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/binding_builder"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/material"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/mesh"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/model"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/pipeline"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/render_target"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/shader"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/texture"
)

func (p *plugin) ClearImageSlice(image *wgpu.Texture, slice uint32, color [4]float32) error {
	_, index, err := p.tracker.Resolve(image)
	if err != nil {
		return err
	}
	target, err := p.targets.BindRenderTarget(index, slice)
	if err != nil {
		return err
	}

	if err := p.ctx.Begin(); err != nil {
		return err
	}
	pass := p.ctx.Encoder().BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: fmt.Sprintf("%s Clear %d/%d", p.label, index, slice),
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    target.ColorView,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: float64(color[0]),
					G: float64(color[1]),
					B: float64(color[2]),
					A: float64(color[3]),
				},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            target.DepthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	pass.End()
	pass.Release()
	return p.finishCycle()
}

func (p *plugin) RenderView(params ViewParameters, image *wgpu.Texture, slice uint32, drawables DrawableList) error {
	if err := p.prepareInstances(drawables.Instances); err != nil {
		return err
	}

	_, index, err := p.tracker.Resolve(image)
	if err != nil {
		return err
	}
	target, err := p.targets.BindRenderTarget(index, slice)
	if err != nil {
		return err
	}

	st, err := p.newRecordState(params, target)
	if err != nil {
		return err
	}
	defer st.releaseTransients()

	if err := p.ctx.Begin(); err != nil {
		return err
	}
	st.pass = p.ctx.Encoder().BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: fmt.Sprintf("%s View %d/%d", p.label, index, slice),
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    target.ColorView,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: float64(params.ClearColor[0]),
					G: float64(params.ClearColor[1]),
					B: float64(params.ClearColor[2]),
					A: float64(params.ClearColor[3]),
				},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            target.DepthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: st.baseKey.DepthClearValue(),
		},
	})

	vp := params.Viewport
	if vp.Width == 0 || vp.Height == 0 {
		vp = Viewport{Width: float32(target.Width), Height: float32(target.Height)}
	}
	st.pass.SetViewport(vp.X, vp.Y, vp.Width, vp.Height, 0, 1)
	st.pass.SetScissorRect(uint32(vp.X), uint32(vp.Y), uint32(vp.Width), uint32(vp.Height))

	recordErr := p.recordDrawables(st, drawables)

	st.pass.End()
	st.pass.Release()
	if recordErr != nil {
		// The cycle still has to run so the context returns to a reusable
		// state before the error surfaces.
		_ = p.finishCycle()
		return recordErr
	}
	return p.finishCycle()
}

// finishCycle drives the execution context through End, Submit, Wait, and
// Reset so the next operation can begin recording.
func (p *plugin) finishCycle() error {
	if err := p.ctx.End(); err != nil {
		return err
	}
	if err := p.ctx.Submit(); err != nil {
		return err
	}
	if err := p.ctx.Wait(); err != nil {
		return err
	}
	return p.ctx.Reset()
}

// prepareInstances resolves and re-uploads dirty instance transforms on the
// worker pool before command recording starts. Clean instances are skipped
// inside UpdateTransforms. A WaitGroup provides the barrier since the pool
// outlives the frame.
func (p *plugin) prepareInstances(drawables []InstanceDrawable) error {
	if len(drawables) == 0 {
		return nil
	}
	// A drawable list may name the same instance more than once; each
	// instance gets at most one upload task so workers never race on it.
	resolved := make([]*model.Instance, 0, len(drawables))
	seen := make(map[*model.Instance]struct{}, len(drawables))
	for _, d := range drawables {
		inst, err := p.Instance(d.Instance)
		if err != nil {
			return err
		}
		if _, dup := seen[inst]; dup {
			continue
		}
		seen[inst] = struct{}{}
		resolved = append(resolved, inst)
	}

	pool := p.workerPool()
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, inst := range resolved {
		if !inst.Dirty() {
			continue
		}
		wg.Add(1)
		instCap := inst
		p.nextTaskID++
		pool.SubmitTask(worker.Task{
			ID: p.nextTaskID,
			Do: func() (any, error) {
				defer wg.Done()
				if _, err := instCap.UpdateTransforms(); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
				return nil, nil
			},
		})
	}
	wg.Wait()
	return firstErr
}

// recordState carries the per-view recording context: the open render pass,
// the base pipeline key, the view bind group, the culling frustum, and the
// transient resources to release once the GPU has drained.
type recordState struct {
	pass    *wgpu.RenderPassEncoder
	target  *render_target.RenderTarget
	baseKey pipeline.StateKey
	viewSet *binding_builder.BindingSet
	frustum common.Frustum

	transients []func()
}

func (st *recordState) releaseTransients() {
	for _, release := range st.transients {
		release()
	}
	st.transients = nil
}

// newRecordState derives the base pipeline key, computes the view-projection
// matrix and its frustum, and uploads the per-view uniform with its bind
// group.
func (p *plugin) newRecordState(params ViewParameters, target *render_target.RenderTarget) (*recordState, error) {
	st := &recordState{
		target: target,
		baseKey: pipeline.StateKey{
			ColorFormat:    target.ColorFormat,
			DepthFormat:    target.DepthFormat,
			SampleCount:    target.SampleCount,
			FillMode:       params.FillMode,
			FrontFace:      wgpu.FrontFaceCCW,
			DepthDirection: params.DepthDirection,
		},
	}

	view := params.View
	if view == nil {
		view = make([]float32, 16)
		common.Identity(view)
	}
	proj := params.Projection
	if proj == nil {
		proj = make([]float32, 16)
		common.Identity(proj)
	}
	viewProj := make([]float32, 16)
	common.Mul4(viewProj, proj, view)
	st.frustum = common.ExtractFrustum(viewProj)

	uniform := make([]float32, 20)
	copy(uniform, viewProj)
	uniform[16] = params.Eye[0]
	uniform[17] = params.Eye[1]
	uniform[18] = params.Eye[2]
	uniform[19] = 1
	viewBuf, err := p.dev.CreateUniformBuffer(common.SliceToBytes(uniform), p.label+" View Params")
	if err != nil {
		return nil, err
	}
	st.transients = append(st.transients, func() { viewBuf.Release() })

	builder := binding_builder.NewBuilder(p.dev, p.dev.BindGroupLayout(shader.ViewGroup), shader.ViewGroupLayout(),
		binding_builder.WithLabel(p.label+" View Group"))
	if err := builder.SetBuffer(shader.ViewParamsBinding, viewBuf, 0, wgpu.WholeSize); err != nil {
		return nil, err
	}
	viewSet, err := builder.Build()
	if err != nil {
		return nil, err
	}
	st.viewSet = viewSet
	st.transients = append(st.transients, viewSet.Release)
	return st, nil
}

func (p *plugin) recordDrawables(st *recordState, drawables DrawableList) error {
	for _, cube := range drawables.Cubes {
		handle, err := p.cubeMaterial(cube.Color)
		if err != nil {
			return err
		}
		mat, err := p.Material(handle)
		if err != nil {
			return err
		}
		cubeMesh, err := p.sharedCubeMesh()
		if err != nil {
			return err
		}
		if err := p.drawMesh(st, cubeMesh, mat, cube.Transform); err != nil {
			return err
		}
	}

	for _, d := range drawables.Meshes {
		m, err := p.Mesh(d.Mesh)
		if err != nil {
			return err
		}
		mat, err := p.Material(d.Material)
		if err != nil {
			return err
		}
		if err := p.drawMesh(st, m, mat, d.Transform); err != nil {
			return err
		}
	}

	for _, d := range drawables.Instances {
		inst, err := p.Instance(d.Instance)
		if err != nil {
			return err
		}
		if err := p.drawInstance(st, inst); err != nil {
			return err
		}
	}
	return nil
}

// drawMesh records one mesh draw with transient model and material bind
// groups. Hidden materials and out-of-frustum geometry are skipped.
func (p *plugin) drawMesh(st *recordState, m *mesh.Mesh, mat material.Material, world []float32) error {
	if mat.Hidden() {
		return nil
	}
	if world == nil {
		world = make([]float32, 16)
		common.Identity(world)
	} else if len(world) != 16 {
		return fmt.Errorf("gfx: %s: world transform has %d elements, want 16", p.label, len(world))
	}
	if !st.frustum.IntersectsSphere(transformPoint(world, m.BoundsCenter), m.BoundsRadius*maxAxisScale(world)) {
		return nil
	}

	transforms, err := p.dev.CreateStorageBuffer(16*4, p.label+" Draw Transform")
	if err != nil {
		return err
	}
	st.transients = append(st.transients, func() { transforms.Release() })
	if err := p.dev.WriteBuffer(transforms, 0, common.SliceToBytes(world)); err != nil {
		return err
	}
	drawParams, err := p.dev.CreateUniformBuffer(drawParamsBytes(0), p.label+" Draw Params")
	if err != nil {
		return err
	}
	st.transients = append(st.transients, func() { drawParams.Release() })

	modelSet, err := p.buildModelGroup(transforms, drawParams, p.label+" Model Group")
	if err != nil {
		return err
	}
	st.transients = append(st.transients, modelSet.Release)

	matBuf, err := p.dev.CreateUniformBuffer(mat.GPUParams().Marshal(), p.label+" Material Params")
	if err != nil {
		return err
	}
	st.transients = append(st.transients, func() { matBuf.Release() })
	materialSet, err := p.buildMaterialGroup(mat, matBuf)
	if err != nil {
		return err
	}
	st.transients = append(st.transients, materialSet.Release)

	return p.issueDraw(st, mat, m, modelSet.Group, materialSet.Group)
}

// drawInstance records every visible primitive of an instance. The model
// bind group and its uniform buffers are built lazily on first draw and
// reused; the material bind group is rebuilt per draw since material state
// is mutable.
func (p *plugin) drawInstance(st *recordState, inst *model.Instance) error {
	def := inst.Model()
	for i := range def.Primitives {
		prim := &def.Primitives[i]
		if !inst.PrimitiveVisible(i) {
			continue
		}
		mat, err := p.Material(prim.Material)
		if err != nil {
			return err
		}
		if mat.Hidden() {
			continue
		}

		node := prim.NodeIndices[0]
		world := inst.NodeWorld(node)
		if world != nil && !st.frustum.IntersectsSphere(transformPoint(world, prim.Mesh.BoundsCenter), prim.Mesh.BoundsRadius*maxAxisScale(world)) {
			continue
		}

		binding := inst.Binding(i)
		if binding == nil {
			drawParams, err := p.dev.CreateUniformBuffer(drawParamsBytes(uint32(node)), p.label+" Instance Draw Params")
			if err != nil {
				return err
			}
			matBuf, err := p.dev.CreateUniformBuffer(mat.GPUParams().Marshal(), p.label+" Instance Material Params")
			if err != nil {
				drawParams.Release()
				return err
			}
			modelSet, err := p.buildModelGroup(inst.TransformBuffer(), drawParams, p.label+" Instance Model Group")
			if err != nil {
				drawParams.Release()
				matBuf.Release()
				return err
			}
			binding = &model.PrimitiveBinding{
				Set:        modelSet,
				DrawParams: drawParams,
				Material:   matBuf,
			}
			if err := inst.SetBinding(i, binding); err != nil {
				return err
			}
		} else if err := p.dev.WriteBuffer(binding.Material, 0, mat.GPUParams().Marshal()); err != nil {
			return err
		}

		materialSet, err := p.buildMaterialGroup(mat, binding.Material)
		if err != nil {
			return err
		}
		st.transients = append(st.transients, materialSet.Release)

		if err := p.issueDraw(st, mat, prim.Mesh, binding.Set.Group, materialSet.Group); err != nil {
			return err
		}
	}
	return nil
}

// issueDraw resolves the pipeline for the material's blend state and records
// the indexed draw.
func (p *plugin) issueDraw(st *recordState, mat material.Material, m *mesh.Mesh, modelGroup, materialGroup *wgpu.BindGroup) error {
	key := st.baseKey
	key.BlendMode = mat.BlendMode()
	key.DoubleSided = mat.DoubleSided()
	pl, err := p.pipelines.GetOrCreate(key)
	if err != nil {
		return err
	}

	st.pass.SetPipeline(pl)
	st.pass.SetBindGroup(shader.ViewGroup, st.viewSet.Group, nil)
	st.pass.SetBindGroup(shader.ModelGroup, modelGroup, nil)
	st.pass.SetBindGroup(shader.MaterialGroup, materialGroup, nil)
	st.pass.SetVertexBuffer(0, m.VertexBuffer, 0, wgpu.WholeSize)
	st.pass.SetIndexBuffer(m.IndexBuffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	st.pass.DrawIndexed(m.IndexCount, 1, 0, 0, 0)
	return nil
}

func (p *plugin) buildModelGroup(transforms, drawParams *wgpu.Buffer, label string) (*binding_builder.BindingSet, error) {
	builder := binding_builder.NewBuilder(p.dev, p.dev.BindGroupLayout(shader.ModelGroup), shader.ModelGroupLayout(),
		binding_builder.WithLabel(label))
	if err := builder.SetBuffer(shader.NodeTransformsBinding, transforms, 0, wgpu.WholeSize); err != nil {
		return nil, err
	}
	if err := builder.SetBuffer(shader.DrawParamsBinding, drawParams, 0, wgpu.WholeSize); err != nil {
		return nil, err
	}
	return builder.Build()
}

// buildMaterialGroup populates every material binding; texture slots without
// a texture fall back to the shared 1x1 white so the set is always complete.
func (p *plugin) buildMaterialGroup(mat material.Material, params *wgpu.Buffer) (*binding_builder.BindingSet, error) {
	white, err := p.whiteTexture()
	if err != nil {
		return nil, err
	}
	view := func(slot material.Slot) *wgpu.TextureView {
		if shared := mat.Texture(slot); shared != nil {
			return shared.View
		}
		return white.View
	}
	sampler := white.Sampler
	if shared := mat.Texture(material.SlotBaseColor); shared != nil {
		sampler = shared.Sampler
	}

	builder := binding_builder.NewBuilder(p.dev, p.dev.BindGroupLayout(shader.MaterialGroup), shader.MaterialGroupLayout(),
		binding_builder.WithLabel(mat.Name()+" Material Group"))
	if err := builder.SetBuffer(shader.MaterialParamsBinding, params, 0, wgpu.WholeSize); err != nil {
		return nil, err
	}
	if err := builder.SetTextureView(shader.BaseColorTextureBinding, view(material.SlotBaseColor)); err != nil {
		return nil, err
	}
	if err := builder.SetSampler(shader.MaterialSamplerBinding, sampler); err != nil {
		return nil, err
	}
	if err := builder.SetTextureView(shader.MetallicRoughnessBinding, view(material.SlotMetallicRoughness)); err != nil {
		return nil, err
	}
	if err := builder.SetTextureView(shader.NormalTextureBinding, view(material.SlotNormal)); err != nil {
		return nil, err
	}
	if err := builder.SetTextureView(shader.OcclusionTextureBinding, view(material.SlotOcclusion)); err != nil {
		return nil, err
	}
	if err := builder.SetTextureView(shader.EmissiveTextureBinding, view(material.SlotEmissive)); err != nil {
		return nil, err
	}
	return builder.Build()
}

// whiteTexture lazily creates the shared 1x1 white fallback.
func (p *plugin) whiteTexture() (*texture.Shared, error) {
	if p.whiteFallback != nil {
		return p.whiteFallback, nil
	}
	shared, err := p.textures.SolidColor([4]float32{1, 1, 1, 1}, false)
	if err != nil {
		return nil, err
	}
	p.whiteFallback = shared
	return shared, nil
}

// sharedCubeMesh lazily uploads the unit cube every CubeDrawable shares.
func (p *plugin) sharedCubeMesh() (*mesh.Mesh, error) {
	if p.cubeMesh != nil {
		return p.cubeMesh, nil
	}
	vertices, indices := mesh.CubeGeometry([4]float32{1, 1, 1, 1})
	m, err := mesh.NewMesh(p.dev, vertices, indices, mesh.WithLabel(p.label+" Cube"))
	if err != nil {
		return nil, err
	}
	p.cubeMesh = m
	return m, nil
}

// cubeMaterial memoizes one material per distinct cube color.
func (p *plugin) cubeMaterial(color [4]float32) (MaterialHandle, error) {
	if handle, ok := p.cubeMaterials[color]; ok {
		if _, err := p.materials.Get(handle); err == nil {
			return handle, nil
		}
	}
	handle := p.materials.Emplace(material.NewMaterial(
		material.WithName(fmt.Sprintf("Cube %v", color)),
		material.WithBaseColor(color),
		material.WithMetallicRoughness(0, 1),
	))
	p.cubeMaterials[color] = handle
	return handle, nil
}

// drawParamsBytes packs the per-draw uniform: the node index padded to the
// 16-byte uniform stride.
func drawParamsBytes(node uint32) []byte {
	return common.SliceToBytes([]uint32{node, 0, 0, 0})
}

// transformPoint applies a column-major 4x4 transform to a point.
func transformPoint(m []float32, pt [3]float32) [3]float32 {
	return [3]float32{
		m[0]*pt[0] + m[4]*pt[1] + m[8]*pt[2] + m[12],
		m[1]*pt[0] + m[5]*pt[1] + m[9]*pt[2] + m[13],
		m[2]*pt[0] + m[6]*pt[1] + m[10]*pt[2] + m[14],
	}
}

// maxAxisScale returns the largest basis-vector length of the upper 3x3,
// used to scale bounding radii under non-uniform transforms.
func maxAxisScale(m []float32) float32 {
	scale := float32(0)
	for c := 0; c < 3; c++ {
		l := float32(math.Sqrt(float64(m[c*4]*m[c*4] + m[c*4+1]*m[c*4+1] + m[c*4+2]*m[c*4+2])))
		if l > scale {
			scale = l
		}
	}
	return scale
}
