package model

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/KhronosGroup/OpenXR-CTS-sub001/common"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/binding_builder"
)

// TransformUploader abstracts the device calls an instance needs for its
// resolved-transform storage buffer. The graphics device satisfies this;
// tests inject a fake.
type TransformUploader interface {
	// CreateStorageBuffer creates a shader-readable storage buffer.
	//
	// Parameters:
	//   - size: buffer size in bytes
	//   - label: debug label for the buffer
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
}

// PrimitiveBinding is the per-primitive GPU binding state the renderer
// builds lazily on first draw: the model bind group plus the transient
// uniform buffers it references.
type PrimitiveBinding struct {
	Set        *binding_builder.BindingSet
	DrawParams *wgpu.Buffer
	Material   *wgpu.Buffer
}

// Instance is one rendered occurrence of a shared model definition: a root
// transform, per-node local transforms and visibility, the flattened world
// transforms in a GPU storage buffer, and lazily built per-primitive binding
// slots. Transforms are resolved and re-uploaded only when a node was marked
// dirty since the last render.
type Instance struct {
	model    *Model
	uploader TransformUploader
	label    string

	root    []float32
	locals  [][]float32
	visible []bool

	resolved []float32
	buffer   *wgpu.Buffer
	dirty    bool

	bindings []*PrimitiveBinding
}

// NewInstance creates an instance of a loaded model. All nodes start visible
// with the model's default local transforms; the first UpdateTransforms
// resolves and uploads them.
// Panics if the model or uploader is nil.
//
// Parameters:
//   - model: the shared model definition (must not be nil)
//   - uploader: the device buffer path (must not be nil)
//   - options: variadic list of InstanceBuilderOption functions to configure the instance
//
// Returns:
//   - *Instance: the new instance, marked dirty
//   - error: an error if the storage buffer cannot be created
func NewInstance(model *Model, uploader TransformUploader, options ...InstanceBuilderOption) (*Instance, error) {
	if model == nil {
		panic("model: NewInstance requires a non-nil Model")
	}
	if uploader == nil {
		panic("model: NewInstance requires a non-nil TransformUploader")
	}
	inst := &Instance{
		model:    model,
		uploader: uploader,
		label:    model.Name + " Instance",
		root:     make([]float32, 16),
		locals:   make([][]float32, len(model.Nodes)),
		visible:  make([]bool, len(model.Nodes)),
		resolved: make([]float32, 16*len(model.Nodes)),
		dirty:    true,
	}
	common.Identity(inst.root)
	for i, n := range model.Nodes {
		inst.locals[i] = make([]float32, 16)
		copy(inst.locals[i], n.Local)
		inst.visible[i] = true
	}
	for _, opt := range options {
		opt(inst)
	}

	buffer, err := uploader.CreateStorageBuffer(uint64(len(inst.resolved)*4), inst.label+" Transforms")
	if err != nil {
		return nil, fmt.Errorf("model: %s: failed to create transform buffer: %w", inst.label, err)
	}
	inst.buffer = buffer
	return inst, nil
}

// Model returns the shared definition this instance renders.
//
// Returns:
//   - *Model: the model definition
func (inst *Instance) Model() *Model {
	return inst.model
}

// SetRootTransform replaces the instance's root transform and marks the
// hierarchy dirty.
//
// Parameters:
//   - transform: 4x4 column-major root transform
//
// Returns:
//   - error: an error if the transform is not 16 elements
func (inst *Instance) SetRootTransform(transform []float32) error {
	if len(transform) != 16 {
		return fmt.Errorf("model: %s: root transform has %d elements, want 16", inst.label, len(transform))
	}
	copy(inst.root, transform)
	inst.dirty = true
	return nil
}

// SetNodeLocal replaces one node's local transform and marks the hierarchy
// dirty.
//
// Parameters:
//   - node: the node index
//   - transform: 4x4 column-major local transform
//
// Returns:
//   - error: an error if the node index or transform length is invalid
func (inst *Instance) SetNodeLocal(node int, transform []float32) error {
	if node < 0 || node >= len(inst.locals) {
		return fmt.Errorf("model: %s: node %d out of range (%d nodes)", inst.label, node, len(inst.locals))
	}
	if len(transform) != 16 {
		return fmt.Errorf("model: %s: node %d transform has %d elements, want 16", inst.label, node, len(transform))
	}
	copy(inst.locals[node], transform)
	inst.dirty = true
	return nil
}

// SetNodeVisible sets one node's visibility. Visibility does not touch the
// transform buffer, so it never marks the instance dirty.
//
// Parameters:
//   - node: the node index
//   - visible: the new visibility
//
// Returns:
//   - error: an error if the node index is invalid
func (inst *Instance) SetNodeVisible(node int, visible bool) error {
	if node < 0 || node >= len(inst.visible) {
		return fmt.Errorf("model: %s: node %d out of range (%d nodes)", inst.label, node, len(inst.visible))
	}
	inst.visible[node] = visible
	return nil
}

// NodeVisible reports one node's visibility.
//
// Parameters:
//   - node: the node index
//
// Returns:
//   - bool: true if the node is visible
func (inst *Instance) NodeVisible(node int) bool {
	return node >= 0 && node < len(inst.visible) && inst.visible[node]
}

// PrimitiveVisible reports whether any node a primitive is attached to is
// visible.
//
// Parameters:
//   - primitive: the primitive index in the model definition
//
// Returns:
//   - bool: true if at least one associated node is visible
func (inst *Instance) PrimitiveVisible(primitive int) bool {
	if primitive < 0 || primitive >= len(inst.model.Primitives) {
		return false
	}
	for _, node := range inst.model.Primitives[primitive].NodeIndices {
		if inst.NodeVisible(node) {
			return true
		}
	}
	return false
}

// Dirty reports whether a transform change is pending upload.
//
// Returns:
//   - bool: true if UpdateTransforms will re-resolve and re-upload
func (inst *Instance) Dirty() bool {
	return inst.dirty
}

// UpdateTransforms resolves the flattened world transforms and uploads them,
// but only if a node or the root was marked dirty since the last call.
//
// Returns:
//   - bool: true if the buffer was re-uploaded
//   - error: an error if the upload fails
func (inst *Instance) UpdateTransforms() (bool, error) {
	if !inst.dirty {
		return false, nil
	}
	for i := range inst.locals {
		parent := inst.root
		if p := inst.model.Nodes[i].Parent; p >= 0 {
			parent = inst.resolved[p*16 : p*16+16]
		}
		common.Mul4(inst.resolved[i*16:i*16+16], parent, inst.locals[i])
	}
	if err := inst.uploader.WriteBuffer(inst.buffer, 0, common.SliceToBytes(inst.resolved)); err != nil {
		return false, fmt.Errorf("model: %s: failed to upload transforms: %w", inst.label, err)
	}
	inst.dirty = false
	return true, nil
}

// NodeWorld returns one node's resolved world transform. Valid after
// UpdateTransforms.
//
// Parameters:
//   - node: the node index
//
// Returns:
//   - []float32: the 4x4 column-major world transform, or nil if out of range
func (inst *Instance) NodeWorld(node int) []float32 {
	if node < 0 || node >= len(inst.model.Nodes) {
		return nil
	}
	return inst.resolved[node*16 : node*16+16]
}

// TransformBuffer returns the storage buffer holding the flattened world
// transforms.
//
// Returns:
//   - *wgpu.Buffer: the transform buffer
func (inst *Instance) TransformBuffer() *wgpu.Buffer {
	return inst.buffer
}

// Binding returns the lazily built binding state for a primitive, or nil if
// none has been built yet.
//
// Parameters:
//   - primitive: the primitive index
//
// Returns:
//   - *PrimitiveBinding: the binding state or nil
func (inst *Instance) Binding(primitive int) *PrimitiveBinding {
	if inst.bindings == nil || primitive < 0 || primitive >= len(inst.bindings) {
		return nil
	}
	return inst.bindings[primitive]
}

// SetBinding stores the binding state for a primitive, sizing the slot list
// on first use.
//
// Parameters:
//   - primitive: the primitive index
//   - binding: the binding state to store
//
// Returns:
//   - error: an error if the primitive index is invalid
func (inst *Instance) SetBinding(primitive int, binding *PrimitiveBinding) error {
	if primitive < 0 || primitive >= len(inst.model.Primitives) {
		return fmt.Errorf("model: %s: primitive %d out of range (%d primitives)", inst.label, primitive, len(inst.model.Primitives))
	}
	if inst.bindings == nil {
		inst.bindings = make([]*PrimitiveBinding, len(inst.model.Primitives))
	}
	inst.bindings[primitive] = binding
	return nil
}

// Release destroys the instance's GPU state: the transform buffer and any
// built binding slots. The shared model definition is untouched.
func (inst *Instance) Release() {
	for i, b := range inst.bindings {
		if b == nil {
			continue
		}
		if b.Set != nil {
			b.Set.Release()
		}
		if b.DrawParams != nil {
			b.DrawParams.Release()
		}
		if b.Material != nil {
			b.Material.Release()
		}
		inst.bindings[i] = nil
	}
	if inst.buffer != nil {
		inst.buffer.Release()
		inst.buffer = nil
	}
}
