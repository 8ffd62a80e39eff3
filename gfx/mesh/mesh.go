// Package mesh holds immutable GPU geometry: an interleaved vertex buffer
// plus an index buffer, uploaded once at creation and referenced by handle
// from primitives and drawables.
package mesh

import (
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/KhronosGroup/OpenXR-CTS-sub001/common"
)

// Vertex is the interleaved vertex format consumed by the vertex shader:
// position, normal, uv, color. 48 bytes per vertex.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
	Color    [4]float32
}

// BufferUploader abstracts the device buffer uploads the mesh needs. The
// graphics device satisfies this; tests inject a fake.
type BufferUploader interface {
	// CreateVertexBuffer creates a vertex buffer initialized with data.
	//
	// Parameters:
	//   - data: the raw vertex bytes
	//   - label: debug label for the buffer
	//
	// Returns:
	//   - *wgpu.Buffer: the new buffer
	//   - error: an error if creation fails
	CreateVertexBuffer(data []byte, label string) (*wgpu.Buffer, error)

	// CreateIndexBuffer creates an index buffer initialized with data.
	//
	// Parameters:
	//   - data: the raw index bytes (uint32 indices)
	//   - label: debug label for the buffer
	//
	// Returns:
	//   - *wgpu.Buffer: the new buffer
	//   - error: an error if creation fails
	CreateIndexBuffer(data []byte, label string) (*wgpu.Buffer, error)
}

// Mesh is one uploaded vertex/index buffer pair. Geometry is immutable once
// created; only the owning arena recycles it.
type Mesh struct {
	VertexBuffer *wgpu.Buffer
	IndexBuffer  *wgpu.Buffer
	IndexCount   uint32
	VertexCount  uint32

	// BoundsCenter and BoundsRadius describe the bounding sphere used for
	// visibility culling, in mesh-local space.
	BoundsCenter [3]float32
	BoundsRadius float32
}

// NewMesh uploads vertex and index data into fresh GPU buffers and computes
// the geometry's bounding sphere.
// Panics if the uploader is nil.
//
// Parameters:
//   - uploader: the device buffer uploader (must not be nil)
//   - vertices: the interleaved vertex data
//   - indices: the triangle (or line) indices
//   - options: variadic list of MeshBuilderOption functions to configure the mesh
//
// Returns:
//   - *Mesh: the uploaded mesh
//   - error: an error if the geometry is empty or an upload fails
func NewMesh(uploader BufferUploader, vertices []Vertex, indices []uint32, options ...MeshBuilderOption) (*Mesh, error) {
	if uploader == nil {
		panic("mesh: NewMesh requires a non-nil BufferUploader")
	}
	cfg := meshConfig{label: "Mesh"}
	for _, opt := range options {
		opt(&cfg)
	}
	if len(vertices) == 0 {
		return nil, fmt.Errorf("mesh: %s: no vertices", cfg.label)
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("mesh: %s: no indices", cfg.label)
	}
	for i, idx := range indices {
		if int(idx) >= len(vertices) {
			return nil, fmt.Errorf("mesh: %s: index %d at position %d out of range (%d vertices)", cfg.label, idx, i, len(vertices))
		}
	}

	vb, err := uploader.CreateVertexBuffer(common.SliceToBytes(vertices), cfg.label+" Vertices")
	if err != nil {
		return nil, fmt.Errorf("mesh: %s: failed to upload vertex buffer: %w", cfg.label, err)
	}
	ib, err := uploader.CreateIndexBuffer(common.SliceToBytes(indices), cfg.label+" Indices")
	if err != nil {
		return nil, fmt.Errorf("mesh: %s: failed to upload index buffer: %w", cfg.label, err)
	}

	center, radius := boundingSphere(vertices)
	return &Mesh{
		VertexBuffer: vb,
		IndexBuffer:  ib,
		IndexCount:   uint32(len(indices)),
		VertexCount:  uint32(len(vertices)),
		BoundsCenter: center,
		BoundsRadius: radius,
	}, nil
}

// Release destroys the mesh's GPU buffers.
func (m *Mesh) Release() {
	if m.VertexBuffer != nil {
		m.VertexBuffer.Release()
		m.VertexBuffer = nil
	}
	if m.IndexBuffer != nil {
		m.IndexBuffer.Release()
		m.IndexBuffer = nil
	}
}

// boundingSphere computes a sphere around the positions: center of the
// axis-aligned bounds, radius to the farthest vertex.
func boundingSphere(vertices []Vertex) ([3]float32, float32) {
	min := vertices[0].Position
	max := vertices[0].Position
	for _, v := range vertices[1:] {
		for i := 0; i < 3; i++ {
			if v.Position[i] < min[i] {
				min[i] = v.Position[i]
			}
			if v.Position[i] > max[i] {
				max[i] = v.Position[i]
			}
		}
	}
	center := [3]float32{
		(min[0] + max[0]) / 2,
		(min[1] + max[1]) / 2,
		(min[2] + max[2]) / 2,
	}
	var radiusSq float32
	for _, v := range vertices {
		dx := v.Position[0] - center[0]
		dy := v.Position[1] - center[1]
		dz := v.Position[2] - center[2]
		if d := dx*dx + dy*dy + dz*dz; d > radiusSq {
			radiusSq = d
		}
	}
	return center, float32(math.Sqrt(float64(radiusSq)))
}
