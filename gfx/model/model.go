// Package model holds loaded model definitions (shared, read-only node
// hierarchies plus primitives) and per-instance state (resolved node
// transforms, visibility, lazily built binding slots). Model descriptions
// arrive from the GLTF-loading collaborator already parsed; this package
// uploads their geometry and registers their materials.
package model

import (
	"fmt"

	"github.com/KhronosGroup/OpenXR-CTS-sub001/common"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/material"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/mesh"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/registry"
)

// NodeDescription is one node of an imported hierarchy. Parents always
// precede children: Parent is an index smaller than the node's own, or -1
// for a root.
type NodeDescription struct {
	Name      string
	Parent    int
	Transform []float32 // 4x4 column-major local transform; nil for identity
}

// PrimitiveDescription is one imported primitive: raw geometry, the index of
// its material in the description's material list, and the nodes whose
// visibility and transform drive it.
type PrimitiveDescription struct {
	Vertices    []mesh.Vertex
	Indices     []uint32
	Material    int
	NodeIndices []int
}

// Description is a fully parsed model as delivered by the loading
// collaborator.
type Description struct {
	Name       string
	Nodes      []NodeDescription
	Primitives []PrimitiveDescription
	Materials  []common.ImportedMaterial
}

// Node is one node of a loaded model's hierarchy.
type Node struct {
	Name   string
	Parent int

	// Local is the node's default 4x4 column-major local transform.
	Local []float32
}

// Primitive is one drawable piece of a loaded model: uploaded geometry, a
// material handle, and the node indices it is attached to.
type Primitive struct {
	Mesh        *mesh.Mesh
	Material    registry.Handle[material.Material]
	NodeIndices []int
}

// Model is a loaded, shared, read-only model definition. Instances carry all
// mutable state.
type Model struct {
	Name       string
	Nodes      []Node
	Primitives []Primitive
}

// Validate checks the description's structural invariants before loading.
//
// Returns:
//   - error: an error describing the first violated invariant, or nil
func (d *Description) Validate() error {
	if len(d.Nodes) == 0 {
		return fmt.Errorf("model: description %q has no nodes", d.Name)
	}
	for i, n := range d.Nodes {
		if n.Parent >= i {
			return fmt.Errorf("model: description %q: node %d has parent %d; parents must precede children", d.Name, i, n.Parent)
		}
		if n.Parent < -1 {
			return fmt.Errorf("model: description %q: node %d has invalid parent %d", d.Name, i, n.Parent)
		}
		if n.Transform != nil && len(n.Transform) != 16 {
			return fmt.Errorf("model: description %q: node %d transform has %d elements, want 16", d.Name, i, len(n.Transform))
		}
	}
	for i, p := range d.Primitives {
		if p.Material < 0 || p.Material >= len(d.Materials) {
			return fmt.Errorf("model: description %q: primitive %d references material %d (%d materials)", d.Name, i, p.Material, len(d.Materials))
		}
		if len(p.NodeIndices) == 0 {
			return fmt.Errorf("model: description %q: primitive %d is attached to no nodes", d.Name, i)
		}
		for _, node := range p.NodeIndices {
			if node < 0 || node >= len(d.Nodes) {
				return fmt.Errorf("model: description %q: primitive %d references node %d (%d nodes)", d.Name, i, node, len(d.Nodes))
			}
		}
	}
	return nil
}

// Release destroys the model's uploaded meshes. Material handles are owned
// by the registry and recycled by the caller.
func (m *Model) Release() {
	for i := range m.Primitives {
		if m.Primitives[i].Mesh != nil {
			m.Primitives[i].Mesh.Release()
			m.Primitives[i].Mesh = nil
		}
	}
}
