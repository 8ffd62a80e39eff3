package model

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/KhronosGroup/OpenXR-CTS-sub001/common"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/material"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/mesh"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/pipeline"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/registry"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/texture"
)

// MaterialRegistrar places a loaded material into the owning arena and
// returns its handle.
type MaterialRegistrar func(material.Material) registry.Handle[material.Material]

// materialSlot pairs an imported texture with the material slot it fills and
// the color space it decodes into.
type materialSlot struct {
	source *common.ImportedTexture
	slot   material.Slot
	srgb   bool
}

// slotsOf lists the texture slots an imported material carries.
func slotsOf(imported *common.ImportedMaterial) []materialSlot {
	var slots []materialSlot
	add := func(source *common.ImportedTexture, slot material.Slot, srgb bool) {
		if source != nil {
			slots = append(slots, materialSlot{source: source, slot: slot, srgb: srgb})
		}
	}
	add(imported.BaseColorTexture, material.SlotBaseColor, true)
	add(imported.MetallicRoughnessTexture, material.SlotMetallicRoughness, false)
	add(imported.OcclusionTexture, material.SlotOcclusion, false)
	add(imported.NormalTexture, material.SlotNormal, false)
	add(imported.EmissiveTexture, material.SlotEmissive, true)
	return slots
}

// LoadModel uploads a description's geometry, decodes and uploads its
// material textures (concurrently, bounded by the texture cache's locking),
// registers its materials, and assembles the shared model definition.
//
// Parameters:
//   - ctx: context governing the concurrent texture decodes
//   - uploader: the device buffer uploader for geometry
//   - textures: the texture cache receiving decoded images
//   - register: callback placing each material into the owning arena
//   - desc: the parsed model description
//
// Returns:
//   - *Model: the loaded model definition
//   - error: an error if validation, decoding, or an upload fails
func LoadModel(ctx context.Context, uploader mesh.BufferUploader, textures texture.Cache, register MaterialRegistrar, desc *Description) (*Model, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if register == nil {
		return nil, fmt.Errorf("model: %q: nil material registrar", desc.Name)
	}

	// Decode and upload every material texture up front. Decodes are CPU
	// bound and independent, so they fan out; the cache deduplicates shared
	// sources.
	type slotResult struct {
		materialIndex int
		slot          material.Slot
		shared        *texture.Shared
	}
	var results []slotResult
	group, ctx := errgroup.WithContext(ctx)
	resultCh := make(chan slotResult)
	for mi := range desc.Materials {
		for _, s := range slotsOf(&desc.Materials[mi]) {
			mi, s := mi, s
			group.Go(func() error {
				shared, err := textures.FromImage(s.source, s.srgb)
				if err != nil {
					return fmt.Errorf("model: %q: material %d: %w", desc.Name, mi, err)
				}
				select {
				case resultCh <- slotResult{materialIndex: mi, slot: s.slot, shared: shared}:
					return nil
				case <-ctx.Done():
					shared.Release()
					return ctx.Err()
				}
			})
		}
	}
	collectDone := make(chan struct{})
	go func() {
		for r := range resultCh {
			results = append(results, r)
		}
		close(collectDone)
	}()
	err := group.Wait()
	close(resultCh)
	<-collectDone
	if err != nil {
		for _, r := range results {
			r.shared.Release()
		}
		return nil, err
	}

	// Build the materials and hand their texture references over.
	materials := make([]material.Material, len(desc.Materials))
	for mi := range desc.Materials {
		imported := &desc.Materials[mi]
		blend := pipeline.BlendOpaque
		if imported.AlphaBlend {
			blend = pipeline.BlendAlpha
		}
		opts := []material.MaterialBuilderOption{
			material.WithName(imported.Name),
			material.WithBaseColor(imported.BaseColor),
			material.WithMetallicRoughness(imported.Metallic, imported.Roughness),
			material.WithEmissive(imported.EmissiveFactor),
			material.WithBlendMode(blend),
		}
		if imported.DoubleSided {
			opts = append(opts, material.WithDoubleSided())
		}
		materials[mi] = material.NewMaterial(opts...)
	}
	for _, r := range results {
		materials[r.materialIndex].SetTexture(r.slot, r.shared)
	}

	handles := make([]registry.Handle[material.Material], len(materials))
	for mi, mat := range materials {
		handles[mi] = register(mat)
	}

	// Upload primitive geometry.
	model := &Model{Name: desc.Name}
	model.Nodes = make([]Node, len(desc.Nodes))
	for i, n := range desc.Nodes {
		local := make([]float32, 16)
		if n.Transform != nil {
			copy(local, n.Transform)
		} else {
			common.Identity(local)
		}
		model.Nodes[i] = Node{Name: n.Name, Parent: n.Parent, Local: local}
	}
	model.Primitives = make([]Primitive, len(desc.Primitives))
	for i, p := range desc.Primitives {
		uploaded, err := mesh.NewMesh(uploader, p.Vertices, p.Indices,
			mesh.WithLabel(fmt.Sprintf("%s Primitive %d", desc.Name, i)))
		if err != nil {
			model.Release()
			return nil, err
		}
		nodes := make([]int, len(p.NodeIndices))
		copy(nodes, p.NodeIndices)
		model.Primitives[i] = Primitive{
			Mesh:        uploaded,
			Material:    handles[p.Material],
			NodeIndices: nodes,
		}
	}
	return model, nil
}
