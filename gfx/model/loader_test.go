package model

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/KhronosGroup/OpenXR-CTS-sub001/common"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/material"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/mesh"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/pipeline"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/registry"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/texture"
)

type fakeMeshUploader struct {
	uploads int
}

func (f *fakeMeshUploader) CreateVertexBuffer(data []byte, label string) (*wgpu.Buffer, error) {
	f.uploads++
	return &wgpu.Buffer{}, nil
}

func (f *fakeMeshUploader) CreateIndexBuffer(data []byte, label string) (*wgpu.Buffer, error) {
	f.uploads++
	return &wgpu.Buffer{}, nil
}

type fakeTextureUploader struct{}

func (fakeTextureUploader) UploadRGBA(data common.TextureStagingData, srgb bool, sampler *common.SamplerStagingData, label string) (*wgpu.Texture, *wgpu.TextureView, *wgpu.Sampler, error) {
	return &wgpu.Texture{}, &wgpu.TextureView{}, &wgpu.Sampler{}, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func sampleDescription(t *testing.T) *Description {
	vertices := []mesh.Vertex{
		{Position: [3]float32{0, 0, 0}},
		{Position: [3]float32{1, 0, 0}},
		{Position: [3]float32{0, 1, 0}},
	}
	return &Description{
		Name: "gltf-sample",
		Nodes: []NodeDescription{
			{Name: "root", Parent: -1},
			{Name: "body", Parent: 0},
		},
		Primitives: []PrimitiveDescription{
			{Vertices: vertices, Indices: []uint32{0, 1, 2}, Material: 0, NodeIndices: []int{1}},
		},
		Materials: []common.ImportedMaterial{
			{
				Name:             "skin",
				BaseColor:        [4]float32{1, 0.5, 0.5, 1},
				Metallic:         0.2,
				Roughness:        0.9,
				AlphaBlend:       true,
				DoubleSided:      true,
				BaseColorTexture: &common.ImportedTexture{Name: "albedo", Data: pngBytes(t)},
			},
		},
	}
}

func TestLoadModelAssemblesDefinition(t *testing.T) {
	meshes := &fakeMeshUploader{}
	textures := texture.NewCache(fakeTextureUploader{})
	materials := registry.New[material.Material]()
	register := func(m material.Material) registry.Handle[material.Material] {
		return materials.Emplace(m)
	}

	loaded, err := LoadModel(context.Background(), meshes, textures, register, sampleDescription(t))
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}

	if len(loaded.Nodes) != 2 || loaded.Nodes[1].Parent != 0 {
		t.Fatalf("unexpected node hierarchy: %+v", loaded.Nodes)
	}
	if len(loaded.Primitives) != 1 {
		t.Fatalf("expected 1 primitive, got %d", len(loaded.Primitives))
	}
	prim := loaded.Primitives[0]
	if prim.Mesh == nil || prim.Mesh.IndexCount != 3 {
		t.Error("primitive geometry was not uploaded")
	}
	if meshes.uploads != 2 {
		t.Errorf("expected one vertex and one index upload, got %d", meshes.uploads)
	}

	// The imported material landed in the arena with its texture attached.
	mat, err := materials.Get(prim.Material)
	if err != nil {
		t.Fatalf("material handle invalid: %v", err)
	}
	if (*mat).Name() != "skin" {
		t.Errorf("expected material skin, got %q", (*mat).Name())
	}
	if (*mat).BlendMode() != pipeline.BlendAlpha || !(*mat).DoubleSided() {
		t.Error("imported blend state not applied")
	}
	if (*mat).Texture(material.SlotBaseColor) == nil {
		t.Error("base color texture not attached")
	}
	if (*mat).Texture(material.SlotNormal) != nil {
		t.Error("absent slots must stay empty")
	}
}

func TestLoadModelRejectsInvalidDescriptions(t *testing.T) {
	textures := texture.NewCache(fakeTextureUploader{})
	materials := registry.New[material.Material]()
	register := func(m material.Material) registry.Handle[material.Material] {
		return materials.Emplace(m)
	}

	bad := sampleDescription(t)
	bad.Nodes[1].Parent = 1
	if _, err := LoadModel(context.Background(), &fakeMeshUploader{}, textures, register, bad); err == nil {
		t.Error("child-before-parent ordering must be rejected")
	}

	bad = sampleDescription(t)
	bad.Primitives[0].Material = 3
	if _, err := LoadModel(context.Background(), &fakeMeshUploader{}, textures, register, bad); err == nil {
		t.Error("dangling material index must be rejected")
	}

	bad = sampleDescription(t)
	bad.Primitives[0].NodeIndices = nil
	if _, err := LoadModel(context.Background(), &fakeMeshUploader{}, textures, register, bad); err == nil {
		t.Error("primitive with no nodes must be rejected")
	}
}
