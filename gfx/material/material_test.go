package material

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/KhronosGroup/OpenXR-CTS-sub001/common"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/pipeline"
	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/texture"
)

type fakeUploader struct{}

func (fakeUploader) UploadRGBA(data common.TextureStagingData, srgb bool, sampler *common.SamplerStagingData, label string) (*wgpu.Texture, *wgpu.TextureView, *wgpu.Sampler, error) {
	return &wgpu.Texture{}, &wgpu.TextureView{}, &wgpu.Sampler{}, nil
}

// solidBundle mints a retained shared texture whose destruction bumps the
// counter.
func solidBundle(t *testing.T, destroyed *int, rgba [4]float32) *texture.Shared {
	t.Helper()
	cache := texture.NewCache(fakeUploader{}, texture.WithReleasers(
		func(*wgpu.Texture) { *destroyed++ },
		func(*wgpu.TextureView) {},
		func(*wgpu.Sampler) {},
	))
	s, err := cache.SolidColor(rgba, true)
	if err != nil {
		t.Fatalf("SolidColor: %v", err)
	}
	// Drop the cache's own reference so the material holds the last one.
	cache.DropAll()
	return s
}

func TestCloneIsIndependent(t *testing.T) {
	destroyed := 0
	m := NewMaterial(
		WithName("pbr"),
		WithBaseColor([4]float32{1, 0, 0, 1}),
		WithMetallicRoughness(0.5, 0.25),
		WithBlendMode(pipeline.BlendAlpha),
		WithDoubleSided(),
	)
	m.SetTexture(SlotBaseColor, solidBundle(t, &destroyed, [4]float32{1, 1, 1, 1}))

	clone := m.Clone()

	m.SetBaseColor([4]float32{0, 1, 0, 1})
	m.SetHidden(true)
	if clone.BaseColor() != [4]float32{1, 0, 0, 1} {
		t.Error("mutating the original must not affect the clone")
	}
	if clone.Hidden() {
		t.Error("clone must not inherit later flag changes")
	}
	if clone.BlendMode() != pipeline.BlendAlpha || !clone.DoubleSided() {
		t.Error("clone must carry the original's blend state")
	}
	if clone.Texture(SlotBaseColor) != m.Texture(SlotBaseColor) {
		t.Error("clone shares the original's texture bundles")
	}

	// The shared texture survives until the last holder releases.
	m.Release()
	if destroyed != 0 {
		t.Fatal("texture destroyed while the clone still holds it")
	}
	clone.Release()
	if destroyed != 1 {
		t.Errorf("expected texture destroyed after last release, got %d", destroyed)
	}
}

func TestSetTextureReleasesPrevious(t *testing.T) {
	destroyed := 0
	m := NewMaterial()

	m.SetTexture(SlotEmissive, solidBundle(t, &destroyed, [4]float32{1, 0, 0, 1}))
	m.SetTexture(SlotEmissive, solidBundle(t, &destroyed, [4]float32{0, 0, 1, 1}))
	if destroyed != 1 {
		t.Errorf("replacing a slot must release the previous bundle, got %d destructions", destroyed)
	}

	m.SetTexture(SlotEmissive, nil)
	if destroyed != 2 {
		t.Errorf("clearing a slot must release its bundle, got %d destructions", destroyed)
	}
	if m.Texture(SlotEmissive) != nil {
		t.Error("cleared slot must read back nil")
	}
}

func TestGPUParamsLayout(t *testing.T) {
	m := NewMaterial(
		WithBaseColor([4]float32{0.1, 0.2, 0.3, 0.4}),
		WithMetallicRoughness(0.75, 0.5),
		WithEmissive([3]float32{1, 2, 3}),
		WithOcclusionStrength(0.8),
		WithNormalScale(2),
	)

	params := m.GPUParams()
	if params.Size() != 48 {
		t.Fatalf("expected a 48-byte uniform, got %d", params.Size())
	}

	buf := params.Marshal()
	if len(buf) != 48 {
		t.Fatalf("expected 48 marshaled bytes, got %d", len(buf))
	}
	// Marshal must work on the returned value directly, without storing it
	// in an addressable variable first.
	if chained := m.GPUParams().Marshal(); len(chained) != 48 {
		t.Fatalf("expected 48 bytes from chained marshal, got %d", len(chained))
	}
	at := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4]))
	}
	if at(0) != 0.1 || at(12) != 0.4 {
		t.Error("base color not at offset 0")
	}
	if at(16) != 1 || at(24) != 3 {
		t.Error("emissive not at offset 16")
	}
	if at(32) != 0.75 {
		t.Error("metallic not at offset 32")
	}
	if at(36) != 0.5 {
		t.Error("roughness not at offset 36")
	}
	if at(40) != 0.8 {
		t.Error("occlusion strength not at offset 40")
	}
	if at(44) != 2 {
		t.Error("normal scale not at offset 44")
	}
}
