package pipeline

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

// fakeFactory mints a distinct pipeline object per call and records the keys
// it compiled.
type fakeFactory struct {
	compiled []StateKey
}

func (f *fakeFactory) CreatePipeline(key StateKey) (*wgpu.RenderPipeline, error) {
	f.compiled = append(f.compiled, key)
	return &wgpu.RenderPipeline{}, nil
}

func baseKey() StateKey {
	return StateKey{
		ColorFormat: wgpu.TextureFormatRGBA8UnormSrgb,
		DepthFormat: wgpu.TextureFormatDepth32Float,
		SampleCount: 1,
		FrontFace:   wgpu.FrontFaceCCW,
	}
}

func TestEqualKeysShareOnePipeline(t *testing.T) {
	factory := &fakeFactory{}
	c := NewCache(factory)

	p1, err := c.GetOrCreate(baseKey())
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	p2, err := c.GetOrCreate(baseKey())
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if p1 != p2 {
		t.Error("structurally equal keys must resolve to the identical pipeline object")
	}
	if len(factory.compiled) != 1 {
		t.Errorf("expected exactly one compilation, got %d", len(factory.compiled))
	}
}

func TestEachKeyDimensionProducesDistinctPipeline(t *testing.T) {
	variants := map[string]func(*StateKey){
		"color format":    func(k *StateKey) { k.ColorFormat = wgpu.TextureFormatRGBA8Unorm },
		"depth format":    func(k *StateKey) { k.DepthFormat = wgpu.TextureFormatDepth24Plus },
		"sample count":    func(k *StateKey) { k.SampleCount = 4 },
		"fill mode":       func(k *StateKey) { k.FillMode = FillWireframe },
		"front face":      func(k *StateKey) { k.FrontFace = wgpu.FrontFaceCW },
		"blend mode":      func(k *StateKey) { k.BlendMode = BlendAlpha },
		"double sided":    func(k *StateKey) { k.DoubleSided = true },
		"depth direction": func(k *StateKey) { k.DepthDirection = DepthReversed },
	}

	for name, mutate := range variants {
		t.Run(name, func(t *testing.T) {
			c := NewCache(&fakeFactory{})
			base, err := c.GetOrCreate(baseKey())
			if err != nil {
				t.Fatalf("GetOrCreate base: %v", err)
			}
			key := baseKey()
			mutate(&key)
			variant, err := c.GetOrCreate(key)
			if err != nil {
				t.Fatalf("GetOrCreate variant: %v", err)
			}
			if variant == base {
				t.Errorf("differing %s must produce a distinct pipeline", name)
			}
			if c.Len() != 2 {
				t.Errorf("expected 2 cache entries, got %d", c.Len())
			}
		})
	}
}

func TestDropAllEmptiesCache(t *testing.T) {
	factory := &fakeFactory{}
	released := 0
	c := NewCache(factory, WithReleaser(func(*wgpu.RenderPipeline) { released++ }))

	if _, err := c.GetOrCreate(baseKey()); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	wire := baseKey()
	wire.FillMode = FillWireframe
	if _, err := c.GetOrCreate(wire); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	c.DropAll()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after DropAll, got %d", c.Len())
	}
	if released != 2 {
		t.Errorf("expected 2 releases, got %d", released)
	}

	// A key seen before DropAll compiles fresh afterwards.
	if _, err := c.GetOrCreate(baseKey()); err != nil {
		t.Fatalf("GetOrCreate after DropAll: %v", err)
	}
	if len(factory.compiled) != 3 {
		t.Errorf("expected 3 compilations, got %d", len(factory.compiled))
	}
}

func TestKeyDerivedFixedFunctionState(t *testing.T) {
	k := baseKey()
	if k.Topology() != wgpu.PrimitiveTopologyTriangleList {
		t.Error("solid fill should use a triangle list")
	}
	if k.CullMode() != wgpu.CullModeBack {
		t.Error("single-sided materials should cull back faces")
	}
	if k.DepthCompare() != wgpu.CompareFunctionLess {
		t.Error("forward depth should compare Less")
	}
	if k.DepthClearValue() != 1 {
		t.Error("forward depth should clear to the far plane at 1")
	}
	if k.BlendState() != nil {
		t.Error("opaque mode should carry no blend state")
	}

	k.FillMode = FillWireframe
	k.DoubleSided = true
	k.DepthDirection = DepthReversed
	k.BlendMode = BlendAlpha
	if k.Topology() != wgpu.PrimitiveTopologyLineList {
		t.Error("wireframe fill should use a line list")
	}
	if k.CullMode() != wgpu.CullModeNone {
		t.Error("double-sided materials should disable culling")
	}
	if k.DepthCompare() != wgpu.CompareFunctionGreater {
		t.Error("reversed depth should compare Greater")
	}
	if k.DepthClearValue() != 0 {
		t.Error("reversed depth should clear to the far plane at 0")
	}
	blend := k.BlendState()
	if blend == nil || blend.Color.SrcFactor != wgpu.BlendFactorSrcAlpha {
		t.Error("alpha mode should blend source-over")
	}
}
