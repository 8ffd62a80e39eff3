package binding_builder

import (
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

// fakeFactory records the entries of the last created bind group.
type fakeFactory struct {
	created int
	entries []wgpu.BindGroupEntry
}

func (f *fakeFactory) CreateBindGroup(layout *wgpu.BindGroupLayout, entries []wgpu.BindGroupEntry, label string) (*wgpu.BindGroup, error) {
	f.created++
	f.entries = entries
	return &wgpu.BindGroup{}, nil
}

// drawLayout declares a uniform buffer, a texture, and a sampler, mirroring
// one material bind group.
func drawLayout() []wgpu.BindGroupLayoutEntry {
	return []wgpu.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: wgpu.ShaderStageFragment,
			Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
		},
		{
			Binding:    1,
			Visibility: wgpu.ShaderStageFragment,
			Texture:    wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeFloat},
		},
		{
			Binding:    2,
			Visibility: wgpu.ShaderStageFragment,
			Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
		},
	}
}

func TestBuildRequiresEveryDeclaredSlot(t *testing.T) {
	factory := &fakeFactory{}
	b := NewBuilder(factory, nil, drawLayout())

	if err := b.SetBuffer(0, &wgpu.Buffer{}, 0, wgpu.WholeSize); err != nil {
		t.Fatalf("SetBuffer: %v", err)
	}

	_, err := b.Build()
	if err == nil {
		t.Fatal("Build with unpopulated slots must fail")
	}
	// The error names every missing slot, not just the first.
	if !strings.Contains(err.Error(), "1 (texture view)") || !strings.Contains(err.Error(), "2 (sampler)") {
		t.Errorf("error should list all missing bindings, got: %v", err)
	}
	if factory.created != 0 {
		t.Errorf("no bind group may be created for an incomplete set, got %d", factory.created)
	}
}

func TestBuildWithCompleteSet(t *testing.T) {
	factory := &fakeFactory{}
	b := NewBuilder(factory, nil, drawLayout())

	if err := b.SetBuffer(0, &wgpu.Buffer{}, 0, wgpu.WholeSize); err != nil {
		t.Fatalf("SetBuffer: %v", err)
	}
	if err := b.SetTextureView(1, &wgpu.TextureView{}); err != nil {
		t.Fatalf("SetTextureView: %v", err)
	}
	if err := b.SetSampler(2, &wgpu.Sampler{}); err != nil {
		t.Fatalf("SetSampler: %v", err)
	}

	set, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if set.Group == nil {
		t.Fatal("binding set must carry the bind group")
	}
	if len(factory.entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(factory.entries))
	}
	// Entries arrive in binding order.
	for i, entry := range factory.entries {
		if entry.Binding != uint32(i) {
			t.Errorf("entry %d has binding %d", i, entry.Binding)
		}
	}
}

func TestSlotKindAndDuplicateValidation(t *testing.T) {
	b := NewBuilder(&fakeFactory{}, nil, drawLayout())

	if err := b.SetTextureView(0, &wgpu.TextureView{}); err == nil {
		t.Error("texture view into a buffer slot should fail")
	}
	if err := b.SetSampler(1, &wgpu.Sampler{}); err == nil {
		t.Error("sampler into a texture slot should fail")
	}
	if err := b.SetBuffer(7, &wgpu.Buffer{}, 0, wgpu.WholeSize); err == nil {
		t.Error("undeclared binding should fail")
	}
	if err := b.SetBuffer(0, nil, 0, wgpu.WholeSize); err == nil {
		t.Error("nil buffer should fail")
	}

	if err := b.SetBuffer(0, &wgpu.Buffer{}, 0, wgpu.WholeSize); err != nil {
		t.Fatalf("SetBuffer: %v", err)
	}
	if err := b.SetBuffer(0, &wgpu.Buffer{}, 0, wgpu.WholeSize); err == nil {
		t.Error("populating a slot twice should fail")
	}
}

func TestReleaseDestroysGroupOnce(t *testing.T) {
	released := 0
	b := NewBuilder(&fakeFactory{}, nil, []wgpu.BindGroupLayoutEntry{
		{Binding: 0, Visibility: wgpu.ShaderStageVertex, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}},
	}, WithReleaser(func(*wgpu.BindGroup) { released++ }))

	if err := b.SetBuffer(0, &wgpu.Buffer{}, 0, wgpu.WholeSize); err != nil {
		t.Fatalf("SetBuffer: %v", err)
	}
	set, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	set.Release()
	set.Release()
	if released != 1 {
		t.Errorf("expected exactly one release, got %d", released)
	}
}
