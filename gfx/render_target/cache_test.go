package render_target

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/KhronosGroup/OpenXR-CTS-sub001/gfx/swapchain"
)

type fakeDepthAllocator struct{}

func (fakeDepthAllocator) CreateDepthTexture(width, height, layers uint32, format wgpu.TextureFormat, sampleCount uint32, label string) (*wgpu.Texture, error) {
	return &wgpu.Texture{}, nil
}

// fakeViewFactory mints distinct views and counts creations.
type fakeViewFactory struct {
	created int
}

func (f *fakeViewFactory) CreateSliceView(texture *wgpu.Texture, format wgpu.TextureFormat, slice uint32, aspect wgpu.TextureAspect, label string) (*wgpu.TextureView, error) {
	f.created++
	return &wgpu.TextureView{}, nil
}

func newBoundCache(t *testing.T, layers uint32) (Cache, *fakeViewFactory) {
	t.Helper()
	tracker := swapchain.NewTracker(fakeDepthAllocator{})
	err := tracker.Allocate(2, swapchain.ImageDescriptor{
		Width:       128,
		Height:      128,
		ArrayLayers: layers,
		Format:      wgpu.TextureFormatRGBA8UnormSrgb,
	})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := tracker.AttachColorImage(i, &wgpu.Texture{}); err != nil {
			t.Fatalf("AttachColorImage(%d): %v", i, err)
		}
	}
	views := &fakeViewFactory{}
	return NewCache(tracker, views), views
}

func TestBindReturnsIdenticalTargetPerSlot(t *testing.T) {
	c, views := newBoundCache(t, 2)

	first, err := c.BindRenderTarget(0, 0)
	if err != nil {
		t.Fatalf("BindRenderTarget: %v", err)
	}
	again, err := c.BindRenderTarget(0, 0)
	if err != nil {
		t.Fatalf("BindRenderTarget second call: %v", err)
	}
	if first != again {
		t.Error("repeated binds of one (index, slice) must return the identical target")
	}
	if views.created != 2 {
		t.Errorf("expected one color + one depth view, got %d creations", views.created)
	}
	if first.ColorView == nil || first.DepthView == nil {
		t.Error("target must carry both attachment views")
	}
	if first.Width != 128 || first.Height != 128 {
		t.Errorf("target must inherit swapchain dimensions, got %dx%d", first.Width, first.Height)
	}
}

func TestDistinctSlotsGetDistinctTargets(t *testing.T) {
	c, _ := newBoundCache(t, 2)

	slice0, err := c.BindRenderTarget(0, 0)
	if err != nil {
		t.Fatalf("BindRenderTarget(0,0): %v", err)
	}
	slice1, err := c.BindRenderTarget(0, 1)
	if err != nil {
		t.Fatalf("BindRenderTarget(0,1): %v", err)
	}
	otherImage, err := c.BindRenderTarget(1, 0)
	if err != nil {
		t.Fatalf("BindRenderTarget(1,0): %v", err)
	}
	if slice0 == slice1 || slice0 == otherImage {
		t.Error("distinct (index, slice) pairs must not share a target")
	}
	if c.Len() != 3 {
		t.Errorf("expected 3 cached targets, got %d", c.Len())
	}
}

func TestBindRejectsInvalidSlots(t *testing.T) {
	c, _ := newBoundCache(t, 1)

	if _, err := c.BindRenderTarget(5, 0); err == nil {
		t.Error("out-of-range index should fail")
	}
	if _, err := c.BindRenderTarget(0, 3); err == nil {
		t.Error("out-of-range slice should fail")
	}

	// An allocated record with no color image attached cannot be bound.
	tracker := swapchain.NewTracker(fakeDepthAllocator{})
	if err := tracker.Allocate(1, swapchain.ImageDescriptor{Width: 8, Height: 8, Format: wgpu.TextureFormatRGBA8Unorm}); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	bare := NewCache(tracker, &fakeViewFactory{})
	if _, err := bare.BindRenderTarget(0, 0); err == nil {
		t.Error("bind before color attach should fail")
	}
}

func TestResetReleasesViewsAndRebuilds(t *testing.T) {
	tracker := swapchain.NewTracker(fakeDepthAllocator{})
	if err := tracker.Allocate(1, swapchain.ImageDescriptor{Width: 8, Height: 8, Format: wgpu.TextureFormatRGBA8Unorm}); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if err := tracker.AttachColorImage(0, &wgpu.Texture{}); err != nil {
		t.Fatalf("AttachColorImage: %v", err)
	}
	views := &fakeViewFactory{}
	released := 0
	c := NewCache(tracker, views, WithReleaser(func(*wgpu.TextureView) { released++ }))

	first, err := c.BindRenderTarget(0, 0)
	if err != nil {
		t.Fatalf("BindRenderTarget: %v", err)
	}

	c.Reset()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after Reset, got %d", c.Len())
	}
	if released != 2 {
		t.Errorf("expected color and depth views released, got %d", released)
	}

	rebuilt, err := c.BindRenderTarget(0, 0)
	if err != nil {
		t.Fatalf("BindRenderTarget after Reset: %v", err)
	}
	if rebuilt == first {
		t.Error("Reset must drop cached targets so binds rebuild them")
	}
	if views.created != 4 {
		t.Errorf("expected 4 view creations across rebuild, got %d", views.created)
	}
}
