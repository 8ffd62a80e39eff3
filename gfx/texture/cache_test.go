package texture

import (
	"bytes"
	"image"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/KhronosGroup/OpenXR-CTS-sub001/common"
)

// fakeUploader counts uploads; safe for concurrent use.
type fakeUploader struct {
	uploads atomic.Int32
}

func (f *fakeUploader) UploadRGBA(data common.TextureStagingData, srgb bool, sampler *common.SamplerStagingData, label string) (*wgpu.Texture, *wgpu.TextureView, *wgpu.Sampler, error) {
	f.uploads.Add(1)
	return &wgpu.Texture{}, &wgpu.TextureView{}, &wgpu.Sampler{}, nil
}

func noReleaseCache(uploader *fakeUploader) Cache {
	return NewCache(uploader, WithReleasers(
		func(*wgpu.Texture) {},
		func(*wgpu.TextureView) {},
		func(*wgpu.Sampler) {},
	))
}

func TestSolidColorUploadsOncePerKey(t *testing.T) {
	uploader := &fakeUploader{}
	c := noReleaseCache(uploader)

	red := [4]float32{1, 0, 0, 1}
	first, err := c.SolidColor(red, true)
	if err != nil {
		t.Fatalf("SolidColor: %v", err)
	}
	second, err := c.SolidColor(red, true)
	if err != nil {
		t.Fatalf("SolidColor second call: %v", err)
	}
	if first != second {
		t.Error("same color and color space must share one bundle")
	}
	if got := uploader.uploads.Load(); got != 1 {
		t.Errorf("expected one upload, got %d", got)
	}

	// Same color in the other color space is a distinct entry.
	linear, err := c.SolidColor(red, false)
	if err != nil {
		t.Fatalf("SolidColor linear: %v", err)
	}
	if linear == first {
		t.Error("color space must be part of the cache key")
	}
	if got := uploader.uploads.Load(); got != 2 {
		t.Errorf("expected two uploads, got %d", got)
	}
}

func TestConcurrentSolidColorSharesOneUpload(t *testing.T) {
	uploader := &fakeUploader{}
	c := noReleaseCache(uploader)

	const callers = 8
	results := make([]*Shared, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			s, err := c.SolidColor([4]float32{0, 1, 0, 1}, true)
			if err != nil {
				t.Errorf("SolidColor: %v", err)
				return
			}
			results[i] = s
		}(i)
	}
	wg.Wait()

	if got := uploader.uploads.Load(); got != 1 {
		t.Errorf("expected exactly one upload across concurrent callers, got %d", got)
	}
	for i := 1; i < callers; i++ {
		if results[i] != results[0] {
			t.Fatalf("caller %d received a different bundle", i)
		}
	}
}

func TestSharedReleasedWhenLastHolderDrops(t *testing.T) {
	uploader := &fakeUploader{}
	var destroyed atomic.Int32
	c := NewCache(uploader, WithReleasers(
		func(*wgpu.Texture) { destroyed.Add(1) },
		func(*wgpu.TextureView) {},
		func(*wgpu.Sampler) {},
	))

	a, err := c.SolidColor([4]float32{0, 0, 1, 1}, true)
	if err != nil {
		t.Fatalf("SolidColor: %v", err)
	}
	b, err := c.SolidColor([4]float32{0, 0, 1, 1}, true)
	if err != nil {
		t.Fatalf("SolidColor: %v", err)
	}

	// Two holders plus the cache's own reference.
	a.Release()
	b.Release()
	if destroyed.Load() != 0 {
		t.Fatal("bundle destroyed while the cache still holds it")
	}

	c.DropAll()
	if destroyed.Load() != 1 {
		t.Errorf("expected bundle destroyed after the cache dropped it, got %d", destroyed.Load())
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache after DropAll, got %d", c.Len())
	}
}

func TestFromImageMemoizedBySource(t *testing.T) {
	uploader := &fakeUploader{}
	c := noReleaseCache(uploader)

	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	source := &common.ImportedTexture{Name: "baseColor", Data: buf.Bytes()}

	first, err := c.FromImage(source, true)
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}
	second, err := c.FromImage(source, true)
	if err != nil {
		t.Fatalf("FromImage second call: %v", err)
	}
	if first != second {
		t.Error("same source must share one bundle")
	}
	if got := uploader.uploads.Load(); got != 1 {
		t.Errorf("expected one upload, got %d", got)
	}

	if _, err := c.FromImage(nil, true); err == nil {
		t.Error("nil source should fail")
	}
}
