package mesh

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

// fakeUploader captures upload sizes and counts.
type fakeUploader struct {
	vertexBytes int
	indexBytes  int
	uploads     int
}

func (f *fakeUploader) CreateVertexBuffer(data []byte, label string) (*wgpu.Buffer, error) {
	f.vertexBytes = len(data)
	f.uploads++
	return &wgpu.Buffer{}, nil
}

func (f *fakeUploader) CreateIndexBuffer(data []byte, label string) (*wgpu.Buffer, error) {
	f.indexBytes = len(data)
	f.uploads++
	return &wgpu.Buffer{}, nil
}

func triangle() ([]Vertex, []uint32) {
	return []Vertex{
		{Position: [3]float32{-1, 0, 0}, Color: [4]float32{1, 1, 1, 1}},
		{Position: [3]float32{1, 0, 0}, Color: [4]float32{1, 1, 1, 1}},
		{Position: [3]float32{0, 1, 0}, Color: [4]float32{1, 1, 1, 1}},
	}, []uint32{0, 1, 2}
}

func TestNewMeshUploadsOnce(t *testing.T) {
	uploader := &fakeUploader{}
	vertices, indices := triangle()

	m, err := NewMesh(uploader, vertices, indices, WithLabel("Triangle"))
	if err != nil {
		t.Fatalf("NewMesh: %v", err)
	}
	if uploader.uploads != 2 {
		t.Errorf("expected one vertex and one index upload, got %d", uploader.uploads)
	}
	if uploader.vertexBytes != 3*48 {
		t.Errorf("expected 144 vertex bytes, got %d", uploader.vertexBytes)
	}
	if uploader.indexBytes != 3*4 {
		t.Errorf("expected 12 index bytes, got %d", uploader.indexBytes)
	}
	if m.IndexCount != 3 || m.VertexCount != 3 {
		t.Errorf("expected counts 3/3, got %d/%d", m.IndexCount, m.VertexCount)
	}
}

func TestNewMeshValidatesGeometry(t *testing.T) {
	uploader := &fakeUploader{}
	vertices, _ := triangle()

	if _, err := NewMesh(uploader, nil, []uint32{0}); err == nil {
		t.Error("empty vertices should fail")
	}
	if _, err := NewMesh(uploader, vertices, nil); err == nil {
		t.Error("empty indices should fail")
	}
	if _, err := NewMesh(uploader, vertices, []uint32{0, 1, 9}); err == nil {
		t.Error("out-of-range index should fail")
	}
	if uploader.uploads != 0 {
		t.Errorf("no uploads may happen for invalid geometry, got %d", uploader.uploads)
	}
}

func TestBoundingSphereCoversGeometry(t *testing.T) {
	vertices, indices := triangle()
	m, err := NewMesh(&fakeUploader{}, vertices, indices)
	if err != nil {
		t.Fatalf("NewMesh: %v", err)
	}

	if m.BoundsCenter != [3]float32{0, 0.5, 0} {
		t.Errorf("unexpected bounds center %v", m.BoundsCenter)
	}
	// The farthest vertices are (+-1, 0, 0), at distance sqrt(1 + 0.25).
	if m.BoundsRadius < 1.1 || m.BoundsRadius > 1.2 {
		t.Errorf("unexpected bounds radius %v", m.BoundsRadius)
	}
}

func TestCubeGeometry(t *testing.T) {
	vertices, indices := CubeGeometry([4]float32{1, 0, 0, 1})
	if len(vertices) != 24 {
		t.Errorf("expected 24 vertices, got %d", len(vertices))
	}
	if len(indices) != 36 {
		t.Errorf("expected 36 indices, got %d", len(indices))
	}

	m, err := NewMesh(&fakeUploader{}, vertices, indices)
	if err != nil {
		t.Fatalf("NewMesh: %v", err)
	}
	if m.BoundsCenter != [3]float32{0, 0, 0} {
		t.Errorf("cube should be centered at the origin, got %v", m.BoundsCenter)
	}
	// Corner distance for a unit cube is sqrt(3)/2.
	if m.BoundsRadius < 0.86 || m.BoundsRadius > 0.87 {
		t.Errorf("unexpected cube radius %v", m.BoundsRadius)
	}
}
