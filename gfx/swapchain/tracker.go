// Package swapchain tracks runtime-owned swapchain color images and the
// auxiliary per-image state this subsystem maintains for them. Color images
// are borrowed from the external runtime and never released here; depth
// images are either borrowed alongside them or lazily self-allocated and
// owned by the tracker.
package swapchain

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ImageDescriptor declares the dimensions and format shared by every image
// in a tracked swapchain.
type ImageDescriptor struct {
	Width       uint32
	Height      uint32
	ArrayLayers uint32
	Format      wgpu.TextureFormat
	SampleCount uint32
}

// Record is the per-image tracking state. The color image is borrowed from
// the runtime; the depth image is owned only when it was self-allocated as a
// fallback.
type Record struct {
	Index int

	// Color is the runtime-owned color image. Never released by this package.
	Color *wgpu.Texture

	depth         *wgpu.Texture
	depthBorrowed bool
}

// Depth returns the depth image attached to or allocated for this record,
// or nil if none has been materialized yet.
//
// Returns:
//   - *wgpu.Texture: the depth image or nil
func (r *Record) Depth() *wgpu.Texture {
	return r.depth
}

// DepthAllocator abstracts the device call the tracker needs for fallback
// depth allocation. The graphics device satisfies this; tests inject a fake.
type DepthAllocator interface {
	// CreateDepthTexture creates a depth texture sized for one swapchain image.
	//
	// Parameters:
	//   - width: texture width in pixels
	//   - height: texture height in pixels
	//   - layers: number of array layers
	//   - format: the depth texture format
	//   - sampleCount: MSAA sample count
	//   - label: debug label for the texture
	//
	// Returns:
	//   - *wgpu.Texture: the new depth texture
	//   - error: an error if allocation fails
	CreateDepthTexture(width, height, layers uint32, format wgpu.TextureFormat, sampleCount uint32, label string) (*wgpu.Texture, error)
}

// Tracker maintains the image records for one swapchain. Color images are
// registered by the runtime after allocation and resolved back to their index
// through an explicit association table rather than pointer arithmetic.
type Tracker interface {
	// Allocate creates capacity empty image records sized to the descriptor.
	// Depth images are not created eagerly; they materialize on first access
	// through GetOrCreateFallbackDepth unless a borrowed depth image is
	// attached first.
	//
	// Parameters:
	//   - capacity: number of images in the swapchain
	//   - desc: dimensions and format shared by all images
	//
	// Returns:
	//   - error: an error if the tracker already holds records
	Allocate(capacity int, desc ImageDescriptor) error

	// AttachColorImage registers the runtime-owned color image for an index.
	//
	// Parameters:
	//   - index: the swapchain image index
	//   - color: the borrowed color image
	//
	// Returns:
	//   - error: an error if the index is out of range or already registered
	AttachColorImage(index int, color *wgpu.Texture) error

	// AttachDepthImage registers a runtime-owned depth image for an index.
	// A record with a borrowed depth image never allocates a fallback.
	//
	// Parameters:
	//   - index: the swapchain image index
	//   - depth: the borrowed depth image
	//
	// Returns:
	//   - error: an error if the index is out of range or depth already set
	AttachDepthImage(index int, depth *wgpu.Texture) error

	// Resolve maps a runtime color image back to its record and index.
	// Lookup is O(1) through the association table.
	//
	// Parameters:
	//   - color: the runtime color image to look up
	//
	// Returns:
	//   - *Record: the matching record
	//   - int: the image index
	//   - error: an error if the image is not tracked
	Resolve(color *wgpu.Texture) (*Record, int, error)

	// Record returns the record at an index.
	//
	// Parameters:
	//   - index: the swapchain image index
	//
	// Returns:
	//   - *Record: the record
	//   - error: an error if the index is out of range
	Record(index int) (*Record, error)

	// GetOrCreateFallbackDepth returns the depth image for an index,
	// allocating an owned fallback on first access when the runtime provided
	// none.
	//
	// Parameters:
	//   - index: the swapchain image index
	//
	// Returns:
	//   - *wgpu.Texture: the borrowed or owned depth image
	//   - error: an error if the index is out of range or allocation fails
	GetOrCreateFallbackDepth(index int) (*wgpu.Texture, error)

	// Descriptor returns the descriptor the records were allocated with.
	//
	// Returns:
	//   - ImageDescriptor: the shared image descriptor
	Descriptor() ImageDescriptor

	// DepthFormat returns the format used for fallback depth allocation.
	//
	// Returns:
	//   - wgpu.TextureFormat: the depth format
	DepthFormat() wgpu.TextureFormat

	// Capacity returns the number of image records.
	//
	// Returns:
	//   - int: the record count
	Capacity() int

	// Reset releases all owned depth images and drops every record. Borrowed
	// color and depth images are never released.
	Reset()
}

// tracker is the implementation of the Tracker interface.
type tracker struct {
	alloc       DepthAllocator
	label       string
	depthFormat wgpu.TextureFormat

	desc    ImageDescriptor
	records []Record
	byColor map[*wgpu.Texture]int
}

var _ Tracker = &tracker{}

// NewTracker creates an empty swapchain tracker.
// Panics if the depth allocator is nil.
//
// Parameters:
//   - alloc: the device depth allocator (must not be nil)
//   - options: variadic list of TrackerBuilderOption functions to configure the tracker
//
// Returns:
//   - Tracker: a new tracker with no records
func NewTracker(alloc DepthAllocator, options ...TrackerBuilderOption) Tracker {
	if alloc == nil {
		panic("swapchain: NewTracker requires a non-nil DepthAllocator")
	}
	t := &tracker{
		alloc:       alloc,
		label:       "Swapchain",
		depthFormat: wgpu.TextureFormatDepth32Float,
		byColor:     make(map[*wgpu.Texture]int),
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

func (t *tracker) Allocate(capacity int, desc ImageDescriptor) error {
	if len(t.records) != 0 {
		return fmt.Errorf("swapchain: %s: already allocated with %d records; Reset first", t.label, len(t.records))
	}
	if capacity <= 0 {
		return fmt.Errorf("swapchain: %s: capacity must be positive, got %d", t.label, capacity)
	}
	if desc.ArrayLayers == 0 {
		desc.ArrayLayers = 1
	}
	if desc.SampleCount == 0 {
		desc.SampleCount = 1
	}
	t.desc = desc
	t.records = make([]Record, capacity)
	for i := range t.records {
		t.records[i].Index = i
	}
	return nil
}

func (t *tracker) AttachColorImage(index int, color *wgpu.Texture) error {
	r, err := t.Record(index)
	if err != nil {
		return err
	}
	if color == nil {
		return fmt.Errorf("swapchain: %s: nil color image for index %d", t.label, index)
	}
	if r.Color != nil {
		return fmt.Errorf("swapchain: %s: index %d already has a color image", t.label, index)
	}
	r.Color = color
	t.byColor[color] = index
	return nil
}

func (t *tracker) AttachDepthImage(index int, depth *wgpu.Texture) error {
	r, err := t.Record(index)
	if err != nil {
		return err
	}
	if depth == nil {
		return fmt.Errorf("swapchain: %s: nil depth image for index %d", t.label, index)
	}
	if r.depth != nil {
		return fmt.Errorf("swapchain: %s: index %d already has a depth image", t.label, index)
	}
	r.depth = depth
	r.depthBorrowed = true
	return nil
}

func (t *tracker) Resolve(color *wgpu.Texture) (*Record, int, error) {
	index, ok := t.byColor[color]
	if !ok {
		return nil, 0, fmt.Errorf("swapchain: %s: color image not tracked", t.label)
	}
	return &t.records[index], index, nil
}

func (t *tracker) Record(index int) (*Record, error) {
	if index < 0 || index >= len(t.records) {
		return nil, fmt.Errorf("swapchain: %s: index %d out of range (%d records)", t.label, index, len(t.records))
	}
	return &t.records[index], nil
}

func (t *tracker) GetOrCreateFallbackDepth(index int) (*wgpu.Texture, error) {
	r, err := t.Record(index)
	if err != nil {
		return nil, err
	}
	if r.depth != nil {
		return r.depth, nil
	}
	depth, err := t.alloc.CreateDepthTexture(
		t.desc.Width,
		t.desc.Height,
		t.desc.ArrayLayers,
		t.depthFormat,
		t.desc.SampleCount,
		fmt.Sprintf("%s Fallback Depth %d", t.label, index),
	)
	if err != nil {
		return nil, fmt.Errorf("swapchain: %s: failed to allocate fallback depth for index %d: %w", t.label, index, err)
	}
	r.depth = depth
	r.depthBorrowed = false
	return depth, nil
}

func (t *tracker) Descriptor() ImageDescriptor {
	return t.desc
}

func (t *tracker) DepthFormat() wgpu.TextureFormat {
	return t.depthFormat
}

func (t *tracker) Capacity() int {
	return len(t.records)
}

func (t *tracker) Reset() {
	for i := range t.records {
		r := &t.records[i]
		if r.depth != nil && !r.depthBorrowed {
			r.depth.Release()
		}
		r.depth = nil
		r.Color = nil
	}
	t.records = nil
	t.byColor = make(map[*wgpu.Texture]int)
	t.desc = ImageDescriptor{}
}
