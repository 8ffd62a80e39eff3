// Package binding_builder assembles the complete set of buffer, texture, and
// sampler bindings needed for one draw call. A builder is constructed per
// draw over a declared bind-group layout; every declared slot must be
// populated exactly once before Build, and an incomplete set is rejected
// rather than silently producing undefined rendering.
package binding_builder

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// Factory abstracts bind group creation. The graphics device satisfies this;
// tests inject a fake.
type Factory interface {
	// CreateBindGroup creates a bind group against a layout.
	//
	// Parameters:
	//   - layout: the bind group layout
	//   - entries: the populated binding entries
	//   - label: debug label for the bind group
	//
	// Returns:
	//   - *wgpu.BindGroup: the new bind group
	//   - error: an error if creation fails
	CreateBindGroup(layout *wgpu.BindGroupLayout, entries []wgpu.BindGroupEntry, label string) (*wgpu.BindGroup, error)
}

// entryKind classifies what a declared layout entry expects.
type entryKind int

const (
	kindBuffer entryKind = iota
	kindTexture
	kindSampler
)

func (k entryKind) String() string {
	switch k {
	case kindTexture:
		return "texture view"
	case kindSampler:
		return "sampler"
	default:
		return "buffer"
	}
}

// classify derives the expected resource kind from a layout entry.
func classify(entry wgpu.BindGroupLayoutEntry) entryKind {
	if entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined {
		return kindTexture
	}
	if entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined {
		return kindSampler
	}
	return kindBuffer
}

// Builder populates the bindings for one draw call. Not reused across draws:
// bindings reference per-draw transient buffers.
type Builder interface {
	// SetBuffer populates a buffer binding slot.
	//
	// Parameters:
	//   - binding: the declared binding index
	//   - buffer: the buffer to bind
	//   - offset: byte offset into the buffer
	//   - size: bound range in bytes (wgpu.WholeSize for the remainder)
	//
	// Returns:
	//   - error: an error if the slot is undeclared, already populated, or
	//     not a buffer slot
	SetBuffer(binding uint32, buffer *wgpu.Buffer, offset, size uint64) error

	// SetTextureView populates a texture binding slot.
	//
	// Parameters:
	//   - binding: the declared binding index
	//   - view: the texture view to bind
	//
	// Returns:
	//   - error: an error if the slot is undeclared, already populated, or
	//     not a texture slot
	SetTextureView(binding uint32, view *wgpu.TextureView) error

	// SetSampler populates a sampler binding slot.
	//
	// Parameters:
	//   - binding: the declared binding index
	//   - sampler: the sampler to bind
	//
	// Returns:
	//   - error: an error if the slot is undeclared, already populated, or
	//     not a sampler slot
	SetSampler(binding uint32, sampler *wgpu.Sampler) error

	// Build creates the bind group. Every declared slot must have been
	// populated; otherwise Build fails listing all missing binding indices.
	//
	// Returns:
	//   - *BindingSet: the complete binding set
	//   - error: a usage error naming every missing binding, or a native
	//     error if bind group creation fails
	Build() (*BindingSet, error)
}

// BindingSet is the complete collection of bindings for one draw call.
type BindingSet struct {
	Group *wgpu.BindGroup

	release func(*wgpu.BindGroup)
}

// Release destroys the bind group.
func (s *BindingSet) Release() {
	if s.Group != nil && s.release != nil {
		s.release(s.Group)
		s.Group = nil
	}
}

// builder is the implementation of the Builder interface.
type builder struct {
	factory  Factory
	layout   *wgpu.BindGroupLayout
	declared map[uint32]entryKind
	label    string

	populated map[uint32]wgpu.BindGroupEntry
	release   func(*wgpu.BindGroup)
}

var _ Builder = &builder{}

// NewBuilder creates a binding builder over a declared layout.
// Panics if the factory is nil.
//
// Parameters:
//   - factory: the bind group factory (must not be nil)
//   - layout: the bind group layout the set targets
//   - declared: the layout entries declaring each slot's kind
//   - options: variadic list of BuilderOption functions to configure the builder
//
// Returns:
//   - Builder: a fresh builder with no slots populated
func NewBuilder(factory Factory, layout *wgpu.BindGroupLayout, declared []wgpu.BindGroupLayoutEntry, options ...BuilderOption) Builder {
	if factory == nil {
		panic("binding_builder: NewBuilder requires a non-nil Factory")
	}
	b := &builder{
		factory:   factory,
		layout:    layout,
		declared:  make(map[uint32]entryKind, len(declared)),
		label:     "Binding Set",
		populated: make(map[uint32]wgpu.BindGroupEntry, len(declared)),
		release:   func(g *wgpu.BindGroup) { g.Release() },
	}
	for _, entry := range declared {
		b.declared[entry.Binding] = classify(entry)
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// set records an entry after validating the slot's declaration and kind.
func (b *builder) set(binding uint32, kind entryKind, entry wgpu.BindGroupEntry) error {
	declared, ok := b.declared[binding]
	if !ok {
		return fmt.Errorf("binding_builder: %s: binding %d is not declared in the layout", b.label, binding)
	}
	if declared != kind {
		return fmt.Errorf("binding_builder: %s: binding %d expects a %s, got a %s", b.label, binding, declared, kind)
	}
	if _, dup := b.populated[binding]; dup {
		return fmt.Errorf("binding_builder: %s: binding %d populated twice", b.label, binding)
	}
	b.populated[binding] = entry
	return nil
}

func (b *builder) SetBuffer(binding uint32, buffer *wgpu.Buffer, offset, size uint64) error {
	if buffer == nil {
		return fmt.Errorf("binding_builder: %s: nil buffer for binding %d", b.label, binding)
	}
	return b.set(binding, kindBuffer, wgpu.BindGroupEntry{
		Binding: binding,
		Buffer:  buffer,
		Offset:  offset,
		Size:    size,
	})
}

func (b *builder) SetTextureView(binding uint32, view *wgpu.TextureView) error {
	if view == nil {
		return fmt.Errorf("binding_builder: %s: nil texture view for binding %d", b.label, binding)
	}
	return b.set(binding, kindTexture, wgpu.BindGroupEntry{
		Binding:     binding,
		TextureView: view,
	})
}

func (b *builder) SetSampler(binding uint32, sampler *wgpu.Sampler) error {
	if sampler == nil {
		return fmt.Errorf("binding_builder: %s: nil sampler for binding %d", b.label, binding)
	}
	return b.set(binding, kindSampler, wgpu.BindGroupEntry{
		Binding: binding,
		Sampler: sampler,
	})
}

func (b *builder) Build() (*BindingSet, error) {
	if missing := b.missing(); len(missing) > 0 {
		return nil, fmt.Errorf("binding_builder: %s: incomplete binding set, missing bindings [%s]", b.label, missing)
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(b.populated))
	for _, entry := range b.populated {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })

	group, err := b.factory.CreateBindGroup(b.layout, entries, b.label)
	if err != nil {
		return nil, fmt.Errorf("binding_builder: %s: failed to create bind group: %w", b.label, err)
	}
	return &BindingSet{Group: group, release: b.release}, nil
}

// missing lists every declared-but-unpopulated binding index, sorted.
func (b *builder) missing() string {
	var indices []int
	for binding := range b.declared {
		if _, ok := b.populated[binding]; !ok {
			indices = append(indices, int(binding))
		}
	}
	if len(indices) == 0 {
		return ""
	}
	sort.Ints(indices)
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = fmt.Sprintf("%d (%s)", idx, b.declared[uint32(idx)])
	}
	return strings.Join(parts, ", ")
}
