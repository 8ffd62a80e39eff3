// Package pipeline caches compiled render pipeline objects keyed by the
// structural state that distinguishes them. Pipelines are immutable after
// creation; a changed dimension always maps to a different cache entry.
package pipeline

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// FillMode selects how primitives are rasterized.
type FillMode int

const (
	// FillSolid rasterizes filled triangles.
	FillSolid FillMode = iota

	// FillWireframe rasterizes edges only, using a line-list topology.
	FillWireframe
)

// BlendMode selects the color blend equation.
type BlendMode int

const (
	// BlendOpaque writes color with no blending.
	BlendOpaque BlendMode = iota

	// BlendAlpha performs classic source-over alpha blending.
	BlendAlpha

	// BlendAdditive adds source color onto the destination.
	BlendAdditive
)

// DepthDirection selects the depth comparison convention.
type DepthDirection int

const (
	// DepthForward uses a conventional depth range with a Less comparison.
	DepthForward DepthDirection = iota

	// DepthReversed uses a reversed depth range with a Greater comparison.
	DepthReversed
)

// StateKey is the structural identity of a render pipeline. Two draws whose
// keys are equal may share one compiled pipeline object; any single differing
// dimension requires a distinct one. The zero key is a valid opaque,
// solid-fill, counter-clockwise, forward-depth configuration once formats
// are filled in.
type StateKey struct {
	ColorFormat    wgpu.TextureFormat
	DepthFormat    wgpu.TextureFormat
	SampleCount    uint32
	FillMode       FillMode
	FrontFace      wgpu.FrontFace
	BlendMode      BlendMode
	DoubleSided    bool
	DepthDirection DepthDirection
}

// Topology returns the primitive topology implied by the fill mode.
//
// Returns:
//   - wgpu.PrimitiveTopology: triangle list for solid, line list for wireframe
func (k StateKey) Topology() wgpu.PrimitiveTopology {
	if k.FillMode == FillWireframe {
		return wgpu.PrimitiveTopologyLineList
	}
	return wgpu.PrimitiveTopologyTriangleList
}

// CullMode returns the face culling implied by the double-sided flag.
//
// Returns:
//   - wgpu.CullMode: none for double-sided materials, back otherwise
func (k StateKey) CullMode() wgpu.CullMode {
	if k.DoubleSided {
		return wgpu.CullModeNone
	}
	return wgpu.CullModeBack
}

// DepthCompare returns the depth comparison function implied by the depth
// direction.
//
// Returns:
//   - wgpu.CompareFunction: Less for forward depth, Greater for reversed
func (k StateKey) DepthCompare() wgpu.CompareFunction {
	if k.DepthDirection == DepthReversed {
		return wgpu.CompareFunctionGreater
	}
	return wgpu.CompareFunctionLess
}

// DepthClearValue returns the far-plane clear value implied by the depth
// direction.
//
// Returns:
//   - float32: 1 for forward depth, 0 for reversed
func (k StateKey) DepthClearValue() float32 {
	if k.DepthDirection == DepthReversed {
		return 0
	}
	return 1
}

// BlendState returns the blend configuration for the color target, or nil
// for opaque output.
//
// Returns:
//   - *wgpu.BlendState: the blend state, or nil when no blending applies
func (k StateKey) BlendState() *wgpu.BlendState {
	switch k.BlendMode {
	case BlendAlpha:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	case BlendAdditive:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOne,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOne,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	default:
		return nil
	}
}

// String formats the key for diagnostics and pipeline labels.
//
// Returns:
//   - string: a compact key description
func (k StateKey) String() string {
	return fmt.Sprintf("color=%d depth=%d samples=%d fill=%d face=%d blend=%d doubleSided=%t depthDir=%d",
		k.ColorFormat, k.DepthFormat, k.SampleCount, k.FillMode, k.FrontFace, k.BlendMode, k.DoubleSided, k.DepthDirection)
}
