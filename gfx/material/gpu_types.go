package material

import (
	"unsafe"

	"github.com/KhronosGroup/OpenXR-CTS-sub001/common"
)

// GPUMaterialParams is the GPU-aligned uniform for the fragment shader's
// material block. Matches the WGSL MaterialParams struct layout exactly.
// Size: 48 bytes (two vec4<f32> plus four f32, std140 aligned).
type GPUMaterialParams struct {
	BaseColor         [4]float32 // offset 0: RGBA base color factor (16 bytes)
	Emissive          [4]float32 // offset 16: RGB emissive factor + unused alpha (16 bytes)
	Metallic          float32    // offset 32: metallic factor
	Roughness         float32    // offset 36: roughness factor
	OcclusionStrength float32    // offset 40: occlusion texture strength
	NormalScale       float32    // offset 44: normal map scale
}

// Size returns the size of the GPUMaterialParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g GPUMaterialParams) Size() int {
	return int(unsafe.Sizeof(g))
}

// Marshal serializes the GPUMaterialParams struct into a byte buffer suitable
// for GPU upload. The struct has no padding beyond its declared fields, so
// its memory layout is the upload layout.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload.
func (g GPUMaterialParams) Marshal() []byte {
	return append([]byte(nil), common.StructToBytes(&g)...)
}
