package common

import "math"

// Plane represents a plane in 3D space using the equation ax + by + cz + d = 0,
// where (a, b, c) is the normal and d is the distance from origin.
type Plane struct {
	Normal   [3]float32
	Distance float32
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that the positive half-space is inside the frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// Frustum plane indices.
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// ExtractFrustum extracts frustum planes from a combined view-projection
// matrix using the Gribb/Hartmann method.
//
// Parameters:
//   - viewProj: 16 float32 values representing the view-projection matrix (column-major)
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustum(viewProj []float32) Frustum {
	var f Frustum

	// For a column-major matrix, element M[i][j] is at index j*4 + i.
	rows := [4][4]float32{}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			rows[i][j] = viewProj[j*4+i]
		}
	}

	set := func(idx int, a, b [4]float32, sign float32) {
		f.Planes[idx].Normal[0] = a[0] + sign*b[0]
		f.Planes[idx].Normal[1] = a[1] + sign*b[1]
		f.Planes[idx].Normal[2] = a[2] + sign*b[2]
		f.Planes[idx].Distance = a[3] + sign*b[3]
	}

	r0 := [4]float32{rows[0][0], rows[0][1], rows[0][2], rows[0][3]}
	r1 := [4]float32{rows[1][0], rows[1][1], rows[1][2], rows[1][3]}
	r2 := [4]float32{rows[2][0], rows[2][1], rows[2][2], rows[2][3]}
	r3 := [4]float32{rows[3][0], rows[3][1], rows[3][2], rows[3][3]}

	set(FrustumLeft, r3, r0, 1)
	set(FrustumRight, r3, r0, -1)
	set(FrustumBottom, r3, r1, 1)
	set(FrustumTop, r3, r1, -1)
	set(FrustumNear, r3, r2, 1)
	set(FrustumFar, r3, r2, -1)

	for i := range f.Planes {
		f.normalizePlane(i)
	}
	return f
}

// IntersectsSphere reports whether a bounding sphere is at least partially
// inside the frustum. Used for per-instance culling before draw recording.
//
// Parameters:
//   - center: sphere center in world space
//   - radius: sphere radius
//
// Returns:
//   - bool: true if the sphere intersects or is inside the frustum
func (f *Frustum) IntersectsSphere(center [3]float32, radius float32) bool {
	for i := range f.Planes {
		p := &f.Planes[i]
		dist := p.Normal[0]*center[0] + p.Normal[1]*center[1] + p.Normal[2]*center[2] + p.Distance
		if dist < -radius {
			return false
		}
	}
	return true
}

// normalizePlane normalizes a frustum plane so that the normal has unit length.
func (f *Frustum) normalizePlane(index int) {
	p := &f.Planes[index]
	length := float32(math.Sqrt(float64(
		p.Normal[0]*p.Normal[0] +
			p.Normal[1]*p.Normal[1] +
			p.Normal[2]*p.Normal[2],
	)))

	if length > 0 {
		invLen := 1.0 / length
		p.Normal[0] *= invLen
		p.Normal[1] *= invLen
		p.Normal[2] *= invLen
		p.Distance *= invLen
	}
}
