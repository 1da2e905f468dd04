package scene3d

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const parallelEpsilon = 1e-9

// Ray is a pointer ray in world space, as unprojected by the client camera.
type Ray struct {
	Origin    r3.Vec
	Direction r3.Vec
}

// NewRay builds a ray from plain triples.
func NewRay(origin, direction [3]float64) Ray {
	return Ray{
		Origin:    r3.Vec{X: origin[0], Y: origin[1], Z: origin[2]},
		Direction: r3.Vec{X: direction[0], Y: direction[1], Z: direction[2]},
	}
}

// IntersectHorizontal returns where the ray crosses the plane y = height.
// Rays parallel to the plane or pointing away from it do not intersect.
func (r Ray) IntersectHorizontal(height float64) (r3.Vec, bool) {
	if math.Abs(r.Direction.Y) < parallelEpsilon {
		return r3.Vec{}, false
	}
	t := (height - r.Origin.Y) / r.Direction.Y
	if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return r3.Vec{}, false
	}
	hit := r3.Add(r.Origin, r3.Scale(t, r.Direction))
	hit.Y = height
	return hit, true
}
