package plan2d

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"room-designer/internal/domain"
)

// Zoom limits in pixels per meter.
const (
	DefaultScale = 50.0
	MinScale     = 20.0
	MaxScale     = 100.0
	ZoomStep     = 10.0
)

// Viewport maps world meters on the floor plane to canvas pixels. The room
// rectangle is centered in the canvas; world x grows right, world z grows down.
type Viewport struct {
	Width  float64 // canvas pixels
	Height float64 // canvas pixels
	Scale  float64 // pixels per meter
}

// NewViewport returns a viewport of the given canvas size at the default scale.
func NewViewport(width, height float64) Viewport {
	return Viewport{Width: width, Height: height, Scale: DefaultScale}
}

// Origin is the canvas position of the room's top-left corner.
func (v Viewport) Origin(room domain.RoomSettings) r2.Vec {
	return r2.Vec{
		X: (v.Width - room.Width*v.Scale) / 2,
		Y: (v.Height - room.Length*v.Scale) / 2,
	}
}

// ToCanvas maps a world (x, z) to canvas pixels.
func (v Viewport) ToCanvas(room domain.RoomSettings, x, z float64) r2.Vec {
	local := r2.Vec{X: x + room.Width/2, Y: z + room.Length/2}
	return r2.Add(v.Origin(room), r2.Scale(v.Scale, local))
}

// ToWorld is the inverse of ToCanvas.
func (v Viewport) ToWorld(room domain.RoomSettings, p r2.Vec) (x, z float64) {
	local := r2.Scale(1/v.Scale, r2.Sub(p, v.Origin(room)))
	return local.X - room.Width/2, local.Y - room.Length/2
}

// Meters converts a pixel distance to meters at the current scale.
func (v Viewport) Meters(px float64) float64 { return px / v.Scale }

// Zoom returns the viewport zoomed by steps of ZoomStep, clamped to [MinScale, MaxScale].
func (v Viewport) Zoom(steps int) Viewport {
	v.Scale = math.Max(MinScale, math.Min(MaxScale, v.Scale+float64(steps)*ZoomStep))
	return v
}
