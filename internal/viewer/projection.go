package viewer

import (
	"image/color"
	"math"

	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/flight"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/geometry"
)

// Projection maps the field plane (x, z) to screen pixels, looking straight
// down. Screen x grows with world x and screen y with world z.
type Projection struct {
	Scale            float64 // pixels per meter
	CenterX, CenterY float64 // screen position of the world origin
}

// FitProjection fits the field rectangle and the flight radius into a screen
// area, with a small border.
func FitProjection(cfg *flight.Config, x, y, w, h float64) Projection {
	halfW := math.Max(cfg.FieldWidth/2, cfg.MaxDistanceFromCenter) + 2
	halfL := math.Max(cfg.FieldLength/2, cfg.MaxDistanceFromCenter) + 2
	scale := math.Min(w/(2*halfW), h/(2*halfL))
	return Projection{Scale: scale, CenterX: x + w/2, CenterY: y + h/2}
}

func (p Projection) ToScreen(v geometry.Vector3D) (float32, float32) {
	return float32(p.CenterX + v.X*p.Scale), float32(p.CenterY + v.Z*p.Scale)
}

// ToWorld is the point on the ground under a screen pixel.
func (p Projection) ToWorld(sx, sy float64) geometry.Vector3D {
	if p.Scale == 0 {
		return geometry.Zero
	}
	return geometry.Vector3D{X: (sx - p.CenterX) / p.Scale, Z: (sy - p.CenterY) / p.Scale}
}

// Length converts meters to pixels.
func (p Projection) Length(m float64) float32 {
	return float32(m * p.Scale)
}

// HeightColor shades an agent from blue at the flight floor to red at the ceiling.
func HeightColor(y, minHeight, maxHeight float64) color.RGBA {
	t := 0.0
	if maxHeight > minHeight {
		t = geometry.Clamp((y-minHeight)/(maxHeight-minHeight), 0, 1)
	}
	return color.RGBA{
		R: uint8(geometry.Lerp(60, 255, t)),
		G: uint8(geometry.Lerp(140, 80, t)),
		B: uint8(geometry.Lerp(255, 60, t)),
		A: 255,
	}
}

func groundPoint(x, z float64) geometry.Vector3D {
	return geometry.Vector3D{X: x, Z: z}
}
