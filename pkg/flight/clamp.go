package flight

import "github.com/lao-tseu-is-alive/go-drone-formation/pkg/geometry"

// Bounds is the legal flight volume: a vertical cylinder around the field center.
type Bounds struct {
	MinHeight, MaxHeight float64
	MaxRadius            float64
}

// Bounds extracts the flight volume from the configuration.
func (c *Config) Bounds() Bounds {
	return Bounds{MinHeight: c.MinHeight, MaxHeight: c.MaxHeight, MaxRadius: c.MaxDistanceFromCenter}
}

// Contains reports whether p lies in the volume, allowing eps of slack.
func (b Bounds) Contains(p geometry.Vector3D, eps float64) bool {
	return p.HorizontalLen() <= b.MaxRadius+eps &&
		p.Y >= b.MinHeight-eps && p.Y <= b.MaxHeight+eps
}

// ClampPoint projects p into the volume: horizontal components are scaled onto
// the boundary circle, height is clamped to the band.
func (b Bounds) ClampPoint(p geometry.Vector3D) geometry.Vector3D {
	if !p.IsFinite() {
		// a poisoned pose is parked at the bottom of the volume's axis
		return geometry.Vector3D{Y: b.MinHeight}
	}
	if h := p.HorizontalLen(); h > b.MaxRadius {
		scale := b.MaxRadius / h
		p.X *= scale
		p.Z *= scale
	}
	p.Y = geometry.Clamp(p.Y, b.MinHeight, b.MaxHeight)
	return p
}

// ClampResult describes what HardClamp changed.
type ClampResult struct {
	Position          geometry.Vector3D
	Velocity          geometry.Vector3D
	RadiusClamped     bool
	HeightClamped     bool
	VelocityWasZeroed bool
}

// Constrained reports whether any correction was applied.
func (r ClampResult) Constrained() bool {
	return r.RadiusClamped || r.HeightClamped
}

// HardClamp enforces the flight volume on an integrated pose. When the height
// is clamped the vertical velocity is zeroed so no energy builds up against
// the floor or ceiling.
func HardClamp(b Bounds, pos, vel geometry.Vector3D) ClampResult {
	res := ClampResult{Position: pos, Velocity: vel}
	if !pos.IsFinite() {
		res.Position = geometry.Vector3D{Y: b.MinHeight}
		res.Velocity = geometry.Zero
		res.RadiusClamped, res.HeightClamped, res.VelocityWasZeroed = true, true, true
		return res
	}
	if !vel.IsFinite() {
		res.Velocity = geometry.Zero
	}

	if h := pos.HorizontalLen(); h > b.MaxRadius {
		scale := b.MaxRadius / h
		res.Position.X = pos.X * scale
		res.Position.Z = pos.Z * scale
		res.RadiusClamped = true
	}

	y := geometry.Clamp(pos.Y, b.MinHeight, b.MaxHeight)
	if y != pos.Y {
		res.Position.Y = y
		res.HeightClamped = true
		if res.Velocity.Y != 0 {
			res.Velocity.Y = 0
			res.VelocityWasZeroed = true
		}
	}
	return res
}

// EnforceBounds reads the body from physics, clamps it and writes the correction
// back when needed. It returns the result for the caller's bookkeeping.
func EnforceBounds(p Physics, id int, b Bounds) ClampResult {
	res := HardClamp(b, p.Position(id), p.Velocity(id))
	if res.Constrained() {
		p.SetPosition(id, res.Position)
	}
	if res.VelocityWasZeroed || !p.Velocity(id).IsFinite() {
		p.SetVelocity(id, res.Velocity)
	}
	return res
}
