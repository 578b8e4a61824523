package scene

import (
	"math"
	"math/rand/v2"

	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/geometry"
)

// Runner is one scripted player moving on the field plane (x, z).
// Runners flock like boids and are drawn toward the ball.
type Runner struct {
	ID       int
	Position geometry.Vector3D
	Velocity geometry.Vector3D
}

// FlockSettings controls how the runners move.
type FlockSettings struct {
	VisualRange    float64 // How far can they see?
	ProtectedRange float64 // Personal space radius

	CenteringFactor float64 // Cohesion strength
	AvoidFactor     float64 // Separation strength
	MatchingFactor  float64 // Alignment strength
	ChaseFactor     float64 // Pull toward the ball
	Drag            float64 // Velocity damping
	TurnFactor      float64 // Edge turning strength

	MaxSpeed float64 // m/s
	MinSpeed float64

	HalfWidth, HalfLength float64
	EdgeMargin            float64
}

// DefaultFlockSettings suits a field of the given half extents.
func DefaultFlockSettings(halfWidth, halfLength float64) FlockSettings {
	return FlockSettings{
		VisualRange:     12,
		ProtectedRange:  2.5,
		CenteringFactor: 0.3,
		AvoidFactor:     4,
		MatchingFactor:  0.5,
		ChaseFactor:     0.6,
		Drag:            0.8,
		TurnFactor:      6,
		MaxSpeed:        7,
		MinSpeed:        1,
		HalfWidth:       halfWidth,
		HalfLength:      halfLength,
		EdgeMargin:      4,
	}
}

// NewRunner drops a runner at a random spot of the field.
func NewRunner(id int, s FlockSettings, rng *rand.Rand) *Runner {
	return &Runner{
		ID: id,
		Position: geometry.Vector3D{
			X: (rng.Float64()*2 - 1) * s.HalfWidth * 0.8,
			Z: (rng.Float64()*2 - 1) * s.HalfLength * 0.8,
		},
		Velocity: geometry.Vector3D{X: rng.Float64()*2 - 1, Z: rng.Float64()*2 - 1},
	}
}

// Accelerate computes the runner's new velocity from its neighbors and the
// ball. It does not move the runner; see Move.
func (r *Runner) Accelerate(team []*Runner, ball geometry.Vector3D, s FlockSettings, dt float64) geometry.Vector3D {
	// Initialize force accumulators
	var separation, velAvg, posAvg geometry.Vector3D
	neighbors := 0.0

	for _, other := range team {
		if r == other {
			continue
		}
		d := r.Position.Sub(other.Position)
		distSq := d.LenSqr()

		// 1. Separation
		if distSq < s.ProtectedRange*s.ProtectedRange {
			separation = separation.Add(d)
		}

		// Check visual range for Cohesion/Alignment
		if distSq < s.VisualRange*s.VisualRange {
			velAvg = velAvg.Add(other.Velocity)
			posAvg = posAvg.Add(other.Position)
			neighbors++
		}
	}

	acc := separation.Mul(s.AvoidFactor)
	if neighbors > 0 {
		acc = acc.Add(velAvg.Mul(1 / neighbors).Sub(r.Velocity).Mul(s.MatchingFactor))
		acc = acc.Add(posAvg.Mul(1 / neighbors).Sub(r.Position).Mul(s.CenteringFactor))
	}
	acc = acc.Add(ball.WithY(0).Sub(r.Position).Mul(s.ChaseFactor)).Sub(r.Velocity.Mul(s.Drag))

	// Field edges (soft turn)
	if r.Position.X < -s.HalfWidth+s.EdgeMargin {
		acc.X += s.TurnFactor
	}
	if r.Position.X > s.HalfWidth-s.EdgeMargin {
		acc.X -= s.TurnFactor
	}
	if r.Position.Z < -s.HalfLength+s.EdgeMargin {
		acc.Z += s.TurnFactor
	}
	if r.Position.Z > s.HalfLength-s.EdgeMargin {
		acc.Z -= s.TurnFactor
	}

	v := r.Velocity.Add(acc.Mul(dt)).WithY(0)

	// Speed limits
	speed := v.Len()
	switch {
	case speed > s.MaxSpeed:
		v = v.Mul(s.MaxSpeed / speed)
	case speed < s.MinSpeed && speed > geometry.Epsilon:
		v = v.Mul(s.MinSpeed / speed)
	}
	return v
}

// Move integrates the velocity and keeps the runner on the field.
func (r *Runner) Move(v geometry.Vector3D, s FlockSettings, dt float64) {
	r.Velocity = v
	p := r.Position.Add(v.Mul(dt))
	r.Position = geometry.Vector3D{
		X: geometry.Clamp(p.X, -s.HalfWidth, s.HalfWidth),
		Z: geometry.Clamp(p.Z, -s.HalfLength, s.HalfLength),
	}
	if math.IsNaN(r.Position.X) || math.IsNaN(r.Position.Z) {
		r.Position, r.Velocity = geometry.Zero, geometry.Zero
	}
}
