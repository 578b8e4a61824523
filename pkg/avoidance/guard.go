package avoidance

import (
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/flight"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/geometry"
)

// Default proximity guard parameters.
const (
	DefaultGuardRadius = 2.0
	DefaultGuardForce  = 8.0
	guardMinDistance   = 0.1
)

// Guard is the short range safety net around a single agent. It pushes away from
// anything inside Radius with a linear falloff, and flags a collision as imminent
// as soon as another agent is inside that same radius.
// There is no time-to-collision estimate: the check is on current positions only.
type Guard struct {
	Radius float64
	Force  float64
}

func NewGuard() *Guard {
	return &Guard{Radius: DefaultGuardRadius, Force: DefaultGuardForce}
}

// Avoid returns the instantaneous push away from the given obstacle positions.
func (g *Guard) Avoid(pos geometry.Vector3D, obstacles []geometry.Vector3D) geometry.Vector3D {
	return repel(pos, obstacles, g.Radius, g.Force, Linear, guardMinDistance)
}

// CollisionImminent reports whether any other active agent sits inside the
// guard radius.
func (g *Guard) CollisionImminent(self flight.State, others []flight.State) bool {
	r2 := g.Radius * g.Radius
	for _, o := range others {
		if o.ID == self.ID || !o.Active {
			continue
		}
		if self.Position.DistanceSquaredTo(o.Position) < r2 {
			return true
		}
	}
	return false
}
