package flight

import "github.com/lao-tseu-is-alive/go-drone-formation/pkg/geometry"

// Agent is one aerial unit. Position and Velocity mirror the physics body after
// the hard clamp of the last tick; the physics collaborator stays authoritative.
type Agent struct {
	ID       int
	Position geometry.Vector3D
	Velocity geometry.Vector3D
	Active   bool

	// LookAt orients the attached camera; it plays no part in guidance.
	LookAt    geometry.Vector3D
	HasLookAt bool
}

// DistanceTo gives the cartesian distance from this Agent to the other
func (a *Agent) DistanceTo(other *Agent) float64 {
	return a.Position.DistanceTo(other.Position)
}

// State is the read-only per-tick snapshot of an agent, taken before any agent moves.
type State struct {
	ID       int
	Position geometry.Vector3D
	Velocity geometry.Vector3D
	Active   bool
}

// Snapshot copies the agent into a State.
func (a *Agent) Snapshot() State {
	return State{ID: a.ID, Position: a.Position, Velocity: a.Velocity, Active: a.Active}
}
