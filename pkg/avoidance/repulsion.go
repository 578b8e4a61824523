package avoidance

import (
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/geometry"
)

// Falloff shapes how a repulsion fades between contact and the radius edge.
type Falloff int

const (
	// Linear gives strength * (1 - d/R).
	Linear Falloff = iota
	// Quadratic gives strength * (1 - d/R)^2, much harsher up close.
	Quadratic
)

func (f Falloff) String() string {
	switch f {
	case Linear:
		return "linear"
	case Quadratic:
		return "quadratic"
	default:
		return "unknown"
	}
}

// Scale returns the falloff factor in [0,1] at distance d for radius r.
func (f Falloff) Scale(d, r float64) float64 {
	if r <= 0 || d >= r {
		return 0
	}
	k := 1 - d/r
	if f == Quadratic {
		return k * k
	}
	return k
}

// MinDistance is the separation under which two positions count as coincident.
// Coincident peers have no defined direction and are skipped.
const MinDistance = 0.01

// Repulsion sums the push away from every peer closer than radius.
// Peers at (or nearly at) pos are ignored, so passing the agent's own position
// among the peers is harmless.
func Repulsion(pos geometry.Vector3D, peers []geometry.Vector3D, radius, strength float64, falloff Falloff) geometry.Vector3D {
	return repel(pos, peers, radius, strength, falloff, MinDistance)
}

// PairRepulsion is the force a single peer at other exerts on pos.
func PairRepulsion(pos, other geometry.Vector3D, radius, strength float64, falloff Falloff) geometry.Vector3D {
	return push(pos, other, radius, strength, falloff, MinDistance)
}

func repel(pos geometry.Vector3D, peers []geometry.Vector3D, radius, strength float64, falloff Falloff, minDist float64) geometry.Vector3D {
	total := geometry.Zero
	for _, p := range peers {
		total = total.Add(push(pos, p, radius, strength, falloff, minDist))
	}
	return total
}

func push(pos, other geometry.Vector3D, radius, strength float64, falloff Falloff, minDist float64) geometry.Vector3D {
	away := pos.Sub(other)
	d := away.Len()
	if d >= radius || d <= minDist {
		return geometry.Zero
	}
	return away.Mul(strength * falloff.Scale(d, radius) / d)
}
