// Package forces turns an agent's situation into the potential-field force it
// should hand to the physics integrator this tick.
package forces

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/avoidance"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/flight"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/geometry"
)

const (
	// attractionSaturation is the distance beyond which attraction stops growing.
	attractionSaturation = 5.0
	// cruiseHeight is the set point of the weak vertical controller.
	cruiseHeight    = 9.0
	verticalGain    = 0.08
	gravityCompGain = 0.2
	// startRadius and startCenter place a fresh deployment.
	startRadius = 5.0
)

var startCenter = geometry.Vector3D{X: 0, Y: 5, Z: 0}

// Model is the per-agent potential field: attraction, peer repulsion, boundary,
// vertical hold and jitter. It is safe for concurrent use.
type Model struct {
	cfg *flight.Config

	mu  sync.Mutex
	rng *rand.Rand
}

// NewModel creates a model reading its gains from cfg. A nil rng gets a
// randomly seeded generator.
func NewModel(cfg *flight.Config, rng *rand.Rand) *Model {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Model{cfg: cfg, rng: rng}
}

func (m *Model) float64() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64()
}

// Forces combines every term for self against the roster snapshot. The result
// is always finite.
func (m *Model) Forces(self flight.State, roster []flight.State, target geometry.Vector3D) geometry.Vector3D {
	return m.Field(self.Position, peerPositions(self, roster), target)
}

// Field is Forces for callers that already gathered the peer positions, for
// instance from a neighbor grid.
func (m *Model) Field(pos geometry.Vector3D, peers []geometry.Vector3D, target geometry.Vector3D) geometry.Vector3D {
	f := m.Attraction(pos, target).
		Add(m.Repulsion(pos, peers)).
		Add(m.Boundary(pos)).
		Add(m.Noise())
	f.Y += m.Vertical(pos)
	return finite(f)
}

// Attraction pulls toward the target raised to a height drawn uniformly in the
// flight band on every call. The pull grows with distance and saturates at
// AttractionForce once the agent is attractionSaturation away.
func (m *Model) Attraction(pos, target geometry.Vector3D) geometry.Vector3D {
	h := m.cfg.MinHeight + m.float64()*(m.cfg.MaxHeight-m.cfg.MinHeight)
	to := target.WithY(h).Sub(pos)
	d := to.Len()
	return to.Normalize().Mul(m.cfg.AttractionForce * math.Min(d/attractionSaturation, 1))
}

// RepulsionFrom pushes self away from every other active agent of the roster
// within RepulsionRadius, with a quadratic falloff.
func (m *Model) RepulsionFrom(self flight.State, roster []flight.State) geometry.Vector3D {
	return m.Repulsion(self.Position, peerPositions(self, roster))
}

func peerPositions(self flight.State, roster []flight.State) []geometry.Vector3D {
	peers := make([]geometry.Vector3D, 0, len(roster))
	for _, o := range roster {
		if o.ID == self.ID || !o.Active {
			continue
		}
		peers = append(peers, o.Position)
	}
	return peers
}

// Repulsion is RepulsionFrom for callers that already gathered peer positions.
func (m *Model) Repulsion(pos geometry.Vector3D, peers []geometry.Vector3D) geometry.Vector3D {
	return avoidance.Repulsion(pos, peers, m.cfg.RepulsionRadius, m.cfg.RepulsionForce, avoidance.Quadratic)
}

// Boundary is zero inside the flight volume. Outside it pushes back toward the
// center axis and into the height band, growing with the violation.
func (m *Model) Boundary(pos geometry.Vector3D) geometry.Vector3D {
	f := geometry.Zero
	if !pos.IsFinite() {
		return f
	}
	bf := m.cfg.BoundaryForce

	if h := pos.HorizontalLen(); h > m.cfg.MaxDistanceFromCenter {
		toCenter := geometry.Vector3D{X: -pos.X, Z: -pos.Z}.Normalize()
		over := h - m.cfg.MaxDistanceFromCenter
		f = f.Add(toCenter.Mul(bf * (1 + over/10)))
	}
	switch {
	case pos.Y < m.cfg.MinHeight:
		f.Y = bf * (1 + m.cfg.MinHeight - pos.Y)
	case pos.Y > m.cfg.MaxHeight:
		f.Y = -bf * (1 + pos.Y - m.cfg.MaxHeight)
	}
	return f
}

// Vertical is the weak height hold: a proportional pull to cruiseHeight plus a
// fixed fraction of gravity.
func (m *Model) Vertical(pos geometry.Vector3D) float64 {
	return (cruiseHeight-pos.Y)*verticalGain + math.Abs(m.cfg.Gravity)*gravityCompGain
}

// Noise is a jitter vector with every component in [-NoiseScale/2, NoiseScale/2).
func (m *Model) Noise() geometry.Vector3D {
	s := m.cfg.NoiseScale
	if s == 0 {
		return geometry.Zero
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return geometry.Vector3D{
		X: (m.rng.Float64() - 0.5) * s,
		Y: (m.rng.Float64() - 0.5) * s,
		Z: (m.rng.Float64() - 0.5) * s,
	}
}

// StartPositions spreads count agents on a ring around the launch point,
// climbing from MinHeight by i/count of the band.
func (m *Model) StartPositions(count int) []geometry.Vector3D {
	if count <= 0 {
		return nil
	}
	out := make([]geometry.Vector3D, count)
	band := m.cfg.MaxHeight - m.cfg.MinHeight
	for i := range out {
		frac := float64(i) / float64(count)
		out[i] = geometry.NewVectorCylindrical(startCenter, startRadius, frac*2*math.Pi, m.cfg.MinHeight+frac*band)
	}
	return out
}

func finite(v geometry.Vector3D) geometry.Vector3D {
	if !v.IsFinite() {
		return geometry.Zero
	}
	return v
}
