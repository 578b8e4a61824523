package formation

import (
	"math"
	"sync"

	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/flight"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/geometry"
)

// Geometric formation defaults.
const (
	DefaultFormationRadius    = 15.0
	DefaultRadiusJitter       = 2.0
	DefaultRotationSpeed      = 0.1 // rad/s
	DefaultOcclusionThreshold = 0.3
)

// Geometric places the fleet on a ring around the target centroid: even azimuths,
// a sinusoidal radius jitter for depth, and heights spread linearly over the
// whole flight band so that vertical separation holds by construction.
// When too many sightlines to the centroid are blocked the whole ring turns
// slowly around the centroid.
type Geometric struct {
	Radius             float64
	RadiusJitter       float64
	RotationSpeed      float64
	OcclusionThreshold float64

	cfg *flight.Config

	mu       sync.Mutex
	rotation float64
}

func NewGeometric(cfg *flight.Config) *Geometric {
	return &Geometric{
		Radius:             DefaultFormationRadius,
		RadiusJitter:       DefaultRadiusJitter,
		RotationSpeed:      DefaultRotationSpeed,
		OcclusionThreshold: DefaultOcclusionThreshold,
		cfg:                cfg,
	}
}

func (g *Geometric) Name() string { return flight.StrategyGeometric }

// Rotation returns the formation rotation accumulator, in [0, 2π).
func (g *Geometric) Rotation() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rotation
}

// Plan returns one goal per roster entry. An empty roster gives an empty plan.
func (g *Geometric) Plan(in Input) Plan {
	centroid := Centroid(in.Ball, in.Players, CentroidRadius)
	plan := Plan{Strategy: g.Name(), Centroid: centroid}
	n := len(in.Agents)
	if n == 0 {
		return plan
	}

	raw := g.Viewpoints(centroid, n)
	if g.Occluded(rotate(raw, g.Rotation(), centroid), centroid, in) {
		g.advance(in.Elapsed)
	}

	plan.Goals = rotate(raw, g.Rotation(), centroid)
	plan.IDs = make([]int, n)
	for i := range plan.Goals {
		plan.Goals[i] = g.clamp(plan.Goals[i])
		plan.IDs[i] = in.Agents[i].ID
	}
	return plan
}

// rotate turns the poses rigidly around the vertical axis through center.
func rotate(poses []geometry.Vector3D, angle float64, center geometry.Vector3D) []geometry.Vector3D {
	out := make([]geometry.Vector3D, len(poses))
	for i, p := range poses {
		out[i] = p.RotateAroundY(angle, center)
	}
	return out
}

// Viewpoints computes the unrotated, unclamped ring of n poses around target.
func (g *Geometric) Viewpoints(target geometry.Vector3D, n int) []geometry.Vector3D {
	out := make([]geometry.Vector3D, n)
	step := 2 * math.Pi / float64(n)
	for i := range out {
		r := g.Radius + math.Sin(float64(i)*0.5)*g.RadiusJitter
		out[i] = geometry.NewVectorCylindrical(target, r, float64(i)*step, g.height(i, n))
	}
	return out
}

func (g *Geometric) height(i, n int) float64 {
	if n < 2 {
		return g.cfg.MinHeight
	}
	return geometry.Lerp(g.cfg.MinHeight, g.cfg.MaxHeight, float64(i)/float64(n-1))
}

// Occluded reports whether the share of blocked pose-to-target sightlines is
// above the threshold.
func (g *Geometric) Occluded(poses []geometry.Vector3D, target geometry.Vector3D, in Input) bool {
	if in.Obstacles.Len() == 0 || len(poses) == 0 {
		return false
	}
	blocked := 0
	for _, p := range poses {
		if in.Obstacles.SegmentBlocked(p, target) {
			blocked++
		}
	}
	return float64(blocked)/float64(len(poses)) > g.OcclusionThreshold
}

func (g *Geometric) advance(elapsed float64) {
	if elapsed <= 0 || math.IsNaN(elapsed) || math.IsInf(elapsed, 0) {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotation = math.Mod(g.rotation+g.RotationSpeed*elapsed, 2*math.Pi)
}

// clamp keeps a goal inside the field rectangle minus its margin, then inside
// the flight volume.
func (g *Geometric) clamp(p geometry.Vector3D) geometry.Vector3D {
	return ClampGoal(g.cfg, p)
}

// ClampGoal projects a goal into the playable rectangle and the flight volume.
func ClampGoal(cfg *flight.Config, p geometry.Vector3D) geometry.Vector3D {
	if !p.IsFinite() {
		return cfg.Bounds().ClampPoint(p)
	}
	bx := math.Max(cfg.FieldWidth/2-cfg.FieldMargin, 0)
	bz := math.Max(cfg.FieldLength/2-cfg.FieldMargin, 0)
	p.X = geometry.Clamp(p.X, -bx, bx)
	p.Z = geometry.Clamp(p.Z, -bz, bz)
	return cfg.Bounds().ClampPoint(p)
}
