// Package trajectory refines a short straight-line path to a goal by gradient
// descent on a weighted cost, then follows it with a PD controller. Each agent
// owns its own Optimizer.
package trajectory

import (
	"math"

	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/flight"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/geometry"
)

// Weights of the cost terms.
type Weights struct {
	Goal       float64
	Smoothness float64
	Collision  float64
	Velocity   float64
	Boundary   float64
}

// DefaultWeights make goal reaching dominant and collisions very expensive.
var DefaultWeights = Weights{Goal: 10, Smoothness: 2, Collision: 50, Velocity: 5, Boundary: 20}

const (
	DefaultHorizon         = 3.0 // seconds
	DefaultStep            = 0.1 // seconds between waypoints
	DefaultIterations      = 5
	DefaultLearningRate    = 0.1
	DefaultGradientEpsilon = 0.01
	DefaultKp              = 5.0
	DefaultKd              = 2.0
	DefaultReplanDistance  = 3.0
)

// Optimizer plans and follows the path of one agent.
// It is not safe for concurrent use; the fleet gives each agent its own.
type Optimizer struct {
	ID int

	Horizon         float64
	Step            float64
	MaxVelocity     float64
	MaxAcceleration float64
	Iterations      int
	LearningRate    float64
	GradientEpsilon float64
	Kp, Kd          float64
	ReplanDistance  float64
	// SafeDistance is the clearance below which obstacles start to cost.
	SafeDistance float64
	Weights      Weights

	boundX, boundZ float64

	goal      geometry.Vector3D
	hasGoal   bool
	waypoints []geometry.Vector3D
	clock     float64
}

// NewOptimizer creates the optimizer of agent id with the limits of cfg.
func NewOptimizer(id int, cfg *flight.Config) *Optimizer {
	o := &Optimizer{
		ID:              id,
		Horizon:         DefaultHorizon,
		Step:            DefaultStep,
		MaxVelocity:     cfg.MaxSpeed,
		MaxAcceleration: cfg.MaxAcceleration,
		Iterations:      DefaultIterations,
		LearningRate:    DefaultLearningRate,
		GradientEpsilon: DefaultGradientEpsilon,
		Kp:              DefaultKp,
		Kd:              DefaultKd,
		ReplanDistance:  DefaultReplanDistance,
		SafeDistance:    cfg.RepulsionRadius,
		Weights:         DefaultWeights,
		boundX:          cfg.FieldWidth/2 - cfg.FieldMargin,
		boundZ:          cfg.FieldLength/2 - cfg.FieldMargin,
	}
	o.waypoints = make([]geometry.Vector3D, 0, o.steps()+1)
	return o
}

func (o *Optimizer) steps() int {
	if o.Step <= 0 {
		return 1
	}
	// the epsilon keeps 3.0/0.1 from rounding up to 31
	return max(1, int(math.Ceil(o.Horizon/o.Step-1e-9)))
}

// Goal returns the goal of the current plan.
func (o *Optimizer) Goal() (geometry.Vector3D, bool) {
	return o.goal, o.hasGoal
}

// Waypoints returns the current plan. The slice is reused by the next Compute.
func (o *Optimizer) Waypoints() []geometry.Vector3D {
	return o.waypoints
}

// ShouldReplan reports whether goal moved far enough from the planned one.
func (o *Optimizer) ShouldReplan(goal geometry.Vector3D) bool {
	if !o.hasGoal {
		return true
	}
	return o.goal.DistanceTo(goal) > o.ReplanDistance
}

// Compute plans from pos to goal around the given obstacle positions and
// restarts the plan clock. Only interior waypoints move; both ends are pinned.
func (o *Optimizer) Compute(pos, vel, goal geometry.Vector3D, obstacles []geometry.Vector3D) []geometry.Vector3D {
	o.goal, o.hasGoal = goal, true
	o.clock = 0

	n := o.steps()
	o.waypoints = o.waypoints[:0]
	for i := 0; i <= n; i++ {
		o.waypoints = append(o.waypoints, pos.Lerp(goal, float64(i)/float64(n)))
	}

	// a waypoint never moves further per pass than the agent flies in one step,
	// otherwise the stiff velocity term makes the descent diverge
	maxMove := o.MaxVelocity * o.Step
	for iter := 0; iter < o.Iterations; iter++ {
		for i := 1; i < len(o.waypoints)-1; i++ {
			g := o.gradient(i, obstacles)
			if !g.IsFinite() {
				continue
			}
			move := g.Mul(o.LearningRate)
			if maxMove > 0 {
				move = move.ClampLen(maxMove)
			}
			o.waypoints[i] = o.waypoints[i].Sub(move)
		}
	}
	return o.waypoints
}

// gradient is the central difference of the cost around waypoint i.
func (o *Optimizer) gradient(i int, obstacles []geometry.Vector3D) geometry.Vector3D {
	eps := o.GradientEpsilon
	wp := o.waypoints[i]
	axes := [3]geometry.Vector3D{{X: eps}, {Y: eps}, {Z: eps}}
	var d [3]float64
	for k, e := range axes {
		plus := o.Cost(i, wp.Add(e), obstacles)
		minus := o.Cost(i, wp.Sub(e), obstacles)
		d[k] = (plus - minus) / (2 * eps)
	}
	return geometry.Vector3D{X: d[0], Y: d[1], Z: d[2]}
}

// Cost evaluates waypoint i of the current plan as if it were at wp.
func (o *Optimizer) Cost(i int, wp geometry.Vector3D, obstacles []geometry.Vector3D) float64 {
	w := o.Weights
	cost := w.Goal * wp.DistanceTo(o.goal)

	last := len(o.waypoints) - 1
	if i > 0 && i < last {
		mid := o.waypoints[i-1].Lerp(o.waypoints[i+1], 0.5)
		cost += w.Smoothness * wp.DistanceTo(mid)
	}

	if o.SafeDistance > 0 {
		for _, ob := range obstacles {
			if d := wp.DistanceTo(ob); d < o.SafeDistance {
				pen := (o.SafeDistance - d) / o.SafeDistance
				cost += w.Collision * pen * pen
			}
		}
	}

	if i > 0 && o.Step > 0 {
		if v := wp.DistanceTo(o.waypoints[i-1]) / o.Step; v > o.MaxVelocity {
			cost += w.Velocity * (v - o.MaxVelocity) * (v - o.MaxVelocity)
		}
	}

	if over := math.Abs(wp.X) - o.boundX; over > 0 {
		cost += w.Boundary * over * over
	}
	if over := math.Abs(wp.Z) - o.boundZ; over > 0 {
		cost += w.Boundary * over * over
	}
	return cost
}

// Advance moves the plan clock forward by dt seconds.
func (o *Optimizer) Advance(dt float64) {
	o.clock += dt
}

// NextWaypoint returns the waypoint t seconds into the plan, the last one once
// t runs past the horizon, and false when nothing has been planned.
func (o *Optimizer) NextWaypoint(t float64) (geometry.Vector3D, bool) {
	if len(o.waypoints) == 0 {
		return geometry.Zero, false
	}
	idx := 0
	if t > 0 && o.Step > 0 {
		idx = int(math.Floor(t / o.Step))
	}
	if idx >= len(o.waypoints) {
		idx = len(o.waypoints) - 1
	}
	return o.waypoints[idx], true
}

// ControlForce is the PD law toward a waypoint with zero target velocity,
// capped at MaxAcceleration. No waypoint means no force.
func (o *Optimizer) ControlForce(pos, vel, waypoint geometry.Vector3D, ok bool) geometry.Vector3D {
	if !ok {
		return geometry.Zero
	}
	f := waypoint.Sub(pos).Mul(o.Kp).Sub(vel.Mul(o.Kd))
	if !f.IsFinite() {
		return geometry.Zero
	}
	return f.ClampLen(o.MaxAcceleration)
}

// Steer follows the current plan from the agent's pose at the plan clock.
func (o *Optimizer) Steer(pos, vel geometry.Vector3D) geometry.Vector3D {
	wp, ok := o.NextWaypoint(o.clock)
	return o.ControlForce(pos, vel, wp, ok)
}
