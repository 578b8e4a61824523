// Package fleet owns the deployed agents and runs the control loop: the planning
// cadence, the per-agent force step, the physics step and the hard clamp.
package fleet

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"slices"
	"sync"

	"github.com/google/uuid"
	golog "github.com/tochemey/goakt/v3/log"
	"golang.org/x/sync/errgroup"

	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/avoidance"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/flight"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/forces"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/formation"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/trajectory"
)

const (
	// primaryOrbitRadius is how far the primary trackers circle the centroid.
	primaryOrbitRadius = 15.0
	// gentleGain scales the direct goal attraction used without trajectory guidance.
	gentleGain = 2.0
	// hoverGain is the share of gravity the geometric steering compensates.
	hoverGain = 0.05
)

// Option customizes a Fleet.
type Option func(*Fleet)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l golog.Logger) Option {
	return func(f *Fleet) { f.logger = l }
}

// WithRand seeds every random draw of the fleet from rng.
func WithRand(rng *rand.Rand) Option {
	return func(f *Fleet) { f.rng = rng }
}

// WithPhysics replaces the default point mass integrator.
func WithPhysics(p flight.Physics) Option {
	return func(f *Fleet) { f.physics = p }
}

type steerInput struct {
	self     flight.State
	optim    *trajectory.Optimizer
	goal     geometry.Vector3D
	hasGoal  bool
	centroid geometry.Vector3D
	peers    []geometry.Vector3D
	scene    *formation.Scene
}

// steerFunc returns the force for one agent and where its camera should look.
type steerFunc func(in steerInput) (force, lookAt geometry.Vector3D)

// Fleet is the orchestrator. All its methods are safe for concurrent use; a
// tick runs under the fleet lock so a redeploy never interleaves with it.
type Fleet struct {
	cfg     *flight.Config
	physics flight.Physics
	logger  golog.Logger
	rng     *rand.Rand

	model      *forces.Model
	guard      *avoidance.Guard
	grid       *avoidance.NeighborGrid
	strategies map[string]formation.Strategy
	steering   map[string]steerFunc

	mu           sync.RWMutex
	strategy     formation.Strategy
	agents       []*flight.Agent
	optimizers   []*trajectory.Optimizer
	deployed     bool
	deploymentID uuid.UUID
	plan         formation.Plan
	sincePlan    float64
	goals        []geometry.Vector3D
	centroid     geometry.Vector3D
	elapsed      float64
	tick         uint64
	clampEvents  uint64
	nearMisses   int
}

// NewFleet builds an undeployed fleet for cfg. The configuration is copied.
func NewFleet(cfg *flight.Config, opts ...Option) (*Fleet, error) {
	if cfg == nil {
		cfg = flight.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := *cfg
	c.PrimaryTrackingIndices = slices.Clone(cfg.PrimaryTrackingIndices)

	f := &Fleet{
		cfg:    &c,
		logger: golog.DiscardLogger,
		guard:  avoidance.NewGuard(),
		grid:   avoidance.NewNeighborGrid(c.RepulsionRadius),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.rng == nil {
		f.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if f.physics == nil {
		p := flight.NewPointMassPhysics()
		p.MaxSpeed = c.MaxSpeed
		f.physics = p
	}
	f.model = forces.NewModel(f.cfg, f.childRand())

	f.strategies = make(map[string]formation.Strategy)
	for _, name := range formation.Names() {
		s, err := formation.New(name, f.cfg, f.childRand())
		if err != nil {
			return nil, err
		}
		f.strategies[name] = s
	}
	f.strategy = f.strategies[c.Strategy]
	f.steering = map[string]steerFunc{
		flight.StrategyGeometric: f.steerToGoal,
		flight.StrategyZonal:     f.steerByField,
	}
	return f, nil
}

// childRand derives an independent generator so no two components share one.
func (f *Fleet) childRand() *rand.Rand {
	return rand.New(rand.NewPCG(f.rng.Uint64(), f.rng.Uint64()))
}

// Config returns a copy of the fleet configuration.
func (f *Fleet) Config() flight.Config {
	f.mu.RLock()
	defer f.mu.RUnlock()
	c := *f.cfg
	c.PrimaryTrackingIndices = slices.Clone(f.cfg.PrimaryTrackingIndices)
	return c
}

// TimeStep is the configured control period, in seconds.
func (f *Fleet) TimeStep() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.cfg.TimeStep()
}

// Deploy replaces the fleet with count fresh agents on the launch ring.
func (f *Fleet) Deploy(count int) error {
	if err := flight.ValidateAgentCount(count); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.clearLocked()
	starts := f.model.StartPositions(count)
	agents := make([]*flight.Agent, count)
	optimizers := make([]*trajectory.Optimizer, count)
	for i, p := range starts {
		if err := f.physics.AddBody(i, p); err != nil {
			for j := 0; j < i; j++ {
				f.physics.RemoveBody(j)
			}
			return fmt.Errorf("deploying agent %d: %w", i, err)
		}
		agents[i] = &flight.Agent{ID: i, Position: p, Active: true}
		optimizers[i] = trajectory.NewOptimizer(i, f.cfg)
	}
	f.agents = agents
	f.optimizers = optimizers
	f.goals = make([]geometry.Vector3D, count)
	f.cfg.AgentCount = count
	f.deployed = true
	f.deploymentID = uuid.New()
	f.logger.Infof("🚁 deployed %d agents (deployment %s, strategy %s)", count, f.deploymentID, f.strategy.Name())
	return nil
}

// Clear removes every agent. Clearing an empty fleet is a no-op.
func (f *Fleet) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deployed {
		f.logger.Infof("🧹 clearing deployment %s", f.deploymentID)
	}
	f.clearLocked()
}

func (f *Fleet) clearLocked() {
	for _, a := range f.agents {
		f.physics.RemoveBody(a.ID)
	}
	f.agents = nil
	f.optimizers = nil
	f.goals = nil
	f.deployed = false
	f.deploymentID = uuid.Nil
	f.plan = formation.Plan{}
	f.sincePlan = 0
	f.tick = 0
	f.elapsed = 0
	f.clampEvents = 0
	f.nearMisses = 0
}

// SetAgentCount changes the fleet size, redeploying at once when deployed.
func (f *Fleet) SetAgentCount(count int) error {
	if err := flight.ValidateAgentCount(count); err != nil {
		return err
	}
	f.mu.Lock()
	deployed := f.deployed
	f.cfg.AgentCount = count
	f.mu.Unlock()
	if deployed {
		return f.Deploy(count)
	}
	return nil
}

// SetStrategy switches the formation strategy. The new one plans on the next tick.
func (f *Fleet) SetStrategy(name string) error {
	s, ok := f.strategies[name]
	if !ok {
		return fmt.Errorf("%w: unknown strategy %q", flight.ErrInvalidConfig, name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.strategy == s {
		return nil
	}
	f.logger.Infof("🔀 strategy %s -> %s", f.strategy.Name(), name)
	f.strategy = s
	f.cfg.Strategy = name
	f.plan = formation.Plan{}
	return nil
}

// Strategy returns the name of the active strategy.
func (f *Fleet) Strategy() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.strategy.Name()
}

// Rotation returns the geometric formation rotation, in radians.
func (f *Fleet) Rotation() float64 {
	if g, ok := f.strategies[flight.StrategyGeometric].(*formation.Geometric); ok {
		return g.Rotation()
	}
	return 0
}

// ZoneOf returns the zone agent id staffs under the zonal strategy.
func (f *Fleet) ZoneOf(id int) (formation.Zone, bool) {
	if z, ok := f.strategies[flight.StrategyZonal].(*formation.Zonal); ok {
		return z.ZoneOf(id)
	}
	return formation.Zone{}, false
}

// Step advances the fleet by dt seconds against scene. Every agent reads the
// same snapshot taken at the start of the tick. A cancelled ctx aborts the
// tick before any agent moves.
func (f *Fleet) Step(ctx context.Context, dt float64, scene formation.Scene) error {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: time step must be positive and finite, got %v", flight.ErrInvalidConfig, dt)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.deployed {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// 1. snapshot before anything moves
	snapshot := make([]flight.State, len(f.agents))
	for i, a := range f.agents {
		snapshot[i] = a.Snapshot()
	}

	// 2. planning cadence
	f.sincePlan += dt
	if f.plan.Len() == 0 || f.plan.Strategy != f.strategy.Name() || f.sincePlan > f.cfg.ReplanInterval {
		f.plan = f.strategy.Plan(formation.Input{Scene: scene, Agents: snapshot, Elapsed: f.sincePlan})
		f.sincePlan = 0
		f.logger.Debugf("replanned %d goals with %s around (%.1f, %.1f, %.1f)",
			f.plan.Len(), f.plan.Strategy, f.plan.Centroid.X, f.plan.Centroid.Y, f.plan.Centroid.Z)
	}
	plan := f.plan

	// 3. forces, one goroutine per agent over the shared snapshot
	f.centroid = formation.Centroid(scene.Ball, scene.Players, formation.CentroidRadius)
	goals, hasGoal := f.goalsFor(plan, snapshot)
	f.grid.Rebuild(snapshot)
	steer := f.steering[plan.Strategy]
	if steer == nil {
		steer = f.steerToGoal
	}

	forcesOut := make([]geometry.Vector3D, len(snapshot))
	lookAt := make([]geometry.Vector3D, len(snapshot))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, self := range snapshot {
		if !self.Active {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			in := steerInput{
				self:     self,
				optim:    f.optimizers[i],
				goal:     goals[i],
				hasGoal:  hasGoal[i],
				centroid: f.centroid,
				peers:    f.grid.Near(make([]geometry.Vector3D, 0, len(snapshot)), self.Position, f.cfg.RepulsionRadius, self.ID),
				scene:    &scene,
			}
			forcesOut[i], lookAt[i] = steer(in)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("tick %d aborted: %w", f.tick, err)
	}

	// 4. integrate
	for i, a := range f.agents {
		if a.Active {
			f.physics.ApplyForce(a.ID, forcesOut[i])
		}
	}
	f.physics.Step(dt)

	// 5. hard clamp, then mirror the physics state
	bounds := f.cfg.Bounds()
	for i, a := range f.agents {
		res := flight.EnforceBounds(f.physics, a.ID, bounds)
		if res.Constrained() {
			f.clampEvents++
			f.logger.Debugf("agent %d clamped to (%.2f, %.2f, %.2f)", a.ID, res.Position.X, res.Position.Y, res.Position.Z)
		}
		a.Position = res.Position
		a.Velocity = res.Velocity
		if a.Active {
			a.LookAt, a.HasLookAt = lookAt[i], true
			f.optimizers[i].Advance(dt)
		}
	}

	f.nearMisses = countNearMisses(f.guard, snapshot)
	f.goals = goals
	f.elapsed += dt
	f.tick++
	return nil
}

// countNearMisses is the number of active agents with an active peer inside
// the guard radius, all taken from the same snapshot.
func countNearMisses(g *avoidance.Guard, snapshot []flight.State) int {
	n := 0
	for _, self := range snapshot {
		if self.Active && g.CollisionImminent(self, snapshot) {
			n++
		}
	}
	return n
}

// goalsFor resolves the goal of every snapshot entry: the plan's goal, except
// for primary trackers under the geometric strategy which orbit the centroid.
func (f *Fleet) goalsFor(plan formation.Plan, snapshot []flight.State) ([]geometry.Vector3D, []bool) {
	goals := make([]geometry.Vector3D, len(snapshot))
	ok := make([]bool, len(snapshot))
	for i, s := range snapshot {
		goals[i], ok[i] = plan.Goal(s.ID)
	}
	if plan.Strategy != flight.StrategyGeometric {
		return goals, ok
	}
	for i, p := range f.PrimaryGoals(f.centroid, len(snapshot)) {
		goals[i], ok[i] = p, true
	}
	return goals, ok
}

// PrimaryGoals places the primary trackers present in a fleet of size n on a
// circle around centroid, evenly by rank, with heights spread across the
// primary band. The map is keyed by agent index.
func (f *Fleet) PrimaryGoals(centroid geometry.Vector3D, n int) map[int]geometry.Vector3D {
	primaries := make([]int, 0, len(f.cfg.PrimaryTrackingIndices))
	for _, idx := range f.cfg.PrimaryTrackingIndices {
		if idx >= 0 && idx < n {
			primaries = append(primaries, idx)
		}
	}
	out := make(map[int]geometry.Vector3D, len(primaries))
	lo, hi := f.cfg.PrimaryHeightBand[0], f.cfg.PrimaryHeightBand[1]
	for rank, idx := range primaries {
		angle := float64(rank) / float64(len(primaries)) * 2 * math.Pi
		h := lo
		if len(primaries) > 1 {
			h = geometry.Lerp(lo, hi, float64(rank)/float64(len(primaries)-1))
		}
		goal := geometry.NewVectorCylindrical(centroid, primaryOrbitRadius, angle, h)
		out[idx] = formation.ClampGoal(f.cfg, goal)
	}
	return out
}

// steerToGoal follows the goal with the trajectory optimizer, or a gentle
// direct pull when trajectory guidance is off, and keeps peers apart.
func (f *Fleet) steerToGoal(in steerInput) (geometry.Vector3D, geometry.Vector3D) {
	pos, vel := in.self.Position, in.self.Velocity
	force := geometry.Zero
	if in.hasGoal {
		if f.cfg.UseTrajectoryOptimizer && in.optim != nil {
			if in.optim.ShouldReplan(in.goal) {
				obstacles := append(slices.Clone(in.peers), in.scene.Obstacles.Nearby(pos, in.optim.SafeDistance)...)
				in.optim.Compute(pos, vel, in.goal, obstacles)
			}
			force = in.optim.Steer(pos, vel)
		} else {
			to := in.goal.Sub(pos)
			force = to.Normalize().Mul(math.Min(to.Len(), 1) * gentleGain)
		}
	}
	force = force.Add(f.model.Repulsion(pos, in.peers)).Add(f.model.Boundary(pos)).Add(f.avoidObstacles(pos, in.scene))
	force.Y += math.Abs(f.cfg.Gravity) * hoverGain
	if !force.IsFinite() {
		force = geometry.Zero
	}
	return force, in.centroid
}

// steerByField hands the whole potential field the coordinated target.
func (f *Fleet) steerByField(in steerInput) (geometry.Vector3D, geometry.Vector3D) {
	target := in.goal
	if !in.hasGoal {
		target = in.centroid
	}
	force := f.model.Field(in.self.Position, in.peers, target).Add(f.avoidObstacles(in.self.Position, in.scene))
	if !force.IsFinite() {
		force = geometry.Zero
	}
	return force, target
}

// avoidObstacles is the proximity guard push away from scene obstacles close
// to pos. Peers are already kept apart by the force model.
func (f *Fleet) avoidObstacles(pos geometry.Vector3D, scene *formation.Scene) geometry.Vector3D {
	if scene == nil {
		return geometry.Zero
	}
	return f.guard.Avoid(pos, scene.Obstacles.Nearby(pos, f.guard.Radius))
}

// Plan returns the plan of the current planning epoch.
func (f *Fleet) Plan() formation.Plan {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.plan
}

// Agents returns a copy of every agent.
func (f *Fleet) Agents() []flight.Agent {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.copyAgents(false)
}

// ActiveAgents returns a copy of the active agents.
func (f *Fleet) ActiveAgents() []flight.Agent {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.copyAgents(true)
}

func (f *Fleet) copyAgents(activeOnly bool) []flight.Agent {
	out := make([]flight.Agent, 0, len(f.agents))
	for _, a := range f.agents {
		if activeOnly && !a.Active {
			continue
		}
		out = append(out, *a)
	}
	return out
}

// SetActive marks agent id as live or not. Inactive agents get no force and
// are ignored by their peers, but stay inside the clamp.
func (f *Fleet) SetActive(id int, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.agents {
		if a.ID == id {
			a.Active = active
			return nil
		}
	}
	return fmt.Errorf("no agent %d in the fleet", id)
}

// Count is the number of deployed agents.
func (f *Fleet) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.agents)
}

// Deployed reports whether agents are flying.
func (f *Fleet) Deployed() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.deployed
}

// Elapsed is the simulated time since deployment, in seconds.
func (f *Fleet) Elapsed() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.elapsed
}

// DeploymentID identifies the current deployment, uuid.Nil when cleared.
func (f *Fleet) DeploymentID() uuid.UUID {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.deploymentID
}
