package formation

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/avoidance"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/flight"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/geometry"
)

func roster(n int) []flight.State {
	out := make([]flight.State, n)
	for i := range out {
		out[i] = flight.State{ID: i, Active: true, Position: geometry.Vector3D{Y: 10}}
	}
	return out
}

func TestCentroid(t *testing.T) {
	ball := geometry.Vector3D{X: 10, Y: 0, Z: 10}
	tests := []struct {
		name    string
		players []Player
		want    geometry.Vector3D
	}{
		{"ball alone", nil, ball},
		{"far player ignored", []Player{{ID: 1, Position: geometry.Vector3D{X: 40, Z: 10}}}, ball},
		{"near players averaged", []Player{
			{ID: 1, Position: geometry.Vector3D{X: 12, Y: 0, Z: 10}},
			{ID: 2, Position: geometry.Vector3D{X: 10, Y: 3, Z: 16}},
		}, geometry.Vector3D{X: 32.0 / 3, Y: 1, Z: 12}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Centroid(ball, tt.players, CentroidRadius)
			assert.True(t, got.Eq(tt.want), "Centroid = %v; want %v", got, tt.want)
		})
	}
}

func TestGeometric_Deployment(t *testing.T) {
	cfg := flight.DefaultConfig()
	g := NewGeometric(cfg)

	plan := g.Plan(Input{Scene: Scene{Ball: geometry.Vector3D{Y: 5}}, Agents: roster(12), Elapsed: 0.5})
	require.Equal(t, 12, plan.Len())
	assert.Equal(t, flight.StrategyGeometric, plan.Strategy)

	for i, goal := range plan.Goals {
		assert.LessOrEqual(t, goal.HorizontalLen(), 40.0+1e-9, "goal %d radius", i)
		assert.GreaterOrEqual(t, goal.Y, 5.0-1e-9, "goal %d height", i)
		assert.LessOrEqual(t, goal.Y, 20.0+1e-9, "goal %d height", i)
		assert.Equal(t, i, plan.IDs[i])
	}
	assert.InDelta(t, 5.0, plan.Goals[0].Y, 1e-9)
	assert.InDelta(t, 20.0, plan.Goals[11].Y, 1e-9)
	assert.Greater(t, plan.Goals[11].Y-plan.Goals[0].Y, 14.9)
}

func TestGeometric_HeightsStrictlyIncreasing(t *testing.T) {
	cfg := flight.DefaultConfig()
	for n := flight.MinAgents; n <= flight.MaxAgents; n++ {
		g := NewGeometric(cfg)
		plan := g.Plan(Input{Scene: Scene{Ball: geometry.Vector3D{X: 3, Z: -8}}, Agents: roster(n)})
		require.Equal(t, n, plan.Len())
		for i := 1; i < n; i++ {
			assert.Greater(t, plan.Goals[i].Y, plan.Goals[i-1].Y, "n=%d index %d", n, i)
		}
		assert.InDelta(t, cfg.MinHeight, plan.Goals[0].Y, 1e-9)
		assert.InDelta(t, cfg.MaxHeight, plan.Goals[n-1].Y, 1e-9)
	}
}

func TestGeometric_EmptyInputs(t *testing.T) {
	g := NewGeometric(flight.DefaultConfig())

	plan := g.Plan(Input{Scene: Scene{Ball: geometry.Vector3D{Y: 1}}})
	assert.Zero(t, plan.Len())

	// zero players, valid ball: one goal per agent
	plan = g.Plan(Input{Scene: Scene{Ball: geometry.Vector3D{X: 2, Y: 1, Z: 2}}, Agents: roster(10)})
	assert.Equal(t, 10, plan.Len())
	for _, goal := range plan.Goals {
		assert.True(t, goal.IsFinite())
	}
}

func TestGeometric_GoalsClampedToField(t *testing.T) {
	cfg := flight.DefaultConfig()
	g := NewGeometric(cfg)
	// ball in a corner pushes half the ring off the field
	plan := g.Plan(Input{Scene: Scene{Ball: geometry.Vector3D{X: 24, Z: 54}}, Agents: roster(16)})
	bx, bz := cfg.FieldWidth/2-cfg.FieldMargin, cfg.FieldLength/2-cfg.FieldMargin
	for i, goal := range plan.Goals {
		assert.LessOrEqual(t, math.Abs(goal.X), bx+1e-9, "goal %d x", i)
		assert.LessOrEqual(t, math.Abs(goal.Z), bz+1e-9, "goal %d z", i)
		assert.LessOrEqual(t, goal.HorizontalLen(), cfg.MaxDistanceFromCenter+1e-9, "goal %d radius", i)
	}
}

func occludingObstacles(t *testing.T, center geometry.Vector3D) *avoidance.ObstacleIndex {
	t.Helper()
	// a tight ring of tall spheres around the centroid hides it from every viewpoint
	var obs []*avoidance.Obstacle
	for k := 0; k < 16; k++ {
		angle := float64(k) * 2 * math.Pi / 16
		for _, y := range []float64{2, 5, 8, 11, 14} {
			o, err := avoidance.NewObstacle(geometry.NewVectorCylindrical(center, 4, angle, y), 3)
			require.NoError(t, err)
			obs = append(obs, o)
		}
	}
	return avoidance.NewObstacleIndex(obs...)
}

func TestGeometric_OcclusionRotation(t *testing.T) {
	cfg := flight.DefaultConfig()
	g := NewGeometric(cfg)
	ball := geometry.Vector3D{Y: 5}
	scene := Scene{Ball: ball, Obstacles: occludingObstacles(t, ball)}

	require.True(t, g.Occluded(g.Viewpoints(ball, 12), ball, Input{Scene: scene}))
	require.Zero(t, g.Rotation())

	const dt = 0.5
	var previous float64
	for elapsed := 0.0; elapsed < 10; elapsed += dt {
		g.Plan(Input{Scene: scene, Agents: roster(12), Elapsed: dt})
		assert.Greater(t, g.Rotation(), previous)
		previous = g.Rotation()
	}
	assert.InDelta(t, 1.0, g.Rotation(), 1e-9)
}

func TestGeometric_NoRotationWithoutOcclusion(t *testing.T) {
	g := NewGeometric(flight.DefaultConfig())
	o, err := avoidance.NewObstacle(geometry.Vector3D{X: 200, Y: 10, Z: 200}, 1)
	require.NoError(t, err)
	scene := Scene{Ball: geometry.Vector3D{Y: 5}, Obstacles: avoidance.NewObstacleIndex(o)}
	for i := 0; i < 20; i++ {
		g.Plan(Input{Scene: scene, Agents: roster(12), Elapsed: 0.5})
	}
	assert.Zero(t, g.Rotation())
}

func TestGeometric_RotationWraps(t *testing.T) {
	g := NewGeometric(flight.DefaultConfig())
	g.advance(100)
	assert.GreaterOrEqual(t, g.Rotation(), 0.0)
	assert.Less(t, g.Rotation(), 2*math.Pi)
	assert.InDelta(t, math.Mod(10, 2*math.Pi), g.Rotation(), 1e-9)
}

func TestEvaluate(t *testing.T) {
	target := geometry.Zero
	// two cameras on opposite sides at the optimal elevation
	h := 10 * math.Tan(OptimalElevation*math.Pi/180)
	poses := []geometry.Vector3D{{X: 10, Y: h}, {X: -10, Y: h}}

	q := Evaluate(poses, target)
	assert.InDelta(t, 180-2*OptimalElevation, q.Baseline, 1e-9)
	assert.InDelta(t, 1.0, q.Elevation, 1e-9)
	assert.InDelta(t, (q.Baseline+200)/2, q.Overall, 1e-9)

	assert.Equal(t, Quality{}, Evaluate(nil, target))
	single := Evaluate(poses[:1], target)
	assert.Zero(t, single.Baseline)
}

func TestEvaluate_RingBeatsCluster(t *testing.T) {
	g := NewGeometric(flight.DefaultConfig())
	target := geometry.Vector3D{Y: 0}
	ring := g.Viewpoints(target, 12)
	cluster := make([]geometry.Vector3D, 12)
	for i := range cluster {
		cluster[i] = geometry.Vector3D{X: 15, Y: 5 + float64(i), Z: float64(i) * 0.1}
	}
	assert.Greater(t, Evaluate(ring, target).Baseline, Evaluate(cluster, target).Baseline)
}

func TestZonal_Assignment(t *testing.T) {
	cfg := flight.DefaultConfig()
	z := NewZonal(cfg, rand.New(rand.NewPCG(9, 9)))
	agents := roster(16)
	agents[3].Active = false

	scene := Scene{Ball: geometry.Vector3D{X: -12, Z: 5}}
	plan := z.Plan(Input{Scene: scene, Agents: agents})
	require.Equal(t, 16, plan.Len())

	// ball on the left: the left play side outranks the right one
	for _, zone := range z.Zones() {
		switch zone.Name {
		case ZonePlaySideL:
			assert.Equal(t, 9, zone.Priority)
		case ZonePlaySideR:
			assert.Equal(t, 5, zone.Priority)
		case ZoneBallTrack:
			assert.Equal(t, -12.0, zone.Center.X)
			assert.Equal(t, 5.0, zone.Center.Z)
		}
	}

	first, ok := z.ZoneOf(0)
	require.True(t, ok)
	assert.Equal(t, 10, first.Priority)

	_, ok = z.ZoneOf(3)
	assert.False(t, ok, "inactive agents are not staffed")

	// 15 active agents, 12 zones: the last three active agents have no zone
	staffed := 0
	for _, a := range agents {
		if _, ok := z.ZoneOf(a.ID); ok {
			staffed++
		}
	}
	assert.Equal(t, 12, staffed)

	for i, goal := range plan.Goals {
		assert.True(t, cfg.Bounds().Contains(goal, 1e-9), "goal %d = %v", i, goal)
	}
}

func TestZonal_PrioritiesNonIncreasing(t *testing.T) {
	z := NewZonal(flight.DefaultConfig(), rand.New(rand.NewPCG(1, 2)))
	agents := roster(12)
	z.Assign(agents, Scene{Ball: geometry.Vector3D{X: 8}})
	prev := math.MaxInt
	for _, a := range agents {
		zone, ok := z.ZoneOf(a.ID)
		require.True(t, ok)
		assert.LessOrEqual(t, zone.Priority, prev)
		prev = zone.Priority
	}
}

func TestZonal_PlayerTracking(t *testing.T) {
	cfg := flight.DefaultConfig()
	z := NewZonal(cfg, rand.New(rand.NewPCG(3, 3)))
	ball := geometry.Vector3D{X: 0, Z: 0}
	players := []Player{
		{ID: 100, Position: geometry.Vector3D{X: 1, Z: 0}},
		{ID: 101, Position: geometry.Vector3D{X: 30, Z: 30}},
	}
	scene := Scene{Ball: ball, Players: players}
	z.Assign(roster(8), scene)

	zone, ok := z.ZoneOf(0)
	require.True(t, ok)
	got := z.TargetFor(0, scene)
	// player ±1.5 plus zone variation ±0.15*radius
	slack := 1.5 + zone.Radius*0.15
	assert.InDelta(t, 1.0, got.X, slack)
	assert.InDelta(t, 0.0, got.Z, slack)
	assert.InDelta(t, geometry.Clamp(zone.Center.Y, cfg.MinHeight, cfg.MaxHeight), got.Y, 1e-9)
}

func TestZonal_UnassignedDefault(t *testing.T) {
	cfg := flight.DefaultConfig()
	z := NewZonal(cfg, nil)
	scene := Scene{Ball: geometry.Vector3D{X: 4, Y: 0.3, Z: -6}}

	got := z.TargetFor(42, scene)
	assert.True(t, got.Eq(geometry.Vector3D{X: 4, Y: cfg.MinHeight + 3, Z: -6}), "default target = %v", got)

	plan := z.Plan(Input{Scene: scene})
	assert.Zero(t, plan.Len())
}

func TestNew(t *testing.T) {
	cfg := flight.DefaultConfig()
	for _, name := range Names() {
		s, err := New(name, cfg, nil)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())
	}
	_, err := New("spiral", cfg, nil)
	assert.ErrorIs(t, err, flight.ErrInvalidConfig)
}

func TestPlan_Goal(t *testing.T) {
	p := Plan{Goals: []geometry.Vector3D{{X: 1}, {X: 2}}, IDs: []int{7, 9}}
	g, ok := p.Goal(9)
	assert.True(t, ok)
	assert.Equal(t, 2.0, g.X)
	_, ok = p.Goal(1)
	assert.False(t, ok)
}
