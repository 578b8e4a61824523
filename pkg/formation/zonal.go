package formation

import (
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/paulmach/orb"

	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/flight"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/geometry"
)

// Zone names that move with the ball.
const (
	ZoneBallTrack = "Ball_Track"
	ZonePlaySideL = "Play_Side_L"
	ZonePlaySideR = "Play_Side_R"
)

const (
	trackedPlayers       = 6
	playerOffset         = 3.0 // agents hover within ±1.5 of their player
	zoneVariation        = 0.3 // fraction of the zone radius
	activeSidePriority   = 9
	inactiveSidePriority = 5
	defaultTargetLift    = 3.0
)

// Zone is a named strategic region. Higher priority zones are staffed first.
type Zone struct {
	Name     string
	Center   geometry.Vector3D
	Radius   float64
	Priority int
}

// DefaultZones is the coverage plan for an american football field.
func DefaultZones() []Zone {
	return []Zone{
		{Name: "QB_Close", Center: geometry.Vector3D{X: 0, Y: 5, Z: -10}, Radius: 8, Priority: 10},
		{Name: "Receivers_L", Center: geometry.Vector3D{X: -15, Y: 6, Z: 0}, Radius: 12, Priority: 8},
		{Name: "Receivers_R", Center: geometry.Vector3D{X: 15, Y: 6, Z: 0}, Radius: 12, Priority: 8},
		{Name: "Midfield_High", Center: geometry.Vector3D{X: 0, Y: 12, Z: 0}, Radius: 20, Priority: 7},
		{Name: "Endzone_N", Center: geometry.Vector3D{X: 0, Y: 8, Z: 45}, Radius: 15, Priority: 6},
		{Name: "Endzone_S", Center: geometry.Vector3D{X: 0, Y: 8, Z: -45}, Radius: 15, Priority: 6},
		{Name: "Sideline_L", Center: geometry.Vector3D{X: -20, Y: 7, Z: 0}, Radius: 25, Priority: 5},
		{Name: "Sideline_R", Center: geometry.Vector3D{X: 20, Y: 7, Z: 0}, Radius: 25, Priority: 5},
		{Name: "Aerial", Center: geometry.Vector3D{X: 0, Y: 20, Z: 0}, Radius: 30, Priority: 9},
		{Name: ZoneBallTrack, Center: geometry.Vector3D{X: 0, Y: 8, Z: 0}, Radius: 10, Priority: 10},
		{Name: ZonePlaySideL, Center: geometry.Vector3D{X: -10, Y: 6, Z: 0}, Radius: 15, Priority: 7},
		{Name: ZonePlaySideR, Center: geometry.Vector3D{X: 10, Y: 6, Z: 0}, Radius: 15, Priority: 7},
	}
}

// Zonal staffs fixed strategic zones, highest priority first, and sends the
// lowest agents after the players nearest to the ball.
type Zonal struct {
	cfg *flight.Config

	// left and right halves of the field in the horizontal (x, z) plane
	left, right orb.Bound

	mu          sync.Mutex
	rng         *rand.Rand
	zones       []Zone
	assignments map[int]Zone
	tracking    map[int]int // agent id -> player id
}

func NewZonal(cfg *flight.Config, rng *rand.Rand) *Zonal {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	hw, hl := cfg.FieldWidth/2, cfg.FieldLength/2
	return &Zonal{
		cfg:         cfg,
		left:        orb.Bound{Min: orb.Point{-hw, -hl}, Max: orb.Point{0, hl}},
		right:       orb.Bound{Min: orb.Point{0, -hl}, Max: orb.Point{hw, hl}},
		rng:         rng,
		zones:       DefaultZones(),
		assignments: make(map[int]Zone),
		tracking:    make(map[int]int),
	}
}

func (z *Zonal) Name() string { return flight.StrategyZonal }

// Plan assigns the active agents and returns a goal per roster entry.
// Inactive agents get the default target.
func (z *Zonal) Plan(in Input) Plan {
	plan := Plan{Strategy: z.Name(), Centroid: Centroid(in.Ball, in.Players, CentroidRadius)}
	if len(in.Agents) == 0 {
		return plan
	}
	z.Assign(in.Agents, in.Scene)

	plan.Goals = make([]geometry.Vector3D, len(in.Agents))
	plan.IDs = make([]int, len(in.Agents))
	for i, a := range in.Agents {
		plan.Goals[i] = z.TargetFor(a.ID, in.Scene)
		plan.IDs[i] = a.ID
	}
	return plan
}

// Assign recomputes zone and player assignments for the active agents.
func (z *Zonal) Assign(agents []flight.State, scene Scene) {
	z.mu.Lock()
	defer z.mu.Unlock()

	clear(z.assignments)
	clear(z.tracking)
	z.updateDynamicZones(scene.Ball)

	sorted := make([]Zone, len(z.zones))
	copy(sorted, z.zones)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority > sorted[j].Priority })

	active := make([]int, 0, len(agents))
	for _, a := range agents {
		if a.Active {
			active = append(active, a.ID)
		}
	}
	for i, id := range active {
		if i >= len(sorted) {
			break
		}
		z.assignments[id] = sorted[i]
	}
	for i, p := range nearestPlayers(scene.Ball, scene.Players, trackedPlayers) {
		if i >= len(active) {
			break
		}
		z.tracking[active[i]] = p.ID
	}
}

// updateDynamicZones moves the ball zone onto the ball and boosts the play side
// zone of the half the ball is in.
func (z *Zonal) updateDynamicZones(ball geometry.Vector3D) {
	onLeft := z.ballOnLeft(ball)
	for i := range z.zones {
		switch z.zones[i].Name {
		case ZoneBallTrack:
			z.zones[i].Center.X = ball.X
			z.zones[i].Center.Z = ball.Z
		case ZonePlaySideL:
			z.zones[i].Priority = sidePriority(onLeft)
		case ZonePlaySideR:
			z.zones[i].Priority = sidePriority(!onLeft)
		}
	}
}

func (z *Zonal) ballOnLeft(ball geometry.Vector3D) bool {
	p := orb.Point{ball.X, ball.Z}
	switch {
	case z.left.Contains(p) && ball.X < 0:
		return true
	case z.right.Contains(p):
		return false
	default:
		// off the field: the sign of x decides
		return ball.X < 0
	}
}

func sidePriority(active bool) int {
	if active {
		return activeSidePriority
	}
	return inactiveSidePriority
}

// TargetFor returns the goal of agent id for the current assignments. Agents
// without a zone fly a little above the flight floor over the ball.
func (z *Zonal) TargetFor(id int, scene Scene) geometry.Vector3D {
	z.mu.Lock()
	defer z.mu.Unlock()

	zone, ok := z.assignments[id]
	if !ok {
		return ClampGoal(z.cfg, geometry.Vector3D{X: scene.Ball.X, Y: z.cfg.MinHeight + defaultTargetLift, Z: scene.Ball.Z})
	}

	target := zone.Center
	if pid, tracked := z.tracking[id]; tracked {
		for _, p := range scene.Players {
			if p.ID != pid {
				continue
			}
			target = geometry.Vector3D{
				X: p.Position.X + (z.rng.Float64()-0.5)*playerOffset,
				Y: zone.Center.Y,
				Z: p.Position.Z + (z.rng.Float64()-0.5)*playerOffset,
			}
			break
		}
	}

	v := zone.Radius * zoneVariation
	target.X += (z.rng.Float64() - 0.5) * v
	target.Z += (z.rng.Float64() - 0.5) * v
	return ClampGoal(z.cfg, target)
}

// ZoneOf returns the zone agent id is staffing, if any.
func (z *Zonal) ZoneOf(id int) (Zone, bool) {
	z.mu.Lock()
	defer z.mu.Unlock()
	zone, ok := z.assignments[id]
	return zone, ok
}

// Zones returns a copy of the zone table with its current priorities.
func (z *Zonal) Zones() []Zone {
	z.mu.Lock()
	defer z.mu.Unlock()
	out := make([]Zone, len(z.zones))
	copy(out, z.zones)
	return out
}
