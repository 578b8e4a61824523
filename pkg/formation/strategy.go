// Package formation decides where every agent should be: the goal poses of a
// planning epoch, computed from the ball, the players around it and the known
// obstacles.
package formation

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/avoidance"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/flight"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/geometry"
)

// CentroidRadius is how close to the ball a player must be to pull the centroid.
const CentroidRadius = 20.0

// Player is one tracked entity on the field.
type Player struct {
	ID       int
	Position geometry.Vector3D
}

// Scene is the external state for one tick, as supplied by the game simulation.
type Scene struct {
	Ball      geometry.Vector3D
	Players   []Player
	Obstacles *avoidance.ObstacleIndex
}

// Input is everything a strategy plans against.
type Input struct {
	Scene
	// Agents is the roster snapshot; goals are returned in the same order.
	Agents []flight.State
	// Elapsed is the simulated time since the previous plan, in seconds.
	Elapsed float64
}

// Plan is the outcome of one planning epoch. It is a value: the fleet keeps it
// until the next epoch and hands it to the force step of every tick.
type Plan struct {
	Strategy string
	Centroid geometry.Vector3D
	// Goals[i] is the goal of Agents[i] of the planning Input.
	Goals []geometry.Vector3D
	// IDs[i] is the agent id Goals[i] belongs to.
	IDs []int
}

// Goal returns the planned goal of agent id.
func (p Plan) Goal(id int) (geometry.Vector3D, bool) {
	for i, v := range p.IDs {
		if v == id {
			return p.Goals[i], true
		}
	}
	return geometry.Zero, false
}

// Len is the number of goals in the plan.
func (p Plan) Len() int { return len(p.Goals) }

// Strategy computes goal poses. Exactly one strategy drives the fleet per tick.
type Strategy interface {
	Name() string
	Plan(in Input) Plan
}

// Centroid is the mean of the ball and every player strictly within radius of
// it. The ball alone is returned when nobody is close.
func Centroid(ball geometry.Vector3D, players []Player, radius float64) geometry.Vector3D {
	sum := ball
	n := 1.0
	r2 := radius * radius
	for _, p := range players {
		if p.Position.DistanceSquaredTo(ball) < r2 {
			sum = sum.Add(p.Position)
			n++
		}
	}
	return sum.Mul(1 / n)
}

// nearestPlayers returns up to k players sorted by distance to the ball.
func nearestPlayers(ball geometry.Vector3D, players []Player, k int) []Player {
	sorted := make([]Player, len(players))
	copy(sorted, players)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position.DistanceSquaredTo(ball) < sorted[j].Position.DistanceSquaredTo(ball)
	})
	if len(sorted) > k {
		sorted = sorted[:k]
	}
	return sorted
}

type factory func(cfg *flight.Config, rng *rand.Rand) Strategy

var registry = map[string]factory{
	flight.StrategyGeometric: func(cfg *flight.Config, _ *rand.Rand) Strategy { return NewGeometric(cfg) },
	flight.StrategyZonal:     func(cfg *flight.Config, rng *rand.Rand) Strategy { return NewZonal(cfg, rng) },
}

// New builds the strategy registered under name.
func New(name string, cfg *flight.Config, rng *rand.Rand) (Strategy, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown strategy %q", flight.ErrInvalidConfig, name)
	}
	return f(cfg, rng), nil
}

// Names lists the registered strategies.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
