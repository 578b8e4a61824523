// Package scene scripts the external world the fleet films: a ball running a
// smooth path over the field, runners chasing it and a few fixed obstacles.
package scene

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/avoidance"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/flight"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/formation"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/geometry"
)

const (
	ballHeight = 0.5
	// maxSubstep bounds the runner integration step when the clock jumps.
	maxSubstep = 1.0 / 30
)

// Script is a deterministic scene: the same seed replays the same match.
// It is safe for concurrent use, the viewer moves the ball while the fleet
// actor reads the scene.
type Script struct {
	Flock FlockSettings

	mu        sync.Mutex
	runners   []*Runner
	obstacles *avoidance.ObstacleIndex
	halfW     float64
	halfL     float64
	clock     float64
	ball      geometry.Vector3D
	pinned    bool
}

// NewScript builds a scene on the field of cfg with the given number of runners.
func NewScript(cfg *flight.Config, runners int, rng *rand.Rand) (*Script, error) {
	if runners < 0 {
		return nil, fmt.Errorf("runner count must not be negative, got %d", runners)
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	s := &Script{
		halfW: cfg.FieldWidth / 2,
		halfL: cfg.FieldLength / 2,
	}
	s.Flock = DefaultFlockSettings(s.halfW, s.halfL)
	for i := 0; i < runners; i++ {
		s.runners = append(s.runners, NewRunner(i, s.Flock, rng))
	}
	obstacles, err := goalPosts(s.halfL, cfg.MinHeight)
	if err != nil {
		return nil, err
	}
	s.obstacles = obstacles
	s.ball = s.path(0)
	return s, nil
}

// goalPosts places the uprights at both ends of the field as obstacle spheres
// stacked up to the crossbar.
func goalPosts(halfLength, floor float64) (*avoidance.ObstacleIndex, error) {
	var obs []*avoidance.Obstacle
	for _, z := range []float64{-halfLength, halfLength} {
		for _, x := range []float64{-2.8, 2.8} {
			for y := floor; y <= floor+6; y += 2 {
				o, err := avoidance.NewObstacle(geometry.Vector3D{X: x, Y: y, Z: z}, 1)
				if err != nil {
					return nil, err
				}
				obs = append(obs, o)
			}
		}
	}
	return avoidance.NewObstacleIndex(obs...), nil
}

// path is the scripted ball trajectory, a slow Lissajous figure over the field.
func (s *Script) path(t float64) geometry.Vector3D {
	return geometry.Vector3D{
		X: 0.6 * s.halfW * math.Sin(0.23*t),
		Y: ballHeight,
		Z: 0.75 * s.halfL * math.Sin(0.11*t+0.4),
	}
}

// Scene advances the runners up to t and returns the scene at that time.
// Asking for a time already reached returns the scene without moving anything.
func (s *Script) Scene(t float64) formation.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.clock < t {
		dt := math.Min(t-s.clock, maxSubstep)
		s.clock += dt
		if !s.pinned {
			s.ball = s.path(s.clock)
		}
		next := make([]geometry.Vector3D, len(s.runners))
		for i, r := range s.runners {
			next[i] = r.Accelerate(s.runners, s.ball, s.Flock, dt)
		}
		for i, r := range s.runners {
			r.Move(next[i], s.Flock, dt)
		}
	}

	players := make([]formation.Player, len(s.runners))
	for i, r := range s.runners {
		players[i] = formation.Player{ID: r.ID, Position: r.Position}
	}
	return formation.Scene{Ball: s.ball, Players: players, Obstacles: s.obstacles}
}

// PinBall holds the ball at p, on the ground, until ReleaseBall.
func (s *Script) PinBall(p geometry.Vector3D) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pinned = true
	s.ball = geometry.Vector3D{
		X: geometry.Clamp(p.X, -s.halfW, s.halfW),
		Y: ballHeight,
		Z: geometry.Clamp(p.Z, -s.halfL, s.halfL),
	}
}

// ReleaseBall puts the ball back on its scripted path.
func (s *Script) ReleaseBall() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pinned = false
	s.ball = s.path(s.clock)
}

// Obstacles returns the fixed obstacles of the scene.
func (s *Script) Obstacles() []*avoidance.Obstacle {
	return s.obstacles.Obstacles()
}
