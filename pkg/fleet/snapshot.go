package fleet

import (
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/flight"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/geometry"
)

// Snapshot is an immutable copy of the fleet for renderers and reports.
type Snapshot struct {
	DeploymentID string
	Tick         uint64
	Elapsed      float64
	Strategy     string
	Rotation     float64
	Centroid     geometry.Vector3D
	Agents       []flight.Agent
	// Goals[i] is the goal Agents[i] steered to on the last tick.
	Goals []geometry.Vector3D
	// ClampEvents counts the hard clamp corrections since deployment.
	ClampEvents uint64
	// NearMisses is the number of active agents that had an active peer inside
	// the guard radius at the start of the last tick.
	NearMisses int
}

// Snapshot copies the current state of the fleet.
func (f *Fleet) Snapshot() *Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s := &Snapshot{
		Tick:        f.tick,
		Elapsed:     f.elapsed,
		Strategy:    f.strategy.Name(),
		Rotation:    f.Rotation(),
		Centroid:    f.centroid,
		Agents:      f.copyAgents(false),
		Goals:       append([]geometry.Vector3D(nil), f.goals...),
		ClampEvents: f.clampEvents,
		NearMisses:  f.nearMisses,
	}
	if f.deployed {
		s.DeploymentID = f.deploymentID.String()
	}
	return s
}

func vectorValue(v geometry.Vector3D) []any {
	return []any{v.X, v.Y, v.Z}
}

// Proto encodes the snapshot as a protobuf Struct so it can travel as an actor
// reply.
func (s *Snapshot) Proto() (*structpb.Struct, error) {
	agents := make([]any, len(s.Agents))
	for i, a := range s.Agents {
		agents[i] = map[string]any{
			"id":       a.ID,
			"active":   a.Active,
			"position": vectorValue(a.Position),
			"velocity": vectorValue(a.Velocity),
			"lookAt":   vectorValue(a.LookAt),
		}
	}
	goals := make([]any, len(s.Goals))
	for i, g := range s.Goals {
		goals[i] = vectorValue(g)
	}
	return structpb.NewStruct(map[string]any{
		"deploymentId": s.DeploymentID,
		"tick":         float64(s.Tick),
		"elapsed":      s.Elapsed,
		"strategy":     s.Strategy,
		"rotation":     s.Rotation,
		"centroid":     vectorValue(s.Centroid),
		"agents":       agents,
		"goals":        goals,
		"clampEvents":  float64(s.ClampEvents),
		"nearMisses":   s.NearMisses,
	})
}

// SnapshotFromProto decodes what Proto produced. Unknown or missing fields are
// left at their zero value.
func SnapshotFromProto(st *structpb.Struct) *Snapshot {
	m := st.AsMap()
	s := &Snapshot{
		DeploymentID: asString(m["deploymentId"]),
		Tick:         uint64(asFloat(m["tick"])),
		Elapsed:      asFloat(m["elapsed"]),
		Strategy:     asString(m["strategy"]),
		Rotation:     asFloat(m["rotation"]),
		Centroid:     asVector(m["centroid"]),
		ClampEvents:  uint64(asFloat(m["clampEvents"])),
		NearMisses:   int(asFloat(m["nearMisses"])),
	}
	agents, _ := m["agents"].([]any)
	for _, raw := range agents {
		am, _ := raw.(map[string]any)
		active, _ := am["active"].(bool)
		s.Agents = append(s.Agents, flight.Agent{
			ID:        int(asFloat(am["id"])),
			Active:    active,
			Position:  asVector(am["position"]),
			Velocity:  asVector(am["velocity"]),
			LookAt:    asVector(am["lookAt"]),
			HasLookAt: am["lookAt"] != nil,
		})
	}
	goals, _ := m["goals"].([]any)
	for _, g := range goals {
		s.Goals = append(s.Goals, asVector(g))
	}
	return s
}

func asFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asVector(v any) geometry.Vector3D {
	l, ok := v.([]any)
	if !ok || len(l) != 3 {
		return geometry.Zero
	}
	return geometry.Vector3D{X: asFloat(l[0]), Y: asFloat(l[1]), Z: asFloat(l[2])}
}
