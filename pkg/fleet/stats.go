package fleet

import (
	"math"

	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/flight"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/formation"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/geometry"
)

// Stats accumulates flight statistics over a run of snapshots.
type Stats struct {
	Bounds flight.Bounds

	Samples       int
	Violations    int // agent samples found outside the flight volume
	MinSeparation float64
	MinHeight     float64
	MaxHeight     float64
	MaxRadius     float64
	MaxSpeed      float64
	MaxNearMisses int
	ClampEvents   uint64
	// QualitySum is the running sum of Quality.Overall; see MeanQuality.
	QualitySum float64
}

// NewStats starts an empty accumulator checking against b.
func NewStats(b flight.Bounds) *Stats {
	return &Stats{
		Bounds:        b,
		MinSeparation: math.Inf(1),
		MinHeight:     math.Inf(1),
		MaxHeight:     math.Inf(-1),
	}
}

// Observe folds one snapshot into the statistics.
func (st *Stats) Observe(s *Snapshot) {
	if s == nil || len(s.Agents) == 0 {
		return
	}
	st.Samples++
	positions := make([]geometry.Vector3D, 0, len(s.Agents))
	for i, a := range s.Agents {
		if !st.Bounds.Contains(a.Position, 1e-6) {
			st.Violations++
		}
		st.MinHeight = math.Min(st.MinHeight, a.Position.Y)
		st.MaxHeight = math.Max(st.MaxHeight, a.Position.Y)
		st.MaxRadius = math.Max(st.MaxRadius, a.Position.HorizontalLen())
		st.MaxSpeed = math.Max(st.MaxSpeed, a.Velocity.Len())
		for _, b := range s.Agents[i+1:] {
			st.MinSeparation = math.Min(st.MinSeparation, a.DistanceTo(&b))
		}
		if a.Active {
			positions = append(positions, a.Position)
		}
	}
	st.MaxNearMisses = max(st.MaxNearMisses, s.NearMisses)
	st.ClampEvents = s.ClampEvents
	st.QualitySum += formation.Evaluate(positions, s.Centroid).Overall
}

// MeanQuality is the average formation quality over the observed snapshots.
func (st *Stats) MeanQuality() float64 {
	if st.Samples == 0 {
		return 0
	}
	return st.QualitySum / float64(st.Samples)
}

// Bounded reports whether every observed agent stayed in the flight volume.
func (st *Stats) Bounded() bool {
	return st.Violations == 0
}
