package avoidance

import (
	"math"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/flight"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/geometry"
)

func TestFalloff_Scale(t *testing.T) {
	tests := []struct {
		name    string
		falloff Falloff
		d, r    float64
		want    float64
	}{
		{"linear halfway", Linear, 5, 10, 0.5},
		{"quadratic halfway", Quadratic, 5, 10, 0.25},
		{"at edge", Quadratic, 10, 10, 0},
		{"beyond edge", Linear, 12, 10, 0},
		{"contact", Quadratic, 0, 10, 1},
		{"zero radius", Linear, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.falloff.Scale(tt.d, tt.r); math.Abs(got-tt.want) > geometry.Epsilon {
				t.Errorf("Scale(%v, %v) = %v; want %v", tt.d, tt.r, got, tt.want)
			}
		})
	}
}

func TestRepulsion_Magnitude(t *testing.T) {
	pos := geometry.Vector3D{X: 0, Y: 10, Z: 0}
	peer := geometry.Vector3D{X: 3, Y: 10, Z: 4} // distance 5

	got := Repulsion(pos, []geometry.Vector3D{peer}, 15, 50, Quadratic)
	// 50 * (1 - 5/15)^2 = 22.222...
	want := 50 * math.Pow(1-5.0/15, 2)
	if math.Abs(got.Len()-want) > 1e-9 {
		t.Errorf("magnitude = %v; want %v", got.Len(), want)
	}
	if got.Dot(pos.Sub(peer)) <= 0 {
		t.Errorf("repulsion %v should point away from the peer", got)
	}
}

func TestRepulsion_Symmetry(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for _, falloff := range []Falloff{Linear, Quadratic} {
		t.Run(falloff.String(), func(t *testing.T) {
			for i := 0; i < 200; i++ {
				a := geometry.Vector3D{X: rng.Float64() * 20, Y: 5 + rng.Float64()*15, Z: rng.Float64() * 20}
				dir := geometry.Vector3D{X: rng.Float64() - 0.5, Y: rng.Float64() - 0.5, Z: rng.Float64() - 0.5}.Normalize()
				b := a.Add(dir.Mul(0.05 + rng.Float64()*14.9))

				fa := Repulsion(a, []geometry.Vector3D{b}, 15, 50, falloff)
				fb := Repulsion(b, []geometry.Vector3D{a}, 15, 50, falloff)
				if !fa.Add(fb).Eq(geometry.Zero) {
					t.Fatalf("forces not opposite: %v vs %v", fa, fb)
				}
				if math.Abs(fa.Len()-fb.Len()) > 1e-9 {
					t.Fatalf("magnitudes differ: %v vs %v", fa.Len(), fb.Len())
				}
			}
		})
	}
}

func TestRepulsion_DegenerateCases(t *testing.T) {
	pos := geometry.Vector3D{X: 1, Y: 1, Z: 1}
	tests := []struct {
		name  string
		peers []geometry.Vector3D
	}{
		{"no peers", nil},
		{"self only", []geometry.Vector3D{pos}},
		{"out of range", []geometry.Vector3D{{X: 100, Y: 1, Z: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pairwiseSum(pos, tt.peers)
			if !got.Eq(geometry.Zero) || !got.IsFinite() {
				t.Errorf("want zero force, got %v", got)
			}
		})
	}
}

// pairwiseSum also checks that Repulsion equals the sum of its pairwise terms.
func pairwiseSum(pos geometry.Vector3D, peers []geometry.Vector3D) geometry.Vector3D {
	sum := geometry.Zero
	for _, p := range peers {
		sum = sum.Add(PairRepulsion(pos, p, 15, 50, Quadratic))
	}
	if direct := Repulsion(pos, peers, 15, 50, Quadratic); !direct.Eq(sum) {
		return geometry.Vector3D{X: math.NaN()}
	}
	return sum
}

func TestGuard(t *testing.T) {
	g := NewGuard()
	pos := geometry.Vector3D{Y: 10}

	got := g.Avoid(pos, []geometry.Vector3D{{X: 1, Y: 10}})
	// linear: 8 * (1 - 1/2) = 4, pointing -X
	if !got.Eq(geometry.Vector3D{X: -4}) {
		t.Errorf("Avoid = %v; want (-4,0,0)", got)
	}
	if got := g.Avoid(pos, []geometry.Vector3D{{X: 0.05, Y: 10}}); !got.Eq(geometry.Zero) {
		t.Errorf("obstacles closer than 0.1 are ignored, got %v", got)
	}

	self := flight.State{ID: 0, Position: pos, Active: true}
	tests := []struct {
		name   string
		others []flight.State
		want   bool
	}{
		{"alone", []flight.State{self}, false},
		{"far", []flight.State{self, {ID: 1, Position: geometry.Vector3D{X: 5, Y: 10}, Active: true}}, false},
		{"close", []flight.State{self, {ID: 1, Position: geometry.Vector3D{X: 1.5, Y: 10}, Active: true}}, true},
		{"close but inactive", []flight.State{self, {ID: 1, Position: geometry.Vector3D{X: 1.5, Y: 10}}}, false},
		{"on the edge", []flight.State{{ID: 2, Position: geometry.Vector3D{Z: 2, Y: 10}, Active: true}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.CollisionImminent(self, tt.others); got != tt.want {
				t.Errorf("CollisionImminent = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestObstacle_IntersectsSegment(t *testing.T) {
	o, err := NewObstacle(geometry.Vector3D{X: 5, Y: 5, Z: 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		a, b geometry.Vector3D
		want bool
	}{
		{"through center", geometry.Vector3D{X: 0, Y: 5}, geometry.Vector3D{X: 10, Y: 5}, true},
		{"grazing outside", geometry.Vector3D{X: 0, Y: 6.5}, geometry.Vector3D{X: 10, Y: 6.5}, false},
		{"stops short", geometry.Vector3D{X: 0, Y: 5}, geometry.Vector3D{X: 3.5, Y: 5}, false},
		{"starts inside", geometry.Vector3D{X: 5, Y: 5.5}, geometry.Vector3D{X: 20, Y: 20}, true},
		{"midpoint away but segment crosses", geometry.Vector3D{X: 4, Y: 5}, geometry.Vector3D{X: 40, Y: 5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := o.IntersectsSegment(tt.a, tt.b); got != tt.want {
				t.Errorf("IntersectsSegment = %v; want %v", got, tt.want)
			}
		})
	}

	if _, err := NewObstacle(geometry.Zero, 0); err == nil {
		t.Error("zero radius obstacle should be rejected")
	}
}

func TestObstacleIndex(t *testing.T) {
	o1, _ := NewObstacle(geometry.Vector3D{X: 0, Y: 8, Z: 10}, 2)
	o2, _ := NewObstacle(geometry.Vector3D{X: 30, Y: 8, Z: -30}, 3)
	idx := NewObstacleIndex(o1, o2)

	if idx.Len() != 2 {
		t.Fatalf("Len = %d; want 2", idx.Len())
	}
	if !idx.SegmentBlocked(geometry.Vector3D{X: 0, Y: 8, Z: 20}, geometry.Vector3D{X: 0, Y: 8, Z: 0}) {
		t.Error("sightline through o1 should be blocked")
	}
	if idx.SegmentBlocked(geometry.Vector3D{X: -20, Y: 8, Z: 20}, geometry.Vector3D{X: -20, Y: 8, Z: 0}) {
		t.Error("sightline away from obstacles should be clear")
	}

	near := idx.Nearby(geometry.Vector3D{X: 0, Y: 8, Z: 14}, 3)
	if len(near) != 1 || !near[0].Eq(o1.Center) {
		t.Errorf("Nearby = %v; want [%v]", near, o1.Center)
	}

	var empty *ObstacleIndex
	if empty.SegmentBlocked(geometry.Zero, geometry.Vector3D{X: 1}) {
		t.Error("nil index blocks nothing")
	}
}

func TestNeighborGrid_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	snapshot := make([]flight.State, 16)
	for i := range snapshot {
		snapshot[i] = flight.State{
			ID:       i,
			Active:   i != 7,
			Position: geometry.Vector3D{X: rng.Float64()*80 - 40, Y: 5 + rng.Float64()*15, Z: rng.Float64()*80 - 40},
		}
	}
	const radius = 15.0
	g := NewNeighborGrid(radius)
	g.Rebuild(snapshot)

	key := func(v geometry.Vector3D) float64 { return v.X*1e6 + v.Y*1e3 + v.Z }
	for _, me := range snapshot {
		got := g.Near(nil, me.Position, radius, me.ID)

		var want []geometry.Vector3D
		for _, o := range snapshot {
			if o.ID == me.ID || !o.Active {
				continue
			}
			if o.Position.DistanceTo(me.Position) < radius {
				want = append(want, o.Position)
			}
		}
		sort.Slice(got, func(i, j int) bool { return key(got[i]) < key(got[j]) })
		sort.Slice(want, func(i, j int) bool { return key(want[i]) < key(want[j]) })
		if len(got) != len(want) {
			t.Fatalf("agent %d: grid found %d neighbors, brute force %d", me.ID, len(got), len(want))
		}
		for i := range got {
			if !got[i].Eq(want[i]) {
				t.Fatalf("agent %d: neighbor %d = %v; want %v", me.ID, i, got[i], want[i])
			}
		}
	}
}

func TestNeighborGrid_NegativeCoordinates(t *testing.T) {
	g := NewNeighborGrid(10)
	g.Rebuild([]flight.State{
		{ID: 0, Active: true, Position: geometry.Vector3D{X: -0.5, Y: 5}},
		{ID: 1, Active: true, Position: geometry.Vector3D{X: 0.5, Y: 5}},
	})
	if n := g.Near(nil, geometry.Vector3D{X: -0.5, Y: 5}, 10, 0); len(n) != 1 {
		t.Errorf("expected the neighbor across the origin, got %v", n)
	}
}

func BenchmarkRepulsion(b *testing.B) {
	rng := rand.New(rand.NewPCG(5, 6))
	peers := make([]geometry.Vector3D, 16)
	for i := range peers {
		peers[i] = geometry.Vector3D{X: rng.Float64() * 30, Y: 5 + rng.Float64()*15, Z: rng.Float64() * 30}
	}
	pos := geometry.Vector3D{X: 15, Y: 12, Z: 15}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Repulsion(pos, peers, 15, 50, Quadratic)
	}
}

func BenchmarkNeighborGrid(b *testing.B) {
	rng := rand.New(rand.NewPCG(7, 8))
	snapshot := make([]flight.State, 16)
	for i := range snapshot {
		snapshot[i] = flight.State{ID: i, Active: true, Position: geometry.Vector3D{X: rng.Float64()*80 - 40, Y: 5 + rng.Float64()*15, Z: rng.Float64()*80 - 40}}
	}
	g := NewNeighborGrid(15)
	buf := make([]geometry.Vector3D, 0, 16)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.Rebuild(snapshot)
		for _, s := range snapshot {
			buf = g.Near(buf[:0], s.Position, 15, s.ID)
		}
	}
}
