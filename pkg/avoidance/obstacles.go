package avoidance

import (
	"fmt"
	"math"

	"github.com/dhconnelly/rtreego"

	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/geometry"
)

// Obstacle is anything a sightline or a waypoint should keep clear of,
// approximated by its bounding sphere.
type Obstacle struct {
	Center geometry.Vector3D
	Radius float64
	rect   rtreego.Rect
}

func NewObstacle(center geometry.Vector3D, radius float64) (*Obstacle, error) {
	if radius <= 0 || !center.IsFinite() {
		return nil, fmt.Errorf("invalid obstacle at %v with radius %.2f", center, radius)
	}
	side := 2 * radius
	rect, err := rtreego.NewRect(
		rtreego.Point{center.X - radius, center.Y - radius, center.Z - radius},
		[]float64{side, side, side},
	)
	if err != nil {
		return nil, fmt.Errorf("obstacle bounding box: %w", err)
	}
	return &Obstacle{Center: center, Radius: radius, rect: rect}, nil
}

// Bounds implements rtreego.Spatial.
func (o *Obstacle) Bounds() rtreego.Rect {
	return o.rect
}

// IntersectsSegment reports whether the segment a-b passes through the sphere.
func (o *Obstacle) IntersectsSegment(a, b geometry.Vector3D) bool {
	ab := b.Sub(a)
	l2 := ab.LenSqr()
	if l2 < geometry.Epsilon {
		return a.DistanceSquaredTo(o.Center) < o.Radius*o.Radius
	}
	// closest point of the segment to the center
	t := geometry.Clamp(o.Center.Sub(a).Dot(ab)/l2, 0, 1)
	closest := a.Add(ab.Mul(t))
	return closest.DistanceSquaredTo(o.Center) < o.Radius*o.Radius
}

// ObstacleIndex is a 3D R-tree over obstacle spheres. It is rebuilt from the
// scene whenever the obstacle list changes, which is at most once per tick.
type ObstacleIndex struct {
	tree      *rtreego.Rtree
	obstacles []*Obstacle
}

// NewObstacleIndex indexes the given obstacles.
func NewObstacleIndex(obstacles ...*Obstacle) *ObstacleIndex {
	spatials := make([]rtreego.Spatial, len(obstacles))
	for i, o := range obstacles {
		spatials[i] = o
	}
	return &ObstacleIndex{
		tree:      rtreego.NewTree(3, 4, 16, spatials...),
		obstacles: obstacles,
	}
}

func (idx *ObstacleIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.obstacles)
}

// Obstacles returns the indexed obstacles in insertion order.
func (idx *ObstacleIndex) Obstacles() []*Obstacle {
	if idx == nil {
		return nil
	}
	return idx.obstacles
}

// candidates returns the obstacles whose boxes touch the box around a-b.
func (idx *ObstacleIndex) candidates(a, b geometry.Vector3D) []rtreego.Spatial {
	lo := geometry.Vector3D{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
	hi := geometry.Vector3D{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
	// rtreego refuses zero-length sides
	const pad = 0.005
	bb, err := rtreego.NewRect(
		rtreego.Point{lo.X - pad, lo.Y - pad, lo.Z - pad},
		[]float64{hi.X - lo.X + 2*pad, hi.Y - lo.Y + 2*pad, hi.Z - lo.Z + 2*pad},
	)
	if err != nil {
		return nil
	}
	return idx.tree.SearchIntersect(bb)
}

// SegmentBlocked reports whether any obstacle sphere cuts the segment a-b.
func (idx *ObstacleIndex) SegmentBlocked(a, b geometry.Vector3D) bool {
	if idx.Len() == 0 || !a.IsFinite() || !b.IsFinite() {
		return false
	}
	for _, s := range idx.candidates(a, b) {
		if s.(*Obstacle).IntersectsSegment(a, b) {
			return true
		}
	}
	return false
}

// Nearby returns the centers of obstacles whose sphere comes within margin of p.
func (idx *ObstacleIndex) Nearby(p geometry.Vector3D, margin float64) []geometry.Vector3D {
	if idx.Len() == 0 || !p.IsFinite() {
		return nil
	}
	var out []geometry.Vector3D
	for _, s := range idx.candidates(p.Sub(geometry.Vector3D{X: margin, Y: margin, Z: margin}), p.Add(geometry.Vector3D{X: margin, Y: margin, Z: margin})) {
		o := s.(*Obstacle)
		if p.DistanceTo(o.Center)-o.Radius < margin {
			out = append(out, o.Center)
		}
	}
	return out
}
