package avoidance

import (
	"math"

	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/flight"
	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/geometry"
)

type gridKey struct {
	x, y, z int
}

// NeighborGrid is a spatial hash over one tick's snapshot. With the cell size set
// to the interaction radius, everything within reach of a point lives in the
// 3x3x3 block of cells around it.
type NeighborGrid struct {
	cellSize float64
	cells    map[gridKey][]flight.State
}

// NewNeighborGrid creates an empty grid; cellSize is clamped to a minimum of 1.
func NewNeighborGrid(cellSize float64) *NeighborGrid {
	return &NeighborGrid{
		cellSize: math.Max(cellSize, 1.0),
		cells:    make(map[gridKey][]flight.State),
	}
}

func (g *NeighborGrid) key(p geometry.Vector3D) gridKey {
	return gridKey{
		x: int(math.Floor(p.X / g.cellSize)),
		y: int(math.Floor(p.Y / g.cellSize)),
		z: int(math.Floor(p.Z / g.cellSize)),
	}
}

// Rebuild refills the grid with the active agents of the snapshot.
func (g *NeighborGrid) Rebuild(snapshot []flight.State) {
	// keep the backing arrays, only reset the lengths
	for k := range g.cells {
		g.cells[k] = g.cells[k][:0]
	}
	for _, s := range snapshot {
		if !s.Active || !s.Position.IsFinite() {
			continue
		}
		k := g.key(s.Position)
		g.cells[k] = append(g.cells[k], s)
	}
}

// Near appends to dst the position of every agent other than self within radius
// of p, and returns the extended slice.
func (g *NeighborGrid) Near(dst []geometry.Vector3D, p geometry.Vector3D, radius float64, self int) []geometry.Vector3D {
	if !p.IsFinite() {
		return dst
	}
	r2 := radius * radius
	span := int(math.Ceil(radius / g.cellSize))
	c := g.key(p)
	for i := c.x - span; i <= c.x+span; i++ {
		for j := c.y - span; j <= c.y+span; j++ {
			for k := c.z - span; k <= c.z+span; k++ {
				for _, s := range g.cells[gridKey{x: i, y: j, z: k}] {
					if s.ID == self {
						continue
					}
					if s.Position.DistanceSquaredTo(p) < r2 {
						dst = append(dst, s.Position)
					}
				}
			}
		}
	}
	return dst
}
