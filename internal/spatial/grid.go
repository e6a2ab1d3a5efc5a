// Package spatial provides the uniform-cell hash used as the broad phase
// for particle neighbor queries.
//
// The grid is rebuilt from scratch every sub-step: [Grid.Clear] followed by
// one [Grid.Insert] per live particle. There is no removal; indices are
// whatever the caller uses to address its particle slice.
package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultCellSize is the cell edge length used by the sand engine.
const DefaultCellSize = 1.5

// Cell is an integer cell coordinate.
type Cell [3]int

// Grid maps cells to the indices inserted into them.
type Grid struct {
	cellSize float64
	inv      float64
	cells    map[Cell][]int
	count    int
}

// NewGrid creates an empty grid. Non-positive sizes fall back to
// DefaultCellSize.
func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 || math.IsNaN(cellSize) || math.IsInf(cellSize, 0) {
		cellSize = DefaultCellSize
	}
	return &Grid{
		cellSize: cellSize,
		inv:      1.0 / cellSize,
		cells:    make(map[Cell][]int),
	}
}

func (g *Grid) CellSize() float64 { return g.cellSize }

// Len returns the number of indices currently stored.
func (g *Grid) Len() int { return g.count }

// Cell returns the cell a position falls into: floor(p/cellSize) per axis.
func (g *Grid) Cell(pos mgl64.Vec3) Cell {
	return Cell{
		int(math.Floor(pos[0] * g.inv)),
		int(math.Floor(pos[1] * g.inv)),
		int(math.Floor(pos[2] * g.inv)),
	}
}

// Clear empties every bucket. Buckets that held something keep their
// backing array for the next rebuild; buckets that were already empty are
// dropped so the map tracks the occupied region.
func (g *Grid) Clear() {
	for c, bucket := range g.cells {
		if len(bucket) == 0 {
			delete(g.cells, c)
			continue
		}
		g.cells[c] = bucket[:0]
	}
	g.count = 0
}

// Insert appends index to the bucket of the cell containing pos.
func (g *Grid) Insert(index int, pos mgl64.Vec3) {
	c := g.Cell(pos)
	g.cells[c] = append(g.cells[c], index)
	g.count++
}

// Neighbors returns the indices stored in the 3x3x3 block of cells around
// pos, including pos's own cell. Order is unspecified and the caller must
// skip its own index.
func (g *Grid) Neighbors(pos mgl64.Vec3) []int {
	return g.AppendNeighbors(nil, pos)
}

// AppendNeighbors is Neighbors writing into dst, so a caller can reuse one
// scratch slice across queries.
func (g *Grid) AppendNeighbors(dst []int, pos mgl64.Vec3) []int {
	c := g.Cell(pos)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				bucket, ok := g.cells[Cell{c[0] + dx, c[1] + dy, c[2] + dz}]
				if !ok {
					continue
				}
				dst = append(dst, bucket...)
			}
		}
	}
	return dst
}

// Occupied returns the number of non-empty cells.
func (g *Grid) Occupied() int {
	n := 0
	for _, bucket := range g.cells {
		if len(bucket) > 0 {
			n++
		}
	}
	return n
}
