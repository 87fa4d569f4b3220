package world

import "math"

// AOIGrid is a cell-based spatial index over actor positions. Only X and Y
// are indexed; Z is ignored for area queries.
// Accessed only from the game loop goroutine.

const cellSize = 8.0

type cellKey struct {
	cx int32
	cy int32
}

func toCellCoord(v float64) int32 {
	return int32(math.Floor(v / cellSize))
}

// AOIGrid tracks which actors are in which cells.
type AOIGrid struct {
	cells map[cellKey]map[*Actor]struct{}
}

func NewAOIGrid() *AOIGrid {
	return &AOIGrid{
		cells: make(map[cellKey]map[*Actor]struct{}),
	}
}

func (g *AOIGrid) key(p Vec3) cellKey {
	return cellKey{cx: toCellCoord(p.X), cy: toCellCoord(p.Y)}
}

// Add places an actor into the grid.
func (g *AOIGrid) Add(a *Actor, p Vec3) {
	k := g.key(p)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[*Actor]struct{})
		g.cells[k] = cell
	}
	cell[a] = struct{}{}
}

// Remove takes an actor out of the grid.
func (g *AOIGrid) Remove(a *Actor, p Vec3) {
	k := g.key(p)
	if cell := g.cells[k]; cell != nil {
		delete(cell, a)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

// Move updates an actor's cell when its position changes.
func (g *AOIGrid) Move(a *Actor, from, to Vec3) {
	if g.key(from) == g.key(to) {
		return
	}
	g.Remove(a, from)
	g.Add(a, to)
}

// Nearby returns every actor in the cells overlapping the square of half
// width radius around center. Caller does fine-grained distance filtering.
func (g *AOIGrid) Nearby(center Vec3, radius float64) []*Actor {
	if radius < 0 {
		radius = 0
	}
	minX, maxX := toCellCoord(center.X-radius), toCellCoord(center.X+radius)
	minY, maxY := toCellCoord(center.Y-radius), toCellCoord(center.Y+radius)
	var result []*Actor
	for cx := minX; cx <= maxX; cx++ {
		for cy := minY; cy <= maxY; cy++ {
			for a := range g.cells[cellKey{cx: cx, cy: cy}] {
				result = append(result, a)
			}
		}
	}
	return result
}

// Cells returns the number of occupied cells.
func (g *AOIGrid) Cells() int { return len(g.cells) }
