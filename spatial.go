package main

// LaneCellSize is the column width of the lane grid, one full firing lane
const LaneCellSize = 2 * AttackRange

// Entity kinds stored in the grid
const (
	KindHorde byte = 'h'
	KindBoss  byte = 'b'
)

// EntityRef identifies an enemy in the grid
type EntityRef struct {
	Kind byte // KindHorde or KindBoss
	Idx  int  // index into the corresponding list
}

// LaneGrid buckets enemies into vertical columns so a shot only checks the
// enemies near its own X
type LaneGrid struct {
	cells [][]EntityRef
}

// Reset sizes the grid for a playfield width and clears all cells (keeps allocated capacity)
func (g *LaneGrid) Reset(width int) {
	cols := width/LaneCellSize + 1
	if cols < 1 {
		cols = 1
	}
	if cap(g.cells) < cols {
		g.cells = make([][]EntityRef, cols)
	}
	g.cells = g.cells[:cols]
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

func (g *LaneGrid) cellIdx(x float64) int {
	cx := int(x / LaneCellSize)
	if x < 0 || cx < 0 {
		return 0
	}
	if cx >= len(g.cells) {
		return len(g.cells) - 1
	}
	return cx
}

// Insert adds an entity reference at the given X
func (g *LaneGrid) Insert(x float64, ref EntityRef) {
	idx := g.cellIdx(x)
	g.cells[idx] = append(g.cells[idx], ref)
}

// QueryBuf appends every ref in columns overlapping [x-reach, x+reach] to buf
func (g *LaneGrid) QueryBuf(x, reach float64, buf []EntityRef) []EntityRef {
	for cx := g.cellIdx(x - reach); cx <= g.cellIdx(x+reach); cx++ {
		buf = append(buf, g.cells[cx]...)
	}
	return buf
}

// buildLaneGrid indexes the hordes and bosses of s
func buildLaneGrid(g *LaneGrid, s *GameState) {
	g.Reset(s.ScreenWidth)
	for i, h := range s.Hordes {
		g.Insert(float64(h.X), EntityRef{Kind: KindHorde, Idx: i})
	}
	for i, b := range s.Bosses {
		g.Insert(b.X, EntityRef{Kind: KindBoss, Idx: i})
	}
}
