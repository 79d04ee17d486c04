package spatial

// Grid is a cell-based index over object positions. Cell size equals the
// visibility range, so a 3x3 neighbourhood of cells fully covers every
// point within that range. The grid does no locking of its own; the owner
// serializes access.

type cellKey struct {
	mapID int16
	cx    int32
	cy    int32
}

type Grid struct {
	cellSize int32
	cells    map[cellKey]map[int32]struct{} // cellKey → set of object ids
}

func NewGrid(cellSize int32) *Grid {
	if cellSize < 1 {
		cellSize = 1
	}
	return &Grid{
		cellSize: cellSize,
		cells:    make(map[cellKey]map[int32]struct{}),
	}
}

func (g *Grid) toCell(v int32) int32 {
	if v < 0 {
		return (v - g.cellSize + 1) / g.cellSize
	}
	return v / g.cellSize
}

func (g *Grid) key(p Position) cellKey {
	return cellKey{mapID: p.MapID, cx: g.toCell(p.X), cy: g.toCell(p.Y)}
}

// Add places an object into the grid.
func (g *Grid) Add(id int32, p Position) {
	k := g.key(p)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[int32]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
}

// Remove takes an object out of the grid.
func (g *Grid) Remove(id int32, p Position) {
	k := g.key(p)
	cell := g.cells[k]
	if cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

// Move updates an object's cell when its position changes.
func (g *Grid) Move(id int32, from, to Position) {
	oldK := g.key(from)
	newK := g.key(to)
	if oldK == newK {
		return
	}
	g.Remove(id, from)
	g.Add(id, to)
}

// Nearby returns the ids in the 3x3 cell neighbourhood around p. Callers
// do the fine-grained distance filtering.
func (g *Grid) Nearby(p Position) []int32 {
	cx := g.toCell(p.X)
	cy := g.toCell(p.Y)
	var result []int32
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			k := cellKey{mapID: p.MapID, cx: cx + dx, cy: cy + dy}
			for id := range g.cells[k] {
				result = append(result, id)
			}
		}
	}
	return result
}
