package fluid

// Grid is a uniform spatial hash over the simulation domain. Cell size equals
// the smoothing radius, so the 3x3x3 block around a particle's cell covers its
// full kernel support. The grid is rebuilt from scratch every step; particles
// cross cell boundaries every tick, so incremental maintenance isn't worth it.
type Grid struct {
	cellSize float32
	res      int
	cells    [][]int32 // flat res^3 buckets of particle indices
}

// NewGrid creates a grid with res cells per axis.
func NewGrid(cellSize float32, res int) *Grid {
	return &Grid{
		cellSize: cellSize,
		res:      res,
		cells:    make([][]int32, res*res*res),
	}
}

// Clear empties all buckets, keeping their backing arrays.
func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Rebuild clears the grid and inserts every particle position. Each particle
// lands in exactly one bucket; out-of-domain positions alias to boundary
// cells rather than being dropped.
func (g *Grid) Rebuild(pos []Vec3) {
	g.Clear()
	for i := range pos {
		g.Insert(int32(i), pos[i])
	}
}

// Insert adds a particle index to the bucket for the given position.
func (g *Grid) Insert(idx int32, p Vec3) {
	ci := g.cellIndex(p)
	g.cells[ci] = append(g.cells[ci], idx)
}

// NeighborsInto appends the indices of every particle in the 3x3x3 block of
// cells around pos, clipped to the grid bounds, and returns the updated
// slice. Reuse dst across calls to avoid allocations. The enumeration order
// is deterministic: cells in x-fastest order, insertion order within a cell.
func (g *Grid) NeighborsInto(dst []int32, pos Vec3) []int32 {
	ci, cj, ck := g.cellCoord(pos)

	for dk := -1; dk <= 1; dk++ {
		k := ck + dk
		if k < 0 || k >= g.res {
			continue
		}
		for dj := -1; dj <= 1; dj++ {
			j := cj + dj
			if j < 0 || j >= g.res {
				continue
			}
			row := (k*g.res + j) * g.res
			for di := -1; di <= 1; di++ {
				i := ci + di
				if i < 0 || i >= g.res {
					continue
				}
				dst = append(dst, g.cells[row+i]...)
			}
		}
	}

	return dst
}

// cellCoord maps a position to clamped per-axis cell coordinates.
func (g *Grid) cellCoord(p Vec3) (int, int, int) {
	i := clampCell(int(floor32(p.X/g.cellSize)), g.res)
	j := clampCell(int(floor32(p.Y/g.cellSize)), g.res)
	k := clampCell(int(floor32(p.Z/g.cellSize)), g.res)
	return i, j, k
}

// cellIndex returns the flat bucket index for a position.
func (g *Grid) cellIndex(p Vec3) int {
	i, j, k := g.cellCoord(p)
	return (k*g.res+j)*g.res + i
}

func clampCell(c, res int) int {
	if c < 0 {
		return 0
	}
	if c >= res {
		return res - 1
	}
	return c
}
