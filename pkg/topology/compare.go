package topology

// SubsetOf reports whether every pad of t exists in other and t's pad
// arrangement appears unchanged somewhere in other's grid. Pads are compared
// by id: channels may differ between the two. Empty cells inside t's
// bounding box must be empty in other too.
func (t *Topology) SubsetOf(other *Topology) bool {
	for pad := range t.channelOf {
		if _, ok := other.channelOf[pad]; !ok {
			return false
		}
	}
	return containsBlock(other.grid, other.columns, t.boundingBox())
}

// SupersetOf is other.SubsetOf(t).
func (t *Topology) SupersetOf(other *Topology) bool {
	return other.SubsetOf(t)
}

// Equal reports whether both topologies hold the same pads in the same
// arrangement.
func (t *Topology) Equal(other *Topology) bool {
	return t.SubsetOf(other) && other.SubsetOf(t)
}

// boundingBox returns the smallest block of the grid holding every pad.
func (t *Topology) boundingBox() [][]Pad {
	if len(t.position) == 0 {
		return nil
	}
	minR, minC := len(t.grid), t.columns
	maxR, maxC := -1, -1
	for _, p := range t.position {
		minR, maxR = min(minR, p.Row), max(maxR, p.Row)
		minC, maxC = min(minC, p.Column), max(maxC, p.Column)
	}
	block := make([][]Pad, 0, maxR-minR+1)
	for r := minR; r <= maxR; r++ {
		block = append(block, t.grid[r][minC:maxC+1])
	}
	return block
}

func containsBlock(grid [][]Pad, columns int, block [][]Pad) bool {
	if len(block) == 0 {
		return true
	}
	rows, cols := len(block), len(block[0])
	for r0 := 0; r0+rows <= len(grid); r0++ {
		for c0 := 0; c0+cols <= columns; c0++ {
			if blockAt(grid, block, r0, c0) {
				return true
			}
		}
	}
	return false
}

func blockAt(grid [][]Pad, block [][]Pad, r0 int, c0 int) bool {
	for r := range block {
		for c := range block[r] {
			if grid[r0+r][c0+c] != block[r][c] {
				return false
			}
		}
	}
	return true
}
