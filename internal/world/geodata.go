package world

import "fmt"

// Geodata is the static wall table. Each cell keeps one bit per direction
// telling whether leaving the cell that way is blocked. It is written while
// the map loads and only read afterwards.
type Geodata struct {
	width, height int
	table         []uint8
}

func NewGeodata(width, height int) *Geodata {
	return &Geodata{
		width:  width,
		height: height,
		table:  make([]uint8, width*height),
	}
}

func (g *Geodata) idx(p Point) int { return p.X + p.Y*g.width }

func dirMask(d Dir) uint8 { return 1 << d }

// AddWall makes p unreachable from all four neighbours.
func (g *Geodata) AddWall(p Point) {
	if !p.Inside(g.width, g.height) {
		panic(fmt.Sprintf("world: wall %s outside %dx%d", p, g.width, g.height))
	}
	for d := Dir(0); d < DirCount; d++ {
		n := p.Next(d)
		if n.Inside(g.width, g.height) {
			g.table[g.idx(n)] |= dirMask(d.Opposite())
		}
	}
}

// CanMove reports whether leaving p towards d is not blocked by a wall.
func (g *Geodata) CanMove(p Point, d Dir) bool {
	if !p.Inside(g.width, g.height) {
		panic(fmt.Sprintf("world: can-move query %s outside %dx%d", p, g.width, g.height))
	}
	return g.table[g.idx(p)]&dirMask(d) == 0
}

// Walls counts cells that have at least one blocked exit.
func (g *Geodata) Walls() int {
	n := 0
	for _, v := range g.table {
		if v != 0 {
			n++
		}
	}
	return n
}
