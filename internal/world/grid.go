package world

import (
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/tickworld/server/internal/core/ecs"
)

// Grid is the dynamic occupancy table. A cell holds nothing, one occupant id,
// or the locked variant of a mover's id reserving the cell as its next step.
//
// Cells are atomic words. Tick workers touch the grid concurrently: reads are
// plain loads, reservations are compare-and-swap so that only one of several
// movers racing for the same cell wins.
type Grid struct {
	width, height int
	cells         []atomic.Uint64
}

func NewGrid(width, height int) *Grid {
	return &Grid{
		width:  width,
		height: height,
		cells:  make([]atomic.Uint64, width*height),
	}
}

func (g *Grid) Inside(p Point) bool { return p.Inside(g.width, g.height) }

func (g *Grid) cell(p Point) *atomic.Uint64 {
	if !g.Inside(p) {
		panic(fmt.Sprintf("world: cell %s outside %dx%d", p, g.width, g.height))
	}
	return &g.cells[p.X+p.Y*g.width]
}

// OccupantAt returns the raw cell content, lock bit included. Cells outside
// the grid read as empty.
func (g *Grid) OccupantAt(p Point) ecs.EntityID {
	if !g.Inside(p) {
		return 0
	}
	return ecs.EntityID(g.cells[p.X+p.Y*g.width].Load())
}

// Place puts id into an empty cell.
func (g *Grid) Place(id ecs.EntityID, p Point) {
	if id.IsZero() {
		panic("world: place of empty id")
	}
	c := g.cell(p)
	if !c.CompareAndSwap(0, uint64(id)) {
		panic(fmt.Sprintf("world: place %s at %s occupied by %s", id, p, ecs.EntityID(c.Load())))
	}
}

// Vacate empties an occupied cell and returns what was there.
func (g *Grid) Vacate(p Point) ecs.EntityID {
	prev := ecs.EntityID(g.cell(p).Swap(0))
	if prev.IsZero() {
		panic(fmt.Sprintf("world: vacate of empty cell %s", p))
	}
	return prev
}

// LockCell reserves p for owner's next step. It returns false when the cell
// is already occupied or reserved.
func (g *Grid) LockCell(owner ecs.EntityID, p Point) bool {
	return g.cell(p).CompareAndSwap(0, uint64(owner.Lock()))
}

// Unlock drops owner's reservation of p.
func (g *Grid) Unlock(owner ecs.EntityID, p Point) {
	c := g.cell(p)
	if !c.CompareAndSwap(uint64(owner.Lock()), 0) {
		panic(fmt.Sprintf("world: unlock %s at %s holds %s", owner, p, ecs.EntityID(c.Load())))
	}
}

// CommitMove moves the occupant of from into to, which it must have locked.
// The destination is filled before the source is cleared, so a concurrent scan
// may meet the mover in both cells for an instant but never in neither.
func (g *Grid) CommitMove(from, to Point) ecs.EntityID {
	src, dst := g.cell(from), g.cell(to)
	id := ecs.EntityID(src.Load())
	if id.IsZero() || id.Locked() {
		panic(fmt.Sprintf("world: commit move from %s holding %s", from, id))
	}
	if lock := ecs.EntityID(dst.Load()); lock != id.Lock() {
		panic(fmt.Sprintf("world: commit move of %s into %s holding %s", id, to, lock))
	}
	dst.Store(uint64(id))
	src.Store(0)
	return id
}

// ForEachInRadius calls fn for every unlocked occupant within Manhattan
// distance radius of center, scanning rows top to bottom. An occupant caught
// mid-commit in two cells is reported once, at the first cell scanned.
func (g *Grid) ForEachInRadius(center Point, radius int, fn func(Point, ecs.EntityID)) {
	var seen []ecs.EntityID
	for dy := -radius; dy <= radius; dy++ {
		y := center.Y + dy
		if y < 0 || y >= g.height {
			continue
		}
		span := radius - abs(dy)
		x0, x1 := center.X-span, center.X+span
		if x0 < 0 {
			x0 = 0
		}
		if x1 >= g.width {
			x1 = g.width - 1
		}
		row := y * g.width
		for x := x0; x <= x1; x++ {
			id := ecs.EntityID(g.cells[row+x].Load())
			if id.IsZero() || id.Locked() || slices.Contains(seen, id) {
				continue
			}
			seen = append(seen, id)
			fn(Point{X: x, Y: y}, id)
		}
	}
}

// Count returns the number of occupied and reserved cells.
func (g *Grid) Count() (occupied, locked int) {
	for i := range g.cells {
		id := ecs.EntityID(g.cells[i].Load())
		switch {
		case id.IsZero():
		case id.Locked():
			locked++
		default:
			occupied++
		}
	}
	return occupied, locked
}
