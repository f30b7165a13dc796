package world

import (
	"fmt"
	"strings"
)

// Point is a grid cell coordinate. Y grows downwards.
type Point struct {
	X, Y int
}

func (p Point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Inside reports whether p lies in a width x height grid anchored at (0,0).
func (p Point) Inside(width, height int) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < width && p.Y < height
}

// Step returns p moved n cells towards d.
func (p Point) Step(d Dir, n int) Point {
	return Point{X: p.X + dirDX[d&3]*n, Y: p.Y + dirDY[d&3]*n}
}

// Next returns the neighbouring cell towards d.
func (p Point) Next(d Dir) Point { return p.Step(d, 1) }

// Distance is the Manhattan distance between two cells.
func Distance(a, b Point) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Dir is one of the four movement directions, counter-clockwise from Right.
type Dir uint8

const (
	Right Dir = iota
	Up
	Left
	Down

	DirCount = 4
)

var (
	dirDX    = [DirCount]int{1, 0, -1, 0}
	dirDY    = [DirCount]int{0, -1, 0, 1}
	dirNames = [DirCount]string{"right", "up", "left", "down"}
)

func (d Dir) Valid() bool { return d < DirCount }

func (d Dir) Opposite() Dir { return (d + DirCount/2) % DirCount }

// TurnLeft rotates a quarter turn counter-clockwise.
func (d Dir) TurnLeft() Dir { return (d + 1) % DirCount }

// TurnRight rotates a quarter turn clockwise.
func (d Dir) TurnRight() Dir { return (d + DirCount - 1) % DirCount }

func (d Dir) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Dir(%d)", uint8(d))
	}
	return dirNames[d]
}

// ParseDir accepts a direction name, case-insensitive.
func ParseDir(s string) (Dir, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range dirNames {
		if n == s {
			return Dir(i), nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// ForArc180 calls fn for every cell at exactly radius from origin that lies in
// the half-plane facing dir, walking from the left flank to the right flank.
func ForArc180(origin Point, radius int, dir Dir, fn func(Point)) {
	left, right, back := dir.TurnLeft(), dir.TurnRight(), dir.Opposite()
	pt := origin.Step(left, radius)
	for n := 0; n < radius; n++ {
		fn(pt)
		pt = pt.Next(dir).Next(right)
	}
	for n := 0; n < radius+1; n++ {
		fn(pt)
		pt = pt.Next(back).Next(right)
	}
}

// IsInFov180 reports whether pt is in the closed half-plane facing dir.
func IsInFov180(origin Point, dir Dir, pt Point) bool {
	switch dir {
	case Right:
		return pt.X >= origin.X
	case Up:
		return pt.Y <= origin.Y
	case Left:
		return pt.X <= origin.X
	case Down:
		return pt.Y >= origin.Y
	}
	return false
}

// IsOnArc180 reports whether pt is one of the cells ForArc180 visits.
func IsOnArc180(origin Point, radius int, dir Dir, pt Point) bool {
	return Distance(origin, pt) == radius && IsInFov180(origin, dir, pt)
}
