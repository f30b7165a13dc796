package data

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tickworld/server/internal/world"
)

// Layout characters understood by ParseLayout.
const (
	layoutFloor = '.'
	layoutWall  = '#'
	layoutSpawn = 'S'
)

// Map is the static description of the world: its size, wall cells and the
// points new players are placed on.
type Map struct {
	Name   string        `yaml:"name"`
	Width  int           `yaml:"width"`
	Height int           `yaml:"height"`
	Walls  []world.Point `yaml:"walls,flow"`
	Spawns []world.Point `yaml:"spawns,flow"`
}

// LoadMap reads and validates a YAML map file.
func LoadMap(path string) (*Map, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map %s: %w", path, err)
	}
	m, err := ParseMap(raw)
	if err != nil {
		return nil, fmt.Errorf("map %s: %w", path, err)
	}
	return m, nil
}

func ParseMap(raw []byte) (*Map, error) {
	var m Map
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse map: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// OpenMap returns a wall-free map where every cell is a spawn point.
func OpenMap(width, height int) *Map {
	m := &Map{Name: "open", Width: width, Height: height}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			m.Spawns = append(m.Spawns, world.Point{X: x, Y: y})
		}
	}
	return m
}

func (m *Map) Validate() error {
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("invalid size %dx%d", m.Width, m.Height)
	}
	if len(m.Spawns) == 0 {
		return errors.New("no spawn points")
	}
	walls := make(map[world.Point]struct{}, len(m.Walls))
	for _, p := range m.Walls {
		if !p.Inside(m.Width, m.Height) {
			return fmt.Errorf("wall %s outside %dx%d", p, m.Width, m.Height)
		}
		walls[p] = struct{}{}
	}
	seen := make(map[world.Point]struct{}, len(m.Spawns))
	for _, p := range m.Spawns {
		if !p.Inside(m.Width, m.Height) {
			return fmt.Errorf("spawn %s outside %dx%d", p, m.Width, m.Height)
		}
		if _, ok := walls[p]; ok {
			return fmt.Errorf("spawn %s is a wall", p)
		}
		if _, ok := seen[p]; ok {
			return fmt.Errorf("duplicate spawn %s", p)
		}
		seen[p] = struct{}{}
	}
	return nil
}

// ParseLayout builds a map from an ASCII drawing, one text row per grid row:
// '.' floor, '#' wall, 'S' spawn point. Blank lines and lines starting with
// ';' are skipped. Short rows are padded with floor.
func ParseLayout(name, text string) (*Map, error) {
	m := &Map{Name: name}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" || line[0] == ';' {
			continue
		}
		y := m.Height
		for x, c := range []byte(line) {
			p := world.Point{X: x, Y: y}
			switch c {
			case layoutFloor:
			case layoutWall:
				m.Walls = append(m.Walls, p)
			case layoutSpawn:
				m.Spawns = append(m.Spawns, p)
			default:
				return nil, fmt.Errorf("layout row %d column %d: unexpected %q", y, x, c)
			}
		}
		m.Width = max(m.Width, len(line))
		m.Height++
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// SpawnCycle hands out a map's spawn points round-robin.
type SpawnCycle struct {
	points []world.Point
	next   int
}

func NewSpawnCycle(m *Map) *SpawnCycle {
	return &SpawnCycle{points: m.Spawns}
}

func (c *SpawnCycle) Next() world.Point {
	p := c.points[c.next]
	c.next = (c.next + 1) % len(c.points)
	return p
}

// Marshal renders m as YAML in the format LoadMap reads.
func (m *Map) Marshal() ([]byte, error) {
	return yaml.Marshal(m)
}
