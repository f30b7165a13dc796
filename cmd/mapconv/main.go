// mapconv converts an ASCII map layout into the YAML map file the server loads.
//
// Layout characters: '.' floor, '#' wall, 'S' spawn point. Lines starting
// with ';' are comments.
//
// Usage:
//
//	go run ./cmd/mapconv [layout.txt] [out.yaml]
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tickworld/server/internal/data"
)

func main() {
	inputPath := filepath.Join("data", "map.txt")
	outputPath := filepath.Join("data", "map.yaml")

	if len(os.Args) >= 2 {
		inputPath = os.Args[1]
	}
	if len(os.Args) >= 3 {
		outputPath = os.Args[2]
	}

	m, err := convert(inputPath, outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s: %dx%d, %d walls, %d spawn points\n",
		outputPath, m.Width, m.Height, len(m.Walls), len(m.Spawns))
}

// convert parses the layout at in and writes it as YAML to out. The map is
// named after the layout file.
func convert(in, out string) (*data.Map, error) {
	raw, err := os.ReadFile(in)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", in, err)
	}

	name := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	m, err := data.ParseLayout(name, string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", in, err)
	}

	body, err := m.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	header := fmt.Sprintf("# generated by mapconv from %s\n", filepath.Base(in))
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", filepath.Dir(out), err)
	}
	if err := os.WriteFile(out, append([]byte(header), body...), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", out, err)
	}
	return m, nil
}
