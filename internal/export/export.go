// Package export serializes dependency graphs for downstream tools.
package export

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"leangraph/internal/depgraph"
)

// Exporter writes a dependency graph in one serialization format.
type Exporter interface {
	Export(w io.Writer, g *depgraph.Graph) error
}

// SupportedFormats lists the format names this service can write,
// aliases included.
var SupportedFormats = map[string]bool{
	"gexf":   true,
	"dot":    true,
	"gv":     true,
	"jsonl":  true,
	"ndjson": true,
}

// ForFormat returns the exporter for a format name.
func ForFormat(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "gexf":
		return &GEXFExporter{}, nil
	case "dot", "gv":
		return &DOTExporter{}, nil
	case "jsonl", "ndjson":
		return &JSONLExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// ForFile returns the exporter implied by a filename extension.
func ForFile(filename string) (Exporter, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return nil, fmt.Errorf("cannot infer export format: %s has no extension", filename)
	}
	return ForFormat(ext)
}

// IsSupportedFormat checks if a format name is supported.
func IsSupportedFormat(format string) bool {
	return SupportedFormats[strings.ToLower(format)]
}

// Color is the RGBA viz color attached to exported nodes.
type Color struct {
	R int
	G int
	B int
	A int
}

var kindColors = map[string]Color{
	"theorem":  {R: 9, G: 200, B: 200, A: 1},
	"instance": {R: 9, G: 253, B: 136, A: 1},
	"unknown":  {R: 10, G: 10, B: 10, A: 1},
}

var defaultColor = Color{R: 9, G: 173, B: 236, A: 1}

// ColorFor maps a display kind to its viz color.
func ColorFor(displayKind string) Color {
	if c, ok := kindColors[displayKind]; ok {
		return c
	}
	return defaultColor
}

func (c Color) hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
