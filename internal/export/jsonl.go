package export

import (
	"bufio"
	"encoding/json"
	"io"

	"leangraph/internal/decl"
	"leangraph/internal/depgraph"
)

// JSONLExporter writes one JSON object per line, nodes first and then
// edges, so consumers can stream a large graph without holding it.
type JSONLExporter struct{}

type jsonlNode struct {
	Type           string         `json:"type"`
	Name           string         `json:"name"`
	Kind           string         `json:"kind"`
	DisplayKind    string         `json:"display_kind"`
	File           string         `json:"file,omitempty"`
	Line           int            `json:"line,omitempty"`
	TypeSize       int            `json:"type_size"`
	TypeDedupSize  int            `json:"type_dedup_size"`
	TypePPSize     int            `json:"type_pp_size"`
	ValueSize      int            `json:"value_size"`
	ValueDedupSize int            `json:"value_dedup_size"`
	ValuePPSize    int            `json:"value_pp_size"`
	Flags          decl.Modifiers `json:"flags"`
}

type jsonlEdge struct {
	Type string `json:"type"`
	From string `json:"from"`
	To   string `json:"to"`
}

func (e *JSONLExporter) Export(w io.Writer, g *depgraph.Graph) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	for _, name := range g.NodeNames() {
		d, _ := g.Decl(name)
		if err := enc.Encode(jsonlNode{
			Type:           "node",
			Name:           d.Name,
			Kind:           string(d.Kind),
			DisplayKind:    d.DisplayKind(),
			File:           d.File,
			Line:           d.Line,
			TypeSize:       d.TypeStats.Raw,
			TypeDedupSize:  d.TypeStats.Dedup,
			TypePPSize:     d.TypeStats.PP,
			ValueSize:      d.ValueStats.Raw,
			ValueDedupSize: d.ValueStats.Dedup,
			ValuePPSize:    d.ValueStats.PP,
			Flags:          d.Flags,
		}); err != nil {
			return err
		}
	}
	for edge := range g.Edges() {
		if err := enc.Encode(jsonlEdge{Type: "edge", From: edge.From, To: edge.To}); err != nil {
			return err
		}
	}
	return bw.Flush()
}
