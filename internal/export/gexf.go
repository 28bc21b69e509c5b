package export

import (
	"encoding/xml"
	"io"
	"strconv"

	"leangraph/internal/decl"
	"leangraph/internal/depgraph"
)

// GEXFExporter writes GEXF 1.2 with viz colors, the format graph
// workbenches like Gephi read directly.
type GEXFExporter struct{}

type gexfDoc struct {
	XMLName xml.Name  `xml:"gexf"`
	XMLNS   string    `xml:"xmlns,attr"`
	Viz     string    `xml:"xmlns:viz,attr"`
	Version string    `xml:"version,attr"`
	Graph   gexfGraph `xml:"graph"`
}

type gexfGraph struct {
	Mode     string     `xml:"mode,attr"`
	EdgeType string     `xml:"defaultedgetype,attr"`
	Attrs    gexfAttrs  `xml:"attributes"`
	Nodes    []gexfNode `xml:"nodes>node"`
	Edges    []gexfEdge `xml:"edges>edge"`
}

type gexfAttrs struct {
	Class string     `xml:"class,attr"`
	List  []gexfAttr `xml:"attribute"`
}

type gexfAttr struct {
	ID    string `xml:"id,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

type gexfNode struct {
	ID     string      `xml:"id,attr"`
	Label  string      `xml:"label,attr"`
	Color  gexfColor   `xml:"viz:color"`
	Values []gexfValue `xml:"attvalues>attvalue"`
}

type gexfColor struct {
	R int `xml:"r,attr"`
	G int `xml:"g,attr"`
	B int `xml:"b,attr"`
	A int `xml:"a,attr"`
}

type gexfValue struct {
	For   string `xml:"for,attr"`
	Value string `xml:"value,attr"`
}

type gexfEdge struct {
	ID     int    `xml:"id,attr"`
	Source string `xml:"source,attr"`
	Target string `xml:"target,attr"`
}

var gexfAttributes = []gexfAttr{
	{ID: "0", Title: "kind", Type: "string"},
	{ID: "1", Title: "display_kind", Type: "string"},
	{ID: "2", Title: "file", Type: "string"},
	{ID: "3", Title: "line", Type: "integer"},
	{ID: "4", Title: "type_size", Type: "integer"},
	{ID: "5", Title: "type_dedup_size", Type: "integer"},
	{ID: "6", Title: "type_pp_size", Type: "integer"},
	{ID: "7", Title: "value_size", Type: "integer"},
	{ID: "8", Title: "value_dedup_size", Type: "integer"},
	{ID: "9", Title: "value_pp_size", Type: "integer"},
	{ID: "10", Title: "is_class", Type: "boolean"},
	{ID: "11", Title: "is_instance", Type: "boolean"},
	{ID: "12", Title: "is_structure", Type: "boolean"},
	{ID: "13", Title: "is_inductive", Type: "boolean"},
	{ID: "14", Title: "is_recursor", Type: "boolean"},
	{ID: "15", Title: "is_constructor", Type: "boolean"},
	{ID: "16", Title: "is_structure_field", Type: "boolean"},
}

func (e *GEXFExporter) Export(w io.Writer, g *depgraph.Graph) error {
	doc := gexfDoc{
		XMLNS:   "http://www.gexf.net/1.2draft",
		Viz:     "http://www.gexf.net/1.2draft/viz",
		Version: "1.2",
		Graph: gexfGraph{
			Mode:     "static",
			EdgeType: "directed",
			Attrs:    gexfAttrs{Class: "node", List: gexfAttributes},
			Nodes:    make([]gexfNode, 0, g.Len()),
			Edges:    make([]gexfEdge, 0, g.EdgeCount()),
		},
	}

	for _, name := range g.NodeNames() {
		d, _ := g.Decl(name)
		doc.Graph.Nodes = append(doc.Graph.Nodes, gexfNodeFor(d))
	}
	id := 0
	for e := range g.Edges() {
		doc.Graph.Edges = append(doc.Graph.Edges, gexfEdge{ID: id, Source: e.From, Target: e.To})
		id++
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func gexfNodeFor(d *decl.Declaration) gexfNode {
	display := d.DisplayKind()
	c := ColorFor(display)
	vals := []string{
		string(d.Kind),
		display,
		d.File,
		strconv.Itoa(d.Line),
		strconv.Itoa(d.TypeStats.Raw),
		strconv.Itoa(d.TypeStats.Dedup),
		strconv.Itoa(d.TypeStats.PP),
		strconv.Itoa(d.ValueStats.Raw),
		strconv.Itoa(d.ValueStats.Dedup),
		strconv.Itoa(d.ValueStats.PP),
		strconv.FormatBool(d.Flags.IsClass),
		strconv.FormatBool(d.Flags.IsInstance),
		strconv.FormatBool(d.Flags.IsStructure),
		strconv.FormatBool(d.Flags.IsInductive),
		strconv.FormatBool(d.Flags.IsRecursor),
		strconv.FormatBool(d.Flags.IsConstructor),
		strconv.FormatBool(d.Flags.IsStructureField),
	}
	n := gexfNode{
		ID:    d.Name,
		Label: d.Name,
		Color: gexfColor{R: c.R, G: c.G, B: c.B, A: c.A},
	}
	for i, v := range vals {
		n.Values = append(n.Values, gexfValue{For: strconv.Itoa(i), Value: v})
	}
	return n
}
