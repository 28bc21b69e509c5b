package export

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leangraph/internal/decl"
	"leangraph/internal/depgraph"
	"leangraph/internal/index"
)

func sampleGraph(t *testing.T) *depgraph.Graph {
	t.Helper()
	nat := &decl.Declaration{Name: "nat", Kind: decl.KindInductive, File: "core/nat.lean", Line: 3}
	nat.Flags.IsInductive = true
	add := &decl.Declaration{
		Name: "nat.add", Kind: decl.KindDefinition, File: "core/nat.lean", Line: 40,
		TypeStats:      decl.TermStats{Raw: 7, Dedup: 4, PP: 19},
		TypeUsesOthers: []string{"nat"},
	}
	comm := &decl.Declaration{
		Name: "nat.add_comm", Kind: decl.KindTheorem, File: "algebra/comm.lean", Line: 12,
		TypeUsesOthers:  []string{"nat"},
		ValueUsesOthers: []string{"nat.add"},
	}
	ix, err := index.FromDeclarations("core", []*decl.Declaration{nat, add, comm})
	require.NoError(t, err)
	g, err := depgraph.Build(ix)
	require.NoError(t, err)
	return g
}

func TestForFormat(t *testing.T) {
	e, err := ForFormat("gexf")
	require.NoError(t, err)
	assert.IsType(t, &GEXFExporter{}, e)

	e, err = ForFormat("DOT")
	require.NoError(t, err)
	assert.IsType(t, &DOTExporter{}, e)

	e, err = ForFormat("ndjson")
	require.NoError(t, err)
	assert.IsType(t, &JSONLExporter{}, e)

	_, err = ForFormat("graphml")
	assert.ErrorContains(t, err, "unsupported export format")
}

func TestForFile(t *testing.T) {
	e, err := ForFile("out/corpus.jsonl")
	require.NoError(t, err)
	assert.IsType(t, &JSONLExporter{}, e)

	_, err = ForFile("corpus")
	assert.ErrorContains(t, err, "no extension")
}

func TestIsSupportedFormat(t *testing.T) {
	assert.True(t, IsSupportedFormat("GEXF"))
	assert.True(t, IsSupportedFormat("dot"))
	assert.True(t, IsSupportedFormat("gv"))
	assert.True(t, IsSupportedFormat("ndjson"))
	assert.False(t, IsSupportedFormat("csv"))
}

func TestColorFor(t *testing.T) {
	assert.Equal(t, Color{R: 9, G: 200, B: 200, A: 1}, ColorFor("theorem"))
	assert.Equal(t, Color{R: 9, G: 253, B: 136, A: 1}, ColorFor("instance"))
	assert.Equal(t, Color{R: 10, G: 10, B: 10, A: 1}, ColorFor("unknown"))
	assert.Equal(t, Color{R: 9, G: 173, B: 236, A: 1}, ColorFor("inductive"))
	assert.Equal(t, Color{R: 9, G: 173, B: 236, A: 1}, ColorFor("definition"))
}

func TestGEXF_WellFormedWithColorsAndAttributes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&GEXFExporter{}).Export(&buf, sampleGraph(t)))

	var doc struct {
		Version string `xml:"version,attr"`
		Nodes   []struct {
			ID    string `xml:"id,attr"`
			Label string `xml:"label,attr"`
			Color struct {
				R int `xml:"r,attr"`
				G int `xml:"g,attr"`
				B int `xml:"b,attr"`
				A int `xml:"a,attr"`
			} `xml:"color"`
			Values []struct {
				For   string `xml:"for,attr"`
				Value string `xml:"value,attr"`
			} `xml:"attvalues>attvalue"`
		} `xml:"graph>nodes>node"`
		Edges []struct {
			Source string `xml:"source,attr"`
			Target string `xml:"target,attr"`
		} `xml:"graph>edges>edge"`
	}
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "1.2", doc.Version)
	require.Len(t, doc.Nodes, 3)
	require.Len(t, doc.Edges, 3)

	byID := map[string]int{}
	for i, n := range doc.Nodes {
		byID[n.ID] = i
	}

	comm := doc.Nodes[byID["nat.add_comm"]]
	assert.Equal(t, "nat.add_comm", comm.Label)
	assert.Equal(t, 9, comm.Color.R)
	assert.Equal(t, 200, comm.Color.G)
	assert.Equal(t, 200, comm.Color.B)
	assert.Equal(t, 1, comm.Color.A)

	nat := doc.Nodes[byID["nat"]]
	assert.Equal(t, 236, nat.Color.B)

	attrs := map[string]string{}
	add := doc.Nodes[byID["nat.add"]]
	for _, v := range add.Values {
		attrs[v.For] = v.Value
	}
	assert.Equal(t, "definition", attrs["0"])
	assert.Equal(t, "definition", attrs["1"])
	assert.Equal(t, "core/nat.lean", attrs["2"])
	assert.Equal(t, "40", attrs["3"])
	assert.Equal(t, "7", attrs["4"])
	assert.Equal(t, "4", attrs["5"])
	assert.Equal(t, "19", attrs["6"])
	assert.Equal(t, "false", attrs["10"])

	got := map[[2]string]bool{}
	for _, e := range doc.Edges {
		got[[2]string{e.Source, e.Target}] = true
	}
	assert.True(t, got[[2]string{"nat", "nat.add"}])
	assert.True(t, got[[2]string{"nat", "nat.add_comm"}])
	assert.True(t, got[[2]string{"nat.add", "nat.add_comm"}])
}

func TestDOT_NodesAndEdges(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&DOTExporter{}).Export(&buf, sampleGraph(t)))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "digraph dependencies {"))
	assert.Contains(t, out, `"nat.add_comm" [label="nat.add_comm", kind="theorem", fillcolor="#09c8c8"];`)
	assert.Contains(t, out, `"nat" [label="nat", kind="inductive", fillcolor="#09adec"];`)
	assert.Contains(t, out, `"nat.add" -> "nat.add_comm";`)
	assert.True(t, strings.HasSuffix(strings.TrimRight(out, "\n"), "}"))
}

func TestJSONL_NodesThenEdges(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONLExporter{}).Export(&buf, sampleGraph(t)))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 6)

	var kinds []string
	for _, line := range lines {
		var probe struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &probe))
		kinds = append(kinds, probe.Type)
	}
	assert.Equal(t, []string{"node", "node", "node", "edge", "edge", "edge"}, kinds)

	var first jsonlNode
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "nat", first.Name)
	assert.Equal(t, "inductive", first.DisplayKind)
	assert.True(t, first.Flags.IsInductive)

	var last jsonlEdge
	require.NoError(t, json.Unmarshal([]byte(lines[5]), &last))
	assert.Equal(t, "nat.add", last.From)
	assert.Equal(t, "nat.add_comm", last.To)
}
