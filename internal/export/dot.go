package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"leangraph/internal/depgraph"
)

// DOTExporter writes Graphviz DOT with nodes filled by display kind.
type DOTExporter struct{}

func (e *DOTExporter) Export(w io.Writer, g *depgraph.Graph) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph dependencies {")
	fmt.Fprintln(bw, "  node [shape=box, style=filled];")

	for _, name := range g.NodeNames() {
		d, _ := g.Decl(name)
		display := d.DisplayKind()
		fmt.Fprintf(bw, "  %s [label=%s, kind=%s, fillcolor=%s];\n",
			strconv.Quote(d.Name),
			strconv.Quote(d.Name),
			strconv.Quote(display),
			strconv.Quote(ColorFor(display).hex()))
	}
	for edge := range g.Edges() {
		fmt.Fprintf(bw, "  %s -> %s;\n", strconv.Quote(edge.From), strconv.Quote(edge.To))
	}

	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
