package stats

import (
	"sort"

	"leangraph/internal/depgraph"
	"leangraph/internal/index"
)

// SizeSummary aggregates one size metric across a corpus.
type SizeSummary struct {
	Count int     `json:"count"`
	Min   int64   `json:"min"`
	Max   int64   `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P90   float64 `json:"p90"`
	P99   float64 `json:"p99"`
}

// CorpusStats describes one ingested library and the graph built over
// it.
type CorpusStats struct {
	Label        string         `json:"label"`
	Declarations int            `json:"declarations"`
	GraphNodes   int            `json:"graph_nodes"`
	GraphEdges   int            `json:"graph_edges"`
	Kinds        map[string]int `json:"kinds"`

	TypeSize       SizeSummary `json:"type_size"`
	TypeDedupSize  SizeSummary `json:"type_dedup_size"`
	ValueSize      SizeSummary `json:"value_size"`
	ValueDedupSize SizeSummary `json:"value_dedup_size"`

	// DedupRatio is total deduplicated size over total raw size across
	// both terms, 1.0 when the corpus has no structure sharing at all.
	DedupRatio float64 `json:"dedup_ratio"`
}

// Corpus computes library-wide statistics. g may be nil when no graph
// has been built for the snapshot yet.
func Corpus(ix *index.LibraryIndex, g *depgraph.Graph) CorpusStats {
	cs := CorpusStats{
		Label:        ix.Label(),
		Declarations: ix.Len(),
		Kinds:        make(map[string]int),
	}

	typeRaw := make([]int64, 0, ix.Len())
	typeDedup := make([]int64, 0, ix.Len())
	valueRaw := make([]int64, 0, ix.Len())
	valueDedup := make([]int64, 0, ix.Len())
	var rawSum, dedupSum int64

	for d := range ix.Declarations() {
		cs.Kinds[d.DisplayKind()]++
		typeRaw = append(typeRaw, int64(d.TypeStats.Raw))
		typeDedup = append(typeDedup, int64(d.TypeStats.Dedup))
		valueRaw = append(valueRaw, int64(d.ValueStats.Raw))
		valueDedup = append(valueDedup, int64(d.ValueStats.Dedup))
		rawSum += int64(d.TypeStats.Raw) + int64(d.ValueStats.Raw)
		dedupSum += int64(d.TypeStats.Dedup) + int64(d.ValueStats.Dedup)
	}

	cs.TypeSize = summarize(typeRaw)
	cs.TypeDedupSize = summarize(typeDedup)
	cs.ValueSize = summarize(valueRaw)
	cs.ValueDedupSize = summarize(valueDedup)
	if rawSum > 0 {
		cs.DedupRatio = float64(dedupSum) / float64(rawSum)
	}

	if g != nil {
		cs.GraphNodes = g.Len()
		cs.GraphEdges = g.EdgeCount()
	}
	return cs
}

func summarize(values []int64) SizeSummary {
	if len(values) == 0 {
		return SizeSummary{}
	}
	sorted := append([]int64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum int64
	for _, v := range sorted {
		sum += v
	}
	return SizeSummary{
		Count: len(sorted),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Avg:   float64(sum) / float64(len(sorted)),
		P50:   percentile(sorted, 50),
		P90:   percentile(sorted, 90),
		P99:   percentile(sorted, 99),
	}
}
