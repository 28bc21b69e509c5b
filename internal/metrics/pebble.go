package metrics

import (
	"github.com/cockroachdb/pebble"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsSource is satisfied by the pebble-backed store.
type MetricsSource interface {
	Metrics() *pebble.Metrics
}

// PebbleCollector exports storage engine metrics from the backing
// store's point-in-time pebble snapshot.
type PebbleCollector struct {
	source MetricsSource

	// Block cache
	blockCacheSize   *prometheus.Desc
	blockCacheCount  *prometheus.Desc
	blockCacheHits   *prometheus.Desc
	blockCacheMisses *prometheus.Desc

	// Memtables
	memtableSize  *prometheus.Desc
	memtableCount *prometheus.Desc

	// Compactions
	compactionCount         *prometheus.Desc
	compactionEstimatedDebt *prometheus.Desc
	compactionInProgress    *prometheus.Desc

	// WAL
	walFiles        *prometheus.Desc
	walSize         *prometheus.Desc
	walBytesWritten *prometheus.Desc

	// Whole store
	diskUsage *prometheus.Desc
}

func NewPebbleCollector(source MetricsSource) *PebbleCollector {
	return &PebbleCollector{
		source: source,

		blockCacheSize: prometheus.NewDesc(
			"pebble_block_cache_size_bytes",
			"Current size of the block cache in bytes",
			nil, nil,
		),
		blockCacheCount: prometheus.NewDesc(
			"pebble_block_cache_entries",
			"Current number of entries in the block cache",
			nil, nil,
		),
		blockCacheHits: prometheus.NewDesc(
			"pebble_block_cache_hits_total",
			"Total block cache hits",
			nil, nil,
		),
		blockCacheMisses: prometheus.NewDesc(
			"pebble_block_cache_misses_total",
			"Total block cache misses",
			nil, nil,
		),

		memtableSize: prometheus.NewDesc(
			"pebble_memtable_size_bytes",
			"Current size of the memtables in bytes",
			nil, nil,
		),
		memtableCount: prometheus.NewDesc(
			"pebble_memtable_count",
			"Current count of memtables",
			nil, nil,
		),

		compactionCount: prometheus.NewDesc(
			"pebble_compaction_count_total",
			"Total number of compactions performed",
			nil, nil,
		),
		compactionEstimatedDebt: prometheus.NewDesc(
			"pebble_compaction_estimated_debt_bytes",
			"Estimated bytes that need compacting to reach a stable state",
			nil, nil,
		),
		compactionInProgress: prometheus.NewDesc(
			"pebble_compaction_in_progress_bytes",
			"Bytes being compacted currently",
			nil, nil,
		),

		walFiles: prometheus.NewDesc(
			"pebble_wal_files",
			"Number of live WAL files",
			nil, nil,
		),
		walSize: prometheus.NewDesc(
			"pebble_wal_size_bytes",
			"Size of live WAL data in bytes",
			nil, nil,
		),
		walBytesWritten: prometheus.NewDesc(
			"pebble_wal_bytes_written_total",
			"Total physical bytes written to the WAL",
			nil, nil,
		),

		diskUsage: prometheus.NewDesc(
			"pebble_disk_usage_bytes",
			"Total disk space used by the store",
			nil, nil,
		),
	}
}

func (pc *PebbleCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- pc.blockCacheSize
	ch <- pc.blockCacheCount
	ch <- pc.blockCacheHits
	ch <- pc.blockCacheMisses

	ch <- pc.memtableSize
	ch <- pc.memtableCount

	ch <- pc.compactionCount
	ch <- pc.compactionEstimatedDebt
	ch <- pc.compactionInProgress

	ch <- pc.walFiles
	ch <- pc.walSize
	ch <- pc.walBytesWritten

	ch <- pc.diskUsage
}

func (pc *PebbleCollector) Collect(ch chan<- prometheus.Metric) {
	m := pc.source.Metrics()

	ch <- prometheus.MustNewConstMetric(
		pc.blockCacheSize,
		prometheus.GaugeValue,
		float64(m.BlockCache.Size),
	)
	ch <- prometheus.MustNewConstMetric(
		pc.blockCacheCount,
		prometheus.GaugeValue,
		float64(m.BlockCache.Count),
	)
	ch <- prometheus.MustNewConstMetric(
		pc.blockCacheHits,
		prometheus.CounterValue,
		float64(m.BlockCache.Hits),
	)
	ch <- prometheus.MustNewConstMetric(
		pc.blockCacheMisses,
		prometheus.CounterValue,
		float64(m.BlockCache.Misses),
	)

	ch <- prometheus.MustNewConstMetric(
		pc.memtableSize,
		prometheus.GaugeValue,
		float64(m.MemTable.Size),
	)
	ch <- prometheus.MustNewConstMetric(
		pc.memtableCount,
		prometheus.GaugeValue,
		float64(m.MemTable.Count),
	)

	ch <- prometheus.MustNewConstMetric(
		pc.compactionCount,
		prometheus.CounterValue,
		float64(m.Compact.Count),
	)
	ch <- prometheus.MustNewConstMetric(
		pc.compactionEstimatedDebt,
		prometheus.GaugeValue,
		float64(m.Compact.EstimatedDebt),
	)
	ch <- prometheus.MustNewConstMetric(
		pc.compactionInProgress,
		prometheus.GaugeValue,
		float64(m.Compact.InProgressBytes),
	)

	ch <- prometheus.MustNewConstMetric(
		pc.walFiles,
		prometheus.GaugeValue,
		float64(m.WAL.Files),
	)
	ch <- prometheus.MustNewConstMetric(
		pc.walSize,
		prometheus.GaugeValue,
		float64(m.WAL.Size),
	)
	ch <- prometheus.MustNewConstMetric(
		pc.walBytesWritten,
		prometheus.CounterValue,
		float64(m.WAL.BytesWritten),
	)

	ch <- prometheus.MustNewConstMetric(
		pc.diskUsage,
		prometheus.GaugeValue,
		float64(m.DiskSpaceUsage()),
	)
}
