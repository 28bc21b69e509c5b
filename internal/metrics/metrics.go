// Package metrics exposes the service's prometheus instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// recordsParsed counts record blocks parsed from introspection streams
	recordsParsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leangraph_records_parsed_total",
		Help: "Total record blocks parsed from introspection streams",
	})

	// declarationsIngested counts declarations accepted into an index
	declarationsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leangraph_declarations_ingested_total",
		Help: "Total declarations accepted into an index",
	})

	// jobsTotal counts finished crawl jobs by outcome
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leangraph_jobs_total",
		Help: "Total crawl jobs by outcome",
	}, []string{"outcome"})

	// graphBuilds counts dependency graph constructions
	graphBuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leangraph_graph_builds_total",
		Help: "Total dependency graph constructions",
	})

	// graphBuildDuration tracks graph construction latency
	graphBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "leangraph_graph_build_duration_seconds",
		Help:    "Dependency graph construction duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
	})

	// introspectionDuration tracks prover invocation latency
	introspectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "leangraph_introspection_duration_seconds",
		Help:    "Prover introspection duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3.5min
	})
)

func AddRecordsParsed(n int) {
	recordsParsed.Add(float64(n))
}

func AddDeclarationsIngested(n int) {
	declarationsIngested.Add(float64(n))
}

func JobFinished(outcome string) {
	jobsTotal.WithLabelValues(outcome).Inc()
}

func ObserveGraphBuild(d time.Duration) {
	graphBuilds.Inc()
	graphBuildDuration.Observe(d.Seconds())
}

func ObserveIntrospection(d time.Duration) {
	introspectionDuration.Observe(d.Seconds())
}

// Handler serves the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
