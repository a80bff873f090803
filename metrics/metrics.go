// Package metrics exposes prometheus counters and gauges for the row
// buffer and table traffic, scraped by debugsrv's /metrics endpoint.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// RowsAppended counts inbound rows a table received and parsed
	// successfully, labeled by table name.
	RowsAppended = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "setab",
		Name:      "rows_appended_total",
		Help:      "Inbound rows a table received and parsed successfully.",
	}, []string{"table"})

	// RowsParsedFail counts wire messages that failed to parse against
	// a table's schema.
	RowsParsedFail = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "setab",
		Name:      "rows_parse_failed_total",
		Help:      "Wire messages that failed to parse against a table's schema.",
	}, []string{"table"})

	// RowsDeduped counts rows suppressed by dedup=true duplicate
	// detection.
	RowsDeduped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "setab",
		Name:      "rows_deduped_total",
		Help:      "Rows suppressed as duplicates.",
	}, []string{"table"})

	// BlocksGCed counts row blocks dropped by GC, labeled by table name.
	BlocksGCed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "setab",
		Name:      "blocks_gc_total",
		Help:      "Row buffer blocks dropped by garbage collection.",
	}, []string{"table"})

	// BufferRows is a live gauge of rows currently held in a table's
	// buffer.
	BufferRows = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "setab",
		Name:      "buffer_rows",
		Help:      "Rows currently held in a table's row buffer.",
	}, []string{"table"})

	// StreamDeltaMs is a live gauge of the fast-window stream-time delta
	// (observed_ts - wall_now), in milliseconds.
	StreamDeltaMs = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "setab",
		Name:      "stream_delta_ms",
		Help:      "Fast-window percentile of observed_ts minus wall clock, in milliseconds.",
	}, []string{"table"})
)

func init() {
	prometheus.MustRegister(RowsAppended, RowsParsedFail, RowsDeduped, BlocksGCed, BufferRows, StreamDeltaMs)
}
