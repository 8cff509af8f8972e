package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ClustersConverted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bcltools_clusters_converted_total",
		Help: "Total number of clusters written to the output matrix",
	})

	RecordsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bcltools_records_written_total",
			Help: "Total number of records appended, by file kind",
		},
		[]string{"kind"},
	)

	RecordsDumped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bcltools_records_dumped_total",
			Help: "Total number of records decoded to text, by file kind",
		},
		[]string{"kind"},
	)

	HeadersPatched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bcltools_headers_patched_total",
		Help: "Total number of file headers patched with their final count",
	})

	ClusterRollbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bcltools_cluster_rollbacks_total",
		Help: "Total number of cluster batches truncated after a failed write",
	})

	ConversionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bcltools_conversion_duration_seconds",
		Help:    "Wall time of whole conversion runs",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	})
)

func init() {
	prometheus.MustRegister(ClustersConverted, RecordsWritten, RecordsDumped)
	prometheus.MustRegister(HeadersPatched, ClusterRollbacks, ConversionDuration)
}

// ObserveRun records the duration of a run that started at start.
func ObserveRun(start time.Time) {
	ConversionDuration.Observe(time.Since(start).Seconds())
}

// WriteTextfile dumps every registered metric to path in the node exporter
// textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
