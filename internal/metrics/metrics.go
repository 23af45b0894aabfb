// Package metrics exposes Prometheus counters for the object store.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chunkvault",
		Name:      "uploads_total",
		Help:      "Uploads by outcome.",
	}, []string{"result"})

	UploadedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chunkvault",
		Name:      "uploaded_bytes_total",
		Help:      "Bytes committed by successful uploads.",
	})

	StreamedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chunkvault",
		Name:      "streamed_bytes_total",
		Help:      "Bytes written to download sinks.",
	})

	Deletes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chunkvault",
		Name:      "deletes_total",
		Help:      "Deletes by outcome.",
	}, []string{"result"})

	CleanupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chunkvault",
		Name:      "cleanup_failures_total",
		Help:      "Best-effort chunk removals that failed.",
	})

	OrphansRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chunkvault",
		Name:      "orphans_removed_total",
		Help:      "Uncommitted chunk sets removed by the sweeper or cleanup worker.",
	})

	OpenStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chunkvault",
		Name:      "open_streams",
		Help:      "Download streams currently open.",
	})
)
