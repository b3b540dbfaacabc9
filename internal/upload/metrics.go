package upload

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the pipeline's prometheus counters.
type Metrics struct {
	chunksReceived   prometheus.Counter
	uploadsCompleted prometheus.Counter
	uploadsFailed    prometheus.Counter
	dedupHits        prometheus.Counter
	bytesStored      prometheus.Counter
}

// NewMetrics creates and registers the pipeline counters.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		chunksReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filehost_chunks_received_total",
			Help: "Total number of upload chunks accepted.",
		}),
		uploadsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filehost_uploads_completed_total",
			Help: "Total number of uploads finalized successfully.",
		}),
		uploadsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filehost_uploads_failed_total",
			Help: "Total number of uploads that ended in the failed state.",
		}),
		dedupHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filehost_dedup_hits_total",
			Help: "Total number of uploads resolved to already stored content.",
		}),
		bytesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filehost_stored_bytes_total",
			Help: "Total bytes of new content committed to permanent storage.",
		}),
	}

	for _, c := range []prometheus.Counter{m.chunksReceived, m.uploadsCompleted, m.uploadsFailed, m.dedupHits, m.bytesStored} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
