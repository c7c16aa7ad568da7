package handlers

import (
	"fmt"
	"net/http"

	"callsight/internal/engine/ingest"
)

// MetricsHandler exposes the ingest counters in Prometheus text format.
type MetricsHandler struct {
	metrics *ingest.Metrics
}

func NewMetricsHandler(metrics *ingest.Metrics) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

func (h *MetricsHandler) Export(w http.ResponseWriter, r *http.Request) {
	snap := h.metrics.Snapshot()

	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "# HELP callsight_ingest_received_total Inbound webhook events received\n")
	fmt.Fprintf(w, "# TYPE callsight_ingest_received_total counter\n")
	fmt.Fprintf(w, "callsight_ingest_received_total %d\n", snap.Received)
	fmt.Fprintf(w, "# HELP callsight_ingest_persisted_total Calls persisted\n")
	fmt.Fprintf(w, "# TYPE callsight_ingest_persisted_total counter\n")
	fmt.Fprintf(w, "callsight_ingest_persisted_total %d\n", snap.Persisted)
	fmt.Fprintf(w, "# HELP callsight_ingest_rejected_total Events rejected before persistence\n")
	fmt.Fprintf(w, "# TYPE callsight_ingest_rejected_total counter\n")
	fmt.Fprintf(w, "callsight_ingest_rejected_total %d\n", snap.Rejected)
	fmt.Fprintf(w, "# HELP callsight_ingest_failed_total Events failed at the storage layer\n")
	fmt.Fprintf(w, "# TYPE callsight_ingest_failed_total counter\n")
	fmt.Fprintf(w, "callsight_ingest_failed_total %d\n", snap.Failed)
}
