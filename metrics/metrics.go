// Package metrics exposes service counters on a dedicated Prometheus-format
// HTTP listener, kept separate from the API listener so scrapes never compete
// with user traffic.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	vmetrics "github.com/VictoriaMetrics/metrics"

	"github.com/opencampaigns/sponsord/interfaces"
)

// MetricsServer serves the /metrics endpoint for Prometheus scraping.
type MetricsServer struct {
	srv       *http.Server
	namespace string
}

// New creates a metrics server bound to the given address. The namespace
// prefixes every metric name.
func New(namespace, listenAddr string) (*MetricsServer, error) {
	if namespace == "" {
		return nil, fmt.Errorf("metrics namespace must not be empty")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		vmetrics.WritePrometheus(w, true)
	})

	return &MetricsServer{
		srv: &http.Server{
			Addr:         listenAddr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		namespace: namespace,
	}, nil
}

// ListenAndServe blocks serving the metrics endpoint.
func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics listener.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}

// IncSponsorshipGranted counts a quota increment committed for a resource kind.
func IncSponsorshipGranted(kind interfaces.ResourceKind) {
	vmetrics.GetOrCreateCounter(fmt.Sprintf(`sponsord_sponsorship_granted_total{kind="%s"}`, kind)).Inc()
}

// IncSponsorshipDenied counts a quota increment rejected at the ceiling.
func IncSponsorshipDenied(kind interfaces.ResourceKind) {
	vmetrics.GetOrCreateCounter(fmt.Sprintf(`sponsord_sponsorship_denied_total{kind="%s"}`, kind)).Inc()
}

// IncProofIssued counts a successful proving round.
func IncProofIssued() {
	vmetrics.GetOrCreateCounter(`sponsord_proofs_issued_total`).Inc()
}

// IncProofFailed counts a proving round failed with the given classification.
func IncProofFailed(reason string) {
	vmetrics.GetOrCreateCounter(fmt.Sprintf(`sponsord_proofs_failed_total{reason="%s"}`, reason)).Inc()
}

// IncBalanceQueryFailed counts treasury balance query failures.
func IncBalanceQueryFailed() {
	vmetrics.GetOrCreateCounter(`sponsord_balance_query_failures_total`).Inc()
}
