package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SnapshotBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "snapshot_build_duration_seconds",
		Help:    "Time spent building one snapshot (collect, score, rank, merkle root).",
		Buckets: prometheus.DefBuckets,
	})
	UsersScored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapshot_users_scored_total",
		Help: "Total user score records computed across all cycles.",
	})
	CommitmentsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapshot_commitments_accepted_total",
		Help: "Commitments accepted by the ledger predicate.",
	})
	CommitmentsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshot_commitments_rejected_total",
		Help: "Commitments rejected by the ledger predicate, by reason.",
	}, []string{"reason"})
)

// Serve exposes /metrics on the given port.
func Serve(port string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(":"+port, mux)
}
