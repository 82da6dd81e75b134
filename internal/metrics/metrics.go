package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Standard Prometheus collectors for the QR verdict engine
var (
	// qrverdict_scans_total (counter): payloads analyzed
	ScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrverdict_scans_total",
		Help: "Total number of QR payloads analyzed",
	})

	// qrverdict_verdict_count{verdict=SAFE|SUSPICIOUS|MALICIOUS|UNKNOWN}
	VerdictCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrverdict_verdict_count",
		Help: "Number of URL verdicts by classification",
	}, []string{"verdict"})

	// qrverdict_policy_decision_count{decision=allowed|blocked|review|passed}
	PolicyDecisionCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrverdict_policy_decision_count",
		Help: "Number of organization policy decisions",
	}, []string{"decision"})

	// qrverdict_signal_detected{signal=brand|homograph|intel_hit|...}
	SignalDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrverdict_signal_detected",
		Help: "Number of times a specific risk signal was detected",
	}, []string{"signal"})

	// qrverdict_scan_latency_seconds (histogram): analysis duration
	ScanLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "qrverdict_scan_latency_seconds",
		Help:    "End-to-end analysis latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
	})

	// qrverdict_bundle_swaps_total (counter): successful intel updates
	BundleSwaps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrverdict_bundle_swaps_total",
		Help: "Number of successfully installed intel bundles",
	})

	// qrverdict_bundle_rollbacks_total (counter): operator rollbacks
	BundleRollbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrverdict_bundle_rollbacks_total",
		Help: "Number of bundle rollbacks to last known good",
	})
)

// RecordVerdict increments the verdict counter
func RecordVerdict(verdict string) {
	VerdictCount.WithLabelValues(verdict).Inc()
}

// RecordPolicyDecision increments the policy decision counter
func RecordPolicyDecision(decision string) {
	PolicyDecisionCount.WithLabelValues(decision).Inc()
}

// RecordSignal increments the signal counter
func RecordSignal(signal string) {
	SignalDetected.WithLabelValues(signal).Inc()
}
