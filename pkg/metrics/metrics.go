package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PredictionsProcessed counts scored transactions by assigned risk level
var PredictionsProcessed = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fraudsight_predictions_total",
		Help: "Total number of transactions scored by the fraud model",
	},
	[]string{"risk_level"},
)

// PredictionLatency records latency distribution for single-transaction scoring
var PredictionLatency = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "fraudsight_prediction_latency_seconds",
		Help:    "Latency in seconds to score an individual transaction",
		Buckets: prometheus.DefBuckets,
	},
)

// Drift monitoring metrics
var (
	DriftChecksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fraudsight_drift_checks_total",
			Help: "Total number of dataset drift evaluations executed",
		},
	)

	DriftFeaturesDetected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fraudsight_drift_features_detected",
			Help: "Number of features flagged as drifted in the last evaluation",
		},
	)

	DriftPercentage = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fraudsight_drift_percentage",
			Help: "Percentage of tested features flagged as drifted in the last evaluation",
		},
	)
)

// AlertsDispatched counts alert deliveries by severity and channel
var AlertsDispatched = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fraudsight_alerts_dispatched_total",
		Help: "Total number of drift alerts dispatched to notification channels",
	},
	[]string{"severity", "channel"},
)

// RetrainingDecisions counts gate decisions by outcome reason
var RetrainingDecisions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fraudsight_retraining_decisions_total",
		Help: "Total number of retraining gate decisions by reason",
	},
	[]string{"reason"},
)

// RetrainingRuns counts executed retraining jobs by final status
var RetrainingRuns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fraudsight_retraining_runs_total",
		Help: "Total number of retraining executions by final status",
	},
	[]string{"status"},
)

// Stream worker metrics
var (
	StreamMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudsight_stream_messages_total",
			Help: "Total number of transaction stream messages consumed",
		},
		[]string{"result"},
	)

	StreamLag = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fraudsight_stream_lag_messages",
			Help: "Approximate consumer lag of the transaction stream worker",
		},
	)
)

// Database pool gauges, collected periodically by the entrypoint
var (
	DBOpenConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fraudsight_db_open_connections",
			Help: "Open database connections",
		},
		[]string{"driver"},
	)

	DBIdleConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fraudsight_db_idle_connections",
			Help: "Idle database connections",
		},
		[]string{"driver"},
	)

	DBInUseConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fraudsight_db_in_use_connections",
			Help: "Database connections currently in use",
		},
		[]string{"driver"},
	)
)

func init() {
	prometheus.MustRegister(PredictionsProcessed, PredictionLatency)
	prometheus.MustRegister(DriftChecksTotal, DriftFeaturesDetected, DriftPercentage)
	prometheus.MustRegister(AlertsDispatched, RetrainingDecisions, RetrainingRuns)
	prometheus.MustRegister(StreamMessages, StreamLag)
	prometheus.MustRegister(DBOpenConns, DBIdleConns, DBInUseConns)
}
