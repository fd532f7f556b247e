package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Record propagation metrics
	RecordsPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "paceline_records_published_total",
			Help: "Total number of record proposals published to the agent",
		},
	)

	RecordsReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "paceline_records_received_total",
			Help: "Total number of record updates received from peers",
		},
	)

	SolutionsStored = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "paceline_solutions_stored_total",
			Help: "Total number of received solution payloads persisted as insol files",
		},
	)

	BestBound = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "paceline_best_bound",
			Help: "Best known objective value across all workers (lower is better)",
		},
	)

	// Stop negotiation metrics
	StopsRequested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "paceline_stops_requested_total",
			Help: "Total number of stop broadcasts this worker initiated",
		},
	)

	StopsReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "paceline_stops_received_total",
			Help: "Total number of stop notifications received from peers",
		},
	)

	KillRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "paceline_kill_retries_total",
			Help: "Total number of stop signals re-sent to a solver that had not exited",
		},
	)

	// Session metrics
	SessionConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "paceline_session_connected",
			Help: "Whether a coordination agent session is live (1 = connected)",
		},
	)

	BootstrapDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "paceline_bootstrap_duration_seconds",
			Help:    "Time from connect until both initial variables were observed",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Solver metrics
	SolverEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paceline_solver_events_total",
			Help: "Total number of solver events by kind",
		},
		[]string{"kind"},
	)

	SolverRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "paceline_solver_running",
			Help: "Whether the solver subprocess is running (1 = running)",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(RecordsPublished)
	prometheus.MustRegister(RecordsReceived)
	prometheus.MustRegister(SolutionsStored)
	prometheus.MustRegister(BestBound)
	prometheus.MustRegister(StopsRequested)
	prometheus.MustRegister(StopsReceived)
	prometheus.MustRegister(KillRetries)
	prometheus.MustRegister(SessionConnected)
	prometheus.MustRegister(BootstrapDuration)
	prometheus.MustRegister(SolverEvents)
	prometheus.MustRegister(SolverRunning)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
