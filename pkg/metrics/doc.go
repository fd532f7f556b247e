/*
Package metrics provides Prometheus metrics and the ops HTTP endpoint for a
paceline worker.

The metrics package defines and registers every paceline metric with the
Prometheus client library, giving operators visibility into how the race is
going: how records flow, how fast the bound converges, and whether a stop
negotiation is dragging. A Collector feeds the metrics from the in-process
event broker so the worker's hot loops never touch Prometheus directly for
anything the event stream already carries.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                          │
	│  pkg/events broker                                       │
	│       │ race events                                      │
	│       ▼                                                  │
	│  ┌────────────────────────────────────────────┐          │
	│  │ Collector                                  │          │
	│  │  - broker subscriber                       │          │
	│  │  - updates collectors + /status view       │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                    │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │ Prometheus Registry                        │          │
	│  │  - Global DefaultRegistry                  │          │
	│  │  - MustRegister at package init            │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                    │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │ Server (ops endpoint)                      │          │
	│  │  GET /metrics  Prometheus exposition       │          │
	│  │  GET /healthz  component health JSON       │          │
	│  │  GET /status   live run snapshot JSON      │          │
	│  └────────────────────────────────────────────┘          │
	└──────────────────────────────────────────────────────────┘

# Metrics Catalog

Record propagation:

paceline_records_published_total:
  - Type: Counter
  - Description: record proposals this worker published to the agent

paceline_records_received_total:
  - Type: Counter
  - Description: record updates received from peers and pushed into the
    solver

paceline_solutions_stored_total:
  - Type: Counter
  - Description: received solution payloads persisted as insol files

paceline_best_bound:
  - Type: Gauge
  - Description: best (lowest) objective value seen from any side of the
    race so far

Stop negotiation:

paceline_stops_requested_total:
  - Type: Counter
  - Description: stop broadcasts this worker initiated after finishing

paceline_stops_received_total:
  - Type: Counter
  - Description: stop notifications received from peers

paceline_kill_retries_total:
  - Type: Counter
  - Description: stop signals re-sent because the solver had not exited
    within one retry interval

Session:

paceline_session_connected:
  - Type: Gauge
  - Description: 1 while a coordination agent session is live

paceline_bootstrap_duration_seconds:
  - Type: Histogram
  - Description: time from connect until both initial shared variables
    were observed

Solver:

paceline_solver_events_total{kind}:
  - Type: Counter
  - Description: solver events by kind (incumbent, incumbent-solution,
    result, closed); incremented by pkg/worker as events are consumed

paceline_solver_running:
  - Type: Gauge
  - Description: 1 while the solver subprocess is alive

# Usage

Wiring the collector and ops endpoint:

	collector := metrics.NewCollector(broker)
	collector.Start()
	defer collector.Stop()

	server := metrics.NewServer()
	go server.Start(":9090")
	defer server.Stop()

Timing an operation:

	timer := metrics.NewTimer()
	// ... perform operation ...
	timer.ObserveDuration(metrics.BootstrapDuration)

Component health for /healthz:

	metrics.RegisterComponent("session", true, "")
	metrics.UpdateComponent("solver", false, "exited unexpectedly")

# Design Patterns

Package Init Registration:
  - All metrics registered in init() via MustRegister
  - Available before main(), no runtime registration

Event-Driven Collection:
  - The Collector turns broker events into metric updates, so metric
    bookkeeping lives off the race's critical path
  - The solver event counter and the bootstrap histogram are bumped at
    the measurement site in pkg/worker; everything the event stream
    already carries goes through the Collector

Label Discipline:
  - One label, kind, with four fixed values; run identity stays out of
    labels and lives in /status instead

# Integration Points

  - pkg/events: the Collector subscribes to the broker
  - pkg/worker: increments solver event counts, measures bootstrap with
    Timer, and registers component health
  - cmd/paceline: starts the Server when --metrics-addr is set
  - Prometheus: scrapes /metrics

# See Also

  - Prometheus client library: https://github.com/prometheus/client_golang
  - pkg/events for the broker this package consumes
*/
package metrics
