/*
Package events provides an in-memory event broker for paceline's race
notifications.

The events package implements a lightweight event bus for broadcasting what
happens during a race run to interested subscribers. It supports
asynchronous delivery over buffered channels, enabling loose coupling
between the worker core and its observers: the journal persists the record
trajectory, the metrics collector counts and gauges, and neither is ever
allowed to slow the race down.

# Architecture

	┌──────────────────── EVENT BROKER ────────────────────────┐
	│                                                          │
	│  pkg/worker (main loop + receiver loop)                  │
	│       │                                                  │
	│       │ Publish (non-blocking)                           │
	│       ▼                                                  │
	│  ┌────────────────────────────────────────────┐          │
	│  │              Event Broker                  │          │
	│  │  Publisher → Event Channel (buffer: 100)   │          │
	│  │       ↓                                    │          │
	│  │  Broadcast Loop                            │          │
	│  │       ↓                                    │          │
	│  │  Subscriber Channels (buffer: 50 each)     │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                    │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Subscribers                      │          │
	│  │  pkg/journal: persist record trajectory    │          │
	│  │  pkg/metrics: update Prometheus collectors │          │
	│  └────────────────────────────────────────────┘          │
	└──────────────────────────────────────────────────────────┘

# Event Types Catalog

Session Events:
  - session.connected: bootstrap finished; Value is the bootstrap
    duration in seconds
  - session.closed: the session to the agent ended

Solver Events:
  - solver.launched: the solver subprocess started; metadata carries the
    launch bound
  - solver.closed: the solver exited; Value is the exit status

Record Events:
  - record.published: this worker proposed a new record; Value is the
    objective value
  - record.received: a peer's record arrived and was pushed into the
    solver; Value is the objective value
  - solution.stored: a received solution payload was persisted as an
    insol file; Value is the objective value, metadata carries the
    sequence number

Stop Negotiation Events:
  - stop.requested: this worker asked its peers to stop
  - stop.received: a peer asked this worker to stop
  - kill.retry: the solver had not exited one retry interval after a
    stop signal, so the signal was resent
  - early.stop: the race was already over at bootstrap; no solver was
    launched

# Usage

Creating and starting a broker:

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

Subscribing:

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for event := range sub {
			fmt.Printf("[%s] %s %.4f\n", event.RunID, event.Type, event.Value)
		}
	}()

Publishing:

	broker.Publish(&events.Event{
		Type:    events.EventRecordPublished,
		RunID:   runID,
		Value:   5.0,
		Message: "Found new record",
	})

The broker fills in the event ID and timestamp when the publisher leaves
them zero.

# Design Patterns

Non-Blocking Publish:
  - Publish sends to a buffered channel and returns immediately
  - A full subscriber buffer skips that subscriber for that event
  - Trade-off: the race never waits for its observers

Fan-Out:
  - One event is broadcast to every subscriber
  - Each subscriber owns its channel and processing rate

Fire-and-Forget:
  - No acknowledgement, no retry
  - Suitable for trajectory journaling and metrics, not for anything the
    protocol depends on; nothing in the stop negotiation or record
    propagation rides on this bus

# Integration Points

  - pkg/worker: publishes every event type above from its two loops
  - pkg/journal: a Follower subscriber persists entries per run
  - pkg/metrics: a Collector subscriber updates Prometheus collectors

# See Also

  - pkg/journal for the persistent record trajectory
  - pkg/metrics for the collectors fed from this bus
*/
package events
