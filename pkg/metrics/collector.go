package metrics

import (
	"github.com/paceline/paceline/pkg/events"
	"github.com/paceline/paceline/pkg/types"
)

// Collector drives the Prometheus collectors and the /status view from the
// race event stream
type Collector struct {
	broker *events.Broker
	sub    events.Subscriber
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(broker *events.Broker) *Collector {
	return &Collector{
		broker: broker,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins consuming race events
func (c *Collector) Start() {
	c.sub = c.broker.Subscribe()
	go c.run()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
	c.broker.Unsubscribe(c.sub)
	<-c.doneCh
}

func (c *Collector) run() {
	defer close(c.doneCh)

	for {
		select {
		case event, ok := <-c.sub:
			if !ok {
				return
			}
			c.collect(event)
		case <-c.stopCh:
			return
		}
	}
}

// collect maps one race event onto the collectors and the status view
func (c *Collector) collect(event *events.Event) {
	switch event.Type {
	case events.EventSessionConnected:
		SessionConnected.Set(1)
		updateStatus(func(s *RunStatus) { s.Connected = true })

	case events.EventSessionClosed:
		SessionConnected.Set(0)
		updateStatus(func(s *RunStatus) { s.Connected = false })

	case events.EventSolverLaunched:
		SolverRunning.Set(1)
		updateStatus(func(s *RunStatus) {
			s.SolverRunning = true
			s.Phase = types.RunPhaseRacing
		})

	case events.EventSolverClosed:
		SolverRunning.Set(0)
		updateStatus(func(s *RunStatus) {
			s.SolverRunning = false
			s.Phase = types.RunPhaseFinished
		})

	case events.EventRecordPublished:
		RecordsPublished.Inc()
		c.observeBound(event.Value)
		updateStatus(func(s *RunStatus) { s.RecordsPublished++ })

	case events.EventRecordReceived:
		RecordsReceived.Inc()
		c.observeBound(event.Value)
		updateStatus(func(s *RunStatus) { s.RecordsReceived++ })

	case events.EventSolutionStored:
		SolutionsStored.Inc()
		updateStatus(func(s *RunStatus) { s.SolutionsStored++ })

	case events.EventStopRequested:
		StopsRequested.Inc()

	case events.EventStopReceived:
		StopsReceived.Inc()
		updateStatus(func(s *RunStatus) { s.Phase = types.RunPhaseStopping })

	case events.EventKillRetry:
		KillRetries.Inc()
		updateStatus(func(s *RunStatus) {
			s.KillRetries++
			s.Phase = types.RunPhaseStopping
		})

	case events.EventEarlyStop:
		updateStatus(func(s *RunStatus) { s.Phase = types.RunPhaseFinished })
	}
}

// observeBound keeps the best-bound gauge at the lowest value seen,
// records being a lower-is-better objective
func (c *Collector) observeBound(value float64) {
	updateStatus(func(s *RunStatus) {
		if !s.HasBound || value < s.BestBound {
			s.BestBound = value
			s.HasBound = true
			BestBound.Set(value)
		}
	})
}
