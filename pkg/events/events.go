package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of race event
type EventType string

const (
	EventSessionConnected EventType = "session.connected"
	EventSessionClosed    EventType = "session.closed"
	EventSolverLaunched   EventType = "solver.launched"
	EventSolverClosed     EventType = "solver.closed"
	EventRecordPublished  EventType = "record.published"
	EventRecordReceived   EventType = "record.received"
	EventSolutionStored   EventType = "solution.stored"
	EventStopRequested    EventType = "stop.requested"
	EventStopReceived     EventType = "stop.received"
	EventKillRetry        EventType = "kill.retry"
	EventEarlyStop        EventType = "early.stop"
)

// Event represents one notification from a running race worker. Value
// carries the number the event is about: the objective value for record
// and solution events, the bootstrap duration in seconds for
// session.connected, and the exit status for solver.closed.
type Event struct {
	ID        string
	Type      EventType
	RunID     string
	Timestamp time.Time
	Value     float64
	Message   string
	Metadata  map[string]string
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// Broker manages event subscriptions and distribution
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100), // Buffer up to 100 events
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe creates a new subscription and returns a channel
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50) // Buffer per subscriber
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
}

// Publish publishes an event to all subscribers
func (b *Broker) Publish(event *Event) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber buffer full, skip
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
