package journal

import (
	"github.com/rs/zerolog"

	"github.com/paceline/paceline/pkg/events"
	"github.com/paceline/paceline/pkg/log"
)

// Follower persists race events into the journal as they happen
type Follower struct {
	store  *Store
	broker *events.Broker
	sub    events.Subscriber
	stopCh chan struct{}
	doneCh chan struct{}
	logger zerolog.Logger
}

// NewFollower subscribes to the broker and streams events into the store
func NewFollower(store *Store, broker *events.Broker) *Follower {
	return &Follower{
		store:  store,
		broker: broker,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		logger: log.WithComponent("journal"),
	}
}

// Start begins following the event stream
func (f *Follower) Start() {
	f.sub = f.broker.Subscribe()
	go f.run()
}

// Stop unsubscribes and waits for the last buffered events to be written
func (f *Follower) Stop() {
	close(f.stopCh)
	f.broker.Unsubscribe(f.sub)
	<-f.doneCh
}

func (f *Follower) run() {
	defer close(f.doneCh)

	for {
		select {
		case event, ok := <-f.sub:
			if !ok {
				return
			}
			f.append(event)
		case <-f.stopCh:
			// Drain whatever the broker delivered before Unsubscribe
			for {
				select {
				case event, ok := <-f.sub:
					if !ok {
						return
					}
					f.append(event)
				default:
					return
				}
			}
		}
	}
}

func (f *Follower) append(event *events.Event) {
	entry := &Entry{
		Time:    event.Timestamp,
		Type:    string(event.Type),
		Value:   event.Value,
		Message: event.Message,
		Labels:  event.Metadata,
	}

	if err := f.store.Append(event.RunID, entry); err != nil {
		f.logger.Warn().
			Err(err).
			Str("run_id", event.RunID).
			Str("type", string(event.Type)).
			Msg("Failed to journal event")
	}
}
