// Package feed provides the in-process fan-out behind the change feed port.
// Store adapters publish each inserted vote once; the broker routes it to
// every subscription registered for that vote's event.
package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vibecheck/api/internal/core/domain"
	"github.com/vibecheck/api/internal/core/ports"
)

// subscriptionBuffer bounds how many undelivered votes a slow consumer may
// accumulate before the broker starts dropping for that consumer.
const subscriptionBuffer = 256

type Broker struct {
	log *slog.Logger

	mu   sync.Mutex
	subs map[string]map[*subscription]struct{}
}

func NewBroker(log *slog.Logger) *Broker {
	return &Broker{
		log:  log,
		subs: make(map[string]map[*subscription]struct{}),
	}
}

type subscription struct {
	broker  *Broker
	eventID string
	ch      chan domain.Vote
	once    sync.Once
}

func (s *subscription) Votes() <-chan domain.Vote {
	return s.ch
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.broker.remove(s)
		close(s.ch)
	})
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, eventID string) (ports.FeedSubscription, error) {
	if eventID == "" {
		eventID = domain.DefaultEvent
	}

	sub := &subscription{
		broker:  b,
		eventID: eventID,
		ch:      make(chan domain.Vote, subscriptionBuffer),
	}

	b.mu.Lock()
	if b.subs[eventID] == nil {
		b.subs[eventID] = make(map[*subscription]struct{})
	}
	b.subs[eventID][sub] = struct{}{}
	b.mu.Unlock()

	return sub, nil
}

// Publish delivers a vote to every subscription for its event. Delivery is
// non-blocking: a consumer that has fallen subscriptionBuffer votes behind
// loses this one rather than stalling every other consumer.
func (b *Broker) Publish(vote domain.Vote) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs[vote.EventID] {
		select {
		case sub.ch <- vote:
		default:
			b.log.Warn("dropping vote for slow feed consumer", "event", vote.EventID, "vote", vote.ID)
		}
	}
}

func (b *Broker) remove(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if set, ok := b.subs[sub.eventID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(b.subs, sub.eventID)
		}
	}
}
