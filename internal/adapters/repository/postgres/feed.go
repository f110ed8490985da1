package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/vibecheck/api/internal/adapters/feed"
	"github.com/vibecheck/api/internal/core/domain"
	"github.com/vibecheck/api/internal/core/ports"
)

// NotifyChannel is the postgres NOTIFY channel the votes insert trigger
// publishes to (see the migrations directory).
const NotifyChannel = "vote_inserted"

const (
	listenMinReconnect = 2 * time.Second
	listenMaxReconnect = 30 * time.Second
)

// Feed bridges postgres LISTEN/NOTIFY into the change feed port. One
// pq.Listener carries notifications for every event; the broker fans each
// decoded row out to the subscriptions for its event id.
type Feed struct {
	listener *pq.Listener
	broker   *feed.Broker
	log      *slog.Logger
	done     chan struct{}
}

// notifyPayload mirrors the row_to_json shape produced by the insert trigger.
type notifyPayload struct {
	ID        uuid.UUID `json:"id"`
	EventID   string    `json:"event_id"`
	Vibe      string    `json:"vibe"`
	CreatedAt time.Time `json:"created_at"`
}

func NewFeed(connStr string, log *slog.Logger) (*Feed, error) {
	listener := pq.NewListener(connStr, listenMinReconnect, listenMaxReconnect, func(event pq.ListenerEventType, err error) {
		if err != nil {
			log.Error("postgres listener event", "type", int(event), "error", err)
		}
	})

	if err := listener.Listen(NotifyChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", NotifyChannel, err)
	}

	f := &Feed{
		listener: listener,
		broker:   feed.NewBroker(log),
		log:      log,
		done:     make(chan struct{}),
	}
	go f.run()

	return f, nil
}

func (f *Feed) run() {
	for {
		select {
		case <-f.done:
			return
		case n, ok := <-f.listener.Notify:
			if !ok {
				return
			}
			if n == nil {
				// nil marks a connection re-establishment; votes inserted
				// while disconnected are gone from the feed's point of view.
				f.log.Warn("postgres listener reconnected, feed may have missed inserts")
				continue
			}

			var payload notifyPayload
			if err := json.Unmarshal([]byte(n.Extra), &payload); err != nil {
				f.log.Error("failed to decode vote notification", "error", err)
				continue
			}

			f.broker.Publish(domain.Vote{
				ID:        payload.ID,
				EventID:   payload.EventID,
				Vibe:      domain.Vibe(payload.Vibe),
				CreatedAt: payload.CreatedAt,
			})
		}
	}
}

func (f *Feed) Subscribe(ctx context.Context, eventID string) (ports.FeedSubscription, error) {
	return f.broker.Subscribe(ctx, eventID)
}

func (f *Feed) Close() error {
	close(f.done)
	return f.listener.Close()
}
