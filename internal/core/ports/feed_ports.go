package ports

import (
	"context"

	"github.com/vibecheck/api/internal/core/domain"
)

// FeedSubscription is one live view over vote insertions for a single event.
// Votes() is closed when the subscription ends. Close must be called when the
// consumer goes away; a subscription left open leaks a feed.
type FeedSubscription interface {
	Votes() <-chan domain.Vote
	Close() error
}

// ChangeFeed delivers one notification per vote row inserted into the store,
// filtered to the subscribed event id.
type ChangeFeed interface {
	Subscribe(ctx context.Context, eventID string) (FeedSubscription, error)
}
