package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/vibecheck/api/internal/core/domain"
	"github.com/vibecheck/api/internal/core/ports"
)

// LiveService reconciles the bulk snapshot of an event's votes with its
// realtime change feed. The subscription is opened before the snapshot is
// taken; feed events delivered while the snapshot loads sit in the
// subscription buffer and are replayed afterwards, skipping any vote id the
// snapshot already contains. A vote landing in that window is therefore
// counted exactly once.
type LiveService struct {
	repo ports.VoteRepository
	feed ports.ChangeFeed
	log  *slog.Logger
}

func NewLiveService(repo ports.VoteRepository, feed ports.ChangeFeed, log *slog.Logger) *LiveService {
	return &LiveService{
		repo: repo,
		feed: feed,
		log:  log,
	}
}

// LiveStream is a running tally for one event. Events() yields every vote
// merged into the tally after the bootstrap snapshot, already validated and
// de-duplicated. Close releases the underlying feed subscription; the stream
// is also torn down when the opening context is canceled.
type LiveStream struct {
	eventID string
	sub     ports.FeedSubscription

	mu      sync.Mutex
	counts  domain.Counts
	loadErr error

	out  chan domain.Vote
	done chan struct{}
	once sync.Once
}

// Open subscribes to the event's change feed, loads the current vote set and
// starts merging pushed insertions. A snapshot load failure is not fatal: the
// stream starts from zero counts with LoadErr set, and feed events still
// count (no automatic retry of the load).
func (s *LiveService) Open(ctx context.Context, eventID string) (*LiveStream, error) {
	if eventID == "" {
		eventID = domain.DefaultEvent
	}

	sub, err := s.feed.Subscribe(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to change feed: %w", err)
	}

	st := &LiveStream{
		eventID: eventID,
		sub:     sub,
		counts:  domain.NewCounts(),
		out:     make(chan domain.Vote, 64),
		done:    make(chan struct{}),
	}

	seen := make(map[uuid.UUID]struct{})

	votes, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		st.loadErr = fmt.Errorf("%w: %v", domain.ErrLoadFailed, err)
		s.log.Error("live bootstrap failed, starting from zero", "event", eventID, "error", err)
	} else {
		st.counts = domain.Tally(votes)
		for _, v := range votes {
			seen[v.ID] = struct{}{}
		}
	}

	go st.run(ctx, seen, s.log)

	return st, nil
}

func (st *LiveStream) run(ctx context.Context, seen map[uuid.UUID]struct{}, log *slog.Logger) {
	defer close(st.out)
	defer st.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-st.done:
			return
		case vote, ok := <-st.sub.Votes():
			if !ok {
				return
			}
			if vote.EventID != st.eventID {
				continue
			}
			if !vote.Vibe.Valid() {
				log.Warn("ignoring feed event with unknown vibe", "event", st.eventID, "vibe", vote.Vibe)
				continue
			}
			if _, dup := seen[vote.ID]; dup {
				continue
			}
			seen[vote.ID] = struct{}{}

			st.mu.Lock()
			st.counts[vote.Vibe]++
			st.mu.Unlock()

			select {
			case st.out <- vote:
			case <-ctx.Done():
				return
			case <-st.done:
				return
			}
		}
	}
}

func (st *LiveStream) Events() <-chan domain.Vote {
	return st.out
}

// Counts returns a snapshot of the current tally.
func (st *LiveStream) Counts() domain.Counts {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.counts.Clone()
}

// LoadErr reports whether the bootstrap snapshot failed.
func (st *LiveStream) LoadErr() error {
	return st.loadErr
}

func (st *LiveStream) EventID() string {
	return st.eventID
}

func (st *LiveStream) Close() error {
	var err error
	st.once.Do(func() {
		close(st.done)
		err = st.sub.Close()
	})
	return err
}
