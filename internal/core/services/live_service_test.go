package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibecheck/api/internal/core/domain"
	"github.com/vibecheck/api/internal/core/ports"
)

type fakeSubscription struct {
	ch     chan domain.Vote
	closed chan struct{}
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{
		ch:     make(chan domain.Vote, 64),
		closed: make(chan struct{}),
	}
}

func (f *fakeSubscription) Votes() <-chan domain.Vote { return f.ch }

func (f *fakeSubscription) Close() error {
	select {
	case <-f.closed:
	default:
		close(f.closed)
	}
	return nil
}

func (f *fakeSubscription) push(v domain.Vote) { f.ch <- v }

type fakeFeed struct {
	sub *fakeSubscription
	err error
}

func (f *fakeFeed) Subscribe(ctx context.Context, eventID string) (ports.FeedSubscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sub, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitEvent(t *testing.T, st *LiveStream) domain.Vote {
	t.Helper()
	select {
	case v, ok := <-st.Events():
		require.True(t, ok, "stream closed unexpectedly")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for live event")
		return domain.Vote{}
	}
}

func seedRepo(event string, vibes ...domain.Vibe) *fakeVoteRepo {
	repo := &fakeVoteRepo{}
	for _, vibe := range vibes {
		repo.votes = append(repo.votes, domain.Vote{ID: uuid.New(), EventID: event, Vibe: vibe})
	}
	return repo
}

func TestOpenBootstrapsFromSnapshot(t *testing.T) {
	repo := seedRepo("concert1", domain.VibeFire, domain.VibeFire, domain.VibeSleep)
	sub := newFakeSubscription()
	svc := NewLiveService(repo, &fakeFeed{sub: sub}, discardLogger())

	st, err := svc.Open(context.Background(), "concert1")
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.LoadErr())
	assert.Equal(t, domain.Counts{domain.VibeFire: 2, domain.VibeMeh: 0, domain.VibeSleep: 1}, st.Counts())
}

func TestFeedEventIncrementsAndEchoes(t *testing.T) {
	repo := seedRepo("concert1", domain.VibeFire, domain.VibeFire, domain.VibeSleep)
	sub := newFakeSubscription()
	svc := NewLiveService(repo, &fakeFeed{sub: sub}, discardLogger())

	st, err := svc.Open(context.Background(), "concert1")
	require.NoError(t, err)
	defer st.Close()

	sub.push(domain.Vote{ID: uuid.New(), EventID: "concert1", Vibe: domain.VibeMeh})

	got := waitEvent(t, st)
	assert.Equal(t, domain.VibeMeh, got.Vibe)
	assert.Equal(t, domain.Counts{domain.VibeFire: 2, domain.VibeMeh: 1, domain.VibeSleep: 1}, st.Counts())
}

func TestSnapshotEchoIsCountedOnce(t *testing.T) {
	// A vote committed between the subscription opening and the snapshot
	// read arrives through both paths; the stream must count it once.
	windowVote := domain.Vote{ID: uuid.New(), EventID: "concert1", Vibe: domain.VibeFire}

	repo := &fakeVoteRepo{votes: []domain.Vote{windowVote}}
	sub := newFakeSubscription()
	sub.push(windowVote)

	svc := NewLiveService(repo, &fakeFeed{sub: sub}, discardLogger())
	st, err := svc.Open(context.Background(), "concert1")
	require.NoError(t, err)
	defer st.Close()

	fresh := domain.Vote{ID: uuid.New(), EventID: "concert1", Vibe: domain.VibeMeh}
	sub.push(fresh)

	got := waitEvent(t, st)
	assert.Equal(t, fresh.ID, got.ID, "the duplicated snapshot vote must be swallowed")
	assert.Equal(t, 1, st.Counts()[domain.VibeFire])
}

func TestDuplicateFeedDeliverySkipped(t *testing.T) {
	repo := &fakeVoteRepo{}
	sub := newFakeSubscription()
	svc := NewLiveService(repo, &fakeFeed{sub: sub}, discardLogger())

	st, err := svc.Open(context.Background(), "concert1")
	require.NoError(t, err)
	defer st.Close()

	vote := domain.Vote{ID: uuid.New(), EventID: "concert1", Vibe: domain.VibeSleep}
	sub.push(vote)
	sub.push(vote)

	waitEvent(t, st)
	next := domain.Vote{ID: uuid.New(), EventID: "concert1", Vibe: domain.VibeFire}
	sub.push(next)
	got := waitEvent(t, st)

	assert.Equal(t, next.ID, got.ID)
	assert.Equal(t, 1, st.Counts()[domain.VibeSleep])
}

func TestInvalidOrForeignFeedEventsIgnored(t *testing.T) {
	repo := &fakeVoteRepo{}
	sub := newFakeSubscription()
	svc := NewLiveService(repo, &fakeFeed{sub: sub}, discardLogger())

	st, err := svc.Open(context.Background(), "concert1")
	require.NoError(t, err)
	defer st.Close()

	sub.push(domain.Vote{ID: uuid.New(), EventID: "concert1", Vibe: "rage"})
	sub.push(domain.Vote{ID: uuid.New(), EventID: "other", Vibe: domain.VibeFire})
	sub.push(domain.Vote{ID: uuid.New(), EventID: "concert1", Vibe: domain.VibeFire})

	got := waitEvent(t, st)
	assert.Equal(t, domain.VibeFire, got.Vibe)
	assert.Equal(t, domain.Counts{domain.VibeFire: 1, domain.VibeMeh: 0, domain.VibeSleep: 0}, st.Counts())
}

func TestBootstrapFailureStartsFromZero(t *testing.T) {
	repo := &fakeVoteRepo{listErr: errors.New("network down")}
	sub := newFakeSubscription()
	svc := NewLiveService(repo, &fakeFeed{sub: sub}, discardLogger())

	st, err := svc.Open(context.Background(), "concert1")
	require.NoError(t, err)
	defer st.Close()

	assert.ErrorIs(t, st.LoadErr(), domain.ErrLoadFailed)
	assert.Equal(t, 0, st.Counts().Total())

	// The feed still counts after a failed load.
	sub.push(domain.Vote{ID: uuid.New(), EventID: "concert1", Vibe: domain.VibeFire})
	waitEvent(t, st)
	assert.Equal(t, 1, st.Counts()[domain.VibeFire])
}

func TestSubscribeFailure(t *testing.T) {
	svc := NewLiveService(&fakeVoteRepo{}, &fakeFeed{err: errors.New("refused")}, discardLogger())

	_, err := svc.Open(context.Background(), "concert1")
	assert.ErrorContains(t, err, "failed to subscribe")
}

func TestCloseReleasesSubscription(t *testing.T) {
	repo := &fakeVoteRepo{}
	sub := newFakeSubscription()
	svc := NewLiveService(repo, &fakeFeed{sub: sub}, discardLogger())

	st, err := svc.Open(context.Background(), "concert1")
	require.NoError(t, err)

	require.NoError(t, st.Close())

	select {
	case <-sub.closed:
	case <-time.After(time.Second):
		t.Fatal("subscription was not closed")
	}

	select {
	case _, ok := <-st.Events():
		assert.False(t, ok, "events channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("events channel was not closed")
	}
}

func TestDefaultEventScope(t *testing.T) {
	repo := &fakeVoteRepo{}
	sub := newFakeSubscription()
	svc := NewLiveService(repo, &fakeFeed{sub: sub}, discardLogger())

	st, err := svc.Open(context.Background(), "")
	require.NoError(t, err)
	defer st.Close()

	assert.Equal(t, domain.DefaultEvent, st.EventID())
}
