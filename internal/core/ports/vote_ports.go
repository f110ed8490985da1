package ports

import (
	"context"

	"github.com/vibecheck/api/internal/core/domain"
)

type VoteRepository interface {
	SaveVote(ctx context.Context, vote *domain.Vote) error
	ListByEvent(ctx context.Context, eventID string) ([]domain.Vote, error)
}

type SubmitVoteInput struct {
	EventID string
	Vibe    domain.Vibe
}

type VoteService interface {
	Submit(ctx context.Context, input SubmitVoteInput) (*domain.Vote, error)
	Counts(ctx context.Context, eventID string) (domain.Counts, error)
}
