package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vibecheck/api/internal/core/domain"
	"github.com/vibecheck/api/internal/core/ports"
)

type voteService struct {
	repo ports.VoteRepository
}

func NewVoteService(repo ports.VoteRepository) ports.VoteService {
	return &voteService{
		repo: repo,
	}
}

func (s *voteService) Submit(ctx context.Context, input ports.SubmitVoteInput) (*domain.Vote, error) {
	if !input.Vibe.Valid() {
		return nil, domain.ErrInvalidVibe
	}

	eventID := input.EventID
	if eventID == "" {
		eventID = domain.DefaultEvent
	}

	vote := &domain.Vote{
		ID:        uuid.New(),
		EventID:   eventID,
		Vibe:      input.Vibe,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.SaveVote(ctx, vote); err != nil {
		return nil, fmt.Errorf("failed to save vote: %w", err)
	}

	return vote, nil
}

func (s *voteService) Counts(ctx context.Context, eventID string) (domain.Counts, error) {
	if eventID == "" {
		eventID = domain.DefaultEvent
	}

	votes, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLoadFailed, err)
	}

	return domain.Tally(votes), nil
}
