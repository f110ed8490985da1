package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vibecheck/api/internal/core/domain"
	"github.com/vibecheck/api/internal/core/ports"
)

type voteRepository struct {
	db *sql.DB
}

func NewVoteRepository(db *sql.DB) ports.VoteRepository {
	return &voteRepository{
		db: db,
	}
}

func (r *voteRepository) SaveVote(ctx context.Context, vote *domain.Vote) error {
	query := `
		INSERT INTO votes (id, event_id, vibe)
		VALUES ($1, $2, $3)
		RETURNING created_at;
	`
	err := r.db.QueryRowContext(ctx, query, vote.ID, vote.EventID, vote.Vibe.String()).Scan(&vote.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save vote: %w", err)
	}
	return nil
}

func (r *voteRepository) ListByEvent(ctx context.Context, eventID string) ([]domain.Vote, error) {
	query := `
		SELECT id, event_id, vibe, created_at
		FROM votes
		WHERE event_id = $1
		ORDER BY created_at;
	`
	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	var votes []domain.Vote
	for rows.Next() {
		var v domain.Vote
		var vibe string
		if err := rows.Scan(&v.ID, &v.EventID, &vibe, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		v.Vibe = domain.Vibe(vibe)
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate votes: %w", err)
	}

	return votes, nil
}
