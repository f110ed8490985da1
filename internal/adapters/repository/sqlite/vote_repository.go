// Package sqlite is the embedded store used when no postgres DSN is
// configured, and by handler tests. sqlite has no NOTIFY, so the repository
// itself publishes every saved vote to an in-process broker to honor the
// change feed contract.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/vibecheck/api/internal/adapters/feed"
	"github.com/vibecheck/api/internal/core/domain"
	"github.com/vibecheck/api/internal/core/ports"
)

const createSchema = `
CREATE TABLE IF NOT EXISTS votes (
    id TEXT PRIMARY KEY,
    event_id TEXT NOT NULL DEFAULT 'default',
    vibe TEXT NOT NULL CHECK (vibe IN ('fire', 'meh', 'sleep')),
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_votes_event_id ON votes (event_id);
`

type Store struct {
	db     *sql.DB
	broker *feed.Broker
}

// Open opens (creating if needed) the database at path and prepares the
// schema. A single writer connection keeps modernc's sqlite happy under
// concurrent handlers.
func Open(path string, log *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{
		db:     db,
		broker: feed.NewBroker(log),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SaveVote(ctx context.Context, vote *domain.Vote) error {
	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO votes (id, event_id, vibe, created_at) VALUES (?, ?, ?, ?);`
	_, err := s.db.ExecContext(ctx, query,
		vote.ID.String(), vote.EventID, vote.Vibe.String(), vote.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save vote: %w", err)
	}

	s.broker.Publish(*vote)
	return nil
}

func (s *Store) ListByEvent(ctx context.Context, eventID string) ([]domain.Vote, error) {
	query := `SELECT id, event_id, vibe, created_at FROM votes WHERE event_id = ? ORDER BY created_at;`
	rows, err := s.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	var votes []domain.Vote
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, err
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate votes: %w", err)
	}

	return votes, nil
}

func (s *Store) Subscribe(ctx context.Context, eventID string) (ports.FeedSubscription, error) {
	return s.broker.Subscribe(ctx, eventID)
}

func scanVote(rows *sql.Rows) (domain.Vote, error) {
	var v domain.Vote
	var id, vibe, createdAt string
	if err := rows.Scan(&id, &v.EventID, &vibe, &createdAt); err != nil {
		return domain.Vote{}, fmt.Errorf("failed to scan vote: %w", err)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return domain.Vote{}, fmt.Errorf("failed to parse vote id: %w", err)
	}
	v.ID = parsed

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return domain.Vote{}, fmt.Errorf("failed to parse vote timestamp: %w", err)
	}
	v.CreatedAt = ts
	v.Vibe = domain.Vibe(vibe)

	return v, nil
}
