package votes

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mcdev12/planningpoker/go/internal/models"
	"github.com/mcdev12/planningpoker/go/internal/sqlutil"
)

// DB defines what the repository needs from the database layer
type DB interface {
	sqlutil.Beginner
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements vote data access operations
type Repository struct {
	db DB
}

// NewRepository creates a new votes repository
func NewRepository(db DB) *Repository {
	return &Repository{
		db: db,
	}
}

// CreateVote creates an empty vote record for a voter joining a room.
// The pre-check gives an early ErrVoterTaken when the name is already stored,
// but two concurrent joins can both see no row; the UNIQUE (room_id, voter)
// constraint settles that race and its violation maps to ErrVoterTaken too.
func (r *Repository) CreateVote(ctx context.Context, roomID uuid.UUID, voter string) (*models.Vote, error) {
	var vote models.Vote

	err := sqlutil.Run(ctx, r.db, func(tx pgx.Tx) error {
		var existing uuid.UUID
		err := tx.QueryRow(ctx,
			`SELECT id FROM votes WHERE room_id = $1 AND voter = $2 FOR UPDATE`,
			roomID, voter,
		).Scan(&existing)
		if err == nil {
			return ErrVoterTaken
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		return tx.QueryRow(ctx,
			`INSERT INTO votes (room_id, voter) VALUES ($1, $2) RETURNING id, room_id, voter, value, created_at`,
			roomID, voter,
		).Scan(&vote.ID, &vote.RoomID, &vote.Voter, &vote.Value, &vote.CreatedAt)
	})
	if err != nil {
		if errors.Is(err, ErrVoterTaken) || isUniqueViolation(err) {
			return nil, ErrVoterTaken
		}
		return nil, fmt.Errorf("failed to create vote: %w", err)
	}

	return &vote, nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// GetVote retrieves a vote by ID
func (r *Repository) GetVote(ctx context.Context, id uuid.UUID) (*models.Vote, error) {
	var vote models.Vote
	err := r.db.QueryRow(ctx,
		`SELECT id, room_id, voter, value, created_at FROM votes WHERE id = $1`,
		id,
	).Scan(&vote.ID, &vote.RoomID, &vote.Voter, &vote.Value, &vote.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVoteNotFound
		}
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}

	return &vote, nil
}

// UpdateVoteValue sets the value of a single vote
func (r *Repository) UpdateVoteValue(ctx context.Context, id uuid.UUID, value *int32) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE votes SET value = $2 WHERE id = $1`,
		id, value,
	)
	if err != nil {
		return fmt.Errorf("failed to update vote value: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVoteNotFound
	}
	return nil
}

// ListVotesByRoom retrieves all votes for a room in join order
func (r *Repository) ListVotesByRoom(ctx context.Context, roomID uuid.UUID) ([]models.Vote, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, room_id, voter, value, created_at FROM votes WHERE room_id = $1 ORDER BY created_at, voter`,
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	var result []models.Vote
	for rows.Next() {
		var vote models.Vote
		if err := rows.Scan(&vote.ID, &vote.RoomID, &vote.Voter, &vote.Value, &vote.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		result = append(result, vote)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read votes: %w", err)
	}

	return result, nil
}

// ResetVoteValues clears the value of every vote in a room
func (r *Repository) ResetVoteValues(ctx context.Context, roomID uuid.UUID) error {
	if _, err := r.db.Exec(ctx,
		`UPDATE votes SET value = NULL WHERE room_id = $1`,
		roomID,
	); err != nil {
		return fmt.Errorf("failed to reset vote values: %w", err)
	}
	return nil
}
