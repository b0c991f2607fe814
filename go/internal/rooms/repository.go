package rooms

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mcdev12/planningpoker/go/internal/models"
)

// DB defines what the repository needs from the database layer
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements room data access operations
type Repository struct {
	db DB
}

// NewRepository creates a new rooms repository
func NewRepository(db DB) *Repository {
	return &Repository{
		db: db,
	}
}

// CreateRoom stores a new room with an already-hashed password
func (r *Repository) CreateRoom(ctx context.Context, passwordHash string) (*models.Room, error) {
	var room models.Room
	err := r.db.QueryRow(ctx,
		`INSERT INTO rooms (password) VALUES ($1) RETURNING id, password, created_at`,
		passwordHash,
	).Scan(&room.ID, &room.PasswordHash, &room.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	return &room, nil
}

// GetRoom retrieves a room by ID
func (r *Repository) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	var room models.Room
	err := r.db.QueryRow(ctx,
		`SELECT id, password, created_at FROM rooms WHERE id = $1`,
		id,
	).Scan(&room.ID, &room.PasswordHash, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	return &room, nil
}

// RoomExists reports whether a room with this ID is stored
func (r *Repository) RoomExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1)`,
		id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check room existence: %w", err)
	}

	return exists, nil
}
