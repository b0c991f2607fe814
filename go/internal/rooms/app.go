package rooms

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/planningpoker/go/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxPasswordLength = 30
	maxVoterLength    = 20
)

// RoomsRepository defines what the app layer needs from the repository
type RoomsRepository interface {
	CreateRoom(ctx context.Context, passwordHash string) (*models.Room, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	RoomExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// VoteIssuer creates the empty vote record handed to a voter on join
type VoteIssuer interface {
	CreateVote(ctx context.Context, roomID uuid.UUID, voter string) (*models.Vote, error)
}

// App handles room business logic
type App struct {
	repo  RoomsRepository
	votes VoteIssuer
}

// NewApp creates a new rooms App
func NewApp(repo RoomsRepository, votes VoteIssuer) *App {
	return &App{
		repo:  repo,
		votes: votes,
	}
}

// CreateRoom creates a new room guarded by password. An empty password is allowed.
func (a *App) CreateRoom(ctx context.Context, password string) (*models.Room, error) {
	if len(password) > maxPasswordLength {
		return nil, fmt.Errorf("password longer than %d characters: %w", maxPasswordLength, ErrInvalidPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return a.repo.CreateRoom(ctx, string(hash))
}

// JoinRoom verifies the room password and issues the voter's vote record.
// Returns ErrRoomNotFound, ErrInvalidPassword or votes.ErrVoterTaken on rejection.
func (a *App) JoinRoom(ctx context.Context, roomID, password, voter string) (*models.Vote, error) {
	if voter == "" || len(voter) > maxVoterLength {
		return nil, fmt.Errorf("voter name must be 1-%d characters: %w", maxVoterLength, ErrInvalidVoter)
	}

	id, err := uuid.Parse(roomID)
	if err != nil {
		// A malformed id can never match an existing room.
		return nil, ErrRoomNotFound
	}

	room, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(room.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidPassword
	}

	return a.votes.CreateVote(ctx, room.ID, voter)
}

// RoomExists reports whether roomID names a stored room, treating malformed
// ids as non-existent rather than as errors.
func (a *App) RoomExists(ctx context.Context, roomID string) (bool, error) {
	id, err := uuid.Parse(roomID)
	if err != nil {
		return false, nil
	}
	return a.repo.RoomExists(ctx, id)
}
