package votes

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/planningpoker/go/internal/models"
)

// VotesRepository defines what the app layer needs from the repository
type VotesRepository interface {
	CreateVote(ctx context.Context, roomID uuid.UUID, voter string) (*models.Vote, error)
	UpdateVoteValue(ctx context.Context, id uuid.UUID, value *int32) error
	ListVotesByRoom(ctx context.Context, roomID uuid.UUID) ([]models.Vote, error)
	ResetVoteValues(ctx context.Context, roomID uuid.UUID) error
}

// VoteStatus is one row of a hidden snapshot: who has voted, never the value
type VoteStatus struct {
	Voter string `json:"voter"`
	Voted bool   `json:"voted"`
}

// RevealedVote is one row of a revealed snapshot, value included
type RevealedVote struct {
	Voter string `json:"voter"`
	Value *int32 `json:"value"`
	Voted bool   `json:"voted"`
}

// App handles vote state logic
type App struct {
	repo VotesRepository
}

// NewApp creates a new votes App
func NewApp(repo VotesRepository) *App {
	return &App{
		repo: repo,
	}
}

// CreateVote issues the empty vote record for a voter joining a room
func (a *App) CreateVote(ctx context.Context, roomID uuid.UUID, voter string) (*models.Vote, error) {
	return a.repo.CreateVote(ctx, roomID, voter)
}

// ListHidden returns the room's votes with values masked
func (a *App) ListHidden(ctx context.Context, roomID uuid.UUID) ([]VoteStatus, error) {
	list, err := a.repo.ListVotesByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to build hidden snapshot: %w", err)
	}

	result := make([]VoteStatus, 0, len(list))
	for _, v := range list {
		result = append(result, VoteStatus{
			Voter: v.Voter,
			Voted: v.Value != nil,
		})
	}
	return result, nil
}

// ListRevealed returns the room's votes with values included
func (a *App) ListRevealed(ctx context.Context, roomID uuid.UUID) ([]RevealedVote, error) {
	list, err := a.repo.ListVotesByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to build revealed snapshot: %w", err)
	}

	result := make([]RevealedVote, 0, len(list))
	for _, v := range list {
		result = append(result, RevealedVote{
			Voter: v.Voter,
			Value: v.Value,
			Voted: v.Value != nil,
		})
	}
	return result, nil
}

// SetValue records a voter's estimate. Returns ErrVoteNotFound for unknown ids.
func (a *App) SetValue(ctx context.Context, voteID uuid.UUID, value *int32) error {
	return a.repo.UpdateVoteValue(ctx, voteID, value)
}

// ResetAll clears every vote value in the room for the next round
func (a *App) ResetAll(ctx context.Context, roomID uuid.UUID) error {
	return a.repo.ResetVoteValues(ctx, roomID)
}
