package models

import (
	"time"

	"github.com/google/uuid"
)

// Vote is one voter's estimate within a room. Value is nil until the voter casts
// and goes back to nil when the room is reset.
type Vote struct {
	ID        uuid.UUID `json:"id"`
	RoomID    uuid.UUID `json:"room_id"`
	Voter     string    `json:"voter"`
	Value     *int32    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// VoteChoice is one entry of the static estimate catalog
type VoteChoice struct {
	Label string `json:"label"`
	Value int32  `json:"value"`
}

// VoteChoices returns the fixed ordered catalog of castable estimate values
func VoteChoices() []VoteChoice {
	return []VoteChoice{
		{Label: "1", Value: 1},
		{Label: "2", Value: 2},
		{Label: "3", Value: 3},
		{Label: "5", Value: 5},
		{Label: "8", Value: 8},
		{Label: "13", Value: 13},
		{Label: "20", Value: 20},
		{Label: "40", Value: 40},
	}
}
