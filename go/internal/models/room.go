package models

import (
	"time"

	"github.com/google/uuid"
)

// Room represents a planning poker session guarded by a shared password
type Room struct {
	ID           uuid.UUID `json:"id"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
