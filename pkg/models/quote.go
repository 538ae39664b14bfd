package models

import (
	"time"
)

// Quote represents a stored quote attributed to an author
type Quote struct {
	ID        string    `json:"id" db:"id"`
	Text      string    `json:"quote" db:"text"`
	Author    string    `json:"author" db:"author"`
	CreatedBy *string   `json:"createdBy,omitempty" db:"created_by"` // nil for legacy quotes
	IsPublic  bool      `json:"isPublic" db:"is_public"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// DefaultAuthor is used when a quote carries no attribution
const DefaultAuthor = "Anonymous"
