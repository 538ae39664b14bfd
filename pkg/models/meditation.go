package models

import (
	"time"
)

// Meditation is a cached AI-generated reflection tied one-to-one to a quote
type Meditation struct {
	ID        string    `json:"id" db:"id"`
	QuoteID   string    `json:"quoteId" db:"quote_id"`
	Content   string    `json:"content" db:"content"`
	Language  string    `json:"language" db:"language"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Meditation languages
const (
	MeditationLanguageFR = "fr"
	MeditationLanguageEN = "en"
)

// IdentityType distinguishes quota identities
type IdentityType string

const (
	IdentityTypeUser IdentityType = "user"
	IdentityTypeIP   IdentityType = "ip"
)

// Identity is the key daily generation limits are counted against:
// the authenticated user id, or failing that, the client IP.
type Identity struct {
	Identifier string
	Type       IdentityType
}

// UserIdentity builds a quota identity for an authenticated user
func UserIdentity(userID string) Identity {
	return Identity{Identifier: userID, Type: IdentityTypeUser}
}

// IPIdentity builds a quota identity for an anonymous client
func IPIdentity(ip string) Identity {
	return Identity{Identifier: ip, Type: IdentityTypeIP}
}

// MeditationLimit is a per-identity daily generation counter
type MeditationLimit struct {
	Identifier string       `json:"identifier" db:"identifier"`
	Type       IdentityType `json:"type" db:"identity_type"`
	Date       string       `json:"date" db:"date"` // UTC calendar day, YYYY-MM-DD
	Count      int          `json:"count" db:"count"`
	UpdatedAt  time.Time    `json:"updatedAt" db:"updated_at"`
}

// MeditationResult is what the generation flow returns to callers
type MeditationResult struct {
	Meditation string `json:"meditation"`
	Language   string `json:"language,omitempty"`
	Cached     bool   `json:"cached"`
	Remaining  int    `json:"remaining"`
	Limit      int    `json:"limit"`
}

// LimitStatus reports the remaining generations for an identity today
type LimitStatus struct {
	Remaining       int  `json:"remaining"`
	Limit           int  `json:"limit"`
	IsAuthenticated bool `json:"isAuthenticated"`
}
