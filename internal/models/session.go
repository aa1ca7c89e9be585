package models

import (
	"time"
)

// Session as it is persisted
// The user profile is never stored, only the three fields below
type Session struct {
	AccessToken     string `json:"access_token,omitempty"`
	RefreshToken    string `json:"refresh_token,omitempty"`
	IsAuthenticated bool   `json:"is_authenticated"`
}

// Normalize enforces: authenticated iff access token present
func (s Session) Normalize() Session {
	s.IsAuthenticated = s.AccessToken != ""
	return s
}

func (s Session) IsZero() bool {
	return s.AccessToken == "" && s.RefreshToken == "" && !s.IsAuthenticated
}

// Point-in-time view of a live session
type SessionSnapshot struct {
	Session

	// Zero when access token is opaque or has no 'exp' claim
	AccessExpiresAt time.Time

	// Nil until user fetched
	User *User
}
