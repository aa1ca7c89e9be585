package models

import (
	"time"
)

// User as the backend knows it
// Never mutated locally: replaced wholesale on every fetch
type User struct {
	ID         string    `json:"id" validate:"required"`
	TelegramID int64     `json:"telegram_id" validate:"required"`
	Username   string    `json:"username,omitempty"`
	FirstName  string    `json:"first_name,omitempty"`
	LastName   string    `json:"last_name,omitempty"`
	PhotoURL   string    `json:"photo_url,omitempty"`
	AuthDate   int64     `json:"auth_date"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Display name built from optional fields
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return "@" + u.Username
	default:
		return u.ID
	}
}
