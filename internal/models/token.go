package models

// Token pair issued by the backend on login or refresh
type TokenPair struct {
	Access  string `json:"access_token" validate:"required"`
	Refresh string `json:"refresh_token" validate:"required"`
}
