package dto

import "time"

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries a session token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// FederationTokenResponse carries a CMS federation token.
type FederationTokenResponse struct {
	WPToken   string    `json:"wpToken"`
	ExpiresAt time.Time `json:"expiresAt"`
}
