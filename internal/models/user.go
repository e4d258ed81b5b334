package models

import "time"

// User is the signed-in staff member as reported by the backend.
type User struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role,omitempty"`
}

// LoginRequest holds credentials forwarded once to the backend.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is the backend's answer to a successful login.
type LoginResult struct {
	User        User   `json:"user"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// SessionToken is the tab-scoped authorization material for privileged calls.
type SessionToken struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}
