package dto

import "github.com/noah-isme/sma-activity-portal/internal/models"

// ActivityView is one rendered activity card.
type ActivityView struct {
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Category        models.Category `json:"category"`
	Schedule        string          `json:"schedule"`
	Days            []string        `json:"days,omitempty"`
	MaxParticipants int             `json:"max_participants"`
	SpotsLeft       int             `json:"spots_left"`
	IsFull          bool            `json:"is_full"`
	Participants    []string        `json:"participants"`
}

// ActivitiesResponse is the visible activity list. Fetched is false until
// the first successful backend response so callers can tell "loading"
// apart from "no results".
type ActivitiesResponse struct {
	Selection  models.FilterSelection `json:"selection"`
	Query      string                 `json:"query"`
	Fetched    bool                   `json:"fetched"`
	Total      int                    `json:"total"`
	Activities []ActivityView         `json:"activities"`
}

// BannerResponse carries the single announcement to surface, if any.
type BannerResponse struct {
	Announcement *models.Announcement `json:"announcement"`
}

// SessionResponse describes the current identity.
type SessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user,omitempty"`
}

// EnrollmentRequest is the body for signup/unregister.
type EnrollmentRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// EnrollmentResponse echoes the backend's confirmation message.
type EnrollmentResponse struct {
	Message string `json:"message"`
}
