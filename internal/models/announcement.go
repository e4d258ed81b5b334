package models

import (
	"strings"
	"time"
)

// Announcement is a time-bounded banner message published by the backend.
type Announcement struct {
	ID             string  `json:"_id"`
	Title          string  `json:"title"`
	Message        string  `json:"message"`
	StartDate      *string `json:"start_date,omitempty"`
	ExpirationDate string  `json:"expiration_date"`
	CreatedBy      string  `json:"created_by,omitempty"`
	CreatedAt      string  `json:"created_at,omitempty"`
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseISODate parses the ISO-8601 shapes the backend accepts. Values
// without a zone are read as UTC, matching the backend's utcnow() stamps.
func ParseISODate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if strings.HasSuffix(raw, "z") {
		raw = strings.TrimSuffix(raw, "z") + "Z"
	}
	for _, layout := range isoLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// ExpiresAt returns the parsed expiration. ok is false when it cannot be parsed.
func (a Announcement) ExpiresAt() (time.Time, bool) {
	return ParseISODate(a.ExpirationDate)
}

// LiveAt reports whether the announcement expires strictly after now.
func (a Announcement) LiveAt(now time.Time) bool {
	expires, ok := a.ExpiresAt()
	return ok && expires.After(now)
}

// AnnouncementPayload is the create/update body for privileged calls.
type AnnouncementPayload struct {
	Title          *string `json:"title,omitempty"`
	Message        *string `json:"message,omitempty"`
	StartDate      *string `json:"start_date,omitempty"`
	ExpirationDate *string `json:"expiration_date,omitempty"`
}

// PersistedDismissals is the versioned durable record of dismissed ids.
type PersistedDismissals struct {
	Version int      `json:"version"`
	IDs     []string `json:"ids"`
}

// DismissalSchemaVersion is written with every PersistedDismissals.
const DismissalSchemaVersion = 1
