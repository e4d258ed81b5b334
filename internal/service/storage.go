package service

import (
	"context"
	"time"
)

// Storage keys shared by the portal services.
const (
	KeyDismissedAnnouncements = "dismissedAnnouncements"
	KeyCurrentUser            = "currentUser"
	TabKeyAuthToken           = "authToken"
	TabKeyAnnouncements       = "announcementSnapshot"
)

// profileStore is durable per-profile storage that survives restarts.
// Get returns pkg/errors.ErrStateNotFound for a missing key.
type profileStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// tabStore is process-lifetime storage with optional per-entry expiry.
type tabStore interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
}
