package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/noah-isme/sma-activity-portal/pkg/errors"
)

// ProfileRepository is the durable per-profile key/value store backed by sqlite.
type ProfileRepository struct {
	db        *sqlx.DB
	profileID string
}

// NewProfileRepository creates the repository for one profile.
func NewProfileRepository(db *sqlx.DB, profileID string) *ProfileRepository {
	if profileID == "" {
		profileID = "default"
	}
	return &ProfileRepository{db: db, profileID: profileID}
}

// Get returns the raw value stored under key or ErrStateNotFound.
func (r *ProfileRepository) Get(ctx context.Context, key string) ([]byte, error) {
	const query = `SELECT value FROM profile_entries WHERE profile_id = ? AND entry_key = ?`
	var value []byte
	if err := r.db.GetContext(ctx, &value, query, r.profileID, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStateNotFound
		}
		return nil, fmt.Errorf("get profile entry %s: %w", key, err)
	}
	return value, nil
}

// Set upserts the value stored under key.
func (r *ProfileRepository) Set(ctx context.Context, key string, value []byte) error {
	const query = `INSERT INTO profile_entries (profile_id, entry_key, value, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (profile_id, entry_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	updatedAt := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := r.db.ExecContext(ctx, query, r.profileID, key, value, updatedAt); err != nil {
		return fmt.Errorf("set profile entry %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (r *ProfileRepository) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM profile_entries WHERE profile_id = ? AND entry_key = ?`
	if _, err := r.db.ExecContext(ctx, query, r.profileID, key); err != nil {
		return fmt.Errorf("delete profile entry %s: %w", key, err)
	}
	return nil
}

// Close releases the database handle.
func (r *ProfileRepository) Close() error {
	return r.db.Close()
}
