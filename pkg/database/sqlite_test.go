package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-activity-portal/pkg/config"
)

func TestNewSQLiteCreatesSchema(t *testing.T) {
	db, err := NewSQLite(config.StorageConfig{SQLitePath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var name string
	require.NoError(t, db.Get(&name, "SELECT name FROM sqlite_master WHERE type='table' AND name = 'profile_entries'"))
	require.Equal(t, "profile_entries", name)

	require.NoError(t, Migrate(db), "migration must be re-runnable")
}
