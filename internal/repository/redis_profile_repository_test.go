package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-activity-portal/pkg/errors"
)

func TestRedisProfileRepositoryRoundTrip(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	repo := NewRedisProfileRepository(client, "lab-2", nil)
	t.Cleanup(func() { _ = repo.Close() })
	ctx := context.Background()

	_, err := repo.Get(ctx, "dismissedAnnouncements")
	assert.True(t, errors.Is(err, appErrors.ErrStateNotFound))

	require.NoError(t, repo.Set(ctx, "dismissedAnnouncements", []byte(`{"version":1,"ids":["x"]}`)))
	assert.True(t, srv.Exists("portal:profile:lab-2:dismissedAnnouncements"))
	assert.Equal(t, 0, int(srv.TTL("portal:profile:lab-2:dismissedAnnouncements")))

	value, err := repo.Get(ctx, "dismissedAnnouncements")
	require.NoError(t, err)
	assert.Equal(t, `{"version":1,"ids":["x"]}`, string(value))

	require.NoError(t, repo.Delete(ctx, "dismissedAnnouncements"))
	assert.False(t, srv.Exists("portal:profile:lab-2:dismissedAnnouncements"))
}

func TestRedisProfileRepositoryNilClient(t *testing.T) {
	repo := NewRedisProfileRepository(nil, "", nil)
	ctx := context.Background()

	_, err := repo.Get(ctx, "k")
	assert.True(t, errors.Is(err, appErrors.ErrStateNotFound))
	assert.NoError(t, repo.Set(ctx, "k", []byte("v")))
	assert.NoError(t, repo.Delete(ctx, "k"))
	assert.NoError(t, repo.Close())
}
