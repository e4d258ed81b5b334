package repository

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// TabRepository is tab-scoped storage: it lives only as long as the portal
// process and every entry can carry its own expiry.
type TabRepository struct {
	cache *ttlcache.Cache[string, []byte]
}

// NewTabRepository starts the expiry loop. defaultTTL of zero disables expiry
// for entries stored without an explicit TTL.
func NewTabRepository(defaultTTL time.Duration) *TabRepository {
	opts := []ttlcache.Option[string, []byte]{
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	}
	if defaultTTL > 0 {
		opts = append(opts, ttlcache.WithTTL[string, []byte](defaultTTL))
	}
	cache := ttlcache.New[string, []byte](opts...)
	go cache.Start()
	return &TabRepository{cache: cache}
}

// Get returns the value for key if present and unexpired.
func (r *TabRepository) Get(key string) ([]byte, bool) {
	item := r.cache.Get(key)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// Set stores value. ttl <= 0 falls back to the repository default.
func (r *TabRepository) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = ttlcache.DefaultTTL
	}
	r.cache.Set(key, value, ttl)
}

// Delete removes key.
func (r *TabRepository) Delete(key string) {
	r.cache.Delete(key)
}

// Close stops the expiry loop.
func (r *TabRepository) Close() {
	r.cache.Stop()
}
