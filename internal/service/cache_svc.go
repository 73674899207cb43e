package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Majkoo/PicturesApi/internal/model"
	"github.com/Majkoo/PicturesApi/pkg/hash"
)

const (
	DefaultListingTTL = 30 * time.Second

	listingGenerationKey = "pictures:listing:gen"
)

// CacheService is a Redis cache-aside layer for global listings. Pages are
// keyed under a generation counter; bumping the counter orphans every cached
// page at once and the TTL reclaims them.
type CacheService struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCacheService creates a new CacheService. If redisURL is empty or connection
// fails, it returns a CacheService with a nil client (cache operations become no-ops).
func NewCacheService(redisURL string, ttl time.Duration) *CacheService {
	if ttl <= 0 {
		ttl = DefaultListingTTL
	}
	if redisURL == "" {
		log.Info().Msg("redis: no URL configured, caching disabled")
		return &CacheService{ttl: ttl}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis: invalid URL, caching disabled")
		return &CacheService{ttl: ttl}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis: connection failed, caching disabled")
		_ = rdb.Close()
		return &CacheService{ttl: ttl}
	}

	log.Info().Dur("ttl", ttl).Msg("redis: connected, caching enabled")
	return &CacheService{rdb: rdb, ttl: ttl}
}

// NewCacheServiceWithClient wraps an existing client. rdb may be nil.
func NewCacheServiceWithClient(rdb *redis.Client, ttl time.Duration) *CacheService {
	if ttl <= 0 {
		ttl = DefaultListingTTL
	}
	return &CacheService{rdb: rdb, ttl: ttl}
}

// Client returns the underlying Redis client (for health checks). May be nil.
func (c *CacheService) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.rdb
}

// GetListing retrieves a cached listing page along with the generation it was
// looked up under. data is nil if not cached or cache is disabled.
func (c *CacheService) GetListing(ctx context.Context, q model.ListingQuery) (data []byte, gen int64, err error) {
	if c == nil || c.rdb == nil {
		return nil, 0, nil
	}
	gen, err = c.generation(ctx)
	if err != nil {
		return nil, 0, err
	}
	data, err = c.rdb.Get(ctx, listingKey(gen, q)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, nil
	}
	return data, gen, err
}

// SetListing stores a listing page under gen, the generation returned by the
// GetListing miss that preceded the load. A bump in between leaves the page
// under a dead generation instead of serving it as current.
func (c *CacheService) SetListing(ctx context.Context, gen int64, q model.ListingQuery, data any) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, listingKey(gen, q), b, c.ttl).Err()
}

// BumpListingGeneration invalidates every cached listing page.
func (c *CacheService) BumpListingGeneration(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Incr(ctx, listingGenerationKey).Err()
}

// Close shuts down the Redis connection.
func (c *CacheService) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func (c *CacheService) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, listingGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func listingKey(gen int64, q model.ListingQuery) string {
	digest := hash.Key(
		string(q.Mode),
		strconv.Itoa(q.Skip),
		strconv.Itoa(q.Take),
		strings.ToLower(strings.TrimSpace(q.Search)),
	)
	return fmt.Sprintf("pictures:listing:%d:%s", gen, digest)
}
