package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Andrew-Sencil/GBP/internal/domain"
)

// RedisStore handles the recent-analysis dedup markers and the bundle cache.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string) *RedisStore {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return &RedisStore{client: rdb}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// MarkAnalyzed sets a key with a TTL to debounce repeat analyses.
func (s *RedisStore) MarkAnalyzed(ctx context.Context, placeID string, ttl time.Duration) error {
	key := fmt.Sprintf("analyzed:%s", placeID)
	return s.client.Set(ctx, key, "1", ttl).Err()
}

// IsRecentlyAnalyzed reports whether a place was analyzed within the TTL.
func (s *RedisStore) IsRecentlyAnalyzed(ctx context.Context, placeID string) (bool, error) {
	key := fmt.Sprintf("analyzed:%s", placeID)
	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return val == 1, nil
}

// CacheBundle stores the full bundle so recently analyzed places are served
// without touching the provider or a browser.
func (s *RedisStore) CacheBundle(ctx context.Context, b *domain.AnalysisBundle, ttl time.Duration) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encoding bundle: %w", err)
	}
	key := fmt.Sprintf("bundle:%s", b.Business.PlaceID)
	return s.client.Set(ctx, key, payload, ttl).Err()
}

// GetCachedBundle returns the cached bundle or domain.ErrNotFound.
func (s *RedisStore) GetCachedBundle(ctx context.Context, placeID string) (*domain.AnalysisBundle, error) {
	key := fmt.Sprintf("bundle:%s", placeID)
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var b domain.AnalysisBundle
	if err := json.Unmarshal(payload, &b); err != nil {
		return nil, fmt.Errorf("decoding cached bundle: %w", err)
	}
	return &b, nil
}

// CacheQueryPlaceID remembers which place a free-text query resolved to, so
// a repeat query skips the provider lookup.
func (s *RedisStore) CacheQueryPlaceID(ctx context.Context, query, placeID string, ttl time.Duration) error {
	return s.client.Set(ctx, queryKey(query), placeID, ttl).Err()
}

// LookupQueryPlaceID returns the place a query resolved to, or
// domain.ErrNotFound if the mapping expired.
func (s *RedisStore) LookupQueryPlaceID(ctx context.Context, query string) (string, error) {
	placeID, err := s.client.Get(ctx, queryKey(query)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrNotFound
	}
	return placeID, err
}

// queryKey hashes free-text queries into fixed-size keys. Queries are
// case-folded and trimmed so trivial variants share an entry.
func queryKey(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	sum := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("query:%s", hex.EncodeToString(sum[:16]))
}
