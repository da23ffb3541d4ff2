package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/rivalry/internal/domain/model"
)

const defaultRedisPrefix = "rivalry:ratings:"

// RedisRatingStore keeps one hash per sport mapping player -> rating.
type RedisRatingStore struct {
	client *redis.Client
	prefix string
}

// NewRedisRatingStore connects to the Redis server at url (redis://host:port/db).
func NewRedisRatingStore(ctx context.Context, url string) (*RedisRatingStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisRatingStoreFromClient(client, defaultRedisPrefix), nil
}

// NewRedisRatingStoreFromClient wraps an existing client. An empty prefix
// falls back to "rivalry:ratings:".
func NewRedisRatingStoreFromClient(client *redis.Client, prefix string) *RedisRatingStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisRatingStore{client: client, prefix: prefix}
}

func (s *RedisRatingStore) key(sport model.Sport) string {
	return s.prefix + strings.ToLower(strings.ReplaceAll(string(sport), " ", "_"))
}

func (s *RedisRatingStore) UpsertRating(ctx context.Context, sport model.Sport, player string, rating int) (err error) {
	defer observe("redis_upsert_rating", time.Now(), &err)

	if err = s.client.HSet(ctx, s.key(sport), player, rating).Err(); err != nil {
		return fmt.Errorf("redis upsert rating: %w", err)
	}
	return nil
}

func (s *RedisRatingStore) Ratings(ctx context.Context, sport model.Sport) (out map[string]int, err error) {
	defer observe("redis_ratings", time.Now(), &err)

	raw, err := s.client.HGetAll(ctx, s.key(sport)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis ratings: %w", err)
	}
	out = make(map[string]int, len(raw))
	for player, v := range raw {
		n, convErr := strconv.Atoi(v)
		if convErr != nil {
			return nil, fmt.Errorf("redis rating %s=%q: %w", player, v, convErr)
		}
		out[player] = n
	}
	return out, nil
}

// Close closes the underlying client.
func (s *RedisRatingStore) Close() error {
	return s.client.Close()
}

var _ RatingStore = (*RedisRatingStore)(nil)
