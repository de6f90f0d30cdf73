package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

type Service interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, pattern string) error
	// Version sums the counters at versionKeys; missing counters count as zero
	Version(ctx context.Context, versionKeys ...string) (int64, error)
	// BumpVersion increments versionKey, then deletes keys
	BumpVersion(ctx context.Context, versionKey string, ttl time.Duration, keys ...string) error
	// SetIfVersion writes key only while the summed counters still equal expected
	SetIfVersion(ctx context.Context, key string, value interface{}, ttl time.Duration, expected int64, versionKeys ...string) (bool, error)
	Ping(ctx context.Context) error
}

// setIfVersionScript compares the summed counters in KEYS[2..] with ARGV[1] and only
// then writes KEYS[1]. Runs atomically so a bump cannot slip between check and write.
var setIfVersionScript = redis.NewScript(`
local current = 0
for i = 2, #KEYS do
	current = current + tonumber(redis.call('GET', KEYS[i]) or '0')
end
if current ~= tonumber(ARGV[1]) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

type service struct {
	client *redis.Client
}

func NewService(client *redis.Client) Service {
	return &service{client: client}
}

func (s *service) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("cache get error: %w", err)
	}

	if err := json.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}

	return nil
}

func (s *service) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}

	return nil
}

func (s *service) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}

// DeletePattern walks matching keys with SCAN so large keyspaces do not block the server
func (s *service) DeletePattern(ctx context.Context, pattern string) error {
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	keys := make([]string, 0, 16)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan error: %w", err)
	}

	if len(keys) > 0 {
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("cache delete pattern error: %w", err)
		}
	}

	return nil
}

func (s *service) Version(ctx context.Context, versionKeys ...string) (int64, error) {
	if len(versionKeys) == 0 {
		return 0, nil
	}
	vals, err := s.client.MGet(ctx, versionKeys...).Result()
	if err != nil {
		return 0, fmt.Errorf("cache version error: %w", err)
	}

	var sum int64
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cache version parse error: %w", err)
		}
		sum += n
	}
	return sum, nil
}

// BumpVersion runs INCR before DEL so a writer holding the old version can no longer
// restore what is being deleted
func (s *service) BumpVersion(ctx context.Context, versionKey string, ttl time.Duration, keys ...string) error {
	pipe := s.client.TxPipeline()
	pipe.Incr(ctx, versionKey)
	if ttl > 0 {
		pipe.Expire(ctx, versionKey, ttl)
	}
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache bump version error: %w", err)
	}
	return nil
}

func (s *service) SetIfVersion(ctx context.Context, key string, value interface{}, ttl time.Duration, expected int64, versionKeys ...string) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("cache marshal error: %w", err)
	}

	keys := append([]string{key}, versionKeys...)
	stored, err := setIfVersionScript.Run(ctx, s.client, keys, expected, data, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("cache conditional set error: %w", err)
	}
	return stored == 1, nil
}

func (s *service) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
